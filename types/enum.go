/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

// IllegalValue is the Number of a value outside its enum.
const IllegalValue = -1

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
}

// EnumNames returns the string form of every value.
func EnumNames[E BaseEnum](values ...E) []string {
	names := make([]string, 0, len(values))
	for _, v := range values {
		names = append(names, v.String())
	}
	return names
}

// EnumIndex returns the position of v in values, or IllegalValue.
func EnumIndex[E comparable](values []E, v E) int {
	for i, candidate := range values {
		if candidate == v {
			return i
		}
	}
	return IllegalValue
}
