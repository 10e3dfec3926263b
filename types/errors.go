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

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure crossing the service boundary.
type ErrorKind int

const (
	KindUnclassified ErrorKind = iota
	KindNotFound
	KindAlreadyExists
	KindReferentialViolation
	KindServiceUnavailable
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindReferentialViolation:
		return "referential_violation"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

// Error is the single error type returned by services.
type Error struct {
	Kind    ErrorKind
	Entity  string
	Field   string
	Message string
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError constructs an Error of the given kind.
func NewError(kind ErrorKind, entity string, message string) *Error {
	return &Error{Kind: kind, Entity: entity, Message: message}
}

// WithField names the offending field.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// Wrap records the underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// KindOf returns the kind of err, or KindUnclassified when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnclassified
}
