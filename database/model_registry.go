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

package database

import (
	"slices"
	"sort"
	"sync"

	"github.com/uptrace/bun"
)

var defaultRegistry = &modelRegistry{}

// SQLModel is a bun model taking part in migrations. Tables are created in
// ascending Priority, so referenced tables must carry a lower value.
type SQLModel struct {
	Instance interface{}
	Priority int
}

type modelRegistry struct {
	mu     sync.RWMutex
	models []SQLModel
}

func (r *modelRegistry) register(m SQLModel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = append(r.models, m)
}

func (r *modelRegistry) sorted() []SQLModel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SQLModel, len(r.models))
	copy(out, r.models)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// RegisterModel adds a struct pointer such as (*User)(nil) to the default registry.
func RegisterModel(instance interface{}, priority int) {
	defaultRegistry.register(SQLModel{Instance: instance, Priority: priority})
}

// GetRegisteredModels returns the registered models by ascending priority.
func GetRegisteredModels() []SQLModel {
	return defaultRegistry.sorted()
}

// RegisteredModelInstances returns the model instances by ascending priority.
func RegisteredModelInstances() []interface{} {
	models := GetRegisteredModels()
	instances := make([]interface{}, len(models))
	for i, m := range models {
		instances[i] = m.Instance
	}
	return instances
}

// RegisterModels makes bun aware of every registered model.
//
// Tables are created in ascending Priority, but bun resolves an m2m
// relation when its owner is registered, so the join models (highest
// Priority) are handed to bun first.
func RegisterModels(db *bun.DB) {
	instances := RegisteredModelInstances()
	slices.Reverse(instances)
	db.RegisterModel(instances...)
}
