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
	"reflect"
	"sort"
	"sync"
)

// Model is a Bun model the migration manager creates. Lower priorities are
// created first so referenced tables exist before the tables pointing at
// them.
type Model struct {
	Instance any
	Priority int
}

// modelRegistry keeps one model per Go type.
type modelRegistry struct {
	mu     sync.RWMutex
	models map[reflect.Type]Model
	seq    map[reflect.Type]int
}

var defaultRegistry = newModelRegistry()

func newModelRegistry() *modelRegistry {
	return &modelRegistry{
		models: make(map[reflect.Type]Model),
		seq:    make(map[reflect.Type]int),
	}
}

// register replaces an earlier model of the same type and keeps its
// registration order.
func (r *modelRegistry) register(instance any, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	typ := reflect.TypeOf(instance)
	if _, ok := r.seq[typ]; !ok {
		r.seq[typ] = len(r.seq)
	}
	r.models[typ] = Model{Instance: instance, Priority: priority}
}

// sorted returns the models by priority, ties in registration order.
func (r *modelRegistry) sorted() []Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	type ranked struct {
		Model
		seq int
	}
	all := make([]ranked, 0, len(r.models))
	for typ, m := range r.models {
		all = append(all, ranked{m, r.seq[typ]})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Priority != all[j].Priority {
			return all[i].Priority < all[j].Priority
		}
		return all[i].seq < all[j].seq
	})
	out := make([]Model, len(all))
	for i, m := range all {
		out[i] = m.Model
	}
	return out
}

// RegisterModel adds a model to the set created by migrations and
// registered on every opened *bun.DB.
func RegisterModel(instance any, priority int) {
	defaultRegistry.register(instance, priority)
}

// RegisteredModels lists the registered models, lowest priority first.
func RegisteredModels() []Model {
	return defaultRegistry.sorted()
}

func RegisteredModelInstances() []any {
	models := RegisteredModels()
	out := make([]any, len(models))
	for i, m := range models {
		out[i] = m.Instance
	}
	return out
}
