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

package repository

import (
	"fmt"
	"reflect"
	"time"

	"github.com/uptrace/bun"
)

type fieldKind int

const (
	valueField fieldKind = iota
	textField
	timeField
)

// Field binds a column name to a typed accessor on T.
type Field[T any] struct {
	name      string
	kind      fieldKind
	attribute bool
	get       func(*T) any
	set       func(*T, any) error
	norm      func(any) (any, bool, error)
}

func (f Field[T]) Name() string { return f.name }

// IsAttribute reports whether the field may be assigned by updates and
// takes part in get-or-create lookups.
func (f Field[T]) IsAttribute() bool { return f.attribute }

// Column declares an attribute. string columns match by case-insensitive
// substring, time.Time columns accept _from/_to ranges, the rest match exactly.
func Column[T any, V any](name string, ref func(*T) *V) Field[T] {
	f := newField(name, ref)
	f.attribute = true
	return f
}

// Key declares the primary key.
func Key[T any](name string, ref func(*T) *int64) Field[T] {
	return newField(name, ref)
}

// Timestamp declares a server-assigned audit column.
func Timestamp[T any](name string, ref func(*T) *time.Time) Field[T] {
	return newField(name, ref)
}

func newField[T any, V any](name string, ref func(*T) *V) Field[T] {
	kind := valueField
	switch reflect.TypeFor[V]() {
	case reflect.TypeFor[string]():
		kind = textField
	case reflect.TypeFor[time.Time]():
		kind = timeField
	}
	return Field[T]{
		name: name,
		kind: kind,
		get:  func(t *T) any { return *ref(t) },
		set: func(t *T, v any) error {
			val, ok, err := normalize[V](v)
			if err != nil {
				return invalidValue(name, v)
			}
			if !ok {
				var zero V
				val = zero
			}
			*ref(t) = val
			return nil
		},
		norm: func(v any) (any, bool, error) {
			val, ok, err := normalize[V](v)
			if err != nil {
				return nil, false, invalidValue(name, v)
			}
			return val, ok, nil
		},
	}
}

// normalize converts v to V. nil and typed nil pointers report ok=false.
// Values of a named type sharing V's underlying kind are converted, so a
// plain string can filter an enum column and an int an int64 one.
func normalize[V any](v any) (V, bool, error) {
	var zero V
	if v == nil {
		return zero, false, nil
	}
	switch x := v.(type) {
	case V:
		return x, true, nil
	case *V:
		if x == nil {
			return zero, false, nil
		}
		return *x, true, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return zero, false, nil
		}
		rv = rv.Elem()
	}
	target := reflect.TypeFor[V]()
	if sameClass(rv.Kind(), target.Kind()) && rv.Type().ConvertibleTo(target) {
		return rv.Convert(target).Interface().(V), true, nil
	}
	return zero, false, ErrInvalidValue
}

func sameClass(a, b reflect.Kind) bool {
	switch {
	case a == b:
		return a != reflect.Struct && a != reflect.Interface
	case isInt(a) && isInt(b):
		return true
	}
	return false
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return true
	}
	return false
}

type relation struct {
	name  string
	apply []func(*bun.SelectQuery) *bun.SelectQuery
}

// Schema is the closed set of fields a repository may filter, sort and
// assign by name.
type Schema[T any] struct {
	fields    map[string]Field[T]
	order     []string
	relations []relation
}

// NewSchema builds a schema. Duplicate names panic.
func NewSchema[T any](fields ...Field[T]) *Schema[T] {
	s := &Schema[T]{fields: make(map[string]Field[T], len(fields))}
	for _, f := range fields {
		if _, dup := s.fields[f.name]; dup {
			panic(fmt.Sprintf("repository: duplicate field %q", f.name))
		}
		s.fields[f.name] = f
		s.order = append(s.order, f.name)
	}
	return s
}

// WithRelation loads the named bun relation on every read.
func (s *Schema[T]) WithRelation(name string, apply ...func(*bun.SelectQuery) *bun.SelectQuery) *Schema[T] {
	s.relations = append(s.relations, relation{name: name, apply: apply})
	return s
}

// Lookup returns the field registered under name.
func (s *Schema[T]) Lookup(name string) (Field[T], bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Attributes returns the attribute fields in declaration order.
func (s *Schema[T]) Attributes() []Field[T] {
	var out []Field[T]
	for _, name := range s.order {
		if f := s.fields[name]; f.attribute {
			out = append(out, f)
		}
	}
	return out
}

// Validate checks every field against T's bun table.
func (s *Schema[T]) Validate(db *bun.DB) error {
	table := db.Table(reflect.TypeFor[T]())
	for _, name := range s.order {
		if !table.HasField(name) {
			return fmt.Errorf("%w: %s has no column %q", ErrUnknownField, table.Name, name)
		}
	}
	if _, ok := s.fields[KeyColumn]; !ok {
		return fmt.Errorf("%w: %s schema lacks %q", ErrUnknownField, table.Name, KeyColumn)
	}
	for _, rel := range s.relations {
		if _, ok := table.Relations[rel.name]; !ok {
			return fmt.Errorf("%w: %s has no relation %q", ErrUnknownField, table.Name, rel.name)
		}
	}
	return nil
}

func (s *Schema[T]) applyRelations(q *bun.SelectQuery) *bun.SelectQuery {
	for _, rel := range s.relations {
		q = q.Relation(rel.name, rel.apply...)
	}
	return q
}
