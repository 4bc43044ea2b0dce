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

package query

import "sort"

// Schema lists the columns and relations a descriptor may reference for one
// record type.
type Schema struct {
	table     string
	pk        string
	fields    map[string]struct{}
	relations map[string]struct{}
}

// NewSchema describes a table by its primary key column, its queryable
// columns and the names of the relations that can be fetched with a join.
// The primary key is always queryable.
func NewSchema(table string, pk string, fields []string, relations ...string) Schema {
	s := Schema{
		table:     table,
		pk:        pk,
		fields:    make(map[string]struct{}, len(fields)+1),
		relations: make(map[string]struct{}, len(relations)),
	}
	s.fields[pk] = struct{}{}
	for _, f := range fields {
		s.fields[f] = struct{}{}
	}
	for _, r := range relations {
		s.relations[r] = struct{}{}
	}
	return s
}

func (s Schema) Table() string { return s.table }

func (s Schema) PrimaryKey() string { return s.pk }

func (s Schema) HasField(name string) bool {
	_, ok := s.fields[name]
	return ok
}

func (s Schema) HasRelation(name string) bool {
	_, ok := s.relations[name]
	return ok
}

// Fields returns the queryable columns in lexical order.
func (s Schema) Fields() []string {
	out := make([]string, 0, len(s.fields))
	for f := range s.fields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
