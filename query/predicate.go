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

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/uptrace/bun"
)

// Operator represents a comparison operation in filters.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpGt       Operator = "gt"
	OpGe       Operator = "ge"
	OpLt       Operator = "lt"
	OpLe       Operator = "le"
	OpIn       Operator = "in"
	OpNotIn    Operator = "not_in"
	OpBetween  Operator = "between"
	OpLike     Operator = "like"
	OpPrefix   Operator = "prefix"   // string starts with
	OpContains Operator = "contains" // string contains
	OpIsNull   Operator = "isnull"
	OpNotNull  Operator = "notnull"
)

var comparisons = map[Operator]string{
	OpEq: "=",
	OpNe: "<>",
	OpGt: ">",
	OpGe: ">=",
	OpLt: "<",
	OpLe: "<=",
}

// Node is an element of a predicate tree: a Condition leaf or an And/Or
// branch.
type Node interface {
	validate(s Schema) error
	compile(qualified bool) (string, []any)
}

// Condition is a leaf comparing one field with a value.
// Value is a slice for OpIn/OpNotIn and a [2]any for OpBetween.
type Condition struct {
	Field string
	Op    Operator
	Value any
}

// And matches when every child matches. An empty And matches everything.
type And []Node

// Or matches when any child matches. An empty Or matches nothing.
type Or []Node

func Eq(field string, value any) Condition { return Condition{Field: field, Op: OpEq, Value: value} }

func Ne(field string, value any) Condition { return Condition{Field: field, Op: OpNe, Value: value} }

func Gt(field string, value any) Condition { return Condition{Field: field, Op: OpGt, Value: value} }

func Ge(field string, value any) Condition { return Condition{Field: field, Op: OpGe, Value: value} }

func Lt(field string, value any) Condition { return Condition{Field: field, Op: OpLt, Value: value} }

func Le(field string, value any) Condition { return Condition{Field: field, Op: OpLe, Value: value} }

func In(field string, values ...any) Condition {
	return Condition{Field: field, Op: OpIn, Value: values}
}

func NotIn(field string, values ...any) Condition {
	return Condition{Field: field, Op: OpNotIn, Value: values}
}

func Between(field string, from, to any) Condition {
	return Condition{Field: field, Op: OpBetween, Value: [2]any{from, to}}
}

// Like matches pattern as given; % and _ keep their wildcard meaning.
func Like(field string, pattern string) Condition {
	return Condition{Field: field, Op: OpLike, Value: pattern}
}

// Prefix and Contains match their argument literally.
func Prefix(field string, prefix string) Condition {
	return Condition{Field: field, Op: OpPrefix, Value: prefix}
}

func Contains(field string, value string) Condition {
	return Condition{Field: field, Op: OpContains, Value: value}
}

func IsNull(field string) Condition { return Condition{Field: field, Op: OpIsNull} }

func NotNull(field string) Condition { return Condition{Field: field, Op: OpNotNull} }

// AllOf joins nodes with AND.
func AllOf(nodes ...Node) And { return And(nodes) }

// AnyOf joins nodes with OR.
func AnyOf(nodes ...Node) Or { return Or(nodes) }

func (c Condition) validate(s Schema) error {
	if !s.HasField(c.Field) {
		return fmt.Errorf("unknown field %q on %s, fields: %v", c.Field, s.Table(), s.Fields())
	}
	switch c.Op {
	case OpEq, OpNe, OpGt, OpGe, OpLt, OpLe:
		if c.Value == nil {
			return fmt.Errorf("operator %s on %q needs a value, use isnull/notnull for NULL", c.Op, c.Field)
		}
	case OpIn, OpNotIn:
		if _, ok := c.Value.([]any); !ok {
			v := reflect.ValueOf(c.Value)
			if v.Kind() != reflect.Slice {
				return fmt.Errorf("operator %s on %q needs a slice value", c.Op, c.Field)
			}
		}
	case OpBetween:
		if _, ok := c.Value.([2]any); !ok {
			return fmt.Errorf("operator between on %q needs a [2]any value", c.Field)
		}
	case OpLike, OpPrefix, OpContains:
		if _, ok := c.Value.(string); !ok {
			return fmt.Errorf("operator %s on %q needs a string value", c.Op, c.Field)
		}
	case OpIsNull, OpNotNull:
	default:
		return fmt.Errorf("unknown operator %q", c.Op)
	}
	return nil
}

func (c Condition) compile(qualified bool) (string, []any) {
	col := "?"
	if qualified {
		col = "?TableAlias.?"
	}
	ident := bun.Ident(c.Field)

	if sym, ok := comparisons[c.Op]; ok {
		return col + " " + sym + " ?", []any{ident, c.Value}
	}
	switch c.Op {
	case OpIn, OpNotIn:
		values := toSlice(c.Value)
		if len(values) == 0 {
			if c.Op == OpIn {
				return "1 = 0", nil
			}
			return "1 = 1", nil
		}
		kw := " IN (?)"
		if c.Op == OpNotIn {
			kw = " NOT IN (?)"
		}
		return col + kw, []any{ident, bun.In(values)}
	case OpBetween:
		r := c.Value.([2]any)
		return col + " BETWEEN ? AND ?", []any{ident, r[0], r[1]}
	case OpLike:
		return col + " LIKE ?", []any{ident, c.Value}
	case OpPrefix:
		return col + " LIKE ? ESCAPE '!'", []any{ident, escapeLike(c.Value) + "%"}
	case OpContains:
		return col + " LIKE ? ESCAPE '!'", []any{ident, "%" + escapeLike(c.Value) + "%"}
	case OpIsNull:
		return col + " IS NULL", []any{ident}
	case OpNotNull:
		return col + " IS NOT NULL", []any{ident}
	}
	return "", nil
}

// likeEscaper quotes the wildcards of a literal LIKE operand. '!' needs no
// quoting in any supported dialect, unlike a backslash.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(v any) string {
	return likeEscaper.Replace(fmt.Sprint(v))
}

func (a And) validate(s Schema) error { return validateAll(s, a) }

func (a And) compile(qualified bool) (string, []any) {
	if len(a) == 0 {
		return "1 = 1", nil
	}
	return compileGroup([]Node(a), " AND ", qualified)
}

func (o Or) validate(s Schema) error { return validateAll(s, o) }

func (o Or) compile(qualified bool) (string, []any) {
	if len(o) == 0 {
		return "1 = 0", nil
	}
	return compileGroup([]Node(o), " OR ", qualified)
}

func validateAll(s Schema, nodes []Node) error {
	for _, n := range nodes {
		if n == nil {
			return fmt.Errorf("nil predicate node")
		}
		if err := n.validate(s); err != nil {
			return err
		}
	}
	return nil
}

func compileGroup(nodes []Node, sep string, qualified bool) (string, []any) {
	parts := make([]string, 0, len(nodes))
	var args []any
	for _, n := range nodes {
		expr, a := n.compile(qualified)
		parts = append(parts, expr)
		args = append(args, a...)
	}
	return "(" + strings.Join(parts, sep) + ")", args
}

func toSlice(v any) []any {
	if vals, ok := v.([]any); ok {
		return vals
	}
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// Validate checks a predicate tree against a schema.
func Validate(s Schema, n Node) error {
	if n == nil {
		return nil
	}
	if err := n.validate(s); err != nil {
		return fmt.Errorf("%w: %v", errInvalid, err)
	}
	return nil
}

// Filter compiles a predicate into a Bun expression with its arguments.
// Qualified expressions prefix columns with ?TableAlias and are meant for
// select queries that may join relations; update and delete statements use
// bare column names.
func Filter(n Node, qualified bool) (string, []any) {
	if n == nil {
		return "", nil
	}
	return n.compile(qualified)
}
