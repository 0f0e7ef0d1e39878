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
	"strings"

	"github.com/uptrace/bun"

	"github.com/tomoncle/roster/types"
)

// Expr is a bun query fragment with its placeholder arguments.
type Expr struct {
	Query string
	Args  []interface{}
}

func column(alias, name string) bun.Ident {
	if alias == "" {
		return bun.Ident(name)
	}
	return bun.Ident(alias + "." + name)
}

// WhereSQL renders p as a WHERE fragment. Columns are qualified with alias
// when it is not empty. The fragment is validated exactly like Compile.
func WhereSQL[T any](schema *Schema[T], p Predicate, alias string) (Expr, error) {
	if !p.op.IsValid() {
		return Expr{}, &UnresolvableQueryError{Table: schema.Table(), Reason: fmt.Sprintf("unsupported operator %d", int(p.op))}
	}
	if p.op == OpAnd {
		if len(p.children) == 0 {
			return Expr{Query: "1 = 1"}, nil
		}
		parts := make([]string, 0, len(p.children))
		var args []interface{}
		for _, c := range p.children {
			e, err := WhereSQL(schema, c, alias)
			if err != nil {
				return Expr{}, err
			}
			parts = append(parts, "("+e.Query+")")
			args = append(args, e.Args...)
		}
		return Expr{Query: strings.Join(parts, " AND "), Args: args}, nil
	}

	f, err := resolveOperands(schema, p)
	if err != nil {
		return Expr{}, err
	}
	col := column(alias, f.Column())
	if p.op.isSet() {
		if len(p.values) == 0 {
			if p.op == OpIn {
				return Expr{Query: "1 = 0"}, nil
			}
			return Expr{Query: "1 = 1"}, nil
		}
		vs := make([]interface{}, len(p.values))
		for i, v := range p.values {
			vs[i] = v.Any()
		}
		return Expr{Query: "? " + p.op.Desc() + " (?)", Args: []interface{}{col, bun.In(vs)}}, nil
	}
	return Expr{Query: "? " + p.op.Desc() + " ?", Args: []interface{}{col, p.values[0].Any()}}, nil
}

// OrderSQL renders sort directives as ORDER BY expressions.
func OrderSQL[T any](schema *Schema[T], sort types.Sort, alias string) ([]Expr, error) {
	out := make([]Expr, 0, len(sort))
	for _, o := range sort {
		f, err := schema.Field(o.Field)
		if err != nil {
			return nil, err
		}
		if !o.Direction.IsValid() {
			return nil, &UnresolvableQueryError{Table: schema.Table(), Field: o.Field, Reason: fmt.Sprintf("invalid sort direction %d", int(o.Direction))}
		}
		out = append(out, Expr{Query: "? " + o.Direction.Name(), Args: []interface{}{column(alias, f.Column())}})
	}
	return out, nil
}

// SetSQL renders mutations as SET expressions after validating them.
func SetSQL[T any](schema *Schema[T], ms ...Mutation) ([]Expr, error) {
	if len(ms) == 0 {
		return nil, &InvalidMutationError{Table: schema.Table(), Reason: "no update expressions"}
	}
	fields, err := resolveMutations(schema, ms)
	if err != nil {
		return nil, err
	}
	out := make([]Expr, len(ms))
	for i, m := range ms {
		col := bun.Ident(fields[i].Column())
		if m.kind == MutationIncrement {
			out[i] = Expr{Query: "? = ? + ?", Args: []interface{}{col, col, m.value.AsInt()}}
			continue
		}
		out[i] = Expr{Query: "? = ?", Args: []interface{}{col, m.value.Any()}}
	}
	return out, nil
}
