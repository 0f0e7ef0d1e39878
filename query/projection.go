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

import "github.com/tomoncle/roster/types"

// Pluck projects one field of every record.
func Pluck[T any](schema *Schema[T], records []*T, field string) ([]Value, error) {
	f, err := schema.Field(field)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(records))
	for i, rec := range records {
		out[i] = f.Get(rec)
	}
	return out, nil
}

// PluckStrings is Pluck for string fields.
func PluckStrings[T any](schema *Schema[T], records []*T, field string) ([]string, error) {
	f, err := schema.Field(field)
	if err != nil {
		return nil, err
	}
	if f.Kind() != KindString {
		return nil, &UnresolvableQueryError{Table: schema.Table(), Field: field, Reason: "not a string field"}
	}
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = f.Get(rec).AsString()
	}
	return out, nil
}

// Project maps every record to an object holding only the named fields.
// With no fields every schema field is included.
func Project[T any](schema *Schema[T], records []*T, fields ...string) ([]types.JsonObject, error) {
	var selected []Field[T]
	if len(fields) == 0 {
		selected = schema.Fields()
	} else {
		selected = make([]Field[T], 0, len(fields))
		for _, name := range fields {
			f, err := schema.Field(name)
			if err != nil {
				return nil, err
			}
			selected = append(selected, f)
		}
	}
	out := make([]types.JsonObject, len(records))
	for i, rec := range records {
		obj := make(types.JsonObject, len(selected))
		for _, f := range selected {
			obj[f.Name()] = f.Get(rec).Any()
		}
		out[i] = obj
	}
	return out, nil
}
