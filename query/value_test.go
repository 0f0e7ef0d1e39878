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
	"testing"

	"github.com/tomoncle/roster/types"
)

func TestValueOf(t *testing.T) {
	cases := []struct {
		in   interface{}
		kind Kind
	}{
		{7, KindInt},
		{int32(7), KindInt},
		{uint8(7), KindInt},
		{"x", KindString},
		{String("x"), KindString},
		{3.5, KindInvalid},
		{nil, KindInvalid},
		{uint64(1), KindInvalid},
	}
	for _, c := range cases {
		if got := ValueOf(c.in).Kind(); got != c.kind {
			t.Errorf("ValueOf(%#v).Kind() = %s, want %s", c.in, got, c.kind)
		}
	}
	if ValueOf(int16(-4)).AsInt() != -4 {
		t.Error("int16 conversion")
	}
}

func TestParseValue(t *testing.T) {
	if v, err := ParseValue(KindInt, " 42 "); err != nil || !v.Equal(Int(42)) {
		t.Errorf("int: %v, %v", v, err)
	}
	if _, err := ParseValue(KindInt, "forty"); err == nil {
		t.Error("expected parse error")
	}
	if v, err := ParseValue(KindString, " a b "); err != nil || v.AsString() != " a b " {
		t.Errorf("string: %v, %v", v, err)
	}
	if _, err := ParseValue(KindInvalid, "x"); err == nil {
		t.Error("expected error for invalid kind")
	}
}

func TestValueCompare(t *testing.T) {
	if Int(1).Compare(Int(2)) != -1 || Int(2).Compare(Int(1)) != 1 || Int(3).Compare(Int(3)) != 0 {
		t.Error("int ordering")
	}
	if String("a").Compare(String("b")) != -1 {
		t.Error("string ordering")
	}
	if Int(9).Compare(String("0")) != -1 {
		t.Error("ints order before strings")
	}
	if Int(1).Equal(String("1")) {
		t.Error("values of different kinds are never equal")
	}
	if got := String("x").String(); got != `"x"` {
		t.Errorf("String() = %s", got)
	}
}

func TestOrderSQL(t *testing.T) {
	exprs, err := OrderSQL(personSchema, types.By(types.Desc("age"), types.Asc("name")), "p")
	if err != nil {
		t.Fatal(err)
	}
	if len(exprs) != 2 || exprs[0].Query != "? DESC" || exprs[1].Query != "? ASC" {
		t.Fatalf("exprs %+v", exprs)
	}
	if _, err := OrderSQL(personSchema, types.By(types.Asc("missing")), ""); !IsUnresolvableQuery(err) {
		t.Errorf("unknown sort field: %v", err)
	}
}
