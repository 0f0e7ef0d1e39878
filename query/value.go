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
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value and the type of a schema field.
type Kind int

const (
	KindInvalid Kind = iota
	KindInt
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Value is a field value: an integer or a string. Anything else is carried
// as KindInvalid so that resolution can report it.
type Value struct {
	kind Kind
	i    int64
	s    string
	raw  interface{}
}

// Int returns an integer value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// ValueOf converts a Go value into a Value.
func ValueOf(v interface{}) Value {
	switch x := v.(type) {
	case Value:
		return x
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case string:
		return String(x)
	default:
		return Value{kind: KindInvalid, raw: v}
	}
}

// ParseValue converts text into a value of kind k.
func ParseValue(k Kind, text string) (Value, error) {
	switch k {
	case KindInt:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse %q as int: %w", text, err)
		}
		return Int(n), nil
	case KindString:
		return String(text), nil
	default:
		return Value{}, fmt.Errorf("cannot parse into %s value", k)
	}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsInt() int64 { return v.i }

func (v Value) AsString() string { return v.s }

// Any returns the underlying Go value: int64 or string.
func (v Value) Any() interface{} {
	switch v.kind {
	case KindInt:
		return v.i
	case KindString:
		return v.s
	default:
		return v.raw
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindString:
		return strconv.Quote(v.s)
	default:
		return fmt.Sprintf("<invalid %T>", v.raw)
	}
}

// Compare orders two values of the same kind. Values of different kinds
// order by kind.
func (v Value) Compare(o Value) int {
	if v.kind != o.kind {
		if v.kind < o.kind {
			return -1
		}
		return 1
	}
	switch v.kind {
	case KindInt:
		switch {
		case v.i < o.i:
			return -1
		case v.i > o.i:
			return 1
		}
		return 0
	case KindString:
		return strings.Compare(v.s, o.s)
	default:
		return 0
	}
}

func (v Value) Equal(o Value) bool { return v.kind == o.kind && v.Compare(o) == 0 }
