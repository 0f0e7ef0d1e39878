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
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

func TestClassifySQLError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want SQLError
		ok   bool
	}{
		{"nil", nil, UnknownErr, false},
		{"no rows", sql.ErrNoRows, NoRowsErr, true},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1' for key 'PRIMARY'"}, DuplicateKeyErr, true},
		{"mysql missing table", &mysql.MySQLError{Number: 1146}, NoTableErr, true},
		{"mysql unmapped", &mysql.MySQLError{Number: 9999}, UnknownErr, true},
		{"pq duplicate", &pq.Error{Code: "23505"}, DuplicateKeyErr, true},
		{"pq not null", &pq.Error{Code: "23502"}, NotNullViolationErr, true},
		{"sqlite unique", errors.New("constraint failed: UNIQUE constraint failed: member.id (1555)"), DuplicateKeyErr, true},
		{"sqlite missing column", errors.New("SQL logic error: no such column: nickname (1)"), NoColumnErr, true},
		{"wrapped", fmt.Errorf("insert member: %w", &pq.Error{Code: "23505"}), DuplicateKeyErr, true},
		{"table exists", errors.New(`relation "member" already exists`), ExistTableErr, true},
		{"other", errors.New("connection reset by peer"), UnknownErr, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ClassifySQLError(tc.err)
			if got != tc.want || ok != tc.ok {
				t.Errorf("ClassifySQLError = %v, %v; want %v, %v", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestIsDuplicateKey(t *testing.T) {
	if !IsDuplicateKey(&mysql.MySQLError{Number: 1062}) {
		t.Error("mysql 1062 should be a duplicate key")
	}
	if IsDuplicateKey(sql.ErrNoRows) {
		t.Error("no rows is not a duplicate key")
	}
	if DuplicateKeyErr.String() == UnknownErr.String() {
		t.Error("error kinds should have distinct names")
	}
}
