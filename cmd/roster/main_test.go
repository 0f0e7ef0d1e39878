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

package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/tomoncle/roster/entity"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("roster %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestPrinterFormats(t *testing.T) {
	members := []*entity.Member{{ID: 1, Username: "member1", Age: 10, TeamID: 2}}

	var buf bytes.Buffer
	p, err := newPrinter("table", &buf)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.print(members, memberTable(members)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "USERNAME") || !strings.Contains(buf.String(), "member1") {
		t.Errorf("table output:\n%s", buf.String())
	}

	buf.Reset()
	p, _ = newPrinter("JSON", &buf)
	_ = p.print(members, memberTable(members))
	var decoded []entity.Member
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil || decoded[0].Username != "member1" {
		t.Errorf("json output %q: %v", buf.String(), err)
	}

	buf.Reset()
	p, _ = newPrinter("yml", &buf)
	_ = p.print(members, memberTable(members))
	var fromYAML []map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &fromYAML); err != nil || fromYAML[0]["username"] != "member1" {
		t.Errorf("yaml output %q: %v", buf.String(), err)
	}

	if _, err := newPrinter("xml", &buf); err == nil {
		t.Error("expected error for xml format")
	}
}

func TestSeedAndQuery(t *testing.T) {
	t.Setenv("ROSTER_CONNECTION_DBNAME", filepath.Join(t.TempDir(), "roster.db"))
	t.Setenv("ROSTER_CONNECTION_HEALTH_CHECK_INTERVAL", "0")

	out := run(t, "seed", "-o", "table")
	if !strings.Contains(out, "member5") {
		t.Fatalf("seed output:\n%s", out)
	}

	out = run(t, "member", "find", "countByAgeGreaterThanEqual", "20", "-o", "json")
	var count map[string]int64
	if err := json.Unmarshal([]byte(out), &count); err != nil || count["count"] != 3 {
		t.Errorf("count output %q: %v", out, err)
	}

	out = run(t, "member", "bulk-age-plus", "--age", "20", "-o", "json")
	var updated map[string]int64
	if err := json.Unmarshal([]byte(out), &updated); err != nil || updated["updated"] != 3 {
		t.Errorf("bulk output %q: %v", out, err)
	}

	out = run(t, "member", "find", "findByUsername", "member5", "-o", "json")
	var found []entity.Member
	if err := json.Unmarshal([]byte(out), &found); err != nil || len(found) != 1 || found[0].Age != 41 {
		t.Errorf("find output %q: %v", out, err)
	}

	out = run(t, "member", "dto", "-o", "table")
	if strings.Contains(out, "member5") || !strings.Contains(out, "teamB") {
		t.Errorf("dto output:\n%s", out)
	}

	out = run(t, "member", "page", "--age", "10", "--size", "2", "-o", "table")
	if !strings.Contains(out, "page 1 of 1, 1 members") {
		t.Errorf("page output:\n%s", out)
	}

	out = run(t, "migrate", "--status", "-o", "yaml")
	if !strings.Contains(out, "create_base_tables") || !strings.Contains(out, "member_indexes") {
		t.Errorf("migrate status output:\n%s", out)
	}

	out = run(t, "status", "-o", "json")
	var status struct {
		Health struct {
			Healthy bool `json:"healthy"`
		} `json:"health"`
		Stats struct {
			MaxOpenConns int `json:"max_open_conns"`
		} `json:"stats"`
	}
	if err := json.Unmarshal([]byte(out), &status); err != nil || !status.Health.Healthy || status.Stats.MaxOpenConns != 1 {
		t.Errorf("status output %q: %v", out, err)
	}
}
