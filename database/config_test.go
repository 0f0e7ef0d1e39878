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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultConfig()
	if cfg.ConnectionConfig.Type != "sqlite" || cfg.ConnectionConfig.DBName != want.ConnectionConfig.DBName {
		t.Errorf("connection: %+v", cfg.ConnectionConfig)
	}
	if cfg.ConnectionConfig.ConnectTimeout != want.ConnectionConfig.ConnectTimeout {
		t.Errorf("connect timeout = %v", cfg.ConnectionConfig.ConnectTimeout)
	}
	if !cfg.DataMigrateConfig.EnableMigrateOnStartup {
		t.Error("migrate on startup should default to true")
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := writeFile(t, "roster.yaml", `
connection:
  type: postgres
  host: db.internal
  port: 5432
  username: roster
  dbname: members
  slow_query_time: 500ms
migrate:
  enable_migrate_on_startup: false
`)
	t.Setenv("ROSTER_CONNECTION_HOST", "override.internal")
	t.Setenv("ROSTER_MIGRATE_VERBOSE", "true")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	cc := cfg.ConnectionConfig
	if cc.Type != "postgres" || cc.Port != 5432 || cc.DBName != "members" {
		t.Errorf("file values: %+v", cc)
	}
	if cc.Host != "override.internal" {
		t.Errorf("host = %q, want env override", cc.Host)
	}
	if cc.SlowQueryTime != 500*time.Millisecond {
		t.Errorf("slow query time = %v", cc.SlowQueryTime)
	}
	if cc.MaxOpenConns != DefaultConnectionConfig().MaxOpenConns {
		t.Errorf("unset key lost its default: %d", cc.MaxOpenConns)
	}
	if cfg.DataMigrateConfig.EnableMigrateOnStartup || !cfg.DataMigrateConfig.Verbose {
		t.Errorf("migrate config: %+v", cfg.DataMigrateConfig)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	cases := map[string]string{
		"unsupported type":   "connection:\n  type: oracle\n",
		"mysql without host": "connection:\n  type: mysql\n  dbname: x\n",
	}
	for name, content := range cases {
		path := writeFile(t, "bad.yaml", content)
		if _, err := LoadConfig(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := LoadConfig(writeFile(t, "broken.yaml", "connection: [")); err == nil || !strings.Contains(err.Error(), "failed to read config") {
		t.Errorf("broken yaml: %v", err)
	}
}

func TestNormalizeType(t *testing.T) {
	for in, want := range map[string]string{
		"MySQL":      "mysql",
		"postgresql": "postgres",
		" sqlite3 ":  "sqlite",
		"mongo":      "",
	} {
		if got := normalizeType(in); got != want {
			t.Errorf("normalizeType(%q) = %q, want %q", in, got, want)
		}
	}
}
