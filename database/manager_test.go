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
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/uptrace/bun"
)

type widget struct {
	bun.BaseModel `bun:"table:widget"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull"`
}

func init() {
	RegisterModel(NewModelAdapter((*widget)(nil), 1))
	RegisterMigration(MigrationItem{
		Version: "900",
		Name:    "widget_name_index",
		Up: func(ctx context.Context, db bun.IDB) error {
			_, err := db.NewCreateIndex().Model((*widget)(nil)).Index("idx_widget_name").Column("name").Exec(ctx)
			return err
		},
		Down: func(ctx context.Context, db bun.IDB) error {
			_, err := db.NewDropIndex().Index("idx_widget_name").IfExists().Exec(ctx)
			return err
		},
	})
}

func memoryConfig() *ConnectionConfig {
	cfg := DefaultConnectionConfig()
	cfg.DBName = ":memory:"
	cfg.HealthCheckInterval = 0
	return cfg
}

func connect(t *testing.T) AbstractDatabaseManager {
	t.Helper()
	dm := NewDatabaseManager(memoryConfig())
	if err := dm.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = dm.Disconnect() })
	return dm
}

func TestDSN(t *testing.T) {
	c := &ConnectionConfig{Host: "db", Port: 3306, Username: "u", Password: "p", DBName: "roster", ConnectTimeout: 5 * time.Second}
	mysqlDSN := MySQLDSN(c)
	for _, part := range []string{"u:p@tcp(db:3306)/roster", "clientFoundRows=true", "parseTime=true", "charset=utf8mb4"} {
		if !strings.Contains(mysqlDSN, part) {
			t.Errorf("mysql dsn %q lacks %q", mysqlDSN, part)
		}
	}

	c.Port = 5432
	if got, want := PostgresDSN(c), "postgres://u:p@db:5432/roster?sslmode=disable&connect_timeout=5"; got != want {
		t.Errorf("postgres dsn = %q, want %q", got, want)
	}

	for name, want := range map[string]string{
		"roster":             "roster.db",
		"data/roster.db":     "data/roster.db",
		":memory:":           ":memory:",
		"file:x?mode=memory": "file:x?mode=memory",
	} {
		if got := SQLiteDSN(&ConnectionConfig{DBName: name}); got != want {
			t.Errorf("SQLiteDSN(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestManagerHealthAndStats(t *testing.T) {
	dm := connect(t)
	status := dm.HealthCheck(context.Background())
	if !status.Healthy || !status.Connected || status.LastError != "" {
		t.Errorf("health: %+v", status)
	}
	if stats := dm.GetStats(); stats.MaxOpenConns != 1 {
		t.Errorf("sqlite pool should be limited to one connection, got %d", stats.MaxOpenConns)
	}

	if err := dm.Disconnect(); err != nil {
		t.Fatal(err)
	}
	if status := dm.HealthCheck(context.Background()); status.Healthy {
		t.Errorf("health after disconnect: %+v", status)
	}
}

func TestConnectUnsupportedType(t *testing.T) {
	cfg := memoryConfig()
	cfg.Type = "oracle"
	if err := NewDatabaseManager(cfg).Connect(context.Background()); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestMigrations(t *testing.T) {
	dm := connect(t)
	ctx := context.Background()
	mm := NewMigrationManager(dm.GetDB(), nil)

	for i := 0; i < 2; i++ {
		if err := mm.RunMigrations(ctx); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	applied, err := mm.GetAppliedMigrations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 2 || applied[0].Version != BaseTablesVersion || applied[1].Version != "900" {
		t.Fatalf("applied: %+v", applied)
	}
	if _, err := dm.GetDB().NewInsert().Model(&widget{Name: "w"}).Exec(ctx); err != nil {
		t.Errorf("base table not created: %v", err)
	}

	if err := mm.RollbackMigration(ctx, "900"); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if err := mm.RollbackMigration(ctx, "900"); err == nil {
		t.Error("second rollback should fail")
	}
	if err := mm.RollbackMigration(ctx, "123"); err == nil {
		t.Error("unknown version should fail")
	}
	applied, _ = mm.GetAppliedMigrations(ctx)
	if len(applied) != 1 {
		t.Errorf("applied after rollback: %+v", applied)
	}
}

func TestQueryHook(t *testing.T) {
	dm := connect(t)
	ctx := context.Background()
	var buf bytes.Buffer
	dm.GetDB().AddQueryHook(NewQueryHook(WithWriter(&buf)))

	if _, err := dm.GetDB().NewRaw("SELECT 1").Exec(ctx); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("successful query logged without verbose: %q", buf.String())
	}
	_, _ = dm.GetDB().NewRaw("SELECT * FROM missing_table").Exec(ctx)
	if !strings.Contains(buf.String(), "missing_table") {
		t.Errorf("failed query not logged: %q", buf.String())
	}

	buf.Reset()
	SetQueryLogSilent(true)
	_, _ = dm.GetDB().NewRaw("SELECT * FROM missing_table").Exec(ctx)
	SetQueryLogSilent(false)
	if buf.Len() != 0 {
		t.Errorf("silenced hook wrote %q", buf.String())
	}
}
