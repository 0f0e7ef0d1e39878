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
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides of config keys, e.g.
// ROSTER_CONNECTION_HOST overrides connection.host.
const EnvPrefix = "ROSTER"

// LoadConfig reads a configuration file (any format viper understands) and
// applies ROSTER_* environment overrides on top of DefaultConfig. An empty
// path loads defaults and environment only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can override keys
// absent from the file.
func setDefaults(v *viper.Viper, cfg *Config) {
	c := cfg.ConnectionConfig
	defaults := map[string]interface{}{
		"connection.type":                   c.Type,
		"connection.host":                   c.Host,
		"connection.port":                   c.Port,
		"connection.username":               c.Username,
		"connection.password":               c.Password,
		"connection.dbname":                 c.DBName,
		"connection.sslmode":                c.SSLMode,
		"connection.max_idle_conns":         c.MaxIdleConns,
		"connection.max_open_conns":         c.MaxOpenConns,
		"connection.conn_max_lifetime":      c.ConnMaxLifetime,
		"connection.conn_max_idle_time":     c.ConnMaxIdleTime,
		"connection.connect_timeout":        c.ConnectTimeout,
		"connection.read_timeout":           c.ReadTimeout,
		"connection.write_timeout":          c.WriteTimeout,
		"connection.enable_reconnect":       c.EnableReconnect,
		"connection.reconnect_interval":     c.ReconnectInterval,
		"connection.max_reconnect_tries":    c.MaxReconnectTries,
		"connection.health_check_interval":  c.HealthCheckInterval,
		"connection.enable_query_log":       c.EnableQueryLog,
		"connection.slow_query_time":        c.SlowQueryTime,
		"migrate.enable_migrate_on_startup": cfg.DataMigrateConfig.EnableMigrateOnStartup,
		"migrate.verbose":                   cfg.DataMigrateConfig.Verbose,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// Validate checks the database type and the fields it requires.
func (c *Config) Validate() error {
	cc := c.ConnectionConfig
	switch normalizeType(cc.Type) {
	case "sqlite":
		if cc.DBName == "" {
			return fmt.Errorf("sqlite requires a database name")
		}
	case "mysql", "postgres":
		if cc.Host == "" || cc.DBName == "" {
			return fmt.Errorf("%s requires host and database name", cc.Type)
		}
	default:
		return fmt.Errorf("unsupported database type: %q, supported types: %v", cc.Type, SupportedTypes)
	}
	return nil
}

// SupportedTypes lists the database types a manager can connect to.
var SupportedTypes = []string{"mysql", "postgres", "sqlite"}

func normalizeType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "mysql":
		return "mysql"
	case "postgres", "postgresql":
		return "postgres"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return ""
	}
}
