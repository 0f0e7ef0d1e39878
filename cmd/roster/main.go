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

// Command roster manages the member and team tables: it migrates the
// schema, seeds sample data and runs member queries against the database
// named by the configuration file and ROSTER_* environment variables.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tomoncle/roster"
	"github.com/tomoncle/roster/database"
	"github.com/tomoncle/roster/utils"
)

type globalOptions struct {
	configPath string
	envFile    string
	output     string
	logLevel   string
	logFormat  string
	logDir     string
}

var opts globalOptions

var rootCmd = &cobra.Command{
	Use:           "roster",
	Short:         "Member and team repository tool",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(opts.envFile); err != nil {
			return err
		}
		utils.ConfigureConsoleLogFormat(opts.logFormat)
		if opts.logDir != "" {
			utils.ConfigureFileLog(opts.logDir, opts.logFormat)
		}
		database.InitLogger(database.NewDefaultLogger(utils.NewLogger(database.LoggerName)))
		if opts.logLevel != "" {
			utils.SetAllLoggersLevel(opts.logLevel)
		}
		if _, err := newPrinter(opts.output, cmd.OutOrStdout()); err != nil {
			return err
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "configuration file (yaml, json or toml)")
	pf.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the configuration, ignored when missing")
	pf.StringVarP(&opts.output, "output", "o", "table", "output format: table, json or yaml")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level of every logger (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", utils.EnvDefaultString("CONSOLE_LOG_FORMAT", "text"), "log format: text or json")
	pf.StringVar(&opts.logDir, "log-dir", "", "also write daily log files into this directory")

	rootCmd.AddCommand(newMigrateCmd(), newSeedCmd(), newStatusCmd(), newMemberCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// openStore connects the global database and returns a SQL store over it.
// migrate overrides the configured migrate-on-startup flag when not nil.
func openStore(ctx context.Context, migrate *bool) (*roster.Store, error) {
	cfg, err := database.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if migrate != nil {
		cfg.DataMigrateConfig.EnableMigrateOnStartup = *migrate
	}
	db, err := database.InitDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return roster.NewSQL(db), nil
}

func printer(cmd *cobra.Command) *outputPrinter {
	p, _ := newPrinter(opts.output, cmd.OutOrStdout())
	return p
}
