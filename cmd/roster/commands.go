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
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomoncle/roster/database"
	"github.com/tomoncle/roster/entity"
	"github.com/tomoncle/roster/query"
	"github.com/tomoncle/roster/types"
)

func newMigrateCmd() *cobra.Command {
	var (
		rollback string
		status   bool
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations, roll one back or list applied ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			noMigrate := false
			if _, err := openStore(ctx, &noMigrate); err != nil {
				return err
			}
			defer func() { _ = database.CloseDB() }()

			mm := database.NewMigrationManager(database.GetDB(), database.GetLogger())
			switch {
			case rollback != "":
				return mm.RollbackMigration(ctx, rollback)
			case status:
				applied, err := mm.GetAppliedMigrations(ctx)
				if err != nil {
					return err
				}
				t := table{headers: []string{"VERSION", "NAME", "APPLIED_AT"}}
				for _, m := range applied {
					t.rows = append(t.rows, []string{m.Version, m.Name, m.AppliedAt.Format(time.RFC3339)})
				}
				return printer(cmd).print(applied, t)
			default:
				return mm.RunMigrations(ctx)
			}
		},
	}
	cmd.Flags().StringVar(&rollback, "rollback", "", "roll back the migration with this version")
	cmd.Flags().BoolVar(&status, "status", false, "list applied migrations")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check database health and connection pool usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			noMigrate := false
			if _, err := openStore(ctx, &noMigrate); err != nil {
				return err
			}
			defer func() { _ = database.CloseDB() }()

			health := database.GetHealthStatus(ctx)
			stats := database.GetDatabaseStats()
			t := table{
				headers: []string{"HEALTHY", "RESPONSE_TIME", "OPEN", "IN_USE", "IDLE", "MAX_OPEN", "LAST_ERROR"},
				rows: [][]string{{
					strconv.FormatBool(health.Healthy),
					health.ResponseTime.String(),
					strconv.Itoa(stats.OpenConns),
					strconv.Itoa(stats.InUse),
					strconv.Itoa(stats.Idle),
					strconv.Itoa(stats.MaxOpenConns),
					health.LastError,
				}},
			}
			return printer(cmd).print(struct {
				Health *database.HealthStatus `json:"health" yaml:"health"`
				Stats  *database.DBStats      `json:"stats" yaml:"stats"`
			}{health, stats}, t)
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert two teams and five members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, nil)
			if err != nil {
				return err
			}
			defer func() { _ = database.CloseDB() }()

			teamA, teamB := entity.NewTeam("teamA"), entity.NewTeam("teamB")
			for _, t := range []*entity.Team{teamA, teamB} {
				if err := store.Teams.Save(ctx, t); err != nil {
					return err
				}
			}
			members := []*entity.Member{
				entity.NewMember("member1", 10, teamA),
				entity.NewMember("member2", 19, teamA),
				entity.NewMember("member3", 20, teamB),
				entity.NewMember("member4", 22, teamB),
				entity.NewMember("member5", 40, nil),
			}
			for _, m := range members {
				if err := store.Members.Save(ctx, m); err != nil {
					return err
				}
			}
			return printer(cmd).print(members, memberTable(members))
		},
	}
}

func newMemberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Query and update members",
	}
	cmd.AddCommand(newMemberListCmd(), newMemberFindCmd(), newMemberPageCmd(), newMemberBulkAgePlusCmd(), newMemberDtoCmd())
	return cmd
}

func newMemberListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, nil)
			if err != nil {
				return err
			}
			defer func() { _ = database.CloseDB() }()

			members, err := store.Members.FindAll(ctx)
			if err != nil {
				return err
			}
			return printer(cmd).print(members, memberTable(members))
		},
	}
}

func newMemberFindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <method> [args...]",
		Short: "Run a method-name query, e.g. findByUsernameAndAgeGreaterThan AAA 15",
		Long: `Run a query derived from a method name. Supported forms:

  find|read|get|query|search|stream[First<N>|Top<N>]By<Criteria>[OrderBy<Orders>]
  countBy<Criteria>
  existsBy<Criteria>

Criteria are properties joined by And, each optionally followed by
GreaterThan, GreaterThanEqual, LessThan, LessThanEqual, Not, In or NotIn.
In and NotIn arguments are comma separated.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, nil)
			if err != nil {
				return err
			}
			defer func() { _ = database.CloseDB() }()

			res, err := store.Members.Invoke(ctx, args[0], args[1:])
			if err != nil {
				return err
			}
			switch res.Subject {
			case query.SubjectCount:
				return printer(cmd).print(map[string]int64{"count": res.Count}, valueTable("COUNT", res.Count))
			case query.SubjectExists:
				return printer(cmd).print(map[string]bool{"exists": res.Exists}, valueTable("EXISTS", res.Exists))
			default:
				return printer(cmd).print(res.Records, memberTable(res.Records))
			}
		},
	}
}

func newMemberPageCmd() *cobra.Command {
	var (
		age   int
		page  int
		size  int
		sorts []string
	)
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Show one page of the members of an age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orders := make([]types.Order, 0, len(sorts))
			for _, s := range sorts {
				o, err := types.ParseOrder(s)
				if err != nil {
					return err
				}
				orders = append(orders, o)
			}
			req, err := types.NewPageRequest(page, size, orders...)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openStore(ctx, nil)
			if err != nil {
				return err
			}
			defer func() { _ = database.CloseDB() }()

			result, err := store.Members.FindByAge(ctx, age, req)
			if err != nil {
				return err
			}
			p := printer(cmd)
			if err := p.print(result, memberTable(result.Content())); err != nil {
				return err
			}
			if p.format == formatTable {
				fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d, %d members\n", result.Number()+1, result.TotalPages(), result.TotalElements())
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&age, "age", 10, "member age")
	cmd.Flags().IntVar(&page, "page", 0, "zero-based page index")
	cmd.Flags().IntVar(&size, "size", 3, "page size")
	cmd.Flags().StringArrayVar(&sorts, "sort", []string{"username,desc"}, "sort as field[,asc|desc], repeatable")
	return cmd
}

func newMemberBulkAgePlusCmd() *cobra.Command {
	var age int
	cmd := &cobra.Command{
		Use:   "bulk-age-plus",
		Short: "Add one to the age of every member at or above an age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, nil)
			if err != nil {
				return err
			}
			defer func() { _ = database.CloseDB() }()

			n, err := store.Members.BulkAgePlus(ctx, age)
			if err != nil {
				return err
			}
			return printer(cmd).print(map[string]int64{"updated": n}, valueTable("UPDATED", n))
		},
	}
	cmd.Flags().IntVar(&age, "age", 20, "minimum age to update")
	return cmd
}

func newMemberDtoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dto",
		Short: "List members joined with their team name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, nil)
			if err != nil {
				return err
			}
			defer func() { _ = database.CloseDB() }()

			dtos, err := store.Members.FindMemberDto(ctx)
			if err != nil {
				return err
			}
			return printer(cmd).print(dtos, memberDtoTable(dtos))
		},
	}
}
