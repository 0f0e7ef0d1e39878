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
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/tomoncle/roster/entity"
)

type outputFormat string

const (
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
)

type outputPrinter struct {
	format outputFormat
	w      io.Writer
}

func newPrinter(format string, w io.Writer) (*outputPrinter, error) {
	switch f := outputFormat(strings.ToLower(format)); f {
	case formatTable, formatJSON, formatYAML:
		return &outputPrinter{format: f, w: w}, nil
	case "yml":
		return &outputPrinter{format: formatYAML, w: w}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q, use table, json or yaml", format)
	}
}

// table is the tabular rendering of a result; data is what json and yaml encode.
type table struct {
	headers []string
	rows    [][]string
}

func (p *outputPrinter) print(data interface{}, t table) error {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case formatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(t.headers, "\t"))
		for _, row := range t.rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		return tw.Flush()
	}
}

func memberTable(members []*entity.Member) table {
	t := table{headers: []string{"ID", "USERNAME", "AGE", "TEAM_ID"}}
	for _, m := range members {
		t.rows = append(t.rows, []string{
			strconv.FormatInt(m.ID, 10),
			m.Username,
			strconv.Itoa(m.Age),
			strconv.FormatInt(m.TeamID, 10),
		})
	}
	return t
}

func memberDtoTable(dtos []*entity.MemberDto) table {
	t := table{headers: []string{"ID", "USERNAME", "TEAM_NAME"}}
	for _, d := range dtos {
		t.rows = append(t.rows, []string{strconv.FormatInt(d.ID, 10), d.Username, d.TeamName})
	}
	return t
}

func valueTable(header string, value interface{}) table {
	return table{headers: []string{header}, rows: [][]string{{fmt.Sprint(value)}}}
}
