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

// Package metrics exposes Prometheus counters for store operations, bulk
// updates, SQL queries and session cache lookups.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/uptrace/bun"
)

var (
	// OperationsTotal counts record store operations by backend, operation and status.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roster_store_operations_total",
			Help: "Total number of record store operations",
		},
		[]string{"backend", "operation", "status"},
	)
	// OperationDuration is the latency of record store operations.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roster_store_operation_duration_seconds",
			Help:    "Record store operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)
	// BulkRowsAffected counts records changed by bulk updates.
	BulkRowsAffected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roster_bulk_rows_affected_total",
			Help: "Total number of records changed by bulk updates",
		},
		[]string{"backend", "table"},
	)
	// QueriesTotal counts SQL statements by operation and status.
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roster_sql_queries_total",
			Help: "Total number of SQL statements executed",
		},
		[]string{"operation", "status"},
	)
	// SessionLookups counts session identity map lookups by result.
	SessionLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roster_session_lookups_total",
			Help: "Total number of session identity map lookups",
		},
		[]string{"table", "result"},
	)
)

// Status labels an outcome.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveOperation records one store operation started at start.
func ObserveOperation(backend, operation string, start time.Time, err error) {
	OperationsTotal.WithLabelValues(backend, operation, Status(err)).Inc()
	OperationDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
}

// ObserveBulk records the outcome of one bulk update.
func ObserveBulk(backend, table string, affected int64) {
	if affected > 0 {
		BulkRowsAffected.WithLabelValues(backend, table).Add(float64(affected))
	}
}

// ObserveLookup records a session cache hit or miss.
func ObserveLookup(table string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	SessionLookups.WithLabelValues(table, result).Inc()
}

// QueryHook counts every statement Bun executes.
type QueryHook struct{}

var _ bun.QueryHook = (*QueryHook)(nil)

func (h *QueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	QueriesTotal.WithLabelValues(event.Operation(), Status(event.Err)).Inc()
}
