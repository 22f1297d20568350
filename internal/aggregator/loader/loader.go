// Package loader implements spec.md §4.9: writing a DailySummary frame into
// a relational table in a single transaction, preferring wire-level bulk
// copy over row-by-row inserts.
//
// The bulk-copy path is jackc/pgx/v5's CopyFrom, which speaks Postgres's
// native COPY protocol directly over the wire rather than building one
// INSERT per row.
package loader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/errs"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/model"
	"github.com/jordigilh/ocp-usage-aggregator/internal/metrics"
)

// columns is the bulk-load column order; rowValues must produce values in
// this exact order.
var columns = []string{
	"usage_start", "namespace", "node", "pod_labels",
	"cpu_usage_core_hours", "cpu_request_core_hours", "cpu_limit_core_hours",
	"mem_usage_gb_hours", "mem_request_gb_hours", "mem_limit_gb_hours",
	"cpu_effective_usage_core_hours", "mem_effective_usage_gb_hours",
	"node_capacity_cpu_core_hours", "node_capacity_mem_gb_hours",
	"cluster_capacity_cpu_core_hours", "cluster_capacity_mem_gb_hours",
	"resource_id", "cost_category_id",
	"source_uuid", "source", "year", "month", "day",
}

// execCopier is the minimal subset of pgx.Tx the load path needs. Accepting
// this narrow interface instead of pgx.Tx directly keeps the retry/fallback
// logic testable against a fake without standing up a real connection.
type execCopier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Loader bulk-loads DailySummary frames into Postgres.
type Loader struct {
	pool    *pgxpool.Pool
	schema  string
	backoff []time.Duration
}

// New wraps an already-connected pool. schema qualifies every table this
// Loader touches, including the metadata tables FetchEnabledKeys and
// FetchCostCategoryPatterns read from — not just the bulk-load target
// Load's caller passes in directly. backoff, if nil, defaults to
// 100ms/500ms/2s between retry attempts.
func New(pool *pgxpool.Pool, schema string, backoff []time.Duration) *Loader {
	if backoff == nil {
		backoff = []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 2 * time.Second}
	}
	return &Loader{pool: pool, schema: schema, backoff: backoff}
}

// qualify prefixes table with the Loader's schema, matching the
// convention cmd/aggregator/main.go already uses for the bulk-load table.
func (l *Loader) qualify(table string) string {
	if l.schema == "" {
		return table
	}
	return l.schema + "." + table
}

// Connect opens a pgx connection pool from a DatabaseConfig.
func Connect(ctx context.Context, cfg model.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?connect_timeout=%d",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DB,
		int(cfg.ConnectTimeout.Seconds()),
	)
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, errs.DatabaseUnavailable(err, "connecting to %s:%d/%s", cfg.Host, cfg.Port, cfg.DB)
	}
	return pool, nil
}

// Load writes rows into table, optionally truncating first. Per spec.md
// §7 the truncate's transaction boundary depends on useBulkCopy: when
// bulk-copy is used, the truncate shares the load transaction, so a
// fallback-exhausted failure rolls both back together; when it is false,
// the truncate runs in its own transaction that commits before the load
// transaction opens, so a failure partway through the chunked inserts
// leaves the table truncated-and-empty rather than rolling the truncate
// back too.
func (l *Loader) Load(ctx context.Context, table string, rows []model.DailySummary, truncate bool, batchSize int, useBulkCopy bool) error {
	if truncate && !useBulkCopy {
		if err := l.truncateStandalone(ctx, table); err != nil {
			return err
		}
		truncate = false
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return errs.DatabaseUnavailable(err, "beginning load transaction for %s", table)
	}
	defer tx.Rollback(ctx)

	if truncate {
		if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s", table)); err != nil {
			return errs.BulkLoad(err, "truncating %s", table)
		}
	}

	if useBulkCopy {
		usedFallback, err := loadInto(ctx, tx, table, rows, batchSize, l.backoff)
		if err != nil {
			return err
		}
		if usedFallback {
			metrics.BulkLoadFallbacksTotal.Inc()
		}
	} else if err := insertFallback(ctx, tx, table, rows, batchSize); err != nil {
		return errs.BulkLoad(err, "insert into %s", table)
	}

	if err := tx.Commit(ctx); err != nil {
		return errs.DatabaseUnavailable(err, "committing load into %s", table)
	}
	return nil
}

// truncateStandalone runs TRUNCATE in its own transaction, committed
// before the caller's load transaction begins.
func (l *Loader) truncateStandalone(ctx context.Context, table string) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return errs.DatabaseUnavailable(err, "beginning truncate transaction for %s", table)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s", table)); err != nil {
		return errs.BulkLoad(err, "truncating %s", table)
	}
	if err := tx.Commit(ctx); err != nil {
		return errs.DatabaseUnavailable(err, "committing truncate of %s", table)
	}
	return nil
}

// loadInto runs the copy-with-retry path, falling back to inserts. Split
// out of Load so tests can exercise it against a fake execCopier. The
// returned bool reports whether the fallback path was used.
func loadInto(ctx context.Context, ec execCopier, table string, rows []model.DailySummary, batchSize int, backoff []time.Duration) (bool, error) {
	copyErr := copyWithRetry(ctx, ec, table, rows, backoff)
	if copyErr == nil {
		return false, nil
	}
	if err := insertFallback(ctx, ec, table, rows, batchSize); err != nil {
		return false, errs.BulkLoad(err, "fallback insert into %s after copy failures (%v)", table, copyErr)
	}
	return true, nil
}

// copyWithRetry attempts the wire-level copy up to 4 times total (1 initial
// + 3 retries) with backoff between attempts, per spec.md §4.9: "retry with
// backoff up to three attempts; on the fourth failure, fall back."
func copyWithRetry(ctx context.Context, ec execCopier, table string, rows []model.DailySummary, backoff []time.Duration) error {
	var lastErr error
	const maxAttempts = 4
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			i := attempt - 1
			if i >= len(backoff) {
				i = len(backoff) - 1
			}
			d := backoff[i]
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		_, err := ec.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return rowValues(rows[i]), nil
		}))
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// insertFallback writes rows as chunked multi-row INSERTs, batchSize per
// statement (default 1000).
func insertFallback(ctx context.Context, ec execCopier, table string, rows []model.DailySummary, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 1000
	}
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := insertBatch(ctx, ec, table, rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func insertBatch(ctx context.Context, ec execCopier, table string, rows []model.DailySummary) error {
	if len(rows) == 0 {
		return nil
	}
	var sql strings.Builder
	fmt.Fprintf(&sql, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))

	args := make([]any, 0, len(rows)*len(columns))
	for i, r := range rows {
		if i > 0 {
			sql.WriteByte(',')
		}
		sql.WriteByte('(')
		for j, v := range rowValues(r) {
			if j > 0 {
				sql.WriteByte(',')
			}
			args = append(args, v)
			fmt.Fprintf(&sql, "$%d", len(args))
		}
		sql.WriteByte(')')
	}

	_, err := ec.Exec(ctx, sql.String(), args...)
	return err
}

func rowValues(r model.DailySummary) []any {
	return []any{
		r.UsageStart, r.Namespace, r.Node, r.PodLabels,
		r.CPUUsageCoreHours, r.CPURequestCoreHours, r.CPULimitCoreHours,
		r.MemUsageGBHours, r.MemRequestGBHours, r.MemLimitGBHours,
		r.CPUEffectiveUsageCoreHours, r.MemEffectiveUsageGBHours,
		r.NodeCapacityCPUCoreHours, r.NodeCapacityMemGBHours,
		r.ClusterCapacityCPUCoreHours, r.ClusterCapacityMemGBHours,
		nullableString(r.ResourceID), nullableInt64(r.CostCategoryID),
		r.SourceUUID, r.Source, r.Year, r.Month, r.Day,
	}
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
