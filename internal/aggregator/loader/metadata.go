package loader

import (
	"context"
	"fmt"

	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/errs"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/model"
)

// FetchEnabledKeys reads the pod-label keys enabled for grouping, per
// spec.md §4.10's LoadingMeta -> Reading transition.
func (l *Loader) FetchEnabledKeys(ctx context.Context) ([]string, error) {
	rows, err := l.pool.Query(ctx, fmt.Sprintf(`SELECT key FROM %s WHERE enabled = true`, l.qualify("reporting_enabledtagkeys")))
	if err != nil {
		return nil, errs.DatabaseUnavailable(err, "fetching enabled label keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errs.DatabaseUnavailable(err, "scanning enabled label key")
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.DatabaseUnavailable(err, "iterating enabled label keys")
	}
	return keys, nil
}

// FetchCostCategoryPatterns reads the enabled (pattern, category id) pairs
// the cost-category matcher compiles against.
func (l *Loader) FetchCostCategoryPatterns(ctx context.Context) ([]model.CostCategoryPattern, error) {
	rows, err := l.pool.Query(ctx, fmt.Sprintf(`SELECT namespace_pattern, cost_category_id FROM %s WHERE enabled = true`, l.qualify("reporting_ocp_cost_category_namespace")))
	if err != nil {
		return nil, errs.DatabaseUnavailable(err, "fetching cost category patterns")
	}
	defer rows.Close()

	var patterns []model.CostCategoryPattern
	for rows.Next() {
		var p model.CostCategoryPattern
		if err := rows.Scan(&p.Pattern, &p.CategoryID); err != nil {
			return nil, errs.DatabaseUnavailable(err, "scanning cost category pattern")
		}
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.DatabaseUnavailable(err, "iterating cost category patterns")
	}
	return patterns, nil
}
