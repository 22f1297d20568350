// Package format implements spec.md §4.8: attaching the provenance columns
// every output row needs and sanitizing values the bulk loader must never
// ship as NaN.
package format

import (
	"fmt"
	"math"
	"time"

	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/capacity"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/model"
)

// Attach stamps source_uuid, source, year, month, and day onto every row
// and null-sanitizes its numeric fields in place. year/month must already
// be two-char zero-padded by the caller (the same convention
// objectstore.partitionPrefix relies on).
func Attach(rows []model.DailySummary, providerUUID, year, month string) {
	for i := range rows {
		r := &rows[i]
		r.SourceUUID = providerUUID
		r.Source = providerUUID
		r.Year = year
		r.Month = month
		r.Day = fmt.Sprintf("%d", r.UsageStart.Day())

		r.CPUUsageCoreHours = sanitizeFloat(r.CPUUsageCoreHours)
		r.CPURequestCoreHours = sanitizeFloat(r.CPURequestCoreHours)
		r.CPULimitCoreHours = sanitizeFloat(r.CPULimitCoreHours)
		r.MemUsageGBHours = sanitizeFloat(r.MemUsageGBHours)
		r.MemRequestGBHours = sanitizeFloat(r.MemRequestGBHours)
		r.MemLimitGBHours = sanitizeFloat(r.MemLimitGBHours)
		r.CPUEffectiveUsageCoreHours = sanitizeFloat(r.CPUEffectiveUsageCoreHours)
		r.MemEffectiveUsageGBHours = sanitizeFloat(r.MemEffectiveUsageGBHours)
		r.NodeCapacityCPUCoreHours = sanitizeFloat(r.NodeCapacityCPUCoreHours)
		r.NodeCapacityMemGBHours = sanitizeFloat(r.NodeCapacityMemGBHours)
		r.ClusterCapacityCPUCoreHours = sanitizeFloat(r.ClusterCapacityCPUCoreHours)
		r.ClusterCapacityMemGBHours = sanitizeFloat(r.ClusterCapacityMemGBHours)

		if r.PodLabels == "" {
			r.PodLabels = "{}"
		}
	}
}

// JoinCapacity attaches each row's node and cluster capacity, computed
// separately and independently by the capacity reducer (spec.md §4.6: "join
// daily node and cluster capacity"). A row whose (node, date) or date has no
// matching capacity entry is left at zero rather than dropped — a node that
// reported usage but no capacity interval is a data-quality condition, not a
// reason to lose the usage row.
func JoinCapacity(rows []model.DailySummary, nodeDaily []capacity.NodeDaily, clusterDaily []capacity.ClusterDaily) {
	type nodeKey struct {
		node string
		date time.Time
	}
	byNode := make(map[nodeKey]capacity.NodeDaily, len(nodeDaily))
	for _, d := range nodeDaily {
		byNode[nodeKey{node: d.Node, date: d.Date}] = d
	}
	byDate := make(map[time.Time]capacity.ClusterDaily, len(clusterDaily))
	for _, d := range clusterDaily {
		byDate[d.Date] = d
	}

	for i := range rows {
		r := &rows[i]
		date := r.UsageStart.Truncate(24 * time.Hour)
		if nd, ok := byNode[nodeKey{node: r.Node, date: date}]; ok {
			r.NodeCapacityCPUCoreHours = nd.CPUCoreHours
			r.NodeCapacityMemGBHours = nd.MemGBHours
		}
		if cd, ok := byDate[date]; ok {
			r.ClusterCapacityCPUCoreHours = cd.CPUCoreHours
			r.ClusterCapacityMemGBHours = cd.MemGBHours
		}
	}
}

// sanitizeFloat converts NaN and +/-Inf to 0, per spec.md §4.8: "any
// NaN/undefined in numeric columns → 0 ... bulk-load path must never ship
// NaN as a string."
func sanitizeFloat(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
