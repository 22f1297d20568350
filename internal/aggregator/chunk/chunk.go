// Package chunk implements spec.md §4.5: turning one batch of UsageRecords
// into a per-chunk aggregated frame, given read-only node/namespace label
// snapshots and the enabled pod-label key set.
package chunk

import (
	"math"
	"time"

	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/labels"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/model"
)

// Snapshot is the read-only label context a chunk is processed against.
// The two label indexes must already be deduplicated (one entry per
// node/namespace — see spec.md §5) before Process is called.
type Snapshot struct {
	NodeLabels      labels.NodeIndex
	NamespaceLabels labels.NamespaceIndex
	EnabledKeys     labels.EnabledKeySet
	Source          string // provider UUID; Process does not read it and it is not part of the group key
}

// Group is one (date, namespace, node, canonical-label-json) aggregation
// group's accumulated state; the source is not part of the key. Exported so the coordinator can
// re-reduce groups across chunk results (spec.md §4.6).
type Group struct {
	Key model.GroupKey

	SumUsageCPUCoreSeconds    float64
	SumRequestCPUCoreSeconds  float64
	SumLimitCPUCoreSeconds    float64
	SumUsageMemByteSeconds    float64
	SumRequestMemByteSeconds  float64
	SumLimitMemByteSeconds    float64

	MaxNodeCapacityCPUCoreSeconds float64
	MaxNodeCapacityMemByteSeconds float64

	// MaxResourceID is the lexicographic max of non-empty resource ids
	// seen in the group; nil means none seen.
	MaxResourceID *string
}

// Process runs spec.md §4.5 steps 1–6 over one batch, returning the
// per-chunk aggregated groups keyed by (date, namespace, node,
// canonical-label-json). Rows with an empty node are dropped.
func Process(rows []model.UsageRecord, snap Snapshot) (map[model.GroupKey]*Group, error) {
	groups := make(map[model.GroupKey]*Group)

	for _, row := range rows {
		if row.Node == "" {
			continue
		}

		nodeLabels := snap.NodeLabels.Lookup(row.Node)
		namespaceLabels := snap.NamespaceLabels.Lookup(row.Namespace)

		podLabels, err := labels.Parse(row.PodLabelsRaw)
		if err != nil {
			return nil, err
		}
		podLabels = labels.Filter(podLabels, snap.EnabledKeys)

		merged := labels.Merge(nodeLabels, namespaceLabels, podLabels)
		labelJSON := labels.Canonical(merged)

		key := model.GroupKey{
			UsageStart: row.IntervalStart.Truncate(24 * time.Hour),
			Namespace:  row.Namespace,
			Node:       row.Node,
			LabelJSON:  labelJSON,
		}

		g, ok := groups[key]
		if !ok {
			g = &Group{Key: key}
			groups[key] = g
		}

		g.SumUsageCPUCoreSeconds += sanitize(row.UsageCPUCoreSeconds)
		g.SumRequestCPUCoreSeconds += sanitize(row.RequestCPUCoreSeconds)
		g.SumLimitCPUCoreSeconds += sanitize(row.LimitCPUCoreSeconds)
		g.SumUsageMemByteSeconds += sanitize(row.UsageMemByteSeconds)
		g.SumRequestMemByteSeconds += sanitize(row.RequestMemByteSeconds)
		g.SumLimitMemByteSeconds += sanitize(row.LimitMemByteSeconds)

		if c := row.NodeCapacityCPUCoreSeconds; c > g.MaxNodeCapacityCPUCoreSeconds {
			g.MaxNodeCapacityCPUCoreSeconds = c
		}
		if c := row.NodeCapacityMemByteSeconds; c > g.MaxNodeCapacityMemByteSeconds {
			g.MaxNodeCapacityMemByteSeconds = c
		}

		if row.ResourceID != nil && *row.ResourceID != "" {
			if g.MaxResourceID == nil || *row.ResourceID > *g.MaxResourceID {
				id := *row.ResourceID
				g.MaxResourceID = &id
			}
		}
	}

	return groups, nil
}

// sanitize treats NaN as 0 (spec.md §4.8/§9's null-as-0 rule applies at
// aggregation time too, not only at output formatting, since a NaN
// propagating through a sum would poison the whole group).
func sanitize(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
