// Package model holds the data types shared across the aggregation pipeline:
// the per-row usage record read from columnar files, the label-set value
// type, hourly capacity rows, and the daily summary row written to the
// relational store.
package model

import "time"

// UsageRecord is one row of a pod_usage columnar file.
type UsageRecord struct {
	IntervalStart time.Time
	Namespace     string
	Node          string
	Pod           string
	// ResourceID is nullable; nil means the source row had a SQL NULL.
	ResourceID *string
	// PodLabelsRaw is the pod_labels value: the columnar reader hands back a
	// JSON string or nil; the labels package also accepts a map[string]any or
	// map[string]string and normalizes any of these into a canonical map.
	PodLabelsRaw any

	UsageCPUCoreSeconds    float64
	RequestCPUCoreSeconds  float64
	LimitCPUCoreSeconds    float64
	UsageMemByteSeconds    float64
	RequestMemByteSeconds  float64
	LimitMemByteSeconds    float64

	NodeCapacityCPUCoreSeconds float64
	NodeCapacityMemByteSeconds float64
}

// NodeLabelRow is one row of a node_labels columnar file: the labels a node
// carried during some interval. Rows are deduplicated to one per node
// before being handed to chunk workers (see labels.BuildNodeIndex).
type NodeLabelRow struct {
	Node       string
	LabelsRaw  any
}

// NamespaceLabelRow is one row of a namespace_labels columnar file,
// analogous to NodeLabelRow.
type NamespaceLabelRow struct {
	Namespace string
	LabelsRaw any
}

// CapacityIntervalRow is one hourly capacity reading for a node.
type CapacityIntervalRow struct {
	Node          string
	IntervalStart time.Time
	CPUCoreSeconds float64
	MemByteSeconds float64
}

// DailySummary is one output row: a (usage-start, namespace, node,
// merged-label-set) group with its aggregated metrics.
type DailySummary struct {
	UsageStart time.Time
	Namespace  string
	Node       string
	// PodLabels is the canonical sorted-key JSON of the merged label set.
	PodLabels string

	CPUUsageCoreHours    float64
	CPURequestCoreHours  float64
	CPULimitCoreHours    float64
	MemUsageGBHours      float64
	MemRequestGBHours    float64
	MemLimitGBHours      float64

	CPUEffectiveUsageCoreHours float64
	MemEffectiveUsageGBHours   float64

	NodeCapacityCPUCoreHours float64
	NodeCapacityMemGBHours   float64
	ClusterCapacityCPUCoreHours float64
	ClusterCapacityMemGBHours   float64

	// ResourceID is the lexicographic max of non-empty resource ids seen in
	// the group; nil if every row in the group had an empty/null id.
	ResourceID *string
	// CostCategoryID is nil when no enabled pattern matched the namespace.
	CostCategoryID *int64

	SourceUUID string
	Source     string
	Year       string // two-char zero-padded
	Month      string // two-char zero-padded
	Day        string // one or two digits
}

// GroupKey identifies a DailySummary's aggregation group. Two UsageRecords
// that produce the same GroupKey (after label merge) land in the same
// output row, regardless of which chunk or worker processed them.
type GroupKey struct {
	UsageStart time.Time
	Namespace  string
	Node       string
	LabelJSON  string
}

// CostCategoryPattern is one (SQL-LIKE pattern, category id) pair fetched
// from reporting_ocp_cost_category_namespace.
type CostCategoryPattern struct {
	Pattern    string
	CategoryID int64
}
