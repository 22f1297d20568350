package columnar

import (
	"fmt"
	"time"

	"github.com/apache/arrow/go/v15/arrow"
	"github.com/apache/arrow/go/v15/arrow/array"
	"github.com/apache/arrow/go/v15/parquet/file"

	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/errs"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/model"
)

// columnIndices resolves a projection (by column name) into the parquet
// field indices GetRecordReader expects. A nil projection selects every
// column in the file (RunConfig.ColumnFiltering == false).
func columnIndices(pf *file.Reader, projection Projection) ([]int, error) {
	schema := pf.MetaData().Schema
	numCols := schema.NumColumns()

	if projection == nil {
		indices := make([]int, numCols)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	want := make(map[string]struct{}, len(projection))
	for _, name := range projection {
		want[name] = struct{}{}
	}

	var indices []int
	for i := 0; i < numCols; i++ {
		name := schema.Column(i).Name()
		if _, ok := want[name]; ok {
			indices = append(indices, i)
			delete(want, name)
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for name := range want {
			missing = append(missing, name)
		}
		return nil, errs.SchemaMismatch("file is missing required column(s): %v", missing)
	}
	return indices, nil
}

// decodeRecord converts one Arrow record batch into UsageRecord rows,
// looking columns up by name so that column order and any projection
// narrowing applied upstream don't matter.
func decodeRecord(rec arrow.Record) ([]model.UsageRecord, error) {
	schema := rec.Schema()
	cols := make(map[string]arrow.Array, schema.NumFields())
	for i, field := range schema.Fields() {
		cols[field.Name] = rec.Column(i)
	}

	n := int(rec.NumRows())
	rows := make([]model.UsageRecord, n)
	for i := 0; i < n; i++ {
		row := model.UsageRecord{
			Namespace:  stringAt(cols["namespace"], i),
			Node:       stringAt(cols["node"], i),
			Pod:        stringAt(cols["pod"], i),
			ResourceID: stringPtrAt(cols["resource_id"], i),

			UsageCPUCoreSeconds:   float64At(cols["pod_usage_cpu_core_seconds"], i),
			RequestCPUCoreSeconds: float64At(cols["pod_request_cpu_core_seconds"], i),
			LimitCPUCoreSeconds:   float64At(cols["pod_limit_cpu_core_seconds"], i),
			UsageMemByteSeconds:   float64At(cols["pod_usage_memory_byte_seconds"], i),
			RequestMemByteSeconds: float64At(cols["pod_request_memory_byte_seconds"], i),
			LimitMemByteSeconds:   float64At(cols["pod_limit_memory_byte_seconds"], i),

			NodeCapacityCPUCoreSeconds: float64At(cols["node_capacity_cpu_core_seconds"], i),
			NodeCapacityMemByteSeconds: float64At(cols["node_capacity_memory_byte_seconds"], i),
		}
		if col, ok := cols["interval_start"]; ok {
			t, err := timestampAt(col, i)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			row.IntervalStart = t
		}
		if col, ok := cols["pod_labels"]; ok {
			row.PodLabelsRaw = labelRawAt(col, i)
		}
		rows[i] = row
	}
	return rows, nil
}

// decodeNodeLabelRecord converts one Arrow record batch from a node_labels
// file into NodeLabelRow rows, looked up by name the same way decodeRecord
// is, since a node_labels file's columns are just "node" and "node_labels".
func decodeNodeLabelRecord(rec arrow.Record) []model.NodeLabelRow {
	schema := rec.Schema()
	cols := make(map[string]arrow.Array, schema.NumFields())
	for i, field := range schema.Fields() {
		cols[field.Name] = rec.Column(i)
	}

	n := int(rec.NumRows())
	rows := make([]model.NodeLabelRow, n)
	for i := 0; i < n; i++ {
		rows[i] = model.NodeLabelRow{
			Node:      stringAt(cols["node"], i),
			LabelsRaw: labelRawAt(cols["node_labels"], i),
		}
	}
	return rows
}

// decodeNamespaceLabelRecord is the namespace analogue of
// decodeNodeLabelRecord.
func decodeNamespaceLabelRecord(rec arrow.Record) []model.NamespaceLabelRow {
	schema := rec.Schema()
	cols := make(map[string]arrow.Array, schema.NumFields())
	for i, field := range schema.Fields() {
		cols[field.Name] = rec.Column(i)
	}

	n := int(rec.NumRows())
	rows := make([]model.NamespaceLabelRow, n)
	for i := 0; i < n; i++ {
		rows[i] = model.NamespaceLabelRow{
			Namespace: stringAt(cols["namespace"], i),
			LabelsRaw: labelRawAt(cols["namespace_labels"], i),
		}
	}
	return rows
}

// stringAt reads a string value that may be either plain (*array.String)
// or dictionary-encoded (*array.Dictionary over a string dictionary), the
// shape a file can carry for low-cardinality columns like namespace/node.
func stringAt(col arrow.Array, i int) string {
	if col == nil || col.IsNull(i) {
		return ""
	}
	switch a := col.(type) {
	case *array.String:
		return a.Value(i)
	case *array.Dictionary:
		if dict, ok := a.Dictionary().(*array.String); ok {
			return dict.Value(a.GetValueIndex(i))
		}
	}
	return ""
}

func stringPtrAt(col arrow.Array, i int) *string {
	if col == nil || col.IsNull(i) {
		return nil
	}
	s := stringAt(col, i)
	return &s
}

func float64At(col arrow.Array, i int) float64 {
	if col == nil || col.IsNull(i) {
		return 0
	}
	switch a := col.(type) {
	case *array.Float64:
		return a.Value(i)
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Int64:
		return float64(a.Value(i))
	}
	return 0
}

func timestampAt(col arrow.Array, i int) (time.Time, error) {
	if col == nil || col.IsNull(i) {
		return time.Time{}, nil
	}
	a, ok := col.(*array.Timestamp)
	if !ok {
		return time.Time{}, fmt.Errorf("interval_start column has unexpected type %T", col)
	}
	tsType, ok := a.DataType().(*arrow.TimestampType)
	if !ok {
		return time.Time{}, fmt.Errorf("interval_start column has unexpected arrow type %T", a.DataType())
	}
	return a.Value(i).ToTime(tsType.Unit), nil
}

// labelRawAt returns a label cell (pod_labels, node_labels or
// namespace_labels) as a shape internal/aggregator/labels.Parse accepts:
// only JSON-encoded string columns, plain or dictionary-encoded, are
// decoded here — anything else is left nil and Parse treats it as empty.
func labelRawAt(col arrow.Array, i int) any {
	if col == nil || col.IsNull(i) {
		return nil
	}
	if a, ok := col.(*array.String); ok {
		return a.Value(i)
	}
	if a, ok := col.(*array.Dictionary); ok {
		if dict, ok := a.Dictionary().(*array.String); ok {
			return dict.Value(a.GetValueIndex(i))
		}
	}
	return nil
}
