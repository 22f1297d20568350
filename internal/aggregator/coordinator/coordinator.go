// Package coordinator implements spec.md §4.6: dispatching batches to the
// chunk processor either serially or across a worker pool, then re-reducing
// every chunk's groups into the final per-run set.
//
// The parallel path uses golang.org/x/sync/errgroup, which gives exactly
// the "cancel everything on the first fatal error, then wait for the rest
// to unwind" semantics the coordinator needs, the way the teacher's own
// async writer (internal/store/writer.go) reaches for an explicit
// concurrency primitive rather than a bare sync.WaitGroup loop.
package coordinator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/chunk"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/costcategory"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/errs"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/model"
)

// Batch is one unit of work: a row slice and the snapshot to process it
// against. All batches in a run share the same Snapshot field values,
// Source included; the snapshot is carried per batch only so a batch is
// self-contained.
type Batch struct {
	Rows     []model.UsageRecord
	Snapshot chunk.Snapshot
}

// Run processes every batch and returns the final, re-reduced set of
// DailySummary rows (minus capacity join, which the driver performs
// separately per spec.md §4.6 "join daily node and cluster capacity").
// maxWorkers <= 1 runs serially; otherwise batches are dispatched across a
// pool of that size.
func Run(ctx context.Context, batches []Batch, maxWorkers int, matcher *costcategory.Matcher) ([]model.DailySummary, error) {
	perChunk, err := processBatches(ctx, batches, maxWorkers)
	if err != nil {
		return nil, err
	}
	summaries := reReduce(perChunk, matcher)

	// Every input row contributes to exactly one group, so the re-reduced
	// group count can never exceed the total row count fed in. Seeing more
	// groups than rows means the grouping join blew up — most likely an
	// undeduplicated node/namespace label index upstream — rather than a
	// value that's merely wrong.
	var totalRows int
	for _, b := range batches {
		totalRows += len(b.Rows)
	}
	if len(summaries) > totalRows {
		return nil, errs.Aggregation(fmt.Sprintf("%d groups from %d input rows", len(summaries), totalRows), nil)
	}

	return summaries, nil
}

// processBatches runs chunk.Process over every batch, serially or in
// parallel, and returns the list of per-chunk group maps.
func processBatches(ctx context.Context, batches []Batch, maxWorkers int) ([]map[model.GroupKey]*chunk.Group, error) {
	if maxWorkers <= 1 {
		results := make([]map[model.GroupKey]*chunk.Group, len(batches))
		for i, b := range batches {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			g, err := chunk.Process(b.Rows, b.Snapshot)
			if err != nil {
				return nil, err
			}
			results[i] = g
		}
		return results, nil
	}

	results := make([]map[model.GroupKey]*chunk.Group, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for i, b := range batches {
		i, b := i, b
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			groups, err := chunk.Process(b.Rows, b.Snapshot)
			if err != nil {
				return err
			}
			results[i] = groups
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// reReduce implements spec.md §4.5's "correctness under chunking"
// invariant and §4.6's final re-aggregation: concatenate every chunk's
// groups, sum the consumption counters and max the capacity/resource-id
// counters across chunks sharing a group key, then recompute effective
// usage exactly once, after the final sum — never composed as a
// per-chunk max of per-chunk effectives.
func reReduce(perChunk []map[model.GroupKey]*chunk.Group, matcher *costcategory.Matcher) []model.DailySummary {
	merged := make(map[model.GroupKey]*chunk.Group)
	var order []model.GroupKey

	for _, groups := range perChunk {
		for key, g := range groups {
			m, ok := merged[key]
			if !ok {
				clone := *g
				merged[key] = &clone
				order = append(order, key)
				continue
			}
			m.SumUsageCPUCoreSeconds += g.SumUsageCPUCoreSeconds
			m.SumRequestCPUCoreSeconds += g.SumRequestCPUCoreSeconds
			m.SumLimitCPUCoreSeconds += g.SumLimitCPUCoreSeconds
			m.SumUsageMemByteSeconds += g.SumUsageMemByteSeconds
			m.SumRequestMemByteSeconds += g.SumRequestMemByteSeconds
			m.SumLimitMemByteSeconds += g.SumLimitMemByteSeconds

			if g.MaxNodeCapacityCPUCoreSeconds > m.MaxNodeCapacityCPUCoreSeconds {
				m.MaxNodeCapacityCPUCoreSeconds = g.MaxNodeCapacityCPUCoreSeconds
			}
			if g.MaxNodeCapacityMemByteSeconds > m.MaxNodeCapacityMemByteSeconds {
				m.MaxNodeCapacityMemByteSeconds = g.MaxNodeCapacityMemByteSeconds
			}
			if g.MaxResourceID != nil && (m.MaxResourceID == nil || *g.MaxResourceID > *m.MaxResourceID) {
				id := *g.MaxResourceID
				m.MaxResourceID = &id
			}
		}
	}

	out := make([]model.DailySummary, 0, len(order))
	for _, key := range order {
		g := merged[key]
		out = append(out, toSummary(key, g, matcher))
	}
	return out
}

const (
	secondsPerHour = 3600.0
	bytesPerGiB    = 1 << 30
)

func toSummary(key model.GroupKey, g *chunk.Group, matcher *costcategory.Matcher) model.DailySummary {
	s := model.DailySummary{
		UsageStart: key.UsageStart,
		Namespace:  key.Namespace,
		Node:       key.Node,
		PodLabels:  key.LabelJSON,

		CPUUsageCoreHours:   g.SumUsageCPUCoreSeconds / secondsPerHour,
		CPURequestCoreHours: g.SumRequestCPUCoreSeconds / secondsPerHour,
		CPULimitCoreHours:   g.SumLimitCPUCoreSeconds / secondsPerHour,
		MemUsageGBHours:     g.SumUsageMemByteSeconds / secondsPerHour / bytesPerGiB,
		MemRequestGBHours:   g.SumRequestMemByteSeconds / secondsPerHour / bytesPerGiB,
		MemLimitGBHours:     g.SumLimitMemByteSeconds / secondsPerHour / bytesPerGiB,

		ResourceID: g.MaxResourceID,
	}
	// Effective usage is recomputed here, after the final sum across
	// chunks — computing it per-chunk and then maxing the per-chunk
	// results would be wrong whenever usage and request land in
	// different chunks for the same group.
	if s.CPUUsageCoreHours > s.CPURequestCoreHours {
		s.CPUEffectiveUsageCoreHours = s.CPUUsageCoreHours
	} else {
		s.CPUEffectiveUsageCoreHours = s.CPURequestCoreHours
	}
	if s.MemUsageGBHours > s.MemRequestGBHours {
		s.MemEffectiveUsageGBHours = s.MemUsageGBHours
	} else {
		s.MemEffectiveUsageGBHours = s.MemRequestGBHours
	}

	if matcher != nil {
		s.CostCategoryID = matcher.Match(s.Namespace)
	}
	return s
}
