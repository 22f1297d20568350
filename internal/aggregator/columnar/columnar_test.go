package columnar

import (
	"context"
	"testing"

	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/model"
)

func fakeRows(n int, node string) []model.UsageRecord {
	rows := make([]model.UsageRecord, n)
	for i := range rows {
		rows[i] = model.UsageRecord{Node: node, Namespace: "ns"}
	}
	return rows
}

func fileRowsFn(perFile map[string][]model.UsageRecord) func(context.Context, string, Projection) ([]model.UsageRecord, error) {
	return func(_ context.Context, path string, _ Projection) ([]model.UsageRecord, error) {
		return perFile[path], nil
	}
}

func TestBatchIterator_ChunksAcrossFileBoundaries(t *testing.T) {
	perFile := map[string][]model.UsageRecord{
		"a.parquet": fakeRows(3, "node-a"),
		"b.parquet": fakeRows(5, "node-b"),
	}
	it := &BatchIterator{
		paths:      []string{"a.parquet", "b.parquet"},
		chunkSize:  4,
		readFileFn: fileRowsFn(perFile),
	}

	var batches [][]model.UsageRecord
	for {
		b, ok, err := it.Next(context.Background())
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		if !ok {
			break
		}
		batches = append(batches, b)
	}

	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	if len(batches[0]) != 4 {
		t.Fatalf("batch 0 = %d rows, want 4", len(batches[0]))
	}
	if len(batches[1]) != 4 {
		t.Fatalf("batch 1 = %d rows, want 4", len(batches[1]))
	}
	// The first batch straddles both files: 3 rows from a.parquet, 1 from b.
	if batches[0][0].Node != "node-a" || batches[0][3].Node != "node-b" {
		t.Fatalf("batch did not concatenate across file boundary: %+v", batches[0])
	}
}

func TestBatchIterator_SkipsEmptyFilesWithoutError(t *testing.T) {
	perFile := map[string][]model.UsageRecord{
		"a.parquet": nil,
		"b.parquet": fakeRows(2, "node-b"),
	}
	it := &BatchIterator{
		paths:      []string{"a.parquet", "b.parquet"},
		chunkSize:  10,
		readFileFn: fileRowsFn(perFile),
	}

	b, ok, err := it.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if !ok {
		t.Fatal("expected a batch from the non-empty file")
	}
	if len(b) != 2 {
		t.Fatalf("got %d rows, want 2", len(b))
	}

	_, ok, err = it.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if ok {
		t.Fatal("expected iteration to be exhausted")
	}
}

func TestBatchIterator_ZeroChunkSizeReadsEverythingInOneBatch(t *testing.T) {
	perFile := map[string][]model.UsageRecord{
		"a.parquet": fakeRows(2, "node-a"),
		"b.parquet": fakeRows(3, "node-b"),
	}
	it := &BatchIterator{
		paths:      []string{"a.parquet", "b.parquet"},
		chunkSize:  0,
		readFileFn: fileRowsFn(perFile),
	}

	b, ok, err := it.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if !ok || len(b) != 5 {
		t.Fatalf("got %d rows (ok=%v), want 5", len(b), ok)
	}

	_, ok, _ = it.Next(context.Background())
	if ok {
		t.Fatal("expected a single batch")
	}
}

func TestBatchIterator_NoFilesYieldsNoBatches(t *testing.T) {
	it := &BatchIterator{paths: nil, chunkSize: 4, readFileFn: fileRowsFn(nil)}
	_, ok, err := it.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if ok {
		t.Fatal("expected no batches when there are no files")
	}
}
