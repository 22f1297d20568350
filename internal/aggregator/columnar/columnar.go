// Package columnar implements spec.md §4.2: opening partitioned Parquet
// files, projecting columns, and yielding either the full concatenated row
// set (read_full) or a lazy, single-pass sequence of fixed-size row
// batches (stream).
//
// Reading is done with Apache Arrow's Parquet bindings
// (github.com/apache/arrow/go/v15/parquet), which is also where the
// column-projection support for column_filtering comes from. The decoders
// accept both plain and dictionary-encoded (array.Dictionary) string
// columns, but the reader does not request dictionary encoding:
// Reader.UseCategorical is stored and not read.
package columnar

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow/go/v15/arrow"
	"github.com/apache/arrow/go/v15/arrow/memory"
	"github.com/apache/arrow/go/v15/parquet/file"
	"github.com/apache/arrow/go/v15/parquet/pqarrow"

	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/errs"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/model"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/objectstore"
)

// RequiredColumns is the 14-column projection spec.md §6 requires when
// column_filtering=true.
var RequiredColumns = []string{
	"interval_start",
	"namespace",
	"node",
	"pod",
	"resource_id",
	"pod_labels",
	"pod_usage_cpu_core_seconds",
	"pod_request_cpu_core_seconds",
	"pod_limit_cpu_core_seconds",
	"pod_usage_memory_byte_seconds",
	"pod_request_memory_byte_seconds",
	"pod_limit_memory_byte_seconds",
	"node_capacity_cpu_core_seconds",
	"node_capacity_memory_byte_seconds",
}

// Projection lists the columns to read; nil means "all columns."
type Projection []string

// Reader opens partitioned Parquet files from an object store and decodes
// rows into model.UsageRecord.
type Reader struct {
	Client         objectstore.Client
	Bucket         string
	UseCategorical bool
}

// ReadFull returns the concatenation of all rows from all files in paths.
// Bounded only by available memory — intended for RunConfig.UseStreaming
// == false (spec.md §5 "non-streaming mode").
func (r *Reader) ReadFull(ctx context.Context, paths []string, projection Projection) ([]model.UsageRecord, error) {
	it, err := r.Stream(ctx, paths, projection, 0)
	if err != nil {
		return nil, err
	}
	var all []model.UsageRecord
	for {
		batch, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		all = append(all, batch...)
	}
	return all, nil
}

// Stream returns a lazy, single-pass, finite sequence of row batches, each
// at most chunkSize rows (chunkSize <= 0 means "one batch with everything").
// Per spec.md §4.2 a batch may concatenate rows across file boundaries so
// that every batch but the last is exactly chunkSize rows; this is required
// for spec.md §8 Scenario F (identical results for different chunk sizes).
func (r *Reader) Stream(ctx context.Context, paths []string, projection Projection, chunkSize int) (*BatchIterator, error) {
	return &BatchIterator{
		ctx:        ctx,
		reader:     r,
		paths:      paths,
		projection: projection,
		chunkSize:  chunkSize,
	}, nil
}

// BatchIterator is a single-pass, not-restartable sequence of row batches.
type BatchIterator struct {
	ctx        context.Context
	reader     *Reader
	paths      []string
	projection Projection
	chunkSize  int

	pathIdx int
	rows    []model.UsageRecord // rows read from the current file, not yet emitted
	rowIdx  int
	done    bool

	// readFileFn defaults to reader.readFile; tests substitute a fake to
	// exercise the chunking logic without real Parquet files.
	readFileFn func(ctx context.Context, path string, projection Projection) ([]model.UsageRecord, error)
}

func (b *BatchIterator) readFile(ctx context.Context, path string, projection Projection) ([]model.UsageRecord, error) {
	if b.readFileFn != nil {
		return b.readFileFn(ctx, path, projection)
	}
	return b.reader.readFile(ctx, path, projection)
}

// Next returns the next batch of rows. ok is false once the sequence is
// exhausted; err is non-nil only on a fatal read/schema failure.
func (b *BatchIterator) Next(ctx context.Context) ([]model.UsageRecord, bool, error) {
	if b.done {
		return nil, false, nil
	}

	target := b.chunkSize
	var out []model.UsageRecord

	for {
		// Drain whatever is left of the currently-open file first.
		if b.rowIdx < len(b.rows) {
			remaining := len(b.rows) - b.rowIdx
			take := remaining
			if target > 0 {
				need := target - len(out)
				if need < take {
					take = need
				}
			}
			out = append(out, b.rows[b.rowIdx:b.rowIdx+take]...)
			b.rowIdx += take
			if target > 0 && len(out) >= target {
				return out, true, nil
			}
			continue
		}

		// Current file exhausted; open the next one.
		if b.pathIdx >= len(b.paths) {
			b.done = true
			if len(out) == 0 {
				return nil, false, nil
			}
			return out, true, nil
		}

		path := b.paths[b.pathIdx]
		b.pathIdx++
		rows, err := b.readFile(ctx, path, b.projection)
		if err != nil {
			return nil, false, err
		}
		b.rows = rows
		b.rowIdx = 0
		// Empty files are skipped without error (spec.md §4.2); the loop
		// simply tries the next path.
	}
}

// readFile opens one Parquet object, projects columns, and decodes every
// row group into model.UsageRecord.
func (r *Reader) readFile(ctx context.Context, key string, projection Projection) ([]model.UsageRecord, error) {
	var rows []model.UsageRecord
	err := r.forEachRecord(ctx, key, projection, func(rec arrow.Record) error {
		decoded, err := decodeRecord(rec)
		if err != nil {
			return err
		}
		rows = append(rows, decoded...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadNodeLabels reads every node_labels file in paths into deduplication-
// ready rows (the labels package performs the actual dedup/last-write-wins
// reduction per spec.md §5).
func (r *Reader) ReadNodeLabels(ctx context.Context, paths []string) ([]model.NodeLabelRow, error) {
	var rows []model.NodeLabelRow
	for _, path := range paths {
		err := r.forEachRecord(ctx, path, nil, func(rec arrow.Record) error {
			rows = append(rows, decodeNodeLabelRecord(rec)...)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// ReadNamespaceLabels is the namespace analogue of ReadNodeLabels.
func (r *Reader) ReadNamespaceLabels(ctx context.Context, paths []string) ([]model.NamespaceLabelRow, error) {
	var rows []model.NamespaceLabelRow
	for _, path := range paths {
		err := r.forEachRecord(ctx, path, nil, func(rec arrow.Record) error {
			rows = append(rows, decodeNamespaceLabelRecord(rec)...)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// forEachRecord opens one Parquet object and invokes fn once per Arrow
// record batch. Empty objects are skipped without error or a call to fn.
func (r *Reader) forEachRecord(ctx context.Context, key string, projection Projection, fn func(arrow.Record) error) error {
	rc, err := r.Client.GetObject(ctx, r.Bucket, key)
	if err != nil {
		return errs.FileReadError(err, "opening %s", key)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return errs.FileReadError(err, "reading %s", key)
	}
	if len(data) == 0 {
		return nil // empty files are skipped without error
	}

	pf, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return errs.FileReadError(err, "parsing parquet file %s", key)
	}
	defer pf.Close()

	indices, err := columnIndices(pf, projection)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	arrowRdr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return errs.FileReadError(err, "building arrow reader for %s", key)
	}

	recordReader, err := arrowRdr.GetRecordReader(ctx, indices, nil)
	if err != nil {
		return errs.FileReadError(err, "reading record batches from %s", key)
	}
	defer recordReader.Release()

	for recordReader.Next() {
		if err := fn(recordReader.Record()); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if err := recordReader.Err(); err != nil && err != io.EOF {
		return errs.FileReadError(err, "iterating record batches from %s", key)
	}
	return nil
}
