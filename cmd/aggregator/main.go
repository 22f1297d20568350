package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/capacity"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/chunk"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/columnar"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/coordinator"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/costcategory"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/diagnostics"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/errs"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/format"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/labels"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/loader"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/metadata"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/model"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/objectstore"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/obslog"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/pipeline"
	"github.com/jordigilh/ocp-usage-aggregator/internal/apiserver"
	"github.com/jordigilh/ocp-usage-aggregator/internal/config"
	intmetrics "github.com/jordigilh/ocp-usage-aggregator/internal/metrics"
)

func main() {
	var configFile string
	var truncate bool
	var serve bool
	var schedule string

	flag.StringVar(&configFile, "config", "/etc/ocp-usage-aggregator/config.yaml", "Path to config file")
	flag.BoolVar(&truncate, "truncate", false, "Truncate the destination table before loading (overrides config)")
	flag.BoolVar(&serve, "serve", false, "Start the health/metrics HTTP surface alongside the run (overrides config)")
	flag.StringVar(&schedule, "schedule", "", "Cron expression for recurring runs instead of a single pass (overrides config)")
	flag.Parse()

	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config file %s, falling back to built-in defaults without environment overrides: %v\n", configFile, err)
		cfg = config.DefaultConfig()
	}
	if truncate {
		cfg.Truncate = true
	}
	if serve {
		cfg.Serve = true
	}
	if schedule != "" {
		cfg.Schedule = schedule
	}

	if err := config.Validate(cfg); err != nil {
		cfgErr := errs.ConfigInvalid("%v", err)
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", cfgErr)
		os.Exit(exitCodeFor(cfgErr))
	}

	logger := obslog.New(cfg.LogFormat, cfg.ProviderUUID, cfg.Year, cfg.Month, runID())

	health := &apiserver.Health{}
	var httpSrv *http.Server
	if cfg.Serve {
		httpSrv = apiserver.NewServer(cfg.ServeAddr, health)
		go func() {
			logger.Info("starting ambient HTTP surface", "addr", cfg.ServeAddr)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("ambient HTTP surface exited", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	health.SetReady(true)

	runOnce := func(ctx context.Context) error {
		return run(ctx, cfg, logger)
	}

	exitCode := 0
	if cfg.Schedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(cfg.Schedule, func() {
			if err := runOnce(ctx); err != nil {
				logger.Error("scheduled run failed", "error", err, "class", string(errs.Classify(err)))
			}
		}); err != nil {
			logger.Error("invalid schedule expression", "schedule", cfg.Schedule, "error", err)
			os.Exit(1)
		}
		logger.Info("starting scheduled aggregation", "schedule", cfg.Schedule)
		c.Start()
		<-ctx.Done()
		cronCtx := c.Stop()
		<-cronCtx.Done()
	} else {
		if err := runOnce(ctx); err != nil {
			logger.Error("aggregation run failed", "error", err, "class", string(errs.Classify(err)))
			exitCode = exitCodeFor(err)
		}
	}

	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}
	os.Exit(exitCode)
}

// runID identifies one aggregation run in logs and error messages.
func runID() string {
	return time.Now().UTC().Format("20060102T150405.000000000")
}

// exitCodeFor maps a run's error class to a process exit code, so an
// operator (or a systemd/k8s restart policy) can tell a bad config apart
// from a transient infrastructure failure without parsing log text.
func exitCodeFor(err error) int {
	switch errs.Classify(err) {
	case errs.ClassConfigInvalid:
		return 2
	case errs.ClassObjectStoreUnavailable, errs.ClassDatabaseUnavailable:
		return 3
	case errs.ClassFileReadError, errs.ClassSchemaMismatch:
		return 4
	case errs.ClassAggregationError, errs.ClassBulkLoadError:
		return 5
	default:
		return 1
	}
}

// run drives one full pipeline pass per spec.md §4.10, wiring together
// object store, relational store, and in-memory aggregation stages through
// pipeline.Run's state machine.
func run(ctx context.Context, cfg *model.RunConfig, logger *slog.Logger) error {
	start := time.Now()

	diag := diagnostics.NewWriter(logger, 1024)
	diag.Run(ctx)
	defer diag.Drain()

	s3Client, err := objectstore.NewS3Client(ctx, cfg.ObjectStore)
	if err != nil {
		return err
	}

	pool, err := loader.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	ld := loader.New(pool, cfg.Database.Schema, nil)
	cache := metadata.New(ld, cfg.MetadataCacheTTL)

	enumerator := &objectstore.Enumerator{Client: s3Client, Bucket: cfg.ObjectStore.Bucket, OrgID: cfg.OrgID}
	reader := &columnar.Reader{Client: s3Client, Bucket: cfg.ObjectStore.Bucket, UseCategorical: cfg.UseCategorical}

	var (
		fileSet      objectstore.FileSet
		patterns     []model.CostCategoryPattern
		snap         chunk.Snapshot
		batches      []coordinator.Batch
		capacityRows []model.CapacityIntervalRow
		summaries    []model.DailySummary
	)

	var projection columnar.Projection
	if cfg.ColumnFiltering {
		projection = columnar.RequiredColumns
	}

	maxWorkers := 1
	if cfg.ParallelChunks {
		maxWorkers = cfg.MaxWorkers
	}

	steps := pipeline.Steps{
		LoadMeta: func() error {
			fileSet, err = enumerator.Enumerate(ctx, cfg.ProviderUUID, cfg.Year, cfg.Month)
			if err != nil {
				return err
			}

			enabledKeys, err := cache.EnabledKeys(ctx)
			if err != nil {
				return err
			}
			patterns, err = cache.CostCategoryPatterns(ctx)
			if err != nil {
				return err
			}

			nodeLabelRows, err := reader.ReadNodeLabels(ctx, fileSet.NodeLabels)
			if err != nil {
				return err
			}
			nodeIdx, err := labels.BuildNodeIndex(nodeLabelRows)
			if err != nil {
				return err
			}

			nsLabelRows, err := reader.ReadNamespaceLabels(ctx, fileSet.NamespaceLabels)
			if err != nil {
				return err
			}
			nsIdx, err := labels.BuildNamespaceIndex(nsLabelRows)
			if err != nil {
				return err
			}

			snap = chunk.Snapshot{
				NodeLabels:      nodeIdx,
				NamespaceLabels: nsIdx,
				EnabledKeys:     enabledKeys,
				Source:          cfg.ProviderUUID,
			}
			return nil
		},
		ReadFiles: func() error {
			var rowsRead int
			collect := func(rows []model.UsageRecord) {
				rowsRead += len(rows)
				batches = append(batches, coordinator.Batch{Rows: rows, Snapshot: snap})
				for _, r := range rows {
					if r.Node == "" {
						continue
					}
					capacityRows = append(capacityRows, model.CapacityIntervalRow{
						Node:           r.Node,
						IntervalStart:  r.IntervalStart,
						CPUCoreSeconds: r.NodeCapacityCPUCoreSeconds,
						MemByteSeconds: r.NodeCapacityMemByteSeconds,
					})
				}
			}

			if !cfg.UseStreaming {
				rows, err := reader.ReadFull(ctx, fileSet.Usage, projection)
				if err != nil {
					return err
				}
				collect(rows)
				intmetrics.RowsRead.Add(float64(rowsRead))
				return nil
			}

			it, err := reader.Stream(ctx, fileSet.Usage, projection, cfg.ChunkSize)
			if err != nil {
				return err
			}
			for {
				rows, ok, err := it.Next(ctx)
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				collect(rows)
			}
			intmetrics.RowsRead.Add(float64(rowsRead))
			return nil
		},
		Aggregate: func() error {
			matcher := costcategory.NewMatcher(patterns)
			summaries, err = coordinator.Run(ctx, batches, maxWorkers, matcher)
			if err != nil {
				return err
			}
			intmetrics.ChunksProcessed.Add(float64(len(batches)))

			nodeDaily := capacity.Reduce(capacityRows)
			clusterDaily := capacity.ReduceCluster(nodeDaily)
			format.JoinCapacity(summaries, nodeDaily, clusterDaily)
			format.Attach(summaries, cfg.ProviderUUID, cfg.Year, cfg.Month)
			return nil
		},
		Write: func() error {
			table := fmt.Sprintf("%s.reporting_ocpusagelineitem_daily_summary_p", cfg.Database.Schema)
			writeStart := time.Now()
			err := ld.Load(ctx, table, summaries, cfg.Truncate, cfg.BatchSize, cfg.UseBulkCopy)
			intmetrics.BulkLoadDurationSeconds.Observe(time.Since(writeStart).Seconds())
			if err != nil {
				return err
			}
			intmetrics.RowsWritten.Add(float64(len(summaries)))
			return nil
		},
		OnStateEnter: func(s pipeline.State) {
			logger.Info("pipeline state transition", "state", string(s))
		},
	}

	finalState, runErr := pipeline.Run(steps)

	intmetrics.RunsTotal.WithLabelValues(string(finalState)).Inc()
	intmetrics.RunDurationSeconds.WithLabelValues(string(finalState)).Observe(time.Since(start).Seconds())
	if dropped := diag.DroppedCount(); dropped > 0 {
		intmetrics.DiagnosticsEventsDroppedTotal.Add(float64(dropped))
		diag.Enqueue(diagnostics.Event{
			Kind:    "diagnostics_dropped",
			Message: "diagnostics writer dropped events this run",
			Fields:  []any{"count", dropped},
		})
	}

	logger.Info("run complete", "state", string(finalState), "rows_written", len(summaries), "duration", time.Since(start))
	return runErr
}
