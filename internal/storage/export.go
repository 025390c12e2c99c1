package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"csvpipe/internal/dataset"
	"csvpipe/internal/ddl"
	"csvpipe/internal/metrics"
	"csvpipe/internal/profile"
)

// DefaultBatchSize is used when ExportOptions.BatchSize is not positive.
const DefaultBatchSize = 1000

// ExportOptions controls a single dataset export.
type ExportOptions struct {
	Table      string
	Dialect    ddl.Dialect
	AutoCreate bool // run CREATE TABLE built from the dataset profile first
	BatchSize  int
	Job        string // metrics job label
}

// ExportResult summarizes an export.
type ExportResult struct {
	Table    string           `json:"table"`
	Columns  []profile.Column `json:"columns"`
	DDL      string           `json:"ddl,omitempty"`
	Inserted int64            `json:"inserted"`
	Batches  int64            `json:"batches"`
}

// Export profiles ds, optionally creates the destination table, then
// streams the rows to repo in batches. Column names are the profiled SQL
// field names, not the raw headers.
func Export(ctx context.Context, repo Repository, ds dataset.Dataset, opt ExportOptions) (res ExportResult, err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(opt.Job, "export", err, time.Since(start)) }()

	if repo == nil {
		return ExportResult{}, errors.New("storage: nil repository")
	}
	if strings.TrimSpace(opt.Table) == "" {
		return ExportResult{}, errors.New("storage: table must not be empty")
	}
	if ds.Empty() {
		return ExportResult{}, errors.New("storage: dataset has no columns")
	}
	if opt.BatchSize <= 0 {
		opt.BatchSize = DefaultBatchSize
	}

	cols := profile.Profile(ds)
	res = ExportResult{Table: opt.Table, Columns: cols}

	if opt.AutoCreate {
		stmt, err := ddl.BuildCreateTableSQL(opt.Dialect, profile.TableDef(cols, opt.Table, opt.Dialect))
		if err != nil {
			return res, fmt.Errorf("build ddl: %w", err)
		}
		if err := repo.Exec(ctx, stmt); err != nil {
			return res, fmt.Errorf("create table %s: %w", opt.Table, err)
		}
		res.DDL = stmt
		slog.Info("export: table created", "table", opt.Table, "dialect", opt.Dialect)
	}

	fields := make([]string, len(cols))
	for i, c := range cols {
		fields[i] = c.Field
	}

	rows := profile.Rows(ds, cols)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan []any, opt.BatchSize)
	go func() {
		defer close(in)
		for _, r := range rows {
			select {
			case in <- r:
			case <-ctx.Done():
				return
			}
		}
	}()

	n, batches, err := LoadBatches(ctx, fields, in, opt.BatchSize, repo.CopyFrom)
	res.Inserted, res.Batches = n, batches
	metrics.RecordRow(opt.Job, "exported", n)
	metrics.RecordBatches(opt.Job, batches)
	if err != nil {
		return res, fmt.Errorf("export to %s: %w", opt.Table, err)
	}
	slog.Info("export: done", "table", opt.Table, "rows", n, "batches", batches)
	return res, nil
}
