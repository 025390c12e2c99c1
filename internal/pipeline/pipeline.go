// Package pipeline wires the parser, validator, rule engine and query stage
// into the operations exposed by the CLI and the HTTP API, and shapes their
// results into the payloads those surfaces return.
//
// Stages are synchronous and pure; the pipeline only adds instrumentation
// (metrics and debug logs) and the input size ceiling.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"csvpipe/internal/config"
	"csvpipe/internal/dataset"
	"csvpipe/internal/datasource"
	"csvpipe/internal/logging"
	"csvpipe/internal/metrics"
	pcsv "csvpipe/internal/parser/csv"
	"csvpipe/internal/query"
	"csvpipe/internal/render"
	"csvpipe/internal/transformer"
	"csvpipe/internal/validate"
)

var (
	// ErrNoData means the input yielded no headers after parsing.
	ErrNoData = errors.New("pipeline: no data found")
	// ErrSizeLimit means the input was refused before parsing for exceeding
	// the configured ceiling.
	ErrSizeLimit = errors.New("pipeline: input exceeds size limit")
	// ErrNoColumns means an export selected none of the dataset's columns.
	ErrNoColumns = errors.New("pipeline: no columns to export")
)

// Pipeline carries the per-process knobs shared by every operation. The zero
// value is usable: no job label, the default ceiling and the standard
// validation rules.
type Pipeline struct {
	// Job labels every metric this pipeline records.
	Job string
	// MaxBytes is the input ceiling for Inspect. Zero means
	// config.DefaultMaxBytes; a negative value disables the check.
	MaxBytes int64
	// Validator runs for Validate, ApplyRules and Inspect.
	Validator validate.Validator
}

// New builds a Pipeline from application config.
func New(app config.App) *Pipeline {
	return &Pipeline{
		Job:      app.Metrics.Job,
		MaxBytes: app.Limits.MaxBytes,
		Validator: validate.Validator{
			RequiredColumns: app.Validate.RequiredColumns,
			MaxTextLen:      app.Validate.MaxTextLen,
			EchoLen:         app.Validate.EchoLen,
			FlagEmpty:       app.Validate.FlagEmpty,
		},
	}
}

// Limit returns the effective input ceiling in bytes; zero means none.
func (p *Pipeline) Limit() int64 { return p.maxBytes() }

func (p *Pipeline) maxBytes() int64 {
	switch {
	case p.MaxBytes == 0:
		return config.DefaultMaxBytes
	case p.MaxBytes < 0:
		return 0
	default:
		return p.MaxBytes
	}
}

// ParseResult is the parse payload.
type ParseResult struct {
	Headers     []string         `json:"headers"`
	Rows        []dataset.Record `json:"rows"`
	RowCount    int              `json:"rowCount"`
	ColumnCount int              `json:"columnCount"`
	DroppedRows int              `json:"droppedRows"`

	Dataset dataset.Dataset `json:"-"`
}

// ParseDelimited parses text. Empty or blank input is an empty result, not
// an error.
func (p *Pipeline) ParseDelimited(text string, opt pcsv.Options) ParseResult {
	start := time.Now()
	ds, dropped := pcsv.NewParser(opt).ParseString(text)
	metrics.RecordStep(p.Job, "parse", nil, time.Since(start))
	p.recordParsed(ds, dropped)
	slog.Debug("parsed delimited text", "rows", ds.RowCount(), "columns", ds.ColumnCount(), "dropped", dropped)
	return parseResult(ds, dropped)
}

func parseResult(ds dataset.Dataset, dropped int) ParseResult {
	return ParseResult{
		Headers:     headersOf(ds),
		Rows:        ds.Records(),
		RowCount:    ds.RowCount(),
		ColumnCount: ds.ColumnCount(),
		DroppedRows: dropped,
		Dataset:     ds,
	}
}

func (p *Pipeline) recordParsed(ds dataset.Dataset, dropped int) {
	metrics.RecordRow(p.Job, "parsed", int64(ds.RowCount()))
	metrics.RecordRow(p.Job, "dropped", int64(dropped))
}

// Unparse renders ds as delimited text.
func (p *Pipeline) Unparse(ds dataset.Dataset, opt pcsv.UnparseOptions) string {
	start := time.Now()
	out := pcsv.Unparse(ds, opt)
	metrics.RecordStep(p.Job, "unparse", nil, time.Since(start))
	return out
}

// Validate runs the configured validator over ds.
func (p *Pipeline) Validate(ds dataset.Dataset) validate.Report {
	start := time.Now()
	rep := p.Validator.Report(ds)
	metrics.RecordStep(p.Job, "validate", nil, time.Since(start))
	metrics.RecordRow(p.Job, "findings", int64(len(rep.Findings)))
	slog.Debug("validated dataset", "rows", rep.TotalRows, "findings", len(rep.Findings))
	return rep
}

// TransformResult is the query payload. SelectedColumns and SortColumn are
// null when unset.
type TransformResult struct {
	OriginalRows    int              `json:"originalRows"`
	TransformedRows int              `json:"transformedRows"`
	SelectedColumns []string         `json:"selectedColumns"`
	AppliedFilters  []string         `json:"appliedFilters"`
	SortColumn      *string          `json:"sortColumn"`
	SortDirection   query.Direction  `json:"sortDirection"`
	Data            []dataset.Record `json:"data"`

	Dataset dataset.Dataset `json:"-"`
}

// Transform runs the query stage.
func (p *Pipeline) Transform(ds dataset.Dataset, opt query.Options) TransformResult {
	start := time.Now()
	out := query.Run(ds, opt)
	metrics.RecordStep(p.Job, "query", nil, time.Since(start))
	metrics.RecordRow(p.Job, "filtered", int64(ds.RowCount()-out.RowCount()))

	res := TransformResult{
		OriginalRows:    ds.RowCount(),
		TransformedRows: out.RowCount(),
		AppliedFilters:  []string{},
		SortDirection:   query.ParseDirection(string(opt.SortDirection)),
		Data:            out.Records(),
		Dataset:         out,
	}
	if len(opt.SelectedColumns) > 0 {
		res.SelectedColumns = opt.SelectedColumns
	}
	if f := opt.FilterText; strings.TrimSpace(f) != "" {
		res.AppliedFilters = []string{f}
	}
	if opt.SortColumn != "" {
		col := opt.SortColumn
		res.SortColumn = &col
	}
	slog.Debug("queried dataset", "in", res.OriginalRows, "out", res.TransformedRows)
	return res
}

// RulesResult is the payload of a rule run. Errors re-validates the output.
type RulesResult struct {
	Data                   []dataset.Record         `json:"data"`
	Errors                 []validate.Finding       `json:"errors"`
	TransformationsApplied int                      `json:"transformationsApplied"`
	TotalRows              int                      `json:"totalRows"`
	TotalColumns           int                      `json:"totalColumns"`
	Rules                  []transformer.RuleResult `json:"rules"`

	Dataset dataset.Dataset `json:"-"`
}

// ApplyRules folds rules over ds and validates the result.
func (p *Pipeline) ApplyRules(ds dataset.Dataset, rules []config.Rule) RulesResult {
	start := time.Now()
	tr := transformer.Apply(rules, ds)
	metrics.RecordStep(p.Job, "transform", nil, time.Since(start))

	rep := p.Validate(tr.Dataset)
	for _, r := range tr.Rules {
		if r.Error != "" {
			slog.Debug("rule turned into a no-op", "id", r.ID, "type", r.Kind, "error", r.Error)
		}
	}
	return RulesResult{
		Data:                   tr.Dataset.Records(),
		Errors:                 rep.Findings,
		TransformationsApplied: tr.Applied,
		TotalRows:              rep.TotalRows,
		TotalColumns:           rep.TotalColumns,
		Rules:                  tr.Rules,
		Dataset:                tr.Dataset,
	}
}

// InspectResult is the upload inspection payload.
type InspectResult struct {
	Headers     []string           `json:"headers"`
	Data        []dataset.Record   `json:"data"`
	Errors      []validate.Finding `json:"errors"`
	RowCount    int                `json:"rowCount"`
	ColumnCount int                `json:"columnCount"`
	DroppedRows int                `json:"droppedRows"`
	FileName    string             `json:"fileName"`
	FileSize    int64              `json:"fileSize"`

	Dataset dataset.Dataset `json:"-"`
}

// ParseSource reads src through the size ceiling and parses it, decoding a
// UTF-8 or UTF-16 byte order mark. It returns the payload and the number of
// bytes read.
func (p *Pipeline) ParseSource(ctx context.Context, src datasource.Source, opt pcsv.Options) (ParseResult, int64, error) {
	b, err := datasource.ReadLimited(ctx, src, p.maxBytes())
	if err != nil {
		if errors.Is(err, datasource.ErrTooLarge) {
			return ParseResult{}, 0, fmt.Errorf("%w: %w", ErrSizeLimit, err)
		}
		return ParseResult{}, 0, err
	}

	start := time.Now()
	ds, dropped, err := pcsv.NewParser(opt).Parse(bytes.NewReader(b))
	metrics.RecordStep(p.Job, "parse", err, time.Since(start))
	if err != nil {
		return ParseResult{}, 0, err
	}
	p.recordParsed(ds, dropped)
	logging.FromContext(ctx).Debug("parsed source", "name", src.Name(), "bytes", len(b), "rows", ds.RowCount(), "dropped", dropped)
	return parseResult(ds, dropped), int64(len(b)), nil
}

// Inspect reads src through the size ceiling, parses and validates it.
// It fails with ErrSizeLimit before parsing and with ErrNoData when the
// input yields no headers. A header line without data rows is a valid,
// empty result.
func (p *Pipeline) Inspect(ctx context.Context, src datasource.Source, opt pcsv.Options) (res InspectResult, err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(p.Job, "inspect", err, time.Since(start)) }()

	parsed, size, err := p.ParseSource(ctx, src, opt)
	if err != nil {
		return InspectResult{}, err
	}
	ds := parsed.Dataset
	if ds.Empty() {
		return InspectResult{}, fmt.Errorf("%w in %s", ErrNoData, src.Name())
	}

	rep := p.Validate(ds)
	return InspectResult{
		Headers:     parsed.Headers,
		Data:        parsed.Rows,
		Errors:      rep.Findings,
		RowCount:    parsed.RowCount,
		ColumnCount: parsed.ColumnCount,
		DroppedRows: parsed.DroppedRows,
		FileName:    src.Name(),
		FileSize:    size,
		Dataset:     ds,
	}, nil
}

// Export projects ds onto columns, keeping every column when columns is
// empty, and renders the result in the named format (csv, xlsx or json).
// Unknown column names are skipped. It fails with ErrNoData for a dataset
// without rows, ErrNoColumns when no column is left, and
// render.ErrUnknownFormat for any other format, checked in that order.
func (p *Pipeline) Export(ds dataset.Dataset, columns []string, format string) (doc render.Document, err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(p.Job, "export", err, time.Since(start)) }()

	if ds.RowCount() == 0 {
		return render.Document{}, ErrNoData
	}
	if len(columns) > 0 {
		ds = query.Project(ds, columns)
	}
	if ds.ColumnCount() == 0 {
		return render.Document{}, ErrNoColumns
	}
	f, err := render.ParseFormat(format)
	if err != nil {
		return render.Document{}, err
	}
	doc, err = render.Render(ds, f)
	if err != nil {
		return render.Document{}, err
	}
	metrics.RecordRow(p.Job, "exported", int64(ds.RowCount()))
	slog.Debug("rendered dataset", "format", f, "rows", ds.RowCount(), "bytes", len(doc.Body))
	return doc, nil
}

// headersOf never returns nil so payloads encode [] rather than null.
func headersOf(ds dataset.Dataset) []string {
	if ds.Headers == nil {
		return []string{}
	}
	return ds.Headers
}
