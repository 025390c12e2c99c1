package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"csvpipe/internal/config"
	"csvpipe/internal/datasource"
	"csvpipe/internal/datasource/file"
	"csvpipe/internal/datasource/httpds"
	pjson "csvpipe/internal/parser/json"
	"csvpipe/internal/pipeline"
	"csvpipe/internal/query"
	"csvpipe/internal/render"
	"csvpipe/internal/transformer"
	"csvpipe/internal/validate"
)

// parseFlags are the tokenizer settings shared by commands that read
// delimited input.
type parseFlags struct {
	delimiter string
	noHeaders bool
	strict    bool
	keepEmpty bool
}

func (f *parseFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.delimiter, "delimiter", "d", "", `field delimiter; accepts "\t" or "tab"`)
	fs.BoolVar(&f.noHeaders, "no-headers", false, "first record is data; columns are named Column 1..N")
	fs.BoolVar(&f.strict, "strict", false, "honor quoted fields (RFC 4180 tokenizer)")
	fs.BoolVar(&f.keepEmpty, "keep-empty-lines", false, "keep blank lines as records")
}

// options renders the set flags as an option bag; unset flags fall back to
// the configured parser defaults in pipeline.ParseOptions.
func (f parseFlags) options() config.Options {
	o := config.Options{}
	if f.delimiter != "" {
		o["delimiter"] = string(decodeDelimiter(f.delimiter))
	}
	if f.noHeaders {
		o["hasHeaders"] = false
	}
	if f.strict {
		o["mode"] = "strict"
	}
	if f.keepEmpty {
		o["skipEmptyLines"] = false
	}
	return o
}

// decodeDelimiter maps escape spellings to the delimiter rune.
func decodeDelimiter(s string) rune {
	switch strings.ToLower(s) {
	case `\t`, "tab", "tsv":
		return '\t'
	case "comma":
		return ','
	case "semicolon":
		return ';'
	case "pipe":
		return '|'
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return ','
	}
	return r
}

// sourceFor maps a command argument to a Source: http(s) URLs are fetched
// with the configured client, "-" or nothing reads stdin, anything else is a
// local path.
func (c *cli) sourceFor(arg string) datasource.Source {
	switch {
	case strings.HasPrefix(arg, "http://"), strings.HasPrefix(arg, "https://"):
		return httpds.NewSource(c.fetcher, arg)
	case arg == "":
		return file.NewLocal("-")
	default:
		return file.NewLocal(arg)
	}
}

func argOrStdin(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseInput reads and parses one source with the command's flags.
func (c *cli) parseInput(ctx context.Context, arg string, pf parseFlags) (pipeline.ParseResult, error) {
	opt, err := pipeline.ParseOptions(c.app.Parser, pf.options())
	if err != nil {
		return pipeline.ParseResult{}, err
	}
	res, _, err := c.pipe.ParseSource(ctx, c.sourceFor(arg), opt)
	return res, err
}

func (c *cli) newParseCmd() *cobra.Command {
	var pf parseFlags
	cmd := &cobra.Command{
		Use:   "parse [file|url|-]",
		Short: "Parse delimited input and print the dataset as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.parseInput(cmd.Context(), argOrStdin(args), pf)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	pf.register(cmd)
	return cmd
}

// fileReport is one entry of the validate command output.
type fileReport struct {
	File        string          `json:"file"`
	DroppedRows int             `json:"droppedRows"`
	Report      validate.Report `json:"report"`
}

func (c *cli) newValidateCmd() *cobra.Command {
	var (
		pf       parseFlags
		listPath string
		jobs     int
		failOn   bool
	)
	cmd := &cobra.Command{
		Use:   "validate [files...]",
		Short: "Validate one or more inputs concurrently",
		Long: `Validate parses every input and reports findings per file. Inputs are
read concurrently, at most --jobs at a time. With --list, paths are also read
from a file (one per line, # comments allowed).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := append([]string{}, args...)
			if listPath != "" {
				more, err := file.ReadList(listPath)
				if err != nil {
					return err
				}
				paths = append(paths, more...)
			}
			if len(paths) == 0 {
				paths = []string{"-"}
			}

			reports := make([]fileReport, len(paths))
			g, gctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(jobs, 1))
			for i, p := range paths {
				g.Go(func() error {
					res, err := c.parseInput(gctx, p, pf)
					if err != nil {
						return fmt.Errorf("%s: %w", p, err)
					}
					reports[i] = fileReport{File: p, DroppedRows: res.DroppedRows, Report: c.pipe.Validate(res.Dataset)}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), reports); err != nil {
				return err
			}
			if failOn {
				if n := filesWithErrors(reports); n > 0 {
					return fmt.Errorf("%d file(s) have validation errors", n)
				}
			}
			return nil
		},
	}
	pf.register(cmd)
	cmd.Flags().StringVar(&listPath, "list", "", "file listing input paths, one per line")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "inputs validated at once")
	cmd.Flags().BoolVar(&failOn, "fail-on-error", false, "exit non-zero when any finding has error severity")
	return cmd
}

func filesWithErrors(reports []fileReport) int {
	n := 0
	for _, r := range reports {
		for _, f := range r.Report.Findings {
			if f.Severity == validate.SeverityError {
				n++
				break
			}
		}
	}
	return n
}

// loadRules reads and lints a rule file, printing every issue to stderr.
func loadRules(cmd *cobra.Command, path string) ([]config.Rule, error) {
	rules, err := config.LoadRules(path)
	if err != nil {
		return nil, err
	}
	issues := transformer.Lint(rules)
	for _, iss := range issues {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return nil, fmt.Errorf("rules %s are invalid", path)
	}
	return rules, nil
}

func (c *cli) newTransformCmd() *cobra.Command {
	var (
		pf        parseFlags
		rulesPath string
		selected  []string
		filter    string
		distinct  bool
		sortCol   string
		desc      bool
		format    string
	)
	cmd := &cobra.Command{
		Use:   "transform [file|url|-]",
		Short: "Apply transformation rules and a query, then print the result",
		Long: `Transform parses the input, applies the rules from --rules in order,
then projects, filters, de-duplicates and sorts. Output is delimited text by
default, the full result payload with --format json, or a SpreadsheetML
workbook (.xls) with --format xlsx.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "csv", "json", "xlsx":
			default:
				return fmt.Errorf("unknown format %q (csv|json|xlsx)", format)
			}
			var rules []config.Rule
			if rulesPath != "" {
				var err error
				if rules, err = loadRules(cmd, rulesPath); err != nil {
					return err
				}
			}
			parsed, err := c.parseInput(cmd.Context(), argOrStdin(args), pf)
			if err != nil {
				return err
			}
			ds := parsed.Dataset
			if len(rules) > 0 {
				ds = c.pipe.ApplyRules(ds, rules).Dataset
			}

			dir := query.Asc
			if desc {
				dir = query.Desc
			}
			res := c.pipe.Transform(ds, query.Options{
				SelectedColumns: selected,
				FilterText:      filter,
				Distinct:        distinct,
				SortColumn:      sortCol,
				SortDirection:   dir,
			})
			switch format {
			case "json":
				return printJSON(cmd.OutOrStdout(), res)
			case "xlsx":
				doc, err := render.Render(res.Dataset, render.FormatXLSX)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(doc.Body)
				return err
			}
			out := c.pipe.Unparse(res.Dataset, pipeline.UnparseOptions(c.app.Parser, pf.options()))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	pf.register(cmd)
	fs := cmd.Flags()
	fs.StringVar(&rulesPath, "rules", "", "rule file (JSON or YAML)")
	fs.StringSliceVar(&selected, "select", nil, "columns to keep, in order")
	fs.StringVar(&filter, "filter", "", "keep rows where any cell contains this text (case-insensitive)")
	fs.BoolVar(&distinct, "distinct", false, "drop duplicate rows")
	fs.StringVar(&sortCol, "sort", "", "column to sort by")
	fs.BoolVar(&desc, "desc", false, "sort descending")
	fs.StringVar(&format, "format", "csv", "output format: csv, json or xlsx")
	return cmd
}

func (c *cli) newUnparseCmd() *cobra.Command {
	var (
		delimiter string
		noHeaders bool
	)
	cmd := &cobra.Command{
		Use:   "unparse [file.json|-]",
		Short: "Render JSON rows (array or one row per line) as delimited text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := datasource.ReadLimited(cmd.Context(), c.sourceFor(argOrStdin(args)), c.pipe.Limit())
			if err != nil {
				return err
			}
			ds, dropped, err := pjson.DecodeAll(bytes.NewReader(b), pjson.Options{AllowArrays: true})
			if err != nil {
				return err
			}
			if dropped > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "dropped %d row(s) of the wrong width\n", dropped)
			}
			o := config.Options{}
			if delimiter != "" {
				o["delimiter"] = string(decodeDelimiter(delimiter))
			}
			if noHeaders {
				o["hasHeaders"] = false
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), c.pipe.Unparse(ds, pipeline.UnparseOptions(c.app.Parser, o)))
			return err
		},
	}
	cmd.Flags().StringVarP(&delimiter, "delimiter", "d", "", "field delimiter")
	cmd.Flags().BoolVar(&noHeaders, "no-headers", false, "omit the header line")
	return cmd
}

func (c *cli) newLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <rules-file>",
		Short: "Check a rule file against the schema and compile every rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := loadRules(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rule(s) ok, %d enabled\n", len(rules), transformer.CountEnabled(rules))
			return nil
		},
	}
}
