package main

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"csvpipe/internal/config"
	"csvpipe/internal/ddl"
	"csvpipe/internal/storage"
)

func (c *cli) newExportCmd() *cobra.Command {
	var (
		pf        parseFlags
		kind      string
		dsn       string
		table     string
		batchSize int
		create    bool
		rulesPath string
	)
	cmd := &cobra.Command{
		Use:   "export [file|url|-]",
		Short: "Load a dataset into a database table",
		Long: `Export profiles the dataset (column SQL names and types), optionally
creates the table, then bulk-loads the rows in batches.

Kinds: sqlite, postgres, mssql, mysql. Unset flags fall back to the storage
section of --config.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := c.app.Storage
			if kind != "" {
				st.Kind = kind
			}
			if dsn != "" {
				st.DSN = dsn
			}
			if table != "" {
				st.Table = table
			}
			if cmd.Flags().Changed("batch-size") {
				st.BatchSize = batchSize
			}
			if cmd.Flags().Changed("create") {
				st.AutoCreateTable = create
			}
			if st.Kind == "" || strings.TrimSpace(st.DSN) == "" || strings.TrimSpace(st.Table) == "" {
				return errors.New("export needs --kind, --dsn and --table (or a storage config section)")
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

			ctx := cmd.Context()
			repo, err := storage.New(ctx, storage.Config{Kind: st.Kind, DSN: st.DSN, Table: st.Table})
			if err != nil {
				return err
			}
			defer repo.Close()

			res, err := storage.Export(ctx, repo, ds, storage.ExportOptions{
				Table:      st.Table,
				Dialect:    ddl.Dialect(st.Kind),
				AutoCreate: st.AutoCreateTable,
				BatchSize:  st.BatchSize,
				Job:        c.pipe.Job,
			})
			if err != nil {
				return err
			}
			slog.Info("export complete", "kind", st.Kind, "table", res.Table, "rows", res.Inserted, "batches", res.Batches)
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	pf.register(cmd)
	fs := cmd.Flags()
	fs.StringVar(&kind, "kind", "", "storage kind: "+strings.Join(storage.Kinds(), ", "))
	fs.StringVar(&dsn, "dsn", "", "database connection string")
	fs.StringVar(&table, "table", "", "destination table, optionally schema-qualified")
	fs.IntVar(&batchSize, "batch-size", storage.DefaultBatchSize, "rows per copy call")
	fs.BoolVar(&create, "create", false, "create the table from the dataset profile first")
	fs.StringVar(&rulesPath, "rules", "", "rule file applied before loading")
	return cmd
}
