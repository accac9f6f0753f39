package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jask/keyledger/internal/config"
	"github.com/jask/keyledger/internal/database"
	"github.com/jask/keyledger/internal/database/repository"
	"github.com/jask/keyledger/internal/logging"
	"github.com/jask/keyledger/internal/prefs"
	"github.com/jask/keyledger/internal/sample"
	"github.com/jask/keyledger/internal/service"
)

func newImportCmd(a *app) *cobra.Command {
	var source string
	var noReapply bool
	cmd := &cobra.Command{
		Use:   "import <statement.csv>",
		Short: "Import a bank statement CSV (Date, Details, Amount, Debit/Credit)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, parseErrs, err := service.ReadStatementCSV(f, a.csvOptions())
			if err != nil {
				return err
			}
			if source == "" {
				source = filepath.Base(args[0])
			}
			for _, e := range parseErrs {
				a.log.WithField(logging.FieldSource, source).WithError(e).Warn("Rejected row")
			}
			res, err := a.ingest.ImportBatch(ctx, source, rows, parseErrs...)
			if err != nil {
				return err
			}

			var reapplied int
			if len(res.Imported) > 0 && !noReapply {
				changes, err := a.categorizer.ReapplyAll(ctx)
				if err != nil {
					return err
				}
				reapplied = len(changes)
			}
			renderImport(cmd.OutOrStdout(), res, reapplied)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "name recorded in the import history (default: file name)")
	cmd.Flags().BoolVar(&noReapply, "no-reapply", false, "skip reapplying the dictionary after the import")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	var date, details, amount, direction, category string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a transaction by hand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDate(date, a.cfg.Import.DateFormat)
			if err != nil {
				return err
			}
			amt, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(amount), ",", ""))
			if err != nil {
				return fmt.Errorf("invalid amount %q", amount)
			}
			dir, err := repository.ParseDirection(direction)
			if err != nil {
				return err
			}
			t, added, err := a.ingest.AddManual(cmd.Context(), service.Row{
				Date: d, Details: details, Amount: amt, DebitOrCredit: dir,
			}, category)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !added {
				fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("Already recorded as #%d", t.ID)))
			}
			renderTransactions(out, []repository.Transaction{t}, a.cfg.Import.DateFormat)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "transaction date (import.date_format or YYYY-MM-DD)")
	cmd.Flags().StringVar(&details, "details", "", "description as it appears on the statement")
	cmd.Flags().StringVar(&amount, "amount", "", "non-negative amount")
	cmd.Flags().StringVar(&direction, "type", "Debit", "Debit or Credit")
	cmd.Flags().StringVar(&category, "category", "", "category (default: label from the dictionary)")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("details")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var csvPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			txs, err := a.reporter.LoadTransactions(cmd.Context())
			if err != nil {
				return err
			}
			switch csvPath {
			case "":
				renderTransactions(cmd.OutOrStdout(), txs, a.cfg.Import.DateFormat)
				return nil
			case "-":
				return service.WriteTransactionsCSV(cmd.OutOrStdout(), txs, a.cfg.Import.DateFormat, a.csvOptions().Delimiter)
			}
			f, err := os.Create(csvPath)
			if err != nil {
				return err
			}
			if err := service.WriteTransactionsCSV(f, txs, a.cfg.Import.DateFormat, a.csvOptions().Delimiter); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Wrote %d transactions to %s", len(txs), csvPath)))
			return nil
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "write CSV to this file instead of a table (- for stdout)")
	return cmd
}

func newCategoriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "categories", Short: "Manage categories"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := a.categorizer.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range cats {
				fmt.Fprintln(cmd.OutOrStdout(), categoryStyle(c).Render(c))
			}
			return nil
		},
	}, &cobra.Command{
		Use:   "add <name>",
		Short: "Register a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.categorizer.AddCategory(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Category "+strings.TrimSpace(args[0])+" ready"))
			return nil
		},
	})
	return cmd
}

func newKeywordsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "keywords", Short: "Manage the keyword dictionary"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List keywords by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kws, err := a.categorizer.Keywords(cmd.Context())
			if err != nil {
				return err
			}
			renderKeywords(cmd.OutOrStdout(), kws)
			return nil
		},
	}, &cobra.Command{
		Use:   "add <category> <keyword>",
		Short: "Add a keyword and recategorize matching transactions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.categorizer.AddKeyword(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			renderKeywordResult(cmd.OutOrStdout(), res)
			return nil
		},
	})
	return cmd
}

func newRecategorizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recategorize <id> <category>",
		Short: "Set a transaction's category and learn its details as a keyword",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid transaction id %q", args[0])
			}
			res, err := a.categorizer.Recategorize(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "#%d %s -> %s\n", id, categoryStyle(res.Previous).Render(res.Previous),
				categoryStyle(res.Transaction.Category).Render(res.Transaction.Category))
			if res.Overridden() {
				fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf(
					"%s was not kept: a keyword of %s with the same length also matches",
					res.Requested, res.Transaction.Category)))
			}
			if res.Learned != nil {
				renderKeywordResult(out, *res.Learned)
			}
			if len(res.Reapplied) > 0 {
				fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("Reapplied dictionary: %d transactions recategorized", len(res.Reapplied))))
			}
			return nil
		},
	}
}

func newReapplyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reapply",
		Short: "Reapply the whole dictionary to every transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			changes, err := a.categorizer.ReapplyAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("%d transactions recategorized", len(changes))))
			return nil
		},
	}
}

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show spending totals by category and month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.reporter.Summary(cmd.Context())
			if err != nil {
				return err
			}
			renderSummary(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func newDuplicatesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicates",
		Short: "List transactions that look like the same charge recorded twice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := a.duplicates.Find(cmd.Context())
			if err != nil {
				return err
			}
			renderDuplicates(cmd.OutOrStdout(), pairs, a.cfg.Import.DateFormat)
			return nil
		},
	}
}

func newDictionaryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "dictionary", Short: "Export or import the keyword dictionary as YAML"}
	cmd.AddCommand(&cobra.Command{
		Use:   "export [file]",
		Short: "Write the dictionary to a YAML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := dictionaryPath(args)
			if err != nil {
				return err
			}
			d, err := a.categorizer.Dictionary(cmd.Context())
			if err != nil {
				return err
			}
			if err := prefs.SaveDictionary(path, d); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Exported %d keywords to %s", d.Len(), path)))
			return nil
		},
	}, &cobra.Command{
		Use:   "import [file]",
		Short: "Add every keyword of a YAML file and recategorize",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := dictionaryPath(args)
			if err != nil {
				return err
			}
			entries, err := prefs.LoadDictionary(path)
			if err != nil {
				return err
			}
			results, err := a.categorizer.AddKeywords(cmd.Context(), entries)
			if err != nil {
				return err
			}
			added, changed := 0, 0
			for _, r := range results {
				if r.Added {
					added++
				}
				changed += len(r.Changes)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(
				fmt.Sprintf("Imported %d new keywords (%d already known), %d transactions recategorized", added, len(results)-added, changed)))
			return nil
		},
	})
	return cmd
}

func dictionaryPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	return prefs.DefaultPath()
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List past imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			batches, err := a.reporter.History(cmd.Context())
			if err != nil {
				return err
			}
			renderHistory(cmd.OutOrStdout(), batches)
			return nil
		},
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the database schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			version, dirty, err := database.SchemaVersion(a.cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("schema version: %w", err)
			}
			line := fmt.Sprintf("schema %d  %s", version, a.cfg.Database.Path)
			if dirty {
				fmt.Fprintln(cmd.OutOrStdout(), errorStyle.Render(line+"  (dirty: a migration did not finish)"))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
			return nil
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every transaction, keyword, category and import record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			if err := a.maintenance.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), warningStyle.Render("Ledger reset"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Manage the configuration file"}
	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Write the effective configuration to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.SaveFile(a.configPath, a.cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Configuration saved"))
			return nil
		},
	})
	return cmd
}

func parseDate(s, layout string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range []string{layout, time.DateOnly} {
		if l == "" {
			continue
		}
		if d, err := time.Parse(l, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want %q or YYYY-MM-DD)", s, layout)
}

func newDemoCmd(a *app) *cobra.Command {
	var rows int
	var seed int64
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Load generated sample transactions and a starter dictionary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := sample.Seed(cmd.Context(), a.ingest, a.categorizer, rows, seed)
			if err != nil {
				return err
			}
			renderImport(cmd.OutOrStdout(), res, 0)
			return nil
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 30, "number of transactions to generate")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	return cmd
}
