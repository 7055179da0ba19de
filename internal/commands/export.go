package commands

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zombor/billlens/internal/settlement"
)

func newExportCommand() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "export <export.json>",
		Short: "Write a group's expenses, settlements and balances as CSV files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			export, err := loadExport(args[0])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}

			files := map[string][][]string{
				"expenses.csv":    expenseRows(export.Expenses),
				"settlements.csv": settlementRows(export.Settlements),
				"balances.csv":    balanceRows(export.Validate()),
			}
			names := make([]string, 0, len(files))
			for name := range files {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				path := filepath.Join(outDir, name)
				if err := writeCSV(path, files[name]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", ".", "directory to write the CSV files to")

	return cmd
}

func expenseRows(expenses []settlement.Expense) [][]string {
	rows := [][]string{{"id", "date", "merchant", "category", "paid_by", "amount", "splits", "note"}}
	for _, e := range expenses {
		ids := make([]string, 0, len(e.Splits))
		for id := range e.Splits {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		splits := make([]string, len(ids))
		for i, id := range ids {
			splits[i] = id + ":" + e.Splits[id].StringFixed(2)
		}

		rows = append(rows, []string{
			e.ID, e.Date, e.Merchant, e.Category, e.PaidBy,
			e.Amount.StringFixed(2), strings.Join(splits, ";"), e.Note,
		})
	}
	return rows
}

func settlementRows(settlements []settlement.Settlement) [][]string {
	rows := [][]string{{"id", "date", "from", "to", "amount", "status"}}
	for _, s := range settlements {
		rows = append(rows, []string{s.ID, s.Date, s.FromID, s.ToID, s.Amount.StringFixed(2), s.Status})
	}
	return rows
}

func balanceRows(report *settlement.Report) [][]string {
	rows := [][]string{{"member", "balance"}}
	for _, b := range report.Ranked() {
		rows = append(rows, []string{b.MemberID, b.Amount.StringFixed(2)})
	}
	return rows
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
