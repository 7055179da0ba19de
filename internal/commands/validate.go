package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zombor/billlens/internal/settlement"
)

func newValidateCommand() *cobra.Command {
	var audit bool

	cmd := &cobra.Command{
		Use:   "validate <export.json>",
		Short: "Recompute a group's balances and check they sum to zero",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			export, err := loadExport(args[0])
			if err != nil {
				return err
			}

			report := export.Validate()
			out := cmd.OutOrStdout()

			if audit {
				for _, line := range report.Audit {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out)
			}

			fmt.Fprintln(out, "Balances:")
			for _, b := range report.Ranked() {
				fmt.Fprintf(out, "  %-20s %s\n", b.MemberID, b.Amount.StringFixed(2))
			}
			fmt.Fprintf(out, "Status: %s\n", report.Status)

			if report.Status == settlement.StatusError {
				return fmt.Errorf("balances do not sum to zero (net %.2f)", report.Net)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&audit, "audit", true, "print the step by step audit trail")

	return cmd
}

func loadExport(path string) (*settlement.Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening export: %w", err)
	}
	defer f.Close()

	return settlement.ReadExport(f)
}
