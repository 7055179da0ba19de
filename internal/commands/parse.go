package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zombor/billlens/internal/config"
	"github.com/zombor/billlens/internal/parsing"
)

// parseOutput is what parse prints
type parseOutput struct {
	*parsing.ParsedReceipt
	SuggestedSplit *parsing.SplitSuggestion `json:"suggested_split,omitempty"`
}

func newParseCommand() *cobra.Command {
	var (
		hint      string
		currency  string
		members   []string
		rulesPath string
	)

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse OCR text into a receipt (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			cfg, err := config.LoadOrDefault(rulesPath)
			if err != nil {
				return fmt.Errorf("loading rules: %w", err)
			}
			if strings.TrimSpace(currency) == "" {
				currency = cfg.Currency
			}

			out := parseOutput{ParsedReceipt: parsing.Parse(text, hint, currency, cfg.Rules())}
			if len(members) > 0 {
				out.SuggestedSplit = parsing.SuggestSplit(out.Total, out.Items, members)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&hint, "hint", "", "merchant name to use instead of detection")
	cmd.Flags().StringVar(&currency, "currency", "", "currency code (default from the rules file, else INR)")
	cmd.Flags().StringSliceVar(&members, "members", nil, "member ids to suggest a split for")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "YAML rules file with merchants and summary keywords")

	return cmd
}

// readInput reads a whole file, or stdin for "-"
func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}
