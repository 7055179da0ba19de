package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zombor/billlens/internal/config"
)

func newInitRulesCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-rules [path]",
		Short: "Write the built-in merchant catalog and keywords to a YAML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "billlens.yaml"
			if len(args) > 0 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}
