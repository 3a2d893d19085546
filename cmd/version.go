package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "pharmcheck", version)

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		b, err := loadBank(cfg)
		if err != nil {
			return err
		}
		source := "embedded"
		if cfg.BankPath != "" {
			source = cfg.BankPath
		}
		fmt.Fprintf(out, "question bank %s (%s)\n", b.Version, source)
		return nil
	},
}
