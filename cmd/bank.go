package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pharmcheck/pharmcheck/internal/bank"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var bankCmd = &cobra.Command{
	Use:   "bank",
	Short: "Inspect and validate question banks",
}

var bankValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a question bank file (default: the configured bank)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			cfg.BankPath = args[0]
		}
		b, err := loadBank(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ok: version %s, %d questions, %d roles\n", b.Version, b.Len(), len(b.Roles))
		if b.Len() == 0 {
			fmt.Fprintln(out, "warning: the bank has no questions; the quiz will refuse to start")
		}
		if embedded, err := bank.Default(); err == nil && cfg.BankPath != "" {
			if bank.CompareVersions(b.Version, embedded.Version) < 0 {
				fmt.Fprintf(out, "note: the embedded bank is newer (%s)\n", embedded.Version)
			}
		}
		return nil
	},
}

var bankShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the questions and options of the configured bank",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		weights, _ := cmd.Flags().GetBool("weights")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		b, err := loadBank(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch format {
		case "text":
			writeBankText(out, b, weights)
			return nil
		case "yaml":
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(b); err != nil {
				return err
			}
			return enc.Close()
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(b)
		default:
			return fmt.Errorf("unknown format %q (want text, yaml or json)", format)
		}
	},
}

func init() {
	bankShowCmd.Flags().StringP("format", "f", "text", "Output format: text, yaml or json")
	bankShowCmd.Flags().Bool("weights", false, "Show role weights for each option")

	bankCmd.AddCommand(bankValidateCmd)
	bankCmd.AddCommand(bankShowCmd)
}

func writeBankText(w io.Writer, b *bank.Bank, weights bool) {
	title := b.Title
	if title == "" {
		title = "Question bank"
	}
	fmt.Fprintf(w, "%s (%s)\n", title, b.Version)
	fmt.Fprintln(w, strings.Repeat("─", 72))

	for i, q := range b.Questions {
		fmt.Fprintf(w, "%2d. [%s] %s\n", i+1, q.ID, q.Text)
		for j, o := range q.Options() {
			fmt.Fprintf(w, "      %d) %s", j+1, o.Label)
			if weights {
				fmt.Fprintf(w, "  %s", formatWeights(o))
			}
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Roles")
	fmt.Fprintln(w, strings.Repeat("─", 72))
	for _, r := range b.Roles {
		fmt.Fprintf(w, "  %-10s  %s\n", r.Key, r.Label)
	}
}

// formatWeights renders the effective contribution of option o, sorted by key.
func formatWeights(o bank.Option) string {
	keys := make([]string, 0, len(o.Weights))
	for k := range o.Weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%.2g", k, o.Weights[k]*o.Factor)
	}
	return "{" + strings.Join(parts, " ") + "}"
}
