package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/pharmcheck/pharmcheck/internal/store"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how often each role came out on top",
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("source")
		since, _ := cmd.Flags().GetDuration("since")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		b, err := loadBank(cfg)
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		opts := store.QueryOpts{Source: source}
		if since > 0 {
			opts.From = time.Now().Add(-since)
		}
		counts, err := st.ResultRepo().TopRoleCounts(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("count results: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(counts) == 0 {
			fmt.Fprintln(out, "No results saved yet.")
			return nil
		}

		total := 0
		for _, c := range counts {
			total += c.Count
		}

		fmt.Fprintf(out, "%-40s  %6s  %6s\n", "Top role", "Count", "Share")
		fmt.Fprintln(out, strings.Repeat("─", 56))
		for _, c := range counts {
			fmt.Fprintf(out, "%-40s  %6d  %5.1f%%\n",
				truncate(roleLabel(b, c.Role), 40), c.Count, 100*float64(c.Count)/float64(total))
		}
		fmt.Fprintln(out, strings.Repeat("─", 56))
		fmt.Fprintf(out, "%-40s  %6d\n", "TOTAL", total)
		return nil
	},
}

func init() {
	statsCmd.Flags().String("source", "", "Filter by source: local or remote")
	statsCmd.Flags().Duration("since", 0, "Only count results newer than this (e.g. 720h)")
}
