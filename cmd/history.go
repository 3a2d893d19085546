package cmd

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pharmcheck/pharmcheck/internal/bank"
	"github.com/pharmcheck/pharmcheck/internal/store"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "List saved quiz results, or show one in detail",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		source, _ := cmd.Flags().GetString("source")

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

		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid ID %q: %w", args[0], err)
			}
			rec, err := st.ResultRepo().GetResult(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("result %d not found", id)
			}
			if err != nil {
				return fmt.Errorf("get result: %w", err)
			}
			writeResultDetail(out, b, rec)
			return nil
		}

		recs, err := st.ResultRepo().ListResults(ctx, store.QueryOpts{Limit: limit, Source: source})
		if err != nil {
			return fmt.Errorf("list results: %w", err)
		}
		if len(recs) == 0 {
			fmt.Fprintln(out, "No results saved yet.")
			return nil
		}
		writeResultTable(out, b, recs)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of results to show")
	historyCmd.Flags().String("source", "", "Filter by source: local or remote")
}

func roleLabel(b *bank.Bank, key string) string {
	if r, ok := b.Role(key); ok {
		return r.Label
	}
	return key
}

func writeResultTable(w io.Writer, b *bank.Bank, recs []store.ResultRecord) {
	fmt.Fprintf(w, "%-5s  %-16s  %-16s  %-6s  %-36s  %s\n",
		"ID", "Time", "Nickname", "Source", "Top role", "Score")
	fmt.Fprintln(w, strings.Repeat("─", 96))
	for _, r := range recs {
		nick := r.Nickname
		if nick == "" {
			nick = "-"
		}
		fmt.Fprintf(w, "%-5d  %-16s  %-16s  %-6s  %-36s  %d%%\n",
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			truncate(nick, 16),
			r.Source,
			truncate(roleLabel(b, r.TopRole), 36),
			r.Scores[r.TopRole],
		)
	}
	fmt.Fprintf(w, "\n%d results\n", len(recs))
}

func writeResultDetail(w io.Writer, b *bank.Bank, r *store.ResultRecord) {
	fmt.Fprintf(w, "ID:        %d\n", r.ID)
	fmt.Fprintf(w, "Time:      %s\n", r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Nickname:  %s\n", r.Nickname)
	fmt.Fprintf(w, "Source:    %s\n", r.Source)
	fmt.Fprintf(w, "Session:   %s\n", r.SessionID)
	fmt.Fprintf(w, "Bank:      %s (%s)\n", r.BankVersion, r.Policy)
	if r.DurationMs > 0 {
		fmt.Fprintf(w, "Duration:  %.0fs\n", float64(r.DurationMs)/1000)
	}

	keys := make([]string, 0, len(r.Scores))
	for k := range r.Scores {
		keys = append(keys, k)
	}
	order := func(k string) int {
		if i := b.RoleIndex(k); i >= 0 {
			return i
		}
		return len(b.Roles)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if r.Scores[keys[i]] != r.Scores[keys[j]] {
			return r.Scores[keys[i]] > r.Scores[keys[j]]
		}
		if order(keys[i]) != order(keys[j]) {
			return order(keys[i]) < order(keys[j])
		}
		return keys[i] < keys[j]
	})

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Scores")
	fmt.Fprintln(w, strings.Repeat("─", 48))
	for _, k := range keys {
		fmt.Fprintf(w, "%-40s  %4d%%\n", truncate(roleLabel(b, k), 40), r.Scores[k])
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Answers (%d)\n", len(r.Answers))
	fmt.Fprintln(w, strings.Repeat("─", 48))
	for _, a := range r.Answers {
		fmt.Fprintf(w, "%-6s  %d  %s\n", a.ID, a.Value, a.Label)
	}
}

func truncate(s string, max int) string {
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max-1]) + "…"
}
