package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pharmcheck/pharmcheck/internal/advice"
	"github.com/pharmcheck/pharmcheck/internal/app"
	"github.com/pharmcheck/pharmcheck/internal/quiz"
	"github.com/pharmcheck/pharmcheck/internal/results"
	"github.com/pharmcheck/pharmcheck/internal/scoring"
	"github.com/pharmcheck/pharmcheck/internal/store"
	"github.com/pharmcheck/pharmcheck/internal/submit"
	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a full set of answers without the interactive UI",
	Long: `Score answers given on the command line.

--answers takes one option number per question, in bank order, numbered from 1
as in the terminal UI and "pharmcheck bank show".`,
	Example: "  pharmcheck score --answers 1,4,2,5,3,1,3,4,2,5,4,3,1,2,4,3,1,5,4,2 --nickname sora",
	RunE:    runScore,
}

func init() {
	scoreCmd.Flags().String("answers", "", "Comma-separated option numbers, one per question (required)")
	scoreCmd.Flags().String("nickname", "", "Nickname recorded with the result")
	scoreCmd.Flags().Int("top", 0, "Number of roles to show (default from PHARMCHECK_TOP_N)")
	scoreCmd.Flags().Bool("json", false, "Print the result as JSON")
	scoreCmd.Flags().Bool("save", false, "Save the result to the local history")
	scoreCmd.Flags().Bool("submit", false, "Post the result to PHARMCHECK_SUBMIT_ENDPOINT")
	scoreCmd.Flags().Bool("advice", false, "Ask the configured LLM provider for career advice")
	_ = scoreCmd.MarkFlagRequired("answers")
}

// scoreReport is the JSON shape printed by score --json.
type scoreReport struct {
	SessionID   string         `json:"session_id"`
	Nickname    string         `json:"nickname,omitempty"`
	BankVersion string         `json:"bank_version"`
	Policy      scoring.Policy `json:"policy"`
	Scores      map[string]int `json:"scores"`
	Top         []results.Card `json:"top"`
	NextSteps   []string       `json:"next_steps"`
	Advice      *advice.Advice `json:"advice,omitempty"`
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	raw, _ := cmd.Flags().GetString("answers")
	nickname, _ := cmd.Flags().GetString("nickname")
	top, _ := cmd.Flags().GetInt("top")
	asJSON, _ := cmd.Flags().GetBool("json")
	save, _ := cmd.Flags().GetBool("save")
	doSubmit, _ := cmd.Flags().GetBool("submit")
	wantAdvice, _ := cmd.Flags().GetBool("advice")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if top <= 0 {
		top = cfg.TopN
	}
	b, err := loadBank(cfg)
	if err != nil {
		return err
	}
	choices, err := parseAnswers(raw, b.Len())
	if err != nil {
		return err
	}
	logger := stderrLogger(cfg)

	var st *store.Store
	if save || wantAdvice {
		if st, err = openStore(cfg); err != nil {
			return err
		}
		defer st.Close()
	}

	var notifiers []quiz.Notifier
	if save {
		notifiers = append(notifiers, app.LocalRecorder(st.ResultRepo(), logger))
	}
	var sub *submit.Submitter
	if doSubmit {
		sub = submit.New(cfg.Submit(), nil, logger)
		if !sub.Enabled() {
			return errors.New("--submit needs PHARMCHECK_SUBMIT_ENDPOINT")
		}
	}

	ctrl := quiz.New(b, quiz.Options{
		Scoring:   cfg.Scoring(),
		Notifiers: notifiers,
		Logger:    logger,
	})
	if err := ctrl.Start(nickname); err != nil {
		return fmt.Errorf("start quiz: %w", err)
	}
	for i, c := range choices {
		if err := ctrl.Answer(c); err != nil {
			return fmt.Errorf("answer %d: %w", i+1, err)
		}
	}
	outcome, ok := ctrl.Outcome()
	if !ok {
		return errors.New("quiz did not complete")
	}
	// Results are printed without waiting for the detached work below.
	defer ctrl.Wait()
	if sub != nil {
		sub.Go(results.NewPayload(outcome.Nickname, outcome.Answers, outcome.Scores))
		defer sub.Wait()
	}

	report := scoreReport{
		SessionID:   outcome.SessionID,
		Nickname:    outcome.Nickname,
		BankVersion: outcome.BankVersion,
		Policy:      outcome.Policy,
		Scores:      scoring.Percentages(outcome.Scores),
		Top:         results.Present(b, outcome.Ranked, top, results.NewIconResolver(cfg.AssetsDir)),
		NextSteps:   results.NextSteps(),
	}

	if wantAdvice {
		svc, err := newAdviceService(ctx, st.EventRepo(), logger)
		switch {
		case err != nil:
			return fmt.Errorf("configure advice: %w", err)
		case svc == nil:
			return errors.New("--advice needs an LLM provider; set PHARMCHECK_LLM_PROVIDER or a vendor API key")
		}
		adv, err := svc.Generate(ctx, advice.Input{Nickname: outcome.Nickname, Top: report.Top})
		if err != nil {
			return fmt.Errorf("generate advice: %w", err)
		}
		report.Advice = adv
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	writeScoreText(out, report)
	return nil
}

// parseAnswers converts "1,3,2" into zero-based option indexes and checks
// that there is exactly one per question.
func parseAnswers(raw string, want int) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("no answers given")
	}
	parts := strings.Split(raw, ",")
	if len(parts) != want {
		return nil, fmt.Errorf("got %d answers, the bank has %d questions", len(parts), want)
	}
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("answer %d: %q is not a number", i+1, p)
		}
		if n < 1 {
			return nil, fmt.Errorf("answer %d: option numbers start at 1", i+1)
		}
		out[i] = n - 1
	}
	return out, nil
}

func writeScoreText(w io.Writer, r scoreReport) {
	who := r.Nickname
	if who == "" {
		who = "you"
	}
	fmt.Fprintf(w, "Best matches for %s (bank %s, %s)\n\n", who, r.BankVersion, r.Policy)
	for _, c := range r.Top {
		fmt.Fprintf(w, "%2d. %s %-36s %3d%%\n", c.Rank, c.Icon, c.Label, c.Percent)
		fmt.Fprintf(w, "    %s\n", c.Tip)
	}

	if r.Advice != nil {
		fmt.Fprintf(w, "\nAdvice\n%s\n", r.Advice.Summary)
		for _, s := range r.Advice.NextSteps {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}

	fmt.Fprintln(w, "\nNext steps")
	for _, s := range r.NextSteps {
		fmt.Fprintf(w, "  • %s\n", s)
	}
}
