package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pharmcheck/pharmcheck/internal/advice"
	"github.com/pharmcheck/pharmcheck/internal/bank"
	"github.com/pharmcheck/pharmcheck/internal/results"
	"github.com/pharmcheck/pharmcheck/internal/store"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnswers(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int
		wantErr string
	}{
		{"ok", "1, 3,2", []int{0, 2, 1}, ""},
		{"empty", "  ", nil, "no answers"},
		{"too few", "1,2", nil, "got 2 answers"},
		{"not a number", "1,x,2", nil, `"x" is not a number`},
		{"zero", "1,0,2", nil, "start at 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAnswers(tt.raw, 3)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteScoreText(t *testing.T) {
	var buf bytes.Buffer
	writeScoreText(&buf, scoreReport{
		BankVersion: "v1.0.0",
		Policy:      "max-relative",
		Top: []results.Card{
			{Rank: 1, Role: "homecare", Label: "Home-care pharmacist", Percent: 100, Tip: "Visit patients.", Icon: "🏠"},
		},
		NextSteps: []string{"Talk to a pharmacist"},
		Advice:    &advice.Advice{Summary: "You like people.", NextSteps: []string{"Shadow a home visit"}},
	})

	out := buf.String()
	assert.Contains(t, out, "Best matches for you (bank v1.0.0, max-relative)")
	assert.Contains(t, out, " 1. 🏠 Home-care pharmacist")
	assert.Contains(t, out, "100%")
	assert.Contains(t, out, "You like people.")
	assert.Contains(t, out, "  - Shadow a home visit")
	assert.Contains(t, out, "  • Talk to a pharmacist")
}

func TestWriteBankText(t *testing.T) {
	b, err := bank.Default()
	require.NoError(t, err)

	var buf bytes.Buffer
	writeBankText(&buf, b, true)
	out := buf.String()

	assert.Contains(t, out, b.Title)
	assert.Contains(t, out, "[q01]")
	assert.Contains(t, out, "5) Strongly agree")
	assert.Contains(t, out, "{community=2 homecare=0.5}")
	assert.Contains(t, out, "ma_mr")
}

func TestFormatWeights_ScalesByFactor(t *testing.T) {
	got := formatWeights(bank.Option{Factor: 0.5, Weights: bank.Weights{"speed": 2, "drugstore": 1}})
	if got != "{drugstore=0.5 speed=1}" {
		t.Errorf("formatWeights = %q, want %q", got, "{drugstore=0.5 speed=1}")
	}
}

func TestWriteResultDetail_OrdersScores(t *testing.T) {
	b, err := bank.Default()
	require.NoError(t, err)

	var buf bytes.Buffer
	writeResultDetail(&buf, b, &store.ResultRecord{
		ID:          7,
		CreatedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Nickname:    "sora",
		Source:      store.SourceLocal,
		BankVersion: "v1.0.0",
		Policy:      "max-relative",
		Scores:      map[string]int{"research": 40, "hospital": 100, "community": 100},
		Answers:     []results.SubmittedAnswer{{ID: "q01", Label: "A hospital ward", Value: 3}},
		DurationMs:  61000,
	})
	out := buf.String()

	// Ties keep bank role order: community before hospital.
	community := strings.Index(out, "Community pharmacist")
	hospital := strings.Index(out, "Hospital pharmacist")
	research := strings.Index(out, "Research oriented")
	assert.True(t, community < hospital && hospital < research, "unexpected order:\n%s", out)
	assert.Contains(t, out, "Duration:  61s")
	assert.Contains(t, out, "q01     3  A hospital ward")
}

func TestTruncate(t *testing.T) {
	if got := truncate("Hospital pharmacist", 8); got != "Hospita…" {
		t.Errorf("truncate = %q, want %q", got, "Hospita…")
	}
	if got := truncate("short", 8); got != "short" {
		t.Errorf("truncate = %q, want %q", got, "short")
	}
}

// executeRoot runs the root command with args, starting from default flag
// values, and writes its output to out.
func executeRoot(t *testing.T, out io.Writer, args ...string) error {
	t.Helper()
	for _, flags := range []*pflag.FlagSet{rootCmd.PersistentFlags(), scoreCmd.Flags(), historyCmd.Flags()} {
		flags.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	return rootCmd.Execute()
}

func allFirstOptions() string {
	return strings.TrimSuffix(strings.Repeat("1,", 20), ",")
}

func TestScoreThenHistory(t *testing.T) {
	t.Setenv("PHARMCHECK_BANK", "")
	dbPath := filepath.Join(t.TempDir(), "pharmcheck.db")

	var buf bytes.Buffer
	err := executeRoot(t, &buf, "--db", dbPath, "score", "--answers", allFirstOptions(), "--nickname", "sora", "--json", "--save")
	require.NoError(t, err)

	var report scoreReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, "sora", report.Nickname)
	assert.Len(t, report.Scores, 10)
	require.Len(t, report.Top, 3)
	assert.Equal(t, 100, report.Top[0].Percent)
	assert.NotEmpty(t, report.NextSteps)

	buf.Reset()
	require.NoError(t, executeRoot(t, &buf, "--db", dbPath, "history"))
	assert.Contains(t, buf.String(), "sora")
	assert.Contains(t, buf.String(), "1 results")
}

// signalWriter closes first on the first write.
type signalWriter struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	first chan struct{}
}

func (w *signalWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() == 0 {
		close(w.first)
	}
	return w.buf.Write(p)
}

func (w *signalWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestScore_SubmitDoesNotDelayResults(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","id":1}`))
	}))
	defer srv.Close()

	t.Setenv("PHARMCHECK_BANK", "")
	t.Setenv("PHARMCHECK_SUBMIT_ENDPOINT", srv.URL)
	t.Setenv("PHARMCHECK_SUBMIT_TIMEOUT", "5s")

	out := &signalWriter{first: make(chan struct{})}
	done := make(chan error, 1)
	go func() {
		done <- executeRoot(t, out, "--db", filepath.Join(t.TempDir(), "pharmcheck.db"),
			"score", "--answers", allFirstOptions(), "--submit")
	}()

	select {
	case <-out.first:
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("results were not printed while the collector was still answering")
	}
	assert.Contains(t, out.String(), "Best matches")

	// The command waits for the detached submission before it returns.
	select {
	case err := <-done:
		t.Fatalf("score returned before the submission finished: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
	close(release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("score did not return after the collector answered")
	}
	assert.Equal(t, int32(1), hits.Load())
}
