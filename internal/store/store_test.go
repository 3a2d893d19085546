package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pharmcheck/pharmcheck/internal/results"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil database handle")
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.db")
	if err := EnsureDir(path); err != nil {
		t.Fatalf("ensure dir: %v", err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	var mode string
	err = s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode)
	s.Close()
	if err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	// Migration is idempotent.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	s2.Close()
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so journal_mode is checked in TestOpen_File.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func sampleResult(source, top string) *ResultRecord {
	return &ResultRecord{
		SessionID:   "s-" + top,
		Nickname:    "yuki",
		Source:      source,
		BankVersion: "v1.0.0",
		Policy:      "max-relative",
		TopRole:     top,
		Answers:     []results.SubmittedAnswer{{ID: "q1", Label: "A", Value: 1}},
		Scores:      map[string]int{top: 100, "research": 40},
		DurationMs:  61000,
	}
}

func TestSaveAndGetResult(t *testing.T) {
	s := openTestStore(t)
	repo := s.ResultRepo()
	ctx := context.Background()

	rec := sampleResult(SourceLocal, "hospital")
	id, err := repo.SaveResult(ctx, rec)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if id == 0 || rec.ID != id {
		t.Fatalf("id = %d, rec.ID = %d", id, rec.ID)
	}

	got, err := repo.GetResult(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TopRole != "hospital" || got.Nickname != "yuki" || got.Source != SourceLocal {
		t.Errorf("got %+v", got)
	}
	if got.Scores["hospital"] != 100 || got.Scores["research"] != 40 {
		t.Errorf("scores = %v", got.Scores)
	}
	if len(got.Answers) != 1 || got.Answers[0].ID != "q1" {
		t.Errorf("answers = %v", got.Answers)
	}
	if got.DurationMs != 61000 {
		t.Errorf("duration = %d, want 61000", got.DurationMs)
	}
	if time.Since(got.CreatedAt) > time.Minute {
		t.Errorf("created_at = %v, want recent", got.CreatedAt)
	}
}

func TestGetResult_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ResultRepo().GetResult(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveResult_RequiresSource(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ResultRepo().SaveResult(context.Background(), &ResultRecord{})
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestListResults(t *testing.T) {
	s := openTestStore(t)
	repo := s.ResultRepo()
	ctx := context.Background()

	tops := []string{"hospital", "community", "hospital", "research"}
	for i, top := range tops {
		src := SourceLocal
		if i%2 == 1 {
			src = SourceRemote
		}
		if _, err := repo.SaveResult(ctx, sampleResult(src, top)); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	all, err := repo.ListResults(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("got %d results, want 4", len(all))
	}
	if all[0].TopRole != "research" {
		t.Errorf("newest first: got %q, want research", all[0].TopRole)
	}

	limited, err := repo.ListResults(ctx, QueryOpts{Limit: 2})
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limit: got %d, want 2", len(limited))
	}

	remote, err := repo.ListResults(ctx, QueryOpts{Source: SourceRemote})
	if err != nil {
		t.Fatalf("list remote: %v", err)
	}
	if len(remote) != 2 {
		t.Errorf("remote: got %d, want 2", len(remote))
	}

	after, err := repo.ListResults(ctx, QueryOpts{After: all[1].ID})
	if err != nil {
		t.Fatalf("list after: %v", err)
	}
	if len(after) != 1 || after[0].ID != all[0].ID {
		t.Errorf("after: got %v", after)
	}
}

func TestTopRoleCounts(t *testing.T) {
	s := openTestStore(t)
	repo := s.ResultRepo()
	ctx := context.Background()

	for _, top := range []string{"hospital", "community", "hospital", "research", "hospital", "community", ""} {
		if _, err := repo.SaveResult(ctx, sampleResult(SourceRemote, top)); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	counts, err := repo.TopRoleCounts(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	want := []RoleCount{{"hospital", 3}, {"community", 2}, {"research", 1}}
	if len(counts) != len(want) {
		t.Fatalf("got %v, want %v", counts, want)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("counts[%d] = %v, want %v", i, counts[i], want[i])
		}
	}
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	for i, purpose := range []string{"career-advice", "career-advice", "other"} {
		err := repo.AppendLLMRequest(ctx, LLMRequestEventData{
			Provider:     "mock",
			Model:        "mock-model",
			Purpose:      purpose,
			InputTokens:  10 * (i + 1),
			OutputTokens: 5,
			LatencyMs:    120,
			Success:      i != 2,
			ErrorMessage: map[bool]string{true: "", false: "boom"}[i != 2],
			RequestBody:  "[user]\nhello",
			ResponseBody: `{"summary":"x"}`,
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	events, err := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 10})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Purpose != "other" || events[0].Success {
		t.Errorf("newest event = %+v", events[0])
	}

	e, err := repo.GetLLMEvent(ctx, events[2].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e.InputTokens != 10 || e.RequestBody != "[user]\nhello" || !e.Success {
		t.Errorf("event = %+v", e)
	}

	if _, err := repo.GetLLMEvent(ctx, 12345); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDefaultDBPath_Env(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sub", "x.db")
	t.Setenv("PHARMCHECK_DB", p)
	got, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath: %v", err)
	}
	if got != p {
		t.Errorf("got %q, want %q", got, p)
	}
}

func TestDefaultDBPath_XDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PHARMCHECK_DB", "")
	t.Setenv("XDG_DATA_HOME", dir)
	got, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath: %v", err)
	}
	want := filepath.Join(dir, "pharmcheck", "pharmcheck.db")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
