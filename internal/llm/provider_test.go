package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pharmcheck/pharmcheck/internal/store"
)

var testSchema = &Schema{
	Name: "test-advice",
	Definition: map[string]any{
		"type":                 "object",
		"required":             []string{"summary"},
		"properties":           map[string]any{"summary": map[string]any{"type": "string"}},
		"additionalProperties": false,
	},
}

func TestMockProvider_ReplaysInOrder(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10, OutputTokens: 5}},
		MockResponse{Content: json.RawMessage(`{"b":2}`)},
	)
	ctx := context.Background()

	r1, err := mock.Generate(ctx, UserPrompt("", "first", nil, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(r1.Content) != `{"a":1}` || r1.Usage.Total() != 15 || r1.StopReason != StopEnd {
		t.Errorf("first response = %+v", r1)
	}
	r2, err := mock.Generate(ctx, UserPrompt("", "second", nil, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(r2.Content) != `{"b":2}` {
		t.Errorf("second content = %s", r2.Content)
	}

	calls := mock.Calls()
	if len(calls) != 2 || calls[1].Messages[0].Content != "second" {
		t.Errorf("calls = %+v", calls)
	}

	_, err = mock.Generate(ctx, Request{})
	if kind, ok := KindOf(err); !ok || kind != KindUnavailable {
		t.Errorf("empty queue err = %v, want unavailable", err)
	}
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"summary":"go to the hospital fair"}`, false},
		{"not json", `summary: x`, true},
		{"missing field", `{}`, true},
		{"extra field", `{"summary":"x","other":1}`, true},
		{"wrong type", `{"summary":3}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(testSchema, json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if kind, _ := KindOf(err); kind != KindInvalidResponse {
					t.Errorf("kind = %v, want invalid response", kind)
				}
			}
		})
	}
	if err := validateResponse(nil, json.RawMessage(`not json`)); err != nil {
		t.Errorf("nil schema should accept anything, got %v", err)
	}
}

func TestMockProvider_ValidatesSchema(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{"nope":true}`)})
	_, err := mock.Generate(context.Background(), UserPrompt("", "x", testSchema, 100))
	if kind, _ := KindOf(err); kind != KindInvalidResponse {
		t.Fatalf("err = %v, want invalid response", err)
	}
}

func TestErrorForStatus(t *testing.T) {
	base := errors.New("boom")
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{429, KindRateLimited},
		{400, KindRejected},
		{401, KindRejected},
		{500, KindUnavailable},
		{503, KindUnavailable},
		{0, KindUnavailable},
	}
	for _, tt := range tests {
		e := errorForStatus(tt.status, base)
		if e.Kind != tt.want {
			t.Errorf("status %d: kind = %v, want %v", tt.status, e.Kind, tt.want)
		}
		if !errors.Is(e, base) {
			t.Errorf("status %d: error does not wrap cause", tt.status)
		}
	}
}

func TestPurpose(t *testing.T) {
	if got := PurposeFrom(context.Background()); got != "unknown" {
		t.Errorf("PurposeFrom(empty) = %q", got)
	}
	if got := PurposeFrom(WithPurpose(context.Background(), "career-advice")); got != "career-advice" {
		t.Errorf("PurposeFrom = %q", got)
	}
}

type fakeEventRepo struct {
	events []store.LLMRequestEventData
	err    error
}

func (f *fakeEventRepo) AppendLLMRequest(_ context.Context, d store.LLMRequestEventData) error {
	f.events = append(f.events, d)
	return f.err
}

func (f *fakeEventRepo) QueryLLMEvents(context.Context, store.QueryOpts) ([]store.LLMEvent, error) {
	return nil, nil
}

func (f *fakeEventRepo) GetLLMEvent(context.Context, int64) (*store.LLMEvent, error) {
	return nil, store.ErrNotFound
}

func TestWithRecording(t *testing.T) {
	repo := &fakeEventRepo{}
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"summary":"ok"}`), Usage: Usage{InputTokens: 12, OutputTokens: 4}},
		MockResponse{Content: json.RawMessage(`{"bad":1}`)},
	)
	p := WithRecording(mock, repo, nil)
	ctx := WithPurpose(context.Background(), "career-advice")

	if _, err := p.Generate(ctx, UserPrompt("sys", "hello", testSchema, 100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Generate(ctx, UserPrompt("sys", "again", testSchema, 100)); err == nil {
		t.Fatal("expected validation error")
	}

	if len(repo.events) != 2 {
		t.Fatalf("recorded %d events, want 2", len(repo.events))
	}
	ok, bad := repo.events[0], repo.events[1]
	if !ok.Success || ok.Provider != ProviderMock || ok.Purpose != "career-advice" || ok.InputTokens != 12 {
		t.Errorf("success event = %+v", ok)
	}
	if !strings.Contains(ok.RequestBody, "[system]\nsys") || !strings.Contains(ok.RequestBody, "[schema: test-advice]") {
		t.Errorf("request body = %q", ok.RequestBody)
	}
	if bad.Success || bad.ErrorMessage == "" || bad.ResponseBody != `{"bad":1}` {
		t.Errorf("failure event = %+v", bad)
	}
}

func TestWithRecording_RepoFailureIgnored(t *testing.T) {
	repo := &fakeEventRepo{err: fmt.Errorf("disk full")}
	p := WithRecording(NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)}), repo, nil)
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("recording failure leaked: %v", err)
	}
}

func TestNewProvider_Mock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = ProviderMock
	p, err := NewProvider(context.Background(), cfg, &fakeEventRepo{}, nil)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Name() != ProviderMock || p.ModelID() != "mock" {
		t.Errorf("provider = %s/%s", p.Name(), p.ModelID())
	}
}

func TestNewProvider_MissingKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = ProviderOpenAI
	if _, err := NewProvider(context.Background(), cfg, nil, nil); err == nil {
		t.Fatal("expected error for missing API key")
	}
}
