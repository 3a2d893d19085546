package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmcheck/pharmcheck/internal/bank"
	"github.com/pharmcheck/pharmcheck/internal/logging"
	"github.com/pharmcheck/pharmcheck/internal/results"
	"github.com/pharmcheck/pharmcheck/internal/store"
	"github.com/pharmcheck/pharmcheck/internal/submit"
)

func newTestServer(t *testing.T, repo store.ResultRepo) *Server {
	t.Helper()
	b, err := bank.Default()
	require.NoError(t, err)
	if repo == nil {
		name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
		st, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
		repo = st.ResultRepo()
	}
	s, err := New(Options{Bank: b, Results: repo, Logger: logging.Discard()})
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(v)
	default:
		data, err := json.Marshal(v)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "v1.0.0", body["bank_version"])
}

func TestQuestions_HideWeights(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/api/questions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "weights")

	body := decode[struct {
		Questions []questionView `json:"questions"`
	}](t, rec)
	require.Len(t, body.Questions, 20)
	assert.Equal(t, bank.KindChoice, body.Questions[0].Kind)
	assert.Len(t, body.Questions[0].Options, 4)
	assert.Equal(t, bank.KindLikert, body.Questions[1].Kind)
	assert.Len(t, body.Questions[1].Options, 5)
}

func TestRoles(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/api/roles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Roles []bank.Role `json:"roles"`
	}](t, rec)
	require.Len(t, body.Roles, 10)
	assert.Equal(t, "community", body.Roles[0].Key)
}

func TestScore(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodPost, "/api/score", map[string]any{
		"answers": []map[string]any{
			{"questionId": "q01", "option": 2}, // hospital 2, clinical 1
			{"questionId": "q04", "option": 4}, // homecare 3
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[scoreResponse](t, rec)
	assert.Equal(t, "max-relative", string(body.Policy))
	require.Len(t, body.Scores, 10)
	require.Len(t, body.Top, results.DefaultTopN)
	assert.Equal(t, "homecare", body.Top[0].Role)
	assert.Equal(t, 100, body.Top[0].Percent)
	assert.Equal(t, "hospital", body.Top[1].Role)
	assert.Equal(t, 67, body.Top[1].Percent)
	assert.Equal(t, 67, body.Payload.Score["hospital"])
	require.Len(t, body.Payload.Answers, 2)
	assert.Equal(t, "Strongly agree", body.Payload.Answers[1].Label)
}

func TestScore_Rejects(t *testing.T) {
	s := newTestServer(t, nil)
	tests := []struct {
		name string
		body any
	}{
		{"malformed", "{"},
		{"no answers", map[string]any{"answers": []any{}}},
		{"missing option", map[string]any{"answers": []map[string]any{{"questionId": "q01"}}}},
		{"negative option", map[string]any{"answers": []map[string]any{{"questionId": "q01", "option": -1}}}},
		{"unknown question", map[string]any{"answers": []map[string]any{{"questionId": "q99", "option": 0}}}},
		{"option out of range", map[string]any{"answers": []map[string]any{{"questionId": "q01", "option": 4}}}},
		{"duplicate", map[string]any{"answers": []map[string]any{
			{"questionId": "q01", "option": 0},
			{"questionId": "q01", "option": 1},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/score", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, "error", decode[errorResponse](t, rec).Status)
		})
	}
}

func validPayload() results.Payload {
	return results.Payload{
		Nickname: "aiko",
		Answers: []results.SubmittedAnswer{
			{ID: "q01", Label: "A hospital ward working with doctors and nurses", Value: 3},
		},
		Score: map[string]int{"hospital": 100, "clinical": 50},
	}
}

func TestSubmit_StoresAndCounts(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/api/submissions", validPayload())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[submit.Response](t, rec)
	assert.Equal(t, submit.StatusSuccess, resp.Status)
	assert.Positive(t, resp.ID)

	rec = do(t, s, http.MethodGet, "/api/submissions?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Submissions []submissionView `json:"submissions"`
	}](t, rec)
	require.Len(t, list.Submissions, 1)
	got := list.Submissions[0]
	assert.Equal(t, resp.ID, got.ID)
	assert.Equal(t, "aiko", got.Nickname)
	assert.Equal(t, store.SourceRemote, got.Source)
	assert.Equal(t, "hospital", got.TopRole)
	assert.Equal(t, 50, got.Scores["clinical"])

	rec = do(t, s, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[struct {
		Total    int        `json:"total"`
		TopRoles []roleStat `json:"top_roles"`
	}](t, rec)
	assert.Equal(t, 1, stats.Total)
	require.Len(t, stats.TopRoles, 1)
	assert.Equal(t, "Hospital pharmacist", stats.TopRoles[0].Label)

	rec = do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `pharmcheck_submissions_total{outcome="accepted"} 1`)
	assert.Contains(t, rec.Body.String(), `pharmcheck_top_role_total{role="hospital"} 1`)
}

func TestSubmit_Rejects(t *testing.T) {
	s := newTestServer(t, nil)
	tests := []struct {
		name   string
		mutate func(*results.Payload)
	}{
		{"no answers", func(p *results.Payload) { p.Answers = nil }},
		{"answer without id", func(p *results.Payload) { p.Answers[0].ID = "" }},
		{"score above 100", func(p *results.Payload) { p.Score["hospital"] = 101 }},
		{"unknown role", func(p *results.Payload) { p.Score["astronaut"] = 10 }},
		{"unknown question", func(p *results.Payload) { p.Answers[0].ID = "q99" }},
		{"question answered twice", func(p *results.Payload) { p.Answers = append(p.Answers, p.Answers[0]) }},
		{"no score", func(p *results.Payload) { p.Score = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			tt.mutate(&p)
			rec := do(t, s, http.MethodPost, "/api/submissions", p)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	rec := do(t, s, http.MethodGet, "/metrics", nil)
	assert.Contains(t, rec.Body.String(), fmt.Sprintf(`pharmcheck_submissions_total{outcome="invalid"} %d`, len(tests)))
}

func TestSubmit_FillsMissingRoles(t *testing.T) {
	s := newTestServer(t, nil)
	p := validPayload()
	p.Score = map[string]int{"clinical": 40}

	rec := do(t, s, http.MethodPost, "/api/submissions", p)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/submissions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Submissions []submissionView `json:"submissions"`
	}](t, rec)
	require.Len(t, list.Submissions, 1)
	got := list.Submissions[0]
	assert.Equal(t, "clinical", got.TopRole)
	assert.Len(t, got.Scores, len(s.bank.Roles))
	assert.Equal(t, 40, got.Scores["clinical"])
	if v, ok := got.Scores["hospital"]; !ok || v != 0 {
		t.Errorf("Scores[hospital] = %v (present %v), want 0", v, ok)
	}
}

type failingRepo struct{ store.ResultRepo }

func (failingRepo) SaveResult(context.Context, *store.ResultRecord) (int64, error) {
	return 0, errors.New("disk full")
}

func TestSubmit_StoreFailure(t *testing.T) {
	s := newTestServer(t, failingRepo{})
	rec := do(t, s, http.MethodPost, "/api/submissions", validPayload())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", decode[errorResponse](t, rec).Status)
}

func TestListSubmissions_BadLimit(t *testing.T) {
	s := newTestServer(t, nil)
	for _, q := range []string{"0", "-3", "ten"} {
		rec := do(t, s, http.MethodGet, "/api/submissions?limit="+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", q)
	}
}

func TestMetrics_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m1, err := NewMetrics(reg)
	require.NoError(t, err)
	m2, err := NewMetrics(reg)
	require.NoError(t, err)
	assert.Same(t, m1.submissions, m2.submissions)
}

// The submission client and the collector agree on the wire format.
func TestSubmitterRoundTrip(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	sub := submit.New(submit.Config{Endpoint: ts.URL + "/api/submissions"}, ts.Client(), logging.Discard())
	resp, err := sub.Submit(context.Background(), validPayload())
	require.NoError(t, err)
	assert.Equal(t, submit.StatusSuccess, resp.Status)
	assert.Positive(t, resp.ID)
}
