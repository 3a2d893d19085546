package server

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/pharmcheck/pharmcheck/internal/bank"
	"github.com/pharmcheck/pharmcheck/internal/results"
	"github.com/pharmcheck/pharmcheck/internal/scoring"
	"github.com/pharmcheck/pharmcheck/internal/store"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func abort(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, errorResponse{Status: "error", Message: msg})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "bank_version": s.bank.Version})
}

type optionView struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Value int    `json:"value"`
}

type questionView struct {
	ID          string       `json:"id"`
	Text        string       `json:"text"`
	Description string       `json:"description,omitempty"`
	Kind        bank.Kind    `json:"kind"`
	Options     []optionView `json:"options"`
}

// handleQuestions lists questions without their weights.
func (s *Server) handleQuestions(c *gin.Context) {
	qs := make([]questionView, len(s.bank.Questions))
	for i, q := range s.bank.Questions {
		opts := q.Options()
		views := make([]optionView, len(opts))
		for j, o := range opts {
			views[j] = optionView{Index: j, Label: o.Label, Value: o.Value}
		}
		qs[i] = questionView{
			ID:          q.ID,
			Text:        q.Text,
			Description: q.Description,
			Kind:        q.EffectiveKind(),
			Options:     views,
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"version":   s.bank.Version,
		"title":     s.bank.Title,
		"questions": qs,
	})
}

func (s *Server) handleRoles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"roles": s.bank.Roles})
}

type scoreAnswer struct {
	QuestionID string `json:"questionId" validate:"required"`
	Option     *int   `json:"option" validate:"required,gte=0"`
}

type scoreRequest struct {
	Answers []scoreAnswer `json:"answers" validate:"required,min=1,dive"`
	TopN    int           `json:"topN,omitempty" validate:"gte=0,lte=20"`
}

type scoreResponse struct {
	Policy  scoring.Policy      `json:"policy"`
	Scores  []scoring.RoleScore `json:"scores"`
	Top     []results.Card      `json:"top"`
	Payload results.Payload     `json:"payload"`
}

// handleScore scores a complete or partial answer set without storing it.
func (s *Server) handleScore(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		abort(c, http.StatusBadRequest, validationMessage(err))
		return
	}

	answers := make([]bank.Answer, 0, len(req.Answers))
	seen := make(map[string]bool, len(req.Answers))
	for _, a := range req.Answers {
		q, ok := s.bank.Question(a.QuestionID)
		if !ok {
			abort(c, http.StatusBadRequest, fmt.Sprintf("unknown question %q", a.QuestionID))
			return
		}
		if seen[q.ID] {
			abort(c, http.StatusBadRequest, fmt.Sprintf("duplicate answer for question %q", q.ID))
			return
		}
		seen[q.ID] = true
		opts := q.Options()
		if *a.Option >= len(opts) {
			abort(c, http.StatusBadRequest, fmt.Sprintf("option %d out of range for question %q", *a.Option, q.ID))
			return
		}
		o := opts[*a.Option]
		answers = append(answers, bank.Answer{QuestionID: q.ID, Option: *a.Option, Label: o.Label, Value: o.Value})
	}

	n := req.TopN
	if n == 0 {
		n = s.topN
	}
	scores := scoring.Score(s.bank, answers, s.scoring)
	ranked := results.Rank(scores)
	s.metrics.scored()

	c.JSON(http.StatusOK, scoreResponse{
		Policy:  s.scoring.Policy,
		Scores:  scores,
		Top:     results.Present(s.bank, ranked, n, s.icons),
		Payload: results.NewPayload("", answers, scores),
	})
}

// handleSubmit is the collector endpoint the quiz posts finished results to.
func (s *Server) handleSubmit(c *gin.Context) {
	var p results.Payload
	if err := c.ShouldBindJSON(&p); err != nil {
		s.metrics.submission(outcomeInvalid, "")
		abort(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(p); err != nil {
		s.metrics.submission(outcomeInvalid, "")
		abort(c, http.StatusBadRequest, validationMessage(err))
		return
	}
	if msg := s.checkSubmission(&p); msg != "" {
		s.metrics.submission(outcomeInvalid, "")
		abort(c, http.StatusBadRequest, msg)
		return
	}

	top := p.TopRole(s.bank.RoleKeys())
	id, err := s.results.SaveResult(c.Request.Context(), &store.ResultRecord{
		Nickname:    strings.TrimSpace(p.Nickname),
		Source:      store.SourceRemote,
		BankVersion: s.bank.Version,
		TopRole:     top,
		Answers:     p.Answers,
		Scores:      p.Score,
	})
	if err != nil {
		s.metrics.submission(outcomeError, "")
		s.logger.Error("save submission", "error", err)
		abort(c, http.StatusInternalServerError, "could not store submission")
		return
	}

	s.metrics.submission(outcomeAccepted, top)
	s.logger.Info("submission stored", "id", id, "top_role", top, "answers", len(p.Answers))
	c.JSON(http.StatusOK, gin.H{"status": "success", "id": id})
}

// checkSubmission matches p against the served bank and fills roles missing
// from its score map with 0. It returns a client-facing message when p
// cannot be stored.
func (s *Server) checkSubmission(p *results.Payload) string {
	seen := make(map[string]bool, len(p.Answers))
	for _, a := range p.Answers {
		if s.bank.IndexOf(a.ID) < 0 {
			return fmt.Sprintf("unknown question %q", a.ID)
		}
		if seen[a.ID] {
			return fmt.Sprintf("question %q answered twice", a.ID)
		}
		seen[a.ID] = true
	}
	for role := range p.Score {
		if _, ok := s.bank.Role(role); !ok {
			return fmt.Sprintf("unknown role %q", role)
		}
	}
	for _, role := range s.bank.RoleKeys() {
		if _, ok := p.Score[role]; !ok {
			p.Score[role] = 0
		}
	}
	return ""
}

type submissionView struct {
	ID          int64                     `json:"id"`
	CreatedAt   string                    `json:"created_at"`
	Nickname    string                    `json:"nickname,omitempty"`
	Source      string                    `json:"source"`
	BankVersion string                    `json:"bank_version,omitempty"`
	TopRole     string                    `json:"top_role"`
	Scores      map[string]int            `json:"score"`
	Answers     []results.SubmittedAnswer `json:"answers"`
}

func (s *Server) handleListSubmissions(c *gin.Context) {
	limit := defaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			abort(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	recs, err := s.results.ListResults(c.Request.Context(), store.QueryOpts{
		Limit:  limit,
		Source: c.Query("source"),
	})
	if err != nil {
		s.logger.Error("list submissions", "error", err)
		abort(c, http.StatusInternalServerError, "could not list submissions")
		return
	}

	out := make([]submissionView, len(recs))
	for i, r := range recs {
		out[i] = submissionView{
			ID:          r.ID,
			CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
			Nickname:    r.Nickname,
			Source:      r.Source,
			BankVersion: r.BankVersion,
			TopRole:     r.TopRole,
			Scores:      r.Scores,
			Answers:     r.Answers,
		}
	}
	c.JSON(http.StatusOK, gin.H{"submissions": out})
}

type roleStat struct {
	Role  string `json:"role"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

func (s *Server) handleStats(c *gin.Context) {
	counts, err := s.results.TopRoleCounts(c.Request.Context(), store.QueryOpts{Source: c.Query("source")})
	if err != nil {
		s.logger.Error("top role counts", "error", err)
		abort(c, http.StatusInternalServerError, "could not compute stats")
		return
	}

	total := 0
	stats := make([]roleStat, len(counts))
	for i, rc := range counts {
		label := rc.Role
		if r, ok := s.bank.Role(rc.Role); ok {
			label = r.Label
		}
		stats[i] = roleStat{Role: rc.Role, Label: label, Count: rc.Count}
		total += rc.Count
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "top_roles": stats})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	sort.Strings(msgs)
	return "validation failed: " + strings.Join(msgs, ", ")
}
