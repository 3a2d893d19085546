package store

import (
	"context"
	"time"

	"github.com/pharmcheck/pharmcheck/internal/results"
)

// QueryOpts configures list queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // id > After
	Before int64     // id < Before
	From   time.Time // created_at >= From
	To     time.Time // created_at <= To
	Source string    // results only; empty matches all
}

// Result sources.
const (
	SourceLocal  = "local"  // Completed in this terminal
	SourceRemote = "remote" // Received by the collector
)

// ResultRecord is a stored quiz result.
type ResultRecord struct {
	ID          int64
	CreatedAt   time.Time
	SessionID   string
	Nickname    string
	Source      string
	BankVersion string
	Policy      string
	TopRole     string
	Answers     []results.SubmittedAnswer
	Scores      map[string]int
	DurationMs  int64
}

// RoleCount is the number of results whose top role was Role.
type RoleCount struct {
	Role  string `json:"role"`
	Count int    `json:"count"`
}

// ResultRepo stores completed quiz results.
type ResultRepo interface {
	// SaveResult inserts r and returns its ID. CreatedAt defaults to now.
	SaveResult(ctx context.Context, r *ResultRecord) (int64, error)

	// ListResults returns results newest first.
	ListResults(ctx context.Context, opts QueryOpts) ([]ResultRecord, error)

	// GetResult returns one result, or ErrNotFound.
	GetResult(ctx context.Context, id int64) (*ResultRecord, error)

	// TopRoleCounts counts results per top role, most frequent first.
	TopRoleCounts(ctx context.Context, opts QueryOpts) ([]RoleCount, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int64
	Timestamp time.Time
	LLMRequestEventData
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)

	// GetLLMEvent returns one event, or ErrNotFound.
	GetLLMEvent(ctx context.Context, id int64) (*LLMEvent, error)
}
