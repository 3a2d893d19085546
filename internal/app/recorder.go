package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pharmcheck/pharmcheck/internal/quiz"
	"github.com/pharmcheck/pharmcheck/internal/results"
	"github.com/pharmcheck/pharmcheck/internal/store"
)

// RecordFromOutcome converts a completed quiz into a stored result.
func RecordFromOutcome(o quiz.Outcome, source string) *store.ResultRecord {
	p := results.NewPayload(o.Nickname, o.Answers, o.Scores)
	top := ""
	if len(o.Ranked) > 0 {
		top = o.Ranked[0].Role
	}
	return &store.ResultRecord{
		CreatedAt:   o.CompletedAt,
		SessionID:   o.SessionID,
		Nickname:    o.Nickname,
		Source:      source,
		BankVersion: o.BankVersion,
		Policy:      string(o.Policy),
		TopRole:     top,
		Answers:     p.Answers,
		Scores:      p.Score,
		DurationMs:  o.Duration().Milliseconds(),
	}
}

// LocalRecorder returns a notifier that saves each outcome to repo.
func LocalRecorder(repo store.ResultRepo, logger *slog.Logger) quiz.Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return quiz.NotifierFunc(func(ctx context.Context, o quiz.Outcome) error {
		id, err := repo.SaveResult(ctx, RecordFromOutcome(o, store.SourceLocal))
		if err != nil {
			return fmt.Errorf("save result: %w", err)
		}
		logger.Debug("result saved", "session", o.SessionID, "id", id)
		return nil
	})
}
