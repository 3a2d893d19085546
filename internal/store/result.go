package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// resultRepo implements ResultRepo with ent SQL builders over database/sql.
type resultRepo struct {
	db *sql.DB
}

var resultSelectColumns = []string{
	colID, colCreatedAt, colSessionID, colNickname, colSource, colBankVersion,
	colPolicy, colTopRole, colAnswers, colScores, colDurationMs,
}

func (r *resultRepo) SaveResult(ctx context.Context, rec *ResultRecord) (int64, error) {
	if rec.Source == "" {
		return 0, errors.New("save result: source is required")
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return 0, fmt.Errorf("encode answers: %w", err)
	}
	scores, err := json.Marshal(rec.Scores)
	if err != nil {
		return 0, fmt.Errorf("encode scores: %w", err)
	}

	query, args := builder().Insert(resultsTableName).
		Columns(colCreatedAt, colSessionID, colNickname, colSource, colBankVersion,
			colPolicy, colTopRole, colAnswers, colScores, colDurationMs).
		Values(createdAt.UTC(), rec.SessionID, rec.Nickname, rec.Source, rec.BankVersion,
			rec.Policy, rec.TopRole, string(answers), string(scores), rec.DurationMs).
		Query()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("save result: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save result: %w", err)
	}
	rec.ID = id
	rec.CreatedAt = createdAt.UTC()
	return id, nil
}

func (r *resultRepo) ListResults(ctx context.Context, opts QueryOpts) ([]ResultRecord, error) {
	sel := builder().Select(resultSelectColumns...).From(entsql.Table(resultsTableName))
	applyOpts(sel, opts)
	if opts.Source != "" {
		sel.Where(entsql.EQ(colSource, opts.Source))
	}
	sel.OrderBy(entsql.Desc(colID))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []ResultRecord
	for rows.Next() {
		rec, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	return out, nil
}

func (r *resultRepo) GetResult(ctx context.Context, id int64) (*ResultRecord, error) {
	query, args := builder().Select(resultSelectColumns...).
		From(entsql.Table(resultsTableName)).
		Where(entsql.EQ(colID, id)).
		Query()

	rec, err := scanResult(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("result %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *resultRepo) TopRoleCounts(ctx context.Context, opts QueryOpts) ([]RoleCount, error) {
	sel := builder().Select(colTopRole, entsql.As(entsql.Count("*"), "n")).
		From(entsql.Table(resultsTableName))
	applyOpts(sel, opts)
	if opts.Source != "" {
		sel.Where(entsql.EQ(colSource, opts.Source))
	}
	sel.Where(entsql.NEQ(colTopRole, "")).
		GroupBy(colTopRole).
		OrderBy(entsql.Desc("n"), colTopRole)
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query role counts: %w", err)
	}
	defer rows.Close()

	var out []RoleCount
	for rows.Next() {
		var rc RoleCount
		if err := rows.Scan(&rc.Role, &rc.Count); err != nil {
			return nil, fmt.Errorf("scan role count: %w", err)
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query role counts: %w", err)
	}
	return out, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(s rowScanner) (*ResultRecord, error) {
	var (
		rec             ResultRecord
		answers, scores string
	)
	err := s.Scan(&rec.ID, &rec.CreatedAt, &rec.SessionID, &rec.Nickname, &rec.Source,
		&rec.BankVersion, &rec.Policy, &rec.TopRole, &answers, &scores, &rec.DurationMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan result: %w", err)
	}
	if err := json.Unmarshal([]byte(answers), &rec.Answers); err != nil {
		return nil, fmt.Errorf("decode answers of result %d: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(scores), &rec.Scores); err != nil {
		return nil, fmt.Errorf("decode scores of result %d: %w", rec.ID, err)
	}
	return &rec, nil
}

// applyOpts adds the shared id and time range filters to a selector.
func applyOpts(sel *entsql.Selector, opts QueryOpts) {
	if opts.After > 0 {
		sel.Where(entsql.GT(colID, opts.After))
	}
	if opts.Before > 0 {
		sel.Where(entsql.LT(colID, opts.Before))
	}
	if !opts.From.IsZero() {
		sel.Where(entsql.GTE(colCreatedAt, opts.From.UTC()))
	}
	if !opts.To.IsZero() {
		sel.Where(entsql.LTE(colCreatedAt, opts.To.UTC()))
	}
}
