package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	resultsTableName   = "results"
	llmEventsTableName = "llm_events"
)

// Column names shared by the repos and the table definitions.
const (
	colID           = "id"
	colCreatedAt    = "created_at"
	colSessionID    = "session_id"
	colNickname     = "nickname"
	colSource       = "source"
	colBankVersion  = "bank_version"
	colPolicy       = "policy"
	colTopRole      = "top_role"
	colAnswers      = "answers"
	colScores       = "scores"
	colDurationMs   = "duration_ms"
	colProvider     = "provider"
	colModel        = "model"
	colPurpose      = "purpose"
	colInputTokens  = "input_tokens"
	colOutputTokens = "output_tokens"
	colLatencyMs    = "latency_ms"
	colSuccess      = "success"
	colErrorMessage = "error_message"
	colRequestBody  = "request_body"
	colResponseBody = "response_body"
)

var (
	resultsColumns = []*schema.Column{
		{Name: colID, Type: field.TypeInt64, Increment: true},
		{Name: colCreatedAt, Type: field.TypeTime},
		{Name: colSessionID, Type: field.TypeString, Default: ""},
		{Name: colNickname, Type: field.TypeString, Default: ""},
		{Name: colSource, Type: field.TypeString},
		{Name: colBankVersion, Type: field.TypeString, Default: ""},
		{Name: colPolicy, Type: field.TypeString, Default: ""},
		{Name: colTopRole, Type: field.TypeString, Default: ""},
		{Name: colAnswers, Type: field.TypeJSON},
		{Name: colScores, Type: field.TypeJSON},
		{Name: colDurationMs, Type: field.TypeInt64, Default: 0},
	}
	resultsTable = &schema.Table{
		Name:       resultsTableName,
		Columns:    resultsColumns,
		PrimaryKey: []*schema.Column{resultsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "result_created_at", Columns: []*schema.Column{resultsColumns[1]}},
			{Name: "result_source", Columns: []*schema.Column{resultsColumns[4]}},
			{Name: "result_top_role", Columns: []*schema.Column{resultsColumns[7]}},
		},
	}

	llmEventsColumns = []*schema.Column{
		{Name: colID, Type: field.TypeInt64, Increment: true},
		{Name: colCreatedAt, Type: field.TypeTime},
		{Name: colProvider, Type: field.TypeString},
		{Name: colModel, Type: field.TypeString},
		{Name: colPurpose, Type: field.TypeString},
		{Name: colInputTokens, Type: field.TypeInt, Default: 0},
		{Name: colOutputTokens, Type: field.TypeInt, Default: 0},
		{Name: colLatencyMs, Type: field.TypeInt64, Default: 0},
		{Name: colSuccess, Type: field.TypeBool},
		{Name: colErrorMessage, Type: field.TypeString, Default: ""},
		{Name: colRequestBody, Type: field.TypeString, Default: ""},
		{Name: colResponseBody, Type: field.TypeString, Default: ""},
	}
	llmEventsTable = &schema.Table{
		Name:       llmEventsTableName,
		Columns:    llmEventsColumns,
		PrimaryKey: []*schema.Column{llmEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llmevent_created_at", Columns: []*schema.Column{llmEventsColumns[1]}},
			{Name: "llmevent_purpose", Columns: []*schema.Column{llmEventsColumns[4]}},
			{Name: "llmevent_success", Columns: []*schema.Column{llmEventsColumns[8]}},
		},
	}

	// tables lists everything Open migrates.
	tables = []*schema.Table{resultsTable, llmEventsTable}
)
