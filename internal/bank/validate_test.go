package bank

import (
	"strings"
	"testing"
)

var testRoles = []Role{{Key: "a", Label: "A"}, {Key: "b", Label: "B"}}

func choiceQ(id string, weights ...Weights) Question {
	q := Question{ID: id, Text: id}
	for i, w := range weights {
		q.Choices = append(q.Choices, Choice{Label: string(rune('A' + i)), Weights: w})
	}
	return q
}

func TestValidate_DefaultBankPasses(t *testing.T) {
	b, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("default bank validation failed: %v", err)
	}
}

func TestValidateBank(t *testing.T) {
	tests := []struct {
		name      string
		version   string
		roles     []Role
		questions []Question
		wantErr   string
	}{
		{
			name:      "unknown role in weights",
			questions: []Question{choiceQ("q1", Weights{"nope": 1}, Weights{"a": 1})},
			wantErr:   `unknown role "nope"`,
		},
		{
			name:      "duplicate question ID",
			questions: []Question{choiceQ("q1", Weights{"a": 1}, nil), choiceQ("q1", Weights{"b": 1}, nil)},
			wantErr:   "duplicate question ID",
		},
		{
			name:      "too few choices",
			questions: []Question{choiceQ("q1", Weights{"a": 1})},
			wantErr:   "at least 2 choices",
		},
		{
			name:      "likert without weights",
			questions: []Question{{ID: "l", Text: "l", Kind: KindLikert}},
			wantErr:   "no weights",
		},
		{
			name:      "likert scale too small",
			questions: []Question{{ID: "l", Text: "l", Kind: KindLikert, Scale: 1, Weights: Weights{"a": 1}}},
			wantErr:   "scale must be >= 2",
		},
		{
			name:    "duplicate role key",
			roles:   []Role{{Key: "a", Label: "A"}, {Key: "a", Label: "A2"}},
			wantErr: "duplicate role key",
		},
		{
			name:    "bad version",
			version: "latest",
			wantErr: "not a semantic version",
		},
		{
			name:    "no roles",
			roles:   []Role{},
			wantErr: "no roles",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version := tt.version
			if version == "" {
				version = "v1.0.0"
			}
			roles := tt.roles
			if roles == nil {
				roles = testRoles
			}
			_, err := New(version, roles, tt.questions)
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error should mention %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateBank_CollectsAllProblems(t *testing.T) {
	_, err := New("bogus", testRoles, []Question{
		choiceQ("q1", Weights{"x": 1}),
		{ID: "q2", Text: "q2", Kind: KindLikert},
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	for _, want := range []string{"semantic version", "unknown role", "at least 2 choices", "no weights"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("combined error missing %q: %v", want, err)
		}
	}
}

func TestValidateBank_Valid(t *testing.T) {
	b, err := New("v0.1.0", testRoles, []Question{
		choiceQ("q1", Weights{"a": 2}, Weights{"b": 1}),
		{ID: "q2", Text: "q2", Kind: KindLikert, Scale: 7, Weights: Weights{"a": 1, "b": 0.5}},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if b.IndexOf("q2") != 1 {
		t.Errorf("IndexOf(q2) = %d, want 1", b.IndexOf("q2"))
	}
}
