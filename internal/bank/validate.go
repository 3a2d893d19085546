package bank

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/mod/semver"
)

// Validate re-runs the structural checks on an already loaded bank.
func (b *Bank) Validate() error {
	return validateBank(b)
}

// validateBank performs all cross-reference checks on a bank.
// Returns a combined error describing all problems found, or nil if valid.
func validateBank(b *Bank) error {
	var errs []string

	if !semver.IsValid(canonicalVersion(b.Version)) {
		errs = append(errs, fmt.Sprintf("version %q is not a semantic version", b.Version))
	}

	if len(b.Roles) == 0 {
		errs = append(errs, "no roles defined")
	}
	roleSet := make(map[string]bool, len(b.Roles))
	for _, r := range b.Roles {
		if r.Key == "" {
			errs = append(errs, "role with empty key")
			continue
		}
		if roleSet[r.Key] {
			errs = append(errs, fmt.Sprintf("duplicate role key: %q", r.Key))
		}
		roleSet[r.Key] = true
		if strings.TrimSpace(r.Label) == "" {
			errs = append(errs, fmt.Sprintf("role %q has no label", r.Key))
		}
	}

	checkWeights := func(prefix string, w Weights) {
		for key, v := range w {
			if !roleSet[key] {
				errs = append(errs, fmt.Sprintf("%s references unknown role %q", prefix, key))
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				errs = append(errs, fmt.Sprintf("%s has non-finite weight for %q", prefix, key))
			}
		}
	}

	idSet := make(map[string]bool, len(b.Questions))
	for _, q := range b.Questions {
		prefix := fmt.Sprintf("question %q", q.ID)
		if q.ID == "" {
			errs = append(errs, "question with empty ID")
		} else if idSet[q.ID] {
			errs = append(errs, fmt.Sprintf("duplicate question ID: %q", q.ID))
		}
		idSet[q.ID] = true

		if strings.TrimSpace(q.Text) == "" {
			errs = append(errs, fmt.Sprintf("%s has no text", prefix))
		}

		switch q.EffectiveKind() {
		case KindChoice:
			if len(q.Choices) < 2 {
				errs = append(errs, fmt.Sprintf("%s needs at least 2 choices, got %d", prefix, len(q.Choices)))
			}
			if len(q.Weights) > 0 {
				errs = append(errs, fmt.Sprintf("%s: question-level weights are only valid on likert questions", prefix))
			}
			for i, c := range q.Choices {
				cp := fmt.Sprintf("%s choice %d", prefix, i)
				if strings.TrimSpace(c.Label) == "" {
					errs = append(errs, fmt.Sprintf("%s has no label", cp))
				}
				checkWeights(cp, c.Weights)
			}
		case KindLikert:
			if n := q.ScalePoints(); n < 2 {
				errs = append(errs, fmt.Sprintf("%s: scale must be >= 2, got %d", prefix, n))
			}
			if len(q.Choices) > 0 {
				errs = append(errs, fmt.Sprintf("%s: likert questions take weights, not choices", prefix))
			}
			if len(q.Weights) == 0 {
				errs = append(errs, fmt.Sprintf("%s: likert question has no weights", prefix))
			}
			checkWeights(prefix, q.Weights)
		default:
			errs = append(errs, fmt.Sprintf("%s has unknown kind %q", prefix, q.Kind))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("question bank validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// canonicalVersion accepts versions written with or without the leading "v".
func canonicalVersion(v string) string {
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// CompareVersions orders two bank versions by semantic version precedence.
func CompareVersions(a, b string) int {
	return semver.Compare(canonicalVersion(a), canonicalVersion(b))
}
