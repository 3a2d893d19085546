// Package scoring turns recorded answers into per-role affinity percentages.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/pharmcheck/pharmcheck/internal/bank"
)

// Policy selects how raw accumulators are mapped onto 0..100.
type Policy string

const (
	// PolicyMaxRelative divides by the largest accumulator, so the top role
	// scores 100.
	PolicyMaxRelative Policy = "max-relative"

	// PolicyShareOfTotal divides by the sum of absolute accumulators, so the
	// percentages sum to at most 100.
	PolicyShareOfTotal Policy = "share-of-total"
)

// ParsePolicy maps a configuration string to a Policy. Empty selects the default.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "":
		return DefaultConfig().Policy, nil
	case PolicyMaxRelative, PolicyShareOfTotal:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("unknown normalization policy %q", s)
	}
}

// Config holds scoring parameters.
type Config struct {
	Policy Policy
}

// DefaultConfig returns the production scoring configuration.
func DefaultConfig() Config {
	return Config{Policy: PolicyMaxRelative}
}

// RoleScore is the derived score for one role.
type RoleScore struct {
	Role    string  `json:"role"`
	Raw     float64 `json:"raw"`
	Percent int     `json:"percent"`
}

// Score accumulates weights for every answer and normalizes the result.
// Scores are returned in the bank's role order. Answers that reference
// unknown questions or options are ignored.
func Score(b *bank.Bank, answers []bank.Answer, cfg Config) []RoleScore {
	keys := b.RoleKeys()
	acc := make(map[string]float64, len(keys))

	for _, a := range answers {
		q, ok := b.Question(a.QuestionID)
		if !ok {
			continue
		}
		opts := q.Options()
		if a.Option < 0 || a.Option >= len(opts) {
			continue
		}
		opt := opts[a.Option]
		for role, w := range opt.Weights {
			acc[role] += w * opt.Factor
		}
	}

	denom := denominator(keys, acc, cfg.Policy)
	scores := make([]RoleScore, len(keys))
	for i, k := range keys {
		scores[i] = RoleScore{
			Role:    k,
			Raw:     acc[k],
			Percent: percent(acc[k], denom),
		}
	}
	if cfg.Policy == PolicyShareOfTotal {
		apportion(scores, denom)
	}
	return scores
}

// apportion re-rounds share-of-total percentages with the largest remainder
// method so that independent rounding can never push the sum above 100.
// Each percentage stays within one point of its exact value.
func apportion(scores []RoleScore, denom float64) {
	type rem struct {
		idx  int
		frac float64
	}
	var (
		exactSum float64
		floorSum int
		rems     []rem
	)
	for i := range scores {
		if scores[i].Raw <= 0 {
			continue
		}
		exact := scores[i].Raw / denom * 100
		fl := math.Floor(exact)
		scores[i].Percent = int(fl)
		exactSum += exact
		floorSum += int(fl)
		rems = append(rems, rem{idx: i, frac: exact - fl})
	}
	target := min(100, int(math.Round(exactSum)))

	// Largest fractions first; ties keep role order.
	sort.SliceStable(rems, func(a, b int) bool { return rems[a].frac > rems[b].frac })
	for j := 0; floorSum < target && j < len(rems); j++ {
		scores[rems[j].idx].Percent++
		floorSum++
	}
}

// denominator is floored at 1, so under max-relative the top role scores
// below 100 when every accumulator is below 1.
func denominator(keys []string, acc map[string]float64, p Policy) float64 {
	var d float64
	switch p {
	case PolicyShareOfTotal:
		for _, k := range keys {
			d += math.Abs(acc[k])
		}
	default:
		for _, k := range keys {
			d = math.Max(d, acc[k])
		}
	}
	return math.Max(1, d)
}

func percent(v, denom float64) int {
	p := math.Round(v / denom * 100)
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return int(p)
}

// Percentages flattens scores into a role -> percent map.
func Percentages(scores []RoleScore) map[string]int {
	m := make(map[string]int, len(scores))
	for _, s := range scores {
		m[s.Role] = s.Percent
	}
	return m
}
