// Package results ranks role scores and prepares them for display and
// submission.
package results

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pharmcheck/pharmcheck/internal/bank"
	"github.com/pharmcheck/pharmcheck/internal/scoring"
)

// DefaultTopN is the number of roles shown as recommendations.
const DefaultTopN = 3

// FallbackIcon is shown for roles with neither an image nor an emoji.
const FallbackIcon = "💊"

// DefaultTip is shown for roles without a description.
const DefaultTip = "This is an area where your strengths are likely to shine. " +
	"Talk to seniors at school or in industry to learn more."

var nextSteps = []string{
	"Talk to alumni working in the roles that caught your eye",
	"Revisit your placement and lab choices with these aptitudes in mind",
	"Sign up for a home-care or hospital visit, or an industry seminar",
}

// NextSteps returns the fixed list of follow-up actions shown with every result.
func NextSteps() []string {
	return append([]string(nil), nextSteps...)
}

// Rank returns a copy of scores sorted by percentage descending. Roles with
// equal percentages keep their input order.
func Rank(scores []scoring.RoleScore) []scoring.RoleScore {
	ranked := append([]scoring.RoleScore(nil), scores...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Percent > ranked[j].Percent
	})
	return ranked
}

// TopN returns the first n entries of a ranked list.
func TopN(ranked []scoring.RoleScore, n int) []scoring.RoleScore {
	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n:n]
}

// Card is the display data for one recommended role.
type Card struct {
	Rank    int    `json:"rank"`
	Role    string `json:"role"`
	Label   string `json:"label"`
	Percent int    `json:"percent"`
	Tip     string `json:"tip"`

	// Icon is always set. Image is set only when an asset exists on disk.
	Icon  string `json:"icon"`
	Image string `json:"image,omitempty"`
}

// IconResolver finds display assets for roles.
type IconResolver struct {
	// AssetsDir is searched for role images. Empty disables image lookup.
	AssetsDir string

	stat func(string) (os.FileInfo, error)
}

// NewIconResolver returns a resolver rooted at dir.
func NewIconResolver(dir string) *IconResolver {
	return &IconResolver{AssetsDir: dir, stat: os.Stat}
}

// Resolve returns the image path (possibly empty) and the icon for a role.
// Missing files are not an error.
func (r *IconResolver) Resolve(role bank.Role) (image, icon string) {
	icon = role.Icon
	if icon == "" {
		icon = FallbackIcon
	}
	if r == nil || r.AssetsDir == "" {
		return "", icon
	}

	stat := r.stat
	if stat == nil {
		stat = os.Stat
	}
	candidates := []string{filepath.Join("images", role.Key+".png")}
	if role.Image != "" {
		candidates = append([]string{filepath.FromSlash(role.Image)}, candidates...)
	}
	for _, rel := range candidates {
		p := filepath.Join(r.AssetsDir, rel)
		if fi, err := stat(p); err == nil && !fi.IsDir() {
			return p, icon
		}
	}
	return "", icon
}

// Present builds the cards for the top n roles of a ranked list.
func Present(b *bank.Bank, ranked []scoring.RoleScore, n int, icons *IconResolver) []Card {
	top := TopN(ranked, n)
	cards := make([]Card, len(top))
	for i, s := range top {
		role, ok := b.Role(s.Role)
		if !ok {
			role = bank.Role{Key: s.Role, Label: s.Role}
		}
		tip := role.Description
		if tip == "" {
			tip = DefaultTip
		}
		image, icon := icons.Resolve(role)
		cards[i] = Card{
			Rank:    i + 1,
			Role:    s.Role,
			Label:   role.Label,
			Percent: s.Percent,
			Tip:     tip,
			Icon:    icon,
			Image:   image,
		}
	}
	return cards
}
