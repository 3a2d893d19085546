package results

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmcheck/pharmcheck/internal/bank"
	"github.com/pharmcheck/pharmcheck/internal/scoring"
)

func TestRank_StableTies(t *testing.T) {
	in := []scoring.RoleScore{
		{Role: "a", Percent: 50},
		{Role: "b", Percent: 100},
		{Role: "c", Percent: 50},
		{Role: "d", Percent: 100},
		{Role: "e", Percent: 0},
	}
	got := Rank(in)
	var order []string
	for _, s := range got {
		order = append(order, s.Role)
	}
	assert.Equal(t, []string{"b", "d", "a", "c", "e"}, order)
	assert.Equal(t, "a", in[0].Role, "input must not be reordered")
}

func TestTopN(t *testing.T) {
	ranked := Rank([]scoring.RoleScore{
		{Role: "a", Percent: 10}, {Role: "b", Percent: 90},
		{Role: "c", Percent: 40}, {Role: "d", Percent: 40},
	})
	top := TopN(ranked, DefaultTopN)
	require.Len(t, top, 3)
	for i := 1; i < len(top); i++ {
		assert.LessOrEqual(t, top[i].Percent, top[i-1].Percent)
	}
	assert.Equal(t, "b", top[0].Role)
	assert.Equal(t, "c", top[1].Role)

	assert.Len(t, TopN(ranked[:2], 3), 2)
	assert.Empty(t, TopN(ranked, -1))
}

func TestTopN_DoesNotAliasAppend(t *testing.T) {
	ranked := []scoring.RoleScore{{Role: "a"}, {Role: "b"}, {Role: "c"}}
	top := TopN(ranked, 2)
	_ = append(top, scoring.RoleScore{Role: "x"})
	assert.Equal(t, "c", ranked[2].Role)
}

func testBank(t *testing.T) *bank.Bank {
	t.Helper()
	b, err := bank.New("v1.0.0", []bank.Role{
		{Key: "hospital", Label: "Hospital pharmacist", Description: "Ward work.", Icon: "🏥"},
		{Key: "community", Label: "Community pharmacist", Image: "images/pharmacist_community.png"},
		{Key: "research", Label: "Research"},
	}, nil)
	require.NoError(t, err)
	return b
}

func TestPresent_FallbacksAndOrder(t *testing.T) {
	b := testBank(t)
	ranked := Rank([]scoring.RoleScore{
		{Role: "hospital", Percent: 70},
		{Role: "community", Percent: 100},
		{Role: "research", Percent: 70},
	})
	cards := Present(b, ranked, 3, NewIconResolver(""))
	require.Len(t, cards, 3)

	assert.Equal(t, "community", cards[0].Role)
	assert.Equal(t, 1, cards[0].Rank)
	assert.Equal(t, FallbackIcon, cards[0].Icon)
	assert.Equal(t, DefaultTip, cards[0].Tip)
	assert.Empty(t, cards[0].Image)

	assert.Equal(t, "hospital", cards[1].Role)
	assert.Equal(t, "🏥", cards[1].Icon)
	assert.Equal(t, "Ward work.", cards[1].Tip)

	assert.Equal(t, "research", cards[2].Role)
}

func TestPresent_UnknownRole(t *testing.T) {
	b := testBank(t)
	cards := Present(b, []scoring.RoleScore{{Role: "ghost", Percent: 5}}, 3, nil)
	require.Len(t, cards, 1)
	assert.Equal(t, "ghost", cards[0].Label)
	assert.Equal(t, FallbackIcon, cards[0].Icon)
}

func TestIconResolver_Images(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "images", "pharmacist_community.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "images", "research.png"), []byte("png"), 0o644))

	r := NewIconResolver(dir)
	b := testBank(t)

	community, _ := b.Role("community")
	img, icon := r.Resolve(community)
	assert.Equal(t, filepath.Join(dir, "images", "pharmacist_community.png"), img)
	assert.Equal(t, FallbackIcon, icon)

	research, _ := b.Role("research")
	img, _ = r.Resolve(research)
	assert.Equal(t, filepath.Join(dir, "images", "research.png"), img)

	hospital, _ := b.Role("hospital")
	img, icon = r.Resolve(hospital)
	assert.Empty(t, img)
	assert.Equal(t, "🏥", icon)
}

func TestIconResolver_StatErrorsAreSilent(t *testing.T) {
	r := &IconResolver{AssetsDir: "/assets", stat: func(string) (os.FileInfo, error) {
		return nil, errors.New("permission denied")
	}}
	img, icon := r.Resolve(bank.Role{Key: "x", Icon: "⚡"})
	assert.Empty(t, img)
	assert.Equal(t, "⚡", icon)
}

func TestNextSteps_ReturnsCopy(t *testing.T) {
	steps := NextSteps()
	require.Len(t, steps, 3)
	steps[0] = "changed"
	assert.NotEqual(t, "changed", NextSteps()[0])
}

func TestNewPayload(t *testing.T) {
	p := NewPayload("yuki", []bank.Answer{
		{QuestionID: "q1", Option: 0, Label: "A", Value: 1},
		{QuestionID: "q2", Option: 3, Label: "Agree", Value: 4},
	}, []scoring.RoleScore{{Role: "a", Percent: 100}, {Role: "b", Percent: 100}, {Role: "c", Percent: 20}})

	assert.Equal(t, "yuki", p.Nickname)
	require.Len(t, p.Answers, 2)
	assert.Equal(t, SubmittedAnswer{ID: "q2", Label: "Agree", Value: 4}, p.Answers[1])
	assert.Equal(t, map[string]int{"a": 100, "b": 100, "c": 20}, p.Score)
	assert.Equal(t, "a", p.TopRole([]string{"a", "b", "c"}))
	assert.Equal(t, "b", p.TopRole([]string{"c", "b", "a"}))
	assert.Equal(t, "", Payload{}.TopRole([]string{"a"}))
}
