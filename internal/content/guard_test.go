package content

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/thraizz/wildwood-server-go/internal/game/cards"
	"github.com/thraizz/wildwood-server-go/internal/game/progression"
)

// stubGenerator lets each test override a single call.
type stubGenerator struct {
	Offline
	boss   func(ctx context.Context) (cards.Card, error)
	remix  func(batch []cards.Card) (map[string]cards.Card, error)
	story  func() (string, error)
	intros func() (Intro, error)
}

func (s stubGenerator) GenerateBoss(ctx context.Context, c cards.Character, r RunContext, recent []string) (cards.Card, error) {
	if s.boss != nil {
		return s.boss(ctx)
	}
	return s.Offline.GenerateBoss(ctx, c, r, recent)
}

func (s stubGenerator) GenerateBossIntro(ctx context.Context, c cards.Character, b cards.Card) (Intro, error) {
	if s.intros != nil {
		return s.intros()
	}
	return s.Offline.GenerateBossIntro(ctx, c, b)
}

func (s stubGenerator) RemixCards(ctx context.Context, batch []cards.Card, level int) (map[string]cards.Card, error) {
	if s.remix != nil {
		return s.remix(batch)
	}
	return s.Offline.RemixCards(ctx, batch, level)
}

func (s stubGenerator) GenerateStory(ctx context.Context, fs progression.FinalState) (string, error) {
	if s.story != nil {
		return s.story()
	}
	return s.Offline.GenerateStory(ctx, fs)
}

func TestGuardBossFallbackOnError(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	g := NewGuard(stubGenerator{boss: func(context.Context) (cards.Card, error) {
		return cards.Card{}, errors.New("upstream 500")
	}}, time.Second, zap.New(core))

	boss, ok := g.Boss(context.Background(), cards.Character{ID: "ranger"}, RunContext{}, nil)
	assert.False(t, ok)
	assert.Equal(t, "The Hollow Stag", boss.Name)
	assert.Equal(t, 20, boss.Health)
	assert.Equal(t, 4, boss.Damage)
	assert.Equal(t, cards.SizeHuge, boss.Size)
	assert.Equal(t, 1, logs.FilterMessage("boss generation failed, using default boss").Len())
}

func TestGuardBossTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	g := NewGuard(stubGenerator{boss: func(context.Context) (cards.Card, error) {
		<-block
		return cards.Card{Name: "late"}, nil
	}}, 20*time.Millisecond, zaptest.NewLogger(t))

	start := time.Now()
	boss, ok := g.Boss(context.Background(), cards.Character{}, RunContext{}, nil)
	assert.False(t, ok)
	assert.Equal(t, DefaultBoss().ID, boss.ID)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGuardNormalisesBoss(t *testing.T) {
	g := NewGuard(stubGenerator{boss: func(context.Context) (cards.Card, error) {
		return cards.Card{Name: "Mudjaw", Health: 14, Damage: -2, Owner: "ranger"}, nil
	}}, time.Second, zaptest.NewLogger(t))

	boss, ok := g.Boss(context.Background(), cards.Character{}, RunContext{}, nil)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(boss.ID, "boss-"))
	assert.Equal(t, cards.SubTypeBoss, boss.SubType)
	assert.Equal(t, cards.TypeEvent, boss.Type)
	assert.Equal(t, cards.SizeHuge, boss.Size)
	assert.Zero(t, boss.Damage)
	assert.Empty(t, boss.Owner)
	assert.True(t, boss.IsBoss())
}

func TestGuardRemixValidation(t *testing.T) {
	batch := []cards.Card{
		{ID: "hatchet", Name: "Hatchet", Type: cards.TypeItem, SubType: cards.SubTypeWeapon,
			Effect: cards.Effect{Kind: cards.EffectWeapon, Amount: 3, Category: cards.CategoryBladed}},
		{ID: "jerky", Name: "Jerky", Type: cards.TypeProvision, SubType: cards.SubTypeFood,
			Effect: cards.Effect{Kind: cards.EffectHeal, Amount: 3}},
	}
	g := NewGuard(stubGenerator{remix: func([]cards.Card) (map[string]cards.Card, error) {
		good := batch[0].Clone()
		good.Effect.Amount = 5
		retyped := batch[1].Clone()
		retyped.Type = cards.TypeItem
		return map[string]cards.Card{
			"hatchet": good,
			"jerky":   retyped,
			"ghost":   {ID: "ghost"},
		}, nil
	}}, time.Second, zaptest.NewLogger(t))

	out := g.Remix(context.Background(), batch, 1)
	require.Len(t, out, 1)
	remixed := out["hatchet"]
	assert.True(t, strings.HasPrefix(remixed.ID, "remix-"))
	assert.Equal(t, "hatchet", remixed.BaseID())
	assert.Equal(t, 5, remixed.Effect.Amount)
}

func TestGuardRemixFailureIsEmpty(t *testing.T) {
	g := NewGuard(Disabled{}, time.Second, zaptest.NewLogger(t))
	out := g.Remix(context.Background(), []cards.Card{{ID: "hatchet"}}, 1)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestGuardStoryAndIntroFallbacks(t *testing.T) {
	g := NewGuard(stubGenerator{
		story:  func() (string, error) { return "  ", nil },
		intros: func() (Intro, error) { panic("boom") },
	}, time.Second, zaptest.NewLogger(t))

	fs := progression.FinalState{Turn: 9, Character: "ranger", BossName: "Old Mossback"}
	assert.Equal(t, DefaultStory(fs), g.Story(context.Background(), fs))

	boss := DefaultBoss()
	assert.Equal(t, DefaultIntro(boss), g.Intro(context.Background(), cards.Character{}, boss))
}

func TestOfflineBossAvoidsRecentNames(t *testing.T) {
	var gen Offline
	ranger := cards.Character{ID: "ranger", Name: "Ranger"}
	run := RunContext{Theme: cards.ThemeWoodland}

	first, err := gen.GenerateBoss(context.Background(), ranger, run, nil)
	require.NoError(t, err)
	again, err := gen.GenerateBoss(context.Background(), ranger, run, nil)
	require.NoError(t, err)
	assert.Equal(t, first, again, "deterministic")

	other, err := gen.GenerateBoss(context.Background(), ranger, run, []string{first.Name})
	require.NoError(t, err)
	assert.NotEqual(t, first.Name, other.Name)
	assert.True(t, other.IsBoss())
}

func TestOfflineRemixBumpsAmounts(t *testing.T) {
	var gen Offline
	out, err := gen.RemixCards(context.Background(), []cards.Card{
		{ID: "jerky", Name: "Jerky", Effect: cards.Effect{Kind: cards.EffectHeal, Amount: 3}},
		{ID: "firewood", Name: "Firewood", Effect: cards.Effect{Kind: cards.EffectCampfire}},
	}, 2)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 4, out["jerky"].Effect.Amount)
	assert.Equal(t, "Jerky +2", out["jerky"].Name)
}
