package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thraizz/wildwood-server-go/internal/content"
	"github.com/thraizz/wildwood-server-go/internal/game/cards"
	"github.com/thraizz/wildwood-server-go/internal/game/progression"
	"github.com/thraizz/wildwood-server-go/internal/game/state"
)

func withContent(c *Config) { c.ContentEnabled = true }

func TestBossIntroLifecycle(t *testing.T) {
	h := newEngineHarness(t, withContent)
	require.NoError(t, h.e.Setup(h.ctx))
	require.NoError(t, h.e.StartRun(h.ctx, RunOptions{Character: "trapper"}))

	st := h.state()
	assert.Equal(t, state.StatusShowingBossIntro, st.Status)
	require.NotNil(t, st.AIBoss)
	assert.True(t, st.AIBoss.IsBoss())
	require.NotNil(t, st.BossIntro)
	assert.NotEmpty(t, st.BossIntro.Title)
	assert.Nil(t, st.ActiveEvent)

	res := h.apply(Action{Type: ActionRestock})
	assert.False(t, res.Accepted)

	require.NoError(t, h.e.AcknowledgeIntro(h.ctx))
	assert.Equal(t, state.StatusPlayingInitialReveal, h.state().Status)

	require.NoError(t, h.e.BeginPlay(h.ctx))
	st = h.state()
	assert.Equal(t, state.StatusPlaying, st.Status)
	require.NotNil(t, st.RunStart)
	require.NotNil(t, st.RunStart.Boss)
	assert.Equal(t, st.AIBoss.ID, st.RunStart.Boss.ID)
}

func TestGeneratedBossIsRegistered(t *testing.T) {
	h := newEngineHarness(t, withContent)
	require.NoError(t, h.e.Setup(h.ctx))
	require.NoError(t, h.e.StartRun(h.ctx, RunOptions{Character: "outlaw"}))

	boss := h.state().AIBoss
	require.NotNil(t, boss)
	_, ok := h.e.Catalog().Lookup(boss.ID)
	assert.True(t, ok)
}

func TestLifecycleOrderIsEnforced(t *testing.T) {
	h := newEngineHarness(t)

	assert.ErrorIs(t, h.e.BeginPlay(h.ctx), ErrRejected)
	assert.ErrorIs(t, h.e.AcknowledgeIntro(h.ctx), ErrRejected)
	assert.ErrorIs(t, h.e.StartRun(h.ctx, RunOptions{Character: "ranger"}), ErrRejected)
	assert.Equal(t, state.StatusLanding, h.state().Status)
}

func TestRetryRestoresRunStart(t *testing.T) {
	h := newEngineHarness(t)
	require.NoError(t, h.e.Setup(h.ctx))
	require.NoError(t, h.e.StartRun(h.ctx, RunOptions{Character: "herbalist"}))
	snap := h.state().RunStart
	require.NotNil(t, snap)

	h.edit(func(st *state.GameState, p *state.Player) {
		p.Gold = 99
		p.Health = 0
		st.Turn = 7
		st.Status = state.StatusFinished
	})

	require.NoError(t, h.e.RetryRun(h.ctx))

	st := h.state()
	p := st.Player()
	assert.Equal(t, state.StatusPlaying, st.Status)
	assert.Equal(t, 1, st.Turn)
	assert.Equal(t, snap.Gold, p.Gold)
	assert.Equal(t, snap.Health, p.Health)
	assert.Equal(t, snap.Hand, p.Hand)
	assert.Equal(t, snap.EventDeck, st.EventDeck)
	assert.Equal(t, "herbalist", p.Character)
	assert.NotNil(t, st.RunStart)
}

func TestRetryNeedsSnapshot(t *testing.T) {
	h := newEngineHarness(t)
	h.start("ranger")
	h.edit(func(st *state.GameState, _ *state.Player) {
		st.RunStart = nil
		st.Status = state.StatusFinished
	})

	assert.ErrorIs(t, h.e.RetryRun(h.ctx), ErrRejected)
	assert.Equal(t, state.StatusFinished, h.state().Status)
}

// winRun finishes the current run with a boss victory.
func winRun(t *testing.T, h *engineHarness) {
	t.Helper()
	h.edit(func(st *state.GameState, _ *state.Player) {
		st.AIBoss = content.DefaultBoss().Ptr()
		st.BossCaptured = true
	})
	r := h.endDay()
	require.True(t, r.Victory)
}

func TestDeckReviewAdvancesLevel(t *testing.T) {
	h := newEngineHarness(t)
	h.start("ranger")

	assert.ErrorIs(t, h.e.BeginDeckReview(h.ctx), ErrRejected)

	winRun(t, h)
	require.NoError(t, h.e.BeginDeckReview(h.ctx))

	st := h.state()
	assert.Equal(t, state.StatusDeckReview, st.Status)
	require.NotEmpty(t, st.ReviewCandidates)
	for _, c := range st.ReviewCandidates {
		assert.False(t, c.IsUnique(), c.ID)
	}
	assert.Equal(t, 5, h.e.KeepLimit())

	kept := st.ReviewCandidates[0]
	proceeds := 0
	for _, c := range st.ReviewCandidates[1:] {
		proceeds += c.SellValue
	}
	gold := st.Player().Gold

	tooMany := make([]int, len(st.ReviewCandidates)+1)
	assert.ErrorIs(t, h.e.ConfirmDeckReview(h.ctx, tooMany), ErrRejected)

	require.NoError(t, h.e.ConfirmDeckReview(h.ctx, []int{0}))

	st = h.state()
	assert.Equal(t, state.StatusSetup, st.Status)
	assert.Equal(t, 1, st.NGPlusLevel)
	assert.Nil(t, st.RunStart)
	require.NotNil(t, st.CarryOver)
	require.Len(t, st.CarryOver.Kept, 1)
	assert.Equal(t, kept.ID, st.CarryOver.Kept[0].ID)
	assert.Equal(t, gold+proceeds, st.CarryOver.Gold)
	assert.Equal(t, 1, st.Progress.RewardOffered)
	assert.False(t, st.IsLoadingNGPlus)
}

func TestRewardIsClaimedOncePerLevel(t *testing.T) {
	h := newEngineHarness(t)
	h.start("ranger")

	assert.ErrorIs(t, h.e.ChooseReward(h.ctx, progression.RewardKindGold), ErrRejected)

	winRun(t, h)
	require.NoError(t, h.e.BeginDeckReview(h.ctx))
	require.NoError(t, h.e.ConfirmDeckReview(h.ctx, nil))
	carried := h.state().CarryOver
	require.NotNil(t, carried)

	require.NoError(t, h.e.ChooseReward(h.ctx, progression.RewardKindMaxHealth))
	require.NoError(t, h.e.ChooseReward(h.ctx, progression.RewardKindGold))

	st := h.state()
	assert.Equal(t, carried.MaxHealth+progression.RewardMaxHealth, st.CarryOver.MaxHealth)
	assert.Equal(t, carried.Gold, st.CarryOver.Gold)
	assert.True(t, st.Progress.Claimed(1))

	require.NoError(t, h.e.StartRun(h.ctx, RunOptions{Character: "ranger"}))
	p := h.player()
	assert.Equal(t, carried.MaxHealth+progression.RewardMaxHealth, p.MaxHealth)
	assert.Equal(t, 1, h.state().NGPlusLevel)
}

func TestKeptCardsJoinNextRun(t *testing.T) {
	h := newEngineHarness(t)
	h.start("ranger")
	h.setHand("rifle")
	winRun(t, h)
	require.NoError(t, h.e.BeginDeckReview(h.ctx))

	idx := -1
	for i, c := range h.state().ReviewCandidates {
		if c.ID == "rifle" {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	require.NoError(t, h.e.ConfirmDeckReview(h.ctx, []int{idx}))
	require.NoError(t, h.e.StartRun(h.ctx, RunOptions{Character: "ranger"}))

	assert.True(t, ownsCard(h.player(), "rifle"))
}

func TestHardResetClearsProgress(t *testing.T) {
	h := newEngineHarness(t)
	h.start("ranger")
	winRun(t, h)

	require.NoError(t, h.e.HardReset(h.ctx))

	st := h.state()
	assert.Equal(t, state.StatusLanding, st.Status)
	assert.Nil(t, st.Player())
	assert.Zero(t, st.Progress.Victories)
	assert.Zero(t, st.NGPlusLevel)
}

func TestRetryRefusedAfterVictory(t *testing.T) {
	h := newEngineHarness(t)
	h.start("ranger")
	winRun(t, h)

	assert.ErrorIs(t, h.e.RetryRun(h.ctx), ErrRejected)

	st := h.state()
	assert.Equal(t, state.StatusFinished, st.Status)
	assert.True(t, st.Victory)
	assert.Equal(t, 1, st.Progress.Victories)
}

func TestFailedStartRunLeavesEngineUntouched(t *testing.T) {
	h := newEngineHarness(t)
	require.NoError(t, h.e.Setup(h.ctx))

	keepsake := cards.Card{ID: "keepsake", Name: "Keepsake", Type: cards.TypeItem}
	require.NoError(t, h.e.Catalog().Register(keepsake))
	broken := cards.Card{
		ID:     "cursed_tonic",
		Name:   "Cursed Tonic",
		Type:   cards.TypeProvision,
		Effect: cards.Effect{Kind: cards.EffectHeal},
	}
	h.edit(func(st *state.GameState, _ *state.Player) {
		st.CarryOver = &progression.CarryOver{Kept: []cards.Card{broken}, Gold: 7, MaxHealth: 22}
	})
	rng := h.e.rng

	err := h.e.StartRun(h.ctx, RunOptions{Character: "ranger"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cursed_tonic")

	st := h.state()
	assert.Equal(t, state.StatusSetup, st.Status)
	require.NotNil(t, st.CarryOver)
	assert.Equal(t, 7, st.CarryOver.Gold)
	assert.True(t, h.e.Catalog().IsCustom("keepsake"))
	assert.Same(t, rng, h.e.rng)
}
