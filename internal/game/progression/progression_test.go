package progression

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thraizz/wildwood-server-go/internal/game/cards"
)

func objective(t *testing.T, id string) cards.Card {
	t.Helper()
	cat, err := cards.Default()
	require.NoError(t, err)
	c, err := cat.Get(id)
	require.NoError(t, err)
	return c
}

func TestSelectObjectives(t *testing.T) {
	cat, err := cards.Default()
	require.NoError(t, err)

	objs := SelectObjectives(cat, rand.New(rand.NewSource(4)))
	require.Len(t, objs, ObjectivesPerRun)
	assert.NotEqual(t, objs[0].ID, objs[1].ID)
	for _, o := range objs {
		assert.Equal(t, cards.SubTypeObjective, o.SubType)
	}
}

func TestGrade(t *testing.T) {
	slayer := objective(t, "obj_slayer")
	swift := objective(t, "obj_swift")
	unscathed := objective(t, "obj_unscathed")
	trapper := objective(t, "obj_trapper")
	peace := objective(t, "obj_peacemaker")
	hoarder := objective(t, "obj_hoarder")

	tests := []struct {
		name string
		obj  cards.Card
		fs   FinalState
		want bool
	}{
		{"slayer in combat", slayer, FinalState{Victory: true, BossDefeatedInCombat: true}, true},
		{"slayer voided by talk-down", slayer, FinalState{Victory: true, BossDefeatedInCombat: true, CombatVictoryVoided: true}, false},
		{"slayer by capture", slayer, FinalState{Victory: true, BossCaptured: true}, false},
		{"swift on the limit", swift, FinalState{Victory: true, Turn: 15}, true},
		{"swift too slow", swift, FinalState{Victory: true, Turn: 16}, false},
		{"unscathed", unscathed, FinalState{Victory: true, DamageTaken: 10}, true},
		{"scathed", unscathed, FinalState{Victory: true, DamageTaken: 11}, false},
		{"trapper", trapper, FinalState{Victory: true, Captures: 1}, true},
		{"no captures", trapper, FinalState{Victory: true}, false},
		{"peacemaker", peace, FinalState{Victory: true, BossPacified: true}, true},
		{"hoarder", hoarder, FinalState{Victory: true, Gold: 30}, true},
		{"poor", hoarder, FinalState{Victory: true, Gold: 29}, false},
		{"defeat fails everything", hoarder, FinalState{Gold: 99}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Completed(tt.obj, tt.fs))
		})
	}

	summary := Grade([]cards.Card{slayer, hoarder}, FinalState{Victory: true, BossDefeatedInCombat: true, Gold: 5})
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, slayer.Effect.Reward, summary.BonusGold)
	require.Len(t, summary.Results, 2)
	assert.True(t, summary.Results[0].Completed)
	assert.False(t, summary.Results[1].Completed)
}

func TestProfileClaimIsIdempotentPerLevel(t *testing.T) {
	var p Profile

	hp, gold, err := p.Claim(1, RewardKindMaxHealth)
	require.NoError(t, err)
	assert.Equal(t, RewardMaxHealth, hp)
	assert.Zero(t, gold)

	_, _, err = p.Claim(1, RewardKindGold)
	assert.ErrorIs(t, err, ErrRewardClaimed)

	hp, gold, err = p.Claim(2, RewardKindGold)
	require.NoError(t, err)
	assert.Zero(t, hp)
	assert.Equal(t, RewardGold, gold)

	_, _, err = p.Claim(3, "wishes")
	assert.ErrorIs(t, err, ErrUnknownReward)
	assert.False(t, p.Claimed(3))

	cp := p.Clone()
	cp.RewardsClaimed[9] = RewardKindGold
	assert.False(t, p.Claimed(9))
}

func TestRememberBoss(t *testing.T) {
	var p Profile
	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		p.RememberBoss(n)
	}
	p.RememberBoss("")
	assert.Equal(t, []string{"b", "c", "d", "e", "f"}, p.RecentBosses)
}

func TestReview(t *testing.T) {
	candidates := []cards.Card{
		{ID: "hatchet", SellValue: 3},
		{ID: "jerky", SellValue: 1},
		{ID: "rifle", SellValue: 7},
	}

	kept, sold, gold, err := Review(candidates, []int{2}, KeepLimit(0, 0))
	require.NoError(t, err)
	assert.Equal(t, "rifle", kept[0].ID)
	assert.Len(t, sold, 2)
	assert.Equal(t, 4, gold)

	_, _, _, err = Review(candidates, []int{0, 0}, 5)
	assert.ErrorIs(t, err, ErrInvalidKeepIdx)
	_, _, _, err = Review(candidates, []int{3}, 5)
	assert.ErrorIs(t, err, ErrInvalidKeepIdx)

	many := make([]cards.Card, 10)
	_, _, _, err = Review(many, []int{0, 1, 2, 3, 4, 5}, KeepLimit(0, 0))
	assert.ErrorIs(t, err, ErrTooManyKept)
	_, _, _, err = Review(many, []int{0, 1, 2, 3, 4, 5}, KeepLimit(5, 1))
	assert.NoError(t, err)
}

func TestKeepLimit(t *testing.T) {
	assert.Equal(t, 5, KeepLimit(0, 0))
	assert.Equal(t, 7, KeepLimit(5, 2))
	assert.Equal(t, 4, KeepLimit(4, -1))
}

func TestCarryOverClone(t *testing.T) {
	hatchet := cards.Card{ID: "hatchet"}
	c := CarryOver{
		Kept:     []cards.Card{{ID: "rifle"}},
		Equipped: []*cards.Card{&hatchet, nil},
		Satchels: map[int][]cards.Card{1: {{ID: "jerky"}}},
		Gold:     12,
	}
	cp := c.Clone()
	cp.Equipped[0].ID = "changed"
	cp.Satchels[1][0].ID = "changed"
	assert.Equal(t, "hatchet", c.Equipped[0].ID)
	assert.Equal(t, "jerky", c.Satchels[1][0].ID)
	assert.Nil(t, cp.Equipped[1])
	assert.Equal(t, 12, cp.Gold)
}
