package encounter

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thraizz/wildwood-server-go/internal/game/cards"
)

func card(t *testing.T, id string) *cards.Card {
	t.Helper()
	cat, err := cards.Default()
	require.NoError(t, err)
	c, err := cat.Get(id)
	require.NoError(t, err)
	return &c
}

func TestHostilityBoundaries(t *testing.T) {
	wolf := card(t, "wolf")
	assert.Equal(t, 7, wolf.Health)
	assert.True(t, IsHostile(wolf), "health 7 is hostile")

	boar := card(t, "boar")
	assert.Equal(t, 6, boar.Health)
	assert.False(t, IsHostile(boar), "health 6 is not hostile")

	thief := card(t, "pickpocket")
	assert.Equal(t, 1, thief.Health)
	assert.True(t, IsHostile(thief), "id override wins over health")

	scaled := thief.Clone()
	scaled.ID = "ng2-pickpocket"
	assert.True(t, IsHostile(&scaled), "prefixes are stripped before the id check")

	assert.True(t, IsHostile(card(t, "thunderstorm")))
	assert.True(t, IsHostile(card(t, "flash_flood")))
	assert.False(t, IsHostile(card(t, "fog")))
	assert.False(t, IsHostile(card(t, "sunny_day")))
	assert.False(t, IsHostile(card(t, "hatchet")))
	assert.False(t, IsHostile(nil))

	pacified := wolf.Clone()
	pacified.IsPacified = true
	assert.False(t, IsHostile(&pacified))
}

func TestResolveNight(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		campfire bool
		pacified bool
		want     NightOutcome
	}{
		{"thief steals", "pickpocket", false, false, NightOutcome{Kind: NightAttack, Steal: 3}},
		{"campfire never deters thieves", "bandit", true, false, NightOutcome{Kind: NightAttack, Steal: 5}},
		{"snake bites", "rattlesnake", false, false, NightOutcome{Kind: NightAttack, Damage: 2}},
		{"campfire deters snake", "rattlesnake", true, false, NightOutcome{Kind: NightDeterred}},
		{"skunk sprays", "skunk", false, false, NightOutcome{Kind: NightAttack, Damage: 1, Illness: SkunkedIllness}},
		{"campfire deters skunk", "skunk", true, false, NightOutcome{Kind: NightDeterred}},
		{"pacified leaves", "wolf", false, true, NightOutcome{Kind: NightPacifiedLeft}},
		{"non attacker", "deer", false, false, NightOutcome{Kind: NightNone}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := card(t, tt.id)
			c.IsPacified = tt.pacified
			assert.Equal(t, tt.want, ResolveNight(c, tt.campfire))
		})
	}
	assert.Equal(t, NightNone, ResolveNight(nil, false).Kind)
}

func TestResolveLingering(t *testing.T) {
	fox := card(t, "fox")
	assert.Equal(t, LingerFlee, ResolveLingering(fox))

	fox.AttackedThisTurn = true
	assert.Equal(t, LingerStay, ResolveLingering(fox))

	assert.Equal(t, LingerStay, ResolveLingering(card(t, "deer")))
	assert.Equal(t, LingerExpire, ResolveLingering(card(t, "fog")))
	assert.Equal(t, LingerReturnToWorld, ResolveLingering(card(t, "jerky")))
	assert.Equal(t, LingerDiscardValuable, ResolveLingering(card(t, "gold_nugget")))

	boss := cards.Card{ID: "boss-1", Type: cards.TypeEvent, SubType: cards.SubTypeBoss, Health: 2}
	assert.Equal(t, LingerStay, ResolveLingering(&boss))
}

func TestTrapCaptures(t *testing.T) {
	snare := card(t, "snare_trap")
	cage := card(t, "cage_trap")
	bearTrap := card(t, "bear_trap")

	assert.True(t, TrapCaptures(snare, card(t, "rabbit")))
	assert.False(t, TrapCaptures(snare, card(t, "deer")))
	assert.True(t, TrapCaptures(cage, card(t, "deer")))
	assert.True(t, TrapCaptures(bearTrap, card(t, "bear")))
	assert.False(t, TrapCaptures(cage, card(t, "bear")))
	assert.False(t, TrapCaptures(bearTrap, card(t, "fog")))

	boss := cards.Card{ID: "boss-1", Type: cards.TypeEvent, SubType: cards.SubTypeBoss, Size: cards.SizeHuge}
	assert.False(t, TrapCaptures(bearTrap, &boss), "huge threats are never captured")
	boss.Size = cards.SizeLarge
	assert.True(t, TrapCaptures(bearTrap, &boss))
}

func TestShouldForceBoss(t *testing.T) {
	assert.True(t, ShouldForceBoss(0, 3, 30, false))
	assert.True(t, ShouldForceBoss(5, 30, 30, false))
	assert.True(t, ShouldForceBoss(5, 3, 30, true))
	assert.False(t, ShouldForceBoss(5, 3, 30, false))
}

func TestSkillCheck(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ok, roll := SkillCheck(rng, 0)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, roll, 0)

	ok, _ = SkillCheck(rng, 100)
	assert.False(t, ok)

	a := rand.New(rand.NewSource(42))
	b := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		x, _ := SkillCheck(a, 50)
		y, _ := SkillCheck(b, 50)
		assert.Equal(t, x, y)
	}
}

func TestCanPet(t *testing.T) {
	assert.True(t, CanPet(card(t, "deer")))
	assert.True(t, CanPet(card(t, "wolf")))
	assert.False(t, CanPet(card(t, "pickpocket")))
	assert.False(t, CanPet(card(t, "rattlesnake")))
}
