package decks

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thraizz/wildwood-server-go/internal/game/cards"
)

func newCatalog(t *testing.T) *cards.Catalog {
	t.Helper()
	cat, err := cards.Default()
	require.NoError(t, err)
	return cat
}

func countID(deck []cards.Card, id string) int {
	n := 0
	for _, c := range deck {
		if c.ID == id {
			n++
		}
	}
	return n
}

func TestBuildPlayerDeckTopsOffWithFiller(t *testing.T) {
	cat := newCatalog(t)
	ranger, ok := cat.Character("ranger")
	require.True(t, ok)

	rng := rand.New(rand.NewSource(7))
	deck, err := BuildPlayerDeck(cat, ranger, nil, cat.ThemePool(cards.ThemeWoodland), rng)
	require.NoError(t, err)

	assert.Len(t, deck, PlayerDeckTarget+PlayerDeckExtras)
	assert.Equal(t, 1, countID(deck, "ranger_heirloom_bow"))
	assert.Equal(t, 1, countID(deck, "ranger_quiver"))
	assert.GreaterOrEqual(t, countID(deck, FillerID), PlayerDeckTarget-len(ranger.Starters))
}

func TestBuildPlayerDeckTrimsOversized(t *testing.T) {
	cat := newCatalog(t)
	outlaw, ok := cat.Character("outlaw")
	require.True(t, ok)

	hatchet, err := cat.Get("hatchet")
	require.NoError(t, err)
	carry := make([]cards.Card, 14)
	for i := range carry {
		carry[i] = hatchet
	}

	deck, err := BuildPlayerDeck(cat, outlaw, carry, cat.ThemePool(cards.ThemeWoodland), rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	assert.Len(t, deck, PlayerDeckMax)
	assert.Equal(t, 1, countID(deck, "outlaw_revolver"), "starters survive trimming")
}

func TestTrimRemovesFillerFirst(t *testing.T) {
	deck := make([]cards.Card, 0, 18)
	deck = append(deck, cards.Card{ID: FillerID})
	for i := 0; i < 17; i++ {
		deck = append(deck, cards.Card{ID: "hatchet"})
	}
	deck = trimPlayerDeck(deck)
	assert.Len(t, deck, PlayerDeckMax)
	assert.Equal(t, 0, countID(deck, FillerID))
}

func TestBuildPlayerDeckUnknownStarter(t *testing.T) {
	cat := newCatalog(t)
	bad := cards.Character{ID: "ghost", Starters: []string{"no_such_card"}}
	_, err := BuildPlayerDeck(cat, bad, nil, nil, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, cards.ErrUnknownCard)
}

func TestBuildStoreDeck(t *testing.T) {
	cat := newCatalog(t)
	pool := cat.ThemePool(cards.ThemeFrontier)

	deck := BuildStoreDeck(pool, 0, rand.New(rand.NewSource(11)))
	require.Len(t, deck, StoreDeckSize)

	seen := map[string]bool{}
	for _, c := range deck {
		assert.True(t, c.IsPurchasable(), c.ID)
		assert.False(t, c.IsValuable(), c.ID)
		assert.Empty(t, c.Owner, c.ID)
		assert.False(t, seen[c.ID], "duplicate %s", c.ID)
		seen[c.ID] = true
	}

	scaled := BuildStoreDeck(pool, 2, rand.New(rand.NewSource(11)))
	for i, c := range scaled {
		assert.True(t, strings.HasPrefix(c.ID, "ng2-"), c.ID)
		assert.Equal(t, deck[i].BuyCost+2, c.BuyCost)
	}
}

func TestBuildEventDeckBalance(t *testing.T) {
	cat := newCatalog(t)
	low, medium, high := MinimumTierCounts(EventDeckSize)
	assert.Equal(t, 8, low)
	assert.Equal(t, 8, medium)
	assert.Equal(t, 4, high)

	for _, theme := range []string{cards.ThemeWoodland, cards.ThemeFrontier, cards.ThemeBadlands} {
		for seed := int64(0); seed < 20; seed++ {
			deck := BuildEventDeck(cat.ThemePool(theme), nil, 0, rand.New(rand.NewSource(seed)))
			require.Len(t, deck, EventDeckSize)

			counts := map[cards.Tier]int{}
			for _, c := range deck {
				counts[c.Tier()]++
				assert.Empty(t, c.Owner)
				assert.NotEqual(t, cards.SubTypeObjective, c.SubType)
				assert.NotEqual(t, cards.SubTypeBoss, c.SubType)
			}
			assert.GreaterOrEqual(t, counts[cards.TierLow], low, theme)
			assert.GreaterOrEqual(t, counts[cards.TierMedium], medium, theme)
			assert.GreaterOrEqual(t, counts[cards.TierHigh], high, theme)
		}
	}
}

func TestBuildEventDeckSkipsStoreAllocation(t *testing.T) {
	cat := newCatalog(t)
	pool := cat.ThemePool(cards.ThemeWoodland)

	allocated := map[string]bool{}
	for _, c := range pool {
		if c.IsPurchasable() {
			allocated[c.BaseID()] = true
		}
	}
	deck := BuildEventDeck(pool, allocated, 0, rand.New(rand.NewSource(5)))
	for _, c := range deck {
		assert.False(t, c.IsPurchasable(), "allocated item %s leaked into event deck", c.ID)
	}
}

func TestBuildEventDeckScalesThreats(t *testing.T) {
	cat := newCatalog(t)
	deck := BuildEventDeck(cat.ThemePool(cards.ThemeFrontier), nil, 3, rand.New(rand.NewSource(9)))
	for _, c := range deck {
		if c.SubType != cards.SubTypeThreat {
			assert.False(t, strings.HasPrefix(c.ID, "ng"), c.ID)
			continue
		}
		base, err := cat.Get(c.BaseID())
		require.NoError(t, err)
		assert.Equal(t, "ng3-"+base.ID, c.ID)
		assert.Equal(t, base.Health+3, c.Health)
		assert.Equal(t, base.Damage+1, c.Damage)
	}
}

func TestBuildWorldRegistersScaledCards(t *testing.T) {
	cat := newCatalog(t)
	trapper, ok := cat.Character("trapper")
	require.True(t, ok)

	world, err := BuildWorld(cat, trapper, nil, 2, rand.New(rand.NewSource(21)))
	require.NoError(t, err)
	assert.Equal(t, cards.ThemeFrontier, world.Theme)

	for _, pile := range [][]cards.Card{world.StoreDeck, world.EventDeck, world.PlayerDeck} {
		for _, c := range pile {
			_, ok := cat.Lookup(c.ID)
			assert.True(t, ok, "card %s must resolve", c.ID)
		}
	}

	allocated := map[string]bool{}
	for _, c := range world.StoreDeck {
		allocated[c.BaseID()] = true
	}
	for _, c := range world.EventDeck {
		if c.IsPurchasable() {
			assert.False(t, allocated[c.BaseID()], "%s is in both store and event deck", c.ID)
		}
	}
}

func TestRebuildEventDeckDeterministic(t *testing.T) {
	cat := newCatalog(t)
	a, err := RebuildEventDeck(cat, cards.ThemeWoodland, 0, 7)
	require.NoError(t, err)
	b, err := RebuildEventDeck(cat, cards.ThemeWoodland, 0, 7)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := RebuildEventDeck(cat, cards.ThemeWoodland, 0, 8)
	require.NoError(t, err)
	assert.Len(t, c, EventDeckSize)
	assert.NotEqual(t, RebuildSeed(cards.ThemeWoodland, 7), RebuildSeed(cards.ThemeWoodland, 8))
}
