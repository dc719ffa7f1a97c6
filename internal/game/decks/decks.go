// Package decks builds the player, store and event decks of a run from a
// themed card pool.
package decks

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/thraizz/wildwood-server-go/internal/game/cards"
)

const (
	PlayerDeckTarget = 12
	PlayerDeckMax    = 16
	PlayerDeckExtras = 2
	StoreDeckSize    = 15
	EventDeckSize    = 24
	FillerID         = "trail_mix"

	MinLowShare    = 0.30
	MinMediumShare = 0.30
	MinHighShare   = 0.15
)

// World is the three decks a run starts with.
type World struct {
	Theme      string
	PlayerDeck []cards.Card
	StoreDeck  []cards.Card
	EventDeck  []cards.Card
}

// ScaledID returns the id of a card scaled for an NG+ level.
func ScaledID(id string, level int) string {
	return fmt.Sprintf("ng%d-%s", level, cards.BaseID(id))
}

// ScaleStoreCard raises the buy cost of a store card by the NG+ level.
func ScaleStoreCard(c cards.Card, level int) cards.Card {
	if level <= 0 {
		return c
	}
	out := c.Clone()
	out.ID = ScaledID(c.ID, level)
	out.BuyCost += level
	return out
}

// ScaleThreat raises a threat's health by the level and damage by half the
// level. Non-threats are returned unchanged.
func ScaleThreat(c cards.Card, level int) cards.Card {
	if level <= 0 || c.SubType != cards.SubTypeThreat {
		return c
	}
	out := c.Clone()
	out.ID = ScaledID(c.ID, level)
	out.Health += level
	out.Damage += level / 2
	return out
}

func shuffle(rng *rand.Rand, deck []cards.Card) {
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
}

// BuildPlayerDeck assembles the starting deck: starter kit and carry-over,
// topped off with filler, plus a small random sample of the theme pool,
// trimmed to the maximum and shuffled.
func BuildPlayerDeck(catalog *cards.Catalog, character cards.Character, carryOver []cards.Card, pool []cards.Card, rng *rand.Rand) ([]cards.Card, error) {
	deck := make([]cards.Card, 0, PlayerDeckMax+PlayerDeckExtras)
	for _, id := range character.Starters {
		c, err := catalog.Get(id)
		if err != nil {
			return nil, fmt.Errorf("character %s starter: %w", character.ID, err)
		}
		deck = append(deck, c)
	}
	for _, c := range carryOver {
		deck = append(deck, c.Clone())
	}

	if len(deck) < PlayerDeckTarget {
		filler, err := catalog.Get(FillerID)
		if err != nil {
			return nil, fmt.Errorf("filler card: %w", err)
		}
		for len(deck) < PlayerDeckTarget {
			deck = append(deck, filler.Clone())
		}
	}

	var candidates []cards.Card
	for _, c := range pool {
		if c.IsPurchasable() {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) > 0 {
		perm := rng.Perm(len(candidates))
		for i := 0; i < PlayerDeckExtras && i < len(perm); i++ {
			deck = append(deck, candidates[perm[i]].Clone())
		}
	}

	deck = trimPlayerDeck(deck)
	shuffle(rng, deck)
	return deck, nil
}

func trimPlayerDeck(deck []cards.Card) []cards.Card {
	for len(deck) > PlayerDeckMax {
		idx := len(deck) - 1
		for i := len(deck) - 1; i >= 0; i-- {
			if deck[i].ID == FillerID {
				idx = i
				break
			}
		}
		deck = append(deck[:idx], deck[idx+1:]...)
	}
	return deck
}

// BuildStoreDeck draws a random sample of distinct purchasable cards.
func BuildStoreDeck(pool []cards.Card, level int, rng *rand.Rand) []cards.Card {
	var candidates []cards.Card
	seen := make(map[string]bool)
	for _, c := range pool {
		if !c.IsPurchasable() || seen[c.BaseID()] {
			continue
		}
		seen[c.BaseID()] = true
		candidates = append(candidates, c)
	}
	shuffle(rng, candidates)
	if len(candidates) > StoreDeckSize {
		candidates = candidates[:StoreDeckSize]
	}

	deck := make([]cards.Card, 0, len(candidates))
	for _, c := range candidates {
		deck = append(deck, ScaleStoreCard(c, level))
	}
	return deck
}

// MinimumTierCounts returns the minimum number of low, medium and high
// threats an event deck of the given size must hold.
func MinimumTierCounts(size int) (low, medium, high int) {
	ceil := func(share float64) int { return int(math.Ceil(share*float64(size) - 1e-9)) }
	return ceil(MinLowShare), ceil(MinMediumShare), ceil(MinHighShare)
}

// BuildEventDeck draws the event deck from the theme pool and every item
// the store did not take. Tier minimums are met first, repeating cards
// when a tier is thin; the rest of the deck is drawn from non-threat
// events, items and valuables.
func BuildEventDeck(pool []cards.Card, allocated map[string]bool, level int, rng *rand.Rand) []cards.Card {
	tiers := map[cards.Tier][]cards.Card{}
	var rest []cards.Card
	for _, c := range pool {
		switch {
		case c.SubType == cards.SubTypeThreat:
			tiers[c.Tier()] = append(tiers[c.Tier()], c)
		case c.Type == cards.TypeEvent:
			if c.SubType == cards.SubTypeEnvironmental || c.SubType == cards.SubTypeIllness {
				rest = append(rest, c)
			}
		case c.IsValuable():
			rest = append(rest, c)
		case c.IsPurchasable() && !allocated[c.BaseID()]:
			rest = append(rest, c)
		}
	}

	deck := make([]cards.Card, 0, EventDeckSize)
	low, medium, high := MinimumTierCounts(EventDeckSize)
	deck = appendSample(deck, tiers[cards.TierLow], low, rng)
	deck = appendSample(deck, tiers[cards.TierMedium], medium, rng)
	deck = appendSample(deck, tiers[cards.TierHigh], high, rng)

	remaining := EventDeckSize - len(deck)
	if remaining > 0 {
		fill := rest
		if len(fill) == 0 {
			fill = append(append(append([]cards.Card(nil), tiers[cards.TierLow]...), tiers[cards.TierMedium]...), tiers[cards.TierHigh]...)
		}
		deck = appendSample(deck, fill, remaining, rng)
	}

	for i := range deck {
		deck[i] = ScaleThreat(deck[i], level)
	}
	shuffle(rng, deck)
	return deck
}

// appendSample appends n cards drawn from src without replacement, cycling
// through fresh permutations when src is smaller than n.
func appendSample(dst, src []cards.Card, n int, rng *rand.Rand) []cards.Card {
	if len(src) == 0 {
		return dst
	}
	for n > 0 {
		for _, idx := range rng.Perm(len(src)) {
			if n == 0 {
				break
			}
			dst = append(dst, src[idx].Clone())
			n--
		}
	}
	return dst
}

// BuildWorld composes the player, store and event decks for a run and
// registers every scaled card in the catalog overlay.
func BuildWorld(catalog *cards.Catalog, character cards.Character, carryOver []cards.Card, level int, rng *rand.Rand) (*World, error) {
	theme := cards.ThemeForLevel(level)
	pool := catalog.ThemePool(theme)

	playerDeck, err := BuildPlayerDeck(catalog, character, carryOver, pool, rng)
	if err != nil {
		return nil, err
	}
	storeDeck := BuildStoreDeck(pool, level, rng)

	allocated := make(map[string]bool, len(storeDeck))
	for _, c := range storeDeck {
		allocated[c.BaseID()] = true
	}
	eventDeck := BuildEventDeck(pool, allocated, level, rng)

	if err := registerMutated(catalog, storeDeck, eventDeck); err != nil {
		return nil, err
	}

	return &World{
		Theme:      theme,
		PlayerDeck: playerDeck,
		StoreDeck:  storeDeck,
		EventDeck:  eventDeck,
	}, nil
}

func registerMutated(catalog *cards.Catalog, piles ...[]cards.Card) error {
	for _, pile := range piles {
		for _, c := range pile {
			if catalog.IsBase(c.ID) || catalog.IsCustom(c.ID) {
				continue
			}
			if err := catalog.Register(c); err != nil {
				return fmt.Errorf("register %s: %w", c.ID, err)
			}
		}
	}
	return nil
}

// RebuildSeed derives a deterministic seed from theme and turn.
func RebuildSeed(theme string, turn int) int64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%s:%d", theme, turn)
	return int64(h.Sum64() & math.MaxInt64)
}

// RebuildEventDeck reconstructs an event deck deterministically from the
// theme and turn. Used when a loaded save holds an empty event deck
// mid-run.
func RebuildEventDeck(catalog *cards.Catalog, theme string, level, turn int) ([]cards.Card, error) {
	rng := rand.New(rand.NewSource(RebuildSeed(theme, turn)))
	deck := BuildEventDeck(catalog.ThemePool(theme), nil, level, rng)
	if err := registerMutated(catalog, deck); err != nil {
		return nil, err
	}
	return deck, nil
}
