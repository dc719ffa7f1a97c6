// Package combat computes attack power and applies damage and healing.
// Every function is pure: identical inputs always produce identical outputs.
package combat

import (
	"github.com/thraizz/wildwood-server-go/internal/game/cards"
)

// EquippedBonus is added to a weapon that is currently equipped.
const EquippedBonus = 1

type modifier struct {
	flat       int
	multiplier int
}

// modifierFor reports what a card contributes to a weapon of category.
func modifierFor(c *cards.Card, category cards.Category) modifier {
	none := modifier{multiplier: 1}
	if c == nil {
		return none
	}
	switch c.Effect.Kind {
	case cards.EffectAttackBonus:
		if c.Effect.Category == category {
			return modifier{flat: c.Effect.Amount, multiplier: 1}
		}
		return none
	case cards.EffectAttackMultiplier:
		if c.Effect.Category == category && c.Effect.Multiplier > 1 {
			return modifier{multiplier: c.Effect.Multiplier}
		}
		return none
	case cards.EffectNone, cards.EffectWeapon, cards.EffectHeal, cards.EffectDamage,
		cards.EffectGold, cards.EffectTrap, cards.EffectUpgrade, cards.EffectPassive,
		cards.EffectScout, cards.EffectDraw, cards.EffectStorage, cards.EffectCampfire,
		cards.EffectCure, cards.EffectDiscard, cards.EffectIllness, cards.EffectSteal,
		cards.EffectLoseTurn, cards.EffectObjective:
		return none
	default:
		return none
	}
}

// IsEquipped reports whether a card with the weapon's id occupies a slot.
func IsEquipped(weapon cards.Card, equipped []*cards.Card) bool {
	for _, c := range equipped {
		if c != nil && c.ID == weapon.ID {
			return true
		}
	}
	return false
}

// AttackPower computes a weapon's attack in a fixed order:
// base, equipped bonus, equipped flat bonuses, equipped multipliers, then
// flat bonuses from cards held in hand.
func AttackPower(weapon cards.Card, equipped []*cards.Card, hand []*cards.Card) int {
	if weapon.Effect.Kind != cards.EffectWeapon {
		return 0
	}
	category := weapon.Effect.Category

	power := weapon.Effect.Amount
	if IsEquipped(weapon, equipped) {
		power += EquippedBonus
	}
	for _, c := range equipped {
		power += modifierFor(c, category).flat
	}
	for _, c := range equipped {
		power *= modifierFor(c, category).multiplier
	}
	for _, c := range hand {
		power += modifierFor(c, category).flat
	}
	return power
}

// BestWeapon returns the strongest weapon of category among equipped and
// hand cards. An empty category matches any weapon.
func BestWeapon(category cards.Category, equipped []*cards.Card, hand []*cards.Card) (cards.Card, int, bool) {
	var (
		best  cards.Card
		power int
		found bool
	)
	consider := func(c *cards.Card) {
		if c == nil || !c.IsWeapon() {
			return
		}
		if category != cards.CategoryNone && c.Effect.Category != category {
			return
		}
		p := AttackPower(*c, equipped, hand)
		if !found || p > power {
			best, power, found = *c, p, true
		}
	}
	for _, c := range equipped {
		consider(c)
	}
	for _, c := range hand {
		consider(c)
	}
	return best, power, found
}

// BonusDamage computes the damage of an action card. Categorised actions
// add their amount on top of the strongest matching weapon's attack power;
// uncategorised actions, or actions with no matching weapon, deal their
// flat amount.
func BonusDamage(action cards.Card, equipped []*cards.Card, hand []*cards.Card) int {
	if action.Effect.Kind != cards.EffectDamage {
		return 0
	}
	if action.Effect.Category == cards.CategoryNone {
		return action.Effect.Amount
	}
	_, power, ok := BestWeapon(action.Effect.Category, equipped, hand)
	if !ok {
		return action.Effect.Amount
	}
	return power + action.Effect.Amount
}

// ApplyDamage subtracts amount from health, clamping at zero.
func ApplyDamage(health, amount int) (int, bool) {
	if amount < 0 {
		amount = 0
	}
	health -= amount
	if health <= 0 {
		return 0, true
	}
	return health, false
}

// ApplyHeal adds amount to health without exceeding maxHealth.
func ApplyHeal(health, maxHealth, amount int) int {
	if amount < 0 {
		amount = 0
	}
	health += amount
	if health > maxHealth {
		return maxHealth
	}
	if health < 0 {
		return 0
	}
	return health
}
