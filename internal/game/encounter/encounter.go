// Package encounter classifies event cards and resolves their reveal and
// night-time behaviour. Everything here is a pure helper; the engine owns
// the state it applies results to.
package encounter

import (
	"math/rand"

	"github.com/thraizz/wildwood-server-go/internal/game/cards"
)

// HostileHealth is the health above which a threat is hostile.
const HostileHealth = 6

// FleeHealth is the health at or below which an unattacked threat flees.
const FleeHealth = 4

// SkunkedIllness is the temporary illness a skunk leaves behind.
const SkunkedIllness = "skunked"

// alwaysHostile lists threats that are hostile regardless of health.
var alwaysHostile = map[string]bool{
	"pickpocket":  true,
	"bandit":      true,
	"rattlesnake": true,
	"copperhead":  true,
}

// IsHostile reports whether an active event blocks store interaction.
func IsHostile(c *cards.Card) bool {
	if c == nil {
		return false
	}
	if c.IsThreat() {
		if c.IsPacified {
			return false
		}
		if c.IsBoss() || c.Health > HostileHealth {
			return true
		}
		return alwaysHostile[c.BaseID()]
	}
	if c.Type == cards.TypeEvent && c.SubType == cards.SubTypeEnvironmental {
		switch c.Effect.Kind {
		case cards.EffectDamage, cards.EffectDiscard:
			return true
		}
	}
	return false
}

// IsNightAttacker reports whether a threat attacks at night.
func IsNightAttacker(c *cards.Card) bool {
	if c == nil || c.SubType != cards.SubTypeThreat {
		return false
	}
	switch c.Species {
	case cards.SpeciesThief, cards.SpeciesSnake, cards.SpeciesSkunk:
		return true
	default:
		return false
	}
}

// NightKind is the outcome of night resolution for the active event.
type NightKind string

const (
	NightNone         NightKind = "none"
	NightPacifiedLeft NightKind = "pacified_left"
	NightDeterred     NightKind = "deterred"
	NightAttack       NightKind = "attack"
)

// NightOutcome describes what a night attacker does.
type NightOutcome struct {
	Kind    NightKind
	Damage  int
	Steal   int
	Illness string
}

// Leaves reports whether the event leaves play after the outcome.
func (o NightOutcome) Leaves() bool {
	return o.Kind != NightNone
}

// ResolveNight resolves the active event at dusk. Pacified events leave
// peacefully, night attackers attack unless a campfire deters them, and
// thieves ignore campfires.
func ResolveNight(c *cards.Card, campfire bool) NightOutcome {
	if c == nil {
		return NightOutcome{Kind: NightNone}
	}
	if c.IsPacified {
		return NightOutcome{Kind: NightPacifiedLeft}
	}
	if !IsNightAttacker(c) {
		return NightOutcome{Kind: NightNone}
	}
	if campfire && c.Species != cards.SpeciesThief {
		return NightOutcome{Kind: NightDeterred}
	}

	out := NightOutcome{Kind: NightAttack}
	switch c.Species {
	case cards.SpeciesThief:
		if c.Effect.Kind == cards.EffectSteal {
			out.Steal = c.Effect.Amount
		}
	case cards.SpeciesSkunk:
		out.Damage = c.Damage
		out.Illness = SkunkedIllness
	default:
		out.Damage = c.Damage
	}
	return out
}

// Lingering is what happens to an event still in play after night attacks.
type Lingering string

const (
	LingerStay            Lingering = "stay"
	LingerFlee            Lingering = "flee"
	LingerExpire          Lingering = "expire"
	LingerReturnToWorld   Lingering = "return_to_world"
	LingerDiscardValuable Lingering = "discard_valuable"
)

// ResolveLingering decides the fate of a non-attacking event at dusk.
func ResolveLingering(c *cards.Card) Lingering {
	if c == nil {
		return LingerStay
	}
	switch {
	case c.IsBoss():
		return LingerStay
	case c.SubType == cards.SubTypeThreat:
		if c.Health <= FleeHealth && !c.AttackedThisTurn {
			return LingerFlee
		}
		return LingerStay
	case c.Type == cards.TypeEvent:
		return LingerExpire
	case c.IsValuable():
		return LingerDiscardValuable
	default:
		return LingerReturnToWorld
	}
}

// TrapCaptures reports whether an armed trap captures the revealed threat.
func TrapCaptures(trap, threat *cards.Card) bool {
	if trap == nil || threat == nil || !threat.IsThreat() {
		return false
	}
	if trap.Effect.Kind != cards.EffectTrap {
		return false
	}
	size := threat.Size
	if size == cards.SizeHuge || size.Rank() == 0 {
		return false
	}
	return size.Rank() <= trap.Effect.Size.Rank()
}

// ShouldForceBoss reports whether the boss replaces today's event draw.
func ShouldForceBoss(deckLen, turn, maxDays int, exhausted bool) bool {
	return deckLen == 0 || turn >= maxDays || exhausted
}

// SkillCheck rolls 0..99 and succeeds when the roll is at or above the
// failure percentage.
func SkillCheck(rng *rand.Rand, failurePct int) (bool, int) {
	roll := rng.Intn(100)
	return roll >= failurePct, roll
}

// CanPet reports whether a threat may be calmed with the pet interaction.
func CanPet(c *cards.Card) bool {
	if c == nil || c.SubType != cards.SubTypeThreat {
		return false
	}
	return c.Species == cards.SpeciesAnimal || c.Species == cards.SpeciesPredator
}
