package cards

import "fmt"

// EffectKind tags the Effect union.
type EffectKind string

const (
	EffectNone             EffectKind = "none"
	EffectWeapon           EffectKind = "weapon"
	EffectAttackBonus      EffectKind = "attack_bonus"
	EffectAttackMultiplier EffectKind = "attack_multiplier"
	EffectHeal             EffectKind = "heal"
	EffectDamage           EffectKind = "damage"
	EffectGold             EffectKind = "gold"
	EffectTrap             EffectKind = "trap"
	EffectUpgrade          EffectKind = "upgrade"
	EffectPassive          EffectKind = "passive"
	EffectScout            EffectKind = "scout"
	EffectDraw             EffectKind = "draw"
	EffectStorage          EffectKind = "storage"
	EffectCampfire         EffectKind = "campfire"
	EffectCure             EffectKind = "cure"
	EffectDiscard          EffectKind = "discard"
	EffectIllness          EffectKind = "illness"
	EffectSteal            EffectKind = "steal"
	EffectLoseTurn         EffectKind = "lose_turn"
	EffectObjective        EffectKind = "objective"
)

// AllEffectKinds lists every member of the union.
var AllEffectKinds = []EffectKind{
	EffectNone,
	EffectWeapon,
	EffectAttackBonus,
	EffectAttackMultiplier,
	EffectHeal,
	EffectDamage,
	EffectGold,
	EffectTrap,
	EffectUpgrade,
	EffectPassive,
	EffectScout,
	EffectDraw,
	EffectStorage,
	EffectCampfire,
	EffectCure,
	EffectDiscard,
	EffectIllness,
	EffectSteal,
	EffectLoseTurn,
	EffectObjective,
}

// Category is the weapon family a weapon or modifier applies to.
type Category string

const (
	CategoryNone    Category = ""
	CategoryFirearm Category = "firearm"
	CategoryBow     Category = "bow"
	CategoryBladed  Category = "bladed"
)

// ObjectiveKind names the win condition an objective card grades.
type ObjectiveKind string

const (
	ObjectiveSlayer     ObjectiveKind = "slayer"
	ObjectiveSwift      ObjectiveKind = "swift"
	ObjectiveUnscathed  ObjectiveKind = "unscathed"
	ObjectiveTrapper    ObjectiveKind = "trapper"
	ObjectivePeacemaker ObjectiveKind = "peacemaker"
	ObjectiveHoarder    ObjectiveKind = "hoarder"
)

// Effect is a closed tagged union keyed by Kind. Only the fields relevant
// to Kind are populated:
//
//	weapon            Amount (attack), Category
//	attack_bonus      Amount, Category
//	attack_multiplier Multiplier, Category
//	heal, gold, draw, scout, discard, steal  Amount
//	damage            Amount, optional Category
//	trap              Size
//	upgrade           Slots, HandBonus
//	passive           Regen, Income
//	storage           Capacity
//	illness           Duration (0 = persistent)
//	objective         Objective, Amount (threshold), Reward
type Effect struct {
	Kind       EffectKind    `json:"kind" yaml:"kind"`
	Amount     int           `json:"amount,omitempty" yaml:"amount,omitempty"`
	Category   Category      `json:"category,omitempty" yaml:"category,omitempty"`
	Multiplier int           `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	Size       Size          `json:"size,omitempty" yaml:"size,omitempty"`
	Slots      int           `json:"slots,omitempty" yaml:"slots,omitempty"`
	HandBonus  int           `json:"handBonus,omitempty" yaml:"handBonus,omitempty"`
	Capacity   int           `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	Regen      int           `json:"regen,omitempty" yaml:"regen,omitempty"`
	Income     int           `json:"income,omitempty" yaml:"income,omitempty"`
	Duration   int           `json:"duration,omitempty" yaml:"duration,omitempty"`
	Objective  ObjectiveKind `json:"objective,omitempty" yaml:"objective,omitempty"`
	Reward     int           `json:"reward,omitempty" yaml:"reward,omitempty"`
}

// Validate checks that the fields required by Kind are present.
func (e Effect) Validate() error {
	switch e.Kind {
	case EffectNone, EffectCampfire, EffectCure, EffectLoseTurn:
		return nil
	case EffectWeapon, EffectAttackBonus:
		if e.Category == CategoryNone {
			return fmt.Errorf("%s effect requires a category", e.Kind)
		}
		if e.Amount <= 0 {
			return fmt.Errorf("%s effect requires a positive amount", e.Kind)
		}
		return nil
	case EffectAttackMultiplier:
		if e.Category == CategoryNone || e.Multiplier < 1 {
			return fmt.Errorf("attack_multiplier effect requires a category and multiplier")
		}
		return nil
	case EffectHeal, EffectGold, EffectDraw, EffectScout, EffectDiscard, EffectSteal, EffectDamage:
		if e.Amount <= 0 {
			return fmt.Errorf("%s effect requires a positive amount", e.Kind)
		}
		return nil
	case EffectTrap:
		if e.Size.Rank() == 0 {
			return fmt.Errorf("trap effect requires a size")
		}
		return nil
	case EffectUpgrade:
		if e.Slots <= 0 && e.HandBonus <= 0 {
			return fmt.Errorf("upgrade effect requires slots or handBonus")
		}
		return nil
	case EffectPassive:
		if e.Regen <= 0 && e.Income <= 0 {
			return fmt.Errorf("passive effect requires regen or income")
		}
		return nil
	case EffectStorage:
		if e.Capacity <= 0 {
			return fmt.Errorf("storage effect requires a capacity")
		}
		return nil
	case EffectIllness:
		if e.Duration < 0 {
			return fmt.Errorf("illness duration cannot be negative")
		}
		return nil
	case EffectObjective:
		if e.Objective == "" {
			return fmt.Errorf("objective effect requires an objective kind")
		}
		return nil
	default:
		return fmt.Errorf("unknown effect kind %q", e.Kind)
	}
}
