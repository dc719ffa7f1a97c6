package cards

import (
	"strings"
)

// CardType is the top-level card classification.
type CardType string

const (
	TypeItem      CardType = "Item"
	TypeProvision CardType = "Provision"
	TypeAction    CardType = "Action"
	TypeUpgrade   CardType = "Player Upgrade"
	TypeEvent     CardType = "Event"
)

// SubType refines a card's role within its type.
type SubType string

const (
	SubTypeWeapon        SubType = "weapon"
	SubTypeGear          SubType = "gear"
	SubTypeTrap          SubType = "trap"
	SubTypeFood          SubType = "food"
	SubTypeMedicine      SubType = "medicine"
	SubTypeSupply        SubType = "supply"
	SubTypeValuable      SubType = "valuable"
	SubTypeUpgrade       SubType = "upgrade"
	SubTypeStorage       SubType = "storage"
	SubTypeTrick         SubType = "trick"
	SubTypeThreat        SubType = "threat"
	SubTypeEnvironmental SubType = "environmental"
	SubTypeIllness       SubType = "illness"
	SubTypeObjective     SubType = "objective"
	SubTypeBoss          SubType = "boss"
)

// Species groups threats by behaviour at night.
type Species string

const (
	SpeciesThief    Species = "thief"
	SpeciesSnake    Species = "snake"
	SpeciesSkunk    Species = "skunk"
	SpeciesAnimal   Species = "animal"
	SpeciesPredator Species = "predator"
	SpeciesBoss     Species = "boss"
)

// Size orders threats and traps for capture compatibility.
type Size string

const (
	SizeNone   Size = ""
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
	SizeHuge   Size = "huge"
)

// Rank returns the ordinal of the size; unknown sizes rank 0.
func (s Size) Rank() int {
	switch s {
	case SizeSmall:
		return 1
	case SizeMedium:
		return 2
	case SizeLarge:
		return 3
	case SizeHuge:
		return 4
	default:
		return 0
	}
}

// Tier is the threat band used by the event deck balancer.
type Tier string

const (
	TierNone   Tier = "none"
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Card is the value type shared by every pile in the game.
// Cards are immutable once drawn except for threat Health and the
// transient flags IsPacified and AttackedThisTurn.
type Card struct {
	ID               string   `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	Type             CardType `json:"type" yaml:"type"`
	SubType          SubType  `json:"subType" yaml:"subType"`
	Species          Species  `json:"species,omitempty" yaml:"species,omitempty"`
	Size             Size     `json:"size,omitempty" yaml:"size,omitempty"`
	Health           int      `json:"health,omitempty" yaml:"health,omitempty"`
	Damage           int      `json:"damage,omitempty" yaml:"damage,omitempty"`
	Effect           Effect   `json:"effect" yaml:"effect"`
	BuyCost          int      `json:"buyCost,omitempty" yaml:"buyCost,omitempty"`
	SellValue        int      `json:"sellValue,omitempty" yaml:"sellValue,omitempty"`
	Themes           []string `json:"themes,omitempty" yaml:"themes,omitempty"`
	Owner            string   `json:"owner,omitempty" yaml:"owner,omitempty"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
	IsPacified       bool     `json:"isPacified,omitempty" yaml:"-"`
	AttackedThisTurn bool     `json:"attackedThisTurn,omitempty" yaml:"-"`
}

// Clone returns a deep copy of the card.
func (c Card) Clone() Card {
	out := c
	if c.Themes != nil {
		out.Themes = append([]string(nil), c.Themes...)
	}
	return out
}

// Ptr returns a pointer to a deep copy of the card.
func (c Card) Ptr() *Card {
	out := c.Clone()
	return &out
}

// BaseID strips the NG+ scaling and remix prefixes from the card id.
func (c Card) BaseID() string {
	return BaseID(c.ID)
}

// BaseID strips mutation prefixes ("ng2-", "remix-1a2b3c4d-") from id.
func BaseID(id string) string {
	for {
		switch {
		case strings.HasPrefix(id, "remix-"):
			rest := id[len("remix-"):]
			idx := strings.Index(rest, "-")
			if idx < 0 {
				return id
			}
			id = rest[idx+1:]
		case isScaledPrefix(id):
			id = id[strings.Index(id, "-")+1:]
		default:
			return id
		}
	}
}

func isScaledPrefix(id string) bool {
	if !strings.HasPrefix(id, "ng") {
		return false
	}
	idx := strings.Index(id, "-")
	if idx <= 2 {
		return false
	}
	for _, r := range id[2:idx] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsMutatedID reports whether id follows a mutation prefix convention.
func IsMutatedID(id string) bool {
	return BaseID(id) != id || strings.HasPrefix(id, "boss-")
}

// IsThreat reports whether the card is a creature the player can confront.
func (c Card) IsThreat() bool {
	return c.Type == TypeEvent && (c.SubType == SubTypeThreat || c.SubType == SubTypeBoss)
}

// IsBoss reports whether the card is the final encounter.
func (c Card) IsBoss() bool {
	return c.SubType == SubTypeBoss
}

// IsEventItem reports whether a card revealed from the event deck is a
// claimable item rather than an encounter.
func (c Card) IsEventItem() bool {
	return c.Type != TypeEvent
}

// IsValuable reports whether the card is a currency-only valuable.
func (c Card) IsValuable() bool {
	return c.SubType == SubTypeValuable
}

// IsUnique reports whether the card belongs to exactly one character kit.
func (c Card) IsUnique() bool {
	return c.Owner != ""
}

// IsPurchasable reports whether the card may be stocked by the store.
func (c Card) IsPurchasable() bool {
	switch c.Type {
	case TypeItem, TypeProvision, TypeAction, TypeUpgrade:
		return !c.IsValuable() && !c.IsUnique() && c.BuyCost > 0
	default:
		return false
	}
}

// IsEquippable reports whether the card can occupy an equip slot.
func (c Card) IsEquippable() bool {
	switch c.Type {
	case TypeItem:
		return c.SubType == SubTypeWeapon || c.SubType == SubTypeGear
	case TypeUpgrade:
		return true
	default:
		return false
	}
}

// IsWeapon reports whether the card carries a weapon effect.
func (c Card) IsWeapon() bool {
	return c.Effect.Kind == EffectWeapon
}

// Tier classifies a threat by its current health.
func (c Card) Tier() Tier {
	if c.SubType != SubTypeThreat {
		return TierNone
	}
	switch {
	case c.Health <= 3:
		return TierLow
	case c.Health <= 6:
		return TierMedium
	default:
		return TierHigh
	}
}

// InTheme reports whether the card belongs to the named theme pool.
func (c Card) InTheme(theme string) bool {
	for _, t := range c.Themes {
		if t == theme {
			return true
		}
	}
	return false
}

// SortRank orders cards in a sorted hand.
func (c Card) SortRank() int {
	switch {
	case c.SubType == SubTypeWeapon:
		return 0
	case c.SubType == SubTypeGear:
		return 1
	case c.SubType == SubTypeTrap:
		return 2
	case c.Type == TypeProvision:
		return 3
	case c.Type == TypeAction:
		return 4
	case c.Type == TypeUpgrade:
		return 5
	default:
		return 6
	}
}
