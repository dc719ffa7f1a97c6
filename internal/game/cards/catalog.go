package cards

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/catalog.yaml
var catalogYAML []byte

// ErrUnknownCard is returned when a card id resolves to nothing.
var ErrUnknownCard = errors.New("unknown card")

// Definitions is the on-disk shape of the card catalog.
type Definitions struct {
	Cards      []Card      `yaml:"cards"`
	Characters []Character `yaml:"characters"`
}

var (
	baseOnce sync.Once
	baseDefs *Definitions
	baseErr  error
)

// LoadBase parses the embedded catalog once and returns the shared,
// read-only base definitions.
func LoadBase() (*Definitions, error) {
	baseOnce.Do(func() {
		defs, err := ParseDefinitions(catalogYAML)
		if err != nil {
			baseErr = fmt.Errorf("failed to load embedded catalog: %w", err)
			return
		}
		baseDefs = defs
	})
	return baseDefs, baseErr
}

// ParseDefinitions decodes and validates a catalog document.
func ParseDefinitions(data []byte) (*Definitions, error) {
	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	seen := make(map[string]bool, len(defs.Cards))
	for i := range defs.Cards {
		c := &defs.Cards[i]
		if c.ID == "" {
			return nil, fmt.Errorf("card %d has no id", i)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate card id %q", c.ID)
		}
		seen[c.ID] = true
		if c.Effect.Kind == "" {
			c.Effect.Kind = EffectNone
		}
		if err := c.Effect.Validate(); err != nil {
			return nil, fmt.Errorf("card %q: %w", c.ID, err)
		}
	}
	for _, ch := range defs.Characters {
		for _, id := range ch.Starters {
			if !seen[id] {
				return nil, fmt.Errorf("character %q references unknown starter %q", ch.ID, id)
			}
		}
	}
	return &defs, nil
}

// Catalog resolves card ids against the immutable base definitions and a
// per-run overlay of generated or mutated cards. One Catalog belongs to one
// engine; it is never shared between runs of different sessions.
type Catalog struct {
	mu         sync.RWMutex
	base       map[string]Card
	order      []string
	characters []Character
	overlay    map[string]Card
}

// NewCatalog builds a catalog over the given definitions.
func NewCatalog(defs *Definitions) *Catalog {
	c := &Catalog{
		base:       make(map[string]Card, len(defs.Cards)),
		order:      make([]string, 0, len(defs.Cards)),
		characters: defs.Characters,
		overlay:    make(map[string]Card),
	}
	for _, card := range defs.Cards {
		c.base[card.ID] = card
		c.order = append(c.order, card.ID)
	}
	return c
}

// Default builds a catalog over the embedded base definitions.
func Default() (*Catalog, error) {
	defs, err := LoadBase()
	if err != nil {
		return nil, err
	}
	return NewCatalog(defs), nil
}

// Lookup returns a copy of the definition for id, checking the overlay first.
func (c *Catalog) Lookup(id string) (Card, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if card, ok := c.overlay[id]; ok {
		return card.Clone(), true
	}
	if card, ok := c.base[id]; ok {
		return card.Clone(), true
	}
	return Card{}, false
}

// Get is Lookup returning ErrUnknownCard for missing ids.
func (c *Catalog) Get(id string) (Card, error) {
	card, ok := c.Lookup(id)
	if !ok {
		return Card{}, fmt.Errorf("%w: %s", ErrUnknownCard, id)
	}
	return card, nil
}

// Register adds or replaces an overlay definition.
func (c *Catalog) Register(card Card) error {
	if card.ID == "" {
		return fmt.Errorf("cannot register card without id")
	}
	if card.Effect.Kind == "" {
		card.Effect.Kind = EffectNone
	}
	if err := card.Effect.Validate(); err != nil {
		return fmt.Errorf("card %q: %w", card.ID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.base[card.ID]; ok {
		return fmt.Errorf("card %q shadows a base definition", card.ID)
	}
	c.overlay[card.ID] = card.Clone()
	return nil
}

// IsCustom reports whether id lives in the overlay.
func (c *Catalog) IsCustom(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.overlay[id]
	return ok
}

// IsBase reports whether id is a base definition.
func (c *Catalog) IsBase(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.base[id]
	return ok
}

// Customs returns every overlay definition ordered by id.
func (c *Catalog) Customs() []Card {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Card, 0, len(c.overlay))
	for _, card := range c.overlay {
		out = append(out, card.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ResetOverlay drops every overlay definition.
func (c *Catalog) ResetOverlay() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overlay = make(map[string]Card)
}

// Base returns every base definition in catalog order.
func (c *Catalog) Base() []Card {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Card, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.base[id].Clone())
	}
	return out
}

// ThemePool returns the base cards tagged with theme, excluding unique
// starters, in catalog order.
func (c *Catalog) ThemePool(theme string) []Card {
	var out []Card
	for _, card := range c.Base() {
		if card.IsUnique() || !card.InTheme(theme) {
			continue
		}
		out = append(out, card)
	}
	return out
}

// BySubType returns the base cards with the given subtype in catalog order.
func (c *Catalog) BySubType(st SubType) []Card {
	var out []Card
	for _, card := range c.Base() {
		if card.SubType == st {
			out = append(out, card)
		}
	}
	return out
}

// Character returns the character definition with the given id.
func (c *Catalog) Character(id string) (Character, bool) {
	for _, ch := range c.characters {
		if ch.ID == id {
			return ch, true
		}
	}
	return Character{}, false
}

// Characters returns every playable character.
func (c *Catalog) Characters() []Character {
	return append([]Character(nil), c.characters...)
}
