package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/thraizz/wildwood-server-go/internal/game/cards"
)

// CardRef is a card as stored in a save. An unmodified base card is
// written as its bare id; anything else carries the full definition.
type CardRef struct {
	ID   string
	Card *cards.Card
}

// refFor reduces c to an id when the catalog's base definition is
// identical to it.
func refFor(catalog *cards.Catalog, c cards.Card) CardRef {
	if catalog != nil && catalog.IsBase(c.ID) {
		if base, ok := catalog.Lookup(c.ID); ok && reflect.DeepEqual(normalizeForCompare(base), normalizeForCompare(c)) {
			return CardRef{ID: c.ID}
		}
	}
	return CardRef{ID: c.ID, Card: c.Ptr()}
}

// normalizeForCompare treats an empty theme list and a nil one as equal.
func normalizeForCompare(c cards.Card) cards.Card {
	if len(c.Themes) == 0 {
		c.Themes = nil
	}
	return c
}

func refsFor(catalog *cards.Catalog, pile []cards.Card) []CardRef {
	out := make([]CardRef, 0, len(pile))
	for _, c := range pile {
		out = append(out, refFor(catalog, c))
	}
	return out
}

func slotRefsFor(catalog *cards.Catalog, slots []*cards.Card) []*CardRef {
	out := make([]*CardRef, len(slots))
	for i, c := range slots {
		if c == nil {
			continue
		}
		ref := refFor(catalog, *c)
		out[i] = &ref
	}
	return out
}

// MarshalJSON writes a bare string for id-only references.
func (r CardRef) MarshalJSON() ([]byte, error) {
	if r.Card == nil {
		return json.Marshal(r.ID)
	}
	return json.Marshal(r.Card)
}

// UnmarshalJSON accepts either form.
func (r *CardRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty card reference")
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("decode card id: %w", err)
		}
		*r = CardRef{ID: id}
		return nil
	}
	var c cards.Card
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("decode card: %w", err)
	}
	*r = CardRef{ID: c.ID, Card: &c}
	return nil
}
