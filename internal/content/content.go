// Package content defines the content-generation collaborator the engine
// calls for bosses, intros, card remixes and victory stories.
package content

import (
	"context"
	"errors"

	"github.com/thraizz/wildwood-server-go/internal/game/cards"
	"github.com/thraizz/wildwood-server-go/internal/game/progression"
)

// ErrDisabled is returned by generators that are switched off.
var ErrDisabled = errors.New("content generation disabled")

// RunContext describes the run a boss is generated for.
type RunContext struct {
	Level      int      `json:"level"`
	Theme      string   `json:"theme"`
	Objectives []string `json:"objectives,omitempty"`
}

// Intro is a boss introduction.
type Intro struct {
	Title     string `json:"title"`
	Paragraph string `json:"paragraph"`
}

// Generator produces run content. Implementations may be slow or fail;
// callers wrap them in a Guard.
type Generator interface {
	GenerateBoss(ctx context.Context, character cards.Character, run RunContext, recentBossNames []string) (cards.Card, error)
	GenerateBossIntro(ctx context.Context, character cards.Character, boss cards.Card) (Intro, error)
	RemixCards(ctx context.Context, batch []cards.Card, level int) (map[string]cards.Card, error)
	GenerateStory(ctx context.Context, final progression.FinalState) (string, error)
}

// Disabled is a Generator that always fails, forcing the fallbacks.
type Disabled struct{}

func (Disabled) GenerateBoss(context.Context, cards.Character, RunContext, []string) (cards.Card, error) {
	return cards.Card{}, ErrDisabled
}

func (Disabled) GenerateBossIntro(context.Context, cards.Character, cards.Card) (Intro, error) {
	return Intro{}, ErrDisabled
}

func (Disabled) RemixCards(context.Context, []cards.Card, int) (map[string]cards.Card, error) {
	return nil, ErrDisabled
}

func (Disabled) GenerateStory(context.Context, progression.FinalState) (string, error) {
	return "", ErrDisabled
}
