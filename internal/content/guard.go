package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thraizz/wildwood-server-go/internal/game/cards"
	"github.com/thraizz/wildwood-server-go/internal/game/progression"
)

// DefaultTimeout bounds every generator call.
const DefaultTimeout = 5 * time.Second

// DefaultBoss is substituted when boss generation fails.
func DefaultBoss() cards.Card {
	return cards.Card{
		ID:          "boss-hollow-stag",
		Name:        "The Hollow Stag",
		Type:        cards.TypeEvent,
		SubType:     cards.SubTypeBoss,
		Species:     cards.SpeciesBoss,
		Size:        cards.SizeHuge,
		Health:      20,
		Damage:      4,
		SellValue:   10,
		Description: "Antlers like dead branches, eyes like lanterns in fog.",
	}
}

// DefaultIntro is substituted when intro generation fails.
func DefaultIntro(boss cards.Card) Intro {
	return Intro{
		Title:     boss.Name,
		Paragraph: fmt.Sprintf("Something waits at the end of the trail. They call it %s.", boss.Name),
	}
}

// DefaultStory is substituted when story generation fails.
func DefaultStory(final progression.FinalState) string {
	boss := final.BossName
	if boss == "" {
		boss = "the beast"
	}
	return fmt.Sprintf("After %d days in the wild, the %s walked out of the woods alive, leaving %s behind for good.",
		final.Turn, strings.ToLower(characterName(final.Character)), boss)
}

func characterName(id string) string {
	if id == "" {
		return "survivor"
	}
	return id
}

// Guard wraps a Generator with a per-call timeout, output validation and
// deterministic fallbacks. It never returns an error and never blocks
// longer than its timeout.
type Guard struct {
	gen     Generator
	timeout time.Duration
	logger  *zap.Logger
}

// NewGuard wraps gen. A nil generator behaves like Disabled.
func NewGuard(gen Generator, timeout time.Duration, logger *zap.Logger) *Guard {
	if gen == nil {
		gen = Disabled{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{gen: gen, timeout: timeout, logger: logger}
}

type result[T any] struct {
	value T
	err   error
}

// call runs fn with the guard's timeout. The generator runs in its own
// goroutine so an implementation that ignores ctx cannot block the caller.
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan result[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				ch <- result[T]{value: zero, err: fmt.Errorf("generator panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		ch <- result[T]{value: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Boss generates the run's boss, falling back to DefaultBoss.
func (g *Guard) Boss(ctx context.Context, character cards.Character, run RunContext, recent []string) (cards.Card, bool) {
	boss, err := call(ctx, g.timeout, func(ctx context.Context) (cards.Card, error) {
		return g.gen.GenerateBoss(ctx, character, run, recent)
	})
	if err == nil {
		err = normaliseBoss(&boss)
	}
	if err != nil {
		g.logger.Warn("boss generation failed, using default boss",
			zap.String("character", character.ID),
			zap.Int("level", run.Level),
			zap.Error(err),
		)
		return DefaultBoss(), false
	}
	return boss, true
}

// normaliseBoss forces the structural fields every boss needs.
func normaliseBoss(b *cards.Card) error {
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("boss has no name")
	}
	if b.Health <= 0 {
		return fmt.Errorf("boss %q has no health", b.Name)
	}
	if !strings.HasPrefix(b.ID, "boss-") {
		b.ID = "boss-" + uuid.NewString()[:8]
	}
	b.Type = cards.TypeEvent
	b.SubType = cards.SubTypeBoss
	b.Species = cards.SpeciesBoss
	if b.Size.Rank() == 0 {
		b.Size = cards.SizeHuge
	}
	if b.Damage < 0 {
		b.Damage = 0
	}
	b.Owner = ""
	b.IsPacified = false
	b.AttackedThisTurn = false
	return nil
}

// Intro generates the boss introduction, falling back to DefaultIntro.
func (g *Guard) Intro(ctx context.Context, character cards.Character, boss cards.Card) Intro {
	intro, err := call(ctx, g.timeout, func(ctx context.Context) (Intro, error) {
		return g.gen.GenerateBossIntro(ctx, character, boss)
	})
	if err == nil && strings.TrimSpace(intro.Paragraph) == "" {
		err = fmt.Errorf("empty intro")
	}
	if err != nil {
		g.logger.Warn("boss intro generation failed, using default intro",
			zap.String("boss", boss.Name),
			zap.Error(err),
		)
		return DefaultIntro(boss)
	}
	if intro.Title == "" {
		intro.Title = boss.Name
	}
	return intro
}

// Remix asks the generator to mutate kept cards for the next level. Only
// results keyed by a batch id that keep the card's type and a valid effect
// are returned; each gets a fresh remix id. Failure yields an empty map.
func (g *Guard) Remix(ctx context.Context, batch []cards.Card, level int) map[string]cards.Card {
	if len(batch) == 0 {
		return map[string]cards.Card{}
	}
	raw, err := call(ctx, g.timeout, func(ctx context.Context) (map[string]cards.Card, error) {
		return g.gen.RemixCards(ctx, batch, level)
	})
	if err != nil {
		g.logger.Warn("card remix failed, keeping cards unchanged",
			zap.Int("batch", len(batch)),
			zap.Int("level", level),
			zap.Error(err),
		)
		return map[string]cards.Card{}
	}

	byID := make(map[string]cards.Card, len(batch))
	for _, c := range batch {
		byID[c.ID] = c
	}
	out := make(map[string]cards.Card, len(raw))
	for id, remixed := range raw {
		orig, ok := byID[id]
		if !ok {
			g.logger.Warn("dropping remix for unknown card", zap.String("card_id", id))
			continue
		}
		if remixed.Type != orig.Type || remixed.SubType != orig.SubType {
			g.logger.Warn("dropping remix that changes card type", zap.String("card_id", id))
			continue
		}
		if err := remixed.Effect.Validate(); err != nil {
			g.logger.Warn("dropping remix with invalid effect", zap.String("card_id", id), zap.Error(err))
			continue
		}
		remixed.ID = RemixID(orig.ID)
		remixed.Owner = orig.Owner
		if remixed.Name == "" {
			remixed.Name = orig.Name
		}
		out[id] = remixed
	}
	return out
}

// RemixID derives a fresh remix id for a card.
func RemixID(id string) string {
	return "remix-" + uuid.NewString()[:8] + "-" + cards.BaseID(id)
}

// Story generates the victory story, falling back to DefaultStory.
func (g *Guard) Story(ctx context.Context, final progression.FinalState) string {
	story, err := call(ctx, g.timeout, func(ctx context.Context) (string, error) {
		return g.gen.GenerateStory(ctx, final)
	})
	if err == nil && strings.TrimSpace(story) == "" {
		err = fmt.Errorf("empty story")
	}
	if err != nil {
		g.logger.Warn("story generation failed, using default story", zap.Error(err))
		return DefaultStory(final)
	}
	return story
}
