package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/thraizz/wildwood-server-go/internal/game/cards"
	"github.com/thraizz/wildwood-server-go/internal/game/rules"
	"github.com/thraizz/wildwood-server-go/internal/game/scheduler"
	"github.com/thraizz/wildwood-server-go/internal/game/state"
)

// engineHarness drives an Engine through a run with direct access to its
// state for arranging scenarios.
type engineHarness struct {
	t     *testing.T
	ctx   context.Context
	e     *Engine
	clock *scheduler.FakeClock
	sink  *recordingSink

	mu     sync.Mutex
	events []rules.Event
}

// newEngineHarness creates a seeded engine with content generation off.
// Config tweaks are applied before the engine is built.
func newEngineHarness(t *testing.T, tweaks ...func(*Config)) *engineHarness {
	t.Helper()

	cfg := DefaultConfig()
	cfg.ContentEnabled = false
	for _, tweak := range tweaks {
		tweak(&cfg)
	}

	h := &engineHarness{
		t:     t,
		ctx:   context.Background(),
		clock: scheduler.NewFakeClock(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)),
		sink:  &recordingSink{},
	}
	e, err := NewEngine(zaptest.NewLogger(t),
		WithSessionID("test-session"),
		WithSeed(42),
		WithConfig(cfg),
		WithClock(h.clock),
		WithSink(h.sink),
	)
	require.NoError(t, err)
	h.e = e
	e.Subscribe(func(evt rules.Event) {
		h.mu.Lock()
		h.events = append(h.events, evt)
		h.mu.Unlock()
	})
	return h
}

// start begins a run as character and quiets the trail so scenarios start
// from a known position: no active event and a deck of harmless fog.
func (h *engineHarness) start(character string) {
	h.t.Helper()
	require.NoError(h.t, h.e.Setup(h.ctx))
	require.NoError(h.t, h.e.StartRun(h.ctx, RunOptions{Character: character}))
	require.Equal(h.t, state.StatusPlaying, h.e.State().Status)
	h.quiet()
}

func (h *engineHarness) quiet() {
	fog := h.card("fog")
	h.edit(func(st *state.GameState, _ *state.Player) {
		st.ActiveEvent = nil
		st.EventDeck = []cards.Card{fog, fog, fog, fog, fog}
		st.DeckExhausted = false
		st.TurnLost = false
		st.PendingDiscard = 0
		st.CampfireActive = false
		st.CampfireShielded = false
		st.ArmedTrap = nil
	})
}

// edit mutates the live state in place.
func (h *engineHarness) edit(fn func(st *state.GameState, p *state.Player)) {
	h.e.mu.Lock()
	defer h.e.mu.Unlock()
	fn(h.e.st, h.e.st.Player())
}

func (h *engineHarness) card(id string) cards.Card {
	h.t.Helper()
	c, err := h.e.Catalog().Get(id)
	require.NoError(h.t, err)
	return c
}

// setHand replaces the hand with the given cards, leaving the rest empty.
func (h *engineHarness) setHand(ids ...string) {
	h.t.Helper()
	hand := make([]*cards.Card, 0, len(ids))
	for _, id := range ids {
		hand = append(hand, h.card(id).Ptr())
	}
	h.edit(func(_ *state.GameState, p *state.Player) {
		size := p.HandSize
		if len(hand) > size {
			size = len(hand)
		}
		p.Hand = make([]*cards.Card, size)
		copy(p.Hand, hand)
	})
}

func (h *engineHarness) apply(a Action) ActionResult {
	return h.e.Apply(h.ctx, a)
}

func (h *engineHarness) endDay() TurnReport {
	h.t.Helper()
	r, err := h.e.EndDay(h.ctx)
	require.NoError(h.t, err)
	return r
}

func (h *engineHarness) state() *state.GameState {
	return h.e.State()
}

func (h *engineHarness) player() *state.Player {
	return h.e.State().Player()
}

func (h *engineHarness) sawEvent(t rules.EventType) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, evt := range h.events {
		if evt.Type == t {
			return true
		}
	}
	return false
}

// ownsCard reports whether the player holds id anywhere in their piles.
func ownsCard(p *state.Player, id string) bool {
	pool := append(p.HandCards(), p.PlayerDeck...)
	pool = append(pool, p.PlayerDiscard...)
	for _, c := range pool {
		if c.ID == id {
			return true
		}
	}
	return false
}

// recordingSink keeps every published batch.
type recordingSink struct {
	mu      sync.Mutex
	effects []SideEffect
}

func (s *recordingSink) Publish(_ context.Context, _ string, effects []SideEffect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effects = append(s.effects, effects...)
	return nil
}

func (s *recordingSink) banners() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, fx := range s.effects {
		if fx.Kind == EffectBanner {
			out = append(out, fx.Text)
		}
	}
	return out
}
