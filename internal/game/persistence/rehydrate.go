package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/thraizz/wildwood-server-go/internal/game/cards"
	"github.com/thraizz/wildwood-server-go/internal/game/counters"
	"github.com/thraizz/wildwood-server-go/internal/game/decks"
	"github.com/thraizz/wildwood-server-go/internal/game/rules"
	"github.com/thraizz/wildwood-server-go/internal/game/state"
)

// Options configures Rehydrate.
type Options struct {
	Catalog    *cards.Catalog
	Logger     *zap.Logger
	HandSize   int
	EquipSlots int
	Now        time.Time
}

// Report describes what Rehydrate had to repair.
type Report struct {
	FromVersion      int
	Migrated         int
	ChecksumMismatch bool
	Dropped          []string
	RebuiltEventDeck bool
	StatusReset      bool
}

// Repaired reports whether the loaded state differs from the save.
func (r Report) Repaired() bool {
	return r.Migrated > 0 || len(r.Dropped) > 0 || r.RebuiltEventDeck || r.StatusReset
}

type rehydrator struct {
	catalog *cards.Catalog
	logger  *zap.Logger
	st      *state.GameState
	report  Report
	now     time.Time
}

// Rehydrate decodes a save produced by Encode, or by any earlier schema
// version, into a playable state. Damaged content is repaired rather than
// rejected: unresolvable card references are dropped, missing fields are
// defaulted and an empty event deck mid-run is rebuilt. Only input that
// is not JSON, or a save from a newer schema, returns an error.
func Rehydrate(raw []byte, opts Options) (*state.GameState, Report, error) {
	if opts.Catalog == nil {
		return nil, Report{}, fmt.Errorf("rehydrate requires a catalog")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.HandSize <= 0 {
		opts.HandSize = 5
	}
	if opts.EquipSlots <= 0 {
		opts.EquipSlots = 3
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	doc, report, err := decodeDocument(raw, opts.Logger)
	if err != nil {
		return nil, report, err
	}
	steps, err := Migrate(doc, report.FromVersion)
	if err != nil {
		return nil, report, err
	}
	report.Migrated = steps

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, report, fmt.Errorf("failed to re-encode migrated save: %w", err)
	}
	var save SaveState
	if err := json.Unmarshal(body, &save); err != nil {
		return nil, report, fmt.Errorf("failed to decode save state: %w", err)
	}

	r := &rehydrator{
		catalog: opts.Catalog,
		logger:  opts.Logger,
		st:      state.New(),
		report:  report,
		now:     opts.Now,
	}
	r.registerCustoms(save.CustomCards)
	r.restore(save, opts)
	r.repair(opts)

	if r.report.Repaired() {
		r.logger.Info("save rehydrated with repairs",
			zap.Int("from_version", r.report.FromVersion),
			zap.Int("migrations", r.report.Migrated),
			zap.Int("dropped", len(r.report.Dropped)),
			zap.Bool("rebuilt_event_deck", r.report.RebuiltEventDeck),
			zap.Bool("status_reset", r.report.StatusReset),
		)
	}
	return r.st, r.report, nil
}

// decodeDocument accepts a checksummed envelope or a bare legacy state
// document carrying its own version field.
func decodeDocument(raw []byte, logger *zap.Logger) (map[string]any, Report, error) {
	var report Report
	var top map[string]any
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, report, fmt.Errorf("failed to decode save: %w", err)
	}

	if _, wrapped := top["state"]; wrapped {
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, report, fmt.Errorf("failed to decode save envelope: %w", err)
		}
		report.FromVersion = env.Version
		if !VerifyChecksum(env.State, env.Checksum) {
			report.ChecksumMismatch = true
			logger.Warn("save checksum mismatch, loading anyway",
				zap.Int("version", env.Version),
				zap.String("expected", env.Checksum),
			)
		}
		var doc map[string]any
		if err := json.Unmarshal(env.State, &doc); err != nil {
			return nil, report, fmt.Errorf("failed to decode save state: %w", err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
		return doc, report, nil
	}

	report.FromVersion = 1
	if v, ok := top["version"].(float64); ok && v >= 1 {
		report.FromVersion = int(v)
	}
	delete(top, "version")
	if top == nil {
		top = map[string]any{}
	}
	return top, report, nil
}

func (r *rehydrator) registerCustoms(customs []cards.Card) {
	for _, c := range customs {
		if c.ID == "" {
			r.drop("custom card without id")
			continue
		}
		if r.catalog.IsBase(c.ID) {
			continue
		}
		if c.Effect.Kind == "" {
			c.Effect.Kind = cards.EffectNone
		}
		if err := c.Effect.Validate(); err != nil {
			r.drop(c.ID)
			r.logger.Warn("dropping invalid custom card", zap.String("card_id", c.ID), zap.Error(err))
			continue
		}
		if err := r.catalog.Register(c); err != nil {
			r.logger.Warn("failed to register custom card", zap.String("card_id", c.ID), zap.Error(err))
		}
	}
}

func (r *rehydrator) drop(id string) {
	r.report.Dropped = append(r.report.Dropped, id)
}

// resolve turns a reference into a card. Id-only references must resolve
// through the catalog; full definitions stand on their own.
func (r *rehydrator) resolve(ref CardRef, where string) (cards.Card, bool) {
	if ref.Card != nil {
		c := ref.Card.Clone()
		if c.Effect.Kind == "" {
			c.Effect.Kind = cards.EffectNone
		}
		if c.ID == "" || c.Effect.Validate() != nil {
			r.dropRef(ref.ID, where)
			return cards.Card{}, false
		}
		return c, true
	}
	if c, ok := r.catalog.Lookup(ref.ID); ok {
		return c, true
	}
	r.dropRef(ref.ID, where)
	return cards.Card{}, false
}

func (r *rehydrator) dropRef(id, where string) {
	r.drop(id)
	r.logger.Warn("dropping unresolvable card reference",
		zap.String("card_id", id),
		zap.String("location", where),
	)
	r.st.AddLog(state.LogWarn, fmt.Sprintf("Lost track of card %q in %s.", id, where), r.now)
}

func (r *rehydrator) pile(refs []CardRef, where string) []cards.Card {
	out := make([]cards.Card, 0, len(refs))
	for _, ref := range refs {
		if c, ok := r.resolve(ref, where); ok {
			out = append(out, c)
		}
	}
	return out
}

func (r *rehydrator) slots(refs []*CardRef, where string) []*cards.Card {
	out := make([]*cards.Card, len(refs))
	for i, ref := range refs {
		if ref == nil {
			continue
		}
		if c, ok := r.resolve(*ref, where); ok {
			out[i] = &c
		}
	}
	return out
}

func (r *rehydrator) restore(s SaveState, opts Options) {
	st := r.st
	// Log first so repair entries land after the saved history.
	st.Log = append([]state.LogEntry(nil), s.Log...)

	st.Status = state.ParseStatus(s.Status)
	if string(st.Status) != s.Status {
		r.report.StatusReset = true
		r.logger.Warn("unknown save status, returning to landing", zap.String("status", s.Status))
	}
	st.Turn = s.Turn
	st.NGPlusLevel = s.NGPlusLevel
	st.Theme = s.Theme
	st.Phase = s.Phase

	st.EventDeck = r.pile(s.EventDeck, "event deck")
	st.EventDiscardPile = r.pile(s.EventDiscardPile, "event discard")
	st.StoreItemDeck = r.pile(s.StoreItemDeck, "store deck")
	st.StoreDisplayItems = r.pile(s.StoreDisplayItems, "store display")
	st.StoreItemDiscardPile = r.pile(s.StoreItemDiscardPile, "store discard")
	st.ActiveObjectives = r.pile(s.ActiveObjectives, "objectives")
	if len(s.ReviewCandidates) > 0 {
		st.ReviewCandidates = r.pile(s.ReviewCandidates, "deck review")
	}

	if s.ActiveEvent != nil {
		if c, ok := r.resolve(CardRef{ID: s.ActiveEvent.ID, Card: s.ActiveEvent}, "active event"); ok {
			st.ActiveEvent = &c
		}
	}
	if s.AIBoss != nil {
		if c, ok := r.resolve(CardRef{ID: s.AIBoss.ID, Card: s.AIBoss}, "boss"); ok {
			st.AIBoss = &c
		}
	}
	if s.ArmedTrap != nil {
		if c, ok := r.resolve(*s.ArmedTrap, "armed trap"); ok {
			st.ArmedTrap = &c
		}
	}
	st.BossIntro = s.BossIntro

	st.IsBossFightActive = s.IsBossFightActive
	st.BossDefeated = s.BossDefeated
	st.BossPacified = s.BossPacified
	st.BossCaptured = s.BossCaptured
	st.CombatVictoryVoided = s.CombatVictoryVoided
	st.CampfireActive = s.CampfireActive
	st.CampfireShielded = s.CampfireShielded
	st.DeckExhausted = s.DeckExhausted
	st.TurnLost = s.TurnLost
	st.PendingDiscard = s.PendingDiscard
	st.Victory = s.Victory
	st.WinReason = s.WinReason
	st.ObjectivesGraded = s.ObjectivesGraded
	st.ObjectiveSummary = s.ObjectiveSummary
	st.VictoryStory = s.VictoryStory
	st.RunStart = s.RunStart
	st.Progress = s.Progress
	st.CarryOver = s.CarryOver
	st.IsLoadingNGPlus = s.IsLoadingNGPlus
	st.Seed = s.Seed

	for id, sp := range s.PlayerDetails {
		if id == "" {
			continue
		}
		st.PlayerDetails[id] = r.player(id, sp, opts)
	}
}

func (r *rehydrator) player(id string, sp SavedPlayer, opts Options) *state.Player {
	handSize := sp.HandSize
	if handSize <= 0 {
		handSize = opts.HandSize
	}
	p := &state.Player{
		ID:               id,
		Character:        sp.Character,
		Personality:      sp.Personality,
		Health:           sp.Health,
		MaxHealth:        sp.MaxHealth,
		Gold:             sp.Gold,
		HandSize:         handSize,
		PlayerDeck:       r.pile(sp.PlayerDeck, "player deck"),
		PlayerDiscard:    r.pile(sp.PlayerDiscard, "player discard"),
		EquippedItems:    r.slots(sp.EquippedItems, "equipment"),
		Satchels:         make(map[int][]cards.Card, len(sp.Satchels)),
		RunStats:         sp.RunStats,
		EquipUsedToday:   sp.EquipUsedToday,
		RestockUsedToday: sp.RestockUsedToday,
		MainActionUsed:   sp.MainActionUsed,
		StepsBanked:      sp.StepsBanked,
	}
	if p.Personality.Validate() != nil {
		p.Personality = cards.DefaultPersonality
	}
	if p.RunStats == nil {
		p.RunStats = counters.NewCounters()
	}

	// The hand keeps its fixed capacity; overflow goes to the discard pile.
	hand := r.slots(sp.Hand, "hand")
	p.Hand = make([]*cards.Card, handSize)
	for i, c := range hand {
		if c == nil {
			continue
		}
		if i < handSize && p.Hand[i] == nil {
			p.Hand[i] = c
			continue
		}
		if hole := p.FirstHole(); hole >= 0 {
			p.Hand[hole] = c
			continue
		}
		p.PlayerDiscard = append(p.PlayerDiscard, *c)
	}

	for len(p.EquippedItems) < opts.EquipSlots {
		p.EquippedItems = append(p.EquippedItems, nil)
	}
	for slot, refs := range sp.Satchels {
		if slot < 0 || slot >= len(p.EquippedItems) || p.EquippedItems[slot] == nil {
			// Contents of a satchel whose storage item is gone go to discard.
			p.PlayerDiscard = append(p.PlayerDiscard, r.pile(refs, "satchel")...)
			continue
		}
		p.Satchels[slot] = r.pile(refs, "satchel")
	}
	for _, ill := range sp.CurrentIllnesses {
		if c, ok := r.resolve(ill.Card, "illnesses"); ok {
			remaining := ill.Remaining
			if remaining < 0 {
				remaining = 0
			}
			p.CurrentIllnesses = append(p.CurrentIllnesses, state.Illness{Card: c, Remaining: remaining})
		}
	}
	return p
}

// repair enforces the invariants a loaded state must satisfy.
func (r *rehydrator) repair(opts Options) {
	st := r.st

	switch {
	case st.Status.Suspended():
		// Boss generation cannot resume; the run is rebuilt from setup.
		st.Status = state.StatusSetup
		r.report.StatusReset = true
	case st.Player() == nil && st.Status != state.StatusLanding && st.Status != state.StatusSetup:
		st.Status = state.StatusLanding
		r.report.StatusReset = true
	}
	if st.IsLoadingNGPlus {
		st.IsLoadingNGPlus = false
		r.logger.Warn("save interrupted during level advance, clearing loading flag")
	}
	if st.Phase != rules.PhaseDaylight {
		st.Phase = rules.PhaseDaylight
	}
	if st.Theme == "" {
		st.Theme = cards.ThemeForLevel(st.NGPlusLevel)
	}
	if st.NGPlusLevel < 0 {
		st.NGPlusLevel = 0
	}
	if st.Turn < 0 {
		st.Turn = 0
	}
	if st.PendingDiscard < 0 {
		st.PendingDiscard = 0
	}

	for _, p := range st.PlayerDetails {
		if p.MaxHealth <= 0 {
			p.MaxHealth = p.Health
		}
		if p.MaxHealth <= 0 {
			p.MaxHealth = 1
		}
		if p.Health < 0 {
			p.Health = 0
		}
		if p.Health > p.MaxHealth {
			p.Health = p.MaxHealth
		}
		if p.Gold < 0 {
			p.Gold = 0
		}
		if p.StepsBanked < 0 {
			p.StepsBanked = 0
		}
	}

	midRun := st.Status == state.StatusPlaying || st.Status == state.StatusPlayingInitialReveal
	if midRun && len(st.EventDeck) == 0 && !st.DeckExhausted && !st.IsBossFightActive {
		deck, err := decks.RebuildEventDeck(r.catalog, st.Theme, st.NGPlusLevel, st.Turn)
		if err != nil || len(deck) == 0 {
			r.logger.Warn("could not rebuild empty event deck, forcing the boss",
				zap.String("theme", st.Theme),
				zap.Int("turn", st.Turn),
				zap.Error(err),
			)
			st.DeckExhausted = true
			return
		}
		st.EventDeck = deck
		r.report.RebuiltEventDeck = true
		st.AddLog(state.LogWarn, "The trail ahead was redrawn.", r.now)
	}
}
