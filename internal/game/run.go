package game

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/thraizz/wildwood-server-go/internal/content"
	"github.com/thraizz/wildwood-server-go/internal/game/cards"
	"github.com/thraizz/wildwood-server-go/internal/game/counters"
	"github.com/thraizz/wildwood-server-go/internal/game/decks"
	"github.com/thraizz/wildwood-server-go/internal/game/progression"
	"github.com/thraizz/wildwood-server-go/internal/game/rules"
	"github.com/thraizz/wildwood-server-go/internal/game/state"
)

// Lifecycle operations share the rejection path of player actions.
const (
	opSetup         ActionType = "setup"
	opStartRun      ActionType = "start_run"
	opAckIntro      ActionType = "acknowledge_intro"
	opBeginPlay     ActionType = "begin_play"
	opRetry         ActionType = "retry_run"
	opDeckReview    ActionType = "begin_deck_review"
	opConfirmReview ActionType = "confirm_deck_review"
	opChooseReward  ActionType = "choose_reward"
	opHardReset     ActionType = "hard_reset"
)

// RunOptions selects the survivor for a new run.
type RunOptions struct {
	Character   string             `json:"character"`
	Personality *cards.Personality `json:"personality,omitempty"`
}

// mutate runs a non-suspending lifecycle operation on a working copy.
func (e *Engine) mutate(ctx context.Context, op ActionType, fn func(m *mutation) error) error {
	if !e.enter() {
		e.dropped(op)
		return ErrBusy
	}
	defer e.leave()

	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		return ErrBusy
	}
	m := e.begin()
	if err := fn(m); err != nil {
		e.discardLocked(m)
		e.rejectLocked(op, err)
		e.mu.Unlock()
		return err
	}
	e.commitAndPublish(ctx, m)
	return nil
}

func transition(m *mutation, op ActionType, next state.Status) error {
	if err := m.st.Transition(next); err != nil {
		return reject(op, "%v", err)
	}
	return nil
}

// Setup moves from the landing screen to character select.
func (e *Engine) Setup(ctx context.Context) error {
	return e.mutate(ctx, opSetup, func(m *mutation) error {
		return transition(m, opSetup, state.StatusSetup)
	})
}

// StartRun builds the world for a new run. With content enabled the boss
// and its introduction are generated while the engine reports
// generating_boss_intro; otherwise play starts immediately.
func (e *Engine) StartRun(ctx context.Context, opts RunOptions) error {
	if !e.enter() {
		e.dropped(opStartRun)
		return ErrBusy
	}
	defer e.leave()

	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		return ErrBusy
	}
	m := e.begin()
	character, err := e.prepareRun(m, opts)
	if err != nil {
		e.discardLocked(m)
		e.rejectLocked(opStartRun, err)
		e.mu.Unlock()
		return err
	}

	if !e.cfg.ContentEnabled {
		if err := transition(m, opStartRun, state.StatusPlaying); err != nil {
			e.discardLocked(m)
			e.rejectLocked(opStartRun, err)
			e.mu.Unlock()
			return err
		}
		m.revealFirst()
		e.captureRunStart(m)
		e.commitAndPublish(ctx, m)
		return nil
	}

	if err := transition(m, opStartRun, state.StatusGeneratingBossIntro); err != nil {
		e.discardLocked(m)
		e.rejectLocked(opStartRun, err)
		e.mu.Unlock()
		return err
	}
	run := content.RunContext{Level: m.st.NGPlusLevel, Theme: m.st.Theme}
	for _, o := range m.st.ActiveObjectives {
		run.Objectives = append(run.Objectives, o.Name)
	}
	recent := append([]string(nil), m.st.Progress.RecentBosses...)
	events, effects := m.events, m.effects
	e.installLocked(m)
	e.inFlight = true
	epoch := e.epoch
	e.mu.Unlock()

	boss, _ := e.content.Boss(ctx, character, run, recent)
	intro := e.content.Intro(ctx, character, boss)

	e.mu.Lock()
	if e.epoch != epoch {
		e.mu.Unlock()
		return ErrSuperseded
	}
	e.inFlight = false
	m = e.begin()
	m.events, m.effects = events, effects
	if !e.catalog.IsBase(boss.ID) && !e.catalog.IsCustom(boss.ID) {
		if err := e.catalog.Register(boss); err != nil {
			e.logger.Warn("could not register boss, using default", zap.String("boss_id", boss.ID), zap.Error(err))
			boss = content.DefaultBoss()
		}
	}
	m.st.AIBoss = boss.Ptr()
	m.st.BossIntro = &state.BossIntro{Title: intro.Title, Paragraph: intro.Paragraph}
	if err := transition(m, opStartRun, state.StatusShowingBossIntro); err != nil {
		e.rejectLocked(opStartRun, err)
		e.mu.Unlock()
		return err
	}
	e.commitAndPublish(ctx, m)
	return nil
}

// prepareRun validates the selection and builds the run into m.
func (e *Engine) prepareRun(m *mutation, opts RunOptions) (cards.Character, error) {
	if m.st.Status != state.StatusSetup {
		return cards.Character{}, reject(opStartRun, "not available while %s", m.st.Status)
	}
	character, ok := e.catalog.Character(opts.Character)
	if !ok {
		return cards.Character{}, reject(opStartRun, "unknown character %q", opts.Character)
	}
	personality := cards.DefaultPersonality
	if opts.Personality != nil {
		personality = *opts.Personality
	}
	if err := personality.Validate(); err != nil {
		return cards.Character{}, reject(opStartRun, "%v", err)
	}

	seed := m.rng.Int63()
	rng := rand.New(rand.NewSource(seed))

	level := m.st.NGPlusLevel
	carry := m.st.CarryOver
	m.saveOverlay()
	e.catalog.ResetOverlay()
	if carry != nil {
		for _, c := range carriedCards(*carry) {
			if e.catalog.IsBase(c.ID) || e.catalog.IsCustom(c.ID) {
				continue
			}
			if err := e.catalog.Register(c); err != nil {
				return cards.Character{}, fmt.Errorf("register carried card %s: %w", c.ID, err)
			}
		}
	}

	var kept []cards.Card
	if carry != nil {
		kept = carry.Kept
	}
	world, err := decks.BuildWorld(e.catalog, character, kept, level, rng)
	if err != nil {
		return cards.Character{}, fmt.Errorf("build world: %w", err)
	}

	m.st.ClearRun()
	m.st.Seed = seed
	m.st.Theme = world.Theme
	m.st.Turn = 1
	m.st.EventDeck = world.EventDeck
	m.st.StoreItemDeck = world.StoreDeck
	m.st.ActiveObjectives = progression.SelectObjectives(e.catalog, rng)

	p := e.newPlayer(character.ID, personality, carry)
	p.PlayerDeck = world.PlayerDeck
	m.st.PlayerDetails = map[string]*state.Player{p.ID: p}
	m.st.CarryOver = nil

	m.rng = rng
	m.p = p
	m.fillDisplay()
	m.fillHand()
	m.sortHand()
	m.eventAmount(rules.EventRunStarted, character.ID, "", level)
	m.logf("%s sets out into the %s.", character.Name, world.Theme)

	e.logger.Info("run started",
		zap.String("session_id", e.sessionID),
		zap.String("character", character.ID),
		zap.Int("level", level),
		zap.String("theme", world.Theme),
	)
	return character, nil
}

func carriedCards(c progression.CarryOver) []cards.Card {
	out := append([]cards.Card(nil), c.Kept...)
	for _, e := range c.Equipped {
		if e != nil {
			out = append(out, *e)
		}
	}
	for _, items := range c.Satchels {
		out = append(out, items...)
	}
	return out
}

// newPlayer creates the run's survivor with any carried equipment.
func (e *Engine) newPlayer(character string, personality cards.Personality, carry *progression.CarryOver) *state.Player {
	p := state.NewPlayer(state.DefaultPlayerID, character, personality, e.cfg.StartingHealth, e.cfg.HandSize, e.cfg.EquipSlots)
	p.Gold = e.cfg.StartingGold
	if carry == nil {
		return p
	}

	if carry.MaxHealth > 0 {
		p.MaxHealth = carry.MaxHealth
		p.Health = carry.MaxHealth
	}
	p.Gold = carry.Gold
	slots, hand := e.cfg.EquipSlots, e.cfg.HandSize
	for _, c := range carry.Equipped {
		if c != nil && c.Effect.Kind == cards.EffectUpgrade {
			slots += c.Effect.Slots
			hand += c.Effect.HandBonus
		}
	}
	if slots < len(carry.Equipped) {
		slots = len(carry.Equipped)
	}
	p.EquippedItems = make([]*cards.Card, slots)
	for i, c := range carry.Equipped {
		if c != nil {
			p.EquippedItems[i] = c.Ptr()
		}
	}
	p.HandSize = hand
	p.Hand = make([]*cards.Card, hand)
	for slot, items := range carry.Satchels {
		if slot < len(p.EquippedItems) && p.EquippedItems[slot] != nil {
			p.Satchels[slot] = state.CloneCards(items)
		}
	}
	return p
}

// revealFirst reveals the opening event of a run.
func (m *mutation) revealFirst() {
	if len(m.st.EventDeck) == 0 {
		m.revealBoss()
		return
	}
	m.drawEvent()
}

// captureRunStart records what RetryRun restores.
func (e *Engine) captureRunStart(m *mutation) {
	p := m.p
	m.st.RunStart = &state.RunStartSnapshot{
		Level:         m.st.NGPlusLevel,
		PlayerDeck:    state.CloneCards(p.PlayerDeck),
		PlayerDiscard: state.CloneCards(p.PlayerDiscard),
		Hand:          state.ClonePtrs(p.Hand),
		Equipped:      state.ClonePtrs(p.EquippedItems),
		Satchels:      cloneSatchels(p.Satchels),
		Gold:          p.Gold,
		Health:        p.Health,
		MaxHealth:     p.MaxHealth,
		HandSize:      p.HandSize,
		EventDeck:     state.CloneCards(m.st.EventDeck),
		StoreItemDeck: state.CloneCards(m.st.StoreItemDeck),
		StoreDisplay:  state.CloneCards(m.st.StoreDisplayItems),
		Objectives:    state.CloneCards(m.st.ActiveObjectives),
		Seed:          m.st.Seed,
	}
	if m.st.ActiveEvent != nil {
		m.st.RunStart.ActiveEvent = m.st.ActiveEvent.Ptr()
	}
	if m.st.AIBoss != nil {
		m.st.RunStart.Boss = m.st.AIBoss.Ptr()
	}
}

func cloneSatchels(in map[int][]cards.Card) map[int][]cards.Card {
	out := make(map[int][]cards.Card, len(in))
	for slot, items := range in {
		out[slot] = state.CloneCards(items)
	}
	return out
}

// AcknowledgeIntro dismisses the boss introduction and reveals the first
// event.
func (e *Engine) AcknowledgeIntro(ctx context.Context) error {
	return e.mutate(ctx, opAckIntro, func(m *mutation) error {
		if err := transition(m, opAckIntro, state.StatusPlayingInitialReveal); err != nil {
			return err
		}
		m.revealFirst()
		return nil
	})
}

// BeginPlay opens the first day and captures the run-start snapshot.
func (e *Engine) BeginPlay(ctx context.Context) error {
	return e.mutate(ctx, opBeginPlay, func(m *mutation) error {
		if err := transition(m, opBeginPlay, state.StatusPlaying); err != nil {
			return err
		}
		e.captureRunStart(m)
		return nil
	})
}

// RetryRun restarts a lost run from its run-start snapshot. A won run
// moves on through deck review instead.
func (e *Engine) RetryRun(ctx context.Context) error {
	return e.mutate(ctx, opRetry, func(m *mutation) error {
		snap := m.st.RunStart
		if snap == nil {
			return reject(opRetry, "nothing to retry")
		}
		if m.st.Victory {
			return reject(opRetry, "a won run cannot be retried")
		}
		if err := transition(m, opRetry, state.StatusPlaying); err != nil {
			return err
		}
		prev := m.p
		m.st.ClearRun()
		m.st.Turn = 1
		m.st.Theme = cards.ThemeForLevel(snap.Level)
		m.st.Seed = snap.Seed
		m.st.EventDeck = state.CloneCards(snap.EventDeck)
		m.st.StoreItemDeck = state.CloneCards(snap.StoreItemDeck)
		m.st.StoreDisplayItems = state.CloneCards(snap.StoreDisplay)
		m.st.ActiveObjectives = state.CloneCards(snap.Objectives)
		if snap.ActiveEvent != nil {
			m.st.ActiveEvent = snap.ActiveEvent.Ptr()
		}
		if snap.Boss != nil {
			m.st.AIBoss = snap.Boss.Ptr()
		}

		p := state.NewPlayer(prev.ID, prev.Character, prev.Personality, snap.MaxHealth, snap.HandSize, len(snap.Equipped))
		p.Health = snap.Health
		p.Gold = snap.Gold
		p.PlayerDeck = state.CloneCards(snap.PlayerDeck)
		p.PlayerDiscard = state.CloneCards(snap.PlayerDiscard)
		p.Hand = state.ClonePtrs(snap.Hand)
		if len(p.Hand) != p.HandSize {
			p.Hand = append(p.Hand, make([]*cards.Card, p.HandSize)...)[:p.HandSize]
		}
		p.EquippedItems = state.ClonePtrs(snap.Equipped)
		p.Satchels = cloneSatchels(snap.Satchels)
		p.RunStats = counters.NewCounters()
		m.st.PlayerDetails = map[string]*state.Player{p.ID: p}
		m.p = p

		m.rng = rand.New(rand.NewSource(snap.Seed))
		m.eventAmount(rules.EventRunStarted, p.Character, "retry", snap.Level)
		m.logf("The trail begins again.")
		return nil
	})
}

// BeginDeckReview moves a won run to deck review. Candidates are every
// shared card the player holds; character kit cards come back anyway.
func (e *Engine) BeginDeckReview(ctx context.Context) error {
	return e.mutate(ctx, opDeckReview, func(m *mutation) error {
		if !m.st.Victory {
			return reject(opDeckReview, "only a victory earns a deck review")
		}
		if err := transition(m, opDeckReview, state.StatusDeckReview); err != nil {
			return err
		}
		var candidates []cards.Card
		if p := m.p; p != nil {
			pool := append(p.HandCards(), p.PlayerDeck...)
			pool = append(pool, p.PlayerDiscard...)
			for _, c := range pool {
				if !c.IsUnique() {
					candidates = append(candidates, c.Clone())
				}
			}
		}
		m.st.ReviewCandidates = candidates
		return nil
	})
}

// KeepLimit is the number of cards the current deck review may keep.
func (e *Engine) KeepLimit() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return progression.KeepLimit(e.cfg.KeepLimit, e.st.NGPlusLevel)
}

// ConfirmDeckReview keeps the selected candidates, sells the rest, remixes
// the kept cards for the next level and returns to setup one level up.
func (e *Engine) ConfirmDeckReview(ctx context.Context, keepIdx []int) error {
	if !e.enter() {
		e.dropped(opConfirmReview)
		return ErrBusy
	}
	defer e.leave()

	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		return ErrBusy
	}
	if e.st.Status != state.StatusDeckReview {
		err := reject(opConfirmReview, "not available while %s", e.st.Status)
		e.rejectLocked(opConfirmReview, err)
		e.mu.Unlock()
		return err
	}
	limit := progression.KeepLimit(e.cfg.KeepLimit, e.st.NGPlusLevel)
	kept, sold, proceeds, err := progression.Review(e.st.ReviewCandidates, keepIdx, limit)
	if err != nil {
		err = reject(opConfirmReview, "%v", err)
		e.rejectLocked(opConfirmReview, err)
		e.mu.Unlock()
		return err
	}
	nextLevel := e.st.NGPlusLevel + 1
	e.st.IsLoadingNGPlus = true
	e.inFlight = true
	epoch := e.epoch
	e.mu.Unlock()

	remixed := map[string]cards.Card{}
	if e.cfg.ContentEnabled {
		remixed = e.content.Remix(ctx, kept, nextLevel)
	}

	e.mu.Lock()
	if e.epoch != epoch {
		e.mu.Unlock()
		return ErrSuperseded
	}
	e.inFlight = false
	m := e.begin()
	m.st.IsLoadingNGPlus = false
	for i, c := range kept {
		if r, ok := remixed[c.ID]; ok {
			kept[i] = r
		}
	}
	for _, r := range remixed {
		if err := e.catalog.Register(r); err != nil {
			e.logger.Warn("could not register remixed card", zap.String("card_id", r.ID), zap.Error(err))
		}
	}

	carry := progression.CarryOver{Kept: kept}
	if p := m.p; p != nil {
		carry.Equipped = state.ClonePtrs(p.EquippedItems)
		carry.Satchels = cloneSatchels(p.Satchels)
		carry.Gold = p.Gold
		carry.MaxHealth = p.MaxHealth
	}
	if proceeds > 0 {
		m.gainGold(proceeds, "deck_review")
		carry.Gold += proceeds
	}

	m.st.NGPlusLevel = nextLevel
	m.st.RunStart = nil
	m.st.CarryOver = &carry
	m.st.Progress.RewardOffered = nextLevel
	m.st.ClearRun()
	if err := transition(m, opConfirmReview, state.StatusSetup); err != nil {
		e.rejectLocked(opConfirmReview, err)
		e.mu.Unlock()
		return err
	}
	m.eventAmount(rules.EventLevelAdvanced, "", "", nextLevel)
	m.logf("Kept %d cards and sold %d for %d gold. The wilds grow harsher.", len(kept), len(sold), proceeds)
	e.logger.Info("level advanced",
		zap.String("session_id", e.sessionID),
		zap.Int("level", nextLevel),
		zap.Int("kept", len(kept)),
		zap.Int("remixed", len(remixed)),
	)
	e.commitAndPublish(ctx, m)
	return nil
}

// ChooseReward claims the bonus offered for the current level. A second
// claim for the same level is a no-op.
func (e *Engine) ChooseReward(ctx context.Context, kind progression.RewardKind) error {
	return e.mutate(ctx, opChooseReward, func(m *mutation) error {
		level := m.st.NGPlusLevel
		if level == 0 || m.st.Progress.RewardOffered != level {
			return reject(opChooseReward, "no reward on offer")
		}
		if m.st.Progress.Claimed(level) {
			return nil
		}
		maxHealth, gold, err := m.st.Progress.Claim(level, kind)
		if err != nil {
			return reject(opChooseReward, "%v", err)
		}
		if m.st.CarryOver == nil {
			m.st.CarryOver = &progression.CarryOver{Gold: e.cfg.StartingGold, MaxHealth: e.cfg.StartingHealth}
		}
		m.st.CarryOver.MaxHealth += maxHealth
		m.st.CarryOver.Gold += gold
		m.event(rules.EventRewardChosen, string(kind), "")
		m.logf("Reward for level %d: %s.", level, kind)
		return nil
	})
}

// HardReset discards all progress and returns to the landing screen.
func (e *Engine) HardReset(ctx context.Context) error {
	err := e.mutate(ctx, opHardReset, func(m *mutation) error {
		fresh := state.New()
		fresh.Seed = m.st.Seed
		fresh.AddLog(state.LogInfo, "All progress was reset.", m.now)
		m.st = fresh
		m.p = nil
		m.saveOverlay()
		e.catalog.ResetOverlay()
		e.banners.Clear()
		e.animations.Clear()
		return nil
	})
	if err != nil {
		return err
	}
	e.watchers.Reset(rules.SpanRun)
	return nil
}
