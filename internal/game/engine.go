package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thraizz/wildwood-server-go/internal/content"
	"github.com/thraizz/wildwood-server-go/internal/game/cards"
	"github.com/thraizz/wildwood-server-go/internal/game/persistence"
	"github.com/thraizz/wildwood-server-go/internal/game/progression"
	"github.com/thraizz/wildwood-server-go/internal/game/rules"
	"github.com/thraizz/wildwood-server-go/internal/game/scheduler"
	"github.com/thraizz/wildwood-server-go/internal/game/state"
	"github.com/thraizz/wildwood-server-go/internal/game/watchers"
	"github.com/thraizz/wildwood-server-go/internal/sensor"
)

// ErrSuperseded is returned by a suspended operation whose state was
// replaced by a load while it waited.
var ErrSuperseded = errors.New("state replaced while operation was in flight")

// Persister receives encoded saves after every committed mutation.
// persistence.Writer satisfies it.
type Persister interface {
	Persist(slot string, data []byte) error
}

// Engine owns one session's game state. It is the single writer: every
// mutation works on a clone that is committed whole or discarded.
type Engine struct {
	mu        sync.Mutex
	publishMu sync.Mutex // orders effect dispatch with commits
	logger    *zap.Logger
	sessionID string

	cfg       Config
	catalog   *cards.Catalog
	generator content.Generator
	content   *content.Guard
	clock     scheduler.Clock
	rng       *rand.Rand
	pedometer sensor.Pedometer

	st        *state.GameState
	resolving atomic.Bool // claimed for the whole of a mutating call
	inFlight  bool
	epoch     uint64

	bus        *rules.EventBus
	watchers   *rules.WatcherRegistry
	banners    *scheduler.Queue
	animations *scheduler.Queue
	bannerOpts scheduler.Options
	animOpts   scheduler.Options

	sink      EffectSink
	persister Persister
	saveSlot  string
	seed      int64
	seeded    bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithSessionID sets the session id used in logs, sinks and save slots.
func WithSessionID(id string) Option {
	return func(e *Engine) { e.sessionID = id }
}

// WithConfig overrides the rules.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithCatalog supplies the card catalog. Each engine needs its own, since
// the run overlay is mutated.
func WithCatalog(c *cards.Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

// WithContent sets the content generator. The default is content.Offline.
func WithContent(gen content.Generator) Option {
	return func(e *Engine) { e.generator = gen }
}

// WithSink sets where side effects are published.
func WithSink(sink EffectSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithPersister enables saving after each committed mutation.
func WithPersister(p Persister, slot string) Option {
	return func(e *Engine) {
		e.persister = p
		e.saveSlot = slot
	}
}

// WithClock sets the clock used for log timestamps and the scheduler.
func WithClock(c scheduler.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithSeed fixes the engine's random seed.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		e.seed = seed
		e.seeded = true
	}
}

// WithSchedulerOptions configures the banner and animation queues.
func WithSchedulerOptions(banners, animations scheduler.Options) Option {
	return func(e *Engine) {
		e.bannerOpts = banners
		e.animOpts = animations
	}
}

// WithPedometer overrides the step conversion thresholds.
func WithPedometer(p sensor.Pedometer) Option {
	return func(e *Engine) { e.pedometer = p }
}

// NewEngine creates an engine on the landing screen.
func NewEngine(logger *zap.Logger, opts ...Option) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		logger:     logger,
		cfg:        DefaultConfig(),
		generator:  content.Offline{},
		clock:      scheduler.RealClock{},
		pedometer:  sensor.Default(),
		sink:       NopSink{},
		bannerOpts: scheduler.Options{DefaultDuration: 2500 * time.Millisecond, Floor: 800 * time.Millisecond},
		animOpts:   scheduler.Options{DefaultDuration: 600 * time.Millisecond, Floor: 200 * time.Millisecond},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cfg = e.cfg.normalize()

	if e.sessionID == "" {
		e.sessionID = uuid.NewString()
	}
	if e.catalog == nil {
		catalog, err := cards.Default()
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		e.catalog = catalog
	}
	if !e.seeded {
		seed, err := NewSeed()
		if err != nil {
			return nil, err
		}
		e.seed = seed
	}
	if e.sink == nil {
		e.sink = NopSink{}
	}
	if !e.cfg.ContentEnabled {
		e.generator = content.Disabled{}
	}
	e.content = content.NewGuard(e.generator, e.cfg.ContentTimeout, logger)
	e.rng = rand.New(rand.NewSource(e.seed))

	e.st = state.New()
	e.st.Seed = e.seed
	e.bus = rules.NewEventBus()
	e.watchers = rules.NewWatcherRegistry()
	if err := watchers.RegisterDefaults(e.watchers); err != nil {
		return nil, fmt.Errorf("register watchers: %w", err)
	}
	e.bus.Subscribe(e.watchers.Notify)
	e.banners = scheduler.NewQueue(e.clock, e.bannerOpts)
	e.animations = scheduler.NewQueue(e.clock, e.animOpts)

	e.logger.Info("engine created",
		zap.String("session_id", e.sessionID),
		zap.Int64("seed", e.seed),
		zap.Bool("content_enabled", e.cfg.ContentEnabled),
	)
	return e, nil
}

// SessionID returns the engine's session id.
func (e *Engine) SessionID() string { return e.sessionID }

// Config returns the normalised rules.
func (e *Engine) Config() Config { return e.cfg }

// Catalog returns the engine's card catalog.
func (e *Engine) Catalog() *cards.Catalog { return e.catalog }

// State returns a deep copy of the current state.
func (e *Engine) State() *state.GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.Clone()
}

// SetSink replaces the effect sink.
func (e *Engine) SetSink(sink EffectSink) {
	if sink == nil {
		sink = NopSink{}
	}
	e.publishMu.Lock()
	defer e.publishMu.Unlock()
	e.sink = sink
}

// Subscribe registers a listener for game events. Listeners run after the
// state is committed and must not call back into the engine synchronously.
func (e *Engine) Subscribe(listener rules.Listener) int {
	return e.bus.Subscribe(listener)
}

// SubscribeTo registers a listener for one event type.
func (e *Engine) SubscribeTo(t rules.EventType, listener rules.Listener) int {
	return e.bus.SubscribeTyped(t, listener)
}

// Unsubscribe removes a listener registered with Subscribe or SubscribeTo.
func (e *Engine) Unsubscribe(handle int) {
	e.bus.Unsubscribe(handle)
}

// Banner returns the banner on screen now, advancing the queue.
func (e *Engine) Banner() (scheduler.Active, bool) {
	return e.banners.Poll(e.clock.Now())
}

// Animation returns the animation playing now, advancing the queue.
func (e *Engine) Animation() (scheduler.Active, bool) {
	return e.animations.Poll(e.clock.Now())
}

// enter claims the resolver for one mutating call. A caller that finds it
// taken is dropped, never queued behind the holder.
func (e *Engine) enter() bool {
	return e.resolving.CompareAndSwap(false, true)
}

func (e *Engine) leave() {
	e.resolving.Store(false)
}

func (e *Engine) dropped(action ActionType) {
	e.logger.Info("action dropped",
		zap.String("session_id", e.sessionID),
		zap.String("action", string(action)),
		zap.String("reason", ErrBusy.Error()),
	)
}

// begin clones the state into a working copy. Callers hold e.mu.
func (e *Engine) begin() *mutation {
	st := e.st.Clone()
	return &mutation{
		st:        st,
		p:         st.Player(),
		cfg:       e.cfg,
		catalog:   e.catalog,
		rng:       e.rng,
		pedometer: e.pedometer,
		now:       e.clock.Now(),
	}
}

// ready checks the preconditions shared by every daylight action.
func (e *Engine) ready(action ActionType) error {
	switch {
	case e.st.Status.Suspended() || e.st.IsLoadingNGPlus:
		return reject(action, "waiting for the trail ahead to be prepared")
	case e.st.Status != state.StatusPlaying:
		return reject(action, "not available while %s", e.st.Status)
	case e.st.Phase != rules.PhaseDaylight:
		return reject(action, "night has fallen")
	case e.st.Player() == nil:
		return reject(action, "no survivor selected")
	}
	return nil
}

func reasonOf(err error) string {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return err.Error()
}

// rejectLocked records a rejection in the game log. Callers hold e.mu.
func (e *Engine) rejectLocked(action ActionType, err error) {
	reason := reasonOf(err)
	e.st.AddLog(state.LogReject, fmt.Sprintf("%s: %s", action, reason), e.clock.Now())
	e.logger.Info("action rejected",
		zap.String("session_id", e.sessionID),
		zap.String("action", string(action)),
		zap.String("reason", reason),
	)
}

// Apply resolves a player action. Rejections leave the state untouched
// apart from a log entry and are reported in the result.
func (e *Engine) Apply(ctx context.Context, a Action) ActionResult {
	if a.Type == ActionEndDay {
		report, err := e.EndDay(ctx)
		if err != nil {
			return ActionResult{Reason: reasonOf(err)}
		}
		return ActionResult{Accepted: true, Effects: report.Effects, Finished: report.Finished}
	}

	if !e.enter() {
		e.dropped(a.Type)
		return ActionResult{Reason: ErrBusy.Error()}
	}
	defer e.leave()

	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		e.dropped(a.Type)
		return ActionResult{Reason: ErrBusy.Error()}
	}
	if err := e.ready(a.Type); err != nil {
		e.rejectLocked(a.Type, err)
		e.mu.Unlock()
		return ActionResult{Reason: reasonOf(err)}
	}

	m := e.begin()
	if err := m.resolve(a); err != nil {
		e.discardLocked(m)
		e.rejectLocked(a.Type, err)
		e.mu.Unlock()
		return ActionResult{Reason: reasonOf(err)}
	}
	e.commitAndPublish(ctx, m)
	return ActionResult{Accepted: true, Effects: m.effects, Finished: m.ended}
}

// commitLocked installs the working copy and queues a save. Callers hold
// e.mu.
func (e *Engine) commitLocked(m *mutation) {
	e.installLocked(m)
	e.persistLocked()
}

// installLocked makes the working copy and its random source current.
func (e *Engine) installLocked(m *mutation) {
	e.st = m.st
	e.rng = m.rng
}

// discardLocked undoes the catalog changes of a mutation that will not be
// committed. Callers hold e.mu.
func (e *Engine) discardLocked(m *mutation) {
	if !m.overlaySaved {
		return
	}
	e.catalog.ResetOverlay()
	for _, c := range m.overlay {
		if err := e.catalog.Register(c); err != nil {
			e.logger.Warn("could not restore catalog entry", zap.String("card_id", c.ID), zap.Error(err))
		}
	}
}

// commitAndPublish commits m, releases e.mu and dispatches its events and
// effects in commit order.
func (e *Engine) commitAndPublish(ctx context.Context, m *mutation) {
	e.commitLocked(m)
	e.publishMu.Lock()
	e.mu.Unlock()
	defer e.publishMu.Unlock()
	e.publishLocked(ctx, m.events, m.effects)
}

// publishLocked feeds the bus, the scheduler and the sink. Callers hold
// e.publishMu but not e.mu.
func (e *Engine) publishLocked(ctx context.Context, events []rules.Event, effects []SideEffect) {
	e.bus.PublishBatch(events)
	for _, fx := range effects {
		item, ok := fx.schedulerItem()
		if !ok {
			continue
		}
		if item.Kind == scheduler.KindBanner {
			e.banners.Enqueue(item)
		} else {
			e.animations.Enqueue(item)
		}
	}
	if len(effects) == 0 {
		return
	}
	if err := e.sink.Publish(ctx, e.sessionID, effects); err != nil {
		e.logger.Warn("effect sink failed",
			zap.String("session_id", e.sessionID),
			zap.Int("effects", len(effects)),
			zap.Error(err),
		)
	}
}

func (e *Engine) persistLocked() {
	if e.persister == nil || e.st.Status == state.StatusLanding {
		return
	}
	data, err := persistence.Encode(e.st, e.catalog, e.clock.Now())
	if err != nil {
		e.logger.Warn("failed to encode save", zap.String("session_id", e.sessionID), zap.Error(err))
		return
	}
	if err := e.persister.Persist(e.slot(), data); err != nil {
		e.logger.Warn("failed to queue save", zap.String("session_id", e.sessionID), zap.Error(err))
	}
}

func (e *Engine) slot() string {
	if e.saveSlot != "" {
		return e.saveSlot
	}
	return e.sessionID
}

// EndDay runs the night and the next dawn. While it runs every other
// mutation is dropped.
func (e *Engine) EndDay(ctx context.Context) (TurnReport, error) {
	if !e.enter() {
		e.dropped(ActionEndDay)
		return TurnReport{}, ErrBusy
	}
	defer e.leave()

	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		return TurnReport{}, ErrBusy
	}
	if err := e.ready(ActionEndDay); err != nil {
		e.rejectLocked(ActionEndDay, err)
		e.mu.Unlock()
		return TurnReport{}, err
	}

	m := e.begin()
	r := TurnReport{StartTurn: m.st.Turn}
	r.Passes = m.endDay()

	e.inFlight = true
	epoch := e.epoch
	e.st.Phase = rules.PhaseDusk
	e.mu.Unlock()

	if e.cfg.DuskDelay > 0 {
		sleep(ctx, e.cfg.DuskDelay)
	}
	if m.st.Victory && m.st.Status == state.StatusFinished {
		m.st.VictoryStory = e.story(ctx, m.st.FinalState())
	}

	e.mu.Lock()
	if e.epoch != epoch {
		e.mu.Unlock()
		return TurnReport{}, ErrSuperseded
	}
	e.inFlight = false
	r.Turn = m.st.Turn
	r.Finished = m.ended
	r.Victory = m.st.Victory
	r.WinReason = m.st.WinReason
	r.Effects = m.effects

	e.commitLocked(m)
	e.publishMu.Lock()
	e.mu.Unlock()
	defer e.publishMu.Unlock()
	e.publishLocked(ctx, m.events, m.effects)
	if p := m.st.Player(); p != nil {
		report(&r, e.watchers, p.ID)
	}
	e.watchers.Reset(rules.SpanDay)

	e.logger.Info("day ended",
		zap.String("session_id", e.sessionID),
		zap.Int("turn", r.Turn),
		zap.Int("passes", r.Passes),
		zap.Bool("finished", r.Finished),
	)
	return r, nil
}

func (e *Engine) story(ctx context.Context, fs progression.FinalState) string {
	if !e.cfg.ContentEnabled {
		return content.DefaultStory(fs)
	}
	return e.content.Story(ctx, fs)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Save encodes the current state.
func (e *Engine) Save() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return persistence.Encode(e.st, e.catalog, e.clock.Now())
}

// Load replaces the state with a rehydrated save. It is the only operation
// that clears the in-flight guard; a suspended operation that was waiting
// discards its result. Load is never dropped as busy.
func (e *Engine) Load(ctx context.Context, raw []byte) (persistence.Report, error) {
	if err := ctx.Err(); err != nil {
		return persistence.Report{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	previous := e.catalog.Customs()
	e.catalog.ResetOverlay()
	st, rep, err := persistence.Rehydrate(raw, persistence.Options{
		Catalog:    e.catalog,
		Logger:     e.logger.With(zap.String("session_id", e.sessionID)),
		HandSize:   e.cfg.HandSize,
		EquipSlots: e.cfg.EquipSlots,
		Now:        e.clock.Now(),
	})
	if err != nil {
		e.catalog.ResetOverlay()
		for _, c := range previous {
			_ = e.catalog.Register(c)
		}
		return persistence.Report{}, fmt.Errorf("load save: %w", err)
	}

	e.st = st
	e.inFlight = false
	e.epoch++
	e.rng = rand.New(rand.NewSource(st.Seed ^ int64(st.Turn)))
	e.banners.Clear()
	e.animations.Clear()
	e.watchers.ResetAll()

	e.logger.Info("save loaded",
		zap.String("session_id", e.sessionID),
		zap.String("status", string(st.Status)),
		zap.Int("turn", st.Turn),
		zap.Bool("repaired", rep.Repaired()),
	)
	return rep, nil
}
