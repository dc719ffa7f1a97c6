// Package state holds the root game aggregate. The engine is its only
// writer; every other package receives it by reference for the duration of
// a call and never retains it.
package state

import (
	"sort"
	"time"

	"github.com/thraizz/wildwood-server-go/internal/game/cards"
	"github.com/thraizz/wildwood-server-go/internal/game/counters"
	"github.com/thraizz/wildwood-server-go/internal/game/progression"
	"github.com/thraizz/wildwood-server-go/internal/game/rules"
)

// DefaultPlayerID keys the single player in PlayerDetails.
const DefaultPlayerID = "player"

// LogLimit bounds the in-state log; the oldest entries are dropped.
const LogLimit = 100

// LogKind classifies log entries.
type LogKind string

const (
	LogInfo   LogKind = "info"
	LogReject LogKind = "reject"
	LogWarn   LogKind = "warn"
)

// LogEntry is one line of the player-facing game log.
type LogEntry struct {
	Turn    int       `json:"turn"`
	Kind    LogKind   `json:"kind"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Illness is a contracted illness. Remaining 0 means persistent.
type Illness struct {
	Card      cards.Card `json:"card"`
	Remaining int        `json:"remaining"`
}

// BossIntro is the generated boss introduction.
type BossIntro struct {
	Title     string `json:"title"`
	Paragraph string `json:"paragraph"`
}

// Player is the survivor's mutable run state.
type Player struct {
	ID               string               `json:"id"`
	Character        string               `json:"character"`
	Personality      cards.Personality    `json:"personality"`
	Health           int                  `json:"health"`
	MaxHealth        int                  `json:"maxHealth"`
	Gold             int                  `json:"gold"`
	Hand             []*cards.Card        `json:"hand"`
	HandSize         int                  `json:"handSize"`
	PlayerDeck       []cards.Card         `json:"playerDeck"`
	PlayerDiscard    []cards.Card         `json:"playerDiscard"`
	EquippedItems    []*cards.Card        `json:"equippedItems"`
	Satchels         map[int][]cards.Card `json:"satchels,omitempty"`
	CurrentIllnesses []Illness            `json:"currentIllnesses,omitempty"`
	RunStats         *counters.Counters   `json:"runStats"`
	EquipUsedToday   bool                 `json:"equipUsedToday"`
	RestockUsedToday bool                 `json:"restockUsedToday"`
	MainActionUsed   bool                 `json:"mainActionUsed"`
	StepsBanked      int                  `json:"stepsBanked"`
}

// NewPlayer creates a player with empty hand and equip slots.
func NewPlayer(id, character string, personality cards.Personality, health, handSize, equipSlots int) *Player {
	return &Player{
		ID:            id,
		Character:     character,
		Personality:   personality,
		Health:        health,
		MaxHealth:     health,
		Hand:          make([]*cards.Card, handSize),
		HandSize:      handSize,
		EquippedItems: make([]*cards.Card, equipSlots),
		Satchels:      make(map[int][]cards.Card),
		RunStats:      counters.NewCounters(),
	}
}

// Clone deep-copies the player.
func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	out := *p
	out.Hand = ClonePtrs(p.Hand)
	out.PlayerDeck = CloneCards(p.PlayerDeck)
	out.PlayerDiscard = CloneCards(p.PlayerDiscard)
	out.EquippedItems = ClonePtrs(p.EquippedItems)
	out.Satchels = make(map[int][]cards.Card, len(p.Satchels))
	for slot, items := range p.Satchels {
		out.Satchels[slot] = CloneCards(items)
	}
	if p.CurrentIllnesses != nil {
		out.CurrentIllnesses = make([]Illness, len(p.CurrentIllnesses))
		for i, ill := range p.CurrentIllnesses {
			out.CurrentIllnesses[i] = Illness{Card: ill.Card.Clone(), Remaining: ill.Remaining}
		}
	}
	if p.RunStats != nil {
		out.RunStats = p.RunStats.Copy()
	} else {
		out.RunStats = counters.NewCounters()
	}
	return &out
}

// HandCards returns the cards in hand, skipping holes.
func (p *Player) HandCards() []cards.Card {
	out := make([]cards.Card, 0, len(p.Hand))
	for _, c := range p.Hand {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

// FirstHole returns the first empty hand index, or -1.
func (p *Player) FirstHole() int {
	for i, c := range p.Hand {
		if c == nil {
			return i
		}
	}
	return -1
}

// Holes counts empty hand slots.
func (p *Player) Holes() int {
	n := 0
	for _, c := range p.Hand {
		if c == nil {
			n++
		}
	}
	return n
}

// EquipCapacity is the current number of equip slots.
func (p *Player) EquipCapacity() int {
	return len(p.EquippedItems)
}

// HasIllness reports whether an illness with the given base id is active.
func (p *Player) HasIllness(id string) bool {
	for _, ill := range p.CurrentIllnesses {
		if ill.Card.BaseID() == cards.BaseID(id) {
			return true
		}
	}
	return false
}

// DamageTaken is the run's cumulative damage.
func (p *Player) DamageTaken() int {
	return p.RunStats.Get(counters.StatDamageTaken)
}

// ResetDaily clears the per-day action flags.
func (p *Player) ResetDaily() {
	p.EquipUsedToday = false
	p.RestockUsedToday = false
	p.MainActionUsed = false
}

// RunStartSnapshot is the inventory captured when play begins, used to
// retry a run without re-rolling consumed randomness.
type RunStartSnapshot struct {
	Level         int                  `json:"level"`
	PlayerDeck    []cards.Card         `json:"playerDeck"`
	PlayerDiscard []cards.Card         `json:"playerDiscard"`
	Hand          []*cards.Card        `json:"hand"`
	Equipped      []*cards.Card        `json:"equipped"`
	Satchels      map[int][]cards.Card `json:"satchels,omitempty"`
	Gold          int                  `json:"gold"`
	Health        int                  `json:"health"`
	MaxHealth     int                  `json:"maxHealth"`
	HandSize      int                  `json:"handSize"`
	EventDeck     []cards.Card         `json:"eventDeck"`
	StoreItemDeck []cards.Card         `json:"storeItemDeck"`
	StoreDisplay  []cards.Card         `json:"storeDisplay"`
	ActiveEvent   *cards.Card          `json:"activeEvent,omitempty"`
	Objectives    []cards.Card         `json:"objectives,omitempty"`
	Boss          *cards.Card          `json:"boss,omitempty"`
	Seed          int64                `json:"seed"`
}

// Clone deep-copies the snapshot.
func (s *RunStartSnapshot) Clone() *RunStartSnapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.PlayerDeck = CloneCards(s.PlayerDeck)
	out.PlayerDiscard = CloneCards(s.PlayerDiscard)
	out.Hand = ClonePtrs(s.Hand)
	out.Equipped = ClonePtrs(s.Equipped)
	out.Satchels = cloneSatchels(s.Satchels)
	out.EventDeck = CloneCards(s.EventDeck)
	out.StoreItemDeck = CloneCards(s.StoreItemDeck)
	out.StoreDisplay = CloneCards(s.StoreDisplay)
	out.ActiveEvent = clonePtr(s.ActiveEvent)
	out.Objectives = CloneCards(s.Objectives)
	out.Boss = clonePtr(s.Boss)
	return &out
}

// GameState is the single root aggregate of a session.
type GameState struct {
	Status      Status      `json:"status"`
	Turn        int         `json:"turn"`
	NGPlusLevel int         `json:"ngPlusLevel"`
	Theme       string      `json:"theme"`
	Phase       rules.Phase `json:"phase"`

	PlayerDetails map[string]*Player `json:"playerDetails"`

	EventDeck            []cards.Card `json:"eventDeck"`
	EventDiscardPile     []cards.Card `json:"eventDiscardPile"`
	StoreItemDeck        []cards.Card `json:"storeItemDeck"`
	StoreDisplayItems    []cards.Card `json:"storeDisplayItems"`
	StoreItemDiscardPile []cards.Card `json:"storeItemDiscardPile"`

	ActiveEvent      *cards.Card  `json:"activeEvent,omitempty"`
	ActiveObjectives []cards.Card `json:"activeObjectives,omitempty"`
	AIBoss           *cards.Card  `json:"aiBoss,omitempty"`
	BossIntro        *BossIntro   `json:"bossIntro,omitempty"`

	IsBossFightActive   bool `json:"isBossFightActive"`
	BossDefeated        bool `json:"bossDefeated"`
	BossPacified        bool `json:"bossPacified"`
	BossCaptured        bool `json:"bossCaptured"`
	CombatVictoryVoided bool `json:"combatVictoryVoided"`

	CampfireActive   bool        `json:"campfireActive"`
	CampfireShielded bool        `json:"campfireShielded"`
	ArmedTrap        *cards.Card `json:"armedTrap,omitempty"`
	DeckExhausted    bool        `json:"deckExhausted"`
	TurnLost         bool        `json:"turnLost"`
	PendingDiscard   int         `json:"pendingDiscard"`

	Victory          bool                 `json:"victory"`
	WinReason        string               `json:"winReason,omitempty"`
	ObjectivesGraded bool                 `json:"objectivesGraded"`
	ObjectiveSummary *progression.Summary `json:"objectiveSummary,omitempty"`
	VictoryStory     string               `json:"victoryStory,omitempty"`

	RunStart         *RunStartSnapshot      `json:"runStart,omitempty"`
	Progress         progression.Profile    `json:"progress"`
	CarryOver        *progression.CarryOver `json:"carryOver,omitempty"`
	ReviewCandidates []cards.Card           `json:"reviewCandidates,omitempty"`
	IsLoadingNGPlus  bool                   `json:"isLoadingNGPlus"`

	Seed int64      `json:"seed"`
	Log  []LogEntry `json:"log,omitempty"`
}

// New returns a fresh landing-screen state.
func New() *GameState {
	return &GameState{
		Status:        StatusLanding,
		Phase:         rules.PhaseDaylight,
		PlayerDetails: make(map[string]*Player),
	}
}

// Player returns the single player, or nil before character select.
func (s *GameState) Player() *Player {
	if p, ok := s.PlayerDetails[DefaultPlayerID]; ok {
		return p
	}
	ids := make([]string, 0, len(s.PlayerDetails))
	for id := range s.PlayerDetails {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Strings(ids)
	return s.PlayerDetails[ids[0]]
}

// Transition moves to next if the status graph allows it.
func (s *GameState) Transition(next Status) error {
	if !s.Status.CanTransition(next) {
		return &TransitionError{From: s.Status, To: next}
	}
	s.Status = next
	return nil
}

// AddLog appends a log entry, dropping the oldest beyond LogLimit.
func (s *GameState) AddLog(kind LogKind, message string, now time.Time) {
	s.Log = append(s.Log, LogEntry{Turn: s.Turn, Kind: kind, Message: message, Time: now})
	if len(s.Log) > LogLimit {
		s.Log = append([]LogEntry(nil), s.Log[len(s.Log)-LogLimit:]...)
	}
}

// FinalState extracts what objectives are graded against.
func (s *GameState) FinalState() progression.FinalState {
	fs := progression.FinalState{
		Victory:              s.Victory,
		BossDefeatedInCombat: s.BossDefeated,
		CombatVictoryVoided:  s.CombatVictoryVoided,
		BossPacified:         s.BossPacified,
		BossCaptured:         s.BossCaptured,
		Turn:                 s.Turn,
		Level:                s.NGPlusLevel,
	}
	if s.AIBoss != nil {
		fs.BossName = s.AIBoss.Name
	}
	if p := s.Player(); p != nil {
		fs.DamageTaken = p.DamageTaken()
		fs.Captures = p.RunStats.Get(counters.StatCaptures)
		fs.Gold = p.Gold
		fs.MaxHealth = p.MaxHealth
		fs.Character = p.Character
	}
	return fs
}

// ClearRun drops every field that only lives for the duration of a run.
func (s *GameState) ClearRun() {
	s.Turn = 0
	s.Phase = rules.PhaseDaylight
	s.EventDeck = nil
	s.EventDiscardPile = nil
	s.StoreItemDeck = nil
	s.StoreDisplayItems = nil
	s.StoreItemDiscardPile = nil
	s.ActiveEvent = nil
	s.ActiveObjectives = nil
	s.AIBoss = nil
	s.BossIntro = nil
	s.IsBossFightActive = false
	s.BossDefeated = false
	s.BossPacified = false
	s.BossCaptured = false
	s.CombatVictoryVoided = false
	s.CampfireActive = false
	s.CampfireShielded = false
	s.ArmedTrap = nil
	s.DeckExhausted = false
	s.TurnLost = false
	s.PendingDiscard = 0
	s.Victory = false
	s.WinReason = ""
	s.ObjectivesGraded = false
	s.ObjectiveSummary = nil
	s.VictoryStory = ""
	s.ReviewCandidates = nil
}

// Clone deep-copies the state.
func (s *GameState) Clone() *GameState {
	out := *s
	out.PlayerDetails = make(map[string]*Player, len(s.PlayerDetails))
	for id, p := range s.PlayerDetails {
		out.PlayerDetails[id] = p.Clone()
	}
	out.EventDeck = CloneCards(s.EventDeck)
	out.EventDiscardPile = CloneCards(s.EventDiscardPile)
	out.StoreItemDeck = CloneCards(s.StoreItemDeck)
	out.StoreDisplayItems = CloneCards(s.StoreDisplayItems)
	out.StoreItemDiscardPile = CloneCards(s.StoreItemDiscardPile)
	out.ActiveEvent = clonePtr(s.ActiveEvent)
	out.ActiveObjectives = CloneCards(s.ActiveObjectives)
	out.AIBoss = clonePtr(s.AIBoss)
	if s.BossIntro != nil {
		intro := *s.BossIntro
		out.BossIntro = &intro
	}
	out.ArmedTrap = clonePtr(s.ArmedTrap)
	if s.ObjectiveSummary != nil {
		summary := *s.ObjectiveSummary
		summary.Results = append([]progression.Result(nil), s.ObjectiveSummary.Results...)
		out.ObjectiveSummary = &summary
	}
	out.RunStart = s.RunStart.Clone()
	out.Progress = s.Progress.Clone()
	if s.CarryOver != nil {
		co := s.CarryOver.Clone()
		out.CarryOver = &co
	}
	out.ReviewCandidates = CloneCards(s.ReviewCandidates)
	out.Log = append([]LogEntry(nil), s.Log...)
	return &out
}

// CloneCards deep-copies a pile, preserving nil.
func CloneCards(in []cards.Card) []cards.Card {
	if in == nil {
		return nil
	}
	out := make([]cards.Card, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

// ClonePtrs deep-copies a slot array, preserving holes.
func ClonePtrs(in []*cards.Card) []*cards.Card {
	if in == nil {
		return nil
	}
	out := make([]*cards.Card, len(in))
	for i, c := range in {
		out[i] = clonePtr(c)
	}
	return out
}

func clonePtr(c *cards.Card) *cards.Card {
	if c == nil {
		return nil
	}
	return c.Ptr()
}

func cloneSatchels(in map[int][]cards.Card) map[int][]cards.Card {
	if in == nil {
		return nil
	}
	out := make(map[int][]cards.Card, len(in))
	for k, v := range in {
		out[k] = CloneCards(v)
	}
	return out
}
