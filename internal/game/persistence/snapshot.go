// Package persistence converts game state to and from its versioned save
// format, migrating and repairing older or damaged saves on load.
package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/thraizz/wildwood-server-go/internal/game/cards"
	"github.com/thraizz/wildwood-server-go/internal/game/counters"
	"github.com/thraizz/wildwood-server-go/internal/game/progression"
	"github.com/thraizz/wildwood-server-go/internal/game/rules"
	"github.com/thraizz/wildwood-server-go/internal/game/state"
)

// SchemaVersion is the save format written by this package.
const SchemaVersion = 3

// SavedIllness is an illness in save form.
type SavedIllness struct {
	Card      CardRef `json:"card"`
	Remaining int     `json:"remaining"`
}

// SavedPlayer is a player in save form.
type SavedPlayer struct {
	ID               string             `json:"id"`
	Character        string             `json:"character"`
	Personality      cards.Personality  `json:"personality"`
	Health           int                `json:"health"`
	MaxHealth        int                `json:"maxHealth"`
	Gold             int                `json:"gold"`
	Hand             []*CardRef         `json:"hand"`
	HandSize         int                `json:"handSize"`
	PlayerDeck       []CardRef          `json:"playerDeck"`
	PlayerDiscard    []CardRef          `json:"playerDiscard"`
	EquippedItems    []*CardRef         `json:"equippedItems"`
	Satchels         map[int][]CardRef  `json:"satchels,omitempty"`
	CurrentIllnesses []SavedIllness     `json:"currentIllnesses,omitempty"`
	RunStats         *counters.Counters `json:"runStats,omitempty"`
	EquipUsedToday   bool               `json:"equipUsedToday"`
	RestockUsedToday bool               `json:"restockUsedToday"`
	MainActionUsed   bool               `json:"mainActionUsed"`
	StepsBanked      int                `json:"stepsBanked"`
}

// SaveState is the canonical serializable form of a GameState.
type SaveState struct {
	Status      string      `json:"status"`
	Turn        int         `json:"turn"`
	NGPlusLevel int         `json:"ngPlusLevel"`
	Theme       string      `json:"theme"`
	Phase       rules.Phase `json:"phase"`

	PlayerDetails map[string]SavedPlayer `json:"playerDetails"`

	EventDeck            []CardRef `json:"eventDeck"`
	EventDiscardPile     []CardRef `json:"eventDiscardPile"`
	StoreItemDeck        []CardRef `json:"storeItemDeck"`
	StoreDisplayItems    []CardRef `json:"storeDisplayItems"`
	StoreItemDiscardPile []CardRef `json:"storeItemDiscardPile"`

	ActiveEvent      *cards.Card      `json:"activeEvent,omitempty"`
	ActiveObjectives []CardRef        `json:"activeObjectives"`
	AIBoss           *cards.Card      `json:"aiBoss,omitempty"`
	BossIntro        *state.BossIntro `json:"bossIntro,omitempty"`

	IsBossFightActive   bool `json:"isBossFightActive"`
	BossDefeated        bool `json:"bossDefeated"`
	BossPacified        bool `json:"bossPacified"`
	BossCaptured        bool `json:"bossCaptured"`
	CombatVictoryVoided bool `json:"combatVictoryVoided"`

	CampfireActive   bool     `json:"campfireActive"`
	CampfireShielded bool     `json:"campfireShielded"`
	ArmedTrap        *CardRef `json:"armedTrap,omitempty"`
	DeckExhausted    bool     `json:"deckExhausted"`
	TurnLost         bool     `json:"turnLost"`
	PendingDiscard   int      `json:"pendingDiscard"`

	Victory          bool                 `json:"victory"`
	WinReason        string               `json:"winReason,omitempty"`
	ObjectivesGraded bool                 `json:"objectivesGraded"`
	ObjectiveSummary *progression.Summary `json:"objectiveSummary,omitempty"`
	VictoryStory     string               `json:"victoryStory,omitempty"`

	RunStart         *state.RunStartSnapshot `json:"runStart,omitempty"`
	Progress         progression.Profile     `json:"progress"`
	CarryOver        *progression.CarryOver  `json:"carryOver,omitempty"`
	ReviewCandidates []CardRef               `json:"reviewCandidates,omitempty"`
	IsLoadingNGPlus  bool                    `json:"isLoadingNGPlus"`

	Seed int64            `json:"seed"`
	Log  []state.LogEntry `json:"log,omitempty"`

	CustomCards []cards.Card `json:"customCards"`
}

// Envelope wraps an encoded SaveState with its version and checksum.
type Envelope struct {
	Version  int             `json:"version"`
	Checksum string          `json:"checksum"`
	SavedAt  time.Time       `json:"savedAt"`
	State    json.RawMessage `json:"state"`
}

// Snapshot reduces st to its save form. Cards that match their base
// definition are stored by id; the catalog overlay is written out in full
// so custom and mutated references resolve on load.
func Snapshot(st *state.GameState, catalog *cards.Catalog) SaveState {
	s := SaveState{
		Status:               string(st.Status),
		Turn:                 st.Turn,
		NGPlusLevel:          st.NGPlusLevel,
		Theme:                st.Theme,
		Phase:                st.Phase,
		PlayerDetails:        make(map[string]SavedPlayer, len(st.PlayerDetails)),
		EventDeck:            refsFor(catalog, st.EventDeck),
		EventDiscardPile:     refsFor(catalog, st.EventDiscardPile),
		StoreItemDeck:        refsFor(catalog, st.StoreItemDeck),
		StoreDisplayItems:    refsFor(catalog, st.StoreDisplayItems),
		StoreItemDiscardPile: refsFor(catalog, st.StoreItemDiscardPile),
		ActiveObjectives:     refsFor(catalog, st.ActiveObjectives),
		IsBossFightActive:    st.IsBossFightActive,
		BossDefeated:         st.BossDefeated,
		BossPacified:         st.BossPacified,
		BossCaptured:         st.BossCaptured,
		CombatVictoryVoided:  st.CombatVictoryVoided,
		CampfireActive:       st.CampfireActive,
		CampfireShielded:     st.CampfireShielded,
		DeckExhausted:        st.DeckExhausted,
		TurnLost:             st.TurnLost,
		PendingDiscard:       st.PendingDiscard,
		Victory:              st.Victory,
		WinReason:            st.WinReason,
		ObjectivesGraded:     st.ObjectivesGraded,
		VictoryStory:         st.VictoryStory,
		IsLoadingNGPlus:      st.IsLoadingNGPlus,
		Seed:                 st.Seed,
		CustomCards:          []cards.Card{},
	}

	// Snapshot must not alias live state.
	cp := st.Clone()
	s.ActiveEvent = cp.ActiveEvent
	s.AIBoss = cp.AIBoss
	s.BossIntro = cp.BossIntro
	s.ObjectiveSummary = cp.ObjectiveSummary
	s.RunStart = cp.RunStart
	s.Progress = cp.Progress
	s.CarryOver = cp.CarryOver
	s.Log = cp.Log
	if len(st.ReviewCandidates) > 0 {
		s.ReviewCandidates = refsFor(catalog, st.ReviewCandidates)
	}
	if st.ArmedTrap != nil {
		ref := refFor(catalog, *st.ArmedTrap)
		s.ArmedTrap = &ref
	}

	for id, p := range cp.PlayerDetails {
		s.PlayerDetails[id] = snapshotPlayer(p, catalog)
	}
	if catalog != nil {
		s.CustomCards = append(s.CustomCards, catalog.Customs()...)
	}
	return s
}

func snapshotPlayer(p *state.Player, catalog *cards.Catalog) SavedPlayer {
	sp := SavedPlayer{
		ID:               p.ID,
		Character:        p.Character,
		Personality:      p.Personality,
		Health:           p.Health,
		MaxHealth:        p.MaxHealth,
		Gold:             p.Gold,
		Hand:             slotRefsFor(catalog, p.Hand),
		HandSize:         p.HandSize,
		PlayerDeck:       refsFor(catalog, p.PlayerDeck),
		PlayerDiscard:    refsFor(catalog, p.PlayerDiscard),
		EquippedItems:    slotRefsFor(catalog, p.EquippedItems),
		RunStats:         p.RunStats,
		EquipUsedToday:   p.EquipUsedToday,
		RestockUsedToday: p.RestockUsedToday,
		MainActionUsed:   p.MainActionUsed,
		StepsBanked:      p.StepsBanked,
	}
	if len(p.Satchels) > 0 {
		sp.Satchels = make(map[int][]CardRef, len(p.Satchels))
		for slot, items := range p.Satchels {
			sp.Satchels[slot] = refsFor(catalog, items)
		}
	}
	for _, ill := range p.CurrentIllnesses {
		sp.CurrentIllnesses = append(sp.CurrentIllnesses, SavedIllness{
			Card:      refFor(catalog, ill.Card),
			Remaining: ill.Remaining,
		})
	}
	return sp
}

// Encode snapshots st and wraps it in a checksummed envelope.
func Encode(st *state.GameState, catalog *cards.Catalog, now time.Time) ([]byte, error) {
	body, err := json.Marshal(Snapshot(st, catalog))
	if err != nil {
		return nil, fmt.Errorf("failed to encode save state: %w", err)
	}
	data, err := json.Marshal(Envelope{
		Version:  SchemaVersion,
		Checksum: Checksum(body),
		SavedAt:  now.UTC(),
		State:    body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode save envelope: %w", err)
	}
	return data, nil
}
