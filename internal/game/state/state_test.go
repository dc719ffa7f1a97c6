package state

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thraizz/wildwood-server-go/internal/game/cards"
	"github.com/thraizz/wildwood-server-go/internal/game/counters"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusLanding, StatusSetup, true},
		{StatusLanding, StatusPlaying, false},
		{StatusSetup, StatusPlaying, true},
		{StatusSetup, StatusGeneratingBossIntro, true},
		{StatusGeneratingBossIntro, StatusShowingBossIntro, true},
		{StatusShowingBossIntro, StatusPlayingInitialReveal, true},
		{StatusPlayingInitialReveal, StatusPlaying, true},
		{StatusPlaying, StatusFinished, true},
		{StatusPlaying, StatusSetup, false},
		{StatusFinished, StatusPlaying, true},
		{StatusFinished, StatusDeckReview, true},
		{StatusDeckReview, StatusSetup, true},
		{StatusDeckReview, StatusPlaying, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			s := &GameState{Status: tt.from}
			err := s.Transition(tt.to)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.to, s.Status)
				return
			}
			var terr *TransitionError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, tt.from, s.Status)
		})
	}
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusPlaying, ParseStatus("playing"))
	assert.Equal(t, StatusLanding, ParseStatus("victory_lap"))
	assert.Equal(t, StatusLanding, ParseStatus(""))
	assert.True(t, StatusGeneratingBossIntro.Suspended())
	assert.False(t, StatusPlaying.Suspended())
}

func TestCloneIsDeep(t *testing.T) {
	s := New()
	p := NewPlayer(DefaultPlayerID, "ranger", cards.DefaultPersonality, 20, 5, 3)
	p.Hand[0] = &cards.Card{ID: "hatchet"}
	p.Satchels[1] = []cards.Card{{ID: "jerky"}}
	p.RunStats.Add(counters.StatDamageTaken, 3)
	p.CurrentIllnesses = []Illness{{Card: cards.Card{ID: "fever"}}}
	s.PlayerDetails[p.ID] = p
	s.EventDeck = []cards.Card{{ID: "fox", Health: 3}}
	s.ActiveEvent = &cards.Card{ID: "wolf", Health: 7}

	cp := s.Clone()
	cp.Player().Hand[0].ID = "changed"
	cp.Player().Satchels[1][0].ID = "changed"
	cp.Player().RunStats.Add(counters.StatDamageTaken, 10)
	cp.Player().CurrentIllnesses[0].Card.ID = "changed"
	cp.EventDeck[0].Health = 1
	cp.ActiveEvent.Health = 1

	assert.Equal(t, "hatchet", p.Hand[0].ID)
	assert.Equal(t, "jerky", p.Satchels[1][0].ID)
	assert.Equal(t, 3, p.DamageTaken())
	assert.Equal(t, "fever", p.CurrentIllnesses[0].Card.ID)
	assert.Equal(t, 3, s.EventDeck[0].Health)
	assert.Equal(t, 7, s.ActiveEvent.Health)
	assert.Nil(t, cp.Player().Hand[1], "holes are preserved")
}

func TestAddLogIsBounded(t *testing.T) {
	s := New()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < LogLimit+10; i++ {
		s.AddLog(LogInfo, fmt.Sprintf("entry %d", i), now)
	}
	require.Len(t, s.Log, LogLimit)
	assert.Equal(t, "entry 10", s.Log[0].Message)
	assert.Equal(t, fmt.Sprintf("entry %d", LogLimit+9), s.Log[LogLimit-1].Message)
}

func TestPlayerHelpers(t *testing.T) {
	p := NewPlayer("p", "outlaw", cards.DefaultPersonality, 10, 3, 2)
	assert.Equal(t, 0, p.FirstHole())
	assert.Equal(t, 3, p.Holes())
	p.Hand[0] = &cards.Card{ID: "jerky"}
	assert.Equal(t, 1, p.FirstHole())
	assert.Len(t, p.HandCards(), 1)
	assert.Equal(t, 2, p.EquipCapacity())

	p.CurrentIllnesses = []Illness{{Card: cards.Card{ID: "ng2-fever"}}}
	assert.True(t, p.HasIllness("fever"))
	assert.False(t, p.HasIllness("frostbite"))

	p.EquipUsedToday, p.MainActionUsed, p.RestockUsedToday = true, true, true
	p.ResetDaily()
	assert.False(t, p.EquipUsedToday || p.MainActionUsed || p.RestockUsedToday)
}

func TestFinalState(t *testing.T) {
	s := New()
	p := NewPlayer(DefaultPlayerID, "trapper", cards.DefaultPersonality, 20, 5, 3)
	p.Gold = 31
	p.RunStats.Add(counters.StatCaptures, 2)
	s.PlayerDetails[p.ID] = p
	s.Victory = true
	s.BossCaptured = true
	s.AIBoss = &cards.Card{ID: "boss-1", Name: "Old Mossback"}
	s.Turn = 12

	fs := s.FinalState()
	assert.True(t, fs.Victory)
	assert.True(t, fs.BossCaptured)
	assert.Equal(t, 2, fs.Captures)
	assert.Equal(t, 31, fs.Gold)
	assert.Equal(t, "Old Mossback", fs.BossName)
	assert.Equal(t, 12, fs.Turn)
}
