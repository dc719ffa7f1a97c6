package state

import "fmt"

// Status is the top-level run status.
type Status string

const (
	StatusLanding              Status = "landing"
	StatusSetup                Status = "setup"
	StatusGeneratingBossIntro  Status = "generating_boss_intro"
	StatusShowingBossIntro     Status = "showing_boss_intro"
	StatusPlaying              Status = "playing"
	StatusPlayingInitialReveal Status = "playing_initial_reveal"
	StatusDeckReview           Status = "deck_review"
	StatusFinished             Status = "finished"
)

// transitions lists every allowed status change.
var transitions = map[Status][]Status{
	StatusLanding:              {StatusSetup},
	StatusSetup:                {StatusGeneratingBossIntro, StatusPlaying},
	StatusGeneratingBossIntro:  {StatusShowingBossIntro},
	StatusShowingBossIntro:     {StatusPlayingInitialReveal},
	StatusPlayingInitialReveal: {StatusPlaying, StatusFinished},
	StatusPlaying:              {StatusFinished},
	StatusFinished:             {StatusPlaying, StatusDeckReview, StatusSetup, StatusLanding},
	StatusDeckReview:           {StatusSetup},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether s may move to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Suspended reports whether the status blocks player actions while
// content generation is outstanding.
func (s Status) Suspended() bool {
	return s == StatusGeneratingBossIntro
}

// ParseStatus maps unknown values to landing.
func ParseStatus(raw string) Status {
	s := Status(raw)
	if !s.Valid() {
		return StatusLanding
	}
	return s
}

// TransitionError reports a rejected status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}
