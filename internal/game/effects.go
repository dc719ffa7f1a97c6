package game

import (
	"context"
	"errors"

	"github.com/thraizz/wildwood-server-go/internal/game/scheduler"
)

// SideEffectKind names the presentation channel of a side effect.
type SideEffectKind string

const (
	EffectSound     SideEffectKind = "sound"
	EffectAnimation SideEffectKind = "animation"
	EffectBanner    SideEffectKind = "banner"
)

// Banner emphasis. Banners are still shown in arrival order.
const (
	PriorityLow    = 0
	PriorityNormal = 1
	PriorityHigh   = 2
)

// SideEffect is a presentation cue declared by a resolved action or turn.
// Sinks consume them; nothing flows back into the game state.
type SideEffect struct {
	Kind      SideEffectKind `json:"kind"`
	Sound     string         `json:"sound,omitempty"`
	Tag       string         `json:"tag,omitempty"`
	Target    string         `json:"target,omitempty"`
	Magnitude int            `json:"magnitude,omitempty"`
	Text      string         `json:"text,omitempty"`
	Priority  int            `json:"priority,omitempty"`
}

// schedulerItem converts banners and animations into queue items.
func (s SideEffect) schedulerItem() (scheduler.Item, bool) {
	switch s.Kind {
	case EffectBanner:
		return scheduler.Item{Kind: scheduler.KindBanner, Text: s.Text, Priority: s.Priority}, true
	case EffectAnimation:
		return scheduler.Item{Kind: scheduler.KindAnimation, Tag: s.Tag, Target: s.Target, Magnitude: s.Magnitude}, true
	default:
		return scheduler.Item{}, false
	}
}

// EffectSink consumes side effects after a mutation commits.
type EffectSink interface {
	Publish(ctx context.Context, sessionID string, effects []SideEffect) error
}

// NopSink drops everything.
type NopSink struct{}

func (NopSink) Publish(context.Context, string, []SideEffect) error { return nil }

// MultiSink fans effects out to several sinks, collecting every failure.
type MultiSink []EffectSink

func (m MultiSink) Publish(ctx context.Context, sessionID string, effects []SideEffect) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Publish(ctx, sessionID, effects); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
