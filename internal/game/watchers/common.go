// Package watchers holds the tallies behind turn reports.
package watchers

import (
	"github.com/thraizz/wildwood-server-go/internal/game/rules"
)

// Keys of the watchers every engine registers.
const (
	KeyDamageTaken     = "damage_taken"
	KeyThreatsDefeated = "threats_defeated"
	KeyCaptures        = "captures"
	KeyGoldFlow        = "gold_flow"
	KeyRunTally        = "run_tally"
)

// DamageTakenWatcher tracks damage taken by players during the day.
type DamageTakenWatcher struct {
	rules.Tally
	damage  map[string]int            // playerID -> amount
	sources map[string]map[string]int // playerID -> sourceID -> amount
}

func NewDamageTakenWatcher() *DamageTakenWatcher {
	return &DamageTakenWatcher{
		Tally:   rules.NewTally(KeyDamageTaken, rules.SpanDay),
		damage:  make(map[string]int),
		sources: make(map[string]map[string]int),
	}
}

func (w *DamageTakenWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventPlayerDamaged || event.Amount <= 0 {
		return
	}
	playerID := event.PlayerID
	if playerID == "" {
		playerID = event.TargetID
	}
	if playerID == "" {
		return
	}
	w.damage[playerID] += event.Amount
	if event.SourceID != "" {
		if w.sources[playerID] == nil {
			w.sources[playerID] = make(map[string]int)
		}
		w.sources[playerID][event.SourceID] += event.Amount
	}
	w.Mark()
}

func (w *DamageTakenWatcher) Reset() {
	w.Tally.Reset()
	w.damage = make(map[string]int)
	w.sources = make(map[string]map[string]int)
}

// Amount returns the damage a player took today.
func (w *DamageTakenWatcher) Amount(playerID string) int {
	return w.damage[playerID]
}

// AmountFrom returns the damage a player took today from one source.
func (w *DamageTakenWatcher) AmountFrom(playerID, sourceID string) int {
	return w.sources[playerID][sourceID]
}

// ThreatsDefeatedWatcher tracks threats beaten in combat during the day.
type ThreatsDefeatedWatcher struct {
	rules.Tally
	defeated []string
	boss     bool
}

func NewThreatsDefeatedWatcher() *ThreatsDefeatedWatcher {
	return &ThreatsDefeatedWatcher{Tally: rules.NewTally(KeyThreatsDefeated, rules.SpanDay)}
}

func (w *ThreatsDefeatedWatcher) Watch(event rules.Event) {
	switch event.Type {
	case rules.EventThreatDefeated:
		if event.TargetID == "" {
			return
		}
		w.defeated = append(w.defeated, event.TargetID)
	case rules.EventBossDefeated:
		w.boss = true
	default:
		return
	}
	w.Mark()
}

func (w *ThreatsDefeatedWatcher) Reset() {
	w.Tally.Reset()
	w.defeated = nil
	w.boss = false
}

// Defeated returns the ids of threats defeated today.
func (w *ThreatsDefeatedWatcher) Defeated() []string {
	return append([]string(nil), w.defeated...)
}

func (w *ThreatsDefeatedWatcher) Count() int { return len(w.defeated) }

// BossDefeated reports whether the boss fell today.
func (w *ThreatsDefeatedWatcher) BossDefeated() bool { return w.boss }

// CapturesWatcher tracks trap captures during the day.
type CapturesWatcher struct {
	rules.Tally
	captured []string
	byTrap   map[string]int // trapID -> count
}

func NewCapturesWatcher() *CapturesWatcher {
	return &CapturesWatcher{
		Tally:  rules.NewTally(KeyCaptures, rules.SpanDay),
		byTrap: make(map[string]int),
	}
}

func (w *CapturesWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventThreatCaptured || event.TargetID == "" {
		return
	}
	w.captured = append(w.captured, event.TargetID)
	if event.SourceID != "" {
		w.byTrap[event.SourceID]++
	}
	w.Mark()
}

func (w *CapturesWatcher) Reset() {
	w.Tally.Reset()
	w.captured = nil
	w.byTrap = make(map[string]int)
}

// Captured returns the ids of threats captured today.
func (w *CapturesWatcher) Captured() []string {
	return append([]string(nil), w.captured...)
}

// CountByTrap returns how many captures a trap made today.
func (w *CapturesWatcher) CountByTrap(trapID string) int {
	return w.byTrap[trapID]
}

// GoldFlowWatcher tracks gold gained and lost during the day. Purchases
// are not losses.
type GoldFlowWatcher struct {
	rules.Tally
	gained int
	lost   int
}

func NewGoldFlowWatcher() *GoldFlowWatcher {
	return &GoldFlowWatcher{Tally: rules.NewTally(KeyGoldFlow, rules.SpanDay)}
}

func (w *GoldFlowWatcher) Watch(event rules.Event) {
	switch event.Type {
	case rules.EventGoldGained:
		w.gained += event.Amount
	case rules.EventGoldLost:
		w.lost += event.Amount
	default:
		return
	}
	w.Mark()
}

func (w *GoldFlowWatcher) Reset() {
	w.Tally.Reset()
	w.gained = 0
	w.lost = 0
}

func (w *GoldFlowWatcher) Gained() int { return w.gained }

func (w *GoldFlowWatcher) Lost() int { return w.lost }

// Net returns the day's gold balance.
func (w *GoldFlowWatcher) Net() int { return w.gained - w.lost }

// RunTallyWatcher keeps running totals for the current run. A run start,
// including a retry, clears it.
type RunTallyWatcher struct {
	rules.Tally
	days     int
	damage   int
	defeated int
	captured int
}

func NewRunTallyWatcher() *RunTallyWatcher {
	return &RunTallyWatcher{Tally: rules.NewTally(KeyRunTally, rules.SpanRun)}
}

func (w *RunTallyWatcher) Watch(event rules.Event) {
	switch event.Type {
	case rules.EventRunStarted:
		w.Reset()
		return
	case rules.EventDayStarted:
		w.days++
	case rules.EventPlayerDamaged:
		w.damage += event.Amount
	case rules.EventThreatDefeated, rules.EventBossDefeated:
		w.defeated++
	case rules.EventThreatCaptured:
		w.captured++
	default:
		return
	}
	w.Mark()
}

func (w *RunTallyWatcher) Reset() {
	w.Tally.Reset()
	w.days, w.damage, w.defeated, w.captured = 0, 0, 0, 0
}

// DaysSurvived counts dawns reached this run.
func (w *RunTallyWatcher) DaysSurvived() int { return w.days }

func (w *RunTallyWatcher) DamageTaken() int { return w.damage }

// ThreatsRemoved counts threats and bosses defeated or captured.
func (w *RunTallyWatcher) ThreatsRemoved() int { return w.defeated + w.captured }

// RegisterDefaults adds the standard watchers to a registry.
func RegisterDefaults(registry *rules.WatcherRegistry) error {
	for _, w := range []rules.Watcher{
		NewDamageTakenWatcher(),
		NewThreatsDefeatedWatcher(),
		NewCapturesWatcher(),
		NewGoldFlowWatcher(),
		NewRunTallyWatcher(),
	} {
		if err := registry.Add(w); err != nil {
			return err
		}
	}
	return nil
}
