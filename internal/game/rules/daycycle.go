package rules

import (
	"fmt"
	"strings"
)

// Phase is one of the three broad parts of a day.
type Phase int

const (
	PhaseDaylight Phase = iota
	PhaseDusk
	PhaseDawn
)

var phaseNames = map[Phase]string{
	PhaseDaylight: "daylight",
	PhaseDusk:     "dusk",
	PhaseDawn:     "dawn",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase_%d", int(p))
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name; unknown names map to daylight.
func (p *Phase) UnmarshalText(b []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(b)))
	for phase, n := range phaseNames {
		if n == name {
			*p = phase
			return nil
		}
	}
	*p = PhaseDaylight
	return nil
}

// Step is an individual stage of the day. Daylight has a single open step
// where actions are accepted; Dusk and Dawn are resolved in strict order.
type Step int

const (
	StepActions Step = iota
	StepWinCheck
	StepNightAttack
	StepDiscardHand
	StepCampfire
	StepIllness
	StepLingering
	StepDrawEvent
	StepPassives
	StepRefill
)

var stepNames = map[Step]string{
	StepActions:     "ACTIONS",
	StepWinCheck:    "WIN_CHECK",
	StepNightAttack: "NIGHT_ATTACK",
	StepDiscardHand: "DISCARD_HAND",
	StepCampfire:    "CAMPFIRE",
	StepIllness:     "ILLNESS",
	StepLingering:   "LINGERING",
	StepDrawEvent:   "DRAW_EVENT",
	StepPassives:    "PASSIVES",
	StepRefill:      "REFILL",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STEP_%d", int(s))
}

type dayEntry struct {
	phase Phase
	step  Step
}

// daySequence is the fixed order of a day.
var daySequence = []dayEntry{
	{PhaseDaylight, StepActions},
	{PhaseDusk, StepWinCheck},
	{PhaseDusk, StepNightAttack},
	{PhaseDusk, StepDiscardHand},
	{PhaseDusk, StepCampfire},
	{PhaseDusk, StepIllness},
	{PhaseDusk, StepLingering},
	{PhaseDawn, StepDrawEvent},
	{PhaseDawn, StepPassives},
	{PhaseDawn, StepRefill},
}

// DayCycle tracks the current step and day number. The day number
// advances exactly once per cycle, on entering the Dawn event draw.
type DayCycle struct {
	orderIndex int
	day        int
}

// NewDayCycle creates a cycle positioned at Daylight of the given day.
func NewDayCycle(day int) *DayCycle {
	if day < 1 {
		day = 1
	}
	return &DayCycle{day: day}
}

// CurrentPhase returns the phase currently in progress.
func (dc *DayCycle) CurrentPhase() Phase {
	return daySequence[dc.orderIndex].phase
}

// CurrentStep returns the step currently in progress.
func (dc *DayCycle) CurrentStep() Step {
	return daySequence[dc.orderIndex].step
}

// Day returns the current day number (1-based).
func (dc *DayCycle) Day() int {
	return dc.day
}

// AdvanceStep moves to the next step, wrapping from Refill back to
// Daylight actions.
func (dc *DayCycle) AdvanceStep() (Phase, Step) {
	dc.orderIndex++
	if dc.orderIndex >= len(daySequence) {
		dc.orderIndex = 0
	}
	if dc.CurrentStep() == StepDrawEvent {
		dc.day++
	}
	return dc.CurrentPhase(), dc.CurrentStep()
}

// Reopen jumps straight back to Daylight without advancing the day. Used
// when night resolution ends the run early.
func (dc *DayCycle) Reopen() {
	dc.orderIndex = 0
}

// NightSteps returns the ordered steps resolved between Daylight and the
// next Daylight.
func NightSteps() []Step {
	steps := make([]Step, 0, len(daySequence)-1)
	for _, entry := range daySequence[1:] {
		steps = append(steps, entry.step)
	}
	return steps
}
