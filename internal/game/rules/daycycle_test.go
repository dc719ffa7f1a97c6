package rules

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayCycleSequence(t *testing.T) {
	dc := NewDayCycle(1)

	expected := []struct {
		phase Phase
		step  Step
		day   int
	}{
		{PhaseDaylight, StepActions, 1},
		{PhaseDusk, StepWinCheck, 1},
		{PhaseDusk, StepNightAttack, 1},
		{PhaseDusk, StepDiscardHand, 1},
		{PhaseDusk, StepCampfire, 1},
		{PhaseDusk, StepIllness, 1},
		{PhaseDusk, StepLingering, 1},
		{PhaseDawn, StepDrawEvent, 2},
		{PhaseDawn, StepPassives, 2},
		{PhaseDawn, StepRefill, 2},
		{PhaseDaylight, StepActions, 2},
	}

	for i, exp := range expected {
		require.Equal(t, exp.phase, dc.CurrentPhase(), "entry %d", i)
		require.Equal(t, exp.step, dc.CurrentStep(), "entry %d", i)
		require.Equal(t, exp.day, dc.Day(), "entry %d", i)
		if i < len(expected)-1 {
			dc.AdvanceStep()
		}
	}
}

func TestDayCycleDayAdvancesOncePerCycle(t *testing.T) {
	dc := NewDayCycle(4)
	for cycle := 0; cycle < 3; cycle++ {
		for range NightSteps() {
			dc.AdvanceStep()
		}
		phase, step := dc.AdvanceStep()
		assert.Equal(t, PhaseDaylight, phase)
		assert.Equal(t, StepActions, step)
		assert.Equal(t, 5+cycle, dc.Day())
	}
}

func TestDayCycleReopen(t *testing.T) {
	dc := NewDayCycle(2)
	dc.AdvanceStep()
	dc.AdvanceStep()
	dc.Reopen()
	assert.Equal(t, StepActions, dc.CurrentStep())
	assert.Equal(t, 2, dc.Day())
}

func TestPhaseText(t *testing.T) {
	b, err := json.Marshal(PhaseDusk)
	require.NoError(t, err)
	assert.Equal(t, `"dusk"`, string(b))

	var p Phase
	require.NoError(t, json.Unmarshal([]byte(`"dawn"`), &p))
	assert.Equal(t, PhaseDawn, p)
	require.NoError(t, json.Unmarshal([]byte(`"midnight"`), &p))
	assert.Equal(t, PhaseDaylight, p)
}
