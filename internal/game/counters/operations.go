package counters

import (
	"github.com/thraizz/wildwood-server-go/internal/game/rules"
)

// Record folds a rules event into the run statistics.
func Record(cs *Counters, event rules.Event) {
	if cs == nil {
		return
	}
	switch event.Type {
	case rules.EventDayStarted:
		cs.Add(StatDaysSurvived, 1)
	case rules.EventPlayerDamaged:
		cs.Add(StatDamageTaken, event.Amount)
	case rules.EventPlayerHealed:
		cs.Add(StatHealthRestored, event.Amount)
	case rules.EventThreatAttacked:
		cs.Add(StatThreatsAttacked, 1)
	case rules.EventThreatDefeated:
		cs.Add(StatThreatsDefeated, 1)
	case rules.EventThreatFled:
		cs.Add(StatThreatsFled, 1)
	case rules.EventThreatPacified:
		cs.Add(StatThreatsPacified, 1)
	case rules.EventThreatCaptured:
		cs.Add(StatCaptures, 1)
	case rules.EventNightAttack:
		cs.Add(StatNightAttacks, 1)
	case rules.EventGoldGained:
		cs.Add(StatGoldEarned, event.Amount)
	case rules.EventGoldLost:
		cs.Add(StatGoldLost, event.Amount)
	case rules.EventCardBought:
		cs.Add(StatItemsBought, 1)
	case rules.EventCardSold:
		cs.Add(StatItemsSold, 1)
	case rules.EventIllnessContracted:
		cs.Add(StatIllnesses, 1)
	case rules.EventSkillCheck:
		cs.Add(StatSkillChecks, 1)
		if event.Flag {
			cs.Add(StatSkillSuccesses, 1)
		}
	case rules.EventStepsWalked:
		cs.Add(StatStepsWalked, event.Amount)
	case rules.EventCardDrawn:
		cs.Add(StatCardsDrawn, 1)
	}
}

// RecordAll folds events into the statistics in order.
func RecordAll(cs *Counters, events []rules.Event) {
	for _, event := range events {
		Record(cs, event)
	}
}
