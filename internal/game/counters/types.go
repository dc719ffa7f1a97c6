package counters

// Stat names a run statistic.
type Stat string

const (
	StatDaysSurvived    Stat = "days_survived"
	StatDamageTaken     Stat = "damage_taken"
	StatHealthRestored  Stat = "health_restored"
	StatThreatsAttacked Stat = "threats_attacked"
	StatThreatsDefeated Stat = "threats_defeated"
	StatThreatsFled     Stat = "threats_fled"
	StatThreatsPacified Stat = "threats_pacified"
	StatCaptures        Stat = "captures"
	StatNightAttacks    Stat = "night_attacks"
	StatGoldEarned      Stat = "gold_earned"
	StatGoldLost        Stat = "gold_lost"
	StatItemsBought     Stat = "items_bought"
	StatItemsSold       Stat = "items_sold"
	StatIllnesses       Stat = "illnesses"
	StatSkillChecks     Stat = "skill_checks"
	StatSkillSuccesses  Stat = "skill_successes"
	StatStepsWalked     Stat = "steps_walked"
	StatCardsDrawn      Stat = "cards_drawn"
)

// AllStats lists every statistic in display order.
var AllStats = []Stat{
	StatDaysSurvived,
	StatDamageTaken,
	StatHealthRestored,
	StatThreatsAttacked,
	StatThreatsDefeated,
	StatThreatsFled,
	StatThreatsPacified,
	StatCaptures,
	StatNightAttacks,
	StatGoldEarned,
	StatGoldLost,
	StatItemsBought,
	StatItemsSold,
	StatIllnesses,
	StatSkillChecks,
	StatSkillSuccesses,
	StatStepsWalked,
	StatCardsDrawn,
}
