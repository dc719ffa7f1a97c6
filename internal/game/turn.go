package game

import (
	"github.com/thraizz/wildwood-server-go/internal/content"
	"github.com/thraizz/wildwood-server-go/internal/game/cards"
	"github.com/thraizz/wildwood-server-go/internal/game/encounter"
	"github.com/thraizz/wildwood-server-go/internal/game/rules"
	"github.com/thraizz/wildwood-server-go/internal/game/watchers"
)

// MaxPasses bounds the night resolutions of one EndDay when forced effects
// keep costing the player their day.
const MaxPasses = 3

// TurnReport summarises an EndDay call.
type TurnReport struct {
	StartTurn       int          `json:"startTurn"`
	Turn            int          `json:"turn"`
	Passes          int          `json:"passes"`
	Finished        bool         `json:"finished"`
	Victory         bool         `json:"victory"`
	WinReason       string       `json:"winReason,omitempty"`
	DamageTaken     int          `json:"damageTaken"`
	ThreatsDefeated int          `json:"threatsDefeated"`
	Captured        []string     `json:"captured,omitempty"`
	GoldGained      int          `json:"goldGained"`
	GoldLost        int          `json:"goldLost"`
	RunDays         int          `json:"runDays"`
	RunDamageTaken  int          `json:"runDamageTaken"`
	RunThreats      int          `json:"runThreatsRemoved"`
	Effects         []SideEffect `json:"effects,omitempty"`
}

// endDay runs night passes until the day is not lost or the run ends.
func (m *mutation) endDay() int {
	passes := 0
	for {
		passes++
		m.runPass()
		if m.ended || !m.st.TurnLost || passes >= MaxPasses {
			break
		}
		m.st.TurnLost = false
		m.event(rules.EventTurnLost, "", "")
		m.banner(PriorityNormal, "The day is lost.")
		m.logf("The day is lost.")
	}
	m.st.TurnLost = false
	m.st.Phase = rules.PhaseDaylight
	return passes
}

// runPass walks one Dusk to Daylight cycle.
func (m *mutation) runPass() {
	cycle := rules.NewDayCycle(m.st.Turn)
	for {
		phase, step := cycle.AdvanceStep()
		m.st.Phase = phase
		if step == rules.StepActions {
			return
		}
		switch step {
		case rules.StepWinCheck:
			m.winCheck()
		case rules.StepNightAttack:
			m.nightAttack()
		case rules.StepDiscardHand:
			m.discardHand()
		case rules.StepCampfire:
			m.campfireOrIllness()
		case rules.StepIllness:
			m.tickIllnesses()
		case rules.StepLingering:
			m.linger()
		case rules.StepDrawEvent:
			m.dawn(cycle.Day())
		case rules.StepPassives:
			m.passives()
		case rules.StepRefill:
			m.refill()
		}
		if m.ended {
			cycle.Reopen()
			return
		}
	}
}

func (m *mutation) bossName() string {
	if m.st.AIBoss != nil && m.st.AIBoss.Name != "" {
		return m.st.AIBoss.Name
	}
	return "the boss"
}

func (m *mutation) winCheck() {
	switch {
	case m.st.BossPacified:
		m.victory(m.bossName() + " was talked down")
	case m.st.BossCaptured:
		m.victory(m.bossName() + " was captured")
	case m.st.BossDefeated:
		m.victory(m.bossName() + " was defeated")
	}
}

func (m *mutation) nightAttack() {
	ev := m.st.ActiveEvent
	out := encounter.ResolveNight(ev, m.st.CampfireActive)
	switch out.Kind {
	case encounter.NightNone:
		return
	case encounter.NightPacifiedLeft:
		m.event(rules.EventEventExpired, ev.ID, "")
		m.logf("%s wanders off peacefully.", ev.Name)
	case encounter.NightDeterred:
		m.event(rules.EventAttackDeterred, ev.ID, "campfire")
		m.logf("The campfire keeps %s away.", ev.Name)
	case encounter.NightAttack:
		m.eventAmount(rules.EventNightAttack, m.p.ID, ev.ID, out.Damage)
		m.animate("night_attack", "player", out.Damage+out.Steal)
		if out.Steal > 0 {
			if taken := m.loseGold(out.Steal, ev.ID); taken > 0 {
				m.banner(PriorityNormal, "%s stole %d gold in the night.", ev.Name, taken)
				m.logf("%s stole %d gold.", ev.Name, taken)
			}
		}
		m.damage(out.Damage, ev.Name)
		if out.Illness != "" && !m.ended {
			m.addIllness(m.illness(out.Illness))
		}
	}
	m.st.ActiveEvent = nil
	if !ev.IsBoss() {
		m.st.EventDiscardPile = append(m.st.EventDiscardPile, *ev)
	}
}

// illness looks up an illness card, synthesising one for unknown ids.
func (m *mutation) illness(id string) cards.Card {
	if c, ok := m.catalog.Lookup(id); ok {
		return c
	}
	return cards.Card{
		ID:      id,
		Name:    id,
		Type:    cards.TypeEvent,
		SubType: cards.SubTypeIllness,
		Effect:  cards.Effect{Kind: cards.EffectIllness, Duration: 2},
	}
}

func (m *mutation) discardHand() {
	for i, c := range m.p.Hand {
		if c == nil {
			continue
		}
		m.p.PlayerDiscard = append(m.p.PlayerDiscard, *c)
		m.p.Hand[i] = nil
	}
	m.p.ResetDaily()
}

func (m *mutation) campfireOrIllness() {
	if m.st.CampfireActive {
		m.st.CampfireActive = false
		m.st.CampfireShielded = true
		m.logf("The campfire burns down to embers.")
		return
	}
	m.st.CampfireShielded = false

	distinct := make(map[string]bool, len(m.p.CurrentIllnesses))
	for _, ill := range m.p.CurrentIllnesses {
		distinct[ill.Card.BaseID()] = true
	}
	if len(distinct) == 0 {
		return
	}
	m.lowerMaxHealth(len(distinct), "illness")
	if !m.ended {
		m.logf("Illness saps %d max health.", len(distinct))
	}
}

// tickIllnesses counts down temporary illnesses. Remaining 0 is persistent.
func (m *mutation) tickIllnesses() {
	kept := m.p.CurrentIllnesses[:0:0]
	for _, ill := range m.p.CurrentIllnesses {
		if ill.Remaining == 0 {
			kept = append(kept, ill)
			continue
		}
		ill.Remaining--
		if ill.Remaining <= 0 {
			m.event(rules.EventIllnessEnded, ill.Card.ID, "")
			m.logf("%s has passed.", ill.Card.Name)
			continue
		}
		kept = append(kept, ill)
	}
	m.p.CurrentIllnesses = kept
}

func (m *mutation) linger() {
	ev := m.st.ActiveEvent
	if ev == nil {
		return
	}
	switch encounter.ResolveLingering(ev) {
	case encounter.LingerStay:
		ev.AttackedThisTurn = false
		return
	case encounter.LingerFlee:
		m.event(rules.EventThreatFled, ev.ID, "")
		m.logf("%s slinks away.", ev.Name)
		m.st.EventDiscardPile = append(m.st.EventDiscardPile, *ev)
	case encounter.LingerExpire:
		m.event(rules.EventEventExpired, ev.ID, "")
		m.st.EventDiscardPile = append(m.st.EventDiscardPile, *ev)
	case encounter.LingerReturnToWorld:
		m.event(rules.EventItemReturned, ev.ID, "")
		m.logf("%s is left behind on the trail.", ev.Name)
		m.st.EventDeck = append(m.st.EventDeck, *ev)
	case encounter.LingerDiscardValuable:
		m.event(rules.EventValuableDropped, ev.ID, "")
		m.logf("%s is lost for good.", ev.Name)
	}
	m.st.ActiveEvent = nil
}

// dawn starts the new day and draws its event.
func (m *mutation) dawn(day int) {
	m.st.Turn = day
	m.eventAmount(rules.EventDayStarted, "", "", day)
	m.banner(PriorityLow, "Day %d", day)

	switch {
	case m.st.ActiveEvent != nil:
		m.logf("%s is still here.", m.st.ActiveEvent.Name)
		return
	case m.st.CampfireShielded:
		m.logf("A quiet morning by the ashes of the fire.")
		return
	case m.st.IsBossFightActive:
		return
	}
	m.drawEvent()
}

// drawEvent reveals the next event, or the boss when it is due.
func (m *mutation) drawEvent() {
	if encounter.ShouldForceBoss(len(m.st.EventDeck), m.st.Turn, m.cfg.MaxDays, m.st.DeckExhausted) {
		m.revealBoss()
		return
	}
	c := m.st.EventDeck[0]
	m.st.EventDeck = m.st.EventDeck[1:]
	if len(m.st.EventDeck) == 0 {
		m.st.DeckExhausted = true
	}
	m.reveal(c)
}

func (m *mutation) revealBoss() {
	if m.st.AIBoss == nil {
		m.st.AIBoss = content.DefaultBoss().Ptr()
	}
	boss := m.st.AIBoss.Clone()
	m.st.IsBossFightActive = true
	m.event(rules.EventBossRevealed, boss.ID, "")
	if encounter.TrapCaptures(m.st.ArmedTrap, &boss) {
		m.capture(boss)
		return
	}
	m.st.ActiveEvent = &boss
	m.banner(PriorityHigh, "%s blocks the trail.", boss.Name)
	m.sound("boss")
	m.logf("%s blocks the trail.", boss.Name)
}

// reveal makes c the active event and applies its immediate effect.
func (m *mutation) reveal(c cards.Card) {
	if c.IsThreat() && encounter.TrapCaptures(m.st.ArmedTrap, &c) {
		m.capture(c)
		return
	}
	m.st.ActiveEvent = c.Ptr()
	m.event(rules.EventEventRevealed, c.ID, "")
	m.animate("reveal", c.ID, 0)
	m.logf("Revealed %s.", c.Name)

	switch {
	case c.SubType == cards.SubTypeIllness:
		m.st.ActiveEvent = nil
		m.st.EventDiscardPile = append(m.st.EventDiscardPile, c)
		m.addIllness(c)
	case c.SubType == cards.SubTypeEnvironmental:
		switch c.Effect.Kind {
		case cards.EffectDamage:
			m.damage(c.Effect.Amount, c.Name)
		case cards.EffectDiscard:
			m.st.PendingDiscard += c.Effect.Amount
		case cards.EffectLoseTurn:
			m.st.TurnLost = true
		case cards.EffectHeal:
			m.heal(c.Effect.Amount, c.ID)
		}
	case encounter.IsHostile(&c):
		m.banner(PriorityNormal, "%s appears.", c.Name)
	}
}

// capture springs the armed trap on a threat or the boss.
func (m *mutation) capture(threat cards.Card) {
	trap := m.st.ArmedTrap
	m.st.ArmedTrap = nil
	m.p.PlayerDiscard = append(m.p.PlayerDiscard, *trap)
	m.event(rules.EventThreatCaptured, threat.ID, trap.ID)
	m.sound("trap")
	m.banner(PriorityHigh, "%s caught %s.", trap.Name, threat.Name)
	m.logf("%s caught %s.", trap.Name, threat.Name)
	if threat.IsBoss() {
		m.st.BossCaptured = true
		return
	}
	m.st.EventDiscardPile = append(m.st.EventDiscardPile, threat)
	m.gainGold(threat.SellValue, threat.ID)
}

func (m *mutation) passives() {
	if m.ended || m.p.Health <= 0 {
		return
	}
	for _, e := range m.p.EquippedItems {
		if e == nil || e.Effect.Kind != cards.EffectPassive {
			continue
		}
		m.heal(e.Effect.Regen, e.ID)
		m.gainGold(e.Effect.Income, e.ID)
	}
}

func (m *mutation) refill() {
	m.fillHand()
	if n := m.st.PendingDiscard; n > 0 {
		m.st.PendingDiscard = 0
		for i := 0; i < n; i++ {
			var held []int
			for idx, c := range m.p.Hand {
				if c != nil {
					held = append(held, idx)
				}
			}
			if len(held) == 0 {
				break
			}
			idx := held[m.rng.Intn(len(held))]
			c := m.p.Hand[idx]
			m.p.Hand[idx] = nil
			m.discard(*c)
			m.logf("Lost %s.", c.Name)
		}
	}
	m.sortHand()
}

// report fills the watcher-derived totals of a turn report.
func report(r *TurnReport, registry *rules.WatcherRegistry, playerID string) {
	if w, ok := registry.Get(watchers.KeyDamageTaken).(*watchers.DamageTakenWatcher); ok {
		r.DamageTaken = w.Amount(playerID)
	}
	if w, ok := registry.Get(watchers.KeyThreatsDefeated).(*watchers.ThreatsDefeatedWatcher); ok {
		r.ThreatsDefeated = w.Count()
	}
	if w, ok := registry.Get(watchers.KeyCaptures).(*watchers.CapturesWatcher); ok {
		r.Captured = w.Captured()
	}
	if w, ok := registry.Get(watchers.KeyGoldFlow).(*watchers.GoldFlowWatcher); ok {
		r.GoldGained = w.Gained()
		r.GoldLost = w.Lost()
	}
	if w, ok := registry.Get(watchers.KeyRunTally).(*watchers.RunTallyWatcher); ok {
		r.RunDays = w.DaysSurvived()
		r.RunDamageTaken = w.DamageTaken()
		r.RunThreats = w.ThreatsRemoved()
	}
}
