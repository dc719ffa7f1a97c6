package game

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/thraizz/wildwood-server-go/internal/game/cards"
	"github.com/thraizz/wildwood-server-go/internal/game/combat"
	"github.com/thraizz/wildwood-server-go/internal/game/counters"
	"github.com/thraizz/wildwood-server-go/internal/game/encounter"
	"github.com/thraizz/wildwood-server-go/internal/game/progression"
	"github.com/thraizz/wildwood-server-go/internal/game/rules"
	"github.com/thraizz/wildwood-server-go/internal/game/state"
	"github.com/thraizz/wildwood-server-go/internal/sensor"
)

// mutation is one in-flight change to a cloned state. It is committed as a
// whole or discarded as a whole.
type mutation struct {
	st        *state.GameState
	p         *state.Player
	cfg       Config
	catalog   *cards.Catalog
	rng       *rand.Rand
	pedometer sensor.Pedometer
	now       time.Time

	events  []rules.Event
	effects []SideEffect
	ended   bool // the run finished; remaining steps are skipped

	// catalog overlay as it was before this mutation first touched it
	overlay      []cards.Card
	overlaySaved bool
}

// saveOverlay remembers the catalog overlay so a discarded mutation can put
// it back.
func (m *mutation) saveOverlay() {
	if m.overlaySaved {
		return
	}
	m.overlay = m.catalog.Customs()
	m.overlaySaved = true
}

func (m *mutation) playerID() string {
	if m.p == nil {
		return ""
	}
	return m.p.ID
}

// emit records the event in the run statistics and queues it for the bus.
func (m *mutation) emit(evt rules.Event) {
	if evt.PlayerID == "" {
		evt.PlayerID = m.playerID()
	}
	evt.Timestamp = m.now
	if m.p != nil {
		counters.Record(m.p.RunStats, evt)
	}
	m.events = append(m.events, evt)
}

func (m *mutation) event(t rules.EventType, target, source string) {
	m.emit(rules.NewEvent(t, target, source, m.playerID()))
}

func (m *mutation) eventAmount(t rules.EventType, target, source string, amount int) {
	m.emit(rules.NewEventWithAmount(t, target, source, m.playerID(), amount))
}

func (m *mutation) sound(name string) {
	m.effects = append(m.effects, SideEffect{Kind: EffectSound, Sound: name})
}

func (m *mutation) animate(tag, target string, magnitude int) {
	m.effects = append(m.effects, SideEffect{Kind: EffectAnimation, Tag: tag, Target: target, Magnitude: magnitude})
}

func (m *mutation) banner(priority int, format string, args ...any) {
	m.effects = append(m.effects, SideEffect{Kind: EffectBanner, Text: fmt.Sprintf(format, args...), Priority: priority})
}

func (m *mutation) logf(format string, args ...any) {
	m.st.AddLog(state.LogInfo, fmt.Sprintf(format, args...), m.now)
}

// damage hurts the player and finishes the run when health reaches zero.
func (m *mutation) damage(amount int, source string) {
	if amount <= 0 || m.ended {
		return
	}
	before := m.p.Health
	health, defeated := combat.ApplyDamage(m.p.Health, amount)
	m.p.Health = health
	taken := before - health
	m.eventAmount(rules.EventPlayerDamaged, m.p.ID, source, taken)
	m.animate("damage", "player", taken)
	m.sound("hurt")
	m.logf("%s dealt %d damage.", source, taken)
	if defeated {
		m.defeat(source)
	}
}

func (m *mutation) defeat(cause string) {
	if m.ended {
		return
	}
	m.st.Victory = false
	m.st.WinReason = "defeat: " + cause
	m.st.IsBossFightActive = false
	m.finish()
	m.banner(PriorityHigh, "You did not survive. %s got the better of you.", cause)
	m.sound("defeat")
	m.logf("Defeated by %s on day %d.", cause, m.st.Turn)
}

func (m *mutation) finish() {
	// Actions and turns only run while playing, so the transition holds.
	if err := m.st.Transition(state.StatusFinished); err != nil {
		m.st.Status = state.StatusFinished
	}
	m.st.Phase = rules.PhaseDaylight
	m.ended = true
	m.emit(rules.NewEventWithFlag(rules.EventRunFinished, m.playerID(), "", m.playerID(), m.st.Victory))
}

// victory ends the run in the player's favour and grades objectives once.
func (m *mutation) victory(reason string) {
	if m.ended {
		return
	}
	m.st.Victory = true
	m.st.WinReason = reason
	m.st.IsBossFightActive = false
	m.gradeObjectives()

	prog := &m.st.Progress
	prog.Victories++
	if m.st.NGPlusLevel+1 > prog.BestLevel {
		prog.BestLevel = m.st.NGPlusLevel + 1
	}
	if m.st.AIBoss != nil {
		prog.RememberBoss(m.st.AIBoss.Name)
	}

	m.finish()
	m.banner(PriorityHigh, "Victory: %s", reason)
	m.sound("victory")
	m.logf("Victory on day %d: %s.", m.st.Turn, reason)
}

func (m *mutation) gradeObjectives() {
	if m.st.ObjectivesGraded {
		return
	}
	summary := progression.Grade(m.st.ActiveObjectives, m.st.FinalState())
	m.st.ObjectiveSummary = &summary
	m.st.ObjectivesGraded = true
	for _, r := range summary.Results {
		m.emit(rules.NewEventWithFlag(rules.EventObjectiveGraded, r.ID, "", m.playerID(), r.Completed))
	}
	if summary.BonusGold > 0 {
		m.gainGold(summary.BonusGold, "objectives")
	}
	m.logf("Objectives completed: %d of %d.", summary.Completed, summary.Total)
}

func (m *mutation) heal(amount int, source string) int {
	if amount <= 0 {
		return 0
	}
	before := m.p.Health
	m.p.Health = combat.ApplyHeal(m.p.Health, m.p.MaxHealth, amount)
	healed := m.p.Health - before
	if healed > 0 {
		m.eventAmount(rules.EventPlayerHealed, m.p.ID, source, healed)
		m.animate("heal", "player", healed)
	}
	return healed
}

func (m *mutation) gainGold(amount int, source string) {
	if amount <= 0 {
		return
	}
	m.p.Gold += amount
	m.eventAmount(rules.EventGoldGained, m.p.ID, source, amount)
	m.animate("gold", "player", amount)
}

// loseGold takes up to amount gold and returns what was taken.
func (m *mutation) loseGold(amount int, source string) int {
	if amount > m.p.Gold {
		amount = m.p.Gold
	}
	if amount <= 0 {
		return 0
	}
	m.p.Gold -= amount
	m.eventAmount(rules.EventGoldLost, m.p.ID, source, amount)
	return amount
}

// spend pays for a purchase. Purchases are not counted as gold lost.
func (m *mutation) spend(amount int) {
	m.p.Gold -= amount
	m.sound("coins")
}

// lowerMaxHealth reduces max health, clamps health and defeats at zero.
func (m *mutation) lowerMaxHealth(amount int, cause string) {
	if amount <= 0 || m.ended {
		return
	}
	m.p.MaxHealth -= amount
	if m.p.MaxHealth < 0 {
		m.p.MaxHealth = 0
	}
	if m.p.Health > m.p.MaxHealth {
		m.p.Health = m.p.MaxHealth
	}
	m.eventAmount(rules.EventMaxHealthChanged, m.p.ID, cause, -amount)
	if m.p.MaxHealth == 0 {
		m.p.Health = 0
		m.defeat(cause)
	}
}

// drawCard pops the top of the player deck, reshuffling the discard pile
// into it when empty.
func (m *mutation) drawCard() (cards.Card, bool) {
	if len(m.p.PlayerDeck) == 0 {
		if len(m.p.PlayerDiscard) == 0 {
			return cards.Card{}, false
		}
		m.p.PlayerDeck = m.p.PlayerDiscard
		m.p.PlayerDiscard = nil
		m.rng.Shuffle(len(m.p.PlayerDeck), func(i, j int) {
			m.p.PlayerDeck[i], m.p.PlayerDeck[j] = m.p.PlayerDeck[j], m.p.PlayerDeck[i]
		})
		m.eventAmount(rules.EventDeckReshuffled, m.p.ID, "", len(m.p.PlayerDeck))
	}
	c := m.p.PlayerDeck[0]
	m.p.PlayerDeck = m.p.PlayerDeck[1:]
	m.event(rules.EventCardDrawn, c.ID, "")
	return c, true
}

// drawInto draws up to n cards into hand holes. Cards that find no hole go
// to the discard pile.
func (m *mutation) drawInto(n int) int {
	drawn := 0
	for i := 0; i < n; i++ {
		c, ok := m.drawCard()
		if !ok {
			break
		}
		drawn++
		if hole := m.p.FirstHole(); hole >= 0 {
			m.p.Hand[hole] = c.Ptr()
			continue
		}
		m.discard(c)
	}
	return drawn
}

// fillHand draws until every hole is filled or both piles are empty.
func (m *mutation) fillHand() {
	for hole := m.p.FirstHole(); hole >= 0; hole = m.p.FirstHole() {
		c, ok := m.drawCard()
		if !ok {
			return
		}
		m.p.Hand[hole] = c.Ptr()
	}
}

// sortHand orders the hand by category and moves holes to the end.
func (m *mutation) sortHand() {
	held := make([]*cards.Card, 0, len(m.p.Hand))
	for _, c := range m.p.Hand {
		if c != nil {
			held = append(held, c)
		}
	}
	sort.SliceStable(held, func(i, j int) bool {
		return held[i].SortRank() < held[j].SortRank()
	})
	for i := range m.p.Hand {
		m.p.Hand[i] = nil
		if i < len(held) {
			m.p.Hand[i] = held[i]
		}
	}
}

func (m *mutation) discard(c cards.Card) {
	m.p.PlayerDiscard = append(m.p.PlayerDiscard, c)
	m.event(rules.EventCardDiscarded, c.ID, "")
}

// discardEquipped discards whatever sits in slot, including its satchel.
func (m *mutation) discardEquipped(slot int) {
	if slot < 0 || slot >= len(m.p.EquippedItems) {
		return
	}
	if c := m.p.EquippedItems[slot]; c != nil {
		m.discard(*c)
	}
	m.p.EquippedItems[slot] = nil
	for _, item := range m.p.Satchels[slot] {
		m.discard(item)
	}
	delete(m.p.Satchels, slot)
}

// addIllness contracts an illness, refreshing the duration of one already
// held.
func (m *mutation) addIllness(c cards.Card) {
	for i, ill := range m.p.CurrentIllnesses {
		if ill.Card.BaseID() == c.BaseID() {
			m.p.CurrentIllnesses[i].Remaining = c.Effect.Duration
			return
		}
	}
	m.p.CurrentIllnesses = append(m.p.CurrentIllnesses, state.Illness{Card: c.Clone(), Remaining: c.Effect.Duration})
	m.event(rules.EventIllnessContracted, c.ID, "")
	m.banner(PriorityNormal, "You have contracted %s.", c.Name)
	m.logf("Contracted %s.", c.Name)
}

func (m *mutation) hostile() bool {
	return encounter.IsHostile(m.st.ActiveEvent)
}

// hitThreat damages the active threat and returns true when it falls.
func (m *mutation) hitThreat(amount int, source string) bool {
	ev := m.st.ActiveEvent
	health, dead := combat.ApplyDamage(ev.Health, amount)
	ev.Health = health
	ev.AttackedThisTurn = true
	m.eventAmount(rules.EventThreatAttacked, ev.ID, source, amount)
	m.animate("hit", ev.ID, amount)
	m.logf("Hit %s for %d.", ev.Name, amount)
	if !dead {
		return false
	}

	if ev.IsBoss() {
		m.st.BossDefeated = true
		m.st.ActiveEvent = nil
		m.event(rules.EventBossDefeated, ev.ID, source)
		m.banner(PriorityHigh, "%s falls.", ev.Name)
		m.logf("%s is defeated.", ev.Name)
		return true
	}
	m.st.ActiveEvent = nil
	m.st.EventDiscardPile = append(m.st.EventDiscardPile, *ev)
	m.event(rules.EventThreatDefeated, ev.ID, source)
	m.gainGold(ev.SellValue, ev.ID)
	m.banner(PriorityNormal, "%s is defeated.", ev.Name)
	m.logf("%s is defeated.", ev.Name)
	return true
}

func (m *mutation) pacify(ev *cards.Card) {
	ev.IsPacified = true
	m.event(rules.EventThreatPacified, ev.ID, "")
	m.banner(PriorityNormal, "%s calms down.", ev.Name)
	m.logf("%s calms down.", ev.Name)
}
