package game

import (
	"strings"

	"github.com/thraizz/wildwood-server-go/internal/game/cards"
	"github.com/thraizz/wildwood-server-go/internal/game/combat"
	"github.com/thraizz/wildwood-server-go/internal/game/encounter"
	"github.com/thraizz/wildwood-server-go/internal/game/rules"
)

// resolve applies a daylight action to the working copy.
func (m *mutation) resolve(a Action) error {
	switch a.Type {
	case ActionEquip:
		return m.equip(a)
	case ActionDiscardEquipped:
		return m.discardEquippedAction(a)
	case ActionUseItem:
		return m.useItem(a)
	case ActionBuy:
		return m.buy(a)
	case ActionSell:
		return m.sell(a)
	case ActionRestock:
		return m.restock(a)
	case ActionStoreProvision:
		return m.storeProvision(a)
	case ActionRetrieveProvision:
		return m.retrieveProvision(a)
	case ActionInteract:
		return m.interact(a)
	case ActionTakeEventItem:
		return m.takeEventItem(a)
	case ActionWalk:
		return m.walk(a)
	default:
		return reject(a.Type, "unknown action")
	}
}

func (m *mutation) handCard(action ActionType, idx int) (*cards.Card, error) {
	if idx < 0 || idx >= len(m.p.Hand) {
		return nil, reject(action, "hand index %d out of range", idx)
	}
	c := m.p.Hand[idx]
	if c == nil {
		return nil, reject(action, "hand slot %d is empty", idx)
	}
	return c, nil
}

// consume moves a used hand card to the discard pile.
func (m *mutation) consume(idx int) {
	c := m.p.Hand[idx]
	m.p.Hand[idx] = nil
	m.event(rules.EventCardUsed, c.ID, "")
	m.p.PlayerDiscard = append(m.p.PlayerDiscard, *c)
}

func (m *mutation) equip(a Action) error {
	c, err := m.handCard(a.Type, a.HandIndex)
	if err != nil {
		return err
	}
	if !c.IsEquippable() {
		return reject(a.Type, "%s cannot be equipped", c.Name)
	}
	if m.p.EquipUsedToday {
		return reject(a.Type, "already equipped an item today")
	}
	slot := -1
	for i, e := range m.p.EquippedItems {
		if e == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return reject(a.Type, "no free equip slot")
	}

	m.p.Hand[a.HandIndex] = nil
	m.p.EquippedItems[slot] = c
	m.p.EquipUsedToday = true

	switch c.Effect.Kind {
	case cards.EffectUpgrade:
		if c.Effect.Slots > 0 {
			m.p.EquippedItems = append(m.p.EquippedItems, make([]*cards.Card, c.Effect.Slots)...)
		}
		if c.Effect.HandBonus > 0 {
			m.p.HandSize += c.Effect.HandBonus
			m.p.Hand = append(m.p.Hand, make([]*cards.Card, c.Effect.HandBonus)...)
		}
	case cards.EffectStorage:
		m.p.Satchels[slot] = []cards.Card{}
	}

	m.event(rules.EventCardEquipped, c.ID, "")
	m.sound("equip")
	m.animate("equip", c.ID, slot)
	m.logf("Equipped %s.", c.Name)
	return nil
}

func (m *mutation) discardEquippedAction(a Action) error {
	if a.Slot < 0 || a.Slot >= len(m.p.EquippedItems) {
		return reject(a.Type, "equip slot %d out of range", a.Slot)
	}
	c := m.p.EquippedItems[a.Slot]
	if c == nil {
		return reject(a.Type, "equip slot %d is empty", a.Slot)
	}
	removed := *c
	m.discardEquipped(a.Slot)

	if removed.Effect.Kind == cards.EffectUpgrade {
		m.shrinkSlots(removed.Effect.Slots)
		m.shrinkHand(removed.Effect.HandBonus)
	}
	m.sound("discard")
	m.logf("Discarded %s.", removed.Name)
	return nil
}

// shrinkSlots removes n equip slots from the end, discarding what they hold.
func (m *mutation) shrinkSlots(n int) {
	for i := 0; i < n && len(m.p.EquippedItems) > 0; i++ {
		last := len(m.p.EquippedItems) - 1
		m.discardEquipped(last)
		m.p.EquippedItems = m.p.EquippedItems[:last]
	}
}

// shrinkHand reduces hand capacity by n, discarding cards that no longer fit.
func (m *mutation) shrinkHand(n int) {
	if n <= 0 {
		return
	}
	size := m.p.HandSize - n
	if size < 1 {
		size = 1
	}
	held := m.p.HandCards()
	m.p.HandSize = size
	m.p.Hand = make([]*cards.Card, size)
	for i, c := range held {
		if i < size {
			m.p.Hand[i] = c.Ptr()
			continue
		}
		m.discard(c)
	}
}

func (m *mutation) useItem(a Action) error {
	c, err := m.handCard(a.Type, a.HandIndex)
	if err != nil {
		return err
	}
	idx := a.HandIndex

	switch c.Effect.Kind {
	case cards.EffectHeal:
		if m.p.Health >= m.p.MaxHealth {
			return reject(a.Type, "already at full health")
		}
		m.consume(idx)
		m.heal(c.Effect.Amount, c.ID)
		m.sound("eat")
	case cards.EffectGold:
		m.consume(idx)
		m.gainGold(c.Effect.Amount, c.ID)
		m.sound("coins")
	case cards.EffectDraw:
		m.consume(idx)
		m.drawInto(c.Effect.Amount)
		m.sound("draw")
	case cards.EffectScout:
		if len(m.st.EventDeck) == 0 {
			return reject(a.Type, "nothing left on the trail to scout")
		}
		m.consume(idx)
		m.scout(c.Effect.Amount)
	case cards.EffectCampfire:
		if m.st.CampfireActive {
			return reject(a.Type, "a campfire is already burning")
		}
		m.consume(idx)
		m.st.CampfireActive = true
		m.event(rules.EventCampfireLit, c.ID, "")
		m.sound("campfire")
		m.animate("campfire", "camp", 1)
		m.logf("Lit a campfire.")
	case cards.EffectCure:
		if len(m.p.CurrentIllnesses) == 0 {
			return reject(a.Type, "nothing to cure")
		}
		m.consume(idx)
		cured := m.p.CurrentIllnesses[0]
		m.p.CurrentIllnesses = append(m.p.CurrentIllnesses[:0:0], m.p.CurrentIllnesses[1:]...)
		m.event(rules.EventIllnessCured, cured.Card.ID, c.ID)
		m.logf("Cured %s.", cured.Card.Name)
	case cards.EffectTrap:
		if m.st.ArmedTrap != nil {
			return reject(a.Type, "%s is already set", m.st.ArmedTrap.Name)
		}
		m.p.Hand[idx] = nil
		m.st.ArmedTrap = c
		m.event(rules.EventTrapArmed, c.ID, "")
		m.sound("trap")
		m.logf("Set %s.", c.Name)
	case cards.EffectDamage:
		ev := m.st.ActiveEvent
		if ev == nil || !ev.IsThreat() || ev.IsPacified {
			return reject(a.Type, "no threat to target")
		}
		dmg := combat.BonusDamage(*c, m.p.EquippedItems, m.p.Hand)
		m.consume(idx)
		m.sound("attack")
		m.hitThreat(dmg, c.ID)
	case cards.EffectWeapon, cards.EffectAttackBonus, cards.EffectAttackMultiplier,
		cards.EffectUpgrade, cards.EffectPassive, cards.EffectStorage:
		return reject(a.Type, "%s is equipment, not a consumable", c.Name)
	case cards.EffectNone, cards.EffectDiscard, cards.EffectIllness, cards.EffectSteal,
		cards.EffectLoseTurn, cards.EffectObjective:
		return reject(a.Type, "%s cannot be used", c.Name)
	default:
		return reject(a.Type, "unknown effect %q", c.Effect.Kind)
	}
	return nil
}

// scout reveals the top of the event deck. A hostile card on top is moved
// to the bottom.
func (m *mutation) scout(n int) {
	if n <= 0 {
		n = 1
	}
	if n > len(m.st.EventDeck) {
		n = len(m.st.EventDeck)
	}
	names := make([]string, 0, n)
	for _, c := range m.st.EventDeck[:n] {
		names = append(names, c.Name)
	}
	m.banner(PriorityNormal, "Ahead on the trail: %s", strings.Join(names, ", "))
	m.logf("Scouted ahead: %s.", strings.Join(names, ", "))

	top := m.st.EventDeck[0]
	if len(m.st.EventDeck) > 1 && encounter.IsHostile(&top) {
		m.st.EventDeck = append(m.st.EventDeck[1:], top)
		m.logf("You steer around %s.", top.Name)
	}
}

func (m *mutation) buy(a Action) error {
	if m.hostile() {
		return reject(a.Type, "the store is closed while %s is here", m.st.ActiveEvent.Name)
	}
	if a.DisplayIndex < 0 || a.DisplayIndex >= len(m.st.StoreDisplayItems) {
		return reject(a.Type, "display index %d out of range", a.DisplayIndex)
	}
	c := m.st.StoreDisplayItems[a.DisplayIndex]
	if m.p.Gold < c.BuyCost {
		return reject(a.Type, "not enough gold (%d < %d)", m.p.Gold, c.BuyCost)
	}

	m.spend(c.BuyCost)
	m.p.PlayerDiscard = append(m.p.PlayerDiscard, c)
	m.eventAmount(rules.EventCardBought, c.ID, "store", c.BuyCost)
	if next, ok := m.drawStore(); ok {
		m.st.StoreDisplayItems[a.DisplayIndex] = next
	} else {
		m.st.StoreDisplayItems = append(m.st.StoreDisplayItems[:a.DisplayIndex:a.DisplayIndex],
			m.st.StoreDisplayItems[a.DisplayIndex+1:]...)
	}
	m.logf("Bought %s for %d gold.", c.Name, c.BuyCost)
	return nil
}

// drawStore pops the store deck, recycling the store discard pile when the
// deck runs out.
func (m *mutation) drawStore() (cards.Card, bool) {
	if len(m.st.StoreItemDeck) == 0 {
		if len(m.st.StoreItemDiscardPile) == 0 {
			return cards.Card{}, false
		}
		m.st.StoreItemDeck = m.st.StoreItemDiscardPile
		m.st.StoreItemDiscardPile = nil
		m.rng.Shuffle(len(m.st.StoreItemDeck), func(i, j int) {
			m.st.StoreItemDeck[i], m.st.StoreItemDeck[j] = m.st.StoreItemDeck[j], m.st.StoreItemDeck[i]
		})
	}
	c := m.st.StoreItemDeck[0]
	m.st.StoreItemDeck = m.st.StoreItemDeck[1:]
	return c, true
}

// fillDisplay tops the store display up to the configured width.
func (m *mutation) fillDisplay() {
	for len(m.st.StoreDisplayItems) < m.cfg.DisplaySize {
		c, ok := m.drawStore()
		if !ok {
			return
		}
		m.st.StoreDisplayItems = append(m.st.StoreDisplayItems, c)
	}
}

func (m *mutation) sell(a Action) error {
	if m.hostile() {
		return reject(a.Type, "the store is closed while %s is here", m.st.ActiveEvent.Name)
	}
	c, err := m.handCard(a.Type, a.HandIndex)
	if err != nil {
		return err
	}
	if c.SellValue <= 0 {
		return reject(a.Type, "%s is worthless", c.Name)
	}
	m.p.Hand[a.HandIndex] = nil
	if c.IsPurchasable() {
		m.st.StoreItemDiscardPile = append(m.st.StoreItemDiscardPile, *c)
	}
	m.eventAmount(rules.EventCardSold, c.ID, "store", c.SellValue)
	m.gainGold(c.SellValue, c.ID)
	m.sound("coins")
	m.logf("Sold %s for %d gold.", c.Name, c.SellValue)
	return nil
}

func (m *mutation) restock(a Action) error {
	if m.p.RestockUsedToday {
		return reject(a.Type, "already restocked today")
	}
	if m.hostile() {
		return reject(a.Type, "the store is closed while %s is here", m.st.ActiveEvent.Name)
	}
	if m.p.Gold < m.cfg.RestockCost {
		return reject(a.Type, "not enough gold (%d < %d)", m.p.Gold, m.cfg.RestockCost)
	}

	m.spend(m.cfg.RestockCost)
	m.p.RestockUsedToday = true
	m.st.StoreItemDiscardPile = append(m.st.StoreItemDiscardPile, m.st.StoreDisplayItems...)
	m.st.StoreDisplayItems = nil
	m.fillDisplay()
	m.eventAmount(rules.EventStoreRestock, "store", "", m.cfg.RestockCost)
	m.logf("Restocked the store for %d gold.", m.cfg.RestockCost)
	return nil
}

func (m *mutation) satchel(action ActionType, slot int) (*cards.Card, error) {
	if slot < 0 || slot >= len(m.p.EquippedItems) {
		return nil, reject(action, "equip slot %d out of range", slot)
	}
	holder := m.p.EquippedItems[slot]
	if holder == nil || holder.Effect.Kind != cards.EffectStorage {
		return nil, reject(action, "slot %d holds no storage", slot)
	}
	return holder, nil
}

func (m *mutation) storeProvision(a Action) error {
	c, err := m.handCard(a.Type, a.HandIndex)
	if err != nil {
		return err
	}
	if c.Type != cards.TypeProvision {
		return reject(a.Type, "only provisions fit in a satchel")
	}
	holder, err := m.satchel(a.Type, a.Slot)
	if err != nil {
		return err
	}
	if len(m.p.Satchels[a.Slot]) >= holder.Effect.Capacity {
		return reject(a.Type, "%s is full", holder.Name)
	}
	m.p.Hand[a.HandIndex] = nil
	m.p.Satchels[a.Slot] = append(m.p.Satchels[a.Slot], *c)
	m.event(rules.EventProvisionMove, c.ID, holder.ID)
	m.logf("Stored %s in %s.", c.Name, holder.Name)
	return nil
}

func (m *mutation) retrieveProvision(a Action) error {
	holder, err := m.satchel(a.Type, a.Slot)
	if err != nil {
		return err
	}
	items := m.p.Satchels[a.Slot]
	if a.Index < 0 || a.Index >= len(items) {
		return reject(a.Type, "%s has no item %d", holder.Name, a.Index)
	}
	hole := m.p.FirstHole()
	if hole < 0 {
		return reject(a.Type, "hand is full")
	}
	c := items[a.Index]
	m.p.Satchels[a.Slot] = append(items[:a.Index:a.Index], items[a.Index+1:]...)
	m.p.Hand[hole] = c.Ptr()
	m.event(rules.EventProvisionMove, c.ID, holder.ID)
	m.logf("Took %s from %s.", c.Name, holder.Name)
	return nil
}

func (m *mutation) interact(a Action) error {
	ev := m.st.ActiveEvent
	if ev == nil || !ev.IsThreat() {
		return reject(a.Type, "nothing to confront")
	}
	if ev.IsPacified {
		return reject(a.Type, "%s is already calm", ev.Name)
	}
	if m.p.MainActionUsed {
		return reject(a.Type, "already confronted a threat today")
	}

	switch a.Mode {
	case InteractAttack:
		var weapon *cards.Card
		if a.FromEquipped {
			if a.Slot < 0 || a.Slot >= len(m.p.EquippedItems) {
				return reject(a.Type, "equip slot %d out of range", a.Slot)
			}
			weapon = m.p.EquippedItems[a.Slot]
		} else {
			c, err := m.handCard(a.Type, a.HandIndex)
			if err != nil {
				return err
			}
			weapon = c
		}
		if weapon == nil || !weapon.IsWeapon() {
			return reject(a.Type, "no weapon selected")
		}
		power := combat.AttackPower(*weapon, m.p.EquippedItems, m.p.Hand)
		m.p.MainActionUsed = true
		m.sound("attack")
		if m.hitThreat(power, weapon.ID) {
			return nil
		}
		m.damage(ev.Damage, ev.Name)
	case InteractTalk:
		m.p.MainActionUsed = true
		if m.skillCheck(ev, m.character().TalkFailure(m.p.Personality)) {
			m.pacify(ev)
			if ev.IsBoss() {
				m.st.BossPacified = true
				m.st.CombatVictoryVoided = true
				m.event(rules.EventBossTalkedDown, ev.ID, "")
			}
			return nil
		}
		m.logf("%s will not listen.", ev.Name)
		if encounter.IsHostile(ev) {
			m.damage(ev.Damage, ev.Name)
		}
	case InteractPet:
		if !encounter.CanPet(ev) {
			return reject(a.Type, "%s will not be petted", ev.Name)
		}
		m.p.MainActionUsed = true
		if m.skillCheck(ev, m.character().PetFailure(m.p.Personality)) {
			m.pacify(ev)
			return nil
		}
		m.logf("%s lashes out.", ev.Name)
		m.damage(ev.Damage, ev.Name)
	default:
		return reject(a.Type, "unknown interaction %q", a.Mode)
	}
	return nil
}

// character returns the player's character, or a neutral one when the
// catalog no longer knows it.
func (m *mutation) character() cards.Character {
	if c, ok := m.catalog.Character(m.p.Character); ok {
		return c
	}
	return cards.Character{ID: m.p.Character, BaseTalk: 50, BasePet: 50}
}

func (m *mutation) skillCheck(ev *cards.Card, failure int) bool {
	ok, roll := encounter.SkillCheck(m.rng, failure)
	evt := rules.NewEventWithFlag(rules.EventSkillCheck, ev.ID, "", m.playerID(), ok)
	evt.Amount = roll
	m.emit(evt)
	m.animate("skill_check", ev.ID, roll)
	return ok
}

func (m *mutation) takeEventItem(a Action) error {
	ev := m.st.ActiveEvent
	if ev == nil || !ev.IsEventItem() {
		return reject(a.Type, "nothing to pick up")
	}
	dest := a.HandIndex
	if dest < 0 || dest >= len(m.p.Hand) || m.p.Hand[dest] != nil {
		dest = m.p.FirstHole()
	}
	if dest < 0 {
		return reject(a.Type, "hand is full")
	}
	m.p.Hand[dest] = ev
	m.st.ActiveEvent = nil
	m.event(rules.EventEventItemTaken, ev.ID, "")
	m.sound("pickup")
	m.logf("Picked up %s.", ev.Name)
	return nil
}

func (m *mutation) walk(a Action) error {
	if a.Steps <= 0 {
		return reject(a.Type, "no steps to count")
	}
	reward, banked := m.pedometer.Convert(m.p.StepsBanked, a.Steps)
	m.p.StepsBanked = banked
	m.eventAmount(rules.EventStepsWalked, m.p.ID, "pedometer", a.Steps)
	m.gainGold(reward.Gold, "walking")
	m.heal(reward.Health, "walking")
	m.drawInto(reward.Draws)
	if !reward.IsZero() {
		m.banner(PriorityLow, "Walking earned %d gold, %d health and %d cards.", reward.Gold, reward.Health, reward.Draws)
	}
	return nil
}
