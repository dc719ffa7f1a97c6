package rules

import (
	"sync"
	"time"
)

// EventType indicates the category of a rules event.
type EventType string

const (
	// Day cycle events
	EventPhaseChanged EventType = "PHASE_CHANGED"
	EventDayStarted   EventType = "DAY_STARTED"
	EventTurnLost     EventType = "TURN_LOST"

	// Encounter events
	EventEventRevealed   EventType = "EVENT_REVEALED"
	EventBossRevealed    EventType = "BOSS_REVEALED"
	EventThreatAttacked  EventType = "THREAT_ATTACKED"
	EventThreatDefeated  EventType = "THREAT_DEFEATED"
	EventThreatFled      EventType = "THREAT_FLED"
	EventThreatCaptured  EventType = "THREAT_CAPTURED"
	EventThreatPacified  EventType = "THREAT_PACIFIED"
	EventNightAttack     EventType = "NIGHT_ATTACK"
	EventAttackDeterred  EventType = "ATTACK_DETERRED"
	EventEventExpired    EventType = "EVENT_EXPIRED"
	EventSkillCheck      EventType = "SKILL_CHECK"
	EventTrapArmed       EventType = "TRAP_ARMED"
	EventCampfireLit     EventType = "CAMPFIRE_LIT"
	EventBossDefeated    EventType = "BOSS_DEFEATED"
	EventBossTalkedDown  EventType = "BOSS_TALKED_DOWN"
	EventEventItemTaken  EventType = "EVENT_ITEM_TAKEN"
	EventItemReturned    EventType = "ITEM_RETURNED"
	EventValuableDropped EventType = "VALUABLE_DROPPED"

	// Player events
	EventPlayerDamaged     EventType = "PLAYER_DAMAGED"
	EventPlayerHealed      EventType = "PLAYER_HEALED"
	EventMaxHealthChanged  EventType = "MAX_HEALTH_CHANGED"
	EventGoldGained        EventType = "GOLD_GAINED"
	EventGoldLost          EventType = "GOLD_LOST"
	EventIllnessContracted EventType = "ILLNESS_CONTRACTED"
	EventIllnessCured      EventType = "ILLNESS_CURED"
	EventIllnessEnded      EventType = "ILLNESS_ENDED"
	EventCardDrawn         EventType = "CARD_DRAWN"
	EventCardDiscarded     EventType = "CARD_DISCARDED"
	EventCardEquipped      EventType = "CARD_EQUIPPED"
	EventCardUsed          EventType = "CARD_USED"
	EventDeckReshuffled    EventType = "DECK_RESHUFFLED"
	EventStepsWalked       EventType = "STEPS_WALKED"

	// Store events
	EventCardBought    EventType = "CARD_BOUGHT"
	EventCardSold      EventType = "CARD_SOLD"
	EventStoreRestock  EventType = "STORE_RESTOCKED"
	EventProvisionMove EventType = "PROVISION_MOVED"

	// Run events
	EventRunStarted      EventType = "RUN_STARTED"
	EventRunFinished     EventType = "RUN_FINISHED"
	EventObjectiveGraded EventType = "OBJECTIVE_GRADED"
	EventLevelAdvanced   EventType = "LEVEL_ADVANCED"
	EventRewardChosen    EventType = "REWARD_CHOSEN"
)

// Event represents a state change that other subsystems may react to.
type Event struct {
	Type        EventType
	ID          string            // Unique event ID
	TargetID    string            // ID of the target (card, player, etc.)
	SourceID    string            // ID of the source card
	PlayerID    string            // Player the event concerns
	Amount      int               // Numeric value (damage, gold, steps, etc.)
	Flag        bool              // Boolean flag (success, boss, etc.)
	Data        string            // Additional string data
	Turn        int               // Day the event happened on
	Timestamp   time.Time         // When the event occurred
	Metadata    map[string]string // Additional metadata
	Description string            // Human-readable description
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

// TypedListener defines a callback that reacts to a specific event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus provides a synchronous publish/subscribe implementation with type filtering.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener              // All listeners
	typedListeners map[EventType][]TypedListener // Listeners filtered by event type
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle,
// whether it was registered with Subscribe or SubscribeTyped.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
// Listeners must not publish on the same bus.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	for _, listener := range bus.listeners {
		listener(event)
	}
	for _, listener := range bus.typedListeners[event.Type] {
		listener.Callback(event)
	}
}

// PublishBatch publishes events in order.
func (bus *EventBus) PublishBatch(events []Event) {
	for _, event := range events {
		bus.Publish(event)
	}
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, targetID, sourceID, playerID string) Event {
	return Event{
		Type:      eventType,
		TargetID:  targetID,
		SourceID:  sourceID,
		PlayerID:  playerID,
		Timestamp: time.Now(),
		Metadata:  make(map[string]string),
	}
}

// NewEventWithAmount creates a new event with an amount value.
func NewEventWithAmount(eventType EventType, targetID, sourceID, playerID string, amount int) Event {
	evt := NewEvent(eventType, targetID, sourceID, playerID)
	evt.Amount = amount
	return evt
}

// NewEventWithFlag creates a new event with a flag value.
func NewEventWithFlag(eventType EventType, targetID, sourceID, playerID string, flag bool) Event {
	evt := NewEvent(eventType, targetID, sourceID, playerID)
	evt.Flag = flag
	return evt
}
