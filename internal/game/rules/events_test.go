package rules

import (
	"testing"
	"time"
)

func TestEventBusSubscribeTyped(t *testing.T) {
	bus := NewEventBus()

	defeatedCount := 0
	healedCount := 0

	handle1 := bus.SubscribeTyped(EventThreatDefeated, func(e Event) {
		defeatedCount++
	})
	handle2 := bus.SubscribeTyped(EventPlayerHealed, func(e Event) {
		healedCount++
	})

	bus.Publish(NewEvent(EventThreatDefeated, "wolf", "hatchet", "player"))
	if defeatedCount != 1 {
		t.Fatalf("expected defeated count 1, got %d", defeatedCount)
	}
	if healedCount != 0 {
		t.Fatalf("expected healed count 0, got %d", healedCount)
	}

	bus.Publish(NewEventWithAmount(EventPlayerHealed, "player", "jerky", "player", 3))
	if healedCount != 1 {
		t.Fatalf("expected healed count 1, got %d", healedCount)
	}

	bus.Unsubscribe(handle1)
	bus.Publish(NewEvent(EventThreatDefeated, "fox", "hatchet", "player"))
	if defeatedCount != 1 {
		t.Fatalf("expected defeated count still 1 after unsubscribe, got %d", defeatedCount)
	}

	bus.Unsubscribe(handle2)
	bus.Publish(NewEventWithAmount(EventPlayerHealed, "player", "jerky", "player", 2))
	if healedCount != 1 {
		t.Fatalf("expected healed count still 1 after unsubscribe, got %d", healedCount)
	}
}

func TestEventBusSubscribeAll(t *testing.T) {
	bus := NewEventBus()

	allEventCount := 0
	handle := bus.Subscribe(func(e Event) {
		allEventCount++
	})

	bus.Publish(NewEvent(EventCardBought, "hatchet", "store", "player"))
	bus.Publish(NewEvent(EventPlayerHealed, "player", "jerky", "player"))
	bus.Publish(NewEvent(EventDayStarted, "", "", "player"))

	if allEventCount != 3 {
		t.Fatalf("expected all event count 3, got %d", allEventCount)
	}

	bus.Unsubscribe(handle)
	bus.Publish(NewEvent(EventCardBought, "quiver", "store", "player"))
	if allEventCount != 3 {
		t.Fatalf("expected all event count still 3 after unsubscribe, got %d", allEventCount)
	}

	if bus.Subscribe(nil) != -1 {
		t.Fatal("nil listener should not be registered")
	}
}

func TestEventBusPublishBatchKeepsOrder(t *testing.T) {
	bus := NewEventBus()

	var seen []EventType
	bus.Subscribe(func(e Event) {
		seen = append(seen, e.Type)
	})

	bus.PublishBatch([]Event{
		NewEvent(EventNightAttack, "rattlesnake", "rattlesnake", "player"),
		NewEventWithAmount(EventPlayerDamaged, "player", "rattlesnake", "player", 2),
		NewEvent(EventDayStarted, "", "", "player"),
	})

	want := []EventType{EventNightAttack, EventPlayerDamaged, EventDayStarted}
	if len(seen) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(seen))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], seen[i])
		}
	}
}

func TestEventTimestamp(t *testing.T) {
	before := time.Now()
	evt := NewEventWithFlag(EventSkillCheck, "deer", "talk", "player", true)
	after := time.Now()

	if evt.Timestamp.Before(before) || evt.Timestamp.After(after) {
		t.Fatal("event timestamp should be between before and after")
	}
	if !evt.Flag {
		t.Fatal("expected flag true")
	}
	if evt.Metadata == nil {
		t.Fatal("expected metadata map to be initialised")
	}
}
