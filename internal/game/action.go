package game

import (
	"errors"
	"fmt"
)

var (
	// ErrRejected wraps every precondition failure of a player action.
	ErrRejected = errors.New("action rejected")
	// ErrBusy is returned when a mutation is already in flight.
	ErrBusy = errors.New("engine busy")
)

// ActionType names a player action.
type ActionType string

const (
	ActionEquip             ActionType = "equip"
	ActionDiscardEquipped   ActionType = "discard_equipped"
	ActionUseItem           ActionType = "use_item"
	ActionBuy               ActionType = "buy"
	ActionSell              ActionType = "sell"
	ActionRestock           ActionType = "restock"
	ActionStoreProvision    ActionType = "store_provision"
	ActionRetrieveProvision ActionType = "retrieve_provision"
	ActionInteract          ActionType = "interact"
	ActionTakeEventItem     ActionType = "take_event_item"
	ActionEndDay            ActionType = "end_day"
	ActionWalk              ActionType = "walk"
)

// InteractMode selects how the player confronts a threat.
type InteractMode string

const (
	InteractAttack InteractMode = "attack"
	InteractTalk   InteractMode = "talk"
	InteractPet    InteractMode = "pet"
)

// Action is a player request. Only the fields relevant to Type are read.
type Action struct {
	Type         ActionType   `json:"type"`
	HandIndex    int          `json:"handIndex,omitempty"`
	Slot         int          `json:"slot,omitempty"`
	Index        int          `json:"index,omitempty"`
	DisplayIndex int          `json:"displayIndex,omitempty"`
	Mode         InteractMode `json:"mode,omitempty"`
	FromEquipped bool         `json:"fromEquipped,omitempty"`
	Steps        int          `json:"steps,omitempty"`
}

// ActionResult reports the outcome of Apply.
type ActionResult struct {
	Accepted bool         `json:"accepted"`
	Reason   string       `json:"reason,omitempty"`
	Effects  []SideEffect `json:"effects,omitempty"`
	Finished bool         `json:"finished,omitempty"`
}

// RejectionError is a precondition failure. The resolver returns it from a
// working copy that is then discarded.
type RejectionError struct {
	Action ActionType
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Action, e.Reason)
}

func (e *RejectionError) Unwrap() error { return ErrRejected }

func reject(action ActionType, format string, args ...any) error {
	return &RejectionError{Action: action, Reason: fmt.Sprintf(format, args...)}
}
