// Package storage persists opaque save blobs keyed by save slot.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a slot holds no save.
	ErrNotFound = errors.New("save slot not found")
	// ErrInvalidSlot is returned for empty or unsafe slot names.
	ErrInvalidSlot = errors.New("invalid save slot")
)

// Store is a save-slot backend. Implementations must be safe for
// concurrent use.
type Store interface {
	Save(ctx context.Context, slot string, data []byte) error
	Load(ctx context.Context, slot string) ([]byte, error)
	Delete(ctx context.Context, slot string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

// ValidateSlot rejects slot names that could escape a directory or key
// space.
func ValidateSlot(slot string) error {
	if strings.TrimSpace(slot) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSlot)
	}
	if len(slot) > 128 {
		return fmt.Errorf("%w: too long", ErrInvalidSlot)
	}
	for _, r := range slot {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
		}
	}
	return nil
}
