package persistence

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrUnsupportedVersion is returned for saves newer than SchemaVersion.
var ErrUnsupportedVersion = errors.New("unsupported save version")

// migration upgrades a decoded document by exactly one version.
type migration func(doc map[string]any) error

// migrations[v] upgrades a version v document to v+1.
var migrations = map[int]migration{
	1: migrateV1ToV2,
	2: migrateV2ToV3,
}

// Migrate runs the migration chain from version up to SchemaVersion and
// returns the number of steps applied.
func Migrate(doc map[string]any, version int) (int, error) {
	if version > SchemaVersion {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	if version < 1 {
		version = 1
	}
	steps := 0
	for v := version; v < SchemaVersion; v++ {
		m, ok := migrations[v]
		if !ok {
			return steps, fmt.Errorf("no migration from version %d", v)
		}
		if err := m(doc); err != nil {
			return steps, fmt.Errorf("migrate v%d to v%d: %w", v, v+1, err)
		}
		steps++
	}
	return steps, nil
}

// migrateV1ToV2 replaces the single activeObjective field with the
// activeObjectives list.
func migrateV1ToV2(doc map[string]any) error {
	legacy, had := doc["activeObjective"]
	delete(doc, "activeObjective")
	if _, ok := doc["activeObjectives"]; ok {
		return nil
	}
	if !had || legacy == nil {
		doc["activeObjectives"] = []any{}
		return nil
	}
	if s, ok := legacy.(string); ok && s == "" {
		doc["activeObjectives"] = []any{}
		return nil
	}
	doc["activeObjectives"] = []any{legacy}
	return nil
}

// migrateV2ToV3 turns each player's satchel list of {slot, items} into a
// slot-keyed map and defaults customCards.
func migrateV2ToV3(doc map[string]any) error {
	if _, ok := doc["customCards"]; !ok || doc["customCards"] == nil {
		doc["customCards"] = []any{}
	}
	players, ok := doc["playerDetails"].(map[string]any)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(players))
	for id := range players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p, ok := players[id].(map[string]any)
		if !ok {
			continue
		}
		list, ok := p["satchels"].([]any)
		if !ok {
			continue
		}
		byslot := make(map[string]any, len(list))
		for i, raw := range list {
			entry, ok := raw.(map[string]any)
			if !ok {
				return fmt.Errorf("player %s satchel %d is not an object", id, i)
			}
			slot, ok := entry["slot"].(float64)
			if !ok {
				return fmt.Errorf("player %s satchel %d has no slot", id, i)
			}
			items, _ := entry["items"].([]any)
			if items == nil {
				items = []any{}
			}
			byslot[strconv.Itoa(int(slot))] = items
		}
		p["satchels"] = byslot
	}
	return nil
}
