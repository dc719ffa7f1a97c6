package game

import "time"

// Config holds the tunable rules of a session.
type Config struct {
	MaxDays        int           // day on which the boss is forced
	HandSize       int           // base hand capacity
	EquipSlots     int           // base equip slots
	StartingHealth int           // max health at level 0
	StartingGold   int           // gold at level 0
	RestockCost    int           // gold per store restock
	DisplaySize    int           // store display width
	DuskDelay      time.Duration // cosmetic pause before a day transition commits
	KeepLimit      int           // cards kept after a victory at level 0
	ContentTimeout time.Duration // bound on each content-generation call
	ContentEnabled bool          // when false the boss intro flow is skipped
}

// DefaultConfig returns the standard rules.
func DefaultConfig() Config {
	return Config{
		MaxDays:        20,
		HandSize:       5,
		EquipSlots:     3,
		StartingHealth: 20,
		StartingGold:   5,
		RestockCost:    10,
		DisplaySize:    3,
		KeepLimit:      5,
		ContentTimeout: 5 * time.Second,
		ContentEnabled: true,
	}
}

// normalize replaces unusable values with defaults.
func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.MaxDays <= 0 {
		c.MaxDays = def.MaxDays
	}
	if c.HandSize <= 0 {
		c.HandSize = def.HandSize
	}
	if c.EquipSlots <= 0 {
		c.EquipSlots = def.EquipSlots
	}
	if c.StartingHealth <= 0 {
		c.StartingHealth = def.StartingHealth
	}
	if c.StartingGold < 0 {
		c.StartingGold = 0
	}
	if c.RestockCost < 0 {
		c.RestockCost = 0
	}
	if c.DisplaySize <= 0 {
		c.DisplaySize = def.DisplaySize
	}
	if c.DuskDelay < 0 {
		c.DuskDelay = 0
	}
	if c.KeepLimit <= 0 {
		c.KeepLimit = def.KeepLimit
	}
	if c.ContentTimeout <= 0 {
		c.ContentTimeout = def.ContentTimeout
	}
	return c
}
