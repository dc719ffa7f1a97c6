// Package progression grades objectives and governs New Game Plus
// rewards and deck carry-over between runs.
package progression

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/thraizz/wildwood-server-go/internal/game/cards"
)

const (
	// ObjectivesPerRun is how many objectives are drawn on day one.
	ObjectivesPerRun = 2
	// BaseKeepLimit is the number of cards kept at level 0.
	BaseKeepLimit = 5
	// RewardMaxHealth and RewardGold are the reward amounts.
	RewardMaxHealth = 5
	RewardGold      = 15
)

var (
	ErrRewardClaimed  = errors.New("reward already claimed for level")
	ErrUnknownReward  = errors.New("unknown reward kind")
	ErrTooManyKept    = errors.New("too many cards kept")
	ErrInvalidKeepIdx = errors.New("invalid keep index")
)

// FinalState is the slice of run state objectives are graded against.
type FinalState struct {
	Victory              bool
	BossDefeatedInCombat bool
	CombatVictoryVoided  bool
	BossPacified         bool
	BossCaptured         bool
	Turn                 int
	DamageTaken          int
	Captures             int
	Gold                 int
	MaxHealth            int
	Character            string
	BossName             string
	Level                int
}

// Result is the grade of one objective.
type Result struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Kind      cards.ObjectiveKind `json:"kind"`
	Completed bool                `json:"completed"`
	Reward    int                 `json:"reward"`
}

// Summary aggregates every graded objective.
type Summary struct {
	Results   []Result `json:"results"`
	Completed int      `json:"completed"`
	Total     int      `json:"total"`
	BonusGold int      `json:"bonusGold"`
}

// SelectObjectives draws distinct objectives for a run.
func SelectObjectives(catalog *cards.Catalog, rng *rand.Rand) []cards.Card {
	pool := catalog.BySubType(cards.SubTypeObjective)
	if len(pool) == 0 {
		return nil
	}
	perm := rng.Perm(len(pool))
	n := ObjectivesPerRun
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]cards.Card, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, pool[idx])
	}
	return out
}

// Completed reports whether one objective is satisfied by the final state.
func Completed(objective cards.Card, fs FinalState) bool {
	if !fs.Victory {
		return false
	}
	threshold := objective.Effect.Amount
	switch objective.Effect.Objective {
	case cards.ObjectiveSlayer:
		return fs.BossDefeatedInCombat && !fs.CombatVictoryVoided
	case cards.ObjectiveSwift:
		return fs.Turn <= threshold
	case cards.ObjectiveUnscathed:
		return fs.DamageTaken <= threshold
	case cards.ObjectiveTrapper:
		if threshold < 1 {
			threshold = 1
		}
		return fs.Captures >= threshold
	case cards.ObjectivePeacemaker:
		return fs.BossPacified
	case cards.ObjectiveHoarder:
		return fs.Gold >= threshold
	default:
		return false
	}
}

// Grade evaluates every objective and aggregates the summary.
func Grade(objectives []cards.Card, fs FinalState) Summary {
	summary := Summary{Total: len(objectives)}
	for _, obj := range objectives {
		done := Completed(obj, fs)
		res := Result{
			ID:        obj.ID,
			Name:      obj.Name,
			Kind:      obj.Effect.Objective,
			Completed: done,
		}
		if done {
			res.Reward = obj.Effect.Reward
			summary.Completed++
			summary.BonusGold += obj.Effect.Reward
		}
		summary.Results = append(summary.Results, res)
	}
	return summary
}

// KeepLimit is the number of cards a player may keep after a victory.
// A non-positive base falls back to BaseKeepLimit.
func KeepLimit(base, level int) int {
	if base <= 0 {
		base = BaseKeepLimit
	}
	if level < 0 {
		level = 0
	}
	return base + level
}

// RewardKind is the bonus offered once per NG+ level.
type RewardKind string

const (
	RewardKindMaxHealth RewardKind = "max_health"
	RewardKindGold      RewardKind = "gold"
)

// Profile is the meta-progression record carried across runs.
type Profile struct {
	RewardsClaimed map[int]RewardKind `json:"rewardsClaimed,omitempty"`
	RewardOffered  int                `json:"rewardOffered,omitempty"`
	BestLevel      int                `json:"bestLevel,omitempty"`
	Victories      int                `json:"victories,omitempty"`
	RecentBosses   []string           `json:"recentBosses,omitempty"`
}

// Clone deep-copies the profile.
func (p Profile) Clone() Profile {
	out := p
	if p.RewardsClaimed != nil {
		out.RewardsClaimed = make(map[int]RewardKind, len(p.RewardsClaimed))
		for k, v := range p.RewardsClaimed {
			out.RewardsClaimed[k] = v
		}
	}
	out.RecentBosses = append([]string(nil), p.RecentBosses...)
	return out
}

// Claimed reports whether the reward for level has been taken.
func (p Profile) Claimed(level int) bool {
	_, ok := p.RewardsClaimed[level]
	return ok
}

// RememberBoss records a boss name, keeping the most recent few.
func (p *Profile) RememberBoss(name string) {
	if name == "" {
		return
	}
	p.RecentBosses = append(p.RecentBosses, name)
	if len(p.RecentBosses) > 5 {
		p.RecentBosses = p.RecentBosses[len(p.RecentBosses)-5:]
	}
}

// Claim marks the reward for level as taken and returns the max health
// and gold deltas. A second claim for the same level fails.
func (p *Profile) Claim(level int, kind RewardKind) (maxHealth, gold int, err error) {
	switch kind {
	case RewardKindMaxHealth:
		maxHealth = RewardMaxHealth
	case RewardKindGold:
		gold = RewardGold
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownReward, kind)
	}
	if p.Claimed(level) {
		return 0, 0, fmt.Errorf("%w %d", ErrRewardClaimed, level)
	}
	if p.RewardsClaimed == nil {
		p.RewardsClaimed = make(map[int]RewardKind)
	}
	p.RewardsClaimed[level] = kind
	return maxHealth, gold, nil
}

// CarryOver is what survives into the next run.
type CarryOver struct {
	Kept      []cards.Card         `json:"kept,omitempty"`
	Equipped  []*cards.Card        `json:"equipped,omitempty"`
	Satchels  map[int][]cards.Card `json:"satchels,omitempty"`
	Gold      int                  `json:"gold"`
	MaxHealth int                  `json:"maxHealth"`
}

// Clone deep-copies the carry-over.
func (c CarryOver) Clone() CarryOver {
	out := CarryOver{Gold: c.Gold, MaxHealth: c.MaxHealth}
	for _, k := range c.Kept {
		out.Kept = append(out.Kept, k.Clone())
	}
	for _, e := range c.Equipped {
		if e == nil {
			out.Equipped = append(out.Equipped, nil)
			continue
		}
		out.Equipped = append(out.Equipped, e.Ptr())
	}
	if c.Satchels != nil {
		out.Satchels = make(map[int][]cards.Card, len(c.Satchels))
		for slot, items := range c.Satchels {
			cp := make([]cards.Card, 0, len(items))
			for _, it := range items {
				cp = append(cp, it.Clone())
			}
			out.Satchels[slot] = cp
		}
	}
	return out
}

// Review splits deck-review candidates into kept and sold cards. Indices
// must be distinct, in range and no more than limit.
func Review(candidates []cards.Card, keepIdx []int, limit int) (kept, sold []cards.Card, proceeds int, err error) {
	if len(keepIdx) > limit {
		return nil, nil, 0, fmt.Errorf("%w: %d > %d", ErrTooManyKept, len(keepIdx), limit)
	}
	keep := make(map[int]bool, len(keepIdx))
	for _, idx := range keepIdx {
		if idx < 0 || idx >= len(candidates) || keep[idx] {
			return nil, nil, 0, fmt.Errorf("%w: %d", ErrInvalidKeepIdx, idx)
		}
		keep[idx] = true
	}
	for i, c := range candidates {
		if keep[i] {
			kept = append(kept, c.Clone())
			continue
		}
		sold = append(sold, c.Clone())
		proceeds += c.SellValue
	}
	return kept, sold, proceeds, nil
}
