package main

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/thraizz/wildwood-server-go/internal/game"
	"github.com/thraizz/wildwood-server-go/internal/game/cards"
	"github.com/thraizz/wildwood-server-go/internal/game/rules"
	"github.com/thraizz/wildwood-server-go/internal/game/state"
)

// Config is read from SIM_* environment variables.
type Config struct {
	Runs      int    `env:"SIM_RUNS"      envDefault:"100"`
	Seed      int64  `env:"SIM_SEED"      envDefault:"1"`
	Character string `env:"SIM_CHARACTER" envDefault:"ranger"`
	MaxDays   int    `env:"SIM_MAX_DAYS"  envDefault:"20"`
	Content   bool   `env:"SIM_CONTENT"   envDefault:"false"`
	LogLevel  string `env:"SIM_LOG_LEVEL" envDefault:"warn"`
}

// Outcome summarises one autoplayed run.
type Outcome struct {
	Seed      int64
	Finished  bool
	Victory   bool
	WinReason string
	Days        int
	Gold        int
	Health      int
	BossReached bool
}

// Summary aggregates outcomes.
type Summary struct {
	Runs       int
	Victories  int
	Defeats    int
	Unfinished int
	BossFights int
	AvgDays    float64
	Reasons    map[string]int
}

func summarise(outcomes []Outcome) Summary {
	s := Summary{Runs: len(outcomes), Reasons: make(map[string]int)}
	days := 0
	for _, o := range outcomes {
		switch {
		case !o.Finished:
			s.Unfinished++
		case o.Victory:
			s.Victories++
			s.Reasons[o.WinReason]++
		default:
			s.Defeats++
		}
		if o.BossReached {
			s.BossFights++
		}
		days += o.Days
	}
	if len(outcomes) > 0 {
		s.AvgDays = float64(days) / float64(len(outcomes))
	}
	return s
}

func (s Summary) String() string {
	out := fmt.Sprintf("runs=%d victories=%d defeats=%d unfinished=%d boss_fights=%d avg_days=%.1f",
		s.Runs, s.Victories, s.Defeats, s.Unfinished, s.BossFights, s.AvgDays)
	reasons := make([]string, 0, len(s.Reasons))
	for r := range s.Reasons {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		out += fmt.Sprintf("\n  %-24s %d", r, s.Reasons[r])
	}
	return out
}

// simulate autoplays cfg.Runs runs with consecutive seeds.
func simulate(ctx context.Context, cfg Config, logger *zap.Logger) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, cfg.Runs)
	for i := 0; i < cfg.Runs; i++ {
		seed := cfg.Seed + int64(i)
		o, err := playRun(ctx, cfg, seed, logger)
		if err != nil {
			return outcomes, fmt.Errorf("run with seed %d: %w", seed, err)
		}
		logger.Debug("run finished",
			zap.Int64("seed", seed),
			zap.Bool("victory", o.Victory),
			zap.Int("days", o.Days),
		)
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

func playRun(ctx context.Context, cfg Config, seed int64, logger *zap.Logger) (Outcome, error) {
	rc := game.DefaultConfig()
	rc.MaxDays = cfg.MaxDays
	rc.ContentEnabled = cfg.Content
	rc.DuskDelay = 0

	e, err := game.NewEngine(logger,
		game.WithSessionID(fmt.Sprintf("sim-%d", seed)),
		game.WithConfig(rc),
		game.WithSeed(seed),
	)
	if err != nil {
		return Outcome{}, err
	}

	o := Outcome{Seed: seed}
	e.SubscribeTo(rules.EventBossRevealed, func(rules.Event) { o.BossReached = true })

	if err := e.Setup(ctx); err != nil {
		return Outcome{}, err
	}
	if err := e.StartRun(ctx, game.RunOptions{Character: cfg.Character}); err != nil {
		return Outcome{}, err
	}
	if e.State().Status == state.StatusShowingBossIntro {
		if err := e.AcknowledgeIntro(ctx); err != nil {
			return Outcome{}, err
		}
		if err := e.BeginPlay(ctx); err != nil {
			return Outcome{}, err
		}
	}

	// Lost days and boss nights can stretch a run past MaxDays.
	for day := 0; day < cfg.MaxDays*4; day++ {
		playDay(ctx, e)
		report, err := e.EndDay(ctx)
		if err != nil {
			return Outcome{}, err
		}
		if report.Finished {
			break
		}
	}

	st := e.State()
	o.Finished = st.Status == state.StatusFinished
	o.Victory = st.Victory
	o.WinReason = st.WinReason
	o.Days = st.Turn
	if p := st.Player(); p != nil {
		o.Gold = p.Gold
		o.Health = p.Health
	}
	return o, nil
}

// playDay spends one daylight phase greedily. Rejected actions are
// harmless, so the policy simply tries what looks useful.
func playDay(ctx context.Context, e *game.Engine) {
	st := e.State()
	p := st.Player()
	if p == nil {
		return
	}

	for i, c := range p.Hand {
		if c == nil {
			continue
		}
		if c.Type == cards.TypeItem || c.Type == cards.TypeUpgrade {
			if e.Apply(ctx, game.Action{Type: game.ActionEquip, HandIndex: i}).Accepted {
				break
			}
		}
	}

	if ev := st.ActiveEvent; ev != nil {
		switch ev.SubType {
		case cards.SubTypeThreat, cards.SubTypeBoss:
			e.Apply(ctx, game.Action{Type: game.ActionInteract, Mode: game.InteractAttack})
		case cards.SubTypeValuable:
			e.Apply(ctx, game.Action{Type: game.ActionTakeEventItem})
		}
	}

	st = e.State()
	p = st.Player()
	for i, c := range p.Hand {
		if c == nil || c.Type != cards.TypeProvision {
			continue
		}
		if c.Effect.Kind == cards.EffectHeal && p.Health >= p.MaxHealth {
			continue
		}
		e.Apply(ctx, game.Action{Type: game.ActionUseItem, HandIndex: i})
	}

	st = e.State()
	p = st.Player()
	for i, c := range st.StoreDisplayItems {
		if c.BuyCost > 0 && c.BuyCost <= p.Gold {
			if e.Apply(ctx, game.Action{Type: game.ActionBuy, DisplayIndex: i}).Accepted {
				break
			}
		}
	}
}
