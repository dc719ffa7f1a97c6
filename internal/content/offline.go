package content

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/thraizz/wildwood-server-go/internal/game/cards"
	"github.com/thraizz/wildwood-server-go/internal/game/progression"
)

type bossTemplate struct {
	name   string
	size   cards.Size
	health int
	damage int
	blurb  string
}

var offlineBosses = map[string][]bossTemplate{
	cards.ThemeWoodland: {
		{"Old Mossback", cards.SizeHuge, 18, 4, "A bear so old the moss grows in its fur."},
		{"The Bramble Wolf", cards.SizeLarge, 16, 5, "It moves through thorns like water."},
		{"Widow of the Pines", cards.SizeLarge, 15, 5, "A cougar that never leaves tracks."},
	},
	cards.ThemeFrontier: {
		{"Red Hand Jack", cards.SizeLarge, 20, 5, "The bandit king of the river crossings."},
		{"The Iron Bull", cards.SizeHuge, 24, 4, "A bison bull with a hide like a wagon tarp."},
		{"Grey Sister", cards.SizeLarge, 19, 6, "She leads the pack from the back."},
	},
	cards.ThemeBadlands: {
		{"The Dust Devil", cards.SizeHuge, 26, 6, "A storm with teeth."},
		{"Sun-Bleached Rex", cards.SizeHuge, 28, 5, "A lizard older than the canyon."},
		{"Rattle King", cards.SizeLarge, 22, 7, "The biggest snake anyone has lived to describe."},
	},
}

// Offline is a deterministic Generator that needs no network. It is the
// default collaborator for simulations and servers without a content
// backend.
type Offline struct{}

func seedFor(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

func (Offline) GenerateBoss(ctx context.Context, character cards.Character, run RunContext, recent []string) (cards.Card, error) {
	if err := ctx.Err(); err != nil {
		return cards.Card{}, err
	}
	pool := offlineBosses[run.Theme]
	if len(pool) == 0 {
		pool = offlineBosses[cards.ThemeWoodland]
	}
	skip := make(map[string]bool, len(recent))
	for _, name := range recent {
		skip[name] = true
	}

	start := int(seedFor(character.ID, run.Theme, fmt.Sprint(run.Level)) % uint64(len(pool)))
	pick := pool[start]
	for i := 0; i < len(pool); i++ {
		candidate := pool[(start+i)%len(pool)]
		if !skip[candidate.name] {
			pick = candidate
			break
		}
	}

	return cards.Card{
		ID:          fmt.Sprintf("boss-%08x", uint32(seedFor(pick.name, fmt.Sprint(run.Level)))),
		Name:        pick.name,
		Type:        cards.TypeEvent,
		SubType:     cards.SubTypeBoss,
		Species:     cards.SpeciesBoss,
		Size:        pick.size,
		Health:      pick.health + 2*run.Level,
		Damage:      pick.damage + run.Level/2,
		SellValue:   10 + run.Level,
		Description: pick.blurb,
	}, nil
}

func (Offline) GenerateBossIntro(ctx context.Context, character cards.Character, boss cards.Card) (Intro, error) {
	if err := ctx.Err(); err != nil {
		return Intro{}, err
	}
	name := character.Name
	if name == "" {
		name = "The survivor"
	}
	return Intro{
		Title:     boss.Name,
		Paragraph: fmt.Sprintf("%s hears the stories in every camp: %s %s", name, boss.Name, boss.Description),
	}, nil
}

// RemixCards strengthens each card's primary number by one.
func (Offline) RemixCards(ctx context.Context, batch []cards.Card, level int) (map[string]cards.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]cards.Card, len(batch))
	for _, c := range batch {
		remixed := c.Clone()
		switch remixed.Effect.Kind {
		case cards.EffectWeapon, cards.EffectAttackBonus, cards.EffectHeal, cards.EffectGold,
			cards.EffectDamage, cards.EffectDraw, cards.EffectScout:
			remixed.Effect.Amount++
		case cards.EffectStorage:
			remixed.Effect.Capacity++
		case cards.EffectPassive:
			if remixed.Effect.Regen > 0 {
				remixed.Effect.Regen++
			} else {
				remixed.Effect.Income++
			}
		default:
			continue
		}
		remixed.Name = fmt.Sprintf("%s +%d", c.Name, level)
		remixed.SellValue++
		out[c.ID] = remixed
	}
	return out, nil
}

func (Offline) GenerateStory(ctx context.Context, final progression.FinalState) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	how := "brought down"
	switch {
	case final.BossPacified:
		how = "talked down"
	case final.BossCaptured:
		how = "trapped"
	}
	return fmt.Sprintf("On day %d the %s %s %s and walked home with %d gold.",
		final.Turn, characterName(final.Character), how, final.BossName, final.Gold), nil
}
