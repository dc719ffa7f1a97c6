// Package sensor converts pedometer readings into in-game rewards.
package sensor

import "math"

// Default thresholds, in steps.
const (
	StepsPerGold   = 50
	StepsPerHealth = 100
	StepsPerDraw   = 250
)

// Reward is what a batch of steps earns.
type Reward struct {
	Gold   int `json:"gold"`
	Health int `json:"health"`
	Draws  int `json:"draws"`
}

// IsZero reports whether the reward grants nothing.
func (r Reward) IsZero() bool {
	return r.Gold == 0 && r.Health == 0 && r.Draws == 0
}

// Pedometer holds the conversion thresholds.
type Pedometer struct {
	GoldEvery   int
	HealthEvery int
	DrawEvery   int
}

// Default returns the standard thresholds.
func Default() Pedometer {
	return Pedometer{GoldEvery: StepsPerGold, HealthEvery: StepsPerHealth, DrawEvery: StepsPerDraw}
}

// cycle is the smallest step count after which every threshold has been
// crossed a whole number of times, so banked steps can be reduced modulo
// it without changing future rewards.
func (p Pedometer) cycle() int {
	c := 1
	for _, n := range []int{p.GoldEvery, p.HealthEvery, p.DrawEvery} {
		if n > 0 {
			c = lcm(c, n)
		}
	}
	return c
}

// Convert adds steps to the banked remainder and returns the reward for
// every threshold crossed, plus the new banked remainder.
func (p Pedometer) Convert(banked, steps int) (Reward, int) {
	if banked < 0 {
		banked = 0
	}
	if steps <= 0 {
		return Reward{}, banked
	}
	total := banked + steps
	r := Reward{
		Gold:   crossings(banked, total, p.GoldEvery),
		Health: crossings(banked, total, p.HealthEvery),
		Draws:  crossings(banked, total, p.DrawEvery),
	}
	return r, total % p.cycle()
}

func crossings(from, to, every int) int {
	if every <= 0 {
		return 0
	}
	return to/every - from/every
}

// StepsForDistance converts metres walked to steps using a stride length
// in metres. Partial steps are dropped.
func StepsForDistance(metres, stride float64) int {
	if metres <= 0 || stride <= 0 {
		return 0
	}
	return int(math.Floor(metres / stride))
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	return a / gcd(a, b) * b
}
