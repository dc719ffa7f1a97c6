package cards

import "fmt"

// Character is a playable survivor with a unique starter kit.
type Character struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	BaseTalk int      `json:"talkFailure" yaml:"talkFailure"`
	BasePet  int      `json:"petFailure" yaml:"petFailure"`
	Starters []string `json:"starters" yaml:"starters"`
}

// Temperament, Demeanor and Instinct are the three personality axes.
type (
	Temperament string
	Demeanor    string
	Instinct    string
)

const (
	TemperamentCalm    Temperament = "calm"
	TemperamentBold    Temperament = "bold"
	TemperamentNervous Temperament = "nervous"

	DemeanorFriendly Demeanor = "friendly"
	DemeanorGruff    Demeanor = "gruff"
	DemeanorQuiet    Demeanor = "quiet"

	InstinctCautious Instinct = "cautious"
	InstinctCurious  Instinct = "curious"
	InstinctReckless Instinct = "reckless"
)

// Personality is the trait selection made at character select.
type Personality struct {
	Temperament Temperament `json:"temperament"`
	Demeanor    Demeanor    `json:"demeanor"`
	Instinct    Instinct    `json:"instinct"`
}

type modifier struct {
	talk int
	pet  int
}

var temperamentMods = map[Temperament]modifier{
	TemperamentCalm:    {talk: -10},
	TemperamentBold:    {talk: 5, pet: -5},
	TemperamentNervous: {talk: 10, pet: 10},
}

var demeanorMods = map[Demeanor]modifier{
	DemeanorFriendly: {talk: -10},
	DemeanorGruff:    {talk: 10, pet: -5},
	DemeanorQuiet:    {pet: -5},
}

var instinctMods = map[Instinct]modifier{
	InstinctCautious: {},
	InstinctCurious:  {pet: -5},
	InstinctReckless: {pet: 10},
}

// DefaultPersonality is used when a run starts without a trait selection.
var DefaultPersonality = Personality{
	Temperament: TemperamentCalm,
	Demeanor:    DemeanorQuiet,
	Instinct:    InstinctCautious,
}

// Validate rejects unknown trait values.
func (p Personality) Validate() error {
	if _, ok := temperamentMods[p.Temperament]; !ok {
		return fmt.Errorf("unknown temperament %q", p.Temperament)
	}
	if _, ok := demeanorMods[p.Demeanor]; !ok {
		return fmt.Errorf("unknown demeanor %q", p.Demeanor)
	}
	if _, ok := instinctMods[p.Instinct]; !ok {
		return fmt.Errorf("unknown instinct %q", p.Instinct)
	}
	return nil
}

const (
	minFailure = 5
	maxFailure = 95
)

func clampFailure(v int) int {
	if v < minFailure {
		return minFailure
	}
	if v > maxFailure {
		return maxFailure
	}
	return v
}

// TalkFailure returns the failure percentage for talking a threat down.
func (c Character) TalkFailure(p Personality) int {
	return clampFailure(c.BaseTalk + temperamentMods[p.Temperament].talk +
		demeanorMods[p.Demeanor].talk + instinctMods[p.Instinct].talk)
}

// PetFailure returns the failure percentage for calming an animal.
func (c Character) PetFailure(p Personality) int {
	return clampFailure(c.BasePet + temperamentMods[p.Temperament].pet +
		demeanorMods[p.Demeanor].pet + instinctMods[p.Instinct].pet)
}

// Themes by NG+ tier.
const (
	ThemeWoodland = "woodland"
	ThemeFrontier = "frontier"
	ThemeBadlands = "badlands"
)

// ThemeForLevel selects the card pool theme for an NG+ level.
func ThemeForLevel(level int) string {
	switch {
	case level >= 4:
		return ThemeBadlands
	case level >= 2:
		return ThemeFrontier
	default:
		return ThemeWoodland
	}
}
