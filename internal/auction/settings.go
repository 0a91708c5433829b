package auction

import "time"

// Settings holds the tunable game rules. The defaults match the
// production game; a deployment may override them via a YAML file.
type Settings struct {
	InitialBudget     float64
	TotalRounds       int
	CountdownTicks    int
	TickInterval      time.Duration
	ResultDelay       time.Duration
	DefaultMaxPlayers int
	MinPlayers        int
}

// DefaultSettings returns the production game rules: a 600 second budget
// spent across 10 rounds, a 3 tick countdown, and a 3 second result screen.
func DefaultSettings() Settings {
	return Settings{
		InitialBudget:     600.0,
		TotalRounds:       10,
		CountdownTicks:    3,
		TickInterval:      time.Second,
		ResultDelay:       3 * time.Second,
		DefaultMaxPlayers: 4,
		MinPlayers:        2,
	}
}
