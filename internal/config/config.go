// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable of the arena service. All values come from the
// environment; the defaults below are the canonical table. Timing values are
// shortened aggressively in tests.
type Config struct {
	Addr     string `env:"ARENA_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// TokenSecret verifies the optional platform identity token presented on
	// connect. Empty means tokens are ignored and every player connects as a
	// guest until set_profile.
	TokenSecret string `env:"ARENA_TOKEN_SECRET"`

	PrepSeconds     int           `env:"PREP_SECONDS" envDefault:"30"`
	PrepTick        time.Duration `env:"PREP_TICK" envDefault:"1s"`
	AttackInterval  time.Duration `env:"ATTACK_INTERVAL" envDefault:"1s"`
	InterRoundDelay time.Duration `env:"INTER_ROUND_DELAY" envDefault:"3s"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL" envDefault:"30s"`
	MaxCombatRounds int           `env:"MAX_COMBAT_ROUNDS" envDefault:"100"`

	StartingHP    int `env:"STARTING_HP" envDefault:"100"`
	StartingGold  int `env:"STARTING_GOLD" envDefault:"10"`
	GoldPerRound  int `env:"GOLD_PER_ROUND" envDefault:"5"`
	BenchCapacity int `env:"BENCH_CAPACITY" envDefault:"9"`
	RefreshCost   int `env:"REFRESH_COST" envDefault:"2"`

	// Indexed by star level 1..3.
	BuyCosts    []int `env:"BUY_COSTS" envDefault:"3,5,7"`
	SellRefunds []int `env:"SELL_REFUNDS" envDefault:"2,4,5"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Default returns the canonical config without consulting the environment.
// Used by tests and as a fallback.
func Default() *Config {
	return &Config{
		Addr:            ":8080",
		LogLevel:        "info",
		PrepSeconds:     30,
		PrepTick:        time.Second,
		AttackInterval:  time.Second,
		InterRoundDelay: 3 * time.Second,
		SweepInterval:   30 * time.Second,
		MaxCombatRounds: 100,
		StartingHP:      100,
		StartingGold:    10,
		GoldPerRound:    5,
		BenchCapacity:   9,
		RefreshCost:     2,
		BuyCosts:        []int{3, 5, 7},
		SellRefunds:     []int{2, 4, 5},
	}
}

// BuyCost returns the gold cost of buying a unit of the given star level.
// Star levels outside the table clamp to its edges.
func (c *Config) BuyCost(star int) int {
	return starIndexed(c.BuyCosts, star)
}

// SellRefund returns the gold refunded when selling a unit of the given star level.
func (c *Config) SellRefund(star int) int {
	return starIndexed(c.SellRefunds, star)
}

func starIndexed(table []int, star int) int {
	if len(table) == 0 {
		return 0
	}
	idx := star - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(table) {
		idx = len(table) - 1
	}
	return table[idx]
}
