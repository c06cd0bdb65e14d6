// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Rules are the rotation engine settings shared by the server and ajoctl.
type Rules struct {
	DBPath string `env:"AJO_DB_PATH" envDefault:"./data/ajo.db"`

	EnforceCycleWindow bool   `env:"AJO_ENFORCE_CYCLE_WINDOW" envDefault:"false"`
	MaxMembersLimit    uint32 `env:"AJO_MAX_MEMBERS_LIMIT" envDefault:"100"`
	PenaltyPercent     int64  `env:"AJO_PENALTY_PERCENT" envDefault:"10"`
}

// Config holds every setting the server reads at startup.
type Config struct {
	Addr string `env:"AJO_ADDR" envDefault:":8080"`

	JWTSecret string        `env:"AJO_JWT_SECRET,required"`
	TokenTTL  time.Duration `env:"AJO_TOKEN_TTL" envDefault:"24h"`

	Rules
}

// Load parses the environment into a Config and checks the ranges the
// engine relies on.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadRules parses only the engine settings. It needs no secret.
func LoadRules() (*Rules, error) {
	r := &Rules{}
	if err := env.Parse(r); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate rejects values the engine would otherwise silently replace.
func (c *Config) Validate() error {
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("AJO_JWT_SECRET must be at least 16 characters")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("AJO_TOKEN_TTL must be positive")
	}
	return c.Rules.Validate()
}

// Validate checks the engine settings.
func (r *Rules) Validate() error {
	if r.MaxMembersLimit < 2 {
		return fmt.Errorf("AJO_MAX_MEMBERS_LIMIT must be at least 2")
	}
	if r.PenaltyPercent < 1 || r.PenaltyPercent > 100 {
		return fmt.Errorf("AJO_PENALTY_PERCENT must be between 1 and 100")
	}
	return nil
}
