package config

import "time"

// GateConfig controls the authorization gate's subscription cache.
type GateConfig struct {
	// CacheTTL is how long a fetched subscription list stays fresh. Each
	// gated action re-checks the list, refetching once the TTL lapses.
	// Zero disables caching (fetch on every check).
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"30s"`
}

// Sanitize applies guardrails to gate configuration values.
func (g *GateConfig) Sanitize() {
	if g.CacheTTL < 0 {
		g.CacheTTL = 0
	}
	if g.CacheTTL > 5*time.Minute {
		g.CacheTTL = 5 * time.Minute
	}
}
