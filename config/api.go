package config

import (
	"strings"
	"time"
)

// Renewal timeout guardrails. The renewal call is the only one with a
// mandatory bound; exceeding it is treated as renewal failure.
const (
	minRenewalTimeout = 10 * time.Second
	maxRenewalTimeout = 15 * time.Second
)

// APIConfig describes the backend the session core talks to. BaseURL is the
// subsystem's only external configuration; the rest are operational knobs.
type APIConfig struct {
	// BaseURL is the backend API root (e.g., "https://api.example.com").
	BaseURL string `env:"BASE_URL,required"`

	// Timeout bounds ordinary domain calls. Zero means no client timeout.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`

	// RenewalTimeout bounds the credential renewal call.
	RenewalTimeout time.Duration `env:"RENEWAL_TIMEOUT" envDefault:"12s"`
}

// Sanitize applies guardrails to API configuration values.
func (a *APIConfig) Sanitize() {
	a.BaseURL = strings.TrimRight(strings.TrimSpace(a.BaseURL), "/")

	if a.Timeout < 0 {
		a.Timeout = 0
	}
	if a.RenewalTimeout < minRenewalTimeout {
		a.RenewalTimeout = minRenewalTimeout
	}
	if a.RenewalTimeout > maxRenewalTimeout {
		a.RenewalTimeout = maxRenewalTimeout
	}
}
