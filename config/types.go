package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config is the configuration object handed to API clients at construction time.
// It carries the per-service host table, the default credential and region,
// transport defaults and logging preferences. The koanf instance it was loaded
// from is kept for ad-hoc access to sections not modeled here (for example
// "observability", see Unmarshal).
type Config struct {
	Client ClientConfig `koanf:"client" json:"client" yaml:"client" mapstructure:"client"`
	Hosts  HostTable    `koanf:"hosts" json:"hosts" yaml:"hosts" mapstructure:"hosts"`
	Log    LogConfig    `koanf:"log" json:"log" yaml:"log" mapstructure:"log"`

	k *koanf.Koanf `json:"-" yaml:"-" mapstructure:"-"`
}

// ClientConfig holds the defaults applied to every client built from this configuration.
type ClientConfig struct {
	// Token is the default bearer credential. Empty means unauthenticated calls.
	Token string `koanf:"token" json:"token" yaml:"token" mapstructure:"token"`

	// Region selects the host of each service. Empty resolves to the global host.
	Region Region `koanf:"region" json:"region" yaml:"region" mapstructure:"region" validate:"omitempty,region"`

	// Timeout is the default per-call timeout. Requests may override it.
	Timeout time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// UserAgent replaces the default User-Agent header when set.
	UserAgent string `koanf:"useragent" json:"useragent" yaml:"useragent" mapstructure:"useragent"`

	// MaxRefreshAttempts bounds how many times a single dispatch may refresh
	// the credential and retry after a 401.
	MaxRefreshAttempts int `koanf:"maxrefreshattempts" json:"maxrefreshattempts" yaml:"maxrefreshattempts" mapstructure:"maxrefreshattempts" validate:"gte=1,lte=10"`

	// LogPayloads enables debug-level logging of headers and body previews.
	LogPayloads bool `koanf:"logpayloads" json:"logpayloads" yaml:"logpayloads" mapstructure:"logpayloads"`

	// MaxPayloadLogBytes caps the body preview when LogPayloads is enabled.
	MaxPayloadLogBytes int `koanf:"maxpayloadlogbytes" json:"maxpayloadlogbytes" yaml:"maxpayloadlogbytes" mapstructure:"maxpayloadlogbytes" validate:"gte=0"`

	Rate RateConfig `koanf:"rate" json:"rate" yaml:"rate" mapstructure:"rate"`
}

// RateConfig configures the outbound token bucket. A zero Limit disables throttling.
type RateConfig struct {
	Limit float64 `koanf:"limit" json:"limit" yaml:"limit" mapstructure:"limit" validate:"gte=0"`
	Burst int     `koanf:"burst" json:"burst" yaml:"burst" mapstructure:"burst" validate:"gte=0"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" mapstructure:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty" mapstructure:"pretty"`
}

// HostTable maps a service name to its hosts, keyed by region (or "global").
type HostTable map[string]map[Region]string
