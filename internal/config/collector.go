package config

import (
	"fmt"
	"time"
)

// CollectorConfig configures the collector role.
type CollectorConfig struct {
	ListenAddr     string `toml:"listen_addr"`
	Statsd         string `toml:"statsd"`
	MetricsPrefix  string `toml:"metrics_prefix"`
	EventLogDir    string `toml:"event_log_dir"`

	// MissedBlockThreshold is the default page threshold (spec Open Question #3: this was
	// hard-coded in the source, 10 or 20; it is a config option here). Per-network entries
	// may override it.
	MissedBlockThreshold int `toml:"missed_block_threshold"`

	// PageInterval is the per-network page cooldown, default 10 minutes.
	PageInterval *Duration `toml:"page_interval"`

	// PollInterval governs PollerSet's tick, default 60s.
	PollInterval *Duration `toml:"poll_interval"`

	Networks NetworksConfig `toml:"networks"`
	Teams    []TeamConfig   `toml:"teams"`

	Datadog    *DatadogConfig    `toml:"datadog"`
	Pagerduty  *PagerdutyConfig  `toml:"pagerduty"`
	Telegram   *TelegramConfig   `toml:"telegram"`
	Prometheus *PrometheusConfig `toml:"prometheus"`
}

type NetworksConfig struct {
	Tendermint []TendermintNetworkConfig `toml:"tendermint"`
}

// TendermintNetworkConfig is one [[collector.networks.tendermint]] entry.
type TendermintNetworkConfig struct {
	ChainID       string `toml:"chain_id"`
	ValidatorAddr string `toml:"validator_addr"`
	// Rpc, if set, lets the collector query this network's slashing signing-info directly via
	// SigningInfoPoller, independent of any third-party explorer (supplements spec.md; see
	// Open Question #1).
	Rpc                  string             `toml:"rpc"`
	MissedBlockThreshold *int               `toml:"missed_block_threshold"`
	Mintscan             *MintscanConfig    `toml:"mintscan"`
	NgExplorers          *NgExplorersConfig `toml:"ngexplorers"`
}

// Threshold returns this network's missed-block page threshold, falling back to the
// collector-wide default (itself defaulted to 10 if unset).
func (n TendermintNetworkConfig) Threshold(collectorDefault int) int {
	if n.MissedBlockThreshold != nil {
		return *n.MissedBlockThreshold
	}
	if collectorDefault > 0 {
		return collectorDefault
	}
	return 10
}

// MintscanConfig is retained for config-schema compatibility (spec.md §6 lists it), but no
// poller is instantiated from it: Open Question #1 is resolved in favor of NgExplorers'
// unambiguous signed:bool signal, so a configured Mintscan section only produces a startup
// warning that it is ignored.
type MintscanConfig struct {
	Host    string `toml:"host"`
	Network string `toml:"network"`
}

type NgExplorersConfig struct {
	Host string `toml:"host"`
}

// TeamConfig is one team-name substitution entry; a team may provide any subset of the three
// lookup keys.
type TeamConfig struct {
	Name      string `toml:"name"`
	Address   string `toml:"address"`
	ChannelID string `toml:"channel_id"`
	ClientID  string `toml:"client_id"`
}

type DatadogConfig struct {
	APIKey string `toml:"api_key"`
	Site   string `toml:"site"`
}

type PagerdutyConfig struct {
	RoutingKey string `toml:"routing_key"`
}

type TelegramConfig struct {
	BotToken string `toml:"bot_token"`
	ChatID   int64  `toml:"chat_id"`
}

type PrometheusConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// PollIntervalOrDefault returns the configured PollerSet tick, defaulting to 60s.
func (c *CollectorConfig) PollIntervalOrDefault() time.Duration {
	if c.PollInterval != nil {
		return c.PollInterval.Duration
	}
	return 60 * time.Second
}

// PageIntervalOrDefault returns the configured per-network page cooldown, defaulting to 10
// minutes (spec §4.7).
func (c *CollectorConfig) PageIntervalOrDefault() time.Duration {
	if c.PageInterval != nil {
		return c.PageInterval.Duration
	}
	return 10 * time.Minute
}

func (c *CollectorConfig) validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.Statsd == "" {
		return fmt.Errorf("statsd is required")
	}
	if c.MetricsPrefix == "" {
		c.MetricsPrefix = "sagan"
	}
	if c.Prometheus != nil && c.Prometheus.Enabled && c.Prometheus.Listen == "" {
		return fmt.Errorf("prometheus.listen is required when prometheus.enabled is true")
	}
	seen := make(map[string]bool, len(c.Networks.Tendermint))
	for _, n := range c.Networks.Tendermint {
		if n.ChainID == "" {
			return fmt.Errorf("networks.tendermint entry missing chain_id")
		}
		if seen[n.ChainID] {
			return fmt.Errorf("duplicate networks in config: %s", n.ChainID)
		}
		seen[n.ChainID] = true
		if n.Mintscan != nil {
			// logged by the caller once the logger is available; validation only enforces
			// structural correctness here.
			_ = n.Mintscan.Host
		}
	}
	return nil
}
