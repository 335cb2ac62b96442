package config

import (
	"fmt"
	"time"
)

// AgentConfig configures the agent role: which node to watch and where to send reports.
type AgentConfig struct {
	// NodeHome is the Tendermint node's home directory; its config/config.toml supplies
	// the authoritative persistent/private peer lists for NodeMonitor's peer merge.
	NodeHome string `toml:"node_home"`
	// Rpc is the node's RPC net address, e.g. "tcp://127.0.0.1:26657".
	Rpc string `toml:"rpc"`
	// EventQueries are the Tendermint subscription queries the EventListener issues. If
	// empty, a single catch-all "tm.event='Tx'" subscription is used.
	EventQueries []string `toml:"event_queries"`

	PollInterval       *Duration `toml:"poll_interval"`
	FullReportInterval *Duration `toml:"full_report_interval"`

	Collector CollectorTarget `toml:"collector"`

	// Prometheus, if enabled, exposes this agent's own EventListener state (§6 self-health):
	// a process running the agent role is where the listener actually lives, so that's where
	// its gauges must be served.
	Prometheus *PrometheusConfig `toml:"prometheus"`
}

// CollectorTarget names where the agent reports to. Only HTTP is implemented, but the table
// shape leaves room for future transports without another config migration.
type CollectorTarget struct {
	HTTP HTTPTarget `toml:"http"`
}

type HTTPTarget struct {
	Addr string `toml:"addr"`
}

func (a *AgentConfig) validate() error {
	if a.NodeHome == "" {
		return fmt.Errorf("node_home is required")
	}
	if a.Rpc == "" {
		return fmt.Errorf("rpc is required")
	}
	if a.Collector.HTTP.Addr == "" {
		return fmt.Errorf("collector.http.addr is required")
	}
	if a.Prometheus != nil && a.Prometheus.Enabled && a.Prometheus.Listen == "" {
		return fmt.Errorf("prometheus.listen is required when prometheus.enabled is true")
	}
	return nil
}

// PollIntervalOrDefault returns the configured poll interval, or 100ms.
func (a *AgentConfig) PollIntervalOrDefault() time.Duration {
	if a.PollInterval != nil {
		return a.PollInterval.Duration
	}
	return 100 * time.Millisecond
}

// FullReportIntervalOrDefault returns the configured forced full-report interval, or 60s.
func (a *AgentConfig) FullReportIntervalOrDefault() time.Duration {
	if a.FullReportInterval != nil {
		return a.FullReportInterval.Duration
	}
	return 60 * time.Second
}

// Duration wraps time.Duration so it can be decoded from a TOML string like "500ms" or "1m",
// the way the upstream Tendermint config.toml represents durations.
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	parsed, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
