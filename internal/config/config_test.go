package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cosmon.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadAgentAndCollector(t *testing.T) {
	path := writeTemp(t, `
[agent]
node_home = "/var/lib/node"
rpc = "tcp://127.0.0.1:26657"
event_queries = ["tm.event='Tx'"]

[agent.collector.http]
addr = "http://collector.internal:7322"

[collector]
listen_addr = "0.0.0.0:7322"
statsd = "127.0.0.1"
metrics_prefix = "sagan"
missed_block_threshold = 15

[[collector.networks.tendermint]]
chain_id = "cosmoshub-4"
validator_addr = "cosmosvaloper1abc"

[collector.networks.tendermint.ngexplorers]
host = "https://explorer.example.com"
`)
	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsAgent() || !cfg.IsCollector() {
		t.Fatalf("expected both roles enabled, got %+v", cfg)
	}
	if cfg.Agent.Rpc != "tcp://127.0.0.1:26657" {
		t.Fatalf("unexpected rpc: %s", cfg.Agent.Rpc)
	}
	if cfg.Collector.MissedBlockThreshold != 15 {
		t.Fatalf("unexpected threshold: %d", cfg.Collector.MissedBlockThreshold)
	}
	if len(cfg.Collector.Networks.Tendermint) != 1 {
		t.Fatalf("expected one network, got %d", len(cfg.Collector.Networks.Tendermint))
	}
}

func TestDuplicateNetworkIsFatal(t *testing.T) {
	path := writeTemp(t, `
[collector]
listen_addr = "0.0.0.0:7322"
statsd = "127.0.0.1"

[[collector.networks.tendermint]]
chain_id = "cosmoshub-4"

[[collector.networks.tendermint]]
chain_id = "cosmoshub-4"
`)
	_, err := Load(path, "")
	if err == nil {
		t.Fatalf("expected duplicate network to fail validation")
	}
}

func TestMissingRolesIsFatal(t *testing.T) {
	path := writeTemp(t, "\n")
	if _, err := Load(path, ""); err == nil {
		t.Fatalf("expected empty config to fail validation")
	}
}

func TestThresholdFallback(t *testing.T) {
	n := TendermintNetworkConfig{ChainID: "x"}
	if got := n.Threshold(0); got != 10 {
		t.Fatalf("expected default 10, got %d", got)
	}
	if got := n.Threshold(25); got != 25 {
		t.Fatalf("expected collector default 25, got %d", got)
	}
	override := 3
	n.MissedBlockThreshold = &override
	if got := n.Threshold(25); got != 3 {
		t.Fatalf("expected per-network override 3, got %d", got)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plain := []byte("[collector]\nlisten_addr = \"0.0.0.0:7322\"\n")
	blob, err := encrypt(plain, "hunter2")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	got, err := decrypt(blob, "hunter2")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if string(got) != string(plain) {
		t.Fatalf("round trip mismatch: %s", got)
	}
	if _, err := decrypt(blob, "wrong"); err == nil {
		t.Fatalf("expected wrong password to fail")
	}
}
