// Package config loads cosmon's TOML configuration: an optional [agent] section, an optional
// [collector] section, either or both present. Loading, decoding and the two role sections'
// validation live here; everything downstream receives already-validated typed config.
package config

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/firstset/cosmon/internal/errs"
)

// Config is the root of the TOML document. Agent and/or Collector may be nil; which loops
// get started depends on which is present (see cmd/cosmon).
type Config struct {
	Agent     *AgentConfig     `toml:"agent"`
	Collector *CollectorConfig `toml:"collector"`
}

// IsAgent reports whether the agent role is enabled.
func (c *Config) IsAgent() bool { return c.Agent != nil }

// IsCollector reports whether the collector role is enabled.
func (c *Config) IsCollector() bool { return c.Collector != nil }

// Load reads and decodes the config at path. If path has an http:// or https:// prefix the
// document is fetched remotely and, when password is non-empty, decrypted first (see
// crypto.go) — this mirrors the teacher's remote-encrypted-config loading path.
func Load(path, password string) (*Config, error) {
	var raw []byte
	var err error
	switch {
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		raw, err = fetchRemote(path)
		if err != nil {
			return nil, errs.New(errs.Config, "fetch remote config", err)
		}
		if password != "" {
			raw, err = decrypt(raw, password)
			if err != nil {
				return nil, errs.New(errs.Config, "decrypt remote config", err)
			}
		}
	default:
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, errs.New(errs.Config, "read config file", err)
		}
	}

	var cfg Config
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, errs.New(errs.Config, "parse toml", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, errs.New(errs.Config, "validate", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Agent == nil && c.Collector == nil {
		return fmt.Errorf("config has neither [agent] nor [collector]; nothing to run")
	}
	if c.Agent != nil {
		if err := c.Agent.validate(); err != nil {
			return fmt.Errorf("[agent]: %w", err)
		}
	}
	if c.Collector != nil {
		if err := c.Collector.validate(); err != nil {
			return fmt.Errorf("[collector]: %w", err)
		}
	}
	return nil
}

func fetchRemote(url string) ([]byte, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: http %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
