// Package poller implements the collector-side PollerSet: one goroutine per external liveness
// source, each submitting PollEvents into the registry on a fixed tick (§5: "one task per
// external source").
package poller

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/firstset/cosmon/internal/config"
	"github.com/firstset/cosmon/internal/network"
)

const defaultPollInterval = 60 * time.Second

// source is anything the PollerSet can tick: both NgExplorersPoller and SigningInfoPoller
// satisfy it.
type source interface {
	Poll(ctx context.Context) (network.PollEvent, error)
}

// submitter is the narrow slice of CollectorService the PollerSet needs: submitting a drained
// PollEvent for the worker to apply against the registry.
type submitter interface {
	SubmitPollEvent(network.PollEvent)
}

// PollerSet owns every configured network's explorer/RPC pollers and ticks them independently.
type PollerSet struct {
	interval time.Duration
	sources  []source
	submit   submitter
}

// New builds a PollerSet from the collector's per-network config. A configured but unwired
// Mintscan section only produces a startup warning (Open Question #1): Mintscan itself is
// never queried.
func New(cfg config.CollectorConfig, submit submitter) (*PollerSet, error) {
	interval := cfg.PollIntervalOrDefault()
	ps := &PollerSet{interval: interval, submit: submit}

	for _, net := range cfg.Networks.Tendermint {
		if net.Mintscan != nil {
			log.Printf("poller: network %s has a [mintscan] section configured but Mintscan polling is not implemented (NgExplorers' signed flag is authoritative, see Open Question #1); ignoring", net.ChainID)
		}
		if net.NgExplorers != nil {
			if net.ValidatorAddr == "" {
				log.Printf("poller: network %s has [ngexplorers] configured but no validator_addr, skipping", net.ChainID)
			} else {
				ps.sources = append(ps.sources, NewNgExplorersPoller(net.ChainID, net.NgExplorers.Host, net.ValidatorAddr))
			}
		}
		if net.Rpc != "" && net.ValidatorAddr != "" {
			if err := ps.AddSigningInfoPoller(net.ChainID, net.Rpc, net.ValidatorAddr); err != nil {
				log.Printf("poller: network %s signing info poller unavailable: %v", net.ChainID, err)
			}
		}
	}

	return ps, nil
}

// AddSigningInfoPoller registers a SigningInfoPoller for networkID. Kept as a separate step
// from New because it dials an RPC client and may fail per-network without aborting the whole
// PollerSet's construction.
func (ps *PollerSet) AddSigningInfoPoller(networkID, rpcAddr, valAddr string) error {
	p, err := NewSigningInfoPoller(networkID, rpcAddr, valAddr)
	if err != nil {
		return err
	}
	ps.sources = append(ps.sources, p)
	return nil
}

// Run starts one ticking goroutine per configured source and blocks until ctx is canceled
// (§5: "one task per external source" — each source gets its own failure/latency isolation, so
// a slow or hanging source never stalls any other network's poller on a shared tick).
func (ps *PollerSet) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, src := range ps.sources {
		wg.Add(1)
		go func(src source) {
			defer wg.Done()
			ps.runSource(ctx, src)
		}(src)
	}
	wg.Wait()
}

// runSource ticks a single source on its own timer, bounding each Poll call to the tick
// interval so one hung RPC can delay that source by at most one missed tick rather than
// blocking indefinitely.
func (ps *PollerSet) runSource(ctx context.Context, src source) {
	ticker := time.NewTicker(ps.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pollCtx, cancel := context.WithTimeout(ctx, ps.interval)
			ev, err := src.Poll(pollCtx)
			cancel()
			if err != nil {
				log.Printf("poller: %v", err)
				continue
			}
			ps.submit.SubmitPollEvent(ev)
		}
	}
}
