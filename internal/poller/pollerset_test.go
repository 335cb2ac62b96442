package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/firstset/cosmon/internal/config"
	"github.com/firstset/cosmon/internal/network"
)

type fakeSubmitter struct {
	mu     sync.Mutex
	events []network.PollEvent
}

func (f *fakeSubmitter) SubmitPollEvent(pe network.PollEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, pe)
}

func (f *fakeSubmitter) count(source string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ev := range f.events {
		if ev.Source == source {
			n++
		}
	}
	return n
}

type fakeSource struct {
	calls int
}

func (f *fakeSource) Poll(ctx context.Context) (network.PollEvent, error) {
	f.calls++
	missed := int64(0)
	return network.PollEvent{Source: "fake", NetworkID: "cosmoshub-4", MissedBlocks: &missed}, nil
}

func TestNewSkipsNgExplorersWithoutValidatorAddr(t *testing.T) {
	cfg := config.CollectorConfig{
		Networks: config.NetworksConfig{
			Tendermint: []config.TendermintNetworkConfig{
				{ChainID: "cosmoshub-4", NgExplorers: &config.NgExplorersConfig{Host: "https://example.com"}},
			},
		},
	}
	ps, err := New(cfg, &fakeSubmitter{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(ps.sources) != 0 {
		t.Fatalf("expected no sources without validator_addr, got %d", len(ps.sources))
	}
}

func TestRunTicksAllSourcesAndSubmits(t *testing.T) {
	sub := &fakeSubmitter{}
	ps := &PollerSet{interval: 5 * time.Millisecond, submit: sub, sources: []source{&fakeSource{}}}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	ps.Run(ctx)

	if len(sub.events) == 0 {
		t.Fatalf("expected at least one submitted poll event")
	}
}

type hangingSource struct{}

func (hangingSource) Poll(ctx context.Context) (network.PollEvent, error) {
	<-ctx.Done()
	return network.PollEvent{}, ctx.Err()
}

type fastSource struct{}

func (fastSource) Poll(ctx context.Context) (network.PollEvent, error) {
	missed := int64(0)
	return network.PollEvent{Source: "fast", NetworkID: "cosmoshub-4", MissedBlocks: &missed}, nil
}

// A source that never returns must not prevent another source's own ticker from submitting
// poll events — each source gets its own goroutine/ticker (§5).
func TestRunIsolatesSlowSourceFromFastSource(t *testing.T) {
	sub := &fakeSubmitter{}
	ps := &PollerSet{interval: 5 * time.Millisecond, submit: sub, sources: []source{hangingSource{}, fastSource{}}}

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	ps.Run(ctx)

	if sub.count("fast") < 2 {
		t.Fatalf("expected the fast source to tick multiple times despite a hanging sibling source, got %d", sub.count("fast"))
	}
}
