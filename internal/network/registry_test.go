package network

import (
	"testing"
	"time"

	"github.com/firstset/cosmon/internal/message"
)

func TestNewRegistryRejectsDuplicateNetworks(t *testing.T) {
	specs := []NetworkSpec{
		{ChainID: "cosmoshub-4", MissedBlockThreshold: 10},
		{ChainID: "cosmoshub-4", MissedBlockThreshold: 20},
	}
	_, err := NewRegistry(specs, nil, "", time.Minute)
	if err == nil {
		t.Fatalf("expected fatal error constructing registry with duplicate chain ids")
	}
}

func TestRegistryRoutesMessageByNetwork(t *testing.T) {
	specs := []NetworkSpec{{ChainID: "cosmoshub-4", MissedBlockThreshold: 10}}
	r, err := NewRegistry(specs, nil, "", time.Minute)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	env := message.NewEnvelope("cosmoshub-4", "n1", []message.Message{
		message.NodeMessage(message.NodeInfo{ID: "n1", Moniker: "m"}),
	})
	r.HandleMessage(env)

	snap, ok := r.Snapshot("cosmoshub-4")
	if !ok || len(snap.Nodes) != 1 {
		t.Fatalf("expected routed envelope to land in cosmoshub-4's state, got %+v ok=%v", snap, ok)
	}
}

func TestRegistryDropsMessageForUnregisteredNetwork(t *testing.T) {
	specs := []NetworkSpec{{ChainID: "cosmoshub-4", MissedBlockThreshold: 10}}
	r, err := NewRegistry(specs, nil, "", time.Minute)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	env := message.NewEnvelope("osmosis-1", "n1", []message.Message{
		message.NodeMessage(message.NodeInfo{ID: "n1"}),
	})
	r.HandleMessage(env)

	if _, ok := r.Snapshot("osmosis-1"); ok {
		t.Fatalf("expected osmosis-1 to be unregistered")
	}
}

func TestRegistryHandlePollEventUsesPerNetworkThreshold(t *testing.T) {
	specs := []NetworkSpec{
		{ChainID: "cosmoshub-4", MissedBlockThreshold: 10},
		{ChainID: "osmosis-1", MissedBlockThreshold: 100},
	}
	r, err := NewRegistry(specs, nil, "", time.Minute)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	missed := int64(50)
	r.HandlePollEvent(PollEvent{Source: "ngexplorers", NetworkID: "cosmoshub-4", MissedBlocks: &missed})
	r.HandlePollEvent(PollEvent{Source: "ngexplorers", NetworkID: "osmosis-1", MissedBlocks: &missed})

	pages := r.DrainAllPages()
	if len(pages) != 1 {
		t.Fatalf("expected exactly one page (cosmoshub-4 breaches, osmosis-1 does not), got %v", pages)
	}
}

func TestRegistryDropsPollEventForUnregisteredNetwork(t *testing.T) {
	specs := []NetworkSpec{{ChainID: "cosmoshub-4", MissedBlockThreshold: 10}}
	r, err := NewRegistry(specs, nil, "", time.Minute)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	missed := int64(999)
	r.HandlePollEvent(PollEvent{Source: "ngexplorers", NetworkID: "unknown-1", MissedBlocks: &missed})
	if pages := r.DrainAllPages(); len(pages) != 0 {
		t.Fatalf("expected no pages for unregistered network, got %v", pages)
	}
}

func TestRegistryCloseClosesAllStates(t *testing.T) {
	specs := []NetworkSpec{{ChainID: "cosmoshub-4", MissedBlockThreshold: 10}}
	r, err := NewRegistry(specs, nil, "", time.Minute)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	r.Close()
}
