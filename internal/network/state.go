// Package network implements the collector-side NetworkRegistry and per-chain NetworkState
// state machines: ingesting agent envelopes and poll events, and surfacing pageable
// conditions under a per-network cooldown.
package network

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/firstset/cosmon/internal/errs"
	"github.com/firstset/cosmon/internal/message"
)

// Node is a single watched node as seen by this network's state.
type Node struct {
	ID        string    `json:"id"`
	Moniker   string    `json:"moniker"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// Snapshot is the read-only view GET /net/:id returns: a clone, never the live state.
type Snapshot struct {
	Nodes      []Node                `json:"nodes"`
	Peers      []message.Peer        `json:"peers"`
	Chain      *message.ChainStatus  `json:"chain"`
	Validators *message.ValidatorInfo `json:"validators"`
}

// EventHandler is notified of every IBC event a network absorbs (MetricsEmitter's hook).
type EventHandler interface {
	Handle(network string, ev message.IBCEvent)
	Heartbeat(network string)
}

// State is one network's NetworkState. Only the CollectorService's single worker goroutine
// ever calls its mutating methods; external readers only see Snapshot() clones (§5).
type State struct {
	ID string

	nodes      map[string]*Node
	peers      []message.Peer
	chain      *message.ChainStatus
	validators *message.ValidatorInfo

	pendingPages []string
	lastPagedAt  time.Time
	pageInterval time.Duration

	metrics EventHandler
	auditLog *os.File
}

// NewState constructs a NetworkState for id. auditLogDir, if non-empty, is where an
// append-only line-delimited JSON audit log of every envelope is written; a failure to open
// it is an Io error and is fatal at startup (§7).
func NewState(id string, metrics EventHandler, auditLogDir string, pageInterval time.Duration) (*State, error) {
	s := &State{
		ID:           id,
		nodes:        make(map[string]*Node),
		metrics:      metrics,
		pageInterval: pageInterval,
	}
	if auditLogDir != "" {
		path := filepath.Join(auditLogDir, id+".jsonl")
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, errs.New(errs.Io, "open audit log "+path, err)
		}
		s.auditLog = f
	}
	return s, nil
}

// Close flushes and closes the audit log, if any.
func (s *State) Close() error {
	if s.auditLog != nil {
		return s.auditLog.Close()
	}
	return nil
}

// HandleMessage absorbs one envelope's messages, in order (§4.5). Envelopes whose network
// doesn't match this state's id are ignored defensively (invariant #3 of §8) — the registry
// is expected to route correctly, but a mismatched envelope must never corrupt state.
func (s *State) HandleMessage(env *message.Envelope) {
	if env.Network != s.ID {
		return
	}
	for _, m := range env.Msg {
		switch {
		case m.Node != nil:
			s.upsertNode(*m.Node, env.Ts)
		case m.Peers != nil:
			s.peers = m.Peers
		case m.Chain != nil:
			if s.chain == nil || !s.chain.Equal(*m.Chain) {
				cs := *m.Chain
				s.chain = &cs
			}
		case m.Validator != nil:
			v := *m.Validator
			s.validators = &v
		case m.EventIBC != nil:
			if s.metrics != nil {
				s.metrics.Handle(s.ID, *m.EventIBC)
			}
			s.appendAudit(env)
		}
	}
	if s.metrics != nil {
		s.metrics.Heartbeat(s.ID)
	}
}

func (s *State) upsertNode(n message.NodeInfo, ts time.Time) {
	existing, ok := s.nodes[n.ID]
	if !ok {
		s.nodes[n.ID] = &Node{ID: n.ID, Moniker: n.Moniker, FirstSeen: ts, LastSeen: ts}
		return
	}
	existing.Moniker = n.Moniker
	if ts.After(existing.LastSeen) {
		existing.LastSeen = ts
	}
}

func (s *State) appendAudit(env *message.Envelope) {
	if s.auditLog == nil {
		return
	}
	b, err := json.Marshal(env)
	if err != nil {
		return
	}
	b = append(b, '\n')
	// Io errors at runtime are logged and the write dropped (§7).
	if _, err := s.auditLog.Write(b); err != nil {
		log.Printf("network[%s]: %v", s.ID, errs.New(errs.Io, "write audit log", err))
	}
}

// PollEvent is what PollerSet submits: an explorer- or RPC-derived liveness signal.
type PollEvent struct {
	Source           string
	NetworkID        string
	CurrentHeight    *int64
	MissedBlocks     *int64
	LastSignedHeight *int64
}

// HandlePollEvent derives a missed-blocks count (directly, or from current-minus-last-signed
// height) and, if it exceeds threshold, raises a pageable condition subject to the
// per-network cooldown (§4.7, §8 scenario 3).
func (s *State) HandlePollEvent(pe PollEvent, threshold int64) {
	missed := pe.MissedBlocks
	if missed == nil && pe.CurrentHeight != nil && pe.LastSignedHeight != nil {
		d := *pe.CurrentHeight - *pe.LastSignedHeight
		missed = &d
	}
	if missed == nil || *missed <= threshold {
		return
	}
	now := time.Now()
	if !s.lastPagedAt.IsZero() && now.Sub(s.lastPagedAt) < s.pageInterval {
		return
	}
	s.pendingPages = append(s.pendingPages, fmt.Sprintf(
		"%s: validator missed %d blocks (source=%s, threshold=%d)", s.ID, *missed, pe.Source, threshold))
	s.lastPagedAt = now
}

// DrainPages returns and clears pending pageable conditions. Called by the Pager's tick.
func (s *State) DrainPages() []string {
	if len(s.pendingPages) == 0 {
		return nil
	}
	pages := s.pendingPages
	s.pendingPages = nil
	return pages
}

// Snapshot returns a cloned, read-only view of this network's state.
func (s *State) Snapshot() Snapshot {
	nodes := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		nodes = append(nodes, *n)
	}
	peers := make([]message.Peer, len(s.peers))
	copy(peers, s.peers)

	var chain *message.ChainStatus
	if s.chain != nil {
		c := *s.chain
		chain = &c
	}
	var validators *message.ValidatorInfo
	if s.validators != nil {
		v := *s.validators
		validators = &v
	}
	return Snapshot{Nodes: nodes, Peers: peers, Chain: chain, Validators: validators}
}
