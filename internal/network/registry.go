package network

import (
	"fmt"
	"log"
	"time"

	"github.com/firstset/cosmon/internal/errs"
	"github.com/firstset/cosmon/internal/message"
)

// Registry is the NetworkRegistry: network_id → NetworkState. It is built once at startup
// from config and never grows or shrinks afterward (§3 Lifecycle).
type Registry struct {
	states map[string]*State
	// thresholds holds each network's missed-block page threshold, resolved from config at
	// construction time (Open Question #3).
	thresholds map[string]int64
}

// NetworkSpec is one network this registry should own.
type NetworkSpec struct {
	ChainID              string
	MissedBlockThreshold int64
}

// NewRegistry builds a State per spec, failing fast (as a Config error) on duplicate chain
// ids — the fatal start-up error spec's §3 invariants and §8 scenario 6 require.
func NewRegistry(specs []NetworkSpec, metrics EventHandler, auditLogDir string, pageInterval time.Duration) (*Registry, error) {
	r := &Registry{
		states:     make(map[string]*State, len(specs)),
		thresholds: make(map[string]int64, len(specs)),
	}
	for _, spec := range specs {
		if _, exists := r.states[spec.ChainID]; exists {
			return nil, errs.New(errs.Config, "new registry", fmt.Errorf("duplicate networks in config: %s", spec.ChainID))
		}
		st, err := NewState(spec.ChainID, metrics, auditLogDir, pageInterval)
		if err != nil {
			return nil, err
		}
		r.states[spec.ChainID] = st
		r.thresholds[spec.ChainID] = spec.MissedBlockThreshold
	}
	return r, nil
}

// HandleMessage routes env to its network's state, or logs a warning and drops it if the
// network is unregistered (§3 invariant: never panics).
func (r *Registry) HandleMessage(env *message.Envelope) {
	st, ok := r.states[env.Network]
	if !ok {
		log.Printf("registry: envelope for unregistered network %q dropped", env.Network)
		return
	}
	st.HandleMessage(env)
}

// HandlePollEvent routes pe to its network, doing nothing (with a log) if unregistered.
func (r *Registry) HandlePollEvent(pe PollEvent) {
	st, ok := r.states[pe.NetworkID]
	if !ok {
		log.Printf("registry: poll event for unregistered network %q dropped", pe.NetworkID)
		return
	}
	st.HandlePollEvent(pe, r.thresholds[pe.NetworkID])
}

// Snapshot returns network id's snapshot, or ok=false if it isn't registered.
func (r *Registry) Snapshot(id string) (Snapshot, bool) {
	st, ok := r.states[id]
	if !ok {
		return Snapshot{}, false
	}
	return st.Snapshot(), true
}

// DrainAllPages collects pending pages across every network, prefixed by nothing special —
// each page string already names its network (state.go's HandlePollEvent formats it in).
func (r *Registry) DrainAllPages() []string {
	var all []string
	for _, st := range r.states {
		all = append(all, st.DrainPages()...)
	}
	return all
}

// Close closes every network's audit log.
func (r *Registry) Close() {
	for _, st := range r.states {
		_ = st.Close()
	}
}
