package agent

import (
	"context"
	"log"
	"sync"
	"time"

	rpchttp "github.com/tendermint/tendermint/rpc/client/http"

	"github.com/firstset/cosmon/internal/config"
	"github.com/firstset/cosmon/internal/errs"
	"github.com/firstset/cosmon/internal/health"
	"github.com/firstset/cosmon/internal/message"
	"github.com/firstset/cosmon/internal/monitor"
	"github.com/firstset/cosmon/internal/tmconn"
)

const eventQueueDepth = 100
const listenerStateSamplePeriod = 200 * time.Millisecond

// Supervisor starts and joins the agent's three loops: NodeMonitor, the tmconn EventListener,
// and the EventReporter (§2, §5).
type Supervisor struct {
	cfg *config.AgentConfig
	reg *health.Registry
}

// New builds a Supervisor from agent config. Config errors here are fatal at startup (§7). reg
// may be nil, in which case no self-health gauges are sampled (the caller did not configure
// [agent.prometheus]).
func New(cfg *config.AgentConfig, reg *health.Registry) *Supervisor {
	return &Supervisor{cfg: cfg, reg: reg}
}

// Run starts all three loops and blocks until ctx is canceled, then waits for them to stop.
func (s *Supervisor) Run(ctx context.Context, network string) error {
	peerCfg := monitor.PeerConfig{}
	if nc, err := config.LoadNodeConfig(s.cfg.NodeHome); err != nil {
		log.Printf("agent: could not read tendermint node config, peer merge will be RPC-only: %v", err)
	} else {
		peerCfg.PersistentIDs = nc.PersistentPeerIDs()
		peerCfg.PrivateIDs = nc.PrivatePeerIDs()
	}

	envelopes := make(chan *message.Envelope, eventQueueDepth)
	nm, err := monitor.New(network, s.cfg.Rpc, peerCfg, s.cfg.PollIntervalOrDefault(), s.cfg.FullReportIntervalOrDefault(), envelopes)
	if err != nil {
		return err
	}

	ibcEvents := make(chan []message.IBCEvent, eventQueueDepth)
	listener, err := tmconn.New(s.cfg.Rpc, s.cfg.EventQueries, message.DecodeEvents, ibcEvents)
	if err != nil {
		return err
	}

	nodeID, err := resolveNodeID(ctx, s.cfg.Rpc)
	if err != nil {
		return errs.New(errs.Config, "resolve node id", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		nm.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		listener.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sender := newSender(s.cfg.Collector.HTTP.Addr)
		for {
			select {
			case <-ctx.Done():
				return
			case env := <-envelopes:
				if err := sender.report(ctx, env); err != nil {
					log.Printf("agent: reporting monitor envelope: %v", err)
					select {
					case <-time.After(reportErrorBackoff):
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	reporter := NewReporter(network, nodeID, s.cfg.Collector.HTTP.Addr, ibcEvents)
	wg.Add(1)
	go func() {
		defer wg.Done()
		reporter.Run(ctx)
	}()

	if s.reg != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sampleListenerState(ctx, network, listener, s.reg)
		}()
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

// resolveNodeID issues a single synchronous /status call to learn the watched node's id,
// which every envelope this agent sends must carry (§3).
func resolveNodeID(ctx context.Context, rpcAddr string) (string, error) {
	client, err := rpchttp.New(rpcAddr, "/websocket")
	if err != nil {
		return "", err
	}
	statusCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	status, err := client.Status(statusCtx)
	if err != nil {
		return "", err
	}
	return string(status.NodeInfo.ID()), nil
}

// listenerStater is the narrow slice of tmconn.Listener[T] sampleListenerState needs; every
// instantiation of Listener satisfies it regardless of its event type parameter.
type listenerStater interface {
	State() tmconn.State
}

// sampleListenerState polls l.State() into reg's gauge (§6: "Connecting/Subscribing/Streaming/
// Reconnecting") and counts each transition into StateReconnecting, until ctx is canceled.
func sampleListenerState(ctx context.Context, network string, l listenerStater, reg *health.Registry) {
	ticker := time.NewTicker(listenerStateSamplePeriod)
	defer ticker.Stop()

	gauge := reg.ListenerState.WithLabelValues(network)
	reconnects := reg.ReconnectsTotal.WithLabelValues(network)
	last := l.State()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state := l.State()
			gauge.Set(float64(state))
			if state == tmconn.StateReconnecting && last != tmconn.StateReconnecting {
				reconnects.Inc()
			}
			last = state
		}
	}
}

// ResolveNetworkID issues a single synchronous /status call to learn the watched node's
// chain id (Tendermint reports it as NodeInfo.Network), so cmd/cosmon can pass it to
// Supervisor.Run without requiring the operator to duplicate it in config.
func ResolveNetworkID(ctx context.Context, rpcAddr string) (string, error) {
	client, err := rpchttp.New(rpcAddr, "/websocket")
	if err != nil {
		return "", err
	}
	statusCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	status, err := client.Status(statusCtx)
	if err != nil {
		return "", err
	}
	return status.NodeInfo.Network, nil
}
