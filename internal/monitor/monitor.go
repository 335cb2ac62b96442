// Package monitor implements the agent-side NodeMonitor: it polls a Tendermint node's RPC
// /status and /net_info on a fixed cadence, diffs against the previous snapshot, and emits
// an Envelope containing only what changed (or everything, on the forced full-report tick).
package monitor

import (
	"context"
	"log"
	"time"

	rpchttp "github.com/tendermint/tendermint/rpc/client/http"
	ctypes "github.com/tendermint/tendermint/rpc/core/types"

	"github.com/firstset/cosmon/internal/errs"
	"github.com/firstset/cosmon/internal/message"
)

// rpcClient is the subset of *rpchttp.HTTP the monitor needs; narrowed to an interface so
// tests can substitute a fake.
type rpcClient interface {
	Status(ctx context.Context) (*ctypes.ResultStatus, error)
	NetInfo(ctx context.Context) (*ctypes.ResultNetInfo, error)
}

// PeerConfig is the persistent/private peer sets the monitor treats as authoritative,
// normally sourced from the watched node's own config/config.toml.
type PeerConfig struct {
	PersistentIDs []string
	PrivateIDs    []string
}

type snapshot struct {
	chain     message.ChainStatus
	node      message.NodeInfo
	validator message.ValidatorInfo
	peers     []message.Peer
	valid     bool // false until the first successful poll
}

// Monitor is the agent's NodeMonitor.
type Monitor struct {
	network string
	client  rpcClient

	pollInterval       time.Duration
	fullReportInterval time.Duration

	persistent map[string]bool
	private    map[string]bool

	last           snapshot
	lastFullReport time.Time

	out chan<- *message.Envelope
}

// New dials the node's RPC endpoint and constructs a Monitor. It does not poll yet; call
// Run to start the endless loop.
func New(network, rpcAddr string, peers PeerConfig, pollInterval, fullReportInterval time.Duration, out chan<- *message.Envelope) (*Monitor, error) {
	client, err := rpchttp.New(rpcAddr, "/websocket")
	if err != nil {
		return nil, errs.New(errs.Config, "dial tendermint rpc", err)
	}
	return newWithClient(network, client, peers, pollInterval, fullReportInterval, out), nil
}

func newWithClient(network string, client rpcClient, peers PeerConfig, pollInterval, fullReportInterval time.Duration, out chan<- *message.Envelope) *Monitor {
	persistent := make(map[string]bool, len(peers.PersistentIDs))
	for _, id := range peers.PersistentIDs {
		persistent[id] = true
	}
	private := make(map[string]bool, len(peers.PrivateIDs))
	for _, id := range peers.PrivateIDs {
		private[id] = true
	}
	return &Monitor{
		network:            network,
		client:              client,
		pollInterval:        pollInterval,
		fullReportInterval:  fullReportInterval,
		persistent:          persistent,
		private:             private,
		out:                 out,
	}
}

// Run polls forever until ctx is canceled. RPC errors are logged and the loop continues on
// its next tick; there is no internal retry within one iteration (§4.1).
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	m.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	env, err := m.poll(ctx)
	if err != nil {
		log.Printf("monitor[%s]: %v", m.network, errs.New(errs.Rpc, "poll", err))
		return
	}
	if env == nil {
		return
	}
	select {
	case m.out <- env:
	case <-ctx.Done():
	}
}

// poll fetches /status and /net_info, diffs against the last snapshot, and returns an
// envelope with only the changed components — or all four if the full-report interval has
// elapsed. Returns (nil, nil) when nothing changed and no full report is due.
func (m *Monitor) poll(ctx context.Context) (*message.Envelope, error) {
	status, err := m.client.Status(ctx)
	if err != nil {
		return nil, err
	}
	netInfo, err := m.client.NetInfo(ctx)
	if err != nil {
		return nil, err
	}

	chain := chainStatusFromRPC(status)
	node := nodeInfoFromRPC(status, m.network)
	validator := validatorInfoFromRPC(status)
	peers := mergePeers(netInfo, m.persistent, m.private)

	force := m.last.valid && time.Since(m.lastFullReport) >= m.fullReportInterval
	if !m.last.valid {
		force = true
	}

	var msgs []message.Message
	if force || !m.last.valid || !chain.Equal(m.last.chain) {
		msgs = append(msgs, message.ChainMessage(chain))
	}
	if force || !node.Equal(m.last.node) {
		msgs = append(msgs, message.NodeMessage(node))
	}
	if force || !validator.Equal(m.last.validator) {
		msgs = append(msgs, message.ValidatorMessage(validator))
	}
	if force || !peersEqual(peers, m.last.peers) {
		msgs = append(msgs, message.PeersMessage(peers))
	}

	m.last = snapshot{chain: chain, node: node, validator: validator, peers: peers, valid: true}
	if force {
		m.lastFullReport = time.Now()
	}

	return message.NewEnvelope(m.network, node.ID, msgs), nil
}

func peersEqual(a, b []message.Peer) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func chainStatusFromRPC(s *ctypes.ResultStatus) message.ChainStatus {
	return message.ChainStatus{
		LatestBlockHash:   s.SyncInfo.LatestBlockHash.String(),
		LatestAppHash:     s.SyncInfo.LatestAppHash.String(),
		LatestBlockHeight: s.SyncInfo.LatestBlockHeight,
		LatestBlockTime:   s.SyncInfo.LatestBlockTime,
		CatchingUp:        s.SyncInfo.CatchingUp,
	}
}

func nodeInfoFromRPC(s *ctypes.ResultStatus, network string) message.NodeInfo {
	return message.NodeInfo{
		ID:         string(s.NodeInfo.ID()),
		Moniker:    s.NodeInfo.Moniker,
		ListenAddr: s.NodeInfo.ListenAddr,
		Network:    network,
		Version:    s.NodeInfo.Version,
	}
}

func validatorInfoFromRPC(s *ctypes.ResultStatus) message.ValidatorInfo {
	return message.ValidatorInfo{
		Address:     s.ValidatorInfo.Address.String(),
		VotingPower: s.ValidatorInfo.VotingPower,
	}
}
