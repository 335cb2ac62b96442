// Package message defines the wire types agents and the collector exchange: Envelope,
// the externally-tagged Message union, and the per-kind payloads (chain status, node info,
// validator info, peers, IBC events).
package message

import "time"

// ChainStatus mirrors the five fields of a Tendermint node's /status sync_info that matter
// for change detection. Two ChainStatus values are considered equal, for diffing purposes,
// iff all five fields match exactly.
type ChainStatus struct {
	LatestBlockHash   string    `json:"latest_block_hash"`
	LatestAppHash     string    `json:"latest_app_hash"`
	LatestBlockHeight int64     `json:"latest_block_height"`
	LatestBlockTime   time.Time `json:"latest_block_time"`
	CatchingUp        bool      `json:"catching_up"`
}

// Equal reports whether two chain statuses are identical across all five tracked fields.
func (c ChainStatus) Equal(o ChainStatus) bool {
	return c.LatestBlockHash == o.LatestBlockHash &&
		c.LatestAppHash == o.LatestAppHash &&
		c.LatestBlockHeight == o.LatestBlockHeight &&
		c.LatestBlockTime.Equal(o.LatestBlockTime) &&
		c.CatchingUp == o.CatchingUp
}

// NodeInfo mirrors the handful of a node's /status node_info fields worth reporting.
type NodeInfo struct {
	ID         string `json:"id"`
	Moniker    string `json:"moniker"`
	ListenAddr string `json:"listen_addr"`
	Network    string `json:"network"`
	Version    string `json:"version"`
}

// Equal reports field-for-field equality.
func (n NodeInfo) Equal(o NodeInfo) bool { return n == o }

// ValidatorInfo mirrors the validator_info block of /status.
type ValidatorInfo struct {
	Address          string `json:"address"`
	VotingPower      int64  `json:"voting_power"`
	ProposerPriority int64  `json:"proposer_priority"`
}

// Equal reports field-for-field equality.
func (v ValidatorInfo) Equal(o ValidatorInfo) bool { return v == o }

// ConnectionStatus is the direction (if any) of a peer connection.
type ConnectionStatus string

const (
	ConnIn   ConnectionStatus = "in"
	ConnOut  ConnectionStatus = "out"
	ConnNone ConnectionStatus = "none"
)

// PeerAddress is a parsed tcp:// peer address.
type PeerAddress struct {
	PeerID string `json:"peer_id"`
	Host   string `json:"host"`
	Port   uint16 `json:"port"`
}

// Peer is one entry of a node's net_info peer list, merged against configured persistent
// and private peers.
type Peer struct {
	Address    PeerAddress      `json:"address"`
	Connection ConnectionStatus `json:"connection"`
	Persistent bool             `json:"persistent"`
	Private    bool             `json:"private"`
}

// Message is an externally-tagged union: exactly one field is set. It marshals to JSON as
// a single-key object, e.g. {"chain": {...}}, matching the collector's wire contract.
type Message struct {
	Chain     *ChainStatus   `json:"chain,omitempty"`
	Node      *NodeInfo      `json:"node,omitempty"`
	Validator *ValidatorInfo `json:"validator,omitempty"`
	Peers     []Peer         `json:"peers,omitempty"`
	EventIBC  *IBCEvent      `json:"event_ibc,omitempty"`
}

// ChainMessage builds a Message carrying a chain status update.
func ChainMessage(cs ChainStatus) Message { return Message{Chain: &cs} }

// NodeMessage builds a Message carrying node info.
func NodeMessage(n NodeInfo) Message { return Message{Node: &n} }

// ValidatorMessage builds a Message carrying validator info.
func ValidatorMessage(v ValidatorInfo) Message { return Message{Validator: &v} }

// PeersMessage builds a Message carrying a peer list snapshot.
func PeersMessage(p []Peer) Message { return Message{Peers: p} }

// EventMessage builds a Message carrying a single IBC event.
func EventMessage(e IBCEvent) Message { return Message{EventIBC: &e} }

// Kind reports which variant is set, or "" if the Message is empty (which should never be
// sent: an Envelope with only empty Messages is not constructed).
func (m Message) Kind() string {
	switch {
	case m.Chain != nil:
		return "chain"
	case m.Node != nil:
		return "node"
	case m.Validator != nil:
		return "validator"
	case m.Peers != nil:
		return "peers"
	case m.EventIBC != nil:
		return "event_ibc"
	default:
		return ""
	}
}

// Envelope is the unit of transport between an agent and the collector.
type Envelope struct {
	Network string    `json:"network"`
	Node    string     `json:"node"`
	Ts      time.Time `json:"ts"`
	Msg     []Message `json:"msg"`
}

// NewEnvelope returns nil if msgs is empty: an envelope with no messages is never sent.
func NewEnvelope(network, node string, msgs []Message) *Envelope {
	if len(msgs) == 0 {
		return nil
	}
	return &Envelope{
		Network: network,
		Node:    node,
		Ts:      time.Now().UTC(),
		Msg:     msgs,
	}
}
