package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// NodeConfig is the slice of a Tendermint node's own config/config.toml that the agent reads
// directly out of node_home: the RPC listen address and the p2p persistent/private peer
// lists that are authoritative for NodeMonitor's peer merge (see spec §4.1).
type NodeConfig struct {
	RPC struct {
		ListenAddress string `toml:"laddr"`
	} `toml:"rpc"`
	P2P struct {
		ListenAddress   string `toml:"laddr"`
		PersistentPeers string `toml:"persistent_peers"`
		PrivatePeerIDs  string `toml:"private_peer_ids"`
	} `toml:"p2p"`
}

// LoadNodeConfig reads config/config.toml under nodeHome.
func LoadNodeConfig(nodeHome string) (*NodeConfig, error) {
	path := filepath.Join(nodeHome, "config", "config.toml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tendermint node config %s: %w", path, err)
	}
	var nc NodeConfig
	if err := toml.Unmarshal(raw, &nc); err != nil {
		return nil, fmt.Errorf("parsing tendermint node config %s: %w", path, err)
	}
	return &nc, nil
}

// PersistentPeerIDs splits the comma-separated "id@host:port" persistent_peers string into
// bare node IDs.
func (nc *NodeConfig) PersistentPeerIDs() []string {
	return peerIDsFromAddrList(nc.P2P.PersistentPeers)
}

// PrivatePeerIDs splits the comma-separated private_peer_ids string.
func (nc *NodeConfig) PrivatePeerIDs() []string {
	return splitCommaList(nc.P2P.PrivatePeerIDs)
}

func peerIDsFromAddrList(s string) []string {
	var ids []string
	for _, addr := range splitCommaList(s) {
		if i := strings.Index(addr, "@"); i >= 0 {
			ids = append(ids, addr[:i])
		}
	}
	return ids
}

func splitCommaList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
