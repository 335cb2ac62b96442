package monitor

import (
	"testing"

	"github.com/tendermint/tendermint/p2p"
	ctypes "github.com/tendermint/tendermint/rpc/core/types"

	"github.com/firstset/cosmon/internal/message"
)

func netPeer(id, listenAddr string, outbound bool) ctypes.Peer {
	p := ctypes.Peer{IsOutbound: outbound}
	p.NodeInfo.DefaultNodeID = p2p.ID(id)
	p.NodeInfo.ListenAddr = listenAddr
	return p
}

func TestMergePeersUpdatesSeededPersistentPeerWithTCPAddr(t *testing.T) {
	persistent := map[string]bool{"seeded1": true}
	netInfo := &ctypes.ResultNetInfo{Peers: []ctypes.Peer{
		netPeer("seeded1", "tcp://10.0.0.1:26656", true),
	}}

	peers := mergePeers(netInfo, persistent, nil)
	if len(peers) != 1 {
		t.Fatalf("expected 1 peer, got %d", len(peers))
	}
	p := peers[0]
	if p.Connection != message.ConnOut {
		t.Fatalf("expected connection out, got %v", p.Connection)
	}
	if !p.Persistent {
		t.Fatalf("expected persistent peer to stay persistent")
	}
	if p.Address.Host != "10.0.0.1" || p.Address.Port != 26656 {
		t.Fatalf("expected address to be updated from RPC, got %+v", p.Address)
	}
}

// A persistent peer whose RPC-reported listen address uses an unsupported (non-tcp) scheme
// must still have its Connection field updated from is_outbound — the scheme check gates only
// the insert-new-entry path, never the update path (§4.1).
func TestMergePeersUpdatesSeededPersistentPeerEvenWithUnsupportedScheme(t *testing.T) {
	persistent := map[string]bool{"seeded1": true}
	netInfo := &ctypes.ResultNetInfo{Peers: []ctypes.Peer{
		netPeer("seeded1", "unix:///tmp/node.sock", true),
	}}

	peers := mergePeers(netInfo, persistent, nil)
	if len(peers) != 1 {
		t.Fatalf("expected 1 peer, got %d", len(peers))
	}
	p := peers[0]
	if p.Connection != message.ConnOut {
		t.Fatalf("expected connection to be updated to out despite unsupported scheme, got %v", p.Connection)
	}
	if !p.Persistent {
		t.Fatalf("expected persistent peer to stay persistent")
	}
}

func TestMergePeersSkipsInsertingNewPeerWithUnsupportedScheme(t *testing.T) {
	netInfo := &ctypes.ResultNetInfo{Peers: []ctypes.Peer{
		netPeer("new1", "unix:///tmp/node.sock", false),
	}}

	peers := mergePeers(netInfo, nil, nil)
	if len(peers) != 0 {
		t.Fatalf("expected unsupported-scheme new peer to be skipped, got %+v", peers)
	}
}

func TestMergePeersInsertsNewTCPPeer(t *testing.T) {
	netInfo := &ctypes.ResultNetInfo{Peers: []ctypes.Peer{
		netPeer("new1", "tcp://10.0.0.2:26656", false),
	}}

	peers := mergePeers(netInfo, nil, nil)
	if len(peers) != 1 {
		t.Fatalf("expected 1 peer, got %d", len(peers))
	}
	p := peers[0]
	if p.Persistent {
		t.Fatalf("expected non-seeded peer to not be persistent")
	}
	if p.Connection != message.ConnIn {
		t.Fatalf("expected connection in for non-outbound peer, got %v", p.Connection)
	}
}

func TestMergePeersMarksPrivate(t *testing.T) {
	persistent := map[string]bool{"seeded1": true}
	private := map[string]bool{"seeded1": true}
	netInfo := &ctypes.ResultNetInfo{}

	peers := mergePeers(netInfo, persistent, private)
	if len(peers) != 1 || !peers[0].Private {
		t.Fatalf("expected seeded peer to be marked private, got %+v", peers)
	}
}
