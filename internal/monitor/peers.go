package monitor

import (
	"log"
	"strconv"
	"strings"

	ctypes "github.com/tendermint/tendermint/rpc/core/types"

	"github.com/firstset/cosmon/internal/message"
)

// mergePeers implements the peer-merge rule of §4.1: seed a map from configured persistent
// peers (connection=None, persistent=true), overlay RPC-observed peers (setting connection
// direction, inserting any not already present), then stamp private=true for any id in the
// private set. Unsupported (non-TCP) listen addresses are logged and skipped rather than
// aborting the whole merge.
func mergePeers(netInfo *ctypes.ResultNetInfo, persistent, private map[string]bool) []message.Peer {
	byID := make(map[string]*message.Peer, len(persistent)+len(netInfo.Peers))

	for id := range persistent {
		byID[id] = &message.Peer{
			Address:    message.PeerAddress{PeerID: id},
			Connection: message.ConnNone,
			Persistent: true,
		}
	}

	for _, p := range netInfo.Peers {
		id := string(p.NodeInfo.ID())
		conn := message.ConnIn
		if p.IsOutbound {
			conn = message.ConnOut
		}

		if existing, ok := byID[id]; ok {
			// Connection direction comes from is_outbound alone and never depends on the
			// listen address, so an unsupported (e.g. non-tcp) scheme must not block this
			// update — only the insert-new-entry path below needs a parsed address.
			existing.Connection = conn
			if addr, ok := parseTCPAddr(id, p.NodeInfo.ListenAddr); ok {
				existing.Address = addr
			}
			continue
		}

		addr, ok := parseTCPAddr(id, p.NodeInfo.ListenAddr)
		if !ok {
			log.Printf("monitor: peer %s has unsupported listen address %q, skipping", id, p.NodeInfo.ListenAddr)
			continue
		}
		byID[id] = &message.Peer{
			Address:    addr,
			Connection: conn,
			Persistent: false,
		}
	}

	for id := range private {
		if p, ok := byID[id]; ok {
			p.Private = true
		}
	}

	out := make([]message.Peer, 0, len(byID))
	for _, p := range byID {
		out = append(out, *p)
	}
	return out
}

// parseTCPAddr extracts host/port from a "tcp://host:port" listen address. Non-tcp schemes
// (or missing scheme) are refused.
func parseTCPAddr(peerID, listenAddr string) (message.PeerAddress, bool) {
	const prefix = "tcp://"
	if !strings.HasPrefix(listenAddr, prefix) {
		return message.PeerAddress{}, false
	}
	hostPort := strings.TrimPrefix(listenAddr, prefix)
	host, portStr, err := splitHostPort(hostPort)
	if err != nil {
		return message.PeerAddress{}, false
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return message.PeerAddress{}, false
	}
	return message.PeerAddress{PeerID: peerID, Host: host, Port: uint16(port)}, true
}

func splitHostPort(hostPort string) (host, port string, err error) {
	i := strings.LastIndex(hostPort, ":")
	if i < 0 {
		return "", "", strconvErr(hostPort)
	}
	return hostPort[:i], hostPort[i+1:], nil
}

type addrFormatError string

func (e addrFormatError) Error() string { return "malformed address: " + string(e) }

func strconvErr(s string) error { return addrFormatError(s) }
