// Package tmconn implements a generic reconnecting-subscription abstraction over a Tendermint
// RPC WebSocket endpoint. Its only IBC-specific coupling is the decode function handed to New;
// everything else (connect, subscribe, stream, reconnect on error) is protocol-agnostic.
package tmconn

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// State is where the listener's state machine currently sits.
type State int32

const (
	StateConnecting State = iota
	StateSubscribing
	StateStreaming
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribing:
		return "subscribing"
	case StateStreaming:
		return "streaming"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Decoder turns one raw JSON-RPC push message into zero or more decoded values.
type Decoder[T any] func(raw json.RawMessage) ([]T, error)

const reconnectBackoff = 500 * time.Millisecond

// Listener maintains a WebSocket subscription to a Tendermint RPC node, re-establishing all
// configured subscriptions after every disconnect (§4.2).
type Listener[T any] struct {
	url     string
	queries []string
	decode  Decoder[T]
	out     chan<- []T

	state   int32
	reqID   int64
	conn    *websocket.Conn
	backoff time.Duration
}

// New builds a Listener targeting rpcAddr (a "tcp://host:port" or "http(s)://host:port" RPC
// address; it is translated to a ws(s):// /websocket URL). If queries is empty a single
// catch-all "tm.event='Tx'" subscription is used.
func New[T any](rpcAddr string, queries []string, decode Decoder[T], out chan<- []T) (*Listener[T], error) {
	wsURL, err := toWebsocketURL(rpcAddr)
	if err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		queries = []string{"tm.event='Tx'"}
	}
	return &Listener[T]{
		url:     wsURL,
		queries: queries,
		decode:  decode,
		out:     out,
		backoff: reconnectBackoff,
	}, nil
}

// State reports the listener's current state, safe for concurrent use (e.g. health gauges).
func (l *Listener[T]) State() State { return State(atomic.LoadInt32(&l.state)) }

// Run drives the connect → subscribe → stream → reconnect loop until ctx is canceled. It
// never returns on its own; only cancellation exits it.
func (l *Listener[T]) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		atomic.StoreInt32(&l.state, int32(StateConnecting))
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.url, nil)
		if err != nil {
			log.Printf("tmconn: connect %s: %v", l.url, err)
			if !sleepCtx(ctx, l.backoff) {
				return
			}
			continue
		}
		l.conn = conn

		atomic.StoreInt32(&l.state, int32(StateSubscribing))
		if err := l.subscribeAll(); err != nil {
			log.Printf("tmconn: subscribe: %v", err)
			conn.Close()
			if !sleepCtx(ctx, l.backoff) {
				return
			}
			continue
		}

		atomic.StoreInt32(&l.state, int32(StateStreaming))
		l.stream(ctx)

		atomic.StoreInt32(&l.state, int32(StateReconnecting))
		conn.Close()
		if !sleepCtx(ctx, l.backoff) {
			return
		}
	}
}

type subscribeRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      string         `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

// subscribeAll issues one "subscribe" JSON-RPC call per configured query. Re-issuing the
// exact same set after every reconnect is what makes reconnection idempotent.
func (l *Listener[T]) subscribeAll() error {
	for _, q := range l.queries {
		id := atomic.AddInt64(&l.reqID, 1)
		req := subscribeRequest{
			JSONRPC: "2.0",
			ID:      strconv.FormatInt(id, 10),
			Method:  "subscribe",
			Params:  map[string]any{"query": q},
		}
		if err := l.conn.WriteJSON(req); err != nil {
			return fmt.Errorf("subscribing to %q: %w", q, err)
		}
	}
	return nil
}

type rpcPush struct {
	Result struct {
		Data struct {
			Value struct {
				TxResult struct {
					Result struct {
						Events json.RawMessage `json:"events"`
					} `json:"result"`
				} `json:"TxResult"`
			} `json:"value"`
		} `json:"data"`
	} `json:"result"`
}

// stream reads pushed messages until the connection errors or ctx is canceled, decoding each
// and forwarding non-empty batches to out. A full out channel blocks the listener; that is
// the intended backpressure path (§5).
func (l *Listener[T]) stream(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		l.conn.Close()
		close(done)
	}()
	defer func() {
		select {
		case <-done:
		default:
		}
	}()

	for {
		_, raw, err := l.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("tmconn: read: %v", err)
			}
			return
		}
		var push rpcPush
		if err := json.Unmarshal(raw, &push); err != nil {
			log.Printf("tmconn: malformed push, dropping: %v", err)
			continue
		}
		if len(push.Result.Data.Value.TxResult.Result.Events) == 0 {
			continue
		}
		items, err := l.decode(push.Result.Data.Value.TxResult.Result.Events)
		if err != nil {
			log.Printf("tmconn: decode: %v", err)
			continue
		}
		if len(items) == 0 {
			continue
		}
		select {
		case l.out <- items:
		case <-ctx.Done():
			return
		}
	}
}

func toWebsocketURL(rpcAddr string) (string, error) {
	u, err := url.Parse(rpcAddr)
	if err != nil {
		return "", fmt.Errorf("parsing rpc address %q: %w", rpcAddr, err)
	}
	switch u.Scheme {
	case "tcp", "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported rpc scheme %q", u.Scheme)
	}
	u.Path = "/websocket"
	return u.String(), nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
