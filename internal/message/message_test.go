package message

import (
	"encoding/json"
	"testing"
	"time"
)

func TestChainStatusEqual(t *testing.T) {
	base := ChainStatus{
		LatestBlockHash:   "AAA",
		LatestAppHash:     "BBB",
		LatestBlockHeight: 100,
		LatestBlockTime:   time.Unix(1000, 0).UTC(),
		CatchingUp:        false,
	}
	same := base
	if !base.Equal(same) {
		t.Fatalf("expected identical ChainStatus values to be equal")
	}

	changed := base
	changed.LatestBlockHeight = 101
	if base.Equal(changed) {
		t.Fatalf("expected height change to break equality")
	}

	changedTime := base
	changedTime.LatestBlockTime = base.LatestBlockTime.Add(time.Second)
	if base.Equal(changedTime) {
		t.Fatalf("expected time change to break equality")
	}
}

func TestEnvelopeEmptyIsNil(t *testing.T) {
	if env := NewEnvelope("net", "node", nil); env != nil {
		t.Fatalf("expected nil envelope for empty message list, got %+v", env)
	}
	if env := NewEnvelope("net", "node", []Message{}); env != nil {
		t.Fatalf("expected nil envelope for empty message slice, got %+v", env)
	}
}

func TestMessageRoundTripsAsSingleKeyObject(t *testing.T) {
	msg := ChainMessage(ChainStatus{LatestBlockHeight: 5})
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var generic map[string]json.RawMessage
	if err := json.Unmarshal(b, &generic); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(generic) != 1 {
		t.Fatalf("expected exactly one key in marshaled message, got %d: %s", len(generic), b)
	}
	if _, ok := generic["chain"]; !ok {
		t.Fatalf("expected \"chain\" key, got %s", b)
	}

	var roundTripped Message
	if err := json.Unmarshal(b, &roundTripped); err != nil {
		t.Fatalf("round trip unmarshal: %v", err)
	}
	if roundTripped.Kind() != "chain" {
		t.Fatalf("expected Kind()==chain after round trip, got %q", roundTripped.Kind())
	}
}

func TestEnvelopeJSONShape(t *testing.T) {
	env := NewEnvelope("cosmoshub-4", "node-1", []Message{
		NodeMessage(NodeInfo{ID: "abc", Moniker: "m"}),
	})
	if env == nil {
		t.Fatalf("expected non-nil envelope")
	}
	b, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Envelope
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Network != env.Network || decoded.Node != env.Node {
		t.Fatalf("round trip mismatch: got %+v", decoded)
	}
	if len(decoded.Msg) != 1 || decoded.Msg[0].Kind() != "node" {
		t.Fatalf("expected a single node message, got %+v", decoded.Msg)
	}
}

func TestDecodeEventsSkipsUnknownTypes(t *testing.T) {
	raw := json.RawMessage(`[
		{"type":"transfer","attributes":[{"key":"recipient","value":"cosmos1abc"}]},
		{"type":"send_packet","attributes":[
			{"key":"packet_src_channel","value":"channel-0"},
			{"key":"packet_src_channel","value":"channel-1"}
		]}
	]`)
	events, err := DecodeEvents(raw)
	if err != nil {
		t.Fatalf("DecodeEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 recognized event, got %d", len(events))
	}
	if events[0].Kind != EventSendPacketChannel {
		t.Fatalf("expected send_packet, got %s", events[0].Kind)
	}
	if got := events[0].Attributes["packet_src_channel"]; len(got) != 2 {
		t.Fatalf("expected duplicate attribute keys preserved as a slice, got %v", got)
	}
	if got := events[0].Attr("packet_dst_channel", "packet_dst_channel_missing"); got != "packet_dst_channel_missing" {
		t.Fatalf("expected sentinel default, got %q", got)
	}
}
