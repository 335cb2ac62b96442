package message

import "encoding/json"

// IBCEventKind enumerates the IBC/ICS event types the event listener understands.
type IBCEventKind string

const (
	EventCreateClient         IBCEventKind = "create_client"
	EventUpdateClient         IBCEventKind = "update_client"
	EventClientMisbehavior    IBCEventKind = "client_misbehaviour"
	EventOpenInitConnection   IBCEventKind = "connection_open_init"
	EventOpenTryConnection    IBCEventKind = "connection_open_try"
	EventOpenAckConnection    IBCEventKind = "connection_open_ack"
	EventOpenConfirmConn      IBCEventKind = "connection_open_confirm"
	EventSendPacketChannel    IBCEventKind = "send_packet"
	EventRecievePacketChannel IBCEventKind = "recv_packet"
	EventOpaquePacket         IBCEventKind = "write_acknowledgement"
	EventPacketTransfer       IBCEventKind = "fungible_token_packet"
)

// knownKinds maps the raw ABCI event "type" string tendermint pushes over the subscription
// websocket to the IBCEventKind we report. Event types outside this table are not IBC events
// (e.g. plain "tx", "transfer") and are dropped by the listener before they ever reach a
// Message.
var knownKinds = map[string]IBCEventKind{
	"create_client":           EventCreateClient,
	"update_client":           EventUpdateClient,
	"client_misbehaviour":     EventClientMisbehavior,
	"connection_open_init":    EventOpenInitConnection,
	"connection_open_try":     EventOpenTryConnection,
	"connection_open_ack":     EventOpenAckConnection,
	"connection_open_confirm": EventOpenConfirmConn,
	"send_packet":             EventSendPacketChannel,
	"recv_packet":             EventRecievePacketChannel,
	"write_acknowledgement":   EventOpaquePacket,
	"fungible_token_packet":   EventPacketTransfer,
}

// IBCEvent is a single decoded IBC event with its raw attribute bag. Attribute keys that
// appear more than once in the source ABCI event (Tendermint allows duplicate attribute
// keys within one event) are preserved as a slice of values, in order.
type IBCEvent struct {
	Kind       IBCEventKind        `json:"kind"`
	Attributes map[string][]string `json:"attributes"`
}

// Attr returns the first value for key, or def if the key is absent. Sentinel defaults are
// how the metrics emitter keeps tag cardinality bounded when an event is missing an
// attribute it normally carries.
func (e IBCEvent) Attr(key, def string) string {
	if vs, ok := e.Attributes[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return def
}

// abciEvent is the shape of one element of the "events" array Tendermint emits inside a
// TxResult push over the subscription websocket.
type abciEvent struct {
	Type       string `json:"type"`
	Attributes []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"attributes"`
}

// DecodeEvents extracts every recognized IBC event out of a raw ABCI events array (as found
// at result.data.value.TxResult.result.events in a tx subscription push). Unrecognized event
// types are silently skipped; this is not an error, most transactions carry no IBC events.
//
// Tendermint reports a transaction's events as a flat array, so the signer only appears in a
// sibling "message" event rather than on the packet/client/connection event itself. DecodeEvents
// folds any "sender" attribute found on a "message" event into the "sender" key of every IBC
// event decoded from the same array that has no "sender" attribute of its own, so downstream
// tagging (MetricsEmitter) can look it up directly off the IBCEvent it was handed.
func DecodeEvents(raw json.RawMessage) ([]IBCEvent, error) {
	var abci []abciEvent
	if err := json.Unmarshal(raw, &abci); err != nil {
		return nil, err
	}

	var senders []string
	for _, ev := range abci {
		if ev.Type != "message" {
			continue
		}
		for _, a := range ev.Attributes {
			if a.Key == "sender" {
				senders = append(senders, a.Value)
			}
		}
	}

	var out []IBCEvent
	for _, ev := range abci {
		kind, ok := knownKinds[ev.Type]
		if !ok {
			continue
		}
		attrs := make(map[string][]string, len(ev.Attributes)+1)
		for _, a := range ev.Attributes {
			attrs[a.Key] = append(attrs[a.Key], a.Value)
		}
		if _, ok := attrs["sender"]; !ok && len(senders) > 0 {
			attrs["sender"] = senders
		}
		out = append(out, IBCEvent{Kind: kind, Attributes: attrs})
	}
	return out, nil
}
