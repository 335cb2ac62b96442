// Package metrics implements the MetricsEmitter: translating IBC events into StatsD counters
// with team-substituted, cardinality-bounded tags (§4.6).
package metrics

import (
	"fmt"
	"log"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"

	"github.com/firstset/cosmon/internal/message"
)

// packetMetricNames maps the IBC event kinds that share the packet tag shape
// (chain, sender, src_channel, src_port, dst_channel, dst_port) to their metric names.
var packetMetricNames = map[message.IBCEventKind]string{
	message.EventSendPacketChannel:    "packet_send",
	message.EventRecievePacketChannel: "packet_recieve",
	message.EventOpaquePacket:         "packet_recv_opaque",
	message.EventPacketTransfer:       "ics20_transfer",
}

// senderMetricNames maps the event kinds tagged with chain and sender to their metric names;
// update_client and client_misbehaviour additionally carry a client_id tag (see Handle).
var senderMetricNames = map[message.IBCEventKind]string{
	message.EventCreateClient:       "create_client",
	message.EventUpdateClient:       "client_update",
	message.EventClientMisbehavior:  "client_misbehaviour",
	message.EventOpenInitConnection: "openinit",
	message.EventOpenTryConnection:  "opentry",
	message.EventOpenAckConnection:  "openack_event",
	message.EventOpenConfirmConn:    "openconfirm",
}

const (
	sentinelSenderMissing     = "sender_missing"
	sentinelSrcChannelMissing = "packet_src_channel_missing"
	sentinelDstChannelMissing = "packet_dst_channel_missing"
	sentinelSrcPortMissing    = "packet_src_port_missing"
	sentinelDstPortMissing    = "packet_dst_port_missing"
	sentinelClientIDMissing   = "client_id_missing"
)

// statsdClient narrows *statsd.Client to what Emitter needs, for testability.
type statsdClient interface {
	Incr(name string, tags []string, rate float64) error
	Count(name string, value int64, tags []string, rate float64) error
	Gauge(name string, value float64, tags []string, rate float64) error
}

// TeamTables are the three substitution tables loaded from config (§4.6).
type TeamTables struct {
	AddressToTeam   map[string]string
	ChannelIDToTeam map[string]string
	ClientIDToTeam  map[string]string
}

// Emitter is the MetricsEmitter: it satisfies network.EventHandler and owns one StatsD client.
// The collector builds a single Emitter and shares it across every NetworkState in the
// registry; networks are told apart only by the chain tag, not by separate clients.
type Emitter struct {
	client statsdClient
	prefix string
	teams  TeamTables
}

// New dials the StatsD host (UDP, lossy by design) and emits the startup gauge (§4.6).
func New(statsdHost, prefix string, teams TeamTables) (*Emitter, error) {
	if prefix == "" {
		prefix = "sagan"
	}
	c, err := statsd.New(statsdHost, statsd.WithNamespace(prefix+"."))
	if err != nil {
		return nil, fmt.Errorf("dialing statsd at %s: %w", statsdHost, err)
	}
	e := &Emitter{client: c, prefix: prefix, teams: teams}
	if err := e.client.Gauge("collector.start", float64(time.Now().UnixMilli()), nil, 1); err != nil {
		log.Printf("metrics: emitting collector.start: %v", err)
	}
	return e, nil
}

// newWithClient is used by tests to inject a fake statsdClient.
func newWithClient(c statsdClient, prefix string, teams TeamTables) *Emitter {
	return &Emitter{client: c, prefix: prefix, teams: teams}
}

// Handle translates one IBC event into a StatsD incr per §4.6's tag table.
func (e *Emitter) Handle(network string, ev message.IBCEvent) {
	tags := []string{"chain:" + network}

	if name, ok := packetMetricNames[ev.Kind]; ok {
		tags = append(tags,
			"sender:"+e.teamOrAddress(ev.Attr("sender", sentinelSenderMissing)),
			"src_channel:"+e.teamOrChannel(ev.Attr("packet_src_channel", sentinelSrcChannelMissing)),
			"src_port:"+ev.Attr("packet_src_port", sentinelSrcPortMissing),
			"dst_channel:"+e.teamOrChannel(ev.Attr("packet_dst_channel", sentinelDstChannelMissing)),
			"dst_port:"+ev.Attr("packet_dst_port", sentinelDstPortMissing),
		)
		e.incr(name, tags)
		return
	}

	if name, ok := senderMetricNames[ev.Kind]; ok {
		tags = append(tags, "sender:"+e.teamOrAddress(ev.Attr("sender", sentinelSenderMissing)))
		if ev.Kind == message.EventUpdateClient || ev.Kind == message.EventClientMisbehavior {
			tags = append(tags, "client_id:"+e.teamOrClient(ev.Attr("client_id", sentinelClientIDMissing)))
		}
		e.incr(name, tags)
		return
	}

	log.Printf("metrics: no tag mapping for event kind %q, dropping", ev.Kind)
}

// Heartbeat increments the per-network heartbeat counter (§4.6).
func (e *Emitter) Heartbeat(network string) {
	if err := e.client.Incr("heartbeat", []string{"chain:" + network}, 1); err != nil {
		log.Printf("metrics: emitting heartbeat: %v", err)
	}
}

func (e *Emitter) incr(name string, tags []string) {
	if err := e.client.Incr(name, tags, 1); err != nil {
		log.Printf("metrics: emitting %s: %v", name, err)
	}
}

// teamOrAddress substitutes a team name for a sender address if the table has one (§4.6).
func (e *Emitter) teamOrAddress(addr string) string {
	if team, ok := e.teams.AddressToTeam[addr]; ok {
		return team
	}
	return addr
}

func (e *Emitter) teamOrChannel(channel string) string {
	if team, ok := e.teams.ChannelIDToTeam[channel]; ok {
		return team
	}
	return channel
}

func (e *Emitter) teamOrClient(clientID string) string {
	if team, ok := e.teams.ClientIDToTeam[clientID]; ok {
		return team
	}
	return clientID
}
