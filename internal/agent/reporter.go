// Package agent wires together the agent-side loops: the NodeMonitor, the tmconn-based
// EventListener, and the EventReporter, and supervises their lifetimes.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/firstset/cosmon/internal/message"
)

const reportTimeout = 30 * time.Second
const reportErrorBackoff = 500 * time.Millisecond

// sender POSTs envelopes to the collector at-most-once: on error it is the caller's job to
// log and back off, never to retry the same envelope (§4.3).
type sender struct {
	collectorURL string
	client       *http.Client
}

func newSender(collectorBase string) *sender {
	return &sender{
		collectorURL: collectorBase + "/collector",
		client:       &http.Client{Timeout: reportTimeout},
	}
}

func (s *sender) report(ctx context.Context, env *message.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.collectorURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting envelope: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("collector replied %d", resp.StatusCode)
	}
	return nil
}

// Reporter is the EventReporter: it drains a channel of decoded IBC event batches, builds
// one Envelope per event, and POSTs each to the collector at-most-once (§4.3).
type Reporter struct {
	network string
	nodeID  string
	sender  *sender
	in      <-chan []message.IBCEvent
}

// NewReporter builds a Reporter. collectorBase is the collector's base URL; events are
// posted to collectorBase + "/collector".
func NewReporter(network, nodeID, collectorBase string, in <-chan []message.IBCEvent) *Reporter {
	return &Reporter{
		network: network,
		nodeID:  nodeID,
		sender:  newSender(collectorBase),
		in:      in,
	}
}

// Run drains events until ctx is canceled or the channel closes.
func (r *Reporter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-r.in:
			if !ok {
				return
			}
			r.reportBatch(ctx, batch)
		}
	}
}

func (r *Reporter) reportBatch(ctx context.Context, batch []message.IBCEvent) {
	for _, ev := range batch {
		env := message.NewEnvelope(r.network, r.nodeID, []message.Message{message.EventMessage(ev)})
		if env == nil {
			continue
		}
		if err := r.sender.report(ctx, env); err != nil {
			log.Printf("reporter[%s]: %v", r.network, err)
			select {
			case <-time.After(reportErrorBackoff):
			case <-ctx.Done():
				return
			}
		}
	}
}
