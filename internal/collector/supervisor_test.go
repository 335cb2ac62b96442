package collector

import (
	"context"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/firstset/cosmon/internal/health"
	"github.com/firstset/cosmon/internal/message"
)

func TestSampleQueueDepthReportsGauge(t *testing.T) {
	reg := newTestRegistry(t)
	svc := NewService(reg)

	// Push directly onto the request channel rather than via SubmitMessage/Run, so the three
	// requests stay queued for sampleQueueDepth to observe instead of being drained instantly.
	for i := 0; i < 3; i++ {
		svc.requests <- request{kind: reqMessage, envelope: testEnvelope()}
	}
	if depth := svc.QueueDepth(); depth != 3 {
		t.Fatalf("expected queue depth 3, got %d", depth)
	}

	hreg := health.New()
	s := &Supervisor{reg: hreg}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.sampleQueueDepth(ctx, svc)
		close(done)
	}()

	deadline := time.After(time.Second)
	for gaugeValue(hreg.CollectorQueueDepth) < 3 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for queue-depth gauge to reach 3, got %v", gaugeValue(hreg.CollectorQueueDepth))
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func testEnvelope() *message.Envelope {
	return message.NewEnvelope("cosmoshub-4", "aa", []message.Message{
		message.NodeMessage(message.NodeInfo{ID: "aa", Moniker: "m1"}),
	})
}

func gaugeValue(g interface{ Write(*dto.Metric) error }) float64 {
	m := &dto.Metric{}
	_ = g.Write(m)
	return m.GetGauge().GetValue()
}
