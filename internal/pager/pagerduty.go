package pager

import (
	"context"
	"time"

	"github.com/PagerDuty/go-pagerduty"
)

// PagerDutySink fires a PagerDuty Events API v2 trigger per page. Grounded on the teacher's
// notifyPagerduty (td2/alert.go), minus the alert-cache/resolve bookkeeping NetworkState
// already performs via its own cooldown.
type PagerDutySink struct {
	routingKey string
}

// NewPagerDutySink builds a sink against the Events API v2 routing key.
func NewPagerDutySink(routingKey string) *PagerDutySink {
	return &PagerDutySink{routingKey: routingKey}
}

// Notify fires a "trigger" event. Every page is a distinct pageable condition (NetworkState
// already deduplicates via its cooldown), so no DedupKey is reused across calls.
func (s *PagerDutySink) Notify(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := pagerduty.ManageEventWithContext(ctx, pagerduty.V2Event{
		RoutingKey: s.routingKey,
		Action:     "trigger",
		Payload: &pagerduty.V2Payload{
			Summary:  text,
			Source:   "cosmon",
			Severity: "critical",
		},
	})
	return err
}
