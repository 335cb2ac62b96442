// Package pager implements the Pager: draining pageable conditions from every NetworkState on
// a fixed tick and fanning each one out to the configured sinks (§4.7).
package pager

import (
	"context"
	"log"
	"time"
)

const defaultTickInterval = time.Second

// drainer is the narrow slice of CollectorService the Pager needs: pulling every network's
// pending pages in one call.
type drainer interface {
	DrainAllPages() []string
}

// Sink delivers one page's text to an external paging/chat service.
type Sink interface {
	Notify(ctx context.Context, text string) error
}

// Pager ticks every poll_interval (default 1s), drains pending pages, and fans each one out to
// every configured sink (§4.7).
type Pager struct {
	interval time.Duration
	drain    drainer
	sinks    []Sink
}

// New builds a Pager. interval defaults to 1s if zero.
func New(interval time.Duration, drain drainer, sinks ...Sink) *Pager {
	if interval <= 0 {
		interval = defaultTickInterval
	}
	return &Pager{interval: interval, drain: drain, sinks: sinks}
}

// Run ticks until ctx is canceled.
func (p *Pager) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Pager) tick(ctx context.Context) {
	for _, page := range p.drain.DrainAllPages() {
		for _, sink := range p.sinks {
			if err := sink.Notify(ctx, page); err != nil {
				log.Printf("pager: sink delivery failed: %v", err)
			}
		}
	}
}
