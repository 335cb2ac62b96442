// Package collector implements the CollectorService, its HTTP surface, and the supervisor
// that wires registry + metrics + pollers + pager together (§4.8, §4.9).
package collector

import (
	"context"

	"github.com/firstset/cosmon/internal/message"
	"github.com/firstset/cosmon/internal/network"
)

const requestQueueDepth = 20

// requestKind distinguishes the four CollectorService operations (§4.8's request enum).
type requestKind int

const (
	reqMessage requestKind = iota
	reqNetworkState
	reqPagerEvents
	reqPollEvent
)

// request is CollectorService's request enum, modeled as a tagged struct since Go has no
// native sum type: exactly one of the kind-specific fields is populated per requestKind.
type request struct {
	kind requestKind

	envelope  *message.Envelope
	networkID string
	pollEvent network.PollEvent

	reply chan response
}

// response is CollectorService's response enum counterpart.
type response struct {
	snapshot network.Snapshot
	found    bool
	pages    []string
}

// Service is the CollectorService: a single worker goroutine owns the registry, metrics
// emitter, and pending-pages queue, so no network state is ever mutated without
// synchronization by more than one goroutine (§4.8, §5).
type Service struct {
	registry *network.Registry
	requests chan request
}

// NewService builds a Service around an already-constructed registry.
func NewService(registry *network.Registry) *Service {
	return &Service{
		registry: registry,
		requests: make(chan request, requestQueueDepth),
	}
}

// Run drains the request channel on a single goroutine until ctx is canceled. This is the
// "single worker" half of the readiness-gated design: the channel send in each Submit* method
// is the readiness gate producers block on.
func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.requests:
			s.handle(req)
		}
	}
}

func (s *Service) handle(req request) {
	switch req.kind {
	case reqMessage:
		s.registry.HandleMessage(req.envelope)
		if req.reply != nil {
			req.reply <- response{}
		}
	case reqNetworkState:
		snap, ok := s.registry.Snapshot(req.networkID)
		if req.reply != nil {
			req.reply <- response{snapshot: snap, found: ok}
		}
	case reqPagerEvents:
		pages := s.registry.DrainAllPages()
		if req.reply != nil {
			req.reply <- response{pages: pages}
		}
	case reqPollEvent:
		s.registry.HandlePollEvent(req.pollEvent)
		if req.reply != nil {
			req.reply <- response{}
		}
	}
}

// SubmitMessage enqueues an envelope for the worker to apply; producers block until the
// queue has capacity (the readiness gate). Used by HTTPRouter's POST /collector handler.
func (s *Service) SubmitMessage(ctx context.Context, env *message.Envelope) error {
	reply := make(chan response, 1)
	select {
	case s.requests <- request{kind: reqMessage, envelope: env, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NetworkState fetches one network's snapshot. Used by HTTPRouter's GET /net/{id} handler.
func (s *Service) NetworkState(ctx context.Context, networkID string) (network.Snapshot, bool, error) {
	reply := make(chan response, 1)
	select {
	case s.requests <- request{kind: reqNetworkState, networkID: networkID, reply: reply}:
	case <-ctx.Done():
		return network.Snapshot{}, false, ctx.Err()
	}
	select {
	case resp := <-reply:
		return resp.snapshot, resp.found, nil
	case <-ctx.Done():
		return network.Snapshot{}, false, ctx.Err()
	}
}

// DrainAllPages collects every network's pending pages. Used by the Pager's tick; it
// implements pager's drainer interface.
func (s *Service) DrainAllPages() []string {
	reply := make(chan response, 1)
	s.requests <- request{kind: reqPagerEvents, reply: reply}
	resp := <-reply
	return resp.pages
}

// SubmitPollEvent enqueues a poll event; it implements poller's submitter interface. Unlike
// SubmitMessage this is fire-and-forget from the caller's perspective (PollerSet does not need
// to know when the worker has applied it), so no reply channel is attached.
func (s *Service) SubmitPollEvent(pe network.PollEvent) {
	s.requests <- request{kind: reqPollEvent, pollEvent: pe}
}

// QueueDepth reports how many requests are currently buffered ahead of the worker, for
// self-health's collector_queue_depth gauge (§6).
func (s *Service) QueueDepth() int {
	return len(s.requests)
}
