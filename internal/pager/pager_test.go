package pager

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeDrainer struct {
	mu    sync.Mutex
	pages [][]string
	idx   int
}

func (f *fakeDrainer) DrainAllPages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx >= len(f.pages) {
		return nil
	}
	p := f.pages[f.idx]
	f.idx++
	return p
}

type fakeSink struct {
	received int32
	lastText string
	mu       sync.Mutex
}

func (f *fakeSink) Notify(ctx context.Context, text string) error {
	atomic.AddInt32(&f.received, 1)
	f.mu.Lock()
	f.lastText = text
	f.mu.Unlock()
	return nil
}

func TestPagerFansOutToAllSinks(t *testing.T) {
	drain := &fakeDrainer{pages: [][]string{{"cosmoshub-4: validator missed 50 blocks"}}}
	sink1, sink2 := &fakeSink{}, &fakeSink{}
	p := New(5*time.Millisecond, drain, sink1, sink2)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	if atomic.LoadInt32(&sink1.received) == 0 || atomic.LoadInt32(&sink2.received) == 0 {
		t.Fatalf("expected both sinks notified, got %d and %d", sink1.received, sink2.received)
	}
}

func TestPagerSkipsEmptyDrains(t *testing.T) {
	drain := &fakeDrainer{pages: [][]string{nil, nil}}
	sink := &fakeSink{}
	p := New(5*time.Millisecond, drain, sink)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	if atomic.LoadInt32(&sink.received) != 0 {
		t.Fatalf("expected no notifications for empty drains, got %d", sink.received)
	}
}
