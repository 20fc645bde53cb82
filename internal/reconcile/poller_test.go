package reconcile_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"meetaudit/internal/audit"
	"meetaudit/internal/reconcile"
)

const interval = 5 * time.Second

var base = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

// scriptedSource returns queued responses in order and repeats the last one.
type scriptedSource struct {
	mu        sync.Mutex
	responses []response
	calls     int
	gate      chan struct{}
	entered   chan struct{}
}

type response struct {
	records []audit.Record
	err     error
}

func (s *scriptedSource) ListAll(context.Context) ([]audit.Record, error) {
	s.mu.Lock()
	idx := min(s.calls, len(s.responses)-1)
	s.calls++
	resp := s.responses[idx]
	s.mu.Unlock()

	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.gate != nil {
		<-s.gate
	}
	return resp.records, resp.err
}

func waitTimers(t *testing.T, clock *clockwork.FakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, n); err != nil {
		t.Fatalf("waiting for %d timers: %v", n, err)
	}
}

func pending(id string, at time.Time) audit.Record {
	return audit.Record{MeetingID: id, Title: "Meeting " + id, Status: audit.StatusPending, UpdatedAt: at}
}

func TestIdenticalCyclesUpdateOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	records := []audit.Record{pending("a", base), pending("b", base)}
	source := &scriptedSource{responses: []response{{records: records}}}
	p := reconcile.New(source, reconcile.WithClock(clock))

	var updates atomic.Int32
	if err := p.Start(interval, func([]audit.Record) { updates.Add(1) }, nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()

	waitTimers(t, clock, 1)
	clock.Advance(interval)
	waitTimers(t, clock, 1)
	clock.Advance(interval)
	waitTimers(t, clock, 1)

	if got := updates.Load(); got != 1 {
		t.Fatalf("expected exactly one update for identical cycles, got %d", got)
	}
	if len(p.Snapshot()) != 2 {
		t.Fatalf("unexpected snapshot: %+v", p.Snapshot())
	}
}

func TestUpdateFiresOnValueChange(t *testing.T) {
	clock := clockwork.NewFakeClock()
	completed := audit.Record{
		MeetingID: "a",
		Status:    audit.StatusCompleted,
		UpdatedAt: base.Add(time.Minute),
		Report:    &audit.Report{Summary: "done", RiskLevel: audit.RiskLow},
	}
	source := &scriptedSource{responses: []response{
		{records: []audit.Record{pending("a", base)}},
		{records: []audit.Record{completed}},
	}}
	p := reconcile.New(source, reconcile.WithClock(clock))

	var (
		mu       sync.Mutex
		received [][]audit.Record
	)
	err := p.Start(interval, func(r []audit.Record) {
		mu.Lock()
		received = append(received, r)
		mu.Unlock()
	}, nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()

	waitTimers(t, clock, 1)
	clock.Advance(interval)
	waitTimers(t, clock, 1)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("expected two updates, got %d", len(received))
	}
	if got := received[1][0]; got.Status != audit.StatusCompleted || got.Report == nil {
		t.Fatalf("expected completed record in second update, got %+v", got)
	}
}

func TestStopDiscardsInFlightFetch(t *testing.T) {
	clock := clockwork.NewFakeClock()
	source := &scriptedSource{
		responses: []response{{records: []audit.Record{pending("a", base)}}},
		gate:      make(chan struct{}),
		entered:   make(chan struct{}, 1),
	}
	p := reconcile.New(source, reconcile.WithClock(clock))

	var updates, errs atomic.Int32
	err := p.Start(interval,
		func([]audit.Record) { updates.Add(1) },
		func(error) { errs.Add(1) },
	)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	<-source.entered
	p.Stop()
	close(source.gate)
	p.Wait()

	if updates.Load() != 0 || errs.Load() != 0 {
		t.Fatalf("expected no callbacks after Stop, got %d updates %d errors", updates.Load(), errs.Load())
	}
	if len(p.Snapshot()) != 0 {
		t.Fatalf("expected discarded fetch to leave view untouched, got %+v", p.Snapshot())
	}
}

func TestStartWhileRunningFails(t *testing.T) {
	clock := clockwork.NewFakeClock()
	source := &scriptedSource{responses: []response{{}}}
	p := reconcile.New(source, reconcile.WithClock(clock))

	if err := p.Start(interval, nil, nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := p.Start(interval, nil, nil); !errors.Is(err, reconcile.ErrAlreadyPolling) {
		t.Fatalf("expected ErrAlreadyPolling, got %v", err)
	}
	p.Stop()
	p.Wait()
	if p.Running() {
		t.Fatal("expected poller idle after Stop")
	}
	if err := p.Start(interval, nil, nil); err != nil {
		t.Fatalf("restart after Stop failed: %v", err)
	}
	p.Stop()
	p.Stop()
}

func TestStartRejectsNonPositiveInterval(t *testing.T) {
	p := reconcile.New(&scriptedSource{responses: []response{{}}})
	if err := p.Start(0, nil, nil); err == nil {
		t.Fatal("expected error for zero interval")
	}
}

func TestFetchErrorKeepsLoopAlive(t *testing.T) {
	clock := clockwork.NewFakeClock()
	source := &scriptedSource{responses: []response{
		{err: errors.New("database is locked")},
		{records: []audit.Record{pending("a", base)}},
	}}
	p := reconcile.New(source, reconcile.WithClock(clock))

	var updates, errs atomic.Int32
	err := p.Start(interval,
		func([]audit.Record) { updates.Add(1) },
		func(error) { errs.Add(1) },
	)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()

	waitTimers(t, clock, 1)
	if errs.Load() != 1 || updates.Load() != 0 {
		t.Fatalf("after failing cycle: %d errors %d updates", errs.Load(), updates.Load())
	}
	clock.Advance(interval)
	waitTimers(t, clock, 1)
	if errs.Load() != 1 || updates.Load() != 1 {
		t.Fatalf("after recovery: %d errors %d updates", errs.Load(), updates.Load())
	}
}

func TestStaleFetchDoesNotRegressObservedRecord(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stale := audit.Record{MeetingID: "a", Status: audit.StatusAuditing, UpdatedAt: base}
	source := &scriptedSource{responses: []response{{records: []audit.Record{stale}}}}
	p := reconcile.New(source, reconcile.WithClock(clock))

	completed := audit.Record{
		MeetingID: "a",
		Status:    audit.StatusCompleted,
		UpdatedAt: base.Add(time.Hour),
		Report:    &audit.Report{RiskLevel: audit.RiskMedium},
	}
	if !p.Observe(completed) {
		t.Fatal("expected Observe to change empty view")
	}

	var updates atomic.Int32
	if err := p.Start(interval, func([]audit.Record) { updates.Add(1) }, nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()
	waitTimers(t, clock, 1)

	if updates.Load() != 0 {
		t.Fatalf("stale fetch should not count as a change, got %d updates", updates.Load())
	}
	if got := p.Snapshot()[0]; got.Status != audit.StatusCompleted {
		t.Fatalf("expected completed to survive, got %s", got.Status)
	}
}

func TestRecordsMissingFromFetchStayInView(t *testing.T) {
	clock := clockwork.NewFakeClock()
	source := &scriptedSource{responses: []response{
		{records: []audit.Record{pending("a", base), pending("b", base)}},
		{records: []audit.Record{pending("a", base)}},
	}}
	p := reconcile.New(source, reconcile.WithClock(clock))
	if err := p.Start(interval, nil, nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()

	waitTimers(t, clock, 1)
	clock.Advance(interval)
	waitTimers(t, clock, 1)

	snapshot := p.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("expected union of keys, got %+v", snapshot)
	}
}
