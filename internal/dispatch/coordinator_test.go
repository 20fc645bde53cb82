package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"meetaudit/internal/audit"
	"meetaudit/internal/dispatch"
	"meetaudit/internal/notifications"
	"meetaudit/internal/services"
	"meetaudit/internal/services/calendar"
	"meetaudit/internal/services/meetingbaas"
	"meetaudit/internal/testsupport"
)

var now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

type memoryStore struct {
	mu       sync.Mutex
	records  map[string]audit.Record
	writes   []audit.Record
	getErr   error
	writeErr error
}

func newMemoryStore(records ...audit.Record) *memoryStore {
	s := &memoryStore{records: make(map[string]audit.Record)}
	for _, r := range records {
		s.records[r.MeetingID] = r
	}
	return s
}

func (s *memoryStore) Get(_ context.Context, id string) (*audit.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	r, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *memoryStore) Upsert(_ context.Context, r audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.records[r.MeetingID] = r
	s.writes = append(s.writes, r)
	return nil
}

func (s *memoryStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

type stubDispatcher struct {
	mu       sync.Mutex
	requests []meetingbaas.Request
	resp     meetingbaas.Response
	err      error
	gate     chan struct{}
	entered  chan struct{}
	onCall   func()
}

func (d *stubDispatcher) Dispatch(_ context.Context, req meetingbaas.Request) (meetingbaas.Response, error) {
	d.mu.Lock()
	d.requests = append(d.requests, req)
	d.mu.Unlock()
	if d.entered != nil {
		d.entered <- struct{}{}
	}
	if d.gate != nil {
		<-d.gate
	}
	if d.onCall != nil {
		d.onCall()
	}
	return d.resp, d.err
}

func (d *stubDispatcher) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.requests)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func meeting() calendar.Meeting {
	return calendar.Meeting{
		ID:             "evt-1",
		Summary:        "Quarterly review",
		Description:    "Go through numbers",
		Start:          now.Add(time.Hour),
		HangoutLink:    "https://meet.google.com/xyz",
		OrganizerEmail: "organizer@example.com",
	}
}

func TestStartAuditNoOpWhenAuditing(t *testing.T) {
	st := newMemoryStore(audit.Record{MeetingID: "evt-1", Status: audit.StatusAuditing, UpdatedAt: now})
	d := &stubDispatcher{}
	c := dispatch.New(st, d, dispatch.WithClock(clockwork.NewFakeClockAt(now)))

	_, err := c.StartAudit(context.Background(), meeting(), dispatch.Actor{})
	if !errors.Is(err, dispatch.ErrAlreadyInProgress) {
		t.Fatalf("expected ErrAlreadyInProgress, got %v", err)
	}
	if st.writeCount() != 0 || d.calls() != 0 {
		t.Fatalf("expected no writes and no dispatch, got %d writes %d calls", st.writeCount(), d.calls())
	}
}

func TestStartAuditNoJoinableLink(t *testing.T) {
	st := newMemoryStore()
	d := &stubDispatcher{}
	c := dispatch.New(st, d)

	m := meeting()
	m.HangoutLink = ""
	m.Location = ""
	_, err := c.StartAudit(context.Background(), m, dispatch.Actor{})
	if !errors.Is(err, dispatch.ErrNoJoinableLink) {
		t.Fatalf("expected ErrNoJoinableLink, got %v", err)
	}
	if st.writeCount() != 0 || d.calls() != 0 {
		t.Fatalf("expected zero store writes, got %d", st.writeCount())
	}
}

func TestStartAuditStoreFailureSkipsDispatch(t *testing.T) {
	st := newMemoryStore()
	st.writeErr = services.Wrap(services.ErrStore, "store", "upsert", "disk full", nil)
	d := &stubDispatcher{}
	c := dispatch.New(st, d)

	_, err := c.StartAudit(context.Background(), meeting(), dispatch.Actor{})
	if !errors.Is(err, services.ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if d.calls() != 0 {
		t.Fatal("dispatch must not be called for an unpersisted intent")
	}
}

func TestStartAuditDispatchFailureMarksFailed(t *testing.T) {
	st := newMemoryStore()
	d := &stubDispatcher{err: errors.New("http 502: bot pool exhausted")}
	notifier := &recordingNotifier{}
	c := dispatch.New(st, d,
		dispatch.WithClock(clockwork.NewFakeClockAt(now)),
		dispatch.WithNotifier(notifier),
	)

	_, err := c.StartAudit(context.Background(), meeting(), dispatch.Actor{})
	if !errors.Is(err, dispatch.ErrDispatch) {
		t.Fatalf("expected ErrDispatch, got %v", err)
	}
	if d.calls() != 1 {
		t.Fatalf("expected exactly one dispatch call, got %d", d.calls())
	}
	if len(st.writes) != 2 {
		t.Fatalf("expected pending then failed writes, got %d", len(st.writes))
	}
	if st.writes[0].Status != audit.StatusPending || st.writes[1].Status != audit.StatusFailed {
		t.Fatalf("unexpected write sequence: %s, %s", st.writes[0].Status, st.writes[1].Status)
	}
	if !st.writes[1].UpdatedAt.After(st.writes[0].UpdatedAt) {
		t.Fatal("expected failed record stamped after pending")
	}
	if st.writes[1].ErrorMessage != "http 502: bot pool exhausted" {
		t.Fatalf("unexpected error detail: %q", st.writes[1].ErrorMessage)
	}
	if len(notifier.events) != 1 || notifier.events[0] != notifications.EventDispatchFailed {
		t.Fatalf("unexpected notifications: %v", notifier.events)
	}
}

func TestStartAuditSuccessLeavesPending(t *testing.T) {
	st := newMemoryStore()
	d := &stubDispatcher{resp: meetingbaas.Response{BotID: "bot-9"}}
	c := dispatch.New(st, d, dispatch.WithClock(clockwork.NewFakeClockAt(now)))

	res, err := c.StartAudit(context.Background(), meeting(), dispatch.Actor{Email: "me@example.com"})
	if err != nil {
		t.Fatalf("StartAudit returned error: %v", err)
	}
	if res.BotID != "bot-9" || res.CorrelationID == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Record.Status != audit.StatusPending || res.Record.Title != "Quarterly review" {
		t.Fatalf("unexpected record: %+v", res.Record)
	}
	if st.writeCount() != 1 {
		t.Fatalf("expected a single optimistic write, got %d", st.writeCount())
	}

	req := d.requests[0]
	if req.JoinURL != "https://meet.google.com/xyz" || !req.Reserved || req.RequesterIdentity != "me@example.com" {
		t.Fatalf("unexpected dispatch request: %+v", req)
	}
	if req.AgendaText != "Go through numbers" || req.MeetingTitle != "Quarterly review" {
		t.Fatalf("unexpected meeting fields: %+v", req)
	}
}

func TestStartAuditRequesterFallback(t *testing.T) {
	tests := []struct {
		name      string
		actor     string
		organizer string
		want      string
	}{
		{name: "actor", actor: "a@example.com", organizer: "o@example.com", want: "a@example.com"},
		{name: "organizer", organizer: "o@example.com", want: "o@example.com"},
		{name: "default", want: "default@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &stubDispatcher{}
			c := dispatch.New(newMemoryStore(), d, dispatch.WithDefaultRequester("default@example.com"))
			m := meeting()
			m.OrganizerEmail = tt.organizer
			if _, err := c.StartAudit(context.Background(), m, dispatch.Actor{Email: tt.actor}); err != nil {
				t.Fatalf("StartAudit returned error: %v", err)
			}
			if got := d.requests[0].RequesterIdentity; got != tt.want {
				t.Fatalf("requester = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStartAuditLocationFallbackAndPastStart(t *testing.T) {
	d := &stubDispatcher{}
	c := dispatch.New(newMemoryStore(), d, dispatch.WithClock(clockwork.NewFakeClockAt(now)))
	m := meeting()
	m.HangoutLink = ""
	m.Location = "https://zoom.us/j/1"
	m.Start = now.Add(-time.Minute)
	if _, err := c.StartAudit(context.Background(), m, dispatch.Actor{}); err != nil {
		t.Fatalf("StartAudit returned error: %v", err)
	}
	if d.requests[0].JoinURL != "https://zoom.us/j/1" || d.requests[0].Reserved {
		t.Fatalf("unexpected request: %+v", d.requests[0])
	}
}

func TestStartAuditRedispatchAfterCompletedUsesGreaterTimestamp(t *testing.T) {
	completedAt := now.Add(time.Hour)
	st := newMemoryStore(audit.Record{
		MeetingID: "evt-1",
		Status:    audit.StatusCompleted,
		UpdatedAt: completedAt,
		Report:    &audit.Report{RiskLevel: audit.RiskLow},
	})
	c := dispatch.New(st, &stubDispatcher{}, dispatch.WithClock(clockwork.NewFakeClockAt(now)))

	res, err := c.StartAudit(context.Background(), meeting(), dispatch.Actor{})
	if err != nil {
		t.Fatalf("StartAudit returned error: %v", err)
	}
	if !res.Record.UpdatedAt.After(completedAt) {
		t.Fatalf("expected re-dispatch stamp after %s, got %s", completedAt, res.Record.UpdatedAt)
	}
	if res.Record.Report != nil {
		t.Fatal("expected previous report cleared on re-dispatch")
	}
}

func TestStartAuditRejectsConcurrentDispatch(t *testing.T) {
	d := &stubDispatcher{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	c := dispatch.New(newMemoryStore(), d)

	done := make(chan error, 1)
	go func() {
		_, err := c.StartAudit(context.Background(), meeting(), dispatch.Actor{})
		done <- err
	}()
	<-d.entered

	if _, err := c.StartAudit(context.Background(), meeting(), dispatch.Actor{}); !errors.Is(err, dispatch.ErrAlreadyInProgress) {
		t.Fatalf("expected ErrAlreadyInProgress, got %v", err)
	}
	close(d.gate)
	if err := <-done; err != nil {
		t.Fatalf("first StartAudit returned error: %v", err)
	}
	if d.calls() != 1 {
		t.Fatalf("expected one dispatch call, got %d", d.calls())
	}
}

func TestStartAuditWithSQLiteStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	c := dispatch.New(st, &stubDispatcher{err: errors.New("unreachable")}, dispatch.WithClock(clockwork.NewFakeClockAt(now)))

	if _, err := c.StartAudit(context.Background(), meeting(), dispatch.Actor{}); !errors.Is(err, dispatch.ErrDispatch) {
		t.Fatalf("expected ErrDispatch, got %v", err)
	}
	got, err := st.Get(context.Background(), "evt-1")
	if err != nil || got == nil {
		t.Fatalf("expected persisted record, got %+v err=%v", got, err)
	}
	if got.Status != audit.StatusFailed || got.ErrorMessage != "unreachable" {
		t.Fatalf("unexpected persisted record: %+v", got)
	}
}

func TestStartAuditCanceledMidDispatchStillMarksFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := &stubDispatcher{onCall: cancel}
	d.err = context.Canceled
	notifier := &recordingNotifier{}
	c := dispatch.New(st, d,
		dispatch.WithClock(clockwork.NewFakeClockAt(now)),
		dispatch.WithNotifier(notifier),
	)

	_, err := c.StartAudit(ctx, meeting(), dispatch.Actor{})
	if !errors.Is(err, dispatch.ErrDispatch) {
		t.Fatalf("expected ErrDispatch, got %v", err)
	}
	if errors.Is(err, services.ErrStore) {
		t.Fatalf("failed status should persist after cancellation, got %v", err)
	}
	got, err := st.Get(context.Background(), "evt-1")
	if err != nil || got == nil {
		t.Fatalf("expected persisted record, got %+v err=%v", got, err)
	}
	if got.Status != audit.StatusFailed {
		t.Fatalf("expected failed after canceled dispatch, got %s", got.Status)
	}
	if len(notifier.events) != 1 || notifier.events[0] != notifications.EventDispatchFailed {
		t.Fatalf("expected dispatch failure notification, got %v", notifier.events)
	}

	d.onCall = nil
	d.err = nil
	d.resp = meetingbaas.Response{BotID: "bot-2"}
	result, err := c.StartAudit(context.Background(), meeting(), dispatch.Actor{})
	if err != nil {
		t.Fatalf("retry after canceled dispatch: %v", err)
	}
	if result.BotID != "bot-2" || result.Record.Status != audit.StatusPending {
		t.Fatalf("unexpected retry result %+v", result)
	}
}
