package reconcile

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"meetaudit/internal/audit"
	"meetaudit/internal/logging"
	"meetaudit/internal/services"
)

// ErrAlreadyPolling is returned by Start while a loop is active.
var ErrAlreadyPolling = errors.New("poller already running")

// Lister fetches the full authoritative record set.
type Lister interface {
	ListAll(ctx context.Context) ([]audit.Record, error)
}

// UpdateFunc receives the merged view, ordered by UpdatedAt descending.
type UpdateFunc func(records []audit.Record)

// ErrorFunc receives fetch failures. The loop keeps running.
type ErrorFunc func(err error)

// Poller periodically reconciles the store into an owned view.
//
// Callbacks run on the poller goroutine and must not call Stop.
type Poller struct {
	source Lister
	clock  clockwork.Clock
	logger *slog.Logger

	mu      sync.Mutex
	view    map[string]audit.Record
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	// deliverMu serializes view merges and callbacks against Stop.
	deliverMu sync.Mutex
}

// Option customizes the poller.
type Option func(*Poller)

func WithClock(clock clockwork.Clock) Option {
	return func(p *Poller) {
		if clock != nil {
			p.clock = clock
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New constructs an idle poller.
func New(source Lister, opts ...Option) *Poller {
	p := &Poller{
		source: source,
		clock:  clockwork.NewRealClock(),
		logger: logging.NewNop(),
		view:   make(map[string]audit.Record),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "reconcile")
	return p
}

// Start runs one cycle immediately and then one per interval until Stop.
func (p *Poller) Start(interval time.Duration, onUpdate UpdateFunc, onError ErrorFunc) error {
	if interval <= 0 {
		return services.Wrap(services.ErrValidation, "reconcile", "start", "interval must be positive", nil)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrAlreadyPolling
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.running = true
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(ctx, p.done, interval, onUpdate, onError)
	p.logger.Debug("poller started", logging.Duration("interval", interval))
	return nil
}

// Stop cancels pending and future cycles. A fetch already in flight is
// abandoned; its result is discarded when it arrives.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()

	// Wait out a delivery that began before cancel.
	p.deliverMu.Lock()
	p.deliverMu.Unlock() //nolint:staticcheck // empty critical section is the barrier
	p.logger.Debug("poller stopped")
}

// Wait blocks until the goroutine from the most recent Start has exited.
// It does not stop the poller.
func (p *Poller) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether a loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Snapshot returns a copy of the current view.
func (p *Poller) Snapshot() []audit.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Observe merges a locally produced record, such as an optimistic pending
// write, into the view. It reports whether the view changed.
func (p *Poller) Observe(record audit.Record) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mergeLocked(record)
}

func (p *Poller) run(ctx context.Context, done chan struct{}, interval time.Duration, onUpdate UpdateFunc, onError ErrorFunc) {
	defer close(done)
	for {
		p.cycle(ctx, onUpdate, onError)
		select {
		case <-ctx.Done():
			return
		case <-p.clock.After(interval):
		}
	}
}

func (p *Poller) cycle(ctx context.Context, onUpdate UpdateFunc, onError ErrorFunc) {
	records, err := p.source.ListAll(ctx)

	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		logging.WarnWithContext(p.logger, "poll cycle failed", "poll_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "retrying on next interval"),
		)
		if onError != nil {
			onError(err)
		}
		return
	}

	p.mu.Lock()
	changed := false
	for _, record := range records {
		if p.mergeLocked(record) {
			changed = true
		}
	}
	var snapshot []audit.Record
	if changed {
		snapshot = p.snapshotLocked()
	}
	p.mu.Unlock()

	if changed {
		p.logger.Debug("view updated", logging.Int("records", len(snapshot)))
		if onUpdate != nil {
			onUpdate(snapshot)
		}
	}
}

func (p *Poller) mergeLocked(remote audit.Record) bool {
	local, ok := p.view[remote.MeetingID]
	if !ok {
		p.view[remote.MeetingID] = remote.Clone()
		return true
	}
	merged := audit.Reconcile(local, remote)
	if merged.Equal(local) {
		return false
	}
	p.view[remote.MeetingID] = merged
	return true
}

func (p *Poller) snapshotLocked() []audit.Record {
	out := make([]audit.Record, 0, len(p.view))
	for _, record := range p.view {
		out = append(out, record.Clone())
	}
	slices.SortFunc(out, func(a, b audit.Record) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.MeetingID, b.MeetingID)
	})
	return out
}
