package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/jonboulle/clockwork"

	"meetaudit/internal/api"
	"meetaudit/internal/audit"
	"meetaudit/internal/config"
	"meetaudit/internal/logging"
	"meetaudit/internal/notifications"
	"meetaudit/internal/reconcile"
	"meetaudit/internal/store"
)

// Daemon owns the poller, the ingestion API, and the single-instance lock.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	poller   *reconcile.Poller
	notifier notifications.Service
	clock    clockwork.Clock
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	mu       sync.Mutex
	statuses map[string]audit.Status

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option customizes the daemon.
type Option func(*Daemon)

// WithNotifier overrides the notifier built from configuration.
func WithNotifier(notifier notifications.Service) Option {
	return func(d *Daemon) {
		if notifier != nil {
			d.notifier = notifier
		}
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(d *Daemon) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		notifier: notifications.NewService(cfg),
		clock:    clockwork.NewRealClock(),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		statuses: make(map[string]audit.Status),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.poller = reconcile.New(st, reconcile.WithClock(d.clock), reconcile.WithLogger(logger))
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, seeds the view, and launches the poller
// and the ingestion API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another meetaudit daemon instance is already running")
	}

	if err := d.seed(ctx); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("seed audit view: %w", err)
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.poller.Start(d.cfg.PollInterval(), d.handleUpdate, d.handlePollError); err != nil {
		d.abortStart()
		return fmt.Errorf("start poller: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.poller.Stop()
		d.abortStart()
		return fmt.Errorf("start api: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("meetaudit daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
		logging.Duration("poll_interval", d.cfg.PollInterval()),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.poller.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("meetaudit daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Snapshot returns the daemon's reconciled view, newest first.
func (d *Daemon) Snapshot() []audit.Record {
	return d.poller.Snapshot()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	status := api.DaemonStatus{
		Running:      d.running.Load(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		APIAddress:   d.api.address(),
		Tracked:      len(d.poller.Snapshot()),
	}
	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("audit stats unavailable", logging.Error(err))
	}
	status.Stats = api.FromStats(stats)
	return status
}

// seed loads the current store contents so records that were already
// completed before startup do not notify again.
func (d *Daemon) seed(ctx context.Context) error {
	records, err := d.store.ListAll(ctx)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, record := range records {
		d.statuses[record.MeetingID] = record.Status
		d.poller.Observe(record)
	}
	return nil
}

func (d *Daemon) handleUpdate(records []audit.Record) {
	d.track(d.context(), records)
}

func (d *Daemon) handlePollError(err error) {
	logging.WarnWithContext(d.logger, "audit reconciliation cycle failed", "reconcile_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the state directory and database permissions"),
	)
}

func (d *Daemon) context() context.Context {
	if ctx := d.ctx; ctx != nil {
		return ctx
	}
	return context.Background()
}

type statusEvent struct {
	event   notifications.Event
	payload notifications.Payload
}

// track records status changes and publishes completion or failure once per
// change. Dispatch failures (pending to failed) are announced by the
// dispatch coordinator and are not repeated here.
func (d *Daemon) track(ctx context.Context, records []audit.Record) {
	var events []statusEvent

	d.mu.Lock()
	for _, record := range records {
		previous, known := d.statuses[record.MeetingID]
		d.statuses[record.MeetingID] = record.Status
		if known && previous == record.Status {
			continue
		}
		switch record.Status {
		case audit.StatusCompleted:
			payload := notifications.Payload{"title": record.Title, "meetingID": record.MeetingID}
			if record.Report != nil {
				payload["riskLevel"] = string(record.Report.RiskLevel)
			}
			events = append(events, statusEvent{event: notifications.EventAuditCompleted, payload: payload})
		case audit.StatusFailed:
			if previous == audit.StatusPending {
				continue
			}
			events = append(events, statusEvent{
				event:   notifications.EventAuditFailed,
				payload: notifications.Payload{"title": record.Title, "meetingID": record.MeetingID, "error": record.ErrorMessage},
			})
		}
	}
	d.mu.Unlock()

	for _, evt := range events {
		if err := d.notifier.Publish(ctx, evt.event, evt.payload); err != nil {
			d.logger.Warn("audit notification failed",
				logging.String("event", string(evt.event)),
				logging.Error(err),
			)
		}
	}
}
