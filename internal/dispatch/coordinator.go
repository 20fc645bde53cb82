package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"meetaudit/internal/audit"
	"meetaudit/internal/logging"
	"meetaudit/internal/notifications"
	"meetaudit/internal/services"
	"meetaudit/internal/services/calendar"
	"meetaudit/internal/services/meetingbaas"
)

var (
	// ErrAlreadyInProgress means a dispatch for the meeting is unresolved. No writes happened.
	ErrAlreadyInProgress = errors.New("audit already in progress")
	// ErrNoJoinableLink means the meeting has neither a conferencing link nor a location.
	ErrNoJoinableLink = errors.New("no joinable meeting link")
	// ErrDispatch means the bot service refused or could not be reached. The record is failed.
	ErrDispatch = errors.New("bot dispatch failed")
)

// RecordStore is the slice of the store the coordinator needs.
type RecordStore interface {
	Get(ctx context.Context, meetingID string) (*audit.Record, error)
	Upsert(ctx context.Context, record audit.Record) error
}

// Dispatcher sends a bot into a meeting.
type Dispatcher interface {
	Dispatch(ctx context.Context, req meetingbaas.Request) (meetingbaas.Response, error)
}

// Actor identifies who asked for the audit.
type Actor struct {
	Email string
}

// Result describes an accepted dispatch.
type Result struct {
	Record        audit.Record
	BotID         string
	CorrelationID string
}

// Coordinator runs StartAudit. It is safe for concurrent use.
type Coordinator struct {
	store            RecordStore
	dispatcher       Dispatcher
	notifier         notifications.Service
	logger           *slog.Logger
	clock            clockwork.Clock
	defaultRequester string

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// Option customizes the coordinator.
type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithNotifier(notifier notifications.Service) Option {
	return func(c *Coordinator) {
		if notifier != nil {
			c.notifier = notifier
		}
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithDefaultRequester sets the identity used when neither the actor nor the
// meeting organizer is known.
func WithDefaultRequester(email string) Option {
	return func(c *Coordinator) {
		c.defaultRequester = strings.TrimSpace(email)
	}
}

// New constructs a coordinator.
func New(store RecordStore, dispatcher Dispatcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:      store,
		dispatcher: dispatcher,
		notifier:   notifications.NewNoop(),
		logger:     logging.NewNop(),
		clock:      clockwork.NewRealClock(),
		inFlight:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "dispatch")
	return c
}

// StartAudit dispatches a bot into meeting on behalf of actor.
func (c *Coordinator) StartAudit(ctx context.Context, meeting calendar.Meeting, actor Actor) (Result, error) {
	meetingID := strings.TrimSpace(meeting.ID)
	if meetingID == "" {
		return Result{}, services.Wrap(services.ErrValidation, "dispatch", "start audit", "meeting id required", nil)
	}

	correlationID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		correlationID = uuid.NewString()
		ctx = services.WithRequestID(ctx, correlationID)
	}
	ctx = services.WithMeetingID(ctx, meetingID)
	logger := logging.WithContext(ctx, c.logger)

	if !c.acquire(meetingID) {
		logger.Info("dispatch skipped", logging.String("decision_reason", "dispatch already running in this process"))
		return Result{}, fmt.Errorf("%w: %s", ErrAlreadyInProgress, meetingID)
	}
	defer c.release(meetingID)

	current, err := c.store.Get(ctx, meetingID)
	if err != nil {
		return Result{}, fmt.Errorf("load audit record: %w", err)
	}
	record := audit.Empty(meetingID)
	if current != nil {
		record = *current
	}
	if !audit.CanDispatch(record) {
		logger.Info("dispatch skipped", logging.String(logging.FieldStatus, string(record.Status)))
		return Result{}, fmt.Errorf("%w: %s is %s", ErrAlreadyInProgress, meetingID, record.Status)
	}

	joinURL, ok := meeting.JoinURL()
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrNoJoinableLink, meetingID)
	}

	now := c.clock.Now()
	requester := c.resolveRequester(meeting, actor)
	pending, err := audit.Transition(record, audit.StatusPending, audit.NextTimestamp(record.UpdatedAt, now))
	if err != nil {
		return Result{}, err
	}
	if title := strings.TrimSpace(meeting.Summary); title != "" {
		pending.Title = title
	}
	pending.OrganizerEmail = requester

	if err := c.store.Upsert(ctx, pending); err != nil {
		logging.ErrorWithContext(logger, "persist pending audit failed", "audit_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the state directory and retry"),
		)
		return Result{}, fmt.Errorf("persist pending audit: %w", err)
	}
	logger.Info("audit pending", logging.String(logging.FieldStatus, string(pending.Status)))

	resp, dispatchErr := c.dispatcher.Dispatch(ctx, meetingbaas.Request{
		JoinURL:           joinURL,
		DesiredStartTime:  meeting.Start,
		Reserved:          meeting.Start.After(now),
		RequesterIdentity: requester,
		MeetingTitle:      meeting.Summary,
		AgendaText:        meeting.Description,
	})
	if dispatchErr != nil {
		return Result{}, c.markFailed(ctx, logger, pending, dispatchErr)
	}

	logger.Info("bot dispatched", logging.String("bot_id", resp.BotID))
	c.publish(ctx, logger, notifications.EventAuditDispatched, notifications.Payload{
		"title":     pending.Title,
		"meetingID": meetingID,
	})
	return Result{Record: pending, BotID: resp.BotID, CorrelationID: correlationID}, nil
}

// markFailed records the dispatch failure. It runs detached from ctx's
// cancellation: a caller that gives up mid-dispatch must still leave the
// record failed, or CanDispatch refuses every later attempt.
func (c *Coordinator) markFailed(ctx context.Context, logger *slog.Logger, pending audit.Record, cause error) error {
	ctx = context.WithoutCancel(ctx)
	dispatchErr := fmt.Errorf("%w: %s: %w", ErrDispatch, pending.MeetingID, cause)

	failed, err := audit.Transition(pending, audit.StatusFailed, audit.NextTimestamp(pending.UpdatedAt, c.clock.Now()))
	if err != nil {
		return errors.Join(dispatchErr, err)
	}
	failed.ErrorMessage = cause.Error()

	if err := c.store.Upsert(ctx, failed); err != nil {
		logging.ErrorWithContext(logger, "persist failed audit failed", "audit_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "record stays pending; check the state directory"),
		)
		dispatchErr = errors.Join(dispatchErr, fmt.Errorf("persist failed audit: %w", err))
	}

	logging.WarnWithContext(logger, "bot dispatch failed", "dispatch_failed",
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, "fix the meeting link or credentials, then start the audit again"),
	)
	c.publish(ctx, logger, notifications.EventDispatchFailed, notifications.Payload{
		"title":     pending.Title,
		"meetingID": pending.MeetingID,
		"error":     cause,
	})
	return dispatchErr
}

func (c *Coordinator) resolveRequester(meeting calendar.Meeting, actor Actor) string {
	for _, candidate := range []string{actor.Email, meeting.OrganizerEmail, c.defaultRequester} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (c *Coordinator) acquire(meetingID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[meetingID]; busy {
		return false
	}
	c.inFlight[meetingID] = struct{}{}
	return true
}

func (c *Coordinator) release(meetingID string) {
	c.mu.Lock()
	delete(c.inFlight, meetingID)
	c.mu.Unlock()
}

func (c *Coordinator) publish(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if err := c.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.Error(err),
			logging.String("notification_event", string(event)),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}
