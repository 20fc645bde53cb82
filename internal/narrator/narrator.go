package narrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"meetaudit/internal/logging"
	"meetaudit/internal/services"
)

const defaultStillWorking = "Finishing up..."

var (
	// ErrOperationFailed wraps the operation's own error. It is the single
	// failure outcome regardless of how far narration had progressed.
	ErrOperationFailed = errors.New("narrated operation failed")
	// ErrAbandoned means the caller's context ended before the operation resolved.
	ErrAbandoned = errors.New("narration abandoned")
)

// Stage is one narration step held for Duration.
type Stage struct {
	Message  string
	Duration time.Duration
}

// State is a session's lifecycle position.
type State string

const (
	StatePending   State = "pending"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateAbandoned State = "abandoned"
)

// Session is the ephemeral view of one narrated run.
type Session struct {
	ID             string
	StageIndex     int
	CurrentMessage string
	StartedAt      time.Time
	State          State
}

// Terminal reports whether the session has an outcome.
func (s Session) Terminal() bool {
	return s.State != StatePending
}

// Observer sees every message change and, last, the terminal session.
type Observer func(Session)

// Operation is the real work being narrated.
type Operation[T any] func(ctx context.Context) (T, error)

// Outcome is the single terminal result of Run.
type Outcome[T any] struct {
	Session Session
	Value   T
	Err     error
}

// Narrator holds settings shared by every session.
type Narrator struct {
	clock        clockwork.Clock
	stillWorking string
	logger       *slog.Logger
}

// Option customizes the narrator.
type Option func(*Narrator)

func WithClock(clock clockwork.Clock) Option {
	return func(n *Narrator) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// WithStillWorkingMessage sets the message held once stages are exhausted.
func WithStillWorkingMessage(message string) Option {
	return func(n *Narrator) {
		if message = strings.TrimSpace(message); message != "" {
			n.stillWorking = message
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(n *Narrator) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// New constructs a narrator.
func New(opts ...Option) *Narrator {
	n := &Narrator{
		clock:        clockwork.NewRealClock(),
		stillWorking: defaultStillWorking,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = logging.NewComponentLogger(n.logger, "narrator")
	return n
}

// StillWorkingMessage returns the message held after the last stage.
func (n *Narrator) StillWorkingMessage() string {
	return n.stillWorking
}

type result[T any] struct {
	value T
	err   error
}

// Run starts op immediately and narrates stages until it resolves.
//
// Stage 0 is the initial message. Each later stage replaces the previous one
// when its predecessor's duration elapses. Cancelling ctx abandons the
// session and cancels the context passed to op.
func Run[T any](ctx context.Context, n *Narrator, stages []Stage, op Operation[T], observe Observer) Outcome[T] {
	if n == nil {
		n = New()
	}
	if observe == nil {
		observe = func(Session) {}
	}

	session := Session{
		ID:        uuid.NewString(),
		StartedAt: n.clock.Now(),
		State:     StatePending,
	}
	logger := logging.WithContext(services.WithSessionID(ctx, session.ID), n.logger)

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so the operation goroutine never blocks after Run has returned.
	results := make(chan result[T], 1)
	go func() {
		value, err := op(opCtx)
		results <- result[T]{value: value, err: err}
	}()

	var (
		timer  clockwork.Timer
		timerC <-chan time.Time
	)
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
	}
	defer stopTimer()

	show := func(index int) {
		session.StageIndex = index
		if index < len(stages) {
			session.CurrentMessage = stages[index].Message
			if timer == nil {
				timer = n.clock.NewTimer(stages[index].Duration)
			} else {
				timer.Reset(stages[index].Duration)
			}
			timerC = timer.Chan()
		} else {
			session.CurrentMessage = n.stillWorking
			timerC = nil
		}
		observe(session)
	}

	finish := func(r result[T]) Outcome[T] {
		stopTimer()
		out := Outcome[T]{Value: r.value}
		if r.err != nil {
			session.State = StateFailed
			out.Err = fmt.Errorf("%w: %w", ErrOperationFailed, r.err)
			logger.Info("narrated operation failed", logging.Error(r.err), logging.Int("stage_index", session.StageIndex))
		} else {
			session.State = StateSucceeded
			logger.Debug("narrated operation succeeded", logging.Int("stage_index", session.StageIndex))
		}
		out.Session = session
		observe(session)
		return out
	}

	show(0)
	for {
		select {
		case r := <-results:
			return finish(r)
		case <-ctx.Done():
			select {
			case r := <-results:
				return finish(r)
			default:
			}
			stopTimer()
			session.State = StateAbandoned
			logger.Info("narration abandoned", logging.Int("stage_index", session.StageIndex))
			observe(session)
			var zero T
			return Outcome[T]{Session: session, Value: zero, Err: fmt.Errorf("%w: %w", ErrAbandoned, ctx.Err())}
		case <-timerC:
			select {
			case r := <-results:
				return finish(r)
			default:
			}
			show(session.StageIndex + 1)
		}
	}
}
