package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"meetaudit/internal/config"
)

const userAgent = "meetaudit/0.1.0"

// Event identifies an audit lifecycle milestone.
type Event string

const (
	EventAuditDispatched Event = "audit_dispatched"
	EventDispatchFailed  Event = "dispatch_failed"
	EventAuditCompleted  Event = "audit_completed"
	EventAuditFailed     Event = "audit_failed"
	EventError           Event = "error"
	EventTest            Event = "test"
)

// Payload carries event fields keyed by name.
type Payload map[string]any

func (p Payload) str(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Service publishes audit events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		cfg:      cfg.Notifications,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	cfg      config.Notifications
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || n.client == nil || !n.enabled(event) {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventAuditDispatched, EventDispatchFailed:
		return n.cfg.Dispatch
	case EventAuditCompleted, EventAuditFailed:
		return n.cfg.Completion
	case EventError:
		return n.cfg.Errors
	case EventTest:
		return true
	default:
		return false
	}
}

func format(event Event, payload Payload) (message, bool) {
	title := payload.str("title")
	if title == "" {
		title = payload.str("meetingID")
	}
	switch event {
	case EventAuditDispatched:
		return message{
			title: "meetaudit - Bot Dispatched",
			body:  fmt.Sprintf("Bot scheduled for: %s", title),
			tags:  []string{"meetaudit", "dispatch"},
		}, true
	case EventDispatchFailed:
		return message{
			title:    "meetaudit - Dispatch Failed",
			body:     fmt.Sprintf("Failed to send bot to %s: %s", title, payload.str("error")),
			tags:     []string{"meetaudit", "dispatch", "failed"},
			priority: "high",
		}, true
	case EventAuditCompleted:
		body := fmt.Sprintf("Audit ready: %s", title)
		if risk := payload.str("riskLevel"); risk != "" {
			body = fmt.Sprintf("%s (risk: %s)", body, strings.ToUpper(risk))
		}
		msg := message{
			title: "meetaudit - Audit Complete",
			body:  body,
			tags:  []string{"meetaudit", "audit", "completed"},
		}
		if strings.EqualFold(payload.str("riskLevel"), "high") {
			msg.priority = "high"
		}
		return msg, true
	case EventAuditFailed:
		body := fmt.Sprintf("Audit failed: %s", title)
		if detail := payload.str("error"); detail != "" {
			body = fmt.Sprintf("%s\n%s", body, detail)
		}
		return message{
			title: "meetaudit - Audit Failed",
			body:  body,
			tags:  []string{"meetaudit", "audit", "failed"},
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("Error")
		if label := payload.str("context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		if detail := payload.str("error"); detail != "" {
			builder.WriteString(": ")
			builder.WriteString(detail)
		}
		return message{
			title:    "meetaudit - Error",
			body:     builder.String(),
			tags:     []string{"meetaudit", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "meetaudit - Test",
			body:     "Notification system test",
			tags:     []string{"meetaudit", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

// NewNoop returns a Service that drops every event.
func NewNoop() Service { return noopService{} }
