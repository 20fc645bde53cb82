package meetingbaas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"meetaudit/internal/services"
)

const (
	apiKeyHeader       = "x-meeting-baas-api-key"
	defaultBotName     = "AI Meeting Auditor"
	defaultAgenda      = "No description provided"
	defaultHTTPTimeout = 30 * time.Second
)

// ErrRejected marks a dispatch the service answered with a non-2xx status.
var ErrRejected = errors.New("bot dispatch rejected")

// HTTPDoer describes the HTTP client used by the dispatch client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config captures the service endpoint and the defaults applied to every bot.
type Config struct {
	BaseURL               string
	APIKey                string
	BotName               string
	RecordingMode         string
	WebhookURL            string
	TranscriptionProvider string
	TimeoutSeconds        int
}

// Request describes one bot dispatch.
type Request struct {
	JoinURL           string
	DisplayName       string
	DesiredStartTime  time.Time
	Reserved          bool
	RequesterIdentity string
	MeetingTitle      string
	AgendaText        string
}

// Response is what the service returns for an accepted dispatch.
type Response struct {
	BotID string `json:"bot_id"`
}

// Client posts dispatch requests.
type Client struct {
	cfg  Config
	http HTTPDoer
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// NewClient constructs a dispatch client.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if strings.TrimSpace(cfg.BotName) == "" {
		cfg.BotName = defaultBotName
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{cfg: cfg, http: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type transcriptionConfig struct {
	Provider string `json:"provider"`
}

type extra struct {
	OrganizerEmail string `json:"organizer_email,omitempty"`
	Title          string `json:"title"`
	Agenda         string `json:"agenda"`
}

type botRequest struct {
	MeetingURL           string               `json:"meeting_url"`
	BotName              string               `json:"bot_name"`
	RecordingMode        string               `json:"recording_mode,omitempty"`
	Reserved             bool                 `json:"reserved"`
	EntryTime            string               `json:"entry_time,omitempty"`
	WebhookURL           string               `json:"webhook_url,omitempty"`
	TranscriptionEnabled bool                 `json:"transcription_enabled"`
	TranscriptionConfig  *transcriptionConfig `json:"transcription_config,omitempty"`
	Extra                extra                `json:"extra"`
}

// Dispatch sends one join request. Every failure is returned as is; nothing is retried.
func (c *Client) Dispatch(ctx context.Context, req Request) (Response, error) {
	if c.cfg.APIKey == "" {
		return Response{}, services.Wrap(services.ErrConfiguration, "meetingbaas", "dispatch", "api key required (set dispatch.api_key or MEETING_BAAS_API_KEY)", nil)
	}
	if strings.TrimSpace(req.JoinURL) == "" {
		return Response{}, services.Wrap(services.ErrValidation, "meetingbaas", "dispatch", "join url required", nil)
	}

	body, err := json.Marshal(c.buildPayload(req))
	if err != nil {
		return Response{}, services.Wrap(services.ErrValidation, "meetingbaas", "dispatch", "encode payload", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v2/bots", bytes.NewReader(body))
	if err != nil {
		return Response{}, services.Wrap(services.ErrValidation, "meetingbaas", "dispatch", "build request", err)
	}
	httpReq.Header.Set(apiKeyHeader, c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, services.Wrap(services.ErrExternalService, "meetingbaas", "dispatch", "request failed", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode >= http.StatusMultipleChoices {
		return Response{}, fmt.Errorf("%w: http %d: %s", ErrRejected, resp.StatusCode, errorMessage(raw))
	}

	var out Response
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return Response{}, services.Wrap(services.ErrExternalService, "meetingbaas", "dispatch", "decode response", err)
		}
	}
	return out, nil
}

func (c *Client) buildPayload(req Request) botRequest {
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		name = c.cfg.BotName
	}
	agenda := strings.TrimSpace(req.AgendaText)
	if agenda == "" {
		agenda = defaultAgenda
	}
	payload := botRequest{
		MeetingURL:           strings.TrimSpace(req.JoinURL),
		BotName:              name,
		RecordingMode:        c.cfg.RecordingMode,
		Reserved:             req.Reserved,
		WebhookURL:           c.cfg.WebhookURL,
		TranscriptionEnabled: c.cfg.TranscriptionProvider != "",
		Extra: extra{
			OrganizerEmail: strings.TrimSpace(req.RequesterIdentity),
			Title:          req.MeetingTitle,
			Agenda:         agenda,
		},
	}
	if !req.DesiredStartTime.IsZero() {
		payload.EntryTime = req.DesiredStartTime.Format(time.RFC3339)
	}
	if c.cfg.TranscriptionProvider != "" {
		payload.TranscriptionConfig = &transcriptionConfig{Provider: c.cfg.TranscriptionProvider}
	}
	return payload
}

// errorMessage pulls the service's "message" field when present.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
