package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"meetaudit/internal/services"
)

const defaultHTTPTimeout = 15 * time.Second

// HTTPDoer describes the HTTP client used by the calendar client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Meeting is one calendar event as consumed by the audit flow.
type Meeting struct {
	ID             string    `json:"id"`
	Summary        string    `json:"summary"`
	Description    string    `json:"description,omitempty"`
	Start          time.Time `json:"start"`
	HangoutLink    string    `json:"hangout_link,omitempty"`
	Location       string    `json:"location,omitempty"`
	OrganizerEmail string    `json:"organizer_email,omitempty"`
}

// JoinURL prefers the conferencing link and falls back to the location.
func (m Meeting) JoinURL() (string, bool) {
	if link := strings.TrimSpace(m.HangoutLink); link != "" {
		return link, true
	}
	if loc := strings.TrimSpace(m.Location); loc != "" {
		return loc, true
	}
	return "", false
}

// Config captures the settings needed to query a calendar.
type Config struct {
	BaseURL     string
	AccessToken string
	CalendarID  string
	MaxResults  int
}

// Client lists events from one calendar.
type Client struct {
	cfg   Config
	http  HTTPDoer
	clock clockwork.Clock
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

// WithClock sets the clock used for the timeMin lower bound.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewClient constructs a calendar client.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.AccessToken = strings.TrimSpace(cfg.AccessToken)
	if strings.TrimSpace(cfg.CalendarID) == "" {
		cfg.CalendarID = "primary"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	client := &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: defaultHTTPTimeout},
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Upcoming returns single-instance events starting from now, ordered by start time.
func (c *Client) Upcoming(ctx context.Context) ([]Meeting, error) {
	params := url.Values{}
	params.Set("timeMin", c.clock.Now().UTC().Format(time.RFC3339))
	params.Set("maxResults", strconv.Itoa(c.cfg.MaxResults))
	params.Set("singleEvents", "true")
	params.Set("orderBy", "startTime")

	var payload struct {
		Items []event `json:"items"`
	}
	if err := c.get(ctx, "list events", c.eventsURL()+"?"+params.Encode(), &payload); err != nil {
		return nil, err
	}

	meetings := make([]Meeting, 0, len(payload.Items))
	for _, item := range payload.Items {
		meetings = append(meetings, item.meeting())
	}
	return meetings, nil
}

// Event fetches one event by id.
func (c *Client) Event(ctx context.Context, eventID string) (Meeting, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return Meeting{}, services.Wrap(services.ErrValidation, "calendar", "get event", "event id required", nil)
	}
	var item event
	if err := c.get(ctx, "get event", c.eventsURL()+"/"+url.PathEscape(eventID), &item); err != nil {
		return Meeting{}, err
	}
	return item.meeting(), nil
}

func (c *Client) eventsURL() string {
	return fmt.Sprintf("%s/calendars/%s/events", c.cfg.BaseURL, url.PathEscape(c.cfg.CalendarID))
}

func (c *Client) get(ctx context.Context, operation, endpoint string, out any) error {
	if c.cfg.AccessToken == "" {
		return services.Wrap(services.ErrConfiguration, "calendar", operation, "access token required (set calendar.access_token or GOOGLE_ACCESS_TOKEN)", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, "calendar", operation, "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternalService, "calendar", operation, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "calendar", operation, "event not found", nil)
	case resp.StatusCode >= http.StatusMultipleChoices:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return services.Wrap(services.ErrExternalService, "calendar", operation,
			fmt.Sprintf("http %d", resp.StatusCode), errors.New(strings.TrimSpace(string(body))))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrExternalService, "calendar", operation, "decode response", err)
	}
	return nil
}

type event struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Location    string `json:"location"`
	HangoutLink string `json:"hangoutLink"`
	Start       struct {
		DateTime string `json:"dateTime"`
		Date     string `json:"date"`
	} `json:"start"`
	Organizer struct {
		Email string `json:"email"`
	} `json:"organizer"`
}

func (e event) meeting() Meeting {
	m := Meeting{
		ID:             e.ID,
		Summary:        strings.TrimSpace(e.Summary),
		Description:    e.Description,
		HangoutLink:    strings.TrimSpace(e.HangoutLink),
		Location:       strings.TrimSpace(e.Location),
		OrganizerEmail: strings.TrimSpace(e.Organizer.Email),
	}
	if t, err := time.Parse(time.RFC3339, e.Start.DateTime); err == nil {
		m.Start = t
	} else if t, err := time.Parse(time.DateOnly, e.Start.Date); err == nil {
		m.Start = t
	}
	return m
}
