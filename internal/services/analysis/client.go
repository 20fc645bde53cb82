package analysis

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

	"meetaudit/internal/audit"
	"meetaudit/internal/services"
)

// ErrAnalysis marks a response the workflow flagged with a non-empty error field.
var ErrAnalysis = errors.New("analysis reported an error")

// HTTPDoer describes the HTTP client used by the analysis client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Input is the material under review.
type Input struct {
	Agenda     string `json:"agenda"`
	Transcript string `json:"transcript"`
	MoM        string `json:"mom"`
}

// ClientMood summarises how the client came across.
type ClientMood struct {
	Overall string   `json:"overall"`
	Signals []string `json:"signals"`
}

// Discrepancies compares the minutes against the transcript.
type Discrepancies struct {
	AccuratePoints  []string `json:"accurate_points"`
	IncorrectPoints []string `json:"incorrect_points"`
	MissingPoints   []string `json:"missing_points"`
}

// Result is the decoded verdict.
type Result struct {
	AgendaCoveragePercentage float64         `json:"agenda_coverage_percentage"`
	MoMAccuracyStatus        string          `json:"mom_accuracy_status"`
	ClientMood               ClientMood      `json:"client_mood"`
	OverallRiskLevel         audit.RiskLevel `json:"overall_risk_level"`
	OutOfScopeTopics         []string        `json:"out_of_scope_topics"`
	Discrepancies            Discrepancies   `json:"discrepancies"`
}

// Client calls the analysis webhook.
type Client struct {
	endpoint string
	http     HTTPDoer
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

// NewClient constructs an analysis client. A zero timeout leaves requests
// bounded only by the caller's context.
func NewClient(endpoint string, timeout time.Duration, opts ...Option) *Client {
	client := &Client{
		endpoint: strings.TrimSpace(endpoint),
		http:     &http.Client{Timeout: max(timeout, 0)},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type response struct {
	Result
	Error string `json:"error"`
}

// Analyze submits the input and waits for the verdict.
func (c *Client) Analyze(ctx context.Context, in Input) (Result, error) {
	if c.endpoint == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, "analysis", "analyze", "webhook url required (set analysis.webhook_url)", nil)
	}
	if strings.TrimSpace(in.Transcript) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "analysis", "analyze", "transcript required", nil)
	}

	body, err := json.Marshal(in)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "analysis", "analyze", "encode input", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "analysis", "analyze", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalService, "analysis", "analyze", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Result{}, services.Wrap(services.ErrExternalService, "analysis", "analyze",
			fmt.Sprintf("server error: %d", resp.StatusCode), errors.New(strings.TrimSpace(string(snippet))))
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, services.Wrap(services.ErrExternalService, "analysis", "analyze", "decode response", err)
	}
	if msg := strings.TrimSpace(decoded.Error); msg != "" {
		return Result{}, fmt.Errorf("%w: %s", ErrAnalysis, msg)
	}
	if level, ok := audit.ParseRiskLevel(string(decoded.OverallRiskLevel)); ok {
		decoded.OverallRiskLevel = level
	}
	decoded.OutOfScopeTopics = audit.NormalizeTopics(decoded.OutOfScopeTopics)
	return decoded.Result, nil
}
