package analysis_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"meetaudit/internal/audit"
	"meetaudit/internal/services"
	"meetaudit/internal/services/analysis"
)

func TestAnalyzeDecodesVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in analysis.Input
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode input: %v", err)
		}
		if in.Agenda != "agenda" || in.Transcript != "transcript" || in.MoM != "mom" {
			t.Errorf("unexpected input: %+v", in)
		}
		_, _ = w.Write([]byte(`{
			"agenda_coverage_percentage": 82.5,
			"mom_accuracy_status": "Mostly accurate",
			"client_mood": {"overall": "Positive", "signals": ["thanked team", "asked for timeline"]},
			"overall_risk_level": "HIGH",
			"out_of_scope_topics": ["Pricing", "pricing"],
			"discrepancies": {"accurate_points": ["a"], "incorrect_points": [], "missing_points": ["m"]}
		}`))
	}))
	defer server.Close()

	client := analysis.NewClient(server.URL, 0)
	result, err := client.Analyze(context.Background(), analysis.Input{Agenda: "agenda", Transcript: "transcript", MoM: "mom"})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if result.AgendaCoveragePercentage != 82.5 || result.OverallRiskLevel != audit.RiskHigh {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.ClientMood.Signals) != 2 || result.ClientMood.Signals[0] != "thanked team" {
		t.Fatalf("expected ordered signals, got %v", result.ClientMood.Signals)
	}
	if len(result.OutOfScopeTopics) != 1 {
		t.Fatalf("expected de-duplicated topics, got %v", result.OutOfScopeTopics)
	}
	if len(result.Discrepancies.MissingPoints) != 1 {
		t.Fatalf("unexpected discrepancies: %+v", result.Discrepancies)
	}
}

func TestAnalyzeErrorField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"transcript too short"}`))
	}))
	defer server.Close()

	_, err := analysis.NewClient(server.URL, 0).Analyze(context.Background(), analysis.Input{Transcript: "hi"})
	if !errors.Is(err, analysis.ErrAnalysis) {
		t.Fatalf("expected ErrAnalysis, got %v", err)
	}
}

func TestAnalyzeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := analysis.NewClient(server.URL, 0).Analyze(context.Background(), analysis.Input{Transcript: "hi"})
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
}

func TestAnalyzeRequiresEndpoint(t *testing.T) {
	_, err := analysis.NewClient("", 0).Analyze(context.Background(), analysis.Input{Transcript: "hi"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
