package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"meetaudit/internal/narrator"
)

const analysisResponse = `{
	"agenda_coverage_percentage": 82,
	"mom_accuracy_status": "mostly accurate",
	"client_mood": {"overall": "cautious", "signals": ["asked about timeline twice"]},
	"overall_risk_level": "HIGH",
	"out_of_scope_topics": ["Mobile app", "mobile app"],
	"discrepancies": {"accurate_points": ["Budget agreed"], "incorrect_points": [], "missing_points": ["Launch date"]}
}`

func TestAnalyzeNarratesAndRendersResult(t *testing.T) {
	var received map[string]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, analysisResponse)
	})
	env := setupCLITestEnv(t, envOptions{analysis: handler})

	agenda := writeFile(t, "agenda.txt", "1. Budget\n2. Launch")
	transcript := writeFile(t, "transcript.txt", "We agreed the budget.")
	mom := writeFile(t, "mom.txt", "Budget agreed.")

	out, errOut, err := runCLI(t, []string{"analyze", "--agenda", agenda, "--transcript", transcript, "--mom", mom}, env.configPath)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	requireContains(t, errOut, "[1/4] Analyzing agenda coverage...")
	requireContains(t, out, "Agenda coverage:")
	requireContains(t, out, "82%")
	requireContains(t, out, "Mostly Accurate")
	requireContains(t, out, "High")
	requireContains(t, out, "Mobile app")
	requireNotContains(t, out, "Mobile app, mobile app")
	requireContains(t, out, "Launch date")

	if received["transcript"] != "We agreed the budget." || received["mom"] != "Budget agreed." {
		t.Fatalf("unexpected request body %+v", received)
	}
}

func TestAnalyzeReportsPipelineError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"error":"transcript too short"}`)
	})
	env := setupCLITestEnv(t, envOptions{analysis: handler})
	transcript := writeFile(t, "transcript.txt", "hi")

	_, _, err := runCLI(t, []string{"analyze", "--transcript", transcript}, env.configPath)
	if err == nil {
		t.Fatal("expected analysis error")
	}
	requireContains(t, err.Error(), "transcript too short")
}

func TestAnalyzeRequiresTranscript(t *testing.T) {
	env := setupCLITestEnv(t, envOptions{})
	empty := writeFile(t, "transcript.txt", "   ")
	if _, _, err := runCLI(t, []string{"analyze", "--transcript", empty}, env.configPath); err == nil {
		t.Fatal("expected empty transcript to fail")
	}
}

func TestStageMarker(t *testing.T) {
	stages := analysisStages(13 * time.Second)
	if len(stages) != 4 || stages[3].Message != "Checking for out-of-scope topics..." {
		t.Fatalf("unexpected stages %+v", stages)
	}
	if got := stageMarker(narrator.Session{StageIndex: 1}); got != "[2/4]" {
		t.Fatalf("stageMarker = %q", got)
	}
	if got := stageMarker(narrator.Session{StageIndex: 4}); got != "[...]" {
		t.Fatalf("stageMarker after stages = %q", got)
	}
}
