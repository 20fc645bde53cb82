package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"meetaudit/internal/config"
	"meetaudit/internal/narrator"
	"meetaudit/internal/services/analysis"
)

var analysisStageMessages = []string{
	"Analyzing agenda coverage...",
	"Validating Minutes of Meeting...",
	"Detecting client sentiment...",
	"Checking for out-of-scope topics...",
}

// analysisStages returns the narration shown while the analysis webhook works.
func analysisStages(perStage time.Duration) []narrator.Stage {
	stages := make([]narrator.Stage, 0, len(analysisStageMessages))
	for _, message := range analysisStageMessages {
		stages = append(stages, narrator.Stage{Message: message, Duration: perStage})
	}
	return stages
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var (
		agendaPath     string
		transcriptPath string
		momPath        string
		jsonOut        bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a transcript against its agenda and minutes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			input, err := readAnalysisInput(agendaPath, transcriptPath, momPath)
			if err != nil {
				return err
			}

			client := ctx.analysisClient()
			n := narrator.New(
				narrator.WithStillWorkingMessage(cfg.Analysis.StillWorkingMessage),
				narrator.WithLogger(ctx.fileLogger()),
			)

			progress := cmd.ErrOrStderr()
			outcome := narrator.Run(cmd.Context(), n, analysisStages(cfg.StageDuration()),
				func(opCtx context.Context) (analysis.Result, error) {
					return client.Analyze(opCtx, input)
				},
				func(session narrator.Session) {
					if !session.Terminal() {
						fmt.Fprintf(progress, "%s %s\n", stageMarker(session), session.CurrentMessage)
					}
				},
			)
			if outcome.Err != nil {
				return outcome.Err
			}

			if jsonOut {
				return writeJSON(cmd, outcome.Value)
			}
			out := cmd.OutOrStdout()
			printAnalysis(out, outcome.Value, shouldColorize(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&agendaPath, "agenda", "", "Path to the meeting agenda")
	cmd.Flags().StringVar(&transcriptPath, "transcript", "", "Path to the meeting transcript (required)")
	cmd.Flags().StringVar(&momPath, "mom", "", "Path to the minutes of meeting")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("transcript")
	return cmd
}

func stageMarker(session narrator.Session) string {
	total := len(analysisStageMessages)
	if session.StageIndex >= total {
		return "[...]"
	}
	return fmt.Sprintf("[%d/%d]", session.StageIndex+1, total)
}

func readAnalysisInput(agendaPath, transcriptPath, momPath string) (analysis.Input, error) {
	var input analysis.Input
	var err error
	if input.Agenda, err = readOptionalFile(agendaPath); err != nil {
		return input, fmt.Errorf("read agenda: %w", err)
	}
	if input.Transcript, err = readOptionalFile(transcriptPath); err != nil {
		return input, fmt.Errorf("read transcript: %w", err)
	}
	if strings.TrimSpace(input.Transcript) == "" {
		return input, fmt.Errorf("transcript %s is empty", transcriptPath)
	}
	if input.MoM, err = readOptionalFile(momPath); err != nil {
		return input, fmt.Errorf("read minutes: %w", err)
	}
	return input, nil
}

func readOptionalFile(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func printAnalysis(out io.Writer, result analysis.Result, colorize bool) {
	for _, line := range renderSectionHeader("Meeting analysis", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderField("Agenda coverage", fmt.Sprintf("%.0f%%", result.AgendaCoveragePercentage)))
	fmt.Fprintln(out, renderField("MoM accuracy", titleOrDash(result.MoMAccuracyStatus)))
	fmt.Fprintln(out, renderField("Client mood", titleOrDash(result.ClientMood.Overall)))
	risk := "-"
	if result.OverallRiskLevel != "" {
		risk = titleCaser.String(string(result.OverallRiskLevel))
	}
	fmt.Fprintln(out, renderField("Risk", renderBadge(risk, riskKind(result.OverallRiskLevel), colorize)))
	fmt.Fprintln(out, renderField("Out of scope", joinOrDash(result.OutOfScopeTopics)))
	printBullets(out, "Mood signals", result.ClientMood.Signals)

	var rows [][]string
	appendPoints := func(kind string, points []string) {
		for _, point := range points {
			rows = append(rows, []string{kind, point})
		}
	}
	appendPoints("Accurate", result.Discrepancies.AccuratePoints)
	appendPoints("Incorrect", result.Discrepancies.IncorrectPoints)
	appendPoints("Missing", result.Discrepancies.MissingPoints)
	if len(rows) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable([]column{
			leftColumn("Minutes"),
			wrappedColumn("Point", pointColumnWidth),
		}, rows))
	}
}

func titleOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return titleCaser.String(value)
}

