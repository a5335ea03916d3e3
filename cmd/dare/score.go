package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/darescore/dare/pkg/calculator"
	"github.com/darescore/dare/pkg/platform"
	"github.com/darescore/dare/pkg/scoring"
	"github.com/darescore/dare/pkg/surface"
)

func newScoreCmd() *cobra.Command {
	var opts scoreOpts

	cmd := &cobra.Command{
		Use:   "score <bundle.json>",
		Short: "Compute a Dare Score offline from a bundle of payloads",
		Long: `Reads a bundle {"candidate_id": ..., "payloads": [envelope, ...]}, runs
the platform calculators, aggregates families and prints the composite score.
Nothing is stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.path = args[0]
			return runScore(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "Scoring config file (default: nearest .dare/config.yaml)")
	cmd.Flags().StringVar(&opts.outputFmt, "output", "text", "Output format: text, markdown or json")

	return cmd
}

type scoreOpts struct {
	path       string
	configPath string
	outputFmt  string
}

// bundle is the offline scoring input.
type bundle struct {
	CandidateID string            `json:"candidate_id"`
	Payloads    []json.RawMessage `json:"payloads"`
}

func runScore(w io.Writer, opts scoreOpts) error {
	cfg, err := loadScoringConfig(opts.configPath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(opts.path)
	if err != nil {
		return fmt.Errorf("reading bundle: %w", err)
	}
	var b bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("parsing bundle: %w", err)
	}

	calcs := calculator.NewTunedSet(cfg.Calculators)
	metrics := make([]platform.Metrics, 0, len(b.Payloads))
	for i, raw := range b.Payloads {
		payload, err := platform.DecodeEnvelope(raw)
		if err != nil {
			return fmt.Errorf("payload %d: %w", i, err)
		}
		m, err := calcs.Calculate(payload)
		if err != nil {
			return fmt.Errorf("payload %d: %w", i, err)
		}
		metrics = append(metrics, m)
	}

	profile := platform.NewDigitalProfile(firstNonEmpty(b.CandidateID, "offline"), metrics, time.Now())
	score, err := scoring.CalculateCompositeScore(profile, cfg.Scoring.Weights, cfg.EngineOptions()...)
	if err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	score.CandidateID = profile.CandidateID
	return surface.ForFormat(opts.outputFmt).Render(w, &score)
}
