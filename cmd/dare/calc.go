package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/darescore/dare/pkg/calculator"
	"github.com/darescore/dare/pkg/platform"
	"github.com/darescore/dare/pkg/surface"
)

func newCalcCmd() *cobra.Command {
	var opts calcOpts

	cmd := &cobra.Command{
		Use:   "calc <payload.json>",
		Short: "Compute the metrics of one platform payload",
		Long: `Reads a platform payload and prints its sub-scores, overall score and
recommendations. Without --platform the file must be an envelope
{"platform": ..., "payload": ...}.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.path = args[0]
			return runCalc(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.platform, "platform", "", "Platform of a bare payload file")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Scoring config file (default: nearest .dare/config.yaml)")
	cmd.Flags().StringVar(&opts.outputFmt, "output", "text", "Output format: text or json")

	return cmd
}

type calcOpts struct {
	path       string
	platform   string
	configPath string
	outputFmt  string
}

func runCalc(w io.Writer, opts calcOpts) error {
	cfg, err := loadScoringConfig(opts.configPath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(opts.path)
	if err != nil {
		return fmt.Errorf("reading payload: %w", err)
	}
	payload, err := decodePayloadFile(opts.platform, data)
	if err != nil {
		return err
	}
	m, err := calculator.NewTunedSet(cfg.Calculators).Calculate(payload)
	if err != nil {
		return fmt.Errorf("calculating %s: %w", payload.Platform(), err)
	}

	var r surface.MetricsRenderer = &surface.TerminalRenderer{}
	if opts.outputFmt == "json" {
		r = &surface.JSONRenderer{}
	}
	return r.RenderMetrics(w, &m)
}

func decodePayloadFile(p string, data []byte) (platform.Payload, error) {
	if p == "" {
		return platform.DecodeEnvelope(data)
	}
	parsed, err := platform.Parse(p)
	if err != nil {
		return nil, err
	}
	return platform.DecodePayload(parsed, data)
}
