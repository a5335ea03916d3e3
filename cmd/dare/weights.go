package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/darescore/dare/pkg/platform"
)

func newWeightsCmd() *cobra.Command {
	var (
		configPath string
		outputFmt  string
	)

	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Print the effective family weights",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWeights(cmd.OutOrStdout(), configPath, outputFmt)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Scoring config file (default: nearest .dare/config.yaml)")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or yaml")

	return cmd
}

func runWeights(w io.Writer, configPath, outputFmt string) error {
	cfg, err := loadScoringConfig(configPath)
	if err != nil {
		return err
	}
	weights := cfg.Scoring.Weights

	if outputFmt == "yaml" {
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(weights)
	}

	norm := weights.Normalized()
	for _, f := range platform.Families {
		fmt.Fprintf(w, "%-22s %.2f  (%.0f%%)\n", f, weights.For(f), norm.For(f)*100)
	}
	return nil
}
