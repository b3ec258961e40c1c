package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"carelink/internal/analysis"
	"carelink/internal/config"
	"carelink/internal/document"
	"carelink/internal/goal"
	"carelink/internal/service"
)

var weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func render(w io.Writer, format string, v interface{}) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", format)
	}
}

// offlineConfig is used by commands that never touch the server: defaults,
// overlaid with the config file when one is readable.
func offlineConfig() *config.Config {
	if _, err := os.Stat(configPath); err == nil {
		if cfg, err := config.LoadConfig(configPath); err == nil {
			return cfg
		}
	}
	return config.Default()
}

type extractOutput struct {
	Document      string                `json:"document" yaml:"document"`
	Format        document.Format       `json:"format" yaml:"format"`
	UsingFallback bool                  `json:"using_fallback" yaml:"using_fallback"`
	Result        goal.ExtractionResult `json:"result" yaml:"result"`
}

func extractCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract goals from a care plan document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cfg := offlineConfig()
			docs := document.NewRetriever(cfg.Documents, zerolog.Nop())
			text, err := docs.Retrieve(cmd.Context(), document.Source{Name: filepath.Base(args[0]), Data: data})
			if err != nil {
				return err
			}
			analyzer, err := analysis.New(cfg.Analysis)
			if err != nil {
				return err
			}
			res, err := analyzer.ProcessText(cmd.Context(), text.Text)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), format, extractOutput{
				Document:      filepath.Base(args[0]),
				Format:        text.Format,
				UsingFallback: text.UsingFallback,
				Result:        res,
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "json", "output format: json or yaml")
	return cmd
}

func evaluateCmd() *cobra.Command {
	var (
		target  int
		current float64
		format  string
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate one progress value against a step goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			g := goal.Goal{Type: goal.TypeSteps, Target: target, Frequency: goal.FrequencyDaily}
			snap, err := goal.Evaluate(g, current)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), format, snap)
		},
	}
	cmd.Flags().IntVar(&target, "target", goal.DefaultStepTarget, "daily step target")
	cmd.Flags().Float64Var(&current, "current", 0, "steps taken so far")
	cmd.Flags().StringVarP(&format, "format", "o", "json", "output format: json or yaml")
	return cmd
}

func weekCmd() *cobra.Command {
	var (
		target int
		values string
		demo   bool
		format string
	)
	cmd := &cobra.Command{
		Use:   "week",
		Short: "Roll up a week of progress values",
		Long: "Values are comma separated, either bare numbers (labelled Mon..Sun) " +
			"or period=value pairs, e.g. --values Mon=4200,Tue=5100.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var samples []goal.ProgressSample
			if demo {
				samples = service.DemoWeek()
			} else {
				var err error
				if samples, err = parseSamples(values); err != nil {
					return err
				}
			}
			g := goal.Goal{Type: goal.TypeSteps, Target: target, Frequency: goal.FrequencyDaily}
			report, err := goal.EvaluateWeek(g, samples)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), format, report)
		},
	}
	cmd.Flags().IntVar(&target, "target", goal.DefaultStepTarget, "daily step target")
	cmd.Flags().StringVar(&values, "values", "", "comma separated values or period=value pairs")
	cmd.Flags().BoolVar(&demo, "demo", false, "use the built-in demo week")
	cmd.Flags().StringVarP(&format, "format", "o", "json", "output format: json or yaml")
	return cmd
}

func parseSamples(raw string) ([]goal.ProgressSample, error) {
	var samples []goal.ProgressSample
	for i, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		period := fmt.Sprintf("Day %d", i+1)
		if i < len(weekdays) {
			period = weekdays[i]
		}
		if k, v, ok := strings.Cut(part, "="); ok {
			period, part = strings.TrimSpace(k), strings.TrimSpace(v)
		}
		value, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", part, err)
		}
		samples = append(samples, goal.ProgressSample{Period: period, Value: value})
	}
	return samples, nil
}
