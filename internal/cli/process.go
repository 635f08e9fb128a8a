package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/llm-d/isocal/api/v1alpha1"
	"github.com/llm-d/isocal/internal/config"
	"github.com/llm-d/isocal/internal/ingest"
	"github.com/llm-d/isocal/internal/metrics"
	"github.com/llm-d/isocal/internal/report"
	"github.com/llm-d/isocal/pkg/batch"
	"github.com/llm-d/isocal/pkg/calibration"
)

func newProcessCmd(a *app) *cobra.Command {
	var output, metricsFile string

	c := &cobra.Command{
		Use:   "process RUN.yaml",
		Short: "Process a calibration run and print corrected results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := config.LoadRun(args[0])
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			rec, err := metrics.NewRecorder(reg)
			if err != nil {
				return err
			}

			outcome, perr := a.process(cmd, run, rec)
			setStatus(run, outcome, perr, time.Now())

			if output != "" {
				if err := writeStatus(output, run); err != nil {
					return err
				}
			}
			if metricsFile != "" {
				if err := metrics.WriteTextfile(metricsFile, reg); err != nil {
					return err
				}
			}
			if perr != nil {
				return perr
			}
			return printOutcome(cmd.OutOrStdout(), outcome, a.cfg.Decimals)
		},
	}

	f := c.Flags()
	f.StringVarP(&output, "output", "o", "", "Write the run with its status to this file")
	f.StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format to this file")
	f.String("strategy", config.DefaultStrategy, "Default calibration strategy: single-point-offset|two-point-linear|n-point-linear")
	f.String("propagation", config.DefaultPropagation, "Uncertainty propagation mode: parameters|anchors")
	f.Float64("coverage-factor", 2, "Coverage factor k of the control check")
	f.Int("peak", 2, "Peak number of the sample gas (0 keeps all peaks)")
	f.String("delimiter", ",", "Field delimiter of the instrument export")
	return c
}

// process runs one pass for run. Errors are returned for the caller to record
// in the run status; nothing is printed here.
func (a *app) process(cmd *cobra.Command, run *v1alpha1.CalibrationRun, obs batch.Observer) (*batch.Outcome, error) {
	ctx := cmd.Context()
	logger := logr.FromContextOrDiscard(ctx).WithValues("run", run.Name)

	settings, err := a.cfg.ForRun(run)
	if err != nil {
		return nil, err
	}
	cat, err := loadCatalog(settings.StandardsFiles...)
	if err != nil {
		return nil, err
	}
	replicates, err := ingest.ReadFile(run.Spec.Input, a.cfg.IngestOptions())
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded replicates", "input", run.Spec.Input, "rows", len(replicates), "standards", cat.Len())

	strategy, err := calibration.NewStrategy(settings.Strategy)
	if err != nil {
		return nil, err
	}

	b := batch.New(replicates,
		batch.WithCatalog(cat),
		batch.WithPropagation(settings.Propagation),
		batch.WithCoverageFactor(settings.CoverageFactor),
		batch.WithObserver(obs),
	)
	b.ExcludeRows(run.Spec.ExcludeRows...)
	b.SetAnchors(run.Spec.Anchors...)
	b.SetControls(run.Spec.Controls...)

	return b.Process(logr.NewContext(ctx, logger), strategy)
}

func writeStatus(path string, run *v1alpha1.CalibrationRun) error {
	data, err := yaml.Marshal(run)
	if err != nil {
		return fmt.Errorf("encoding run status: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing run status: %w", err)
	}
	return nil
}

func printOutcome(w io.Writer, o *batch.Outcome, decimals int) error {
	if _, err := fmt.Fprintf(w, "Run ID:   %s\nStrategy: %s\n\n", o.RunID, o.Strategy); err != nil {
		return err
	}
	if err := report.Write(w, report.Parameters(o.Fit, decimals)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	if err := report.Write(w, report.Results(o, decimals)); err != nil {
		return err
	}
	if len(o.Controls()) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		if err := report.Write(w, report.QAQC(o, decimals)); err != nil {
			return err
		}
	}
	for _, warn := range o.Warnings {
		if _, err := fmt.Fprintf(w, "warning: %v\n", warn); err != nil {
			return err
		}
	}
	return nil
}
