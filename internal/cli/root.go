// Package cli implements the isocal command line.
package cli

import (
	"context"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/llm-d/isocal/internal/config"
	"github.com/llm-d/isocal/internal/logging"
	"github.com/llm-d/isocal/pkg/catalog"
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries state prepared by the root command for its subcommands.
type app struct {
	configFile string
	cfg        *config.Config
}

// NewRootCmd builds the isocal command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "isocal",
		Short:        "Calibrate IRMS isotope measurements against reference materials",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg

			logger, err := logging.NewLogger(cfg.Log)
			if err != nil {
				return err
			}
			logging.SetLogger(logger)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(logr.NewContext(ctx, logger))
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "Configuration file (YAML)")
	pf.String("log-level", "info", "Log level: info|debug|trace|error")
	pf.Bool("log-development", false, "Human-readable console logging")
	pf.String("standards", "", "Reference material catalog merged over the built-in standards")
	pf.Int("decimals", config.DefaultDecimals, "Decimals printed in reports")

	cmd.AddCommand(newProcessCmd(a), newStandardsCmd(a), newVersionCmd())
	return cmd
}

// loadCatalog merges files over the built-in standards, in order, and makes
// the result the process-wide catalog.
func loadCatalog(files ...string) (*catalog.Catalog, error) {
	c := catalog.Builtin()
	for _, f := range files {
		materials, err := catalog.LoadFile(f)
		if err != nil {
			return nil, err
		}
		if c, err = c.Merge(materials...); err != nil {
			return nil, err
		}
	}
	if err := catalog.Reload(c); err != nil {
		return nil, err
	}
	return c, nil
}
