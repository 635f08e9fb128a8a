// Package config loads the isocal tool configuration and calibration run documents.
package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/llm-d/isocal/internal/ingest"
	"github.com/llm-d/isocal/internal/logging"
	"github.com/llm-d/isocal/pkg/calibration"
	"github.com/llm-d/isocal/pkg/kragten"
)

// Defaults
const (
	DefaultStrategy    = string(calibration.TwoPointLinearStrategy)
	DefaultPropagation = string(kragten.ModeParameters)
	DefaultDecimals    = 3

	// EnvPrefix is prepended to environment overrides, e.g. ISOCAL_LOG_LEVEL.
	EnvPrefix = "ISOCAL"
)

// Config is the tool configuration shared by every run.
type Config struct {
	// Strategy is the default calibration strategy for runs that do not set one.
	Strategy string `mapstructure:"strategy"`

	// Propagation is "parameters" or "anchors".
	Propagation string `mapstructure:"propagation"`

	// CoverageFactor is k in the control check |trueness| < k·u.
	CoverageFactor float64 `mapstructure:"coverageFactor"`

	// Decimals is the number of decimals printed in reports.
	Decimals int `mapstructure:"decimals"`

	// StandardsFile is a catalog merged over the built-in standards.
	StandardsFile string `mapstructure:"standardsFile"`

	Log    logging.Config `mapstructure:"log"`
	Ingest IngestConfig   `mapstructure:"ingest"`
}

// IngestConfig maps instrument export columns.
type IngestConfig struct {
	SampleColumn string `mapstructure:"sampleColumn"`
	ValueColumn  string `mapstructure:"valueColumn"`
	RowColumn    string `mapstructure:"rowColumn"`
	PeakColumn   string `mapstructure:"peakColumn"`
	FlagColumn   string `mapstructure:"flagColumn"`
	Peak         int    `mapstructure:"peak"`
	Delimiter    string `mapstructure:"delimiter"`
}

// flagKeys binds command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"strategy":        "strategy",
	"propagation":     "propagation",
	"coverage-factor": "coverageFactor",
	"decimals":        "decimals",
	"standards":       "standardsFile",
	"log-level":       "log.level",
	"log-development": "log.development",
	"peak":            "ingest.peak",
	"delimiter":       "ingest.delimiter",
}

func setDefaults(v *viper.Viper) {
	n2 := ingest.NitrogenOptions()
	v.SetDefault("strategy", DefaultStrategy)
	v.SetDefault("propagation", DefaultPropagation)
	v.SetDefault("coverageFactor", 2.0)
	v.SetDefault("decimals", DefaultDecimals)
	v.SetDefault("standardsFile", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("ingest.sampleColumn", n2.SampleColumn)
	v.SetDefault("ingest.valueColumn", n2.ValueColumn)
	v.SetDefault("ingest.rowColumn", n2.RowColumn)
	v.SetDefault("ingest.peakColumn", n2.PeakColumn)
	v.SetDefault("ingest.flagColumn", n2.FlagColumn)
	v.SetDefault("ingest.peak", n2.Peak)
	v.SetDefault("ingest.delimiter", string(n2.Comma))
}

// Load builds the configuration from defaults, the optional YAML file at path,
// ISOCAL_* environment variables and the changed flags in flags, in increasing
// order of precedence.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}

// Validate checks for invalid configuration values.
func (c *Config) Validate() error {
	if _, err := calibration.ParseStrategyType(c.Strategy); err != nil {
		return err
	}
	if _, err := kragten.ParseMode(c.Propagation); err != nil {
		return err
	}
	if c.CoverageFactor <= 0 {
		return fmt.Errorf("coverageFactor must be > 0, got %.2f", c.CoverageFactor)
	}
	if c.Decimals < 0 || c.Decimals > 12 {
		return fmt.Errorf("decimals must be between 0 and 12, got %d", c.Decimals)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Ingest.SampleColumn == "" || c.Ingest.ValueColumn == "" || c.Ingest.RowColumn == "" {
		return fmt.Errorf("ingest sampleColumn, valueColumn and rowColumn must be set")
	}
	if c.Ingest.Peak < 0 {
		return fmt.Errorf("ingest peak must be >= 0, got %d", c.Ingest.Peak)
	}
	if c.Ingest.Peak > 0 && c.Ingest.PeakColumn == "" {
		return fmt.Errorf("ingest peakColumn is required when peak is set")
	}
	if utf8.RuneCountInString(c.Ingest.Delimiter) != 1 {
		return fmt.Errorf("ingest delimiter must be a single character, got %q", c.Ingest.Delimiter)
	}
	return nil
}

// IngestOptions converts the ingest section to reader options.
func (c *Config) IngestOptions() ingest.Options {
	comma, _ := utf8.DecodeRuneInString(c.Ingest.Delimiter)
	return ingest.Options{
		SampleColumn: c.Ingest.SampleColumn,
		ValueColumn:  c.Ingest.ValueColumn,
		RowColumn:    c.Ingest.RowColumn,
		PeakColumn:   c.Ingest.PeakColumn,
		Peak:         c.Ingest.Peak,
		FlagColumn:   c.Ingest.FlagColumn,
		Comma:        comma,
	}
}
