package config

import (
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/utils/ptr"
	"sigs.k8s.io/yaml"

	"github.com/llm-d/isocal/api/v1alpha1"
	"github.com/llm-d/isocal/pkg/calibration"
	"github.com/llm-d/isocal/pkg/core"
	"github.com/llm-d/isocal/pkg/kragten"
)

// LoadRun reads a CalibrationRun document. Relative input and standards paths
// are resolved against the document's directory.
func LoadRun(path string) (*v1alpha1.CalibrationRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run %s: %w", path, err)
	}

	var run v1alpha1.CalibrationRun
	if err := yaml.UnmarshalStrict(data, &run); err != nil {
		return nil, fmt.Errorf("decoding run %s: %w", path, err)
	}
	if err := run.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	run.Spec.Input = resolvePath(dir, run.Spec.Input)
	run.Spec.StandardsFile = resolvePath(dir, run.Spec.StandardsFile)
	return &run, nil
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// RunSettings is the effective configuration of one run.
type RunSettings struct {
	Strategy       core.StrategyType
	Propagation    kragten.Mode
	CoverageFactor float64

	// StandardsFiles are merged over the built-in catalog in order; later files win.
	StandardsFiles []string
}

// ForRun returns the effective settings for run: values set on the run
// override the tool configuration.
func (c *Config) ForRun(run *v1alpha1.CalibrationRun) (RunSettings, error) {
	strategy := c.Strategy
	if run.Spec.Strategy != "" {
		strategy = run.Spec.Strategy
	}
	st, err := calibration.ParseStrategyType(strategy)
	if err != nil {
		return RunSettings{}, err
	}

	mode, err := kragten.ParseMode(ptr.Deref(run.Spec.Propagation, c.Propagation))
	if err != nil {
		return RunSettings{}, err
	}

	s := RunSettings{
		Strategy:       st,
		Propagation:    mode,
		CoverageFactor: ptr.Deref(run.Spec.CoverageFactor, c.CoverageFactor),
	}
	for _, f := range []string{c.StandardsFile, run.Spec.StandardsFile} {
		if f != "" {
			s.StandardsFiles = append(s.StandardsFiles, f)
		}
	}
	return s, nil
}
