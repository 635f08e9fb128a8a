// Package ingest reads delimited instrument exports into replicate measurements.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/llm-d/isocal/pkg/core"
)

// ErrMissingColumns is returned when the header lacks a required column.
var ErrMissingColumns = errors.New("missing required columns")

// Options maps export columns onto replicate fields. Column names are compared
// after collapsing runs of whitespace, so "Identifier  1" matches "Identifier 1".
type Options struct {
	SampleColumn string
	ValueColumn  string
	RowColumn    string

	// PeakColumn and Peak select the sample gas peak. Peak 0 keeps every peak.
	PeakColumn string
	Peak       int

	// FlagColumn, when present in the export, is copied into the replicate's flags.
	FlagColumn string

	// Comma is the field delimiter. Zero means ','.
	Comma rune

	// ExcludeRows drops rows by row id while reading.
	ExcludeRows []int
}

// NitrogenOptions returns the column layout of an Isodat N2 export, keeping peak 2.
func NitrogenOptions() Options {
	return Options{
		SampleColumn: "Identifier 1",
		ValueColumn:  "d 15N/14N",
		RowColumn:    "Row",
		PeakColumn:   "Peak Nr",
		Peak:         2,
		FlagColumn:   "Comment",
		Comma:        ',',
	}
}

// ReadFile reads the export at path.
func ReadFile(path string, opts Options) ([]core.ReplicateMeasurement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	out, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// Read parses an export with a header line. Rows of other peaks and excluded
// rows are skipped. Sample labels are trimmed.
func Read(r io.Reader, opts Options) ([]core.ReplicateMeasurement, error) {
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: export is empty", ErrMissingColumns)
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols, err := locate(header, opts)
	if err != nil {
		return nil, err
	}

	excluded := make(map[int]struct{}, len(opts.ExcludeRows))
	for _, row := range opts.ExcludeRows {
		excluded[row] = struct{}{}
	}

	var out []core.ReplicateMeasurement
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)

		if cols.peak >= 0 && opts.Peak > 0 {
			peak, err := parseInt(field(record, cols.peak))
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, opts.PeakColumn, err)
			}
			if peak != opts.Peak {
				continue
			}
		}

		row, err := parseInt(field(record, cols.row))
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, opts.RowColumn, err)
		}
		if _, skip := excluded[row]; skip {
			continue
		}

		label := strings.TrimSpace(field(record, cols.sample))
		if label == "" {
			return nil, fmt.Errorf("line %d: empty %s", line, opts.SampleColumn)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(field(record, cols.value)), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, opts.ValueColumn, err)
		}

		m := core.ReplicateMeasurement{SampleLabel: label, RawValue: value, RowID: row}
		if cols.flag >= 0 {
			if flag := strings.TrimSpace(field(record, cols.flag)); flag != "" {
				m.Flags = []string{flag}
			}
		}
		out = append(out, m)
	}
	return out, nil
}

type columns struct {
	sample, value, row, peak, flag int
}

func locate(header []string, opts Options) (columns, error) {
	index := make(map[string]int, len(header))
	found := make([]string, len(header))
	for i, h := range header {
		name := collapse(h)
		found[i] = name
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	lookup := func(name string, required bool) int {
		if name == "" {
			return -1
		}
		i, ok := index[collapse(name)]
		if !ok {
			if required {
				missing = append(missing, name)
			}
			return -1
		}
		return i
	}

	cols := columns{
		sample: lookup(opts.SampleColumn, true),
		value:  lookup(opts.ValueColumn, true),
		row:    lookup(opts.RowColumn, true),
		peak:   lookup(opts.PeakColumn, opts.Peak > 0),
		flag:   lookup(opts.FlagColumn, false),
	}
	if opts.SampleColumn == "" || opts.ValueColumn == "" || opts.RowColumn == "" {
		return columns{}, fmt.Errorf("sample, value and row columns must be configured")
	}
	if len(missing) > 0 {
		return columns{}, fmt.Errorf("%w: %q (columns found: %q)", ErrMissingColumns, missing, found)
	}
	return cols, nil
}

// collapse trims s and replaces every run of whitespace with one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

// parseInt accepts integral values written as floats ("12.0"), as spreadsheet exports do.
func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return int(f), nil
}
