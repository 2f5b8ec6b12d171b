package batch

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/psdwatch/internal/convert"
	"github.com/hupe1980/psdwatch/internal/output"
)

// Record statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Record is the reportable form of a single conversion result.
type Record struct {
	Source   string `yaml:"source"`
	Target   string `yaml:"target,omitempty"`
	Status   string `yaml:"status"`
	Error    string `yaml:"error,omitempty"`
	Duration string `yaml:"duration,omitempty"`
}

// Summary aggregates the results of a one-shot run.
type Summary struct {
	Total     int      `yaml:"total"`
	Succeeded int      `yaml:"succeeded"`
	Failed    int      `yaml:"failed"`
	Results   []Record `yaml:"results"`
}

// String renders the one-line summary printed after a run.
func (s Summary) String() string {
	if s.Total == 0 {
		return "no source files found"
	}

	if s.Failed == 0 {
		return fmt.Sprintf("converted %d of %d files", s.Succeeded, s.Total)
	}

	return fmt.Sprintf("converted %d of %d files (%d failed)", s.Succeeded, s.Total, s.Failed)
}

// Summarize folds results into a Summary, preserving their order.
func Summarize(results []convert.Result) Summary {
	s := Summary{Total: len(results), Results: make([]Record, 0, len(results))}

	for _, res := range results {
		rec := Record{Source: res.Source, Target: res.Target}

		if res.Duration > 0 {
			rec.Duration = res.Duration.String()
		}

		if res.OK() {
			rec.Status = StatusSuccess
			s.Succeeded++
		} else {
			rec.Status = StatusFailure
			rec.Error = res.Err.Error()
			s.Failed++
		}

		s.Results = append(s.Results, rec)
	}

	return s
}

// WriteReport serialises the summary as YAML and writes it atomically.
func WriteReport(path string, s Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshalling report: %w", err)
	}

	if err := output.NewAtomicWriter(path).Write(data); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	return nil
}
