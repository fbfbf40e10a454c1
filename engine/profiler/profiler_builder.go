package profiler

import (
	"io"
	"time"
)

// ProfilerBuilderOption is a functional option for configuring a Profiler via NewProfiler.
type ProfilerBuilderOption func(*Profiler)

// WithLogInterval is an option builder that sets how often Tick logs statistics. Non-positive
// intervals are ignored.
//
// Parameters:
//   - d: the interval between log lines
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the interval option to a Profiler
func WithLogInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithCSV is an option builder that streams one CSV row per recorded frame to w. The header is
// written with the first row.
func WithCSV(w io.Writer) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.csv = w
	}
}
