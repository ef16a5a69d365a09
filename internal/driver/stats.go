package driver

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/basjoofan-go/fan/internal/record"
)

// stat accumulates one request name's observations: count, total and extreme
// latency (milliseconds), and how many iterations carried a non-empty
// Error or a failed assertion. Grounded directly on original_source's
// Stat{count, sum, avg, max, min, failed} rather than a percentile sketch —
// am never computed anything fancier than that.
type stat struct {
	count  int64
	sum    float64
	max    float64
	min    float64
	failed int64
}

func (s *stat) observe(ms float64, ok bool) {
	s.count++
	s.sum += ms
	if s.count == 1 || ms > s.max {
		s.max = ms
	}
	if s.count == 1 || ms < s.min {
		s.min = ms
	}
	if !ok {
		s.failed++
	}
}

func (s *stat) avg() float64 {
	if s.count == 0 {
		return 0
	}
	return s.sum / float64(s.count)
}

// Stats aggregates per-request-name stat rows (keyed by Record.Name, the
// name of the request that produced the record) across every worker, guarded by
// a mutex since workers feed it through a single channel consumer in the
// common case but Observe is kept safe to call from more than one
// goroutine regardless.
type Stats struct {
	mu   sync.Mutex
	rows map[string]*stat
}

// NewStats returns an empty aggregator.
func NewStats() *Stats {
	return &Stats{rows: map[string]*stat{}}
}

// Observe folds one record into its request name's running stat row. An
// iteration counts as failed if it carried an engine-level error or any
// assertion evaluated false.
func (s *Stats) Observe(rec record.Record) {
	ok := rec.Error == ""
	for _, a := range rec.Asserts {
		if !a.Result {
			ok = false
			break
		}
	}
	ms := float64(rec.Time.Total) / 1e6

	s.mu.Lock()
	defer s.mu.Unlock()
	row, found := s.rows[rec.Name]
	if !found {
		row = &stat{}
		s.rows[rec.Name] = row
	}
	row.observe(ms, ok)
}

// Print writes one line per request name, sorted for reproducible output.
func (s *Stats) Print(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.rows))
	for name := range s.rows {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		row := s.rows[name]
		fmt.Fprintf(w, "%s\tcount=%d\tavg=%.3fms\tmax=%.3fms\tmin=%.3fms\tfailed=%d\n",
			name, row.count, row.avg(), row.max, row.min, row.failed)
	}
}
