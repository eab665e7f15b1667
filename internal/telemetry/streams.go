package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/magnet-sim/magnet/internal/domain"
)

// Streams is the three-file detail telemetry convention for modules that
// produce many sub-results: an itemized JSONL stream, a summary JSONL
// stream, and a human-readable log. All three are append-only and keyed by
// test id in their filenames.
type Streams struct {
	cfg    *domain.RunConfig
	module string
	mu     sync.Mutex
}

// NewStreams returns the detail streams for one module of the given run.
func NewStreams(cfg *domain.RunConfig, module string) *Streams {
	return &Streams{cfg: cfg, module: module}
}

// ItemPath returns the itemized JSONL stream path.
func (s *Streams) ItemPath() string {
	return s.cfg.StreamPath(s.module, "_per_item.jsonl")
}

// SummaryPath returns the summary JSONL stream path.
func (s *Streams) SummaryPath() string {
	return s.cfg.StreamPath(s.module, "_summary.jsonl")
}

// LogPath returns the human-readable log path.
func (s *Streams) LogPath() string {
	return s.cfg.StreamPath(s.module, ".log")
}

// AppendItem appends one detail record to the itemized stream.
func (s *Streams) AppendItem(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendJSONLine(s.ItemPath(), v)
}

// AppendItems appends detail records in the given order.
func (s *Streams) AppendItems(vs []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vs {
		if err := appendJSONLine(s.ItemPath(), v); err != nil {
			return err
		}
	}
	return nil
}

// AppendSummary appends the run summary record. Callers invoke this after
// all itemized records for the invocation have been written.
func (s *Streams) AppendSummary(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendJSONLine(s.SummaryPath(), v)
}

// AppendLog opens the human-readable log in append mode and hands the
// writer to fn so the module can emit its header block and item lines.
func (s *Streams) AppendLog(fn func(w io.Writer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.LogPath()), 0o755); err != nil {
		return fmt.Errorf("create telemetry dir: %w", err)
	}
	f, err := os.OpenFile(s.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.LogPath(), err)
	}
	defer f.Close()

	return fn(f)
}

// LogHeader writes the fixed header block shared by all module logs. Field
// order is preserved as given.
func LogHeader(w io.Writer, fields [][2]string) error {
	if _, err := fmt.Fprintln(w, "==============================================================="); err != nil {
		return err
	}
	for _, f := range fields {
		if _, err := fmt.Fprintf(w, "%-14s: %s\n", f[0], f[1]); err != nil {
			return err
		}
	}
	return nil
}
