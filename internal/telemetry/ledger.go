package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/magnet-sim/magnet/internal/domain"
)

// ledgerMu serializes appends to the shared ledger. Probes inside a storm
// may complete concurrently, so file appends must not interleave.
var ledgerMu sync.Mutex

// WriteActionRecord appends one JSON line to the run's shared ledger file.
// Callers must not abort their own action on a returned error: telemetry is
// observability, not a gate on the simulated effect.
func WriteActionRecord(cfg *domain.RunConfig, rec *domain.ActionRecord) error {
	ledgerMu.Lock()
	defer ledgerMu.Unlock()

	return appendJSONLine(cfg.LedgerPath(), rec)
}

// appendJSONLine marshals v and appends it as a single newline-terminated
// line, creating the parent directory and file as needed.
func appendJSONLine(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create telemetry dir: %w", err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append to %s: %w", path, err)
	}
	return nil
}
