package domain

import "path/filepath"

// RunConfig is the shared per-invocation configuration. It is built once at
// startup and never mutated afterwards; every capability and the telemetry
// ledger hold the same pointer.
type RunConfig struct {
	TestID     string
	DryRun     bool
	OutputRoot string
}

// LedgerPath returns the shared action-record ledger file for this run.
func (c *RunConfig) LedgerPath() string {
	return filepath.Join(c.OutputRoot, "actions_"+c.TestID+".jsonl")
}

// StreamPath returns a per-module telemetry file path, keyed by test id so
// repeated runs never overwrite prior evidence.
func (c *RunConfig) StreamPath(module, suffix string) string {
	return filepath.Join(c.OutputRoot, module+"_"+c.TestID+suffix)
}
