package actions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/magnet-sim/magnet/internal/domain"
	"github.com/magnet-sim/magnet/internal/telemetry"
)

func TestProcSnapshot_WritesDumpArtifact(t *testing.T) {
	cfg := testRunConfig(t)

	ps := NewProcSnapshot()
	if err := ps.Run(cfg); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	recs := readLedger(t, cfg)
	if len(recs) != 1 {
		t.Fatalf("ledger has %d records, want 1", len(recs))
	}
	if recs[0].Status != domain.StatusWritten {
		t.Errorf("status = %q, want %q", recs[0].Status, domain.StatusWritten)
	}
	if filepath.Ext(recs[0].ArtifactPath) != ".dmp" {
		t.Errorf("artifact %q does not use the dump extension", recs[0].ArtifactPath)
	}

	data, err := os.ReadFile(recs[0].ArtifactPath)
	if err != nil {
		t.Fatalf("snapshot artifact missing: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "MAGNET-TEST-ID: "+cfg.TestID) {
		t.Error("snapshot does not carry the test id")
	}
	if !strings.Contains(content, "NOT A REAL MINIDUMP") {
		t.Error("snapshot does not declare itself benign")
	}

	streams := telemetry.NewStreams(cfg, "proc_snapshot")
	summaries := readJSONLines[ProcSnapshotSummary](t, streams.SummaryPath())
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}
	if summaries[0].Pid != os.Getpid() {
		t.Errorf("summary pid = %d, want %d", summaries[0].Pid, os.Getpid())
	}
	if summaries[0].SizeBytes != len(data) {
		t.Errorf("summary size %d != artifact size %d", summaries[0].SizeBytes, len(data))
	}
}

func TestProcSnapshot_DryRun(t *testing.T) {
	cfg := testRunConfig(t)
	cfg.DryRun = true

	ps := NewProcSnapshot()
	if err := ps.Run(cfg); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.OutputRoot, "dumps")); !os.IsNotExist(err) {
		t.Error("dry-run created the dumps dir")
	}

	recs := readLedger(t, cfg)
	if len(recs) != 1 || recs[0].Status != domain.StatusDryRun {
		t.Fatalf("ledger = %+v, want single dry-run record", recs)
	}
}
