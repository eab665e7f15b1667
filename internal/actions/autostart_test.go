package actions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/magnet-sim/magnet/internal/config"
	"github.com/magnet-sim/magnet/internal/domain"
	"github.com/magnet-sim/magnet/internal/telemetry"
)

func TestAutostart_PlantsVerifiesAndCleansUp(t *testing.T) {
	cfg := testRunConfig(t)
	dir := filepath.Join(t.TempDir(), "startup")

	a := NewAutostart(config.AutostartConfig{Dir: dir, Cleanup: true})
	if err := a.Run(cfg); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	scriptPath := filepath.Join(dir, "magnet_autostart_"+cfg.TestID+scriptExt())
	if _, err := os.Stat(scriptPath); !os.IsNotExist(err) {
		t.Error("script still present despite cleanup")
	}

	// The companion artifact stays behind for responders.
	artifactPath := filepath.Join(dir, "magnet_autostart_artifact_"+cfg.TestID+".txt")
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		t.Fatalf("companion artifact missing: %v", err)
	}
	if !strings.Contains(string(data), cfg.TestID) {
		t.Error("companion artifact does not carry the test id")
	}

	streams := telemetry.NewStreams(cfg, "autostart_persistence")
	summaries := readJSONLines[AutostartSummary](t, streams.SummaryPath())
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}
	if !summaries[0].Verified || !summaries[0].CleanedUp {
		t.Errorf("summary verified=%t cleaned=%t, want both true", summaries[0].Verified, summaries[0].CleanedUp)
	}

	recs := readLedger(t, cfg)
	if len(recs) != 1 {
		t.Fatalf("ledger has %d records, want 1", len(recs))
	}
	if recs[0].Status != domain.StatusWritten {
		t.Errorf("status = %q, want %q", recs[0].Status, domain.StatusWritten)
	}
	if recs[0].ArtifactPath != scriptPath {
		t.Errorf("artifact_path = %q, want %q", recs[0].ArtifactPath, scriptPath)
	}
}

func TestAutostart_KeepsScriptWithoutCleanup(t *testing.T) {
	cfg := testRunConfig(t)
	dir := filepath.Join(t.TempDir(), "startup")

	a := NewAutostart(config.AutostartConfig{Dir: dir, Cleanup: false})
	if err := a.Run(cfg); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	scriptPath := filepath.Join(dir, "magnet_autostart_"+cfg.TestID+scriptExt())
	data, err := os.ReadFile(scriptPath)
	if err != nil {
		t.Fatalf("script missing: %v", err)
	}
	if !strings.Contains(string(data), cfg.TestID) {
		t.Error("script does not carry the test id")
	}

	streams := telemetry.NewStreams(cfg, "autostart_persistence")
	summaries := readJSONLines[AutostartSummary](t, streams.SummaryPath())
	if summaries[0].CleanedUp {
		t.Error("summary reports cleanup that did not happen")
	}
}

func TestAutostart_DryRun(t *testing.T) {
	cfg := testRunConfig(t)
	dir := filepath.Join(t.TempDir(), "startup")

	a := NewAutostart(config.AutostartConfig{Dir: dir, Cleanup: true})
	cfg.DryRun = true
	if err := a.Run(cfg); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("dry-run created the autostart dir")
	}

	recs := readLedger(t, cfg)
	if len(recs) != 1 || recs[0].Status != domain.StatusDryRun {
		t.Fatalf("ledger = %+v, want single dry-run record", recs)
	}
}

func TestScriptContent_ReferencesArtifact(t *testing.T) {
	content := scriptContent("abc123", "/tmp/artifact.txt")
	if !strings.Contains(content, "abc123") {
		t.Error("script content missing test id")
	}
	if !strings.Contains(content, "/tmp/artifact.txt") {
		t.Error("script content missing artifact path")
	}
}
