package actions

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/magnet-sim/magnet/internal/console"
	"github.com/magnet-sim/magnet/internal/domain"
	"github.com/magnet-sim/magnet/internal/telemetry"
)

const (
	procSnapshotName = "proc_snapshot"
	procSnapshotTTP  = "T1003"
)

// ProcSnapshotSummary is the per-run summary record.
type ProcSnapshotSummary struct {
	TestID       string    `json:"test_id"`
	Timestamp    time.Time `json:"timestamp"`
	TTP          string    `json:"mitre"`
	Module       string    `json:"module"`
	Pid          int       `json:"pid"`
	ArtifactPath string    `json:"artifact_path"`
	SizeBytes    int       `json:"size_bytes"`
}

// ProcSnapshot writes a memory-snapshot artifact of the harness's own
// process into a dumps directory. The file shape (a .dmp dropped next to
// the telemetry) is what dump-detection rules key on; the content is a
// benign text rendering of the process state, since our own process is the
// only one we can snapshot without touching other workloads.
type ProcSnapshot struct{}

// NewProcSnapshot builds the process-dump simulation module.
func NewProcSnapshot() *ProcSnapshot { return &ProcSnapshot{} }

func (p *ProcSnapshot) Name() string { return procSnapshotName }

// snapshotContent renders the current process state.
func snapshotContent(testID string) string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	exe, err := os.Executable()
	if err != nil {
		exe = "<unknown>"
	}

	lines := []string{
		"=== MAGNET BENIGN PROCESS SNAPSHOT ===",
		"THIS IS NOT A REAL MINIDUMP. Created for purple-team testing.",
		"MAGNET-TEST-ID: " + testID,
		"",
		fmt.Sprintf("pid        : %d", os.Getpid()),
		fmt.Sprintf("ppid       : %d", os.Getppid()),
		"exe        : " + exe,
		"args       : " + strings.Join(os.Args, " "),
		fmt.Sprintf("platform   : %s/%s", runtime.GOOS, runtime.GOARCH),
		fmt.Sprintf("goroutines : %d", runtime.NumGoroutine()),
		fmt.Sprintf("heap_alloc : %d", m.HeapAlloc),
		fmt.Sprintf("heap_sys   : %d", m.HeapSys),
		fmt.Sprintf("num_gc     : %d", m.NumGC),
		"",
	}
	return strings.Join(lines, "\n")
}

func (p *ProcSnapshot) Run(cfg *domain.RunConfig) error {
	dir := filepath.Join(cfg.OutputRoot, "dumps")
	artifact := filepath.Join(dir, fmt.Sprintf("magnet-%d.dmp", os.Getpid()))

	console.ActionRunning("writing benign process-snapshot artifact")

	if cfg.DryRun {
		console.Infof("dry-run: would write %s", artifact)
		rec := domain.NewActionRecord(cfg, tagged(procSnapshotTTP, procSnapshotName), domain.StatusDryRun, "dry-run: no snapshot written")
		rec.ArtifactPath = artifact
		writeRecord(cfg, rec)
		console.ActionOK()
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		rec := domain.NewActionRecord(cfg, tagged(procSnapshotTTP, procSnapshotName), domain.StatusFailed,
			fmt.Sprintf("create dumps dir: %v", err))
		writeRecord(cfg, rec)
		return fmt.Errorf("create dumps dir: %w", err)
	}

	content := snapshotContent(cfg.TestID)
	if err := os.WriteFile(artifact, []byte(content), 0o644); err != nil {
		rec := domain.NewActionRecord(cfg, tagged(procSnapshotTTP, procSnapshotName), domain.StatusFailed,
			fmt.Sprintf("write snapshot: %v", err))
		writeRecord(cfg, rec)
		return fmt.Errorf("write snapshot: %w", err)
	}
	console.Infof("snapshot written to %s (%d bytes)", artifact, len(content))

	summary := ProcSnapshotSummary{
		TestID:       cfg.TestID,
		Timestamp:    time.Now().UTC(),
		TTP:          procSnapshotTTP,
		Module:       procSnapshotName,
		Pid:          os.Getpid(),
		ArtifactPath: artifact,
		SizeBytes:    len(content),
	}
	if err := p.writeTelemetry(cfg, summary); err != nil {
		console.Warnf("telemetry write failed: %v", err)
	}

	rec := domain.NewActionRecord(cfg, tagged(procSnapshotTTP, procSnapshotName), domain.StatusWritten,
		fmt.Sprintf("process snapshot written (%d bytes)", len(content)))
	rec.ArtifactPath = artifact
	writeRecord(cfg, rec)

	console.ActionOK()
	return nil
}

func (p *ProcSnapshot) writeTelemetry(cfg *domain.RunConfig, summary ProcSnapshotSummary) error {
	streams := telemetry.NewStreams(cfg, procSnapshotName)

	if err := streams.AppendSummary(summary); err != nil {
		return err
	}

	return streams.AppendLog(func(w io.Writer) error {
		err := telemetry.LogHeader(w, [][2]string{
			{"TEST ID", summary.TestID},
			{"TIMESTAMP", summary.Timestamp.Format(time.RFC3339)},
			{"MODULE", summary.Module},
			{"MITRE TTP", summary.TTP},
			{"PID", fmt.Sprintf("%d", summary.Pid)},
			{"ARTIFACT", summary.ArtifactPath},
			{"SIZE BYTES", fmt.Sprintf("%d", summary.SizeBytes)},
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w)
		return err
	})
}
