package actions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/magnet-sim/magnet/internal/config"
	"github.com/magnet-sim/magnet/internal/console"
	"github.com/magnet-sim/magnet/internal/domain"
)

const (
	decoyNoteName = "decoy_note"
	decoyNoteTTP  = "T1486"

	decoyNoteFile = "DECOY_RANSOM_NOTE.txt"
)

// DecoyNote plants a clearly-labeled benign ransom note so ingestion and
// response playbooks can be validated end to end.
type DecoyNote struct {
	decoyCfg config.DecoyConfig
}

// NewDecoyNote builds the decoy note module.
func NewDecoyNote(decoyCfg config.DecoyConfig) *DecoyNote {
	return &DecoyNote{decoyCfg: decoyCfg}
}

func (d *DecoyNote) Name() string { return decoyNoteName }

// noteDir resolves the drop directory: the configured decoy dir, falling
// back to the run's output root.
func (d *DecoyNote) noteDir(cfg *domain.RunConfig) string {
	if d.decoyCfg.Dir != "" {
		return d.decoyCfg.Dir
	}
	return cfg.OutputRoot
}

// noteContent builds the note body. The test id makes the artifact
// attributable to this run from the file alone.
func noteContent(testID string) string {
	lines := []string{
		"=== MAGNET RANSOM-NOTE SIMULATION ===",
		"",
		"THIS IS A BENIGN TEST ARTIFACT CREATED BY THE MAGNET TOOL.",
		"DO NOT RESPOND — this file is safe and created for purple-team testing.",
		"",
		"MAGNET-TEST-ID: " + testID,
		"TIMESTAMP: " + time.Now().UTC().Format(time.RFC3339),
		"",
		"To the SOC: This artifact is used to validate detection, ingestion and response.",
		"",
		"=== END OF NOTE ===",
	}
	return strings.Join(lines, "\n")
}

func (d *DecoyNote) Run(cfg *domain.RunConfig) error {
	path := filepath.Join(d.noteDir(cfg), decoyNoteFile)
	console.ActionRunning("planting decoy ransom note")

	if cfg.DryRun {
		console.Infof("dry-run: would write to %s", path)
		rec := domain.NewActionRecord(cfg, tagged(decoyNoteTTP, decoyNoteName), domain.StatusDryRun, "dry-run: no file written")
		rec.ArtifactPath = path
		writeRecord(cfg, rec)
		console.ActionOK()
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		rec := domain.NewActionRecord(cfg, tagged(decoyNoteTTP, decoyNoteName), domain.StatusFailed,
			fmt.Sprintf("create decoy dir: %v", err))
		writeRecord(cfg, rec)
		return fmt.Errorf("create decoy dir: %w", err)
	}

	if err := os.WriteFile(path, []byte(noteContent(cfg.TestID)), 0o644); err != nil {
		rec := domain.NewActionRecord(cfg, tagged(decoyNoteTTP, decoyNoteName), domain.StatusFailed,
			fmt.Sprintf("write note: %v", err))
		writeRecord(cfg, rec)
		return fmt.Errorf("write decoy note: %w", err)
	}

	console.Infof("note written to %s", path)

	rec := domain.NewActionRecord(cfg, tagged(decoyNoteTTP, decoyNoteName), domain.StatusWritten, "decoy note planted")
	rec.ArtifactPath = path
	writeRecord(cfg, rec)

	console.ActionOK()
	return nil
}
