package actions

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/magnet-sim/magnet/internal/console"
	"github.com/magnet-sim/magnet/internal/domain"
	"github.com/magnet-sim/magnet/internal/telemetry"
)

const (
	clipboardName = "clipboard_harvest"
	clipboardTTP  = "T1115"
)

// ClipboardSummary is the per-run summary record.
type ClipboardSummary struct {
	TestID       string    `json:"test_id"`
	Timestamp    time.Time `json:"timestamp"`
	TTP          string    `json:"mitre"`
	Module       string    `json:"module"`
	TotalEntries int       `json:"total_entries"`
	Chars        int       `json:"chars"`
}

// ClipboardHarvest reads the current clipboard text through the platform
// clipboard tool. A host without one simply records the content as
// unavailable; absence of a clipboard is noise, not a failure.
type ClipboardHarvest struct {
	// read is swappable for tests; the default shells out per platform.
	read func() (string, error)
}

// NewClipboardHarvest builds the clipboard collection module.
func NewClipboardHarvest() *ClipboardHarvest {
	return &ClipboardHarvest{read: readClipboard}
}

func (c *ClipboardHarvest) Name() string { return clipboardName }

// readClipboard shells out to the platform clipboard reader.
func readClipboard() (string, error) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", "Get-Clipboard")
	case "darwin":
		cmd = exec.Command("pbpaste")
	default:
		cmd = exec.Command("xclip", "-o", "-selection", "clipboard")
	}
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", cmd.Path, err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

func (c *ClipboardHarvest) Run(cfg *domain.RunConfig) error {
	console.ActionRunning("collecting clipboard content")

	if cfg.DryRun {
		console.Info("dry-run: clipboard collection skipped")
		rec := domain.NewActionRecord(cfg, tagged(clipboardTTP, clipboardName), domain.StatusDryRun, "clipboard collection skipped")
		writeRecord(cfg, rec)
		console.ActionOK()
		return nil
	}

	content, err := c.read()
	if err != nil {
		console.Warnf("clipboard unavailable: %v", err)
		content = "<unavailable>"
	}
	console.Infof("clipboard content: %d chars", len(content))

	summary := ClipboardSummary{
		TestID:       cfg.TestID,
		Timestamp:    time.Now().UTC(),
		TTP:          clipboardTTP,
		Module:       clipboardName,
		TotalEntries: 1,
		Chars:        len(content),
	}
	if err := c.writeTelemetry(cfg, summary, content); err != nil {
		console.Warnf("telemetry write failed: %v", err)
	}

	rec := domain.NewActionRecord(cfg, tagged(clipboardTTP, clipboardName), domain.StatusCompleted,
		fmt.Sprintf("collected clipboard content (%d chars)", len(content)))
	writeRecord(cfg, rec)

	console.ActionOK()
	return nil
}

func (c *ClipboardHarvest) writeTelemetry(cfg *domain.RunConfig, summary ClipboardSummary, content string) error {
	streams := telemetry.NewStreams(cfg, clipboardName)

	if err := streams.AppendSummary(summary); err != nil {
		return err
	}

	return streams.AppendLog(func(w io.Writer) error {
		err := telemetry.LogHeader(w, [][2]string{
			{"TEST ID", summary.TestID},
			{"TIMESTAMP", summary.Timestamp.Format(time.RFC3339)},
			{"MODULE", summary.Module},
			{"MITRE TTP", summary.TTP},
			{"TOTAL ENTRIES", fmt.Sprintf("%d", summary.TotalEntries)},
		})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, "---------------- CLIPBOARD CONTENT ----------------"); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, content); err != nil {
			return err
		}
		_, err = fmt.Fprintln(w)
		return err
	})
}
