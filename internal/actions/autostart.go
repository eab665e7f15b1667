package actions

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/magnet-sim/magnet/internal/config"
	"github.com/magnet-sim/magnet/internal/console"
	"github.com/magnet-sim/magnet/internal/domain"
	"github.com/magnet-sim/magnet/internal/harness"
	"github.com/magnet-sim/magnet/internal/telemetry"
)

const (
	autostartName = "autostart_persistence"
	autostartTTP  = "T1547.001"
)

// AutostartSummary is the single summary record this module emits.
type AutostartSummary struct {
	TestID       string    `json:"test_id"`
	Timestamp    time.Time `json:"timestamp"`
	TTP          string    `json:"mitre"`
	Module       string    `json:"module"`
	ScriptPath   string    `json:"script_path"`
	ArtifactPath string    `json:"artifact_path"`
	Verified     bool      `json:"verified"`
	CleanedUp    bool      `json:"cleaned_up"`
}

// Autostart drops a benign autostart script, verifies it landed intact, and
// optionally removes it again. The companion artifact file is what the
// script would create on next boot, planted up front so responders can
// correlate both.
type Autostart struct {
	autostartCfg config.AutostartConfig
}

// NewAutostart builds the autostart persistence module.
func NewAutostart(autostartCfg config.AutostartConfig) *Autostart {
	return &Autostart{autostartCfg: autostartCfg}
}

func (a *Autostart) Name() string { return autostartName }

func (a *Autostart) dir(cfg *domain.RunConfig) string {
	if a.autostartCfg.Dir != "" {
		return a.autostartCfg.Dir
	}
	return filepath.Join(cfg.OutputRoot, "autostart")
}

func scriptExt() string {
	if runtime.GOOS == "windows" {
		return ".cmd"
	}
	return ".sh"
}

// scriptContent returns the benign script body pointing at the artifact.
func scriptContent(testID, artifact string) string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf("@echo off\r\nrem magnet autostart simulation %s\r\necho magnet-autostart %s >> \"%s\"\r\n", testID, testID, artifact)
	}
	return fmt.Sprintf("#!/bin/sh\n# magnet autostart simulation %s\necho \"magnet-autostart %s\" >> \"%s\"\n", testID, testID, artifact)
}

func (a *Autostart) Run(cfg *domain.RunConfig) error {
	dir := a.dir(cfg)
	scriptPath := filepath.Join(dir, "magnet_autostart_"+cfg.TestID+scriptExt())
	artifactPath := filepath.Join(dir, "magnet_autostart_artifact_"+cfg.TestID+".txt")

	console.ActionRunning("planting autostart script")

	if cfg.DryRun {
		console.Infof("dry-run: would write %s", scriptPath)
		rec := domain.NewActionRecord(cfg, tagged(autostartTTP, autostartName), domain.StatusDryRun, "dry-run: no autostart script written")
		rec.ArtifactPath = scriptPath
		writeRecord(cfg, rec)
		console.ActionOK()
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		rec := domain.NewActionRecord(cfg, tagged(autostartTTP, autostartName), domain.StatusFailed,
			fmt.Sprintf("create autostart dir: %v", err))
		writeRecord(cfg, rec)
		return fmt.Errorf("create autostart dir: %w", err)
	}

	content := scriptContent(cfg.TestID, artifactPath)
	if err := os.WriteFile(scriptPath, []byte(content), 0o755); err != nil {
		rec := domain.NewActionRecord(cfg, tagged(autostartTTP, autostartName), domain.StatusFailed,
			fmt.Sprintf("script creation error: %v", err))
		writeRecord(cfg, rec)
		return fmt.Errorf("write autostart script: %w", err)
	}

	seed := fmt.Sprintf("planted %s by magnet run %s\n", time.Now().UTC().Format(time.RFC3339), cfg.TestID)
	if err := os.WriteFile(artifactPath, []byte(seed), 0o644); err != nil {
		console.Warnf("could not write companion artifact: %v", err)
		artifactPath = ""
	}

	// Verify the script landed intact before claiming persistence.
	readBack, err := os.ReadFile(scriptPath)
	verified := err == nil && string(readBack) == content
	if !verified {
		rec := domain.NewActionRecord(cfg, tagged(autostartTTP, autostartName), domain.StatusFailed,
			"autostart script did not verify after write")
		rec.ArtifactPath = scriptPath
		writeRecord(cfg, rec)
		return fmt.Errorf("autostart script %s: %w", scriptPath, harness.ErrVerificationFailed)
	}
	console.Infof("autostart script verified at %s", scriptPath)

	cleaned := false
	if a.autostartCfg.Cleanup {
		if err := os.Remove(scriptPath); err != nil {
			console.Warnf("cleanup failed: %v", err)
		} else {
			cleaned = true
			console.Info("autostart script removed (cleanup enabled)")
		}
	}

	summary := AutostartSummary{
		TestID:       cfg.TestID,
		Timestamp:    time.Now().UTC(),
		TTP:          autostartTTP,
		Module:       autostartName,
		ScriptPath:   scriptPath,
		ArtifactPath: artifactPath,
		Verified:     verified,
		CleanedUp:    cleaned,
	}
	if err := a.writeTelemetry(cfg, summary); err != nil {
		console.Warnf("telemetry write failed: %v", err)
	}

	rec := domain.NewActionRecord(cfg, tagged(autostartTTP, autostartName), domain.StatusWritten,
		fmt.Sprintf("autostart script planted (verified=%t, cleaned=%t)", verified, cleaned))
	rec.ArtifactPath = scriptPath
	writeRecord(cfg, rec)

	console.ActionOK()
	return nil
}

func (a *Autostart) writeTelemetry(cfg *domain.RunConfig, summary AutostartSummary) error {
	streams := telemetry.NewStreams(cfg, autostartName)

	if err := streams.AppendSummary(summary); err != nil {
		return err
	}

	return streams.AppendLog(func(w io.Writer) error {
		err := telemetry.LogHeader(w, [][2]string{
			{"TEST ID", summary.TestID},
			{"TIMESTAMP", summary.Timestamp.Format(time.RFC3339)},
			{"MODULE", summary.Module},
			{"MITRE TTP", summary.TTP},
			{"SCRIPT", summary.ScriptPath},
			{"ARTIFACT", summary.ArtifactPath},
			{"VERIFIED", fmt.Sprintf("%t", summary.Verified)},
			{"CLEANED UP", fmt.Sprintf("%t", summary.CleanedUp)},
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w)
		return err
	})
}
