package actions

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"time"

	"github.com/magnet-sim/magnet/internal/config"
	"github.com/magnet-sim/magnet/internal/console"
	"github.com/magnet-sim/magnet/internal/domain"
	"github.com/magnet-sim/magnet/internal/telemetry"
)

const (
	clockSkewName = "clock_skew"
	clockSkewTTP  = "T1124/T1070.006"
)

// clockOffsets are the offsets attempted, in seconds.
var clockOffsets = []int64{-3600, -600, 600, 3600}

// TimeAttempt is one clock-manipulation attempt.
type TimeAttempt struct {
	Timestamp     time.Time `json:"timestamp"`
	OffsetSeconds int64     `json:"attempted_offset_seconds"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
}

// ClockSkewSummary is the per-run summary record.
type ClockSkewSummary struct {
	TestID     string    `json:"test_id"`
	Timestamp  time.Time `json:"timestamp"`
	TTP        string    `json:"mitre"`
	Module     string    `json:"module"`
	Attempts   int       `json:"attempts"`
	Successful int       `json:"successful"`
	AllowSet   bool      `json:"allow_set"`
}

// ClockSkew attempts a series of system-clock offsets. Unless allow_set is
// enabled in config, the attempts are recorded as blocked without touching
// the clock; with it enabled, an unprivileged run still fails at the OS and
// the failures themselves are the signal.
type ClockSkew struct {
	skewCfg config.ClockSkewConfig

	// setClock applies an offset; swappable for tests.
	setClock func(target time.Time) error
}

// NewClockSkew builds the clock-manipulation module.
func NewClockSkew(skewCfg config.ClockSkewConfig) *ClockSkew {
	return &ClockSkew{skewCfg: skewCfg, setClock: setSystemClock}
}

func (c *ClockSkew) Name() string { return clockSkewName }

// setSystemClock invokes the platform time-set command.
func setSystemClock(target time.Time) error {
	if runtime.GOOS == "windows" {
		cmd := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command",
			fmt.Sprintf("Set-Date -Date '%s'", target.Format("2006-01-02 15:04:05")))
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("Set-Date: %v (%s)", err, string(out))
		}
		return nil
	}
	cmd := exec.Command("date", "-s", target.Format("2006-01-02 15:04:05"))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("date -s: %v (%s)", err, string(out))
	}
	return nil
}

func (c *ClockSkew) Run(cfg *domain.RunConfig) error {
	console.ActionRunning("attempting system clock manipulation")

	if cfg.DryRun {
		console.Info("dry-run: no clock changes attempted")
		rec := domain.NewActionRecord(cfg, tagged(clockSkewTTP, clockSkewName), domain.StatusDryRun, "clock manipulation skipped")
		writeRecord(cfg, rec)
		console.ActionOK()
		return nil
	}

	var attempts []TimeAttempt
	successful := 0

	for _, offset := range clockOffsets {
		attempt := TimeAttempt{
			Timestamp:     time.Now().UTC(),
			OffsetSeconds: offset,
		}

		if !c.skewCfg.AllowSet {
			attempt.Error = "clock set not permitted by configuration"
		} else {
			target := time.Now().Add(time.Duration(offset) * time.Second)
			if err := c.setClock(target); err != nil {
				attempt.Error = err.Error()
			} else {
				attempt.Success = true
				successful++
				// Undo immediately so the host clock is skewed for as
				// short a window as possible.
				if err := c.setClock(time.Now().Add(-time.Duration(offset) * time.Second)); err != nil {
					console.Warnf("failed to restore clock: %v", err)
				}
			}
		}

		attempts = append(attempts, attempt)
		console.Infof("offset %+ds → success=%t", offset, attempt.Success)
	}

	summary := ClockSkewSummary{
		TestID:     cfg.TestID,
		Timestamp:  time.Now().UTC(),
		TTP:        clockSkewTTP,
		Module:     clockSkewName,
		Attempts:   len(attempts),
		Successful: successful,
		AllowSet:   c.skewCfg.AllowSet,
	}
	if err := c.writeDetailedTelemetry(cfg, summary, attempts); err != nil {
		console.Warnf("telemetry write failed: %v", err)
	}

	status := domain.StatusCompleted
	details := fmt.Sprintf("%d clock offsets attempted, %d applied", len(attempts), successful)
	if !c.skewCfg.AllowSet {
		status = domain.StatusBlocked
		details = fmt.Sprintf("%d clock offsets recorded, set blocked by configuration", len(attempts))
	}
	rec := domain.NewActionRecord(cfg, tagged(clockSkewTTP, clockSkewName), status, details)
	writeRecord(cfg, rec)

	console.ActionOK()
	return nil
}

func (c *ClockSkew) writeDetailedTelemetry(cfg *domain.RunConfig, summary ClockSkewSummary, attempts []TimeAttempt) error {
	streams := telemetry.NewStreams(cfg, clockSkewName)

	for _, a := range attempts {
		if err := streams.AppendItem(a); err != nil {
			return err
		}
	}
	if err := streams.AppendSummary(summary); err != nil {
		return err
	}

	return streams.AppendLog(func(w io.Writer) error {
		err := telemetry.LogHeader(w, [][2]string{
			{"TEST ID", summary.TestID},
			{"TIMESTAMP", summary.Timestamp.Format(time.RFC3339)},
			{"MODULE", summary.Module},
			{"MITRE TTP", summary.TTP},
			{"ATTEMPTS", fmt.Sprintf("%d", summary.Attempts)},
			{"SUCCESSFUL", fmt.Sprintf("%d", summary.Successful)},
			{"ALLOW SET", fmt.Sprintf("%t", summary.AllowSet)},
		})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, "---------------- ATTEMPTS ----------------"); err != nil {
			return err
		}
		for _, a := range attempts {
			line := fmt.Sprintf("[%s] offset=%+ds success=%t", a.Timestamp.Format(time.RFC3339), a.OffsetSeconds, a.Success)
			if a.Error != "" {
				line += " error=" + a.Error
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintln(w)
		return err
	})
}
