package actions

import (
	"errors"
	"testing"

	"github.com/magnet-sim/magnet/internal/config"
	"github.com/magnet-sim/magnet/internal/domain"
	"github.com/magnet-sim/magnet/internal/telemetry"
)

func TestRemoteAccess_BlockedByDefault(t *testing.T) {
	cfg := testRunConfig(t)

	calls := 0
	ra := NewRemoteAccess(config.RemoteAccessConfig{})
	ra.toggle = func(service string, enable bool) error {
		calls++
		return nil
	}

	if err := ra.Run(cfg); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if calls != 0 {
		t.Errorf("toggle called %d times with allow_enable disabled", calls)
	}

	streams := telemetry.NewStreams(cfg, "remote_access")
	attempts := readJSONLines[ServiceAttempt](t, streams.ItemPath())
	if len(attempts) != len(remoteServices) {
		t.Fatalf("got %d attempts, want %d", len(attempts), len(remoteServices))
	}
	for _, a := range attempts {
		if a.Success {
			t.Errorf("service %s enabled while blocked", a.Service)
		}
		if a.Error == "" {
			t.Errorf("service %s recorded no error while blocked", a.Service)
		}
	}

	recs := readLedger(t, cfg)
	if len(recs) != 1 {
		t.Fatalf("ledger has %d records, want 1", len(recs))
	}
	if recs[0].Status != domain.StatusBlocked {
		t.Errorf("status = %q, want %q", recs[0].Status, domain.StatusBlocked)
	}
}

func TestRemoteAccess_EnablesAndRevertsWhenAllowed(t *testing.T) {
	cfg := testRunConfig(t)

	type call struct {
		service string
		enable  bool
	}
	var calls []call
	ra := NewRemoteAccess(config.RemoteAccessConfig{AllowEnable: true})
	ra.toggle = func(service string, enable bool) error {
		calls = append(calls, call{service, enable})
		return nil
	}

	if err := ra.Run(cfg); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	// Each service is enabled then immediately disabled again.
	if len(calls) != 2*len(remoteServices) {
		t.Fatalf("toggle called %d times, want %d", len(calls), 2*len(remoteServices))
	}
	for i := 0; i < len(calls); i += 2 {
		if !calls[i].enable || calls[i+1].enable {
			t.Errorf("calls %d/%d = %+v %+v, want enable then disable", i, i+1, calls[i], calls[i+1])
		}
		if calls[i].service != calls[i+1].service {
			t.Errorf("enable/disable pair spans services %s and %s", calls[i].service, calls[i+1].service)
		}
	}

	streams := telemetry.NewStreams(cfg, "remote_access")
	summaries := readJSONLines[RemoteAccessSummary](t, streams.SummaryPath())
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}
	if summaries[0].Successful != len(remoteServices) || !summaries[0].AllowEnable {
		t.Errorf("summary = %+v", summaries[0])
	}

	recs := readLedger(t, cfg)
	if len(recs) != 1 || recs[0].Status != domain.StatusCompleted {
		t.Fatalf("ledger = %+v, want single completed record", recs)
	}
}

func TestRemoteAccess_ToggleFailureRecordedPerAttempt(t *testing.T) {
	cfg := testRunConfig(t)

	ra := NewRemoteAccess(config.RemoteAccessConfig{AllowEnable: true})
	ra.toggle = func(service string, enable bool) error {
		return errors.New("access denied")
	}

	if err := ra.Run(cfg); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	streams := telemetry.NewStreams(cfg, "remote_access")
	attempts := readJSONLines[ServiceAttempt](t, streams.ItemPath())
	for _, a := range attempts {
		if a.Success || a.Error != "access denied" {
			t.Errorf("attempt %+v, want failed with OS error", a)
		}
	}

	// Failures to enable are host telemetry, not module failures.
	recs := readLedger(t, cfg)
	if len(recs) != 1 || recs[0].Status != domain.StatusCompleted {
		t.Fatalf("ledger = %+v, want single completed record", recs)
	}
}

func TestRemoteAccess_DryRun(t *testing.T) {
	cfg := testRunConfig(t)
	cfg.DryRun = true

	ra := NewRemoteAccess(config.RemoteAccessConfig{AllowEnable: true})
	ra.toggle = func(service string, enable bool) error {
		t.Error("toggle called during dry-run")
		return nil
	}

	if err := ra.Run(cfg); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	recs := readLedger(t, cfg)
	if len(recs) != 1 || recs[0].Status != domain.StatusDryRun {
		t.Fatalf("ledger = %+v, want single dry-run record", recs)
	}
}
