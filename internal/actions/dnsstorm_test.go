package actions

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/magnet-sim/magnet/internal/domain"
	"github.com/magnet-sim/magnet/internal/telemetry"
)

// stubResolver succeeds for every host not ending in ".invalid".
func stubResolver(ctx context.Context, host string) ([]string, error) {
	if len(host) > 8 && host[len(host)-8:] == ".invalid" {
		return nil, errors.New("no such host")
	}
	return []string{"192.0.2.1"}, nil
}

func TestDNSStorm_ProbeCountIndependentOfCandidateList(t *testing.T) {
	cfg := testRunConfig(t)

	candidates := DefaultDomains
	if len(candidates) != 33 {
		t.Fatalf("candidate list has %d entries, want 33", len(candidates))
	}

	ds := NewDNSStorm(quickStorm(40), candidates)
	ds.resolve = stubResolver

	if err := ds.Run(cfg); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	streams := telemetry.NewStreams(cfg, "dns_storm")
	items := readJSONLines[DomainResult](t, streams.ItemPath())
	if len(items) != 40 {
		t.Errorf("got %d per-query records, want 40", len(items))
	}

	summaries := readJSONLines[DNSStormSummary](t, streams.SummaryPath())
	if len(summaries) != 1 {
		t.Fatalf("got %d summary records, want 1", len(summaries))
	}
	s := summaries[0]
	if s.TotalQueries != 40 {
		t.Errorf("summary total_queries = %d, want 40", s.TotalQueries)
	}
	if s.Successful+s.Failed != s.TotalQueries {
		t.Errorf("successful (%d) + failed (%d) != total (%d)", s.Successful, s.Failed, s.TotalQueries)
	}
	if s.Module != "dns_storm" || s.TestID != cfg.TestID {
		t.Errorf("summary identity = %s/%s, want dns_storm/%s", s.Module, s.TestID, cfg.TestID)
	}

	if _, err := os.Stat(streams.LogPath()); err != nil {
		t.Errorf("human-readable log missing: %v", err)
	}
}

func TestDNSStorm_SummaryCountsMatchItems(t *testing.T) {
	cfg := testRunConfig(t)

	ds := NewDNSStorm(quickStorm(12), []string{"ok.test", "bad.invalid", "also-ok.test"})
	ds.resolve = stubResolver

	if err := ds.Run(cfg); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	streams := telemetry.NewStreams(cfg, "dns_storm")
	items := readJSONLines[DomainResult](t, streams.ItemPath())

	ok, failed := 0, 0
	for _, it := range items {
		if it.Success {
			ok++
			if it.IP == "" {
				t.Errorf("successful probe for %s has empty ip", it.Domain)
			}
		} else {
			failed++
		}
	}
	// Round-robin over 3 candidates for 12 probes hits each 4 times.
	if ok != 8 || failed != 4 {
		t.Errorf("got %d ok / %d failed, want 8 / 4", ok, failed)
	}

	summaries := readJSONLines[DNSStormSummary](t, streams.SummaryPath())
	if summaries[0].Successful != ok || summaries[0].Failed != failed {
		t.Errorf("summary %d/%d disagrees with items %d/%d",
			summaries[0].Successful, summaries[0].Failed, ok, failed)
	}
}

func TestDNSStorm_TerminalRecord(t *testing.T) {
	cfg := testRunConfig(t)

	ds := NewDNSStorm(quickStorm(6), []string{"ok.test"})
	ds.resolve = stubResolver

	if err := ds.Run(cfg); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	recs := readLedger(t, cfg)
	if len(recs) != 1 {
		t.Fatalf("ledger has %d records, want 1", len(recs))
	}
	if recs[0].Status != domain.StatusCompleted {
		t.Errorf("status = %q, want %q", recs[0].Status, domain.StatusCompleted)
	}
	if recs[0].Action != "T1071.004 - dns_storm" {
		t.Errorf("action = %q", recs[0].Action)
	}
}

func TestDNSStorm_DryRun(t *testing.T) {
	cfg := testRunConfig(t)
	cfg.DryRun = true

	resolved := false
	ds := NewDNSStorm(quickStorm(40), DefaultDomains)
	ds.resolve = func(ctx context.Context, host string) ([]string, error) {
		resolved = true
		return nil, nil
	}

	if err := ds.Run(cfg); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if resolved {
		t.Error("dry-run performed a DNS lookup")
	}

	recs := readLedger(t, cfg)
	if len(recs) != 1 {
		t.Fatalf("ledger has %d records, want 1", len(recs))
	}
	if recs[0].Status != domain.StatusDryRun {
		t.Errorf("status = %q, want %q", recs[0].Status, domain.StatusDryRun)
	}

	streams := telemetry.NewStreams(cfg, "dns_storm")
	for _, path := range []string{streams.ItemPath(), streams.SummaryPath(), streams.LogPath()} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("dry-run left stream file %s", path)
		}
	}
}
