package actions

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/magnet-sim/magnet/internal/config"
	"github.com/magnet-sim/magnet/internal/console"
	"github.com/magnet-sim/magnet/internal/domain"
	"github.com/magnet-sim/magnet/internal/storm"
	"github.com/magnet-sim/magnet/internal/telemetry"
)

const (
	dnsStormName = "dns_storm"
	dnsStormTTP  = "T1071.004"
)

// DefaultDomains is the safe candidate list for the DNS storm. The tail
// entries are deliberately unresolvable so the storm always records a mix
// of outcomes.
var DefaultDomains = []string{
	"example.com",
	"example.net",
	"iana.org",
	"localhost",
	"test.example.com",
	"safe.test",
	"internal.test",
	"microsoft.com",
	"windows.com",
	"office.com",
	"live.com",
	"github.com",
	"githubusercontent.com",
	"gitlab.com",
	"bitbucket.org",
	"openai.com",
	"cloudflare.com",
	"google.com",
	"gstatic.com",
	"googleapis.com",
	"aws.amazon.com",
	"azure.com",
	"oracle.com",
	"apple.com",
	"cdn.jsdelivr.net",
	"fastly.net",
	"akamai.net",
	"edgesuite.net",
	// NXDOMAIN-ish
	"aj39dksl.test",
	"randomsub1.safe.test",
	"rnd-2398.example.com",
	"ds98rtfxsmn.m1cr0soft.com",
	"telemetry-sink.invalid",
}

// DomainResult is the per-probe detail record of the DNS storm.
type DomainResult struct {
	Timestamp time.Time `json:"timestamp"`
	Domain    string    `json:"domain"`
	Success   bool      `json:"success"`
	IP        string    `json:"ip,omitempty"`
}

// DNSStormSummary is the per-run summary record of the DNS storm.
type DNSStormSummary struct {
	TestID       string    `json:"test_id"`
	Timestamp    time.Time `json:"timestamp"`
	TTP          string    `json:"mitre"`
	Module       string    `json:"module"`
	TotalQueries int       `json:"total_queries"`
	Successful   int       `json:"successful"`
	Failed       int       `json:"failed"`
	ElapsedMs    int64     `json:"elapsed_ms"`
	Parent       string    `json:"parent"`
}

// DNSStorm issues many independent DNS resolutions in parallel and records
// one detail record per query.
type DNSStorm struct {
	stormCfg config.StormConfig
	domains  []string

	// resolve is swappable for tests; the default uses the system resolver.
	resolve func(ctx context.Context, host string) ([]string, error)
}

// NewDNSStorm builds the DNS storm module over the given candidate list.
func NewDNSStorm(stormCfg config.StormConfig, domains []string) *DNSStorm {
	return &DNSStorm{
		stormCfg: stormCfg,
		domains:  domains,
		resolve: func(ctx context.Context, host string) ([]string, error) {
			return net.DefaultResolver.LookupHost(ctx, host)
		},
	}
}

func (d *DNSStorm) Name() string { return dnsStormName }

func (d *DNSStorm) Run(cfg *domain.RunConfig) error {
	console.ActionRunning("parallel DNS query storm")

	if cfg.DryRun {
		console.Info("dry-run: no DNS lookups executed")
		rec := domain.NewActionRecord(cfg, tagged(dnsStormTTP, dnsStormName), domain.StatusDryRun, "DNS storm skipped")
		writeRecord(cfg, rec)
		console.ActionOK()
		return nil
	}

	total := d.stormCfg.TotalProbes
	console.Infof("launching %s parallel DNS queries...", humanize.Comma(int64(total)))

	exec := storm.New(stormConfig(d.stormCfg))
	results, summary := exec.Run(context.Background(), storm.Expand(d.domains, total), func(ctx context.Context, host string) (string, error) {
		addrs, err := d.resolve(ctx, host)
		if err != nil {
			return "", err
		}
		if len(addrs) == 0 {
			return "", fmt.Errorf("no addresses for %s", host)
		}
		return addrs[0], nil
	})

	perQuery := make([]DomainResult, len(results))
	for i, r := range results {
		perQuery[i] = DomainResult{
			Timestamp: r.Timestamp,
			Domain:    r.Target,
			Success:   r.Success,
			IP:        r.Value,
		}
		if r.Success {
			console.Infof("%s → OK (%s)", r.Target, r.Value)
		} else {
			console.Infof("%s → FAIL", r.Target)
		}
	}

	console.Infof("DNS storm completed: %d ok, %d failed, %d ms",
		summary.Successful, summary.Failed, summary.Elapsed.Milliseconds())

	stormRec := DNSStormSummary{
		TestID:       cfg.TestID,
		Timestamp:    time.Now().UTC(),
		TTP:          dnsStormTTP,
		Module:       dnsStormName,
		TotalQueries: summary.Total,
		Successful:   summary.Successful,
		Failed:       summary.Failed,
		ElapsedMs:    summary.Elapsed.Milliseconds(),
		Parent:       summary.Parent,
	}

	if err := d.writeDetailedTelemetry(cfg, stormRec, perQuery); err != nil {
		console.Warnf("telemetry write failed: %v", err)
	}

	rec := domain.NewActionRecord(cfg, tagged(dnsStormTTP, dnsStormName), domain.StatusCompleted,
		fmt.Sprintf("%d ok, %d failed DNS lookups", summary.Successful, summary.Failed))
	writeRecord(cfg, rec)

	console.ActionOK()
	return nil
}

// writeDetailedTelemetry appends the itemized stream in completion order,
// then the summary, then the human-readable log.
func (d *DNSStorm) writeDetailedTelemetry(cfg *domain.RunConfig, summary DNSStormSummary, perQuery []DomainResult) error {
	streams := telemetry.NewStreams(cfg, dnsStormName)

	for _, q := range perQuery {
		if err := streams.AppendItem(q); err != nil {
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
			{"TOTAL QUERIES", fmt.Sprintf("%d", summary.TotalQueries)},
			{"SUCCESSFUL", fmt.Sprintf("%d", summary.Successful)},
			{"FAILED", fmt.Sprintf("%d", summary.Failed)},
			{"ELAPSED_MS", fmt.Sprintf("%d", summary.ElapsedMs)},
		})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, "---------------- DOMAIN RESULTS ----------------"); err != nil {
			return err
		}
		for _, q := range perQuery {
			outcome := "FAIL"
			if q.Success {
				outcome = fmt.Sprintf("OK (%s)", q.IP)
			}
			if _, err := fmt.Fprintf(w, "[%s] %s → %s\n", q.Timestamp.Format(time.RFC3339), q.Domain, outcome); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintln(w)
		return err
	})
}
