package actions

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/avast/retry-go/v5"

	"github.com/magnet-sim/magnet/internal/config"
	"github.com/magnet-sim/magnet/internal/console"
	"github.com/magnet-sim/magnet/internal/domain"
	"github.com/magnet-sim/magnet/internal/storm"
	"github.com/magnet-sim/magnet/internal/telemetry"
)

const (
	endpointStormName = "endpoint_storm"
	endpointStormTTP  = "T1559.002"
)

// DefaultEndpoints are the IPC endpoint labels exercised by the storm. The
// names mirror pipe names commonly watched by detection rules; the actual
// endpoints are loopback listeners, so nothing leaves the host.
var DefaultEndpoints = []string{
	"mojo.12345.67890",
	"PSEXESVC",
	"status_communication",
	"agent_telemetry",
	"svcctl",
	"session.pipe.test",
	"random_task_channel",
}

// EndpointRecord is the per-probe detail record: one endpoint lifecycle,
// tagged with the last stage it reached.
type EndpointRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Endpoint  string    `json:"endpoint"`
	Stage     string    `json:"stage"`
	Success   bool      `json:"success"`
}

// EndpointStormSummary is the per-run summary record.
type EndpointStormSummary struct {
	TestID         string    `json:"test_id"`
	Timestamp      time.Time `json:"timestamp"`
	TTP            string    `json:"mitre"`
	Module         string    `json:"module"`
	TotalEndpoints int       `json:"total_endpoints"`
	Successful     int       `json:"successful"`
	Failed         int       `json:"failed"`
	ElapsedMs      int64     `json:"elapsed_ms"`
	Parent         string    `json:"parent"`
}

// EndpointStorm creates, connects to, and tears down many loopback IPC
// endpoints in parallel, one lifecycle per probe.
type EndpointStorm struct {
	stormCfg  config.StormConfig
	endpoints []string
}

// NewEndpointStorm builds the endpoint storm over the given label list.
func NewEndpointStorm(stormCfg config.StormConfig, endpoints []string) *EndpointStorm {
	return &EndpointStorm{stormCfg: stormCfg, endpoints: endpoints}
}

func (s *EndpointStorm) Name() string { return endpointStormName }

func (s *EndpointStorm) Run(cfg *domain.RunConfig) error {
	console.ActionRunning("loopback IPC endpoint storm")

	if cfg.DryRun {
		console.Info("dry-run: no endpoints created")
		rec := domain.NewActionRecord(cfg, tagged(endpointStormTTP, endpointStormName), domain.StatusDryRun, "endpoint storm skipped")
		writeRecord(cfg, rec)
		console.ActionOK()
		return nil
	}

	// One lifecycle per candidate label, not TotalProbes: each endpoint
	// name is only plausible once per run.
	targets := storm.Expand(s.endpoints, len(s.endpoints))
	console.Infof("cycling %d loopback endpoints...", len(targets))

	exec := storm.New(stormConfig(s.stormCfg))
	results, summary := exec.Run(context.Background(), targets, probeEndpoint)

	records := make([]EndpointRecord, len(results))
	for i, r := range results {
		records[i] = EndpointRecord{
			Timestamp: r.Timestamp,
			Endpoint:  r.Target,
			Stage:     endpointStage(r),
			Success:   r.Success,
		}
		if r.Success {
			console.Infof("%s → OK (%s)", r.Target, r.Value)
		} else {
			console.Infof("%s → FAIL at %s", r.Target, records[i].Stage)
		}
	}

	stormRec := EndpointStormSummary{
		TestID:         cfg.TestID,
		Timestamp:      time.Now().UTC(),
		TTP:            endpointStormTTP,
		Module:         endpointStormName,
		TotalEndpoints: summary.Total,
		Successful:     summary.Successful,
		Failed:         summary.Failed,
		ElapsedMs:      summary.Elapsed.Milliseconds(),
		Parent:         summary.Parent,
	}

	if err := s.writeDetailedTelemetry(cfg, stormRec, records); err != nil {
		console.Warnf("telemetry write failed: %v", err)
	}

	rec := domain.NewActionRecord(cfg, tagged(endpointStormTTP, endpointStormName), domain.StatusCompleted,
		fmt.Sprintf("%d ok, %d failed endpoint cycles", summary.Successful, summary.Failed))
	writeRecord(cfg, rec)

	console.ActionOK()
	return nil
}

// probeEndpoint runs one endpoint lifecycle: listen on loopback, dial the
// listener (transient dial errors retried), accept, close everything. The
// returned value is the bound address; errors carry the failing stage.
func probeEndpoint(ctx context.Context, label string) (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("create: %w", err)
	}
	defer ln.Close()

	addr := ln.Addr().String()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- conn
	}()
	// A connection parked in the channel after an abandoned lifecycle must
	// still be closed, or its fd outlives the probe.
	defer func() {
		select {
		case conn := <-accepted:
			conn.Close()
		default:
		}
	}()

	var client net.Conn
	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(25*time.Millisecond),
	)
	err = r.Do(func() error {
		var dialErr error
		client, dialErr = (&net.Dialer{}).DialContext(ctx, "tcp", addr)
		return dialErr
	})
	if err != nil {
		return "", fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	select {
	case server := <-accepted:
		server.Close()
	case <-ctx.Done():
		return "", fmt.Errorf("close: %w", ctx.Err())
	}

	return fmt.Sprintf("%s @%s", label, addr), nil
}

// endpointStage extracts the last stage a probe reached from its result.
func endpointStage(r storm.Result) string {
	if r.Success {
		return "close"
	}
	if stage, _, ok := strings.Cut(r.Error, ":"); ok {
		return stage
	}
	return "create"
}

func (s *EndpointStorm) writeDetailedTelemetry(cfg *domain.RunConfig, summary EndpointStormSummary, records []EndpointRecord) error {
	streams := telemetry.NewStreams(cfg, endpointStormName)

	for _, r := range records {
		if err := streams.AppendItem(r); err != nil {
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
			{"TOTAL OPS", fmt.Sprintf("%d", summary.TotalEndpoints)},
			{"SUCCESSFUL", fmt.Sprintf("%d", summary.Successful)},
			{"FAILED", fmt.Sprintf("%d", summary.Failed)},
		})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, "---------------- ENDPOINT RESULTS ----------------"); err != nil {
			return err
		}
		for _, r := range records {
			outcome := "FAIL"
			if r.Success {
				outcome = "OK"
			}
			if _, err := fmt.Fprintf(w, "[%s] %s stage=%s → %s\n", r.Timestamp.Format(time.RFC3339), r.Endpoint, r.Stage, outcome); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintln(w)
		return err
	})
}
