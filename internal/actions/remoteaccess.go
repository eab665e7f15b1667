package actions

import (
	"fmt"
	"io"
	"net"
	"os/exec"
	"runtime"
	"time"

	"github.com/magnet-sim/magnet/internal/config"
	"github.com/magnet-sim/magnet/internal/console"
	"github.com/magnet-sim/magnet/internal/domain"
	"github.com/magnet-sim/magnet/internal/telemetry"
)

const (
	remoteAccessName = "remote_access"
	remoteAccessTTP  = "T1021.001/T1021.004"
)

// remoteService is one remote-access surface the module tries to enable.
type remoteService struct {
	name string
	port int
}

// remoteServices lists the surfaces in attempt order.
var remoteServices = []remoteService{
	{"rdp", 3389},
	{"ssh", 22},
}

// ServiceAttempt is one enablement attempt.
type ServiceAttempt struct {
	Timestamp  time.Time `json:"timestamp"`
	Service    string    `json:"service"`
	Success    bool      `json:"success"`
	ListenerUp bool      `json:"listener_up"`
	Error      string    `json:"error,omitempty"`
}

// RemoteAccessSummary is the per-run summary record.
type RemoteAccessSummary struct {
	TestID      string    `json:"test_id"`
	Timestamp   time.Time `json:"timestamp"`
	TTP         string    `json:"mitre"`
	Module      string    `json:"module"`
	Attempts    int       `json:"attempts"`
	Successful  int       `json:"successful"`
	AllowEnable bool      `json:"allow_enable"`
}

// RemoteAccess attempts to enable the host's RDP and SSH surfaces. Unless
// allow_enable is set in config, the attempts are recorded as blocked
// without touching any service; with it set, each enabled service is
// disabled again right after the listener check so the exposure window
// stays minimal.
type RemoteAccess struct {
	remoteCfg config.RemoteAccessConfig

	// toggle enables or disables one service; swappable for tests.
	toggle func(service string, enable bool) error
}

// NewRemoteAccess builds the remote-access enablement module.
func NewRemoteAccess(remoteCfg config.RemoteAccessConfig) *RemoteAccess {
	return &RemoteAccess{remoteCfg: remoteCfg, toggle: toggleRemoteService}
}

func (r *RemoteAccess) Name() string { return remoteAccessName }

// toggleRemoteService invokes the platform service-control command.
func toggleRemoteService(service string, enable bool) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		var ps string
		switch service {
		case "rdp":
			val := "1"
			if enable {
				val = "0"
			}
			ps = fmt.Sprintf(
				"Set-ItemProperty -Path 'HKLM:\\SYSTEM\\CurrentControlSet\\Control\\Terminal Server' -Name fDenyTSConnections -Value %s", val)
		default:
			verb := "Stop-Service"
			if enable {
				verb = "Start-Service"
			}
			ps = verb + " sshd"
		}
		cmd = exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", ps)
	} else {
		verb := "stop"
		if enable {
			verb = "start"
		}
		unit := "sshd"
		if service == "rdp" {
			unit = "xrdp"
		}
		cmd = exec.Command("systemctl", verb, unit)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s %s: %v (%s)", service, cmd.Path, err, string(out))
	}
	return nil
}

// listenerUp reports whether anything accepts on the service port.
func listenerUp(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (r *RemoteAccess) Run(cfg *domain.RunConfig) error {
	console.ActionRunning("attempting remote-access service enablement")

	if cfg.DryRun {
		console.Info("dry-run: no services touched")
		rec := domain.NewActionRecord(cfg, tagged(remoteAccessTTP, remoteAccessName), domain.StatusDryRun, "remote-access enablement skipped")
		writeRecord(cfg, rec)
		console.ActionOK()
		return nil
	}

	var attempts []ServiceAttempt
	successful := 0

	for _, svc := range remoteServices {
		attempt := ServiceAttempt{
			Timestamp: time.Now().UTC(),
			Service:   svc.name,
		}

		if !r.remoteCfg.AllowEnable {
			attempt.Error = "service enablement not permitted by configuration"
		} else if err := r.toggle(svc.name, true); err != nil {
			attempt.Error = err.Error()
		} else {
			attempt.Success = true
			successful++
			attempt.ListenerUp = listenerUp(svc.port)
			// Disable again immediately so the surface is exposed for as
			// short a window as possible.
			if err := r.toggle(svc.name, false); err != nil {
				console.Warnf("failed to disable %s again: %v", svc.name, err)
			}
		}

		attempts = append(attempts, attempt)
		console.Infof("%s → success=%t listener=%t", svc.name, attempt.Success, attempt.ListenerUp)
	}

	summary := RemoteAccessSummary{
		TestID:      cfg.TestID,
		Timestamp:   time.Now().UTC(),
		TTP:         remoteAccessTTP,
		Module:      remoteAccessName,
		Attempts:    len(attempts),
		Successful:  successful,
		AllowEnable: r.remoteCfg.AllowEnable,
	}
	if err := r.writeDetailedTelemetry(cfg, summary, attempts); err != nil {
		console.Warnf("telemetry write failed: %v", err)
	}

	status := domain.StatusCompleted
	details := fmt.Sprintf("%d services attempted, %d enabled and reverted", len(attempts), successful)
	if !r.remoteCfg.AllowEnable {
		status = domain.StatusBlocked
		details = fmt.Sprintf("%d services recorded, enablement blocked by configuration", len(attempts))
	}
	rec := domain.NewActionRecord(cfg, tagged(remoteAccessTTP, remoteAccessName), status, details)
	writeRecord(cfg, rec)

	console.ActionOK()
	return nil
}

func (r *RemoteAccess) writeDetailedTelemetry(cfg *domain.RunConfig, summary RemoteAccessSummary, attempts []ServiceAttempt) error {
	streams := telemetry.NewStreams(cfg, remoteAccessName)

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
			{"ALLOW ENABLE", fmt.Sprintf("%t", summary.AllowEnable)},
		})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, "---------------- ATTEMPTS ----------------"); err != nil {
			return err
		}
		for _, a := range attempts {
			line := fmt.Sprintf("[%s] %s success=%t listener=%t", a.Timestamp.Format(time.RFC3339), a.Service, a.Success, a.ListenerUp)
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
