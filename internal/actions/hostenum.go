package actions

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/magnet-sim/magnet/internal/console"
	"github.com/magnet-sim/magnet/internal/domain"
)

const (
	hostEnumName = "host_enum"
	hostEnumTTP  = "T1135"
)

// enumCommand is one read-only enumeration command.
type enumCommand struct {
	name string
	args []string
}

// enumCommands returns the per-platform command table. Everything here is
// read-only discovery; a command that is absent on the host simply records
// an exec failure.
func enumCommands() []enumCommand {
	if runtime.GOOS == "windows" {
		return []enumCommand{
			{"net", []string{"view"}},
			{"net", []string{"share"}},
			{"powershell", []string{"-NoProfile", "-NonInteractive", "-Command", "Get-SmbShare | Format-Table -AutoSize"}},
		}
	}
	return []enumCommand{
		{"uname", []string{"-a"}},
		{"df", []string{"-h"}},
		{"mount", nil},
	}
}

// runCapture executes a command and returns its stdout.
func runCapture(name string, args []string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return string(out), nil
}

// HostEnum runs a fixed set of read-only host enumeration commands and
// stores their combined output as a run artifact.
type HostEnum struct{}

// NewHostEnum builds the host enumeration module.
func NewHostEnum() *HostEnum { return &HostEnum{} }

func (h *HostEnum) Name() string { return hostEnumName }

func (h *HostEnum) Run(cfg *domain.RunConfig) error {
	console.ActionRunning("enumerating host shares and mounts (read-only)")

	if cfg.DryRun {
		console.Info("dry-run: would run host enumeration commands")
		rec := domain.NewActionRecord(cfg, tagged(hostEnumTTP, hostEnumName), domain.StatusDryRun, "host enumeration skipped")
		writeRecord(cfg, rec)
		console.ActionOK()
		return nil
	}

	var (
		sections []string
		failed   int
	)
	cmds := enumCommands()
	for _, c := range cmds {
		console.Infof("running: %s %s", c.name, strings.Join(c.args, " "))
		out, err := runCapture(c.name, c.args)
		if err != nil {
			failed++
			out = fmt.Sprintf("<error: %v>", err)
		}
		sections = append(sections, fmt.Sprintf("$ %s %s\n%s", c.name, strings.Join(c.args, " "), out))
	}

	artifact := cfg.StreamPath(hostEnumName, ".txt")
	status := domain.StatusCompleted
	details := fmt.Sprintf("%d of %d enumeration commands succeeded", len(cmds)-failed, len(cmds))
	if failed > 0 {
		status = domain.StatusPartial
	}

	if err := os.WriteFile(artifact, []byte(strings.Join(sections, "\n")), 0o644); err != nil {
		console.Warnf("could not write enumeration artifact: %v", err)
		artifact = ""
	}

	rec := domain.NewActionRecord(cfg, tagged(hostEnumTTP, hostEnumName), status, details)
	rec.ArtifactPath = artifact
	writeRecord(cfg, rec)

	console.ActionOK()
	return nil
}
