package actions

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/magnet-sim/magnet/internal/console"
	"github.com/magnet-sim/magnet/internal/domain"
)

const (
	procSpawnName = "proc_spawn"
	procSpawnTTP  = "T1106"
)

// ProcSpawn spawns one benign short-lived child process so process-creation
// telemetry has something to observe.
type ProcSpawn struct{}

// NewProcSpawn builds the process-creation module.
func NewProcSpawn() *ProcSpawn { return &ProcSpawn{} }

func (p *ProcSpawn) Name() string { return procSpawnName }

// spawnCommand returns the benign child command for this platform.
func spawnCommand() *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.Command("cmd", "/c", "ver")
	}
	return exec.Command("uname", "-r")
}

func (p *ProcSpawn) Run(cfg *domain.RunConfig) error {
	console.ActionRunning("spawning benign child process")

	if cfg.DryRun {
		console.Info("dry-run: no process spawned")
		rec := domain.NewActionRecord(cfg, tagged(procSpawnTTP, procSpawnName), domain.StatusDryRun, "process creation skipped")
		writeRecord(cfg, rec)
		console.ActionOK()
		return nil
	}

	cmd := spawnCommand()
	out, err := cmd.Output()
	if err != nil {
		rec := domain.NewActionRecord(cfg, tagged(procSpawnTTP, procSpawnName), domain.StatusFailed,
			fmt.Sprintf("spawn error: %v", err))
		writeRecord(cfg, rec)
		return fmt.Errorf("spawn %s: %w", cmd.Path, err)
	}

	pid := 0
	if cmd.Process != nil {
		pid = cmd.Process.Pid
	}
	console.Infof("spawned pid %d, exit code %d", pid, cmd.ProcessState.ExitCode())

	rec := domain.NewActionRecord(cfg, tagged(procSpawnTTP, procSpawnName), domain.StatusCompleted,
		fmt.Sprintf("spawned %s (pid %d), exit code %d, %d bytes of output", cmd.Path, pid, cmd.ProcessState.ExitCode(), len(out)))
	writeRecord(cfg, rec)

	console.ActionOK()
	return nil
}
