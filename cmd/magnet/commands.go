package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/magnet-sim/magnet/internal/actions"
	"github.com/magnet-sim/magnet/internal/config"
	"github.com/magnet-sim/magnet/internal/console"
	"github.com/magnet-sim/magnet/internal/domain"
	"github.com/magnet-sim/magnet/internal/harness"
	"github.com/magnet-sim/magnet/internal/notify"
	"github.com/magnet-sim/magnet/internal/wordlist"
)

var (
	flagDryRun          bool
	flagContinueOnError bool
	flagTestID          string
	flagOutputRoot      string
	flagOnly            []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the registered simulation modules in order",
	RunE:  runSimulations,
}

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List the registered simulation modules in execution order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		lists, err := wordlist.Load(cfg.General.WordlistPath)
		if err != nil {
			return err
		}
		for _, c := range actions.All(cfg, lists) {
			fmt.Println(c.Name())
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the magnet version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("magnet", version)
	},
}

func init() {
	runCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "skip all side effects, record dry-run outcomes only")
	runCmd.Flags().BoolVar(&flagContinueOnError, "continue-on-error", false, "run remaining modules after a failure and report a multi-error")
	runCmd.Flags().StringVar(&flagTestID, "test-id", "", "override the generated test id")
	runCmd.Flags().StringVar(&flagOutputRoot, "out", "", "override the telemetry output root")
	runCmd.Flags().StringSliceVar(&flagOnly, "only", nil, "run only the named modules (comma-separated)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(modulesCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the TOML config and applies command-line overrides.
func loadConfig() (*config.Config, string, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("load config %s: %w", path, err)
	}
	if flagOutputRoot != "" {
		cfg.General.OutputRoot = config.ExpandPath(flagOutputRoot)
	}
	if flagDryRun {
		cfg.General.DryRun = true
	}
	if flagContinueOnError {
		cfg.General.ContinueOnError = true
	}
	return cfg, path, nil
}

// mintTestID returns the run identifier: either the override or a fresh
// short unique id.
func mintTestID() string {
	if flagTestID != "" {
		return flagTestID
	}
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

func runSimulations(cmd *cobra.Command, args []string) error {
	start := time.Now()

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Configuration errors abort before any capability runs.
	if err := os.MkdirAll(cfg.General.OutputRoot, 0o755); err != nil {
		return fmt.Errorf("output root %s: %w", cfg.General.OutputRoot, err)
	}

	lists, err := wordlist.Load(cfg.General.WordlistPath)
	if err != nil {
		return err
	}

	runCfg := &domain.RunConfig{
		TestID:     mintTestID(),
		DryRun:     cfg.General.DryRun,
		OutputRoot: cfg.General.OutputRoot,
	}

	console.Header(version, runCfg.TestID, runCfg.OutputRoot)

	runner := harness.NewRunner(runCfg)
	runner.ContinueOnError = cfg.General.ContinueOnError
	registered := 0
	for _, c := range actions.All(cfg, lists) {
		if !selected(c.Name()) {
			continue
		}
		runner.Register(c)
		registered++
	}

	runErr := runner.RunAll()

	console.Summary(registered, time.Since(start))
	sendNotification(cfg, runCfg, registered, runErr)

	return runErr
}

// selected reports whether the module passed the --only filter.
func selected(name string) bool {
	if len(flagOnly) == 0 {
		return true
	}
	for _, f := range flagOnly {
		if f == name {
			return true
		}
	}
	return false
}

// sendNotification reports the run outcome best-effort; it never affects
// the exit code.
func sendNotification(cfg *config.Config, runCfg *domain.RunConfig, modules int, runErr error) {
	notifier := notify.NewMultiNotifier(
		notify.NewDesktopNotifier(cfg.Notifications.Desktop),
		notify.NewSlackNotifier(cfg.Notifications.SlackWebhook),
	)

	n := notify.Notification{
		Title:   "magnet run completed",
		Type:    notify.NotifySuccess,
		TestID:  runCfg.TestID,
		Modules: modules,
	}
	if runCfg.DryRun {
		n.Message = "dry-run finished, no side effects performed"
		n.Type = notify.NotifyInfo
	} else if runErr != nil {
		n.Title = "magnet run failed"
		n.Message = runErr.Error()
		n.Type = notify.NotifyError
	} else {
		n.Message = "all modules completed, telemetry in " + runCfg.OutputRoot
	}

	if err := notifier.Send(n); err != nil {
		console.Warnf("notification failed: %v", err)
	}
}
