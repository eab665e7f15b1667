package actions

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/magnet-sim/magnet/internal/console"
	"github.com/magnet-sim/magnet/internal/domain"
	"github.com/magnet-sim/magnet/internal/telemetry"
)

const (
	envHarvestName = "env_harvest"
	envHarvestTTP  = "T1082"
)

// EnvVarRecord is one collected environment variable.
type EnvVarRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
}

// EnvHarvestSummary is the per-run summary record.
type EnvHarvestSummary struct {
	TestID    string    `json:"test_id"`
	Timestamp time.Time `json:"timestamp"`
	TTP       string    `json:"mitre"`
	Module    string    `json:"module"`
	TotalVars int       `json:"total_vars"`
}

// EnvHarvest collects the process environment, one detail record per
// variable.
type EnvHarvest struct{}

// NewEnvHarvest builds the environment collection module.
func NewEnvHarvest() *EnvHarvest { return &EnvHarvest{} }

func (e *EnvHarvest) Name() string { return envHarvestName }

func (e *EnvHarvest) Run(cfg *domain.RunConfig) error {
	console.ActionRunning("collecting environment variables")

	if cfg.DryRun {
		console.Info("dry-run: environment collection skipped")
		rec := domain.NewActionRecord(cfg, tagged(envHarvestTTP, envHarvestName), domain.StatusDryRun, "env collection skipped")
		writeRecord(cfg, rec)
		console.ActionOK()
		return nil
	}

	var vars []EnvVarRecord
	for _, kv := range os.Environ() {
		key, value, _ := strings.Cut(kv, "=")
		vars = append(vars, EnvVarRecord{
			Timestamp: time.Now().UTC(),
			Key:       key,
			Value:     value,
		})
	}

	summary := EnvHarvestSummary{
		TestID:    cfg.TestID,
		Timestamp: time.Now().UTC(),
		TTP:       envHarvestTTP,
		Module:    envHarvestName,
		TotalVars: len(vars),
	}

	if err := e.writeDetailedTelemetry(cfg, summary, vars); err != nil {
		console.Warnf("telemetry write failed: %v", err)
	}

	rec := domain.NewActionRecord(cfg, tagged(envHarvestTTP, envHarvestName), domain.StatusCompleted,
		fmt.Sprintf("collected %d environment variables", len(vars)))
	writeRecord(cfg, rec)

	console.ActionOK()
	return nil
}

func (e *EnvHarvest) writeDetailedTelemetry(cfg *domain.RunConfig, summary EnvHarvestSummary, vars []EnvVarRecord) error {
	streams := telemetry.NewStreams(cfg, envHarvestName)

	for _, v := range vars {
		if err := streams.AppendItem(v); err != nil {
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
			{"TOTAL VARS", fmt.Sprintf("%d", summary.TotalVars)},
		})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, "---------------- VARIABLES ----------------"); err != nil {
			return err
		}
		for _, v := range vars {
			if _, err := fmt.Fprintf(w, "[%s] %s=%s\n", v.Timestamp.Format(time.RFC3339), v.Key, v.Value); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintln(w)
		return err
	})
}
