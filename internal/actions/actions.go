// Package actions contains the simulated technique modules. Each module is
// an opaque harness.Capability: it tests dry-run first, performs its effect,
// and leaves exactly one terminal record in the telemetry ledger.
package actions

import (
	"time"

	"github.com/magnet-sim/magnet/internal/config"
	"github.com/magnet-sim/magnet/internal/console"
	"github.com/magnet-sim/magnet/internal/domain"
	"github.com/magnet-sim/magnet/internal/harness"
	"github.com/magnet-sim/magnet/internal/storm"
	"github.com/magnet-sim/magnet/internal/telemetry"
	"github.com/magnet-sim/magnet/internal/wordlist"
)

// writeRecord appends the terminal record, absorbing ledger failures into a
// console warning so they never mask the capability's own result.
func writeRecord(cfg *domain.RunConfig, rec *domain.ActionRecord) {
	if err := telemetry.WriteActionRecord(cfg, rec); err != nil {
		console.Warnf("failed to write action record: %v", err)
	}
}

// tagged prefixes the module name with its technique classifier for the
// ledger's action label.
func tagged(ttp, name string) string {
	return ttp + " - " + name
}

// stormConfig converts the TOML storm section into executor bounds.
func stormConfig(c config.StormConfig) storm.Config {
	return storm.Config{
		Workers:      c.Workers,
		MinJitter:    time.Duration(c.MinJitterMs) * time.Millisecond,
		MaxJitter:    time.Duration(c.MaxJitterMs) * time.Millisecond,
		ProbeTimeout: time.Duration(c.ProbeTimeoutMs) * time.Millisecond,
	}
}

// All builds the full module set in registration order. Order matters:
// several modules touch shared host state and the runner executes them
// strictly in sequence.
func All(cfg *config.Config, lists *wordlist.Lists) []harness.Capability {
	return []harness.Capability{
		NewEnvHarvest(),
		NewHostEnum(),
		NewClipboardHarvest(),
		NewProcSpawn(),
		NewProcSnapshot(),
		NewDecoyNote(cfg.Decoy),
		NewAutostart(cfg.Autostart),
		NewDNSStorm(cfg.Storm, wordlist.Or(lists.Domains, DefaultDomains)),
		NewEndpointStorm(cfg.Storm, wordlist.Or(lists.Endpoints, DefaultEndpoints)),
		NewLoginBurst(wordlist.Or(lists.Passwords, DefaultPasswords)),
		NewRemoteAccess(cfg.RemoteAccess),
		NewClockSkew(cfg.ClockSkew),
	}
}
