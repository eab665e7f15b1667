package harness

import (
	"errors"

	"github.com/magnet-sim/magnet/internal/console"
	"github.com/magnet-sim/magnet/internal/domain"
)

// Runner owns the ordered capability list and the shared run configuration.
// Execution is strictly sequential: independent techniques may contend for
// the same host subsystem, so no two capabilities ever run concurrently.
type Runner struct {
	cfg          *domain.RunConfig
	capabilities []Capability

	// ContinueOnError switches the stop policy from fail-fast to running
	// every capability and returning a joined multi-error.
	ContinueOnError bool
}

// NewRunner creates a runner for the given run configuration.
func NewRunner(cfg *domain.RunConfig) *Runner {
	return &Runner{cfg: cfg}
}

// Register appends a capability. Registration order is execution order.
func (r *Runner) Register(c Capability) {
	r.capabilities = append(r.capabilities, c)
}

// Capabilities returns the registered capabilities in execution order.
func (r *Runner) Capabilities() []Capability {
	return r.capabilities
}

// RunAll invokes each capability in registration order. Under the default
// fail-fast policy the first capability error stops the sequence; prior
// capabilities have already completed and flushed their telemetry.
func (r *Runner) RunAll() error {
	var errs []error

	for _, c := range r.capabilities {
		console.ModuleStart(c.Name())

		if err := c.Run(r.cfg); err != nil {
			werr := &CapabilityError{Capability: c.Name(), Err: err}
			if !r.ContinueOnError {
				console.Errorf("stopping run: %v", werr)
				return werr
			}
			console.Warnf("continuing past failure: %v", werr)
			errs = append(errs, werr)
		}
	}

	return errors.Join(errs...)
}
