package harness

import (
	"errors"
	"fmt"

	"github.com/magnet-sim/magnet/internal/domain"
)

// ErrVerificationFailed signals that a capability performed its effect but
// a required verification step did not hold.
var ErrVerificationFailed = errors.New("verification failed")

// Capability is the contract every simulated technique module implements.
// Run must test cfg.DryRun before any side effect and must have written its
// terminal ActionRecord (best-effort) before returning.
type Capability interface {
	Name() string
	Run(cfg *domain.RunConfig) error
}

// CapabilityError wraps a capability failure with the module that produced
// it, so the process boundary can report a human-readable cause.
type CapabilityError struct {
	Capability string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}
