package runtime

import (
	"context"

	"github.com/aretw0/certwizard/pkg/domain"
)

// Call is the handle of one in-flight step request.
type Call struct {
	step    domain.StepName
	done    chan struct{}
	outcome domain.Outcome
	cancel  context.CancelFunc
}

// Step names the step this call belongs to.
func (c *Call) Step() domain.StepName { return c.step }

// Done is closed once the step has reached done or failed.
func (c *Call) Done() <-chan struct{} { return c.done }

// Outcome is only meaningful after Done is closed.
func (c *Call) Outcome() domain.Outcome {
	select {
	case <-c.done:
		return c.outcome
	default:
		return domain.Outcome{Step: c.step, Phase: domain.PhasePending}
	}
}

// Wait blocks until the call completes or ctx is done.
// Abandoning a call through ctx does not cancel its request; use Cancel.
func (c *Call) Wait(ctx context.Context) (domain.Outcome, error) {
	select {
	case <-c.done:
		return c.outcome, c.outcome.Err
	case <-ctx.Done():
		return domain.Outcome{Step: c.step, Phase: domain.PhasePending}, ctx.Err()
	}
}

// Cancel aborts the request; the step then moves to failed.
func (c *Call) Cancel() { c.cancel() }
