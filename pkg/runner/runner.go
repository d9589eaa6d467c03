package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/certwizard/internal/logging"
	"github.com/aretw0/certwizard/pkg/domain"
)

// Wizard is what the runner needs from the orchestrator.
type Wizard interface {
	Steps() []domain.Step
	Snapshot() domain.Snapshot
	Run(ctx context.Context, name domain.StepName, input string) (domain.Outcome, error)
}

// Runner walks the wizard from its current position to the terminal step.
type Runner struct {
	wizard   Wizard
	prompter Prompter
	roster   string
	retries  int
	logger   *slog.Logger
}

// NewRunner creates a runner for the given wizard.
func NewRunner(w Wizard, opts ...Option) *Runner {
	r := &Runner{
		wizard: w,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the remaining steps in order and returns their outcomes.
// Steps already done are skipped. Without a prompter a failure ends the run;
// with one the user is offered a retry.
func (r *Runner) Run(ctx context.Context) ([]domain.Outcome, error) {
	var outcomes []domain.Outcome
	snap := r.wizard.Snapshot()

	for _, step := range r.wizard.Steps() {
		if st, ok := snap.Step(step.Name); ok && st.Phase == domain.PhaseDone {
			r.logger.Debug("Skipping completed step", "step", step.Name)
			continue
		}
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		if r.prompter != nil && step.Trigger != domain.ControlLoad {
			ok, err := r.prompter.Confirm(fmt.Sprintf("Run the %s step?", step.Name), true)
			if err != nil {
				return outcomes, err
			}
			if !ok {
				return outcomes, ErrAborted
			}
		}

		input, err := r.input(step)
		if err != nil {
			return outcomes, err
		}

		out, err := r.runWithRetry(ctx, step, input)
		outcomes = append(outcomes, out)
		if err != nil {
			return outcomes, err
		}
	}
	return outcomes, nil
}

func (r *Runner) input(step domain.Step) (string, error) {
	if step.Method != domain.MethodPost {
		return "", nil
	}
	roster := r.roster
	if r.prompter != nil && roster == "" {
		var err error
		roster, err = r.prompter.Roster("Recipient roster (CSV):", "")
		if err != nil {
			return "", err
		}
	}
	return SanitizeRoster(roster)
}

func (r *Runner) runWithRetry(ctx context.Context, step domain.Step, input string) (domain.Outcome, error) {
	attempts := 0
	for {
		out, err := r.wizard.Run(ctx, step.Name, input)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, domain.ErrTriggerDisabled) || ctx.Err() != nil {
			return out, err
		}
		attempts++
		r.logger.Warn("Step failed", "step", step.Name, "attempt", attempts, "err", err)

		if r.prompter != nil {
			again, perr := r.prompter.Confirm(fmt.Sprintf("%s failed (%v). Retry?", step.Name, err), true)
			if perr != nil {
				return out, perr
			}
			if again {
				continue
			}
			return out, err
		}
		if attempts > r.retries {
			return out, err
		}
	}
}
