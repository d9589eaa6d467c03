package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/aretw0/certwizard/internal/logging"
	"github.com/aretw0/certwizard/pkg/domain"
	"github.com/aretw0/certwizard/pkg/runner"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// NewLogger configures the application logger from a level name.
// It writes to Stderr to keep Stdout for the wizard output.
func NewLogger(level string) (*slog.Logger, error) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logging.New(lvl), nil
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepStart: func(ctx context.Context, e *domain.StepEvent) {
			logger.Debug("Step Start", "step", e.Step, "method", e.Method)
		},
		OnStepDone: func(ctx context.Context, e *domain.StepEvent) {
			logger.Debug("Step Done", "step", e.Step, "status", e.Status, "duration", e.Duration)
		},
		OnStepFailed: func(ctx context.Context, e *domain.StepEvent) {
			logger.Debug("Step Failed", "step", e.Step, "status", e.Status, "err", e.Err)
		},
	}
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, terminal.InterruptErr) ||
		errors.Is(err, runner.ErrAborted) ||
		errors.Is(err, io.EOF)
}

// handleExecutionError hides interruptions so they exit 0.
func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil
	}
	return err
}

func logCompletion(w io.Writer, last domain.StepName, err error, sig os.Signal) {
	switch {
	case err == nil:
		printSystemMessage(w, "Finished at '%s' step.", last)
	case sig == os.Interrupt:
		fmt.Fprintln(w, "[CTRL+C]")
		printSystemMessage(w, "Interrupted at '%s' step.", last)
	case sig != nil:
		fmt.Fprintln(w)
		printSystemMessage(w, "Terminated at '%s' step.", last)
	case isInterrupted(err):
		printSystemMessage(w, "Stopped at '%s' step.", last)
	default:
		printSystemMessage(w, "Failed at '%s' step: %v", last, err)
	}
}
