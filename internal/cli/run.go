package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/certwizard/internal/config"
	"github.com/aretw0/certwizard/internal/presentation/tui"
	"github.com/aretw0/certwizard/pkg/domain"
	"github.com/aretw0/certwizard/pkg/ports"
	"github.com/aretw0/certwizard/pkg/runner"
	"golang.org/x/term"
)

// RunOptions contains all the configuration for the run and step commands.
type RunOptions struct {
	Config config.Config
	Logger *slog.Logger
	Debug  bool

	JSON       bool   // NDJSON view instead of the terminal view
	Yes        bool   // never prompt
	Verbose    bool   // also print trigger changes
	RosterFile string // "-" reads Stdin
	Roster     string
	Retries    int

	// Until stops after the named step (empty runs all of them).
	Until domain.StepName

	Stdin  *os.File
	Stdout io.Writer
	Stderr io.Writer
}

func (o *RunOptions) defaults() {
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// Interactive reports whether prompts can be shown.
func (o RunOptions) Interactive() bool {
	return !o.JSON && !o.Yes && term.IsTerminal(int(o.Stdin.Fd()))
}

// Execute walks the wizard to the end (or to Until) and reports the outcome.
func Execute(ctx context.Context, opts RunOptions) error {
	opts.defaults()
	interactive := opts.Interactive()

	roster, err := readRoster(opts)
	if err != nil {
		return err
	}
	steps := opts.Config.Steps
	if len(steps) == 0 {
		steps = domain.DefaultSteps()
	}
	if opts.Until != "" && !hasStep(steps, opts.Until) {
		return fmt.Errorf("%w: %q", domain.ErrUnknownStep, opts.Until)
	}
	if !interactive && roster == "" && needsInput(steps, opts.Until) {
		return ErrMissingRoster
	}

	var view ports.View
	if opts.JSON {
		view = runner.NewJSONView(opts.Stdout)
	} else {
		textOpts := []runner.TextViewOption{runner.WithVerbose(opts.Verbose)}
		if opts.Config.Markdown {
			textOpts = append(textOpts, runner.WithTextViewRenderer(tui.NewRenderer(80)))
		}
		view = runner.NewTextView(opts.Stdout, steps, textOpts...)
		if interactive {
			tui.PrintBanner(opts.Stdout, opts.Config.Endpoint)
		}
	}

	wizard, cleanup, err := NewWizard(ctx, opts.Config, WizardOptions{
		Views:  []ports.View{view},
		Logger: opts.Logger,
		Debug:  opts.Debug,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	runnerOpts := []runner.Option{
		runner.WithLogger(opts.Logger),
		runner.WithRoster(roster),
		runner.WithRetries(opts.Retries),
	}
	if interactive {
		runnerOpts = append(runnerOpts, runner.WithPrompter(runner.NewSurveyPrompter()))
	}

	var target runner.Wizard = wizard
	if opts.Until != "" {
		target, err = until(wizard, opts.Until)
		if err != nil {
			return err
		}
	}

	outcomes, err := runner.NewRunner(target, runnerOpts...).Run(ctx)

	if !opts.JSON {
		var last domain.StepName
		if len(outcomes) > 0 {
			last = outcomes[len(outcomes)-1].Step
		}
		var sig os.Signal
		if sc, ok := ctx.(*SignalContext); ok {
			sig = sc.Signal()
		}
		logCompletion(opts.Stderr, last, err, sig)
	}
	return handleExecutionError(err)
}

func readRoster(opts RunOptions) (string, error) {
	switch opts.RosterFile {
	case "":
		return opts.Roster, nil
	case "-":
		data, err := io.ReadAll(opts.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read roster from stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(opts.RosterFile)
		if err != nil {
			return "", fmt.Errorf("failed to read roster: %w", err)
		}
		return string(data), nil
	}
}

func hasStep(steps []domain.Step, name domain.StepName) bool {
	for _, s := range steps {
		if s.Name == name {
			return true
		}
	}
	return false
}

func needsInput(steps []domain.Step, last domain.StepName) bool {
	for _, s := range steps {
		if s.Method == domain.MethodPost {
			return true
		}
		if s.Name == last {
			break
		}
	}
	return false
}

// truncated limits a wizard to a prefix of its step table.
type truncated struct {
	runner.Wizard
	steps []domain.Step
}

func (t truncated) Steps() []domain.Step { return t.steps }

func until(w runner.Wizard, name domain.StepName) (runner.Wizard, error) {
	steps := w.Steps()
	for i, s := range steps {
		if s.Name == name {
			return truncated{Wizard: w, steps: steps[:i+1]}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStep, name)
}

// ErrMissingRoster is returned when a headless run has no roster to post.
var ErrMissingRoster = errors.New("a roster is required: use --roster-file or --roster")
