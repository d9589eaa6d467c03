package runner

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrAborted is returned when the user declines to continue.
var ErrAborted = errors.New("aborted by user")

// Prompter defines how the runner asks the user questions.
type Prompter interface {
	// Confirm asks a yes/no question.
	Confirm(message string, def bool) (bool, error)

	// Roster asks for the recipient roster (multi-line CSV).
	Roster(message, def string) (string, error)
}

// SurveyPrompter asks questions on the terminal with survey.
type SurveyPrompter struct {
	opts []survey.AskOpt
}

// NewSurveyPrompter creates a prompter bound to Stdin/Stdout.
func NewSurveyPrompter(opts ...survey.AskOpt) *SurveyPrompter {
	return &SurveyPrompter{opts: opts}
}

func (p *SurveyPrompter) Confirm(message string, def bool) (bool, error) {
	ok := def
	err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &ok, p.opts...)
	return ok, translate(err)
}

func (p *SurveyPrompter) Roster(message, def string) (string, error) {
	var csv string
	err := survey.AskOne(&survey.Multiline{
		Message: message,
		Default: def,
		Help:    "One recipient per line, comma separated. Finish with an empty line.",
	}, &csv, append(p.opts, survey.WithValidator(survey.Required))...)
	return csv, translate(err)
}

func translate(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return fmt.Errorf("%w: %v", ErrAborted, err)
	}
	return err
}

// ScriptedPrompter answers from fixed lists (headless runs and tests).
type ScriptedPrompter struct {
	Confirms []bool
	Rosters  []string
}

func (p *ScriptedPrompter) Confirm(message string, def bool) (bool, error) {
	if len(p.Confirms) == 0 {
		return def, nil
	}
	ok := p.Confirms[0]
	p.Confirms = p.Confirms[1:]
	return ok, nil
}

func (p *ScriptedPrompter) Roster(message, def string) (string, error) {
	if len(p.Rosters) == 0 {
		if def == "" {
			return "", ErrEmptyRoster
		}
		return def, nil
	}
	r := p.Rosters[0]
	p.Rosters = p.Rosters[1:]
	return r, nil
}
