/*
Package runner implements the interactive execution loop and the terminal views of certwizard.

It acts as the bridge between the orchestrator and a person at a terminal (or a
program reading NDJSON). The runner walks the steps in order, asks for
confirmation and for the roster when a Prompter is configured, and offers a
retry when a step fails.

# Key Components

  - Runner: walks the wizard step by step.
  - Prompter: decouples how the runner asks questions (survey, scripted).
  - TextView: a ports.View that prints styled lines to a terminal.
  - JSONView: a ports.View that emits one JSON object per mutation.

# Usage

	view := runner.NewTextView(os.Stdout, domain.DefaultSteps())
	wiz, _ := certwizard.New(endpoint, certwizard.WithView(view))

	r := runner.NewRunner(wiz,
		runner.WithPrompter(runner.NewSurveyPrompter()),
	)
	if _, err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
