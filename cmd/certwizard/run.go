package main

import (
	"context"

	"github.com/aretw0/certwizard/internal/cli"
	"github.com/aretw0/certwizard/pkg/domain"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every wizard step in order",
	Long: `Runs prepare, template, roster, certificate and issuer against the endpoint.
On a terminal each step is confirmed and a failed step can be retried.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return execute(cmd, "")
	},
}

var stepCmd = &cobra.Command{
	Use:       "step <name>",
	Short:     "Run the wizard up to and including one step",
	Long:      `Runs the steps in order and stops after the named one. Earlier steps are required because each step unlocks the next.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"prepare", "template", "roster", "certificate", "issuer"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return execute(cmd, domain.StepName(args[0]))
	},
}

func execute(cmd *cobra.Command, until domain.StepName) error {
	flags := cmd.Flags()
	jsonMode, _ := flags.GetBool("json")
	yes, _ := flags.GetBool("yes")
	verbose, _ := flags.GetBool("verbose")
	rosterFile, _ := flags.GetString("roster-file")
	roster, _ := flags.GetString("roster")
	retries, _ := flags.GetInt("retries")
	debug, _ := flags.GetBool("debug")

	ctx := cli.NewSignalContext(context.Background())
	defer ctx.Cancel()

	return cli.Execute(ctx, cli.RunOptions{
		Config:     cfg,
		Logger:     logger,
		Debug:      debug,
		JSON:       jsonMode,
		Yes:        yes,
		Verbose:    verbose,
		RosterFile: rosterFile,
		Roster:     roster,
		Retries:    retries,
		Until:      until,
	})
}

func init() {
	for _, c := range []*cobra.Command{runCmd, stepCmd} {
		c.Flags().Bool("json", false, "Emit view mutations as NDJSON")
		c.Flags().BoolP("yes", "y", false, "Never prompt (headless)")
		c.Flags().BoolP("verbose", "v", false, "Also print trigger changes")
		c.Flags().String("roster-file", "", "CSV file with the recipients ('-' reads stdin)")
		c.Flags().String("roster", "", "Recipients as inline CSV")
		c.Flags().Int("retries", 0, "Headless only: times a failed step is fired again")
		c.Flags().Bool("debug", false, "Log lifecycle hooks")
		rootCmd.AddCommand(c)
	}
}
