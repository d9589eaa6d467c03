package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/certwizard/internal/cli"
	"github.com/aretw0/certwizard/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "certwizard",
	Short: "certwizard drives the certificate issuing wizard",
	Long: `certwizard walks a remote issuing endpoint through its five steps
(prepare, template, roster, certificate, issuer), one request at a time.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || (cmd.HasParent() && cmd.Parent().Name() == "completion") {
			return nil
		}
		path, _ := cmd.Flags().GetString("config")

		load := config.Load
		if cmd.Annotations[annotationOffline] == "true" {
			load = config.Read
		}

		var err error
		cfg, err = load(path, flagOverrides(cmd))
		if err != nil {
			return err
		}
		logger, err = cli.NewLogger(cfg.LogLevel)
		return err
	},
}

// annotationOffline marks commands that never contact the endpoint.
const annotationOffline = "offline"

// flagToKey maps persistent flags onto configuration keys.
var flagToKey = map[string]string{
	"endpoint":     "endpoint",
	"explorer-url": "explorer_url",
	"timeout":      "timeout",
	"log-level":    "log_level",
	"redis-addr":   "redis.addr",
	"lock-ttl":     "lock_ttl",
	"markdown":     "markdown",
}

// flagOverrides returns only the flags set explicitly, so file values survive.
func flagOverrides(cmd *cobra.Command) map[string]any {
	out := map[string]any{}
	for flag, key := range flagToKey {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		out[key] = f.Value.String()
	}
	return out
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "Config file (default ./"+config.DefaultFile+" when present)")
	pf.StringP("endpoint", "e", "", "Wizard endpoint URL (e.g. https://host/issue.php)")
	pf.String("explorer-url", "", "Block explorer URL template with %s for the transaction id")
	pf.Duration("timeout", 0, "Per-request timeout (0 waits forever)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("redis-addr", "", "Redis address for the shared in-flight guard")
	pf.Duration("lock-ttl", 0, "Lifetime of an in-flight guard claim")
	pf.Bool("markdown", true, "Render the issuer receipt as markdown")
	rootCmd.SilenceErrors = true
}
