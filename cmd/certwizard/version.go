package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/certwizard"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of certwizard",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("certwizard version %s\n", strings.TrimSpace(certwizard.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
