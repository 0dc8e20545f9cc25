package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/cadence"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of cadence",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cadence version %s\n", cadence.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
