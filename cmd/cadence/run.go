package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/cadence/pkg/domain"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the analysis service",
	Long:  `Schedules every configured context until interrupted, serving the status API on metrics.addr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		return svc.Run(ctx)
	},
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run one context once and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		machine, _ := cmd.Flags().GetInt("machine")

		svc, err := openService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		res, runErr := svc.RunOnce(ctx, machine)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
		if runErr != nil {
			return fmt.Errorf("run failed: %w", runErr)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(onceCmd)

	onceCmd.Flags().IntP("machine", "m", domain.GlobalMachineID, "Machine id, 0 for the global context")
}
