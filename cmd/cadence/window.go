package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/cadence/pkg/domain"
)

var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Edit the production windows",
}

var windowAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Open a production window, closing the open window of the machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		machine, _ := cmd.Flags().GetInt("machine")
		beginFlag, _ := cmd.Flags().GetString("begin")
		endFlag, _ := cmd.Flags().GetString("end")
		productionFlag, _ := cmd.Flags().GetString("production")

		if machine <= 0 {
			return fmt.Errorf("--machine must be a machine id")
		}
		w := domain.ProductionWindow{MachineID: machine, Begin: time.Now().UTC()}
		var err error
		if beginFlag != "" {
			if w.Begin, err = time.Parse(time.RFC3339, beginFlag); err != nil {
				return fmt.Errorf("--begin: %w", err)
			}
		}
		if endFlag != "" {
			if w.End, err = time.Parse(time.RFC3339, endFlag); err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			if !w.End.After(w.Begin) {
				return fmt.Errorf("--end must be after --begin")
			}
		}
		if productionFlag != "" {
			p, err := strconv.ParseBool(productionFlag)
			if err != nil {
				return fmt.Errorf("--production: %w", err)
			}
			w.Production = &p
		}

		svc, err := openService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		if err := svc.Windows().AddWindow(cmd.Context(), w); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "window added for machine %d from %s\n", machine, w.Begin.Format(time.RFC3339))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(windowCmd)
	windowCmd.AddCommand(windowAddCmd)

	windowAddCmd.Flags().IntP("machine", "m", 0, "Machine id")
	windowAddCmd.Flags().String("begin", "", "Begin of the window, RFC 3339 (default now)")
	windowAddCmd.Flags().String("end", "", "Exclusive end of the window, RFC 3339 (default open)")
	windowAddCmd.Flags().String("production", "", "true or false; empty leaves the window unclassified")
}
