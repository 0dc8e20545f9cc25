package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/ports"
)

var flagCmd = &cobra.Command{
	Use:   "flag",
	Short: "Inspect and edit the persisted flags",
}

var flagGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx := cmd.Context()
		var flag *domain.Flag
		err = svc.Flags().View(ctx, func(r ports.FlagReader) error {
			var err error
			flag, err = r.Lookup(ctx, args[0])
			return err
		})
		if errors.Is(err, domain.ErrFlagNotFound) {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		if err != nil {
			return err
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(flag)
	},
}

var flagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the flags",
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix, _ := cmd.Flags().GetString("prefix")
		svc, err := openService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx := cmd.Context()
		var flags []domain.Flag
		err = svc.Flags().View(ctx, func(r ports.FlagReader) error {
			var err error
			flags, err = r.List(ctx, prefix)
			return err
		})
		if err != nil {
			return err
		}
		for _, f := range flags {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", f.Key, f.UpdatedAt.Format(time.RFC3339), f.Value)
		}
		return nil
	},
}

var flagSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Store a flag",
	Long:  `Stores a flag. Use --catch-up <machine> to request a catch-up pass of a machine (0 for global).`,
	Args:  cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := flagKey(cmd, args)
		if err != nil {
			return err
		}
		value := ""
		if len(args) > 1 {
			value = args[1]
		}

		svc, err := openService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx := cmd.Context()
		flag := domain.Flag{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
		if err := svc.Flags().Update(ctx, func(w ports.FlagWriter) error {
			return w.Save(ctx, flag)
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "flag %s set\n", key)
		return nil
	},
}

var flagDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a flag",
	Args:  cobra.RangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := flagKey(cmd, args)
		if err != nil {
			return err
		}

		svc, err := openService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx := cmd.Context()
		if err := svc.Flags().Update(ctx, func(w ports.FlagWriter) error {
			return w.Delete(ctx, key)
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "flag %s deleted\n", key)
		return nil
	},
}

// flagKey returns the key argument, or the catch-up key selected by --catch-up.
func flagKey(cmd *cobra.Command, args []string) (string, error) {
	if cmd.Flags().Changed("catch-up") {
		id, _ := cmd.Flags().GetInt("catch-up")
		return domain.CatchUpKey(&domain.Machine{ID: id}), nil
	}
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", errors.New("a flag key or --catch-up is required")
	}
	return args[0], nil
}

func init() {
	rootCmd.AddCommand(flagCmd)
	flagCmd.AddCommand(flagGetCmd, flagListCmd, flagSetCmd, flagDeleteCmd)

	flagListCmd.Flags().String("prefix", "", "Only list keys with this prefix")
	flagSetCmd.Flags().Int("catch-up", 0, "Set the catch-up flag of this machine instead of <key>")
	flagDeleteCmd.Flags().Int("catch-up", 0, "Delete the catch-up flag of this machine instead of <key>")
}
