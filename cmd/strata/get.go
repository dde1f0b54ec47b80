package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCommand(flags *dbFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "print the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(flags)
			if err != nil {
				return err
			}
			defer e.Close()

			value, ok, err := e.Get([]byte(args[0]))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("key not found: %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(value))
			return nil
		},
	}
}
