package main

import (
	"github.com/spf13/cobra"

	"github.com/strata-db/strata/engine"
)

func newPutCommand(flags *dbFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "put <key> <value>",
		Short: "write a key/value pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.DefaultOptions()
			e, err := engine.Open(flags.dir, opts)
			if err != nil {
				return err
			}
			defer e.Close()
			return e.Put([]byte(args[0]), []byte(args[1]))
		},
	}
}

func newDeleteCommand(flags *dbFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(flags)
			if err != nil {
				return err
			}
			defer e.Close()
			return e.Delete([]byte(args[0]))
		},
	}
}
