package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCompactCommand(flags *dbFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "drain every due compaction (with --force, flush the active memtable first)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(flags)
			if err != nil {
				return err
			}
			defer e.Close()

			if force {
				if err := e.Flush(); err != nil {
					return err
				}
			}
			if err := e.Compact(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "compaction complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "flush the active memtable before compacting")
	return cmd
}
