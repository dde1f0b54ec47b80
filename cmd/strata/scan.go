package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScanCommand(flags *dbFlags) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "print every live key/value pair in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(flags)
			if err != nil {
				return err
			}
			defer e.Close()

			var startKey, endKey []byte
			if start != "" {
				startKey = []byte(start)
			}
			if end != "" {
				endKey = []byte(end)
			}

			cur, err := e.Scan(startKey, endKey)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for cur.Valid() {
				fmt.Fprintf(out, "%s=%s\n", cur.Key(), cur.Value())
				cur.Next()
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "inclusive start key (default: beginning)")
	cmd.Flags().StringVar(&end, "end", "", "exclusive end key (default: unbounded)")
	return cmd
}
