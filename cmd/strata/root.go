package main

import (
	"github.com/spf13/cobra"

	"github.com/strata-db/strata/engine"
)

// dbFlags holds the --db persistent flag shared by every subcommand that
// touches an on-disk database.
type dbFlags struct {
	dir string
}

func newRootCommand() *cobra.Command {
	var flags dbFlags

	root := &cobra.Command{
		Use:   "strata",
		Short: "strata is a command line interface to a strata database directory",
	}
	root.PersistentFlags().StringVar(&flags.dir, "db", "", "database directory (required)")
	root.MarkPersistentFlagRequired("db")

	root.AddCommand(
		newGetCommand(&flags),
		newPutCommand(&flags),
		newDeleteCommand(&flags),
		newScanCommand(&flags),
		newCompactCommand(&flags),
		newManifestCommand(&flags),
	)
	return root
}

// openEngine opens flags.dir with defaults suitable for CLI use: never
// create a database implicitly, since "strata get --db ./missing" should
// fail rather than silently produce an empty one.
func openEngine(flags *dbFlags) (*engine.Engine, error) {
	opts := engine.DefaultOptions()
	opts.CreateIfMissing = false
	return engine.Open(flags.dir, opts)
}
