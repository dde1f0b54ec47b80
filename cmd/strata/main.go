// Command strata is a thin CLI wrapper around the engine package: get, put,
// delete, scan, compact, and manifest dump. It lives entirely above
// engine.Engine's public API; nothing here participates in the storage
// engine's correctness argument (spec.md §1 places CLI wrappers out of
// core scope).
//
// Grounded on other_examples/b7c7874a_patrick-ogrady-pebble__tool-wal.go's
// cobra-command shape (the pebble `tool` package).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
