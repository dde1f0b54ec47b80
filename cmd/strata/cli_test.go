package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestPutGetScanRoundTrip(t *testing.T) {
	dir := t.TempDir()

	run(t, "--db", dir, "put", "a", "1")
	run(t, "--db", dir, "put", "b", "2")

	got := run(t, "--db", dir, "get", "a")
	require.Equal(t, "1\n", got)

	scanned := run(t, "--db", dir, "scan")
	require.Equal(t, "a=1\nb=2\n", scanned)

	run(t, "--db", dir, "delete", "a")
	scanned = run(t, "--db", dir, "scan")
	require.Equal(t, "b=2\n", scanned)
}

func TestManifestDumpAfterCompact(t *testing.T) {
	dir := t.TempDir()
	run(t, "--db", dir, "put", "k", "v")
	run(t, "--db", dir, "compact", "--force")

	dump := run(t, "--db", dir, "manifest", "dump")
	require.True(t, strings.Contains(dump, "level") || dump != "")
}
