package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionCommandOutputsBuildInfo(t *testing.T) {
	originalVersion, originalCommit, originalDate := version, commit, date
	t.Cleanup(func() {
		version, commit, date = originalVersion, originalCommit, originalDate
	})

	version = "1.2.3"
	commit = "abcdef1"
	date = "2026-10-14"

	output, err := execute(t, "version")
	require.NoError(t, err)
	require.Contains(t, output, "netlib 1.2.3")
	require.Contains(t, output, "abcdef1")
	require.Contains(t, output, "2026-10-14")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}
