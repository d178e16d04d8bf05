package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/netlib/pkg/logging"
)

func TestLogFormat(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	require.False(t, isTerminal(buf))
	require.Equal(t, logging.FormatConsole, logFormat(logging.FormatConsole, "", logging.FormatJSON, buf))
	require.Equal(t, logging.FormatJSON, logFormat("", "", logging.FormatJSON, buf))
	require.Equal(t, logging.FormatConsole, logFormat("", "netlib.yaml", logging.FormatConsole, buf))
}
