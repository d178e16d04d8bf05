package main

import (
	"io"
	"os"

	"golang.org/x/term"

	"github.com/alexisbeaulieu97/netlib/pkg/logging"
)

func isTerminal(writer io.Writer) bool {
	if file, ok := writer.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	return false
}

// logFormat picks the log format: an explicit flag wins, then console output
// for an interactive terminal when no configuration file was given, then the
// configured format.
func logFormat(flag, configPath, configured string, writer io.Writer) string {
	switch {
	case flag != "":
		return flag
	case configPath == "" && isTerminal(writer):
		return logging.FormatConsole
	default:
		return configured
	}
}
