package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/alexisbeaulieu97/netlib/pkg/config"
)

const redacted = "********"

type configOptions struct {
	Format string
	Diff   bool
}

func newConfigCmd(root *rootFlags) *cobra.Command {
	opts := configOptions{}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate the configuration and print the effective values",
		Long: `Config loads the configuration file given with --config on top of the
defaults, validates it, and prints the result. Secrets are redacted.

With --diff only the lines that differ from the defaults are printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root.configPath)
			if err != nil {
				return err
			}
			if opts.Diff {
				return writeConfigDiff(cmd.OutOrStdout(), cfg, opts.Format)
			}
			return writeConfig(cmd.OutOrStdout(), cfg, opts.Format)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "output", "o", "yaml", "Output format: yaml, toml or json")
	cmd.Flags().BoolVar(&opts.Diff, "diff", false, "Print only the differences from the defaults")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeConfig(w io.Writer, cfg *config.Config, format string) error {
	out := *cfg
	if out.Placement.Token != "" {
		out.Placement.Token = redacted
	}

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "toml":
		return toml.NewEncoder(w).Encode(out)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// writeConfigDiff renders the defaults and cfg in format and writes a line
// diff between them. Identical configurations produce no output.
func writeConfigDiff(w io.Writer, cfg *config.Config, format string) error {
	defaults := config.Default()
	var before, after bytes.Buffer
	if err := writeConfig(&before, &defaults, format); err != nil {
		return err
	}
	if err := writeConfig(&after, cfg, format); err != nil {
		return err
	}
	if bytes.Equal(before.Bytes(), after.Bytes()) {
		return nil
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before.String(), after.String())
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	fmt.Fprintln(w, "--- defaults")
	fmt.Fprintln(w, "+++ effective")
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			fmt.Fprintln(w, prefix+strings.TrimSuffix(line, "\n"))
		}
	}
	return nil
}
