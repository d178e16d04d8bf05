package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	neterrors "github.com/alexisbeaulieu97/netlib/pkg/errors"
	"github.com/alexisbeaulieu97/netlib/pkg/validators"
)

func newValidateCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "validate <validator> <value>",
		Short: "Check a value with a registered attribute validator",
		Example: `  netlib validate mac_address fa:16:3e:00:00:01
  netlib validate type:subnet 10.0.0.0/24
  netlib validate --list`,
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				for _, name := range validators.Names() {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			name := args[0]
			if !strings.HasPrefix(name, validators.TypePrefix) {
				name = validators.TypePrefix + name
			}
			if _, ok := validators.Get(name); !ok {
				return neterrors.NotFound("validator", name)
			}
			if err := validators.Validate(name, args[1], nil); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %q is valid\n", name, args[1])
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List the registered validators")

	return cmd
}
