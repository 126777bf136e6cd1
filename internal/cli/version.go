package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rprtr258/hello-http/internal/core"
)

func newCmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print hello-http version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), core.Version)
			return nil
		},
	}
}
