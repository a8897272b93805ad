package main

import (
	"github.com/spf13/cobra"

	"github.com/kolkov/urcu-qsbr/qsbr"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rcustress",
		Short:   "Stress-test and serve metrics for a urcu-qsbr domain",
		Version: qsbr.Version,
	}
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}
