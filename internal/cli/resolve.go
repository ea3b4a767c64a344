package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResolveCommand(e *env) *cobra.Command {
	var eventPath string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the services an event resolves to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ev, err := readEvent(cmd, eventPath)
			if err != nil {
				return err
			}

			r, cleanup, err := e.router(cmd, false)
			if err != nil {
				return err
			}
			defer cleanup()

			services, err := r.Resolver().Resolve(cmd.Context(), ev)
			if err != nil {
				return err
			}

			for _, s := range services {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&eventPath, "event", "e", "-", "event JSON file, - for stdin")

	return cmd
}
