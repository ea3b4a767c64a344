package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newChannelsCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "List the channel directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, cleanup, err := e.router(cmd, false)
			if err != nil {
				return err
			}
			defer cleanup()

			channels, err := r.Channels(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SERVICE\tCHANNEL")

			for _, name := range channels.Names() {
				fmt.Fprintf(w, "%s\t%s\n", name, channels[name])
			}

			return w.Flush()
		},
	}
}
