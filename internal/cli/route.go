package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newRouteCommand(e *env) *cobra.Command {
	var (
		eventPath string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "route",
		Short: "Route an event to its service channels",
		Long: `Resolve the services of an event and publish it to their channels. When no
service resolves the event is published to every channel.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ev, err := readEvent(cmd, eventPath)
			if err != nil {
				return err
			}

			r, cleanup, err := e.router(cmd, dryRun)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := r.Route(cmd.Context(), ev)
			if encErr := writeJSON(cmd, res); encErr != nil && err == nil {
				err = encErr
			}

			return err
		},
	}

	cmd.Flags().StringVarP(&eventPath, "event", "e", "-", "event JSON file, - for stdin")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve channels without publishing")

	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
