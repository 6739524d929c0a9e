// internal/cmd/logs.go
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ratio1/r1nodectl/internal/command"
)

// followCeiling bounds a --follow session; the runner requires some
// timeout, and Ctrl-C ends the session long before this.
const followCeiling = 24 * time.Hour

func NewLogsCommand() *cobra.Command {
	var (
		follow bool
		tail   string
	)

	cmd := &cobra.Command{
		Use:   "logs NAME",
		Short: "View container logs of an Edge Node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			argv := []string{"docker", "logs", "--tail", tail}
			if follow {
				argv = append(argv, "-f")
			}
			argv = append(argv, args[0])

			opts := &command.Options{Stream: os.Stdout}
			if follow {
				opts.Timeout = followCeiling
			}

			res := a.runner.Run(ctx, argv, opts)
			// Ctrl-C during --follow is a normal way to leave.
			if follow && ctx.Err() != nil {
				return nil
			}
			if err := res.AsError(); err != nil {
				return fmt.Errorf("failed to read logs of %s: %w", args[0], err)
			}
			// The container's stderr stream is buffered by the runner.
			if res.Stderr != "" {
				fmt.Fprint(os.Stderr, res.Stderr)
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().StringVar(&tail, "tail", "200", "Number of lines to show from the end")

	return cmd
}
