// internal/cmd/stop.go
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ratio1/r1nodectl/internal/tasks"
)

func NewStopCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop NAME...",
		Short: "Stop running Edge Node containers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			sup := tasks.NewSupervisor()
			defer sup.Shutdown(context.Background())

			// One stop task per container; the supervisor keys them by name
			// so duplicates on the command line fail fast instead of racing.
			started := make(map[string]*tasks.Task, len(args))
			failed := 0
			for _, name := range args {
				task, err := sup.Go(ctx, name, "stop", func(ctx context.Context) error {
					return a.docker.Stop(ctx, name)
				})
				if err != nil {
					fmt.Printf("Skipping %s: %v\n", name, err)
					failed++
					continue
				}
				started[name] = task
			}

			for name, task := range started {
				if err := task.Wait(ctx); err != nil {
					fmt.Printf("Failed to stop %s: %v\n", name, err)
					failed++
					continue
				}
				fmt.Printf("✅ Stopped %s\n", name)
			}

			if failed > 0 {
				return fmt.Errorf("failed to stop %d of %d container(s)", failed, len(args))
			}

			return nil
		},
	}

	return cmd
}
