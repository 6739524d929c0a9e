// internal/cmd/restart.go
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ratio1/r1nodectl/internal/docker"
	"github.com/ratio1/r1nodectl/internal/logging"
	"github.com/ratio1/r1nodectl/internal/tasks"
)

func NewRestartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restart NAME",
		Short: "Restart an Edge Node container",
		Long: `Restart an Edge Node container: stop it, then launch it fresh on its
existing volume. Node identity and data are preserved across the restart.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			name := args[0]
			volume := docker.VolumeNameFor(name)
			if info, ok := a.reg.Get(name); ok && info.VolumeName != "" {
				volume = info.VolumeName
			}

			sup := tasks.NewSupervisor()
			defer sup.Shutdown(context.Background())

			fmt.Printf("Restarting %s...\n", name)

			// One task covers both steps so the name stays held from stop
			// through relaunch.
			err = runTask(ctx, sup, name, "restart", func(ctx context.Context) error {
				if err := a.docker.Stop(ctx, name); err != nil {
					var nf *docker.NotFoundError
					if !errors.As(err, &nf) {
						logging.Warning("Stop before restart failed: %v", err)
					}
				}

				return a.docker.Launch(ctx, name, volume, nil)
			})
			if err != nil {
				return fmt.Errorf("failed to restart %s: %w", name, err)
			}

			fmt.Printf("✅ Restarted %s\n", name)

			return nil
		},
	}

	return cmd
}
