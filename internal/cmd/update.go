// internal/cmd/update.go
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

func NewUpdateCommand() *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Check for a new Edge Node image",
		Long: `Pull the Edge Node image and report whether it changed. With --apply,
running nodes are restarted onto the new image; stopped nodes pick it
up on their next launch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			fmt.Printf("Checking %s for updates...\n", a.cfg.ImageRef())
			check, err := a.docker.CheckImageUpdate(ctx)
			if err != nil {
				return fmt.Errorf("update check failed: %w", err)
			}

			fmt.Println(check.Message)
			if !check.Updated || !apply {
				return nil
			}

			rows, err := a.docker.List(ctx, false)
			if err != nil {
				return fmt.Errorf("failed to list running containers: %w", err)
			}
			if len(rows) == 0 {
				fmt.Println("No running nodes to restart.")

				return nil
			}

			sup := tasks.NewSupervisor()
			defer sup.Shutdown(context.Background())

			failed := 0
			for _, row := range rows {
				name := row.Name
				volume := docker.VolumeNameFor(name)
				if info, ok := a.reg.Get(name); ok && info.VolumeName != "" {
					volume = info.VolumeName
				}

				fmt.Printf("Restarting %s onto the new image...\n", name)
				err := runTask(ctx, sup, name, "update", func(ctx context.Context) error {
					if err := a.docker.Stop(ctx, name); err != nil {
						var nf *docker.NotFoundError
						if !errors.As(err, &nf) {
							logging.Warning("Stop before update failed: %v", err)
						}
					}

					return a.docker.Launch(ctx, name, volume, nil)
				})
				if err != nil {
					fmt.Printf("Failed to restart %s: %v\n", name, err)
					failed++
					continue
				}
				fmt.Printf("✅ Restarted %s\n", name)
			}

			if failed > 0 {
				return fmt.Errorf("failed to restart %d of %d node(s)", failed, len(rows))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Restart running nodes onto the new image")

	return cmd
}
