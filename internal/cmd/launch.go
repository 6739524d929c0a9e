// internal/cmd/launch.go
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ratio1/r1nodectl/internal/docker"
	"github.com/ratio1/r1nodectl/internal/logging"
	"github.com/ratio1/r1nodectl/internal/sysres"
	"github.com/ratio1/r1nodectl/internal/tasks"
)

func NewLaunchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "launch [NAME]",
		Short: "Create and start an Edge Node container",
		Long: `Launch an Edge Node container. Without a name the next free one is
chosen (r1node0, r1node1, ...). Launching always creates the container
fresh; the node data lives on a named volume and survives relaunches.

Examples:
  r1nodectl launch              # Launch the next free node
  r1nodectl launch r1node2      # Launch (or recreate) a specific node`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			name := ""
			if len(args) > 0 {
				name = args[0]
				if !strings.HasPrefix(name, a.cfg.ContainerPrefix) {
					return fmt.Errorf("container name %q must start with the %q prefix", name, a.cfg.ContainerPrefix)
				}
			} else {
				name = a.docker.NextContainerName(ctx)
			}

			// The RAM gate only guards adding a node; relaunching a known
			// one never changes the node count.
			if _, known := a.reg.Get(name); !known {
				capacity, err := sysres.NewMonitor().CanAddNode(ctx, a.reg.Len(), a.cfg.MinNodeRAMGB)
				if err != nil {
					logging.Warning("Could not check host capacity: %v", err)
				} else if !capacity.CanAdd {
					return fmt.Errorf("%s", capacity.Message())
				}
			}

			volume := docker.VolumeNameFor(name)
			if info, ok := a.reg.Get(name); ok && info.VolumeName != "" {
				volume = info.VolumeName
			}

			fmt.Printf("Launching %s (volume %s, image %s)...\n", name, volume, a.cfg.ImageRef())

			var bar = newPullBar("Pulling " + a.cfg.ImageRef())
			pulled := false
			onPullLine := func(line string) {
				pulled = true
				_ = bar.Add(1)
				logging.Debug("pull: %s", line)
			}

			sup := tasks.NewSupervisor()
			defer sup.Shutdown(context.Background())

			err = runTask(ctx, sup, name, "launch", func(ctx context.Context) error {
				return a.docker.Launch(ctx, name, volume, onPullLine)
			})
			if pulled {
				_ = bar.Finish()
			}
			if err != nil {
				return fmt.Errorf("failed to launch %s: %w", name, err)
			}

			fmt.Printf("✅ Launched %s\n", name)
			fmt.Printf("The node needs a moment to boot; check it with: r1nodectl info %s\n", name)

			return nil
		},
	}

	return cmd
}
