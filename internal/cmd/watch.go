// internal/cmd/watch.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ratio1/r1nodectl/internal/config"
	"github.com/ratio1/r1nodectl/internal/logging"
	"github.com/ratio1/r1nodectl/internal/node"
	"github.com/ratio1/r1nodectl/internal/sysres"
	"github.com/ratio1/r1nodectl/internal/tasks"
	"github.com/ratio1/r1nodectl/pkg/utils"
)

func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Continuously show node status",
		Long: `Redraw the node table on a fixed cadence until interrupted. Changes to
the config or env file are picked up without restarting the watch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			sup := tasks.NewSupervisor()
			monitor := sysres.NewMonitor()

			configPath, _ := cmd.Flags().GetString("config")
			if configPath == "" {
				configPath = config.DefaultPath()
			}

			reload := make(chan struct{}, 1)
			watcher, err := config.NewWatcher([]string{configPath, a.cfg.EnvFilePath()}, func(files []string) {
				logging.Debug("Config files changed: %v", files)
				select {
				case reload <- struct{}{}:
				default:
				}
			})
			if err != nil {
				logging.Warning("Config watching unavailable: %v", err)
			} else {
				watcher.Start()
				defer watcher.Stop()
			}

			interval := a.cfg.RefreshEvery()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			renderWatch(ctx, a, sup, monitor, interval)

			for {
				select {
				case <-ctx.Done():
					fmt.Println("\nShutting down...")
					shutCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
					defer stop()

					return sup.Shutdown(shutCtx)

				case <-reload:
					fresh, err := loadApp(cmd)
					if err != nil {
						logging.Warning("Config reload failed, keeping the old one: %v", err)
						continue
					}
					a = fresh
					if next := a.cfg.RefreshEvery(); next != interval {
						interval = next
						ticker.Reset(interval)
					}
					logging.Info("Configuration reloaded")
					renderWatch(ctx, a, sup, monitor, interval)

				case <-ticker.C:
					renderWatch(ctx, a, sup, monitor, interval)
				}
			}
		},
	}

	return cmd
}

// renderWatch repaints one frame: the container table with live node
// identity, then a host resource footer.
func renderWatch(ctx context.Context, a *app, sup *tasks.Supervisor, monitor *sysres.Monitor, interval time.Duration) {
	rows, err := a.docker.List(ctx, true)
	if err != nil {
		logging.Warning("Container listing failed: %v", err)
		return
	}

	// Info fetches are read-only, so they run concurrently and never
	// contend with mutating operations on the same names.
	live := make(map[string]*node.Info, len(rows))
	var mu sync.Mutex
	var inflight []*tasks.Task
	for _, row := range rows {
		if !row.Running {
			continue
		}
		name := row.Name
		task, err := sup.Go(ctx, "", "info", func(ctx context.Context) error {
			info, err := a.nodes.GetInfo(ctx, name)
			if err != nil {
				return err
			}
			mu.Lock()
			live[name] = info
			mu.Unlock()
			return nil
		})
		if err != nil {
			continue
		}
		inflight = append(inflight, task)
	}
	for _, task := range inflight {
		// Individual failures just leave the cached identity in place.
		_ = task.Wait(ctx)
	}

	fmt.Print("\033[H\033[2J")
	fmt.Printf("r1nodectl watch — %s (refresh %s, Ctrl-C to quit)\n\n", time.Now().Format("15:04:05"), interval)

	running := color.New(color.FgGreen).Sprint(stateCaser.String("running"))
	stopped := color.New(color.FgRed).Sprint(stateCaser.String("stopped"))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
	fmt.Fprintln(w, "NAME\tSTATE\tALIAS\tADDRESS\tVERSION")
	for _, row := range rows {
		state := stopped
		if row.Running {
			state = running
		}

		alias, address, version := "-", "-", "-"
		if info, ok := live[row.Name]; ok {
			alias, address, version = info.Alias, info.Address, info.Version
		} else if cached, ok := a.store.GetNode(row.Name); ok {
			if cached.NodeAlias != "" {
				alias = cached.NodeAlias
			}
			if cached.NodeAddress != "" {
				address = cached.NodeAddress
			}
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", row.Name, state, alias, address, version)
	}
	w.Flush()

	if len(rows) == 0 {
		fmt.Println("No Edge Node containers. Create one with: r1nodectl launch")
	}

	snap, err := monitor.Snapshot(ctx)
	if err != nil {
		logging.Debug("Host snapshot failed: %v", err)
		return
	}

	fmt.Printf("\nHost: CPU %.1f%% | RAM %s of %s used (%.0f%%) | Disk %s of %s used (%.0f%%)\n",
		snap.CPU.UsagePercent,
		utils.FormatSize(int64(snap.Memory.Total-snap.Memory.Available)), utils.FormatSize(int64(snap.Memory.Total)), snap.Memory.UsedPercent,
		utils.FormatSize(int64(snap.Disk.Total-snap.Disk.Free)), utils.FormatSize(int64(snap.Disk.Total)), snap.Disk.UsedPercent)

	capacity := sysres.CapacityFor(snap.Memory.Total, a.reg.Len(), a.cfg.MinNodeRAMGB)
	fmt.Printf("Nodes: %d of %d supported by host RAM\n", capacity.Current, capacity.MaxNodes)
}
