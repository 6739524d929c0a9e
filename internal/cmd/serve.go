// internal/cmd/serve.go
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ratio1/r1nodectl/internal/config"
	"github.com/ratio1/r1nodectl/internal/events"
	"github.com/ratio1/r1nodectl/internal/logging"
	"github.com/ratio1/r1nodectl/internal/tasks"
)

func NewServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local status bridge",
		Long: `Serve a loopback HTTP endpoint with a WebSocket event stream (/ws), a
status snapshot (/api/status) and a health probe (/healthz), for
out-of-process front ends.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			if addr == "" {
				addr = a.cfg.Bridge.Addr
			}

			sup := tasks.NewSupervisor()
			srv := events.NewServer(events.ServerOptions{
				Addr:       addr,
				Lister:     a.docker,
				Supervisor: sup,
			})
			srv.WireSupervisor()

			ctx, cancel := signalContext()
			defer cancel()

			serveCtx, stopServe := context.WithCancel(context.Background())
			defer stopServe()

			// Other r1nodectl processes mutate the stores on disk; watching
			// them lets connected front ends refresh without polling.
			watcher, err := config.NewWatcher([]string{a.cfg.RegistryPath(), a.cfg.StorePath()}, func(files []string) {
				for _, f := range files {
					srv.Hub().Publish(events.Event{
						Type:    events.EventRegistryChanged,
						Payload: map[string]string{"path": f},
					})
				}
			})
			if err != nil {
				logging.Warning("Store watching unavailable: %v", err)
			} else {
				watcher.Start()
				defer watcher.Stop()
			}

			done := make(chan error, 1)
			go func() {
				done <- srv.Run(serveCtx)
			}()
			go publishStateChanges(serveCtx, a, srv.Hub(), a.cfg.RefreshEvery())

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
			}

			// Drain in-flight tasks before the listener goes away so their
			// final events still reach connected clients.
			fmt.Println("\nShutting down...")
			shutCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
			defer stop()
			if err := sup.Shutdown(shutCtx); err != nil {
				logging.Warning("Supervisor shutdown: %v", err)
			}
			stopServe()

			return <-done
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, 127.0.0.1:9341)")

	return cmd
}

// publishStateChanges polls the container list and emits an event whenever
// a container appears, disappears or flips running state. The first poll
// reports every container so new clients get a full picture. The managed
// image id is polled alongside; a change means `pull` or `update` brought
// down a new version.
func publishStateChanges(ctx context.Context, a *app, hub *events.Hub, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	last := make(map[string]bool)
	lastImage := ""
	for {
		rows, err := a.docker.List(ctx, true)
		if err != nil {
			logging.Debug("State poll failed: %v", err)
		} else {
			seen := make(map[string]bool, len(rows))
			for _, row := range rows {
				seen[row.Name] = row.Running
				if prev, known := last[row.Name]; known && prev == row.Running {
					continue
				}
				state := "stopped"
				if row.Running {
					state = "running"
				}
				hub.Publish(events.Event{
					Type:      events.EventContainerState,
					Container: row.Name,
					Payload:   map[string]string{"state": state, "status": row.Status},
				})
			}
			for name := range last {
				if _, still := seen[name]; !still {
					hub.Publish(events.Event{
						Type:      events.EventContainerState,
						Container: name,
						Payload:   map[string]string{"state": "removed"},
					})
				}
			}
			last = seen
		}

		if id, err := a.docker.ImageID(ctx); err == nil && id != "" {
			if lastImage != "" && id != lastImage {
				hub.Publish(events.Event{
					Type:    events.EventImageUpdate,
					Payload: map[string]string{"image": a.cfg.ImageRef(), "id": id},
				})
			}
			lastImage = id
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
