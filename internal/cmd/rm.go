// internal/cmd/rm.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ratio1/r1nodectl/internal/tasks"
)

func NewRmCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rm NAME...",
		Short: "Remove Edge Node containers",
		Long: `Remove Edge Node containers and forget them from the local registry.
The node data volume is kept, so a later launch under the same name
resumes with the same node identity. --force removes running containers
and skips the confirmation prompt.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			if !force {
				prompt := fmt.Sprintf("Remove container(s) %s?", strings.Join(args, ", "))
				if !confirm(os.Stdin, os.Stdout, prompt) {
					fmt.Println("Aborted.")

					return nil
				}
			}

			ctx, cancel := signalContext()
			defer cancel()

			sup := tasks.NewSupervisor()
			defer sup.Shutdown(context.Background())

			started := make(map[string]*tasks.Task, len(args))
			failed := 0
			for _, name := range args {
				task, err := sup.Go(ctx, name, "remove", func(ctx context.Context) error {
					return a.docker.Remove(ctx, name, force)
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
					fmt.Printf("Failed to remove %s: %v\n", name, err)
					failed++
					continue
				}
				fmt.Printf("✅ Removed %s\n", name)
			}

			if failed > 0 {
				return fmt.Errorf("failed to remove %d of %d container(s)", failed, len(args))
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Remove running containers and skip confirmation")

	return cmd
}
