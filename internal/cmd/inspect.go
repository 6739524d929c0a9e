// internal/cmd/inspect.go
package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func NewInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect NAME",
		Short: "Show the Docker-level details of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			info, err := a.docker.Inspect(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to inspect %s: %w", args[0], err)
			}

			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))

			return nil
		},
	}

	return cmd
}
