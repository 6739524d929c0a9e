// internal/cmd/pull.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ratio1/r1nodectl/internal/logging"
)

func NewPullCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Pull the latest Edge Node image",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			fmt.Printf("Pulling %s...\n", a.cfg.ImageRef())
			bar := newPullBar("Pulling " + a.cfg.ImageRef())
			err = a.docker.Pull(ctx, func(line string) {
				_ = bar.Add(1)
				logging.Debug("pull: %s", line)
			})
			_ = bar.Finish()
			if err != nil {
				return fmt.Errorf("failed to pull image: %w", err)
			}

			fmt.Printf("✅ Image %s is up to date\n", a.cfg.ImageRef())

			return nil
		},
	}

	return cmd
}
