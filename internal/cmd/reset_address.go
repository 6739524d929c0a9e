// internal/cmd/reset_address.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func NewResetAddressCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset-address NAME",
		Short: "Reset the cryptographic identity of a node",
		Long: `Delete the node's identity key so it generates a fresh address on the
next restart. The old address is gone for good, together with any
reputation or allowances attached to it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			if !yes {
				prompt := fmt.Sprintf("Reset the address of %s? The current address is lost permanently.", args[0])
				if !confirm(os.Stdin, os.Stdout, prompt) {
					fmt.Println("Aborted.")

					return nil
				}
			}

			ctx, cancel := signalContext()
			defer cancel()

			reply, err := a.nodes.ResetAddress(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to reset address of %s: %w", args[0], err)
			}

			if reply != "" {
				fmt.Println(reply)
			}
			fmt.Printf("✅ Address of %s reset\n", args[0])
			fmt.Println("Restart the node to generate the new identity: r1nodectl restart " + args[0])

			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
