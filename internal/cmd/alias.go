// internal/cmd/alias.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewAliasCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alias NAME NEW_ALIAS",
		Short: "Change the display alias of a node",
		Long: `Change the alias a node announces to the network. Aliases are at most
32 characters of letters, digits, hyphen and underscore. The node
applies the new alias after its next restart.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			reply, err := a.nodes.ChangeAlias(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to change alias of %s: %w", args[0], err)
			}

			if reply != "" {
				fmt.Println(reply)
			}
			fmt.Printf("✅ Alias of %s set to %s\n", args[0], args[1])
			fmt.Println("Restart the node to announce the new alias: r1nodectl restart " + args[0])

			return nil
		},
	}

	return cmd
}
