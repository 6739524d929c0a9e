// internal/cmd/info.go
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func NewInfoCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info NAME",
		Short: "Show the identity of a running node",
		Long: `Query a running Edge Node for its identity: node address, ETH address,
alias and version. The answers are cached locally so ls can show
last-known identity while a node is down.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			info, err := a.nodes.GetInfo(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get node info from %s: %w", args[0], err)
			}

			if asJSON {
				out, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))

				return nil
			}

			state := color.New(color.FgRed).Sprint("not running")
			if info.Running {
				state = color.New(color.FgGreen).Sprint("running")
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
			fmt.Fprintf(w, "Container:\t%s\n", args[0])
			fmt.Fprintf(w, "Alias:\t%s\n", info.Alias)
			fmt.Fprintf(w, "Address:\t%s\n", info.Address)
			fmt.Fprintf(w, "ETH address:\t%s\n", info.EthAddress)
			fmt.Fprintf(w, "Version:\t%s\n", info.Version)
			fmt.Fprintf(w, "Node:\t%s\n", state)

			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw node info as JSON")

	return cmd
}
