// internal/cmd/ls.go
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ratio1/r1nodectl/internal/constants"
	"github.com/ratio1/r1nodectl/pkg/utils"
)

var stateCaser = cases.Title(language.English)

func NewLsCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List Edge Node containers and their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			rows, err := a.docker.List(ctx, all)
			if err != nil {
				return fmt.Errorf("failed to list containers: %w", err)
			}

			running := color.New(color.FgGreen).Sprint(stateCaser.String("running"))
			stopped := color.New(color.FgRed).Sprint(stateCaser.String("stopped"))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
			fmt.Fprintln(w, "NAME\tSTATE\tSTATUS\tID\tALIAS\tADDRESS\tAGE")
			for _, row := range rows {
				state := stopped
				if row.Running {
					state = running
				}

				alias, address, age := "-", "-", "-"
				if node, ok := a.store.GetNode(row.Name); ok {
					if node.NodeAlias != "" {
						alias = node.NodeAlias
					}
					if node.NodeAddress != "" {
						address = node.NodeAddress
					}
				}
				if info, ok := a.reg.Get(row.Name); ok && !info.CreatedAt.IsZero() {
					age = utils.FormatDuration(time.Since(info.CreatedAt))
				}

				id := row.ID
				if len(id) > constants.ContainerIDDisplayLength {
					id = id[:constants.ContainerIDDisplayLength]
				}

				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", row.Name, state, row.Status, id, alias, address, age)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if len(rows) == 0 {
				if all {
					fmt.Println("No Edge Node containers found. Create one with: r1nodectl launch")
				} else {
					fmt.Println("No running Edge Node containers. Use -a to include stopped ones.")
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include stopped containers")

	return cmd
}
