// internal/cmd/root.go
package cmd

import (
	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "r1nodectl",
		Short:   "Manage Ratio1 Edge Node containers",
		Long:    `r1nodectl creates and operates Ratio1 Edge Node containers through the local Docker CLI: launching nodes, managing their identity, maintaining allowed-address lists and keeping the node image up to date.`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the config file (default ~/.edge_node/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().String("remote", "", "Shell prefix for running docker on a remote host (e.g. \"ssh user@host\")")
	rootCmd.PersistentFlags().String("data-dir", "", "Override the state directory (default ~/.edge_node)")

	// Add subcommands
	rootCmd.AddCommand(NewLaunchCommand())
	rootCmd.AddCommand(NewStopCommand())
	rootCmd.AddCommand(NewRestartCommand())
	rootCmd.AddCommand(NewRmCommand())
	rootCmd.AddCommand(NewLsCommand())
	rootCmd.AddCommand(NewInspectCommand())
	rootCmd.AddCommand(NewLogsCommand())
	rootCmd.AddCommand(NewInfoCommand())
	rootCmd.AddCommand(NewHistoryCommand())
	rootCmd.AddCommand(NewAliasCommand())
	rootCmd.AddCommand(NewResetAddressCommand())
	rootCmd.AddCommand(NewAllowedCommand())
	rootCmd.AddCommand(NewPullCommand())
	rootCmd.AddCommand(NewUpdateCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewWatchCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}
