// internal/cmd/config.go
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ratio1/r1nodectl/internal/config"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit the tool configuration",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigEnvCommand())
	cmd.AddCommand(newConfigStartupCommand())
	cmd.AddCommand(newConfigAppCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(a.cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))

			fmt.Println()
			fmt.Printf("# data dir:  %s\n", a.cfg.DataDir)
			fmt.Printf("# registry:  %s\n", a.cfg.RegistryPath())
			fmt.Printf("# nodes:     %s\n", a.cfg.StorePath())
			fmt.Printf("# env file:  %s\n", a.cfg.EnvFilePath())
			fmt.Printf("# log file:  %s\n", a.cfg.LogFilePath())

			return nil
		},
	}

	return cmd
}

func newConfigInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				path = config.DefaultPath()
			}

			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config file %s already exists", path)
			}

			if err := config.DefaultConfig().Save(path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			fmt.Printf("✅ Wrote %s\n", path)

			return nil
		},
	}

	return cmd
}

func newConfigStartupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "startup NAME",
		Short: "Print the startup configuration of a running node",
		Long: `Fetch the node's startup configuration document. Its schema is owned by
the node image, so it is printed as-is.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			doc, err := a.nodes.GetStartupConfig(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get startup config from %s: %w", args[0], err)
			}

			out, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))

			return nil
		},
	}

	return cmd
}

func newConfigAppCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "app NAME",
		Short: "Print the application configuration of a running node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			doc, err := a.nodes.GetConfigApp(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get config app from %s: %w", args[0], err)
			}

			out, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))

			return nil
		},
	}

	return cmd
}

func newConfigEnvCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage the node environment file",
		Long: `Read and write the .env file handed to nodes. Keys are stored sorted
so the file stays diff-friendly.`,
	}

	get := &cobra.Command{
		Use:   "get [KEY]",
		Short: "Print all environment values, or one key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			env, err := config.ReadEnvFile(a.cfg.EnvFilePath())
			if err != nil {
				return fmt.Errorf("failed to read env file: %w", err)
			}

			if len(args) == 1 {
				value, ok := env[args[0]]
				if !ok {
					return fmt.Errorf("key %s is not set", args[0])
				}
				fmt.Println(value)

				return nil
			}

			keys := make([]string, 0, len(env))
			for k := range env {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("%s=%s\n", k, env[k])
			}

			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set one environment value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			if err := config.SetEnvValue(a.cfg.EnvFilePath(), args[0], args[1]); err != nil {
				return fmt.Errorf("failed to set %s: %w", args[0], err)
			}

			fmt.Printf("✅ %s set\n", args[0])
			fmt.Println("Restart nodes to hand them the new environment.")

			return nil
		},
	}

	unset := &cobra.Command{
		Use:   "unset KEY",
		Short: "Remove one environment value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			if err := config.UnsetEnvValue(a.cfg.EnvFilePath(), args[0]); err != nil {
				return fmt.Errorf("failed to unset %s: %w", args[0], err)
			}

			fmt.Printf("✅ %s removed\n", args[0])

			return nil
		},
	}

	cmd.AddCommand(get)
	cmd.AddCommand(set)
	cmd.AddCommand(unset)

	return cmd
}
