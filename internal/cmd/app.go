// internal/cmd/app.go
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ratio1/r1nodectl/internal/command"
	"github.com/ratio1/r1nodectl/internal/config"
	"github.com/ratio1/r1nodectl/internal/docker"
	"github.com/ratio1/r1nodectl/internal/logging"
	"github.com/ratio1/r1nodectl/internal/node"
	"github.com/ratio1/r1nodectl/internal/registry"
	"github.com/ratio1/r1nodectl/internal/tasks"
)

// app bundles the collaborators every command wires up: configuration, the
// Docker CLI runner, the name registry, the node config store and the
// in-container RPC client.
type app struct {
	cfg    *config.Config
	runner *command.ExecRunner
	docker *docker.Handler
	reg    *registry.Registry
	store  *registry.Store
	nodes  *node.Client
}

// loadApp builds the application wiring from the persistent flags.
func loadApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	remote, _ := cmd.Flags().GetString("remote")
	dataDir, _ := cmd.Flags().GetString("data-dir")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	level := "info"
	if verbose {
		level = "debug"
	}
	logging.Init(logging.Options{Level: level, FilePath: cfg.LogFilePath()})

	runner := command.NewExecRunner()
	if remote != "" {
		runner.SetRemotePrefix(strings.Fields(remote))
	} else if len(cfg.RemotePrefix) > 0 {
		runner.SetRemotePrefix(cfg.RemotePrefix)
	}

	reg := registry.Load(cfg.RegistryPath())
	store := registry.LoadStore(cfg.StorePath())
	handler := docker.NewHandler(runner, reg, store, docker.Options{
		Image:  cfg.ImageRef(),
		Prefix: cfg.ContainerPrefix,
	})
	reg.SetVolumeChecker(handler)

	return &app{
		cfg:    cfg,
		runner: runner,
		docker: handler,
		reg:    reg,
		store:  store,
		nodes:  node.NewClient(handler, store),
	}, nil
}

// signalContext returns a context canceled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runTask runs fn as a supervised task and waits for it.
func runTask(ctx context.Context, sup *tasks.Supervisor, name, op string, fn func(context.Context) error) error {
	task, err := sup.Go(ctx, name, op, fn)
	if err != nil {
		return err
	}
	return task.Wait(ctx)
}

// confirm prints prompt and reads a yes/no answer. Anything but an explicit
// yes declines.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// newPullBar returns an indeterminate progress bar for image pulls. The bar
// writes to stderr so stdout stays clean for command output.
func newPullBar(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
