// internal/docker/handler.go
package docker

import (
	"context"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/ratio1/r1nodectl/internal/command"
	"github.com/ratio1/r1nodectl/internal/constants"
	"github.com/ratio1/r1nodectl/internal/logging"
	"github.com/ratio1/r1nodectl/internal/registry"
)

// Options configures a Handler. Zero values select the managed image and
// container prefix defaults.
type Options struct {
	Image  string
	Prefix string
}

// Handler orchestrates Edge Node container operations on top of a command
// runner and the durable registry/config stores. It owns conflict
// resolution and retry policy; presentation layers hold a reference and
// never inherit from it.
type Handler struct {
	runner command.Runner
	reg    *registry.Registry
	store  *registry.Store
	image  string
	prefix string
	// emulateAMD64 forces --platform linux/amd64 on run; the managed
	// image is x86-only.
	emulateAMD64 bool
}

var _ registry.VolumeChecker = (*Handler)(nil)

// NewHandler builds a Handler over the given runner and stores.
func NewHandler(runner command.Runner, reg *registry.Registry, store *registry.Store, opts Options) *Handler {
	image := opts.Image
	if image == "" {
		image = constants.DockerImageRef
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = constants.ContainerPrefix
	}
	return &Handler{
		runner:       runner,
		reg:          reg,
		store:        store,
		image:        image,
		prefix:       prefix,
		emulateAMD64: runtime.GOARCH == "arm64",
	}
}

// Image returns the image reference the handler launches.
func (h *Handler) Image() string {
	return h.image
}

// Prefix returns the managed container name prefix.
func (h *Handler) Prefix() string {
	return h.prefix
}

// Runner exposes the underlying command runner, e.g. for remote prefix
// configuration.
func (h *Handler) Runner() command.Runner {
	return h.runner
}

func (h *Handler) launchArgs(name, volume string) []string {
	args := []string{"docker", "run"}
	if h.emulateAMD64 {
		args = append(args, "--platform", "linux/amd64")
	}
	args = append(args, "-d", "--name", name, "--restart", "unless-stopped")
	if volume != "" {
		args = append(args, "-v", volume+":"+constants.ContainerDataPath)
	}
	args = append(args, h.image)
	return args
}

// Launch creates and starts the named container. Launching always means
// "create fresh": an existing holder of the name is force-removed first,
// the image is pulled when absent (onPullLine receives pull progress), and
// a name conflict during run is retried exactly once after removing the
// conflicting container. On success the registry and config store are
// updated.
func (h *Handler) Launch(ctx context.Context, name, volume string, onPullLine func(string)) error {
	probe := h.runner.Run(ctx, []string{"docker", "inspect", name}, nil)
	if probe.Err != nil {
		return errors.Wrapf(probe.Err, "probe container %s", name)
	}
	if probe.Ok() {
		logging.Info("Container %s already exists, removing it before launch", name)
		rm := h.runner.Run(ctx, []string{"docker", "rm", "-f", name}, nil)
		if !rm.Ok() {
			return errors.Wrapf(rm.AsError(), "remove existing container %s", name)
		}
	}

	if err := h.EnsureImage(ctx, onPullLine); err != nil {
		return err
	}

	res := h.runner.Run(ctx, h.launchArgs(name, volume), &command.Options{Timeout: constants.LaunchTimeout})
	if !res.Ok() {
		id, ok := conflictID(res.Stderr)
		if !ok {
			return errors.Wrapf(res.AsError(), "launch container %s", name)
		}

		logging.Warning("Name %s is held by container %s, removing it and retrying once", name, id)
		if rm := h.runner.Run(ctx, []string{"docker", "rm", "-f", id}, nil); !rm.Ok() {
			logging.Warning("Could not remove conflicting container %s: %s", id, strings.TrimSpace(rm.Stderr))
		}
		// Give the daemon a moment to release the name.
		sleepCtx(ctx, constants.ConflictRetryDelay)

		res = h.runner.Run(ctx, h.launchArgs(name, volume), &command.Options{Timeout: constants.LaunchTimeout})
		if !res.Ok() {
			if id2, ok := conflictID(res.Stderr); ok {
				return errors.Wrapf(&ConflictError{Name: name, ID: id2}, "relaunch container %s", name)
			}
			return errors.Wrapf(res.AsError(), "relaunch container %s", name)
		}
	}

	if err := h.reg.Add(name, volume); err != nil {
		logging.Warning("Container %s launched but registry update failed: %v", name, err)
	}
	if _, err := h.store.EnsureNode(name); err != nil {
		logging.Warning("Container %s launched but config store update failed: %v", name, err)
	} else {
		if volume != "" {
			if err := h.store.SetVolume(name, volume); err != nil {
				logging.Warning("Could not record volume for %s: %v", name, err)
			}
		}
		if err := h.store.Touch(name); err != nil {
			logging.Warning("Could not touch config store entry for %s: %v", name, err)
		}
	}

	logging.Info("Launched container %s", name)
	return nil
}

// Stop stops the named container. The cached node alias and addresses are
// left untouched so last-known identity survives while the node is down.
func (h *Handler) Stop(ctx context.Context, name string) error {
	res := h.runner.Run(ctx, []string{"docker", "stop", name}, &command.Options{Timeout: constants.StopTimeout})
	if res.Ok() {
		logging.Info("Stopped container %s", name)
		return nil
	}
	if isNotFound(res.Stderr) {
		return &NotFoundError{Name: name}
	}
	return errors.Wrapf(res.AsError(), "stop container %s", name)
}

// Remove deletes the container and its registry and config store entries.
// force removes a running container. A container already absent from
// Docker still has its stored entries pruned.
func (h *Handler) Remove(ctx context.Context, name string, force bool) error {
	args := []string{"docker", "rm"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, name)

	res := h.runner.Run(ctx, args, nil)
	if !res.Ok() {
		if !isNotFound(res.Stderr) {
			return errors.Wrapf(res.AsError(), "remove container %s", name)
		}
		logging.Debug("Container %s already absent from Docker, pruning its entries", name)
	}

	if err := h.reg.Remove(name); err != nil {
		return err
	}
	return h.store.RemoveNode(name)
}

// Inspect returns the parsed first element of `docker inspect`. A missing
// container is a NotFoundError; malformed output is a ParseError.
func (h *Handler) Inspect(ctx context.Context, name string) (*InspectedContainer, error) {
	res := h.runner.Run(ctx, []string{"docker", "inspect", name}, nil)
	if !res.Ok() {
		if isNotFound(res.Stderr) {
			return nil, &NotFoundError{Name: name}
		}
		return nil, errors.Wrapf(res.AsError(), "inspect container %s", name)
	}
	return parseInspectOutput(res.Stdout)
}

// IsRunning reports whether the named container is running. A container
// absent from Docker is not-running, not an error.
func (h *Handler) IsRunning(ctx context.Context, name string) (bool, error) {
	info, err := h.Inspect(ctx, name)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, err
	}
	return info.State.Running, nil
}

// ContainerExists reports whether a container with exactly this name exists
// in Docker, running or not.
func (h *Handler) ContainerExists(ctx context.Context, name string) (bool, error) {
	res := h.runner.Run(ctx, []string{"docker", "ps", "-a", "--format", "{{.Names}}", "--filter", "name=" + name}, nil)
	if !res.Ok() {
		return false, errors.Wrapf(res.AsError(), "list containers matching %s", name)
	}
	// The name filter matches substrings; require an exact line match.
	for _, line := range strings.Split(res.Stdout, "\n") {
		if strings.TrimSpace(line) == name {
			return true, nil
		}
	}
	return false, nil
}

// ContainerRow is one line of `docker ps` output for a managed container.
type ContainerRow struct {
	Name    string
	Status  string
	ID      string
	Running bool
}

// List returns the managed containers (those whose name carries the
// handler prefix). all includes stopped ones.
func (h *Handler) List(ctx context.Context, all bool) ([]ContainerRow, error) {
	args := []string{"docker", "ps"}
	if all {
		args = append(args, "-a")
	}
	args = append(args, "--format", "{{.Names}}\t{{.Status}}\t{{.ID}}", "-f", "name="+h.prefix)

	res := h.runner.Run(ctx, args, nil)
	if !res.Ok() {
		return nil, errors.Wrap(res.AsError(), "list containers")
	}

	var rows []ContainerRow
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 3 {
			logging.Debug("Skipping malformed ps line: %q", line)
			continue
		}
		status := strings.TrimSpace(parts[1])
		rows = append(rows, ContainerRow{
			Name:    strings.TrimSpace(parts[0]),
			Status:  status,
			ID:      strings.TrimSpace(parts[2]),
			Running: strings.Contains(status, "Up"),
		})
	}
	return rows, nil
}

// Exec runs an in-container command via `docker exec`. Interactive mode
// (-i) is selected exactly when stdin is supplied. The caller classifies
// the result.
func (h *Handler) Exec(ctx context.Context, name string, args []string, stdin []byte) *command.Result {
	argv := []string{"docker", "exec"}
	if len(stdin) > 0 {
		argv = append(argv, "-i")
	}
	argv = append(argv, name)
	argv = append(argv, args...)
	return h.runner.Run(ctx, argv, &command.Options{Stdin: stdin})
}

// ImagePresent reports whether the managed image is available locally.
func (h *Handler) ImagePresent(ctx context.Context) (bool, error) {
	id, err := h.ImageID(ctx)
	if err != nil {
		return false, err
	}
	return id != "", nil
}

// ImageID returns the local image id behind the managed reference, or ""
// when the image is absent. A changing id across polls means a new image
// version was pulled.
func (h *Handler) ImageID(ctx context.Context) (string, error) {
	res := h.runner.Run(ctx, []string{"docker", "images", "-q", h.image}, nil)
	if !res.Ok() {
		return "", errors.Wrapf(res.AsError(), "check for image %s", h.image)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// EnsureImage pulls the managed image when it is not present locally.
func (h *Handler) EnsureImage(ctx context.Context, onLine func(string)) error {
	present, err := h.ImagePresent(ctx)
	if err != nil {
		return err
	}
	if present {
		return nil
	}
	return h.Pull(ctx, onLine)
}

// Pull downloads the managed image, streaming progress lines to onLine.
// Pulls can take minutes, so they get their own generous timeout.
func (h *Handler) Pull(ctx context.Context, onLine func(string)) error {
	logging.Info("Pulling image %s", h.image)
	res := h.runner.Run(ctx, []string{"docker", "pull", h.image}, &command.Options{
		Timeout:      constants.PullTimeout,
		OnOutputLine: onLine,
	})
	if !res.Ok() {
		return errors.Wrapf(res.AsError(), "pull image %s", h.image)
	}
	return nil
}

// PullQuiet runs `docker pull --quiet` and returns the raw result for
// update classification.
func (h *Handler) PullQuiet(ctx context.Context) *command.Result {
	return h.runner.Run(ctx, []string{"docker", "pull", "--quiet", h.image}, &command.Options{
		Timeout: constants.PullTimeout,
	})
}

// VolumeExists reports whether a named Docker volume exists.
func (h *Handler) VolumeExists(ctx context.Context, volume string) (bool, error) {
	res := h.runner.Run(ctx, []string{"docker", "volume", "inspect", volume}, nil)
	if res.Ok() {
		return true, nil
	}
	if res.Err != nil {
		return false, res.Err
	}
	if isVolumeNotFound(res.Stderr) || isNotFound(res.Stderr) {
		return false, nil
	}
	return false, res.AsError()
}

// VolumeMountpoint returns the host path backing a named volume.
func (h *Handler) VolumeMountpoint(ctx context.Context, volume string) (string, error) {
	res := h.runner.Run(ctx, []string{"docker", "volume", "inspect", volume}, nil)
	if !res.Ok() {
		return "", errors.Wrapf(res.AsError(), "inspect volume %s", volume)
	}
	mountpoint := gjson.Get(res.Stdout, "0.Mountpoint").String()
	if mountpoint == "" {
		return "", &ParseError{What: "docker volume inspect output"}
	}
	return mountpoint, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
