// internal/docker/names.go
package docker

import (
	"context"
	"strconv"
	"strings"

	"github.com/ratio1/r1nodectl/internal/constants"
	"github.com/ratio1/r1nodectl/internal/logging"
)

// VolumeNameFor maps a container name to its data volume name. Legacy
// "edge_node_container" names keep the container/volume substitution;
// "r1node" and "r1node<N>" map to "r1vol"/"r1vol<N>"; anything else gets a
// "volume_" prefix.
func VolumeNameFor(containerName string) string {
	if strings.Contains(containerName, "edge_node_container") {
		return strings.Replace(containerName, "container", "volume", 1)
	}
	if containerName == constants.ContainerPrefix {
		return constants.VolumePrefix
	}
	if strings.HasPrefix(containerName, constants.ContainerPrefix) {
		suffix := containerName[len(constants.ContainerPrefix):]
		if _, err := strconv.Atoi(suffix); err == nil {
			return constants.VolumePrefix + suffix
		}
	}
	return "volume_" + containerName
}

// NextContainerName returns the next free sequential name under the managed
// prefix by scanning existing container names for the highest numeric
// suffix. When the listing fails or nothing matches, numbering starts at 0.
func (h *Handler) NextContainerName(ctx context.Context) string {
	res := h.runner.Run(ctx, []string{"docker", "ps", "-a", "--format", "{{.Names}}", "--filter", "name=" + h.prefix}, nil)
	if !res.Ok() {
		logging.Warning("Could not list containers to pick the next name, starting at %s0: %v", h.prefix, res.AsError())
		return h.prefix + "0"
	}

	highest := -1
	for _, line := range strings.Split(res.Stdout, "\n") {
		name := strings.TrimSpace(line)
		if name == "" || !strings.HasPrefix(name, h.prefix) {
			continue
		}
		n, err := strconv.Atoi(name[len(h.prefix):])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return h.prefix + strconv.Itoa(highest+1)
}
