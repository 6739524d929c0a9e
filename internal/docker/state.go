// internal/docker/state.go
package docker

import (
	"context"
	"errors"
)

// State is the lifecycle position of a managed container.
type State int

const (
	StateUnknown State = iota
	StateNotCreated
	StateStopped
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateNotCreated:
		return "not_created"
	case StateStopped:
		return "exists_stopped"
	case StateRunning:
		return "exists_running"
	default:
		return "unknown"
	}
}

// ContainerState derives the current state from `docker inspect`. A missing
// container is StateNotCreated, not an error; failures to reach the daemon
// leave the state unknown.
func (h *Handler) ContainerState(ctx context.Context, name string) (State, error) {
	info, err := h.Inspect(ctx, name)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return StateNotCreated, nil
		}
		return StateUnknown, err
	}
	if info.State.Running {
		return StateRunning, nil
	}
	return StateStopped, nil
}
