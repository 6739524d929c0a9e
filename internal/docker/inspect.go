// internal/docker/inspect.go
package docker

import (
	"encoding/json"
)

// InspectedContainer is the subset of `docker inspect` output the manager
// consumes.
type InspectedContainer struct {
	ID      string               `json:"Id"`
	Name    string               `json:"Name"`
	Created string               `json:"Created"`
	Config  InspectedConfig      `json:"Config"`
	State   InspectedState       `json:"State"`
	Mounts  []InspectedMount     `json:"Mounts"`
	Network InspectedNetSettings `json:"NetworkSettings"`
}

type InspectedConfig struct {
	Image      string   `json:"Image"`
	Env        []string `json:"Env"`
	Cmd        []string `json:"Cmd"`
	Entrypoint []string `json:"Entrypoint"`
}

type InspectedState struct {
	Status     string `json:"Status"`
	Running    bool   `json:"Running"`
	StartedAt  string `json:"StartedAt"`
	FinishedAt string `json:"FinishedAt"`
	ExitCode   int    `json:"ExitCode"`
}

type InspectedMount struct {
	Type        string `json:"Type"`
	Name        string `json:"Name"`
	Source      string `json:"Source"`
	Destination string `json:"Destination"`
}

type InspectedNetSettings struct {
	IPAddress string `json:"IPAddress"`
}

// parseInspectOutput decodes `docker inspect` stdout and returns the first
// element of the JSON array. Malformed or empty output is a hard error.
func parseInspectOutput(stdout string) (*InspectedContainer, error) {
	var containers []InspectedContainer
	if err := json.Unmarshal([]byte(stdout), &containers); err != nil {
		return nil, &ParseError{What: "docker inspect output", Err: err}
	}
	if len(containers) == 0 {
		return nil, &ParseError{What: "docker inspect output: empty array"}
	}
	return &containers[0], nil
}
