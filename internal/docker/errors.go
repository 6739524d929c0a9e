// internal/docker/errors.go
package docker

import (
	"fmt"
	"regexp"
	"strings"
)

// ParseError reports command output that did not decode into the expected
// JSON or text shape. It usually means the node image is stale or
// incompatible, not a transient fault, so callers should not blindly retry.
type ParseError struct {
	What string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse %s: %v", e.What, e.Err)
	}
	return fmt.Sprintf("failed to parse %s", e.What)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ConflictError reports a run refused because the name is bound to an
// existing container. ID carries the conflicting container id when the
// daemon named one.
type ConflictError struct {
	Name string
	ID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("container name %q is already in use by container %q", e.Name, e.ID)
}

// NotFoundError reports an operation that referenced a container absent
// from Docker.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no such container: %s", e.Name)
}

var (
	containerNotFoundRe = regexp.MustCompile(`(?i)no such container|no such object`)
	volumeNotFoundRe    = regexp.MustCompile(`(?i)no such volume`)
	conflictIDRe        = regexp.MustCompile(`by container "([^"]+)"`)
)

// isNotFound matches the daemon's missing-container wording on stderr.
func isNotFound(stderr string) bool {
	return containerNotFoundRe.MatchString(stderr)
}

func isVolumeNotFound(stderr string) bool {
	return volumeNotFoundRe.MatchString(stderr)
}

// conflictID extracts the conflicting container id from a name-in-use
// failure. ok is true only when the id could be extracted; a conflict
// without an id is surfaced as a plain command failure, matching the
// retry policy of exactly-once-with-known-id.
func conflictID(stderr string) (string, bool) {
	if !strings.Contains(stderr, "is already in use by container") {
		return "", false
	}
	m := conflictIDRe.FindStringSubmatch(stderr)
	if m == nil {
		return "", false
	}
	return m[1], true
}
