// internal/docker/update.go
package docker

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/ratio1/r1nodectl/internal/logging"
)

// UpdateCheck reports the outcome of an image update probe.
type UpdateCheck struct {
	// Updated is true when the pull brought down a new image version.
	Updated bool
	// Digest is the repo digest of the image after the pull, when known.
	Digest string
	// Message is a human-readable summary.
	Message string
}

// localImageDigest returns the first RepoDigest of the locally stored image,
// or "" when the image is absent or carries no digest.
func (h *Handler) localImageDigest(ctx context.Context) string {
	res := h.runner.Run(ctx, []string{"docker", "image", "inspect", h.image}, nil)
	if !res.Ok() {
		return ""
	}
	return gjson.Get(res.Stdout, "0.RepoDigests.0").String()
}

// CheckImageUpdate pulls the managed image and reports whether that brought
// down a new version. The primary signal is the local repo digest changing
// across the pull; when digests are unavailable the stdout/stderr of
// `docker pull --quiet` is classified instead (nonempty output without an
// "Image is up to date" marker means an update was applied). The fallback is
// best-effort and may misreport on localized Docker output.
func (h *Handler) CheckImageUpdate(ctx context.Context) (*UpdateCheck, error) {
	before := h.localImageDigest(ctx)

	res := h.PullQuiet(ctx)
	if !res.Ok() {
		return nil, errors.Wrapf(res.AsError(), "check for updates to %s", h.image)
	}

	after := h.localImageDigest(ctx)
	if before != "" && after != "" {
		check := &UpdateCheck{Updated: before != after, Digest: after}
		if check.Updated {
			check.Message = "image " + h.image + " updated to " + after
			logging.Info("Image %s updated: %s -> %s", h.image, before, after)
		} else {
			check.Message = "image " + h.image + " is up to date"
		}
		return check, nil
	}

	// Digest unavailable, fall back to classifying the pull output.
	out := strings.TrimSpace(res.Stdout)
	updated := out != "" && !strings.Contains(res.Stderr, "Image is up to date")
	check := &UpdateCheck{Updated: updated, Digest: after}
	if updated {
		check.Message = "image " + h.image + " updated"
	} else {
		check.Message = "no updates available for image " + h.image
	}
	return check, nil
}
