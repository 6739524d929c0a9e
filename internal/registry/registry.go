// internal/registry/registry.go
package registry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ratio1/r1nodectl/internal/constants"
	"github.com/ratio1/r1nodectl/internal/logging"
)

// ErrDuplicateName is returned by AddStrict when the name is already taken.
var ErrDuplicateName = errors.New("container name already registered")

// ContainerInfo is one registry entry, keyed by container name.
type ContainerInfo struct {
	ContainerName string    `json:"container_name"`
	VolumeName    string    `json:"volume_name"`
	CreatedAt     time.Time `json:"created_at"`
	LastUsed      time.Time `json:"last_used"`
}

// VolumeChecker reports whether a named Docker volume exists.
type VolumeChecker interface {
	VolumeExists(ctx context.Context, volume string) (bool, error)
}

// Registry is the durable container name -> metadata store. Every mutation
// rewrites the whole backing file under one mutex; loading a missing or
// corrupt file yields an empty registry so startup never fails on state.
type Registry struct {
	mu      sync.Mutex
	path    string
	entries map[string]*ContainerInfo
	volumes VolumeChecker
}

// Load reads the registry file at path. Missing or corrupt files degrade to
// an empty registry.
func Load(path string) *Registry {
	r := &Registry{path: path, entries: make(map[string]*ContainerInfo)}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warning("Could not read container registry %s, starting empty: %v", path, err)
		}
		return r
	}

	if err := json.Unmarshal(data, &r.entries); err != nil {
		logging.Warning("Container registry %s is corrupt, starting empty: %v", path, err)
		r.entries = make(map[string]*ContainerInfo)
	}
	if r.entries == nil {
		r.entries = make(map[string]*ContainerInfo)
	}
	return r
}

// Path returns the backing file path.
func (r *Registry) Path() string {
	return r.path
}

// SetVolumeChecker wires the Docker-side volume query used by VolumeExists.
func (r *Registry) SetVolumeChecker(vc VolumeChecker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.volumes = vc
}

// save rewrites the whole file. Callers hold r.mu.
func (r *Registry) save() error {
	if err := os.MkdirAll(filepath.Dir(r.path), constants.DefaultDirMode); err != nil {
		return errors.Wrap(err, "create registry directory")
	}
	data, err := json.MarshalIndent(r.entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode container registry")
	}
	return errors.Wrap(os.WriteFile(r.path, data, constants.DefaultFileMode), "write container registry")
}

// Add inserts or overwrites an entry. Overwriting keeps the original
// created_at and refreshes last_used; re-adding after crash recovery is a
// normal event.
func (r *Registry) Add(name, volume string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existing, ok := r.entries[name]; ok {
		existing.VolumeName = volume
		existing.LastUsed = now
	} else {
		r.entries[name] = &ContainerInfo{
			ContainerName: name,
			VolumeName:    volume,
			CreatedAt:     now,
			LastUsed:      now,
		}
	}
	return r.save()
}

// AddStrict inserts an entry, failing with ErrDuplicateName when the name is
// already registered.
func (r *Registry) AddStrict(name, volume string) error {
	r.mu.Lock()
	if _, ok := r.entries[name]; ok {
		r.mu.Unlock()
		return errors.Wrapf(ErrDuplicateName, "%q", name)
	}
	r.mu.Unlock()
	return r.Add(name, volume)
}

// Get returns a copy of the entry for name.
func (r *Registry) Get(name string) (ContainerInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.entries[name]
	if !ok {
		return ContainerInfo{}, false
	}
	return *info, true
}

// SetVolume updates the volume of an existing entry. Unknown names are a
// logged no-op.
func (r *Registry) SetVolume(name, volume string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.entries[name]
	if !ok {
		logging.Debug("SetVolume: container %q not in registry", name)
		return nil
	}
	info.VolumeName = volume
	return r.save()
}

// Touch refreshes last_used of an existing entry. Unknown names are a
// logged no-op.
func (r *Registry) Touch(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.entries[name]
	if !ok {
		logging.Debug("Touch: container %q not in registry", name)
		return nil
	}
	info.LastUsed = time.Now()
	return r.save()
}

// Remove deletes the entry for name. Removing an unknown name is a no-op.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; !ok {
		return nil
	}
	delete(r.entries, name)
	return r.save()
}

// List returns all entries sorted case-insensitively by name for stable
// presentation.
func (r *Registry) List() []ContainerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ContainerInfo, 0, len(r.entries))
	for _, info := range r.entries {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].ContainerName) < strings.ToLower(out[j].ContainerName)
	})
	return out
}

// Len returns the number of registered containers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// VolumeExists delegates to the configured Docker-side volume query; it is
// used to decide whether a launch will implicitly create a new volume.
func (r *Registry) VolumeExists(ctx context.Context, volume string) (bool, error) {
	r.mu.Lock()
	vc := r.volumes
	r.mu.Unlock()
	if vc == nil {
		return false, errors.New("no volume checker configured")
	}
	return vc.VolumeExists(ctx, volume)
}
