// internal/registry/store.go
package registry

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ratio1/r1nodectl/internal/constants"
	"github.com/ratio1/r1nodectl/internal/logging"
)

// NodeConfig carries the richer per-container fields cached from the last
// successful node info fetch. Stopping a container must not clear these;
// operators want last-known identity even while a node is down.
type NodeConfig struct {
	ContainerName string    `yaml:"container_name"`
	Volume        string    `yaml:"volume,omitempty"`
	NodeAlias     string    `yaml:"node_alias,omitempty"`
	NodeAddress   string    `yaml:"node_address,omitempty"`
	EthAddress    string    `yaml:"eth_address,omitempty"`
	CreatedAt     time.Time `yaml:"created_at"`
	LastUsed      time.Time `yaml:"last_used"`
}

// Store persists NodeConfig entries to a YAML file with the same whole-file
// rewrite and degrade-to-empty rules as the JSON registry.
type Store struct {
	mu    sync.Mutex
	path  string
	nodes map[string]*NodeConfig
}

// LoadStore reads the node config store at path. Missing or corrupt files
// degrade to an empty store.
func LoadStore(path string) *Store {
	s := &Store{path: path, nodes: make(map[string]*NodeConfig)}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warning("Could not read node config store %s, starting empty: %v", path, err)
		}
		return s
	}

	if err := yaml.Unmarshal(data, &s.nodes); err != nil {
		logging.Warning("Node config store %s is corrupt, starting empty: %v", path, err)
		s.nodes = make(map[string]*NodeConfig)
	}
	if s.nodes == nil {
		s.nodes = make(map[string]*NodeConfig)
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// save rewrites the whole file. Callers hold s.mu.
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), constants.DefaultDirMode); err != nil {
		return errors.Wrap(err, "create node config directory")
	}
	data, err := yaml.Marshal(s.nodes)
	if err != nil {
		return errors.Wrap(err, "encode node config store")
	}
	return errors.Wrap(os.WriteFile(s.path, data, constants.DefaultFileMode), "write node config store")
}

// EnsureNode creates an entry for name if absent and returns a copy of it.
func (s *Store) EnsureNode(name string) (NodeConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.nodes[name]
	if !ok {
		now := time.Now()
		cfg = &NodeConfig{ContainerName: name, CreatedAt: now, LastUsed: now}
		s.nodes[name] = cfg
		if err := s.save(); err != nil {
			return NodeConfig{}, err
		}
	}
	return *cfg, nil
}

// GetNode returns a copy of the entry for name.
func (s *Store) GetNode(name string) (NodeConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.nodes[name]
	if !ok {
		return NodeConfig{}, false
	}
	return *cfg, true
}

func (s *Store) update(name, field string, fn func(*NodeConfig)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.nodes[name]
	if !ok {
		logging.Debug("%s: node %q not in config store", field, name)
		return nil
	}
	fn(cfg)
	return s.save()
}

// SetAlias records the node alias. Unknown names are a logged no-op.
func (s *Store) SetAlias(name, alias string) error {
	return s.update(name, "SetAlias", func(c *NodeConfig) { c.NodeAlias = alias })
}

// SetAddress records the node address. Unknown names are a logged no-op.
func (s *Store) SetAddress(name, address string) error {
	return s.update(name, "SetAddress", func(c *NodeConfig) { c.NodeAddress = address })
}

// SetEthAddress records the node's Ethereum address. Unknown names are a
// logged no-op.
func (s *Store) SetEthAddress(name, address string) error {
	return s.update(name, "SetEthAddress", func(c *NodeConfig) { c.EthAddress = address })
}

// SetVolume records the volume backing the node. Unknown names are a logged
// no-op.
func (s *Store) SetVolume(name, volume string) error {
	return s.update(name, "SetVolume", func(c *NodeConfig) { c.Volume = volume })
}

// Touch refreshes last_used. Unknown names are a logged no-op.
func (s *Store) Touch(name string) error {
	return s.update(name, "Touch", func(c *NodeConfig) { c.LastUsed = time.Now() })
}

// RemoveNode deletes the entry for name. Removing an unknown name is a no-op.
func (s *Store) RemoveNode(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[name]; !ok {
		return nil
	}
	delete(s.nodes, name)
	return s.save()
}

// List returns all entries sorted case-insensitively by container name.
func (s *Store) List() []NodeConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]NodeConfig, 0, len(s.nodes))
	for _, cfg := range s.nodes {
		out = append(out, *cfg)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].ContainerName) < strings.ToLower(out[j].ContainerName)
	})
	return out
}
