package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Image != "ratio1/edge_node" || cfg.Tag != "mainnet" {
		t.Errorf("Unexpected image defaults: %s:%s", cfg.Image, cfg.Tag)
	}
	if cfg.ContainerPrefix != "r1node" {
		t.Errorf("Unexpected prefix default: %s", cfg.ContainerPrefix)
	}
	if cfg.MinNodeRAMGB != 4 {
		t.Errorf("Unexpected RAM default: %d", cfg.MinNodeRAMGB)
	}
	if cfg.Bridge.Addr != "127.0.0.1:9341" {
		t.Errorf("Unexpected bridge default: %s", cfg.Bridge.Addr)
	}
	if !strings.HasSuffix(cfg.DataDir, ".edge_node") {
		t.Errorf("Unexpected data dir default: %s", cfg.DataDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults must validate, got %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("A missing config file must not fail, got %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("Expected pure defaults, got %+v", cfg)
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := writeConfig(t, `
image: ratio1/edge_node
tag: testnet
container_prefix: tnode
min_node_ram_gb: 8
refresh_interval: 30s
remote_prefix: ["ssh", "ops@edge-host"]
bridge:
  addr: "127.0.0.1:9999"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tag != "testnet" || cfg.ContainerPrefix != "tnode" || cfg.MinNodeRAMGB != 8 {
		t.Errorf("Fields not loaded: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.RemotePrefix, []string{"ssh", "ops@edge-host"}) {
		t.Errorf("remote_prefix not loaded: %v", cfg.RemotePrefix)
	}
	if cfg.Bridge.Addr != "127.0.0.1:9999" {
		t.Errorf("bridge addr not loaded: %s", cfg.Bridge.Addr)
	}
	if cfg.RefreshEvery() != 30*time.Second {
		t.Errorf("refresh_interval not loaded: %s", cfg.RefreshInterval)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "tag: devnet\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tag != "devnet" {
		t.Errorf("Override lost: %s", cfg.Tag)
	}
	if cfg.Image != "ratio1/edge_node" || cfg.ContainerPrefix != "r1node" || cfg.MinNodeRAMGB != 4 {
		t.Errorf("Defaults lost: %+v", cfg)
	}
}

func TestLoadInvalidYAMLFails(t *testing.T) {
	path := writeConfig(t, "image: [unclosed\n")

	if _, err := Load(path); err == nil {
		t.Fatal("A malformed config the user wrote must be an error, not ignored")
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("EDGE_TAG", "mainnet")
	path := writeConfig(t, "tag: ${EDGE_TAG}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tag != "mainnet" {
		t.Errorf("Environment not expanded: %s", cfg.Tag)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty_image", func(c *Config) { c.Image = "" }, true},
		{"empty_prefix", func(c *Config) { c.ContainerPrefix = "" }, true},
		{"prefix_with_space", func(c *Config) { c.ContainerPrefix = "r1 node" }, true},
		{"zero_ram", func(c *Config) { c.MinNodeRAMGB = 0 }, true},
		{"bad_interval", func(c *Config) { c.RefreshInterval = "often" }, true},
		{"negative_interval", func(c *Config) { c.RefreshInterval = "-5s" }, true},
		{"portless_bridge", func(c *Config) { c.Bridge.Addr = "localhost" }, true},
		{"empty_bridge_ok", func(c *Config) { c.Bridge.Addr = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, "refresh_interval: sometimes\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Expected a validation error")
	}
}

func TestImageRef(t *testing.T) {
	cfg := &Config{Image: "ratio1/edge_node", Tag: "mainnet"}
	if cfg.ImageRef() != "ratio1/edge_node:mainnet" {
		t.Errorf("ImageRef() = %s", cfg.ImageRef())
	}
	cfg.Tag = ""
	if cfg.ImageRef() != "ratio1/edge_node" {
		t.Errorf("ImageRef() without tag = %s", cfg.ImageRef())
	}
}

func TestRefreshEveryFallback(t *testing.T) {
	cfg := &Config{}
	if cfg.RefreshEvery() != 10*time.Second {
		t.Errorf("Expected the 10s default, got %s", cfg.RefreshEvery())
	}
	cfg.RefreshInterval = "bogus"
	if cfg.RefreshEvery() != 10*time.Second {
		t.Errorf("Expected fallback on malformed interval, got %s", cfg.RefreshEvery())
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Tag = "testnet"
	cfg.MinNodeRAMGB = 8
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Tag != "testnet" || loaded.MinNodeRAMGB != 8 {
		t.Errorf("Round trip lost fields: %+v", loaded)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := &Config{DataDir: "/var/lib/edge"}

	if cfg.RegistryPath() != filepath.Join("/var/lib/edge", "containers.json") {
		t.Errorf("RegistryPath() = %s", cfg.RegistryPath())
	}
	if cfg.StorePath() != filepath.Join("/var/lib/edge", "nodes.yaml") {
		t.Errorf("StorePath() = %s", cfg.StorePath())
	}
	if cfg.EnvFilePath() != filepath.Join("/var/lib/edge", ".env") {
		t.Errorf("EnvFilePath() = %s", cfg.EnvFilePath())
	}
	if cfg.LogFilePath() != filepath.Join("/var/lib/edge", "logs", "r1nodectl.log") {
		t.Errorf("LogFilePath() = %s", cfg.LogFilePath())
	}
}
