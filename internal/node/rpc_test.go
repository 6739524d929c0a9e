package node

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ratio1/r1nodectl/internal/command"
	"github.com/ratio1/r1nodectl/internal/docker"
	"github.com/ratio1/r1nodectl/internal/registry"
)

// scriptedRunner implements command.Runner, replaying queued results in
// order and recording every invocation.
type scriptedRunner struct {
	prefix []string
	calls  [][]string
	stdins []string
	queue  []*command.Result
}

func (s *scriptedRunner) push(res *command.Result) {
	s.queue = append(s.queue, res)
}

func (s *scriptedRunner) Run(_ context.Context, argv []string, opts *command.Options) *command.Result {
	s.calls = append(s.calls, append([]string(nil), argv...))
	if opts != nil && len(opts.Stdin) > 0 {
		s.stdins = append(s.stdins, string(opts.Stdin))
	} else {
		s.stdins = append(s.stdins, "")
	}

	if len(s.queue) == 0 {
		return &command.Result{Argv: argv}
	}
	res := s.queue[0]
	s.queue = s.queue[1:]
	res.Argv = argv
	return res
}

func (s *scriptedRunner) Start(ctx context.Context, argv []string, opts *command.Options) <-chan *command.Result {
	ch := make(chan *command.Result, 1)
	ch <- s.Run(ctx, argv, opts)
	close(ch)
	return ch
}

func (s *scriptedRunner) SetRemotePrefix(prefix []string) {
	s.prefix = append([]string(nil), prefix...)
}

func (s *scriptedRunner) RemotePrefix() []string {
	return append([]string(nil), s.prefix...)
}

func newTestClient(t *testing.T) (*Client, *registry.Store, *scriptedRunner) {
	t.Helper()
	dir := t.TempDir()
	reg := registry.Load(filepath.Join(dir, "containers.json"))
	store := registry.LoadStore(filepath.Join(dir, "nodes.yaml"))
	sr := &scriptedRunner{}
	h := docker.NewHandler(sr, reg, store, docker.Options{})
	return NewClient(h, store), store, sr
}

func TestGetInfo(t *testing.T) {
	c, store, sr := newTestClient(t)
	sr.push(&command.Result{Stdout: `{"address":"0xNODE","eth_address":"0xETH","alias":"my-node","version":"2.6.1","running":true}`})

	info, err := c.GetInfo(context.Background(), "r1node0")
	if err != nil {
		t.Fatalf("GetInfo: %v", err)
	}
	if info.Address != "0xNODE" || info.EthAddress != "0xETH" || info.Alias != "my-node" || !info.Running {
		t.Errorf("Unexpected info: %+v", info)
	}

	want := []string{"docker", "exec", "r1node0", "get_node_info"}
	if !reflect.DeepEqual(sr.calls[0], want) {
		t.Errorf("Expected %v, got %v", want, sr.calls[0])
	}

	// A successful fetch refreshes the cached identity.
	cfg, found := store.GetNode("r1node0")
	if !found {
		t.Fatal("Expected a config store entry after GetInfo")
	}
	if cfg.NodeAlias != "my-node" || cfg.NodeAddress != "0xNODE" || cfg.EthAddress != "0xETH" {
		t.Errorf("Identity not cached: %+v", cfg)
	}
}

func TestGetInfoParseError(t *testing.T) {
	c, store, sr := newTestClient(t)
	sr.push(&command.Result{Stdout: "node not ready yet"})

	_, err := c.GetInfo(context.Background(), "r1node0")
	var parseErr *docker.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected *docker.ParseError, got %v", err)
	}
	if _, found := store.GetNode("r1node0"); found {
		t.Error("A failed fetch must not create store entries")
	}
}

func TestGetInfoCommandFailure(t *testing.T) {
	c, _, sr := newTestClient(t)
	sr.push(&command.Result{ExitCode: 1, Stderr: "Error: container r1node0 is not running"})

	_, err := c.GetInfo(context.Background(), "r1node0")
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !strings.Contains(err.Error(), "is not running") {
		t.Errorf("Expected stderr in the error, got %v", err)
	}
	var parseErr *docker.ParseError
	if errors.As(err, &parseErr) {
		t.Error("A command failure must not be classified as a parse error")
	}
}

func TestGetHistoryReconciles(t *testing.T) {
	c, _, sr := newTestClient(t)
	sr.push(&command.Result{Stdout: `{
		"timestamps": [1, 2, 3],
		"cpu_load": [1, 2, 3, 4, 5],
		"occupied_memory": [9],
		"uptime": "2 days",
		"current_epoch": 42,
		"current_epoch_avail": 0.97,
		"version": "2.6.1"
	}`})

	h, err := c.GetHistory(context.Background(), "r1node0")
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if !reflect.DeepEqual(h.CPULoad, []float64{3, 4, 5}) {
		t.Errorf("cpu_load not truncated: %v", h.CPULoad)
	}
	if !reflect.DeepEqual(h.OccupiedMemory, []float64{0, 0, 9}) {
		t.Errorf("occupied_memory not padded: %v", h.OccupiedMemory)
	}
	if h.CurrentEpoch != 42 || h.Uptime != "2 days" {
		t.Errorf("Scalar fields lost: %+v", h)
	}
}

func TestGetStartupConfig(t *testing.T) {
	c, _, sr := newTestClient(t)
	sr.push(&command.Result{Stdout: `{"EE_ID": "my-node", "EE_EPOCH_INTERVALS": 24}`})

	cfg, err := c.GetStartupConfig(context.Background(), "r1node0")
	if err != nil {
		t.Fatalf("GetStartupConfig: %v", err)
	}
	if cfg["EE_ID"] != "my-node" {
		t.Errorf("Unexpected document: %v", cfg)
	}
}

func TestGetConfigApp(t *testing.T) {
	c, _, sr := newTestClient(t)
	sr.push(&command.Result{Stdout: `{"plugins": ["a", "b"]}`})

	cfg, err := c.GetConfigApp(context.Background(), "r1node0")
	if err != nil {
		t.Fatalf("GetConfigApp: %v", err)
	}
	if _, ok := cfg["plugins"]; !ok {
		t.Errorf("Unexpected document: %v", cfg)
	}
}

func TestChangeAlias(t *testing.T) {
	c, store, sr := newTestClient(t)
	if _, err := store.EnsureNode("r1node0"); err != nil {
		t.Fatal(err)
	}
	sr.push(&command.Result{Stdout: "Alias changed to my-node\n"})

	msg, err := c.ChangeAlias(context.Background(), "r1node0", "  my-node  ")
	if err != nil {
		t.Fatalf("ChangeAlias: %v", err)
	}
	if msg != "Alias changed to my-node" {
		t.Errorf("Expected the node's reply passed through, got %q", msg)
	}

	want := []string{"docker", "exec", "r1node0", "change_alias", "my-node"}
	if !reflect.DeepEqual(sr.calls[0], want) {
		t.Errorf("Expected %v, got %v", want, sr.calls[0])
	}

	cfg, _ := store.GetNode("r1node0")
	if cfg.NodeAlias != "my-node" {
		t.Errorf("Expected the cached alias refreshed, got %q", cfg.NodeAlias)
	}
}

func TestChangeAliasValidatesBeforeExec(t *testing.T) {
	tests := []struct {
		name  string
		alias string
	}{
		{"empty", ""},
		{"whitespace_only", "   "},
		{"too_long", strings.Repeat("a", 33)},
		{"bad_charset", "my node!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, sr := newTestClient(t)
			if _, err := c.ChangeAlias(context.Background(), "r1node0", tt.alias); err == nil {
				t.Fatal("Expected a validation error")
			}
			if len(sr.calls) != 0 {
				t.Errorf("Validation must happen before any exec, got calls %v", sr.calls)
			}
		})
	}
}

func TestResetAddress(t *testing.T) {
	c, _, sr := newTestClient(t)
	sr.push(&command.Result{Stdout: "Address reset, restart the node to take effect\n"})

	msg, err := c.ResetAddress(context.Background(), "r1node0")
	if err != nil {
		t.Fatalf("ResetAddress: %v", err)
	}
	if msg != "Address reset, restart the node to take effect" {
		t.Errorf("Expected the node's reply passed through, got %q", msg)
	}
	want := []string{"docker", "exec", "r1node0", "reset_address"}
	if !reflect.DeepEqual(sr.calls[0], want) {
		t.Errorf("Expected %v, got %v", want, sr.calls[0])
	}
}

func TestGetAllowed(t *testing.T) {
	c, _, sr := newTestClient(t)
	sr.push(&command.Result{Stdout: "0xABC alias1\n0xDEF alias2 # oracle\n"})

	entries, err := c.GetAllowed(context.Background(), "r1node0")
	if err != nil {
		t.Fatalf("GetAllowed: %v", err)
	}
	want := []AllowedAddress{
		{Address: "0xABC", Alias: "alias1"},
		{Address: "0xDEF", Alias: "alias2"},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("GetAllowed() = %+v, want %+v", entries, want)
	}
}

func TestUpdateAllowedBatch(t *testing.T) {
	c, _, sr := newTestClient(t)
	sr.push(&command.Result{Stdout: "Allowed list updated\n"})

	entries := []AllowedAddress{
		{Address: "0xABC", Alias: "one"},
		{Address: "0xDEF", Alias: "two"},
	}
	msg, err := c.UpdateAllowedBatch(context.Background(), "r1node0", entries)
	if err != nil {
		t.Fatalf("UpdateAllowedBatch: %v", err)
	}
	if msg != "Allowed list updated" {
		t.Errorf("Unexpected reply %q", msg)
	}

	// Stdin forces interactive exec.
	want := []string{"docker", "exec", "-i", "r1node0", "update_allowed_batch"}
	if !reflect.DeepEqual(sr.calls[0], want) {
		t.Errorf("Expected %v, got %v", want, sr.calls[0])
	}
	if sr.stdins[0] != "0xABC one\n0xDEF two\n" {
		t.Errorf("Unexpected stdin payload %q", sr.stdins[0])
	}
}
