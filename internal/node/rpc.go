// internal/node/rpc.go
package node

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/ratio1/r1nodectl/internal/command"
	"github.com/ratio1/r1nodectl/internal/docker"
	"github.com/ratio1/r1nodectl/internal/logging"
	"github.com/ratio1/r1nodectl/internal/registry"
)

// Client speaks the node image's in-container control protocol over
// `docker exec`. JSON commands decode into the types of this package; the
// plain-text commands pass the node's reply through verbatim.
type Client struct {
	docker *docker.Handler
	store  *registry.Store
}

// NewClient builds a Client over the given handler and config store.
func NewClient(d *docker.Handler, store *registry.Store) *Client {
	return &Client{docker: d, store: store}
}

func (c *Client) exec(ctx context.Context, name string, args []string, stdin []byte) (*command.Result, error) {
	res := c.docker.Exec(ctx, name, args, stdin)
	if !res.Ok() {
		return nil, errors.Wrapf(res.AsError(), "%s on container %s", args[0], name)
	}
	return res, nil
}

// execJSON runs an in-container command and decodes its stdout as JSON.
// Decode failures are ParseErrors, not command failures: they usually mean
// the container runs a stale image.
func (c *Client) execJSON(ctx context.Context, name, cmd string, out interface{}) error {
	res, err := c.exec(ctx, name, []string{cmd}, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(res.Stdout), out); err != nil {
		return &docker.ParseError{What: cmd + " output", Err: err}
	}
	return nil
}

// GetInfo fetches the node identity. Every successful fetch refreshes the
// cached alias and addresses in the config store so last-known identity
// survives the node going down.
func (c *Client) GetInfo(ctx context.Context, name string) (*Info, error) {
	var info Info
	if err := c.execJSON(ctx, name, "get_node_info", &info); err != nil {
		return nil, err
	}
	c.cacheIdentity(name, &info)
	return &info, nil
}

func (c *Client) cacheIdentity(name string, info *Info) {
	if _, err := c.store.EnsureNode(name); err != nil {
		logging.Warning("Could not cache identity for %s: %v", name, err)
		return
	}
	if info.Alias != "" {
		if err := c.store.SetAlias(name, info.Alias); err != nil {
			logging.Warning("Could not cache alias for %s: %v", name, err)
		}
	}
	if info.Address != "" {
		if err := c.store.SetAddress(name, info.Address); err != nil {
			logging.Warning("Could not cache address for %s: %v", name, err)
		}
	}
	if info.EthAddress != "" {
		if err := c.store.SetEthAddress(name, info.EthAddress); err != nil {
			logging.Warning("Could not cache eth address for %s: %v", name, err)
		}
	}
}

// GetHistory fetches the node metrics history, reconciled so every series
// aligns with its timestamps.
func (c *Client) GetHistory(ctx context.Context, name string) (*History, error) {
	var h History
	if err := c.execJSON(ctx, name, "get_node_history", &h); err != nil {
		return nil, err
	}
	h.Reconcile()
	return &h, nil
}

// GetStartupConfig fetches the node's startup configuration document.
func (c *Client) GetStartupConfig(ctx context.Context, name string) (StartupConfig, error) {
	var cfg StartupConfig
	if err := c.execJSON(ctx, name, "get_startup_config", &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetConfigApp fetches the node's application configuration document.
func (c *Client) GetConfigApp(ctx context.Context, name string) (ConfigApp, error) {
	var cfg ConfigApp
	if err := c.execJSON(ctx, name, "get_config_app", &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ChangeAlias renames the node. The alias is validated locally before any
// exec happens; the node's confirmation line is returned verbatim and the
// cached alias is refreshed.
func (c *Client) ChangeAlias(ctx context.Context, name, alias string) (string, error) {
	alias = strings.TrimSpace(alias)
	if err := ValidateAlias(alias); err != nil {
		return "", err
	}
	res, err := c.exec(ctx, name, []string{"change_alias", alias}, nil)
	if err != nil {
		return "", err
	}
	if err := c.store.SetAlias(name, alias); err != nil {
		logging.Warning("Could not cache alias for %s: %v", name, err)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// ResetAddress deletes the node's key material so it generates a fresh
// address on next start. The node's confirmation line is returned verbatim.
func (c *Client) ResetAddress(ctx context.Context, name string) (string, error) {
	res, err := c.exec(ctx, name, []string{"reset_address"}, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// GetAllowed fetches the node's address allow-list in node order.
func (c *Client) GetAllowed(ctx context.Context, name string) ([]AllowedAddress, error) {
	res, err := c.exec(ctx, name, []string{"get_allowed"}, nil)
	if err != nil {
		return nil, err
	}
	return ParseAllowed(res.Stdout), nil
}

// UpdateAllowedBatch replaces the node's allow-list, streaming the entries
// over stdin one "address alias" pair per line.
func (c *Client) UpdateAllowedBatch(ctx context.Context, name string, entries []AllowedAddress) (string, error) {
	res, err := c.exec(ctx, name, []string{"update_allowed_batch"}, FormatAllowedBatch(entries))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}
