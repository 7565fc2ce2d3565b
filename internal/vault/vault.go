// internal/vault/vault.go
//
// Vault secret resolver for settings values.
//
// Context
// -------
//   - Settings values of the form `vault:<mount>/<path>#<key>` are handed to
//     Client.Resolve during Load, so the merged tree never carries Vault URIs
//     once validation runs.
//   - Results are cached per reference for a TTL, and concurrent lookups of
//     the same reference share one round-trip through singleflight.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(vault.DefaultTTL)            // during boot.
//  2. settings.Load(ctx, settings.Options{Resolver: cli}) // resolves refs.
//
// Build tags: none.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"golang.org/x/sync/singleflight"

	"github.com/AdeptTravel/adept-bootstrap/internal/metrics"
)

// DefaultTTL bounds how long a resolved secret is reused.
const DefaultTTL = 5 * time.Minute

//
// SECTION 1.  Public façade
//

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	api *vault.Client
	ttl time.Duration
	sfg singleflight.Group

	cacheMu sync.RWMutex
	cache   map[string]cached // canonical ref → value + expiry.
}

type cached struct {
	val string
	exp time.Time
}

// New constructs a client from the standard environment.
//
// Environment expectations
// ------------------------
// • VAULT_ADDR   – scheme and host of the Vault server.
// • VAULT_TOKEN  – token used for every read.
func New(ttl time.Duration) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}
	return NewWithConfig(cfg, os.Getenv("VAULT_TOKEN"), ttl)
}

// NewWithConfig is New with an explicit SDK config and token.
func NewWithConfig(cfg *vault.Config, token string, ttl time.Duration) (*Client, error) {
	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if token != "" {
		apiCli.SetToken(token)
	}
	return &Client{
		api:   apiCli,
		ttl:   ttl,
		cache: make(map[string]cached),
	}, nil
}

// Resolve reads `mount/path#key` from a KV-v2 secret.
func (c *Client) Resolve(ctx context.Context, ref string) (string, error) {
	secretPath, key, err := splitRef(ref)
	if err != nil {
		return "", err
	}

	if c.ttl > 0 {
		c.cacheMu.RLock()
		if cv, ok := c.cache[ref]; ok && time.Now().Before(cv.exp) {
			c.cacheMu.RUnlock()
			metrics.VaultLookupsTotal.WithLabelValues("hit").Inc()
			return cv.val, nil
		}
		c.cacheMu.RUnlock()
	}

	v, err, _ := c.sfg.Do(ref, func() (any, error) {
		return c.fetch(ctx, secretPath, key)
	})
	if err != nil {
		metrics.VaultLookupsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	metrics.VaultLookupsTotal.WithLabelValues("miss").Inc()
	sval := v.(string)

	if c.ttl > 0 {
		c.cacheMu.Lock()
		c.cache[ref] = cached{val: sval, exp: time.Now().Add(c.ttl)}
		c.cacheMu.Unlock()
	}
	return sval, nil
}

//
// SECTION 2.  Helpers
//

func (c *Client) fetch(ctx context.Context, secretPath, key string) (string, error) {
	mount, rel := splitMount(secretPath)
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}

	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s#%s is not a string", secretPath, key)
	}
	return sval, nil
}

func splitRef(ref string) (secretPath, key string, err error) {
	i := strings.LastIndexByte(ref, '#')
	if i <= 0 || i == len(ref)-1 {
		return "", "", errors.New("vault ref must look like mount/path#key")
	}
	return ref[:i], ref[i+1:], nil
}

func splitMount(p string) (mount, rel string) {
	if p == "" {
		return "", ""
	}
	parts := strings.SplitN(p, "/", 2)
	mount = parts[0]
	if len(parts) == 2 {
		rel = parts[1]
	}
	return
}
