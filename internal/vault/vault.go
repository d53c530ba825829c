// internal/vault/vault.go
//
// Vault client wrapper for leadgate.
//
// Context
// -------
//   - Wraps the HashiCorp Vault Go SDK for the one job the service needs:
//     reading the Telegram credentials (and any other `vault:` config
//     reference) from a KV-v2 mount at startup.
//   - Concurrent reads of the same path#key are collapsed with singleflight
//     and cached for a caller-chosen TTL.
//   - RenewLoop keeps the token alive and is run under the process errgroup.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(log)                    // during boot.
//  2. tok, err := cli.GetKV(ctx, path, key, ttl)    // config.Load calls this.
//  3. g.Go(func() error { return cli.RenewLoop(ctx) })
//
// Environment expectations
// ------------------------
// • VAULT_ADDR   – scheme and host of the Vault server.
// • VAULT_TOKEN  – initial token (falls back to ~/.vault-token).
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
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

//
// SECTION 1.  Public façade
//

// KV is the slice of the SDK GetKV needs.  Tests swap it for a fake.
type KV interface {
	Get(ctx context.Context, mount, path string) (map[string]any, error)
}

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	api *vault.Client
	kv  KV
	log *zap.SugaredLogger

	sfg     singleflight.Group
	cacheMu sync.RWMutex
	cache   map[string]cached // canonical path#key → value + expiry.
	now     func() time.Time
}

type cached struct {
	val string
	exp time.Time
}

// sdkKV adapts the SDK's KVv2 helper to KV.
type sdkKV struct{ api *vault.Client }

func (s sdkKV) Get(ctx context.Context, mount, path string) (map[string]any, error) {
	sec, err := s.api.KVv2(mount).Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return sec.Data, nil
}

// Configured reports whether VAULT_ADDR is set.  Without it the service
// runs from plain config only.
func Configured() bool { return os.Getenv("VAULT_ADDR") != "" }

// New constructs a Vault client from the standard VAULT_* environment.
func New(log *zap.SugaredLogger) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	c := newClient(sdkKV{api: apiCli}, log)
	c.api = apiCli
	return c, nil
}

func newClient(kv KV, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		kv:    kv,
		log:   log,
		cache: make(map[string]cached),
		now:   time.Now,
	}
}

// GetKV fetches a single string key from a KV-v2 secret.  If ttl > 0 the
// result is cached for that duration.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non-empty")
	}
	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.cacheMu.RLock()
		cv, ok := c.cache[canonical]
		c.cacheMu.RUnlock()
		if ok && c.now().Before(cv.exp) {
			return cv.val, nil
		}
	}

	v, err, _ := c.sfg.Do(canonical, func() (any, error) {
		mount, rel := splitMount(secretPath)
		data, err := c.kv.Get(ctx, mount, rel)
		if err != nil {
			return "", fmt.Errorf("vault get %s: %w", secretPath, err)
		}
		raw, ok := data[key]
		if !ok {
			return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
		}
		sval, ok := raw.(string)
		if !ok {
			return "", fmt.Errorf("value at %s#%s is not a string", secretPath, key)
		}

		if ttl > 0 {
			c.cacheMu.Lock()
			c.cache[canonical] = cached{val: sval, exp: c.now().Add(ttl)}
			c.cacheMu.Unlock()
		}
		return sval, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

//
// SECTION 2.  Background token renewal
//

// RenewLoop keeps the token renewed until ctx is cancelled.  It always
// returns nil so a Vault outage never tears the server down.
func (c *Client) RenewLoop(ctx context.Context) error {
	if c.api == nil {
		return nil
	}
	for ctx.Err() == nil {
		sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			c.log.Warnw("vault token renew-self failed", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			c.log.Infow("vault token is not renewable, sleeping", "for", time.Hour)
			backoff(ctx, time.Hour)
			continue
		}

		watcher, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
			Secret: sec,
		})
		if err != nil {
			c.log.Warnw("vault watcher init failed", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}
		c.watch(ctx, watcher)
		backoff(ctx, 15*time.Second)
	}
	return nil
}

func (c *Client) watch(ctx context.Context, w *vault.LifetimeWatcher) {
	go w.Start()
	defer w.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.DoneCh():
			if err != nil {
				c.log.Warnw("vault token renewal stopped", "err", err)
			}
			return
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				c.log.Debugw("vault token renewed", "ttl_s", ev.Secret.Auth.LeaseDuration)
			}
		}
	}
}

//
// SECTION 3.  Helpers
//

func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(p, "/")
	return mount, rel
}

func backoff(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
