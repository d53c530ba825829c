// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from these layers (highest
precedence last):

  1. Optional `.env` files, `<root>/conf/.env` then `<root>/.env`.
  2. Optional `conf/global.yaml`.
  3. Environment variables prefixed `LEADGATE_`, where `__` maps to “.”
     (e.g., `LEADGATE_TELEGRAM__BOT_TOKEN → telegram.bot_token`).
  4. The plain names the site was always deployed with:
     TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID, FORM_ALLOWED_ORIGINS, APP_ENV.

String values of the form `vault:<mount/path>#<key>` are then swapped for
the secret fetched through a SecretResolver.  The merged tree is
unmarshalled on top of Defaults(), validated, enriched with the runtime
root path, and cached in an `atomic.Pointer` for lock-free reads.

Instrumentation
---------------
  • DEBUG spans – root discovery, YAML read, env overlay, vault refs.
  • ERROR spans – YAML parse, env overlay, vault, unmarshal, validation.
  • INFO  span  – final “config loaded” with key highlights, no secrets.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`;
    this lets `go run ./cmd/web` work from any sub-directory.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	envPrefix   = "LEADGATE_"
	vaultPrefix = "vault:"
	secretTTL   = 10 * time.Minute
)

// ErrNoResolver is returned when the tree holds a vault: reference but Load
// was given no SecretResolver.
var ErrNoResolver = errors.New("config: vault reference found but no vault client configured")

// SecretResolver fetches one key of a KV-v2 secret.  *vault.Client
// satisfies it.
type SecretResolver interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

// legacyEnv maps the deployment's historical variable names to config keys.
var legacyEnv = map[string]string{
	"TELEGRAM_BOT_TOKEN":   "telegram.bot_token",
	"TELEGRAM_CHAT_ID":     "telegram.chat_id",
	"FORM_ALLOWED_ORIGINS": "leads.allowed_origins",
	"APP_ENV":              "env",
}

var current atomic.Pointer[Config]

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves LEADGATE_ROOT or climbs directories until
// conf/global.yaml is found.  Falls back to the working directory.
func rootDir() string {
	if r := os.Getenv(envPrefix + "ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves vault references through
// vr (which may be nil), validates, and caches Config.
func Load(ctx context.Context, vr SecretResolver) (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env files (optional, never override the real environment)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))
	_ = godotenv.Load(filepath.Join(root, ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
			zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
			return nil, fmt.Errorf("load %s: %w", yamlPath, err)
		}
		zap.S().Debugw("config yaml loaded", "file", yamlPath)
	}

	// Env overrides: LEADGATE_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	// Plain deployment names.
	if err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if path, ok := legacyEnv[key]; ok && value != "" {
			return path, value
		}
		return "", nil
	}), nil); err != nil {
		zap.S().Errorw("config legacy env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(ctx, k, vr); err != nil {
		zap.S().Errorw("config vault resolution failed", "err", err)
		return nil, err
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"env", cfg.Env,
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"ratelimit_backend", cfg.Leads.RateLimit.Backend,
		"telegram_configured", cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "",
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── vault refs ──────────────────────────────────*/

// resolveSecrets replaces every "vault:<path>#<key>" string in k.
func resolveSecrets(ctx context.Context, k *koanf.Koanf, vr SecretResolver) error {
	for key, val := range k.All() {
		s, ok := val.(string)
		if !ok || !strings.HasPrefix(s, vaultPrefix) {
			continue
		}
		if vr == nil {
			return fmt.Errorf("%s: %w", key, ErrNoResolver)
		}

		path, field, err := parseRef(s)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		secret, err := vr.GetKV(ctx, path, field, secretTTL)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if err := k.Set(key, secret); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		zap.S().Debugw("config vault ref resolved", "key", key, "path", path)
	}
	return nil
}

// parseRef splits "vault:secret/leadgate#bot_token".
func parseRef(ref string) (path, key string, err error) {
	path, key, ok := strings.Cut(strings.TrimPrefix(ref, vaultPrefix), "#")
	if !ok || path == "" || key == "" {
		return "", "", fmt.Errorf("malformed vault reference %q", ref)
	}
	return path, key, nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config { return current.Load() }
