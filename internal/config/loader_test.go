// internal/config/loader_test.go
//
// Tests for the layered loader.  Each test points LEADGATE_ROOT at a temp
// directory with its own conf/global.yaml, so the developer's environment
// never leaks in beyond the variables t.Setenv controls.
//
// Run: go test ./internal/config -v

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "conf"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "conf", "global.yaml"), []byte(body), 0o644))
	t.Setenv("LEADGATE_ROOT", root)
	for k := range legacyEnv {
		t.Setenv(k, "")
	}
	return root
}

type fakeVault map[string]string

func (f fakeVault) GetKV(_ context.Context, path, key string, _ time.Duration) (string, error) {
	v, ok := f[path+"#"+key]
	if !ok {
		return "", errors.New("secret not found")
	}
	return v, nil
}

func TestLoad_Defaults(t *testing.T) {
	root := writeYAML(t, "")

	cfg, err := Load(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, root, cfg.Paths.Root)
	assert.Equal(t, ":8080", cfg.HTTP.ListenAddr)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.False(t, cfg.Production())
	assert.EqualValues(t, 10000, cfg.Leads.MaxBodyBytes)
	assert.Equal(t, 5, cfg.Leads.RateLimit.MaxRequests)
	assert.Equal(t, 15*time.Minute, cfg.Leads.RateLimit.Window)
	assert.Equal(t, BackendMemory, cfg.Leads.RateLimit.Backend)
	assert.Equal(t, "https://api.telegram.org", cfg.Telegram.APIBase)
	assert.Same(t, cfg, Get())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	writeYAML(t, `
env: production
http:
  listen_addr: "127.0.0.1:9000"
  force_https: true
leads:
  allowed_origins: "https://www.corprag.ru"
  rate_limit:
    max_requests: 3
    window: 10m
telegram:
  bot_token: from-yaml
  chat_id: "-100"
`)
	t.Setenv("LEADGATE_LEADS__RATE_LIMIT__MAX_REQUESTS", "7")
	t.Setenv("LEADGATE_TELEGRAM__BOT_TOKEN", "from-prefixed-env")

	cfg, err := Load(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, cfg.Production())
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.ListenAddr)
	assert.True(t, cfg.HTTP.ForceHTTPS)
	assert.Equal(t, 7, cfg.Leads.RateLimit.MaxRequests)
	assert.Equal(t, 10*time.Minute, cfg.Leads.RateLimit.Window)
	assert.Equal(t, "from-prefixed-env", cfg.Telegram.BotToken)
	assert.Equal(t, "-100", cfg.Telegram.ChatID)
}

func TestLoad_LegacyNamesWin(t *testing.T) {
	writeYAML(t, "telegram:\n  bot_token: from-yaml\n")
	t.Setenv("TELEGRAM_BOT_TOKEN", "legacy-token")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("FORM_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "legacy-token", cfg.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
	assert.Equal(t, "https://a.example, https://b.example", cfg.Leads.AllowedOrigins)
	assert.True(t, cfg.Production())
}

func TestLoad_VaultReferences(t *testing.T) {
	writeYAML(t, `
telegram:
  bot_token: "vault:secret/leadgate#bot_token"
  chat_id: "-100"
`)
	vault := fakeVault{"secret/leadgate#bot_token": "123:from-vault"}

	cfg, err := Load(context.Background(), vault)
	require.NoError(t, err)
	assert.Equal(t, "123:from-vault", cfg.Telegram.BotToken)
}

func TestLoad_VaultReferenceWithoutClient(t *testing.T) {
	writeYAML(t, "telegram:\n  bot_token: \"vault:secret/leadgate#bot_token\"\n")

	_, err := Load(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoResolver)
}

func TestLoad_VaultMalformedAndMissing(t *testing.T) {
	writeYAML(t, "telegram:\n  bot_token: \"vault:secret/leadgate\"\n")
	_, err := Load(context.Background(), fakeVault{})
	assert.ErrorContains(t, err, "malformed vault reference")

	writeYAML(t, "telegram:\n  bot_token: \"vault:secret/leadgate#nope\"\n")
	_, err = Load(context.Background(), fakeVault{})
	assert.ErrorContains(t, err, "secret not found")
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := map[string]string{
		"bad_env":       "env: staging\n",
		"bad_listen":    "http:\n  listen_addr: nonsense\n",
		"bad_backend":   "leads:\n  rate_limit:\n    backend: memcached\n",
		"zero_max":      "leads:\n  rate_limit:\n    max_requests: 0\n",
		"redis_no_addr": "leads:\n  rate_limit:\n    backend: redis\n",
		"mysql_no_dsn":  "leads:\n  rate_limit:\n    backend: mysql\n",
		"bad_log_level": "log:\n  level: loud\n",
		"bad_api_base":  "telegram:\n  api_base: not a url\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			writeYAML(t, body)
			_, err := Load(context.Background(), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoad_RedisBackendWithAddr(t *testing.T) {
	writeYAML(t, `
leads:
  rate_limit:
    backend: redis
redis:
  addr: "localhost:6379"
`)
	cfg, err := Load(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "leadgate:rl:", cfg.Redis.Prefix)
}

func TestParseRef(t *testing.T) {
	p, k, err := parseRef("vault:kv/app/leadgate#chat_id")
	require.NoError(t, err)
	assert.Equal(t, "kv/app/leadgate", p)
	assert.Equal(t, "chat_id", k)

	for _, bad := range []string{"vault:", "vault:#k", "vault:p#", "vault:p"} {
		_, _, err := parseRef(bad)
		assert.Error(t, err, bad)
	}
}
