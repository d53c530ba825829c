// internal/config/model.go
//
// Typed configuration model for leadgate.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from four overlay layers:
//
//   • optional `.env`                            – dotenv values,
//   • optional `conf/global.yaml`                – static file,
//   • `LEADGATE_`-prefixed environment overrides – e.g. LEADGATE_HTTP__LISTEN_ADDR,
//   • plain deployment names                     – TELEGRAM_BOT_TOKEN,
//                                                  TELEGRAM_CHAT_ID,
//                                                  FORM_ALLOWED_ORIGINS, APP_ENV.
//
// Any value whose string begins with `vault:` is resolved through the Vault
// client *before* unmarshalling, so the model never stores Vault URIs, only
// plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • Defaults live in Defaults(); Load unmarshals on top of them.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

// Environment names accepted in `env`.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Rate-limit backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
)

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// Log section
//

// Log controls the zap logger.  Dir is relative to Paths.Root unless
// absolute.
type Log struct {
	Dir   string `koanf:"dir"   validate:"required"`
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	Tee   bool   `koanf:"tee"`
}

//
// Leads section
//

// RateLimit is the per-IP policy for POST /api/leads.
type RateLimit struct {
	MaxRequests    int           `koanf:"max_requests"    validate:"min=1"`
	Window         time.Duration `koanf:"window"          validate:"gt=0"`
	Backend        string        `koanf:"backend"         validate:"oneof=memory redis mysql"`
	MemoryCapacity int           `koanf:"memory_capacity" validate:"min=0"`
}

// Leads configures the submission endpoint.  AllowedOrigins is a
// comma-separated list, matching the FORM_ALLOWED_ORIGINS variable.
type Leads struct {
	AllowedOrigins string    `koanf:"allowed_origins"`
	MaxBodyBytes   int64     `koanf:"max_body_bytes" validate:"min=1"`
	RateLimit      RateLimit `koanf:"rate_limit"`
}

//
// Telegram section
//

// Telegram holds the delivery credentials.  Both may be empty; the endpoint
// then answers 503 until they are set.
type Telegram struct {
	APIBase  string `koanf:"api_base"  validate:"required,url"`
	BotToken string `koanf:"bot_token"`
	ChatID   string `koanf:"chat_id"`
}

//
// Shared stores
//

// Redis is used when leads.rate_limit.backend is "redis".
type Redis struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"     validate:"min=0"`
	Prefix   string `koanf:"prefix"`
}

// Database is used when leads.rate_limit.backend is "mysql".  The DSN must
// carry parseTime=true.
type Database struct {
	RateLimitDSN string `koanf:"ratelimit_dsn"`
}

// Geo points at an optional GeoLite2 database for country tags in logs.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // LEADGATE_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	Env      string   `koanf:"env" validate:"oneof=production development"`
	HTTP     HTTP     `koanf:"http"`
	Log      Log      `koanf:"log"`
	Leads    Leads    `koanf:"leads"`
	Telegram Telegram `koanf:"telegram"`
	Redis    Redis    `koanf:"redis"`
	Database Database `koanf:"database"`
	Geo      Geo      `koanf:"geo"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}

// Production reports whether the service runs with production hardening
// (Secure cookies, CSP).
func (c *Config) Production() bool { return c.Env == EnvProduction }

// Defaults returns the values used for every key the layers leave unset.
func Defaults() Config {
	return Config{
		Env: EnvDevelopment,
		HTTP: HTTP{
			ListenAddr: ":8080",
		},
		Log: Log{
			Dir:   "logs",
			Level: "info",
		},
		Leads: Leads{
			MaxBodyBytes: 10000,
			RateLimit: RateLimit{
				MaxRequests: 5,
				Window:      15 * time.Minute,
				Backend:     BackendMemory,
			},
		},
		Telegram: Telegram{
			APIBase: "https://api.telegram.org",
		},
		Redis: Redis{
			Prefix: "leadgate:rl:",
		},
	}
}
