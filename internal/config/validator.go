// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree into a `Config` instance.  Any tag
// mismatch or validation error aborts startup, ensuring the binary never
// runs with partial, malformed, or missing configuration.
//
// Field rules live in struct tags (model.go).  Rules that span sections,
// such as "the redis backend needs redis.addr", are registered here as a
// struct-level validation.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.
//   • Section dividers use the simple comment style requested.

package config

import "github.com/go-playground/validator/v10"

//
// validator instance (package-level singleton)
//

var v = func() *validator.Validate {
	val := validator.New()
	val.RegisterStructValidation(backendRules, Config{})
	return val
}()

//
// cross-section rules
//

// backendRules requires the connection details of the selected limiter
// backend.
func backendRules(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)
	switch c.Leads.RateLimit.Backend {
	case BackendRedis:
		if c.Redis.Addr == "" {
			sl.ReportError(c.Redis.Addr, "Redis.Addr", "addr", "required_with_backend", BackendRedis)
		}
	case BackendMySQL:
		if c.Database.RateLimitDSN == "" {
			sl.ReportError(c.Database.RateLimitDSN, "Database.RateLimitDSN", "ratelimit_dsn", "required_with_backend", BackendMySQL)
		}
	}
}

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
