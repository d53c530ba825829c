//
//  internal/requestinfo/requestinfo.go
//
//  Lightweight types and helpers that collect per-request metadata
//  (request id, client IP and its hash, user-agent fingerprint, country,
//  and timestamp).  The raw IP stays in memory only.  Everything that is
//  logged or used as a rate-limit key goes through HashIP first.
//
//  Dependencies
//  • github.com/avct/uasurfer            (UA parsing)
//  • github.com/oschwald/geoip2-golang   (MaxMind lookup, optional)
//

package requestinfo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	surfer "github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

// UnknownIP is used when no client address header is present.
const UnknownIP = "unknown"

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// UA holds the user-agent attributes worth logging next to a lead.
type UA struct {
	Browser string // "Chrome", "Firefox", …
	OS      string // "Windows", "iOS", …
	Device  string // "Desktop", "Mobile", "Tablet", "Other"
	IsBot   bool   // crawler signature matched
}

// Info is attached to the request context by Enrich.
type Info struct {
	RequestID string
	IP        string // never log this; use IPHash
	IPHash    string
	UA        UA
	Country   string // ISO code, empty without a GeoLite2 DB
	Timestamp time.Time
}

//
//  -----------------------------
//  Client IP and hashing
//  -----------------------------
//

// ClientIP returns the first X-Forwarded-For entry, else X-Real-Ip, else
// UnknownIP.  The proxy in front of the service is trusted to set these.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
		return xrip
	}
	return UnknownIP
}

// HashIP reduces ip to the first 16 hex chars of its SHA-256 digest.
func HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])[:16]
}

//
//  -----------------------------
//  Context helpers
//  -----------------------------
//

type ctxKey struct{} // unexported, collision-proof

// WithInfo returns a copy of ctx carrying info.
func WithInfo(ctx context.Context, info *Info) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

// FromContext returns the pointer previously stored by Enrich, or nil.
func FromContext(ctx context.Context) *Info {
	v, _ := ctx.Value(ctxKey{}).(*Info)
	return v
}

//
//  -----------------------------
//  User-agent parsing
//  -----------------------------
//

// ParseUA converts a raw header into UA.
func ParseUA(raw string) UA {
	u := surfer.Parse(raw)

	info := UA{
		Browser: strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		OS:      strings.TrimPrefix(u.OS.Name.String(), "OS"),
		IsBot:   u.IsBot(),
	}

	switch u.DeviceType {
	case surfer.DeviceComputer:
		info.Device = "Desktop"
	case surfer.DeviceTablet:
		info.Device = "Tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		info.Device = "Mobile"
	default:
		info.Device = "Other"
	}
	return info
}

//
//  -----------------------------
//  Geo lookup (optional)
//  -----------------------------
//

var (
	geoMu     sync.RWMutex
	geoReader *geoip2.Reader
)

// InitGeo opens a GeoLite2 Country (or City) database.  Without it, Country
// stays empty.
func InitGeo(dbPath string) error {
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open GeoLite2 DB %s: %w", dbPath, err)
	}
	geoMu.Lock()
	geoReader = r
	geoMu.Unlock()
	return nil
}

// CloseGeo releases the reader opened by InitGeo.
func CloseGeo() {
	geoMu.Lock()
	defer geoMu.Unlock()
	if geoReader != nil {
		_ = geoReader.Close()
		geoReader = nil
	}
}

// lookupCountry returns a best-effort ISO country code.
func lookupCountry(ip string) string {
	geoMu.RLock()
	defer geoMu.RUnlock()
	if geoReader == nil {
		return ""
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	rec, err := geoReader.Country(parsed)
	if err != nil {
		return ""
	}
	return rec.Country.IsoCode
}
