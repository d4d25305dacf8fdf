package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
)

// Config controls user API behavior and cookie transport defaults.
type Config struct {
	AccessCookieName  string
	RefreshCookieName string
	CookiePath        string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite

	MaxBodyBytes int64
}

// LoadConfigFromEnv loads user API config from environment variables
// with safe defaults. Cookie names match what the web client reads.
func LoadConfigFromEnv() Config {
	cfg := Config{
		AccessCookieName:  envString("VIDTUBE_ACCESS_COOKIE_NAME", "accessToken"),
		RefreshCookieName: envString("VIDTUBE_REFRESH_COOKIE_NAME", "refreshToken"),
		CookiePath:        envString("VIDTUBE_COOKIE_PATH", "/"),
		CookieDomain:      envString("VIDTUBE_COOKIE_DOMAIN", ""),
		CookieSecure:      envBool("VIDTUBE_COOKIE_SECURE", true),
		CookieSameSite:    envSameSite("VIDTUBE_COOKIE_SAMESITE", http.SameSiteLaxMode),
		MaxBodyBytes:      envInt64("VIDTUBE_MAX_BODY_BYTES", 16<<10), // 16 KiB
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 16 << 10
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}

	return cfg
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envSameSite(key string, def http.SameSite) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return def
	}
}
