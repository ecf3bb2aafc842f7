package jsonrpc

import (
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig is the cross-origin policy shared by the REST and JSON-RPC servers.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// CORSFromOrigins builds the default policy for a list of allowed origins.
func CORSFromOrigins(origins []string) CORSConfig {
	return CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}
}

// WithEnv overrides fields of c from the environment:
//
//	CORS_ALLOWED_ORIGINS, CORS_ALLOWED_METHODS, CORS_ALLOWED_HEADERS (comma-separated)
//	CORS_MAX_AGE (seconds)
func (c CORSConfig) WithEnv() CORSConfig {
	if v := splitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS")); len(v) > 0 {
		c.AllowedOrigins = v
	}
	if v := splitAndTrim(os.Getenv("CORS_ALLOWED_METHODS")); len(v) > 0 {
		c.AllowedMethods = v
	}
	if v := splitAndTrim(os.Getenv("CORS_ALLOWED_HEADERS")); len(v) > 0 {
		c.AllowedHeaders = v
	}
	if maxAge, err := strconv.Atoi(os.Getenv("CORS_MAX_AGE")); err == nil && maxAge > 0 {
		c.MaxAge = maxAge
	}
	return c
}

// AllowsOrigin reports whether origin may read responses.
func (c CORSConfig) AllowsOrigin(origin string) bool {
	return slices.Contains(c.AllowedOrigins, "*") || (origin != "" && slices.Contains(c.AllowedOrigins, origin))
}

// Apply sets the CORS response headers allowed for r.
func (c CORSConfig) Apply(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	origin := r.Header.Get("Origin")
	switch {
	case slices.Contains(c.AllowedOrigins, "*"):
		h.Set("Access-Control-Allow-Origin", "*")
	case c.AllowsOrigin(origin):
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
	default:
		return
	}
	if len(c.AllowedMethods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(c.AllowedMethods, ", "))
	}
	if len(c.AllowedHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(c.AllowedHeaders, ", "))
	}
	if c.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(c.MaxAge))
	}
}

func splitAndTrim(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
