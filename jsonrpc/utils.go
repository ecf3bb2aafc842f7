package jsonrpc

import (
	"net"
	"net/http"
	"strings"

	"github.com/mezonai/starledger/logx"
)

// JSON-RPC Method name constants
const (
	// Block methods
	MethodBlockGet        = "block.get"
	MethodBlockGetByHash  = "block.getbyhash"
	MethodBlockGetByOwner = "block.getbyowner"
	MethodBlockAdd        = "block.add"
	MethodBlockValidate   = "block.validate"

	// Validation request methods
	MethodValidationRequest         = "validation.request"
	MethodValidationSubmitSignature = "validation.submitsignature"

	// Chain methods
	MethodChainHeight   = "chain.height"
	MethodChainValidate = "chain.validate"

	// Event journal methods
	MethodEventsRecent = "events.recent"
)

// ClientIP returns the first X-Forwarded-For address, falling back to the peer address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		logx.Debug("SECURITY", "X-Forwarded-For:", xff)
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && net.ParseIP(host) != nil {
		return host
	}
	return "unknown"
}
