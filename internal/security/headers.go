package security

import (
	"context"
	"net/http"
	"strings"

	"github.com/unrolled/secure"
)

// permissionsPolicy disables browser features the page never uses.
var permissionsPolicy = strings.Join([]string{
	"accelerometer=()",
	"camera=()",
	"geolocation=()",
	"gyroscope=()",
	"magnetometer=()",
	"microphone=()",
	"payment=()",
	"usb=()",
}, ", ")

// Headers returns middleware that sets the CSP (with a fresh nonce per
// response) and the other browser hardening headers. policy is normally the
// output of BuildPolicy. It is only needed for page and asset responses, not
// for the JSON API.
func Headers(policy string) func(http.Handler) http.Handler {
	return secure.New(secure.Options{
		ContentSecurityPolicy: policy,
		ContentTypeNosniff:    true,
		FrameDeny:             true,
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     permissionsPolicy,
	}).Handler
}

// Nonce returns the CSP nonce generated for the current response, or "" when
// the request did not pass through Headers.
func Nonce(ctx context.Context) string {
	return secure.CSPNonce(ctx)
}
