package middleware

import (
	"net"
	"net/http"

	"github.com/cooperrunyan/cashflow"
)

// Guard admits requests whose credential header authorizes and stores the
// claims in the request context. Rejected requests get the engine's
// finalized failure response and never reach next.
func Guard(engine *cashflow.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			claims, resp := engine.Authorize(r)
			if resp != nil {
				if err := resp.Write(w); err != nil {
					engine.Logger().WarnContext(r.Context(), "write guard rejection",
						"outcome", resp.Outcome().String(),
						"path", r.URL.Path,
						"error", err,
					)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(cashflow.WithClaims(r.Context(), claims)))
		})
	}
}

// ClientIP records the peer address of each request for login throttling
// and audit records. Forwarded headers are not trusted.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		next.ServeHTTP(w, r.WithContext(cashflow.WithClientIP(r.Context(), ip)))
	})
}
