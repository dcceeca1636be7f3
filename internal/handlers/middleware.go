package handlers

import (
	"log/slog"
	"net/http"
	"slices"
)

const fallbackPage = `<!DOCTYPE html>
<html>
<head><title>floatchat</title></head>
<body>
<p>Something went wrong rendering this page. Please reload and try again.</p>
</body>
</html>`

// Recover wraps next with a crash guard: a panicking handler is logged and
// answered with a static fallback notice instead of tearing down the
// connection. Fetch-path errors never reach this; they are converted to
// messages before they can propagate.
func Recover(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("Handler panicked",
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec))
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(fallbackPage))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// CORS answers preflight requests and sets the allow-origin headers for the
// configured embedding origins. An empty list disables the headers entirely.
func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && slices.Contains(allowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			// Preflights are only answered for origins we vouch for.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
