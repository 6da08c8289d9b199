package historytest

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nemanja-m/mrhistory/internal/shared/logging"
)

const authCookie = "hadoop.auth"

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.written += n
	return n, err
}

// LoggingMiddleware logs HTTP requests with method, path, status, duration, and size
func LoggingMiddleware(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w}
			next.ServeHTTP(wrapped, r)

			logger.Debug("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"bytes", wrapped.written,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// RecoveryMiddleware recovers from panics and logs them
func RecoveryMiddleware(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("Panic recovered",
						"method", r.Method,
						"path", r.URL.Path,
						"error", err,
					)
					w.Header().Set("Content-Type", "text/plain; charset=utf-8")
					w.Header().Set("X-Content-Type-Options", "nosniff")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte("Internal Server Error\n"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// ChainMiddleware chains multiple middleware functions together
func ChainMiddleware(handler http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// PseudoAuth mimics Hadoop's simple authentication filter: a request naming
// a user with user.name gets a signed hadoop.auth cookie, later requests
// present the cookie.
type PseudoAuth struct {
	mu     sync.Mutex
	tokens map[string]string // token -> user
	issued int
}

func NewPseudoAuth() *PseudoAuth {
	return &PseudoAuth{tokens: make(map[string]string)}
}

// Issued returns how many tokens were handed out.
func (p *PseudoAuth) Issued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.issued
}

// RevokeAll invalidates every outstanding token.
func (p *PseudoAuth) RevokeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.tokens)
}

func (p *PseudoAuth) valid(token string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.tokens[token]
	return ok
}

func (p *PseudoAuth) issue(user string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issued++
	token := fmt.Sprintf("u=%s&t=simple&s=%d", user, p.issued)
	p.tokens[token] = user
	return token
}

func (p *PseudoAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(authCookie); err == nil && p.valid(c.Value) {
			next.ServeHTTP(w, r)
			return
		}

		user := r.URL.Query().Get("user.name")
		if user == "" {
			respondRemoteException(w, http.StatusUnauthorized, "AuthenticationException", "Anonymous requests are disallowed")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     authCookie,
			Value:    p.issue(user),
			Path:     "/",
			HttpOnly: true,
		})
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
