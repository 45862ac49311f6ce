package httpserver

import (
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/and161185/universal-api/internal/errs"
	"github.com/and161185/universal-api/internal/limiter"
	"github.com/and161185/universal-api/internal/logging"
	"github.com/and161185/universal-api/internal/metrics"
	"github.com/and161185/universal-api/internal/model"
)

const requestIDHeader = "X-Request-ID"

// requestContext binds a trace id and a request-scoped logger into the context.
func requestContext(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get(requestIDHeader)
			if traceID == "" || len(traceID) > 128 {
				traceID = uuid.Must(uuid.NewV4()).String()
			}
			w.Header().Set(requestIDHeader, traceID)

			log := base.With(
				zap.String("trace_id", traceID),
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method),
				zap.String("client_ip", clientIP(r)),
			)
			next.ServeHTTP(w, r.WithContext(logging.WithLogger(r.Context(), log)))
		})
	}
}

func serviceHeader(tag string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Service", tag)
			next.ServeHTTP(w, r)
		})
	}
}

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logging.FromContext(r.Context()).Error("panic",
					zap.Any("reason", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				writeError(w, r, fmt.Errorf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// accessLog logs metadata only, never bodies.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logging.FromContext(r.Context()).Info("http",
			zap.String("route", routePattern(r)),
			zap.Int("status", statusOf(ww)),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", r.RemoteAddr),
		)
	})
}

func instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}
			done := m.RequestStarted()
			defer done()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			m.ObserveRequest(r.Method, routePattern(r), statusOf(ww), time.Since(start))
		})
	}
}

// Authenticator turns a bearer token into a caller identity.
type Authenticator interface {
	Identify(token string) (model.Identity, error)
}

// authenticate resolves the caller and applies the failed-authentication lockout.
// Requests without a token are rejected but not counted.
func authenticate(auth Authenticator, lock limiter.Limiter, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logging.FromContext(ctx)
			client := limiter.HashIP(clientIP(r))

			ok, retry, err := lock.Allow(ctx, client)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if !ok {
				m.AuthFailure("locked_out")
				writeRateLimited(w, r, retry)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				m.AuthFailure("missing_token")
				log.Warn("auth: no bearer token")
				writeError(w, r, errs.ErrUnauthenticated)
				return
			}

			id, err := auth.Identify(token)
			if err != nil {
				m.AuthFailure("invalid_token")
				log.Warn("auth: token rejected")
				blocked, _, ferr := lock.Failure(ctx, client)
				if ferr != nil {
					log.Error("auth: record failure", zap.Error(ferr))
				}
				if blocked {
					log.Warn("auth: client locked out")
				}
				writeError(w, r, errs.ErrUnauthenticated)
				return
			}

			ctx = logging.With(WithIdentity(ctx, id), zap.String("user_id", id.Subject))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
		t := strings.TrimSpace(v[7:])
		if t != "" {
			return t, true
		}
	}
	return "", false
}

// callerLimits holds one token bucket per authenticated subject.
type callerLimits struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	byCaller map[string]*rate.Limiter
}

func newCallerLimits(rps float64, burst int) *callerLimits {
	return &callerLimits{limit: rate.Limit(rps), burst: burst, byCaller: make(map[string]*rate.Limiter)}
}

func (c *callerLimits) get(subject string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.byCaller[subject]
	if !ok {
		l = rate.NewLimiter(c.limit, c.burst)
		c.byCaller[subject] = l
	}
	return l
}

func rateLimit(c *callerLimits) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := IdentityFromCtx(r.Context())
			l := c.get(id.Subject)
			if !l.Allow() {
				writeRateLimited(w, r, time.Duration(float64(time.Second)/float64(c.limit)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}

func statusOf(ww middleware.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}
