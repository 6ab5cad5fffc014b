package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	applog "bilancio/internal/log"
	"bilancio/internal/metrics"
)

// UserHeader carries the user every /api/v1 request is scoped to.
const UserHeader = "X-User-ID"

type ctxKey int

const userKey ctxKey = iota

// withUser resolves the request's user from UserHeader or the default.
func (s *Server) withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := sanitizeInput(r.Header.Get(UserHeader))
		if userID == "" {
			userID = s.deps.DefaultUserID
		}
		if userID == "" || len(userID) > 128 {
			BadRequestError("missing or invalid " + UserHeader + " header").Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFrom(ctx context.Context) string {
	id, _ := ctx.Value(userKey).(string)
	return id
}

// observe records request metrics and writes the access log line. Routes are
// labeled by pattern so IDs do not explode metric cardinality.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = strings.TrimSuffix(p, "/*")
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogHTTPEnd(r.Context(), r, route, status, elapsed.Milliseconds(), s.detector.ClientIP(r))
	})
}
