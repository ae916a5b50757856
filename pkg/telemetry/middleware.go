package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"esupchat/pkg/logger"
)

// Requests slower than this get a log line even at info level.
var slowThreshold = 500 * time.Millisecond

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Middleware records request duration and status for every handler.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		srw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(srw, r)

		dur := time.Since(start)
		route := routeLabel(r)
		RequestsTotal.WithLabelValues(route, strconv.Itoa(srw.status)).Inc()
		RequestDuration.WithLabelValues(route).Observe(dur.Seconds())

		if dur >= slowThreshold {
			logger.Warn("slow_request", "method", r.Method, "route", route, "status", srw.status, "duration_ms", dur.Milliseconds())
		}
	})
}

// routeLabel uses the mux route template so path parameters don't blow up
// metric cardinality.
func routeLabel(r *http.Request) string {
	if cur := mux.CurrentRoute(r); cur != nil {
		if tpl, err := cur.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}
