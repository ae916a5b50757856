package httpx

import (
	"fmt"
	"net/http"
)

// HealthHandler answers liveness probes with a fixed JSON body. A readiness
// check callback is optional; when it returns false the handler answers 503.
func HealthHandler(version string, ready func() bool) HandlerFunc {
	return func(w ResponseWriter, r *Request) {
		w.Header().Set("Content-Type", "application/json")
		if ready != nil && !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"not ready"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		if version == "" {
			_, _ = w.Write([]byte(`{"status":"ok"}`))
			return
		}
		_, _ = fmt.Fprintf(w, `{"status":"ok","version":"%s"}`, version)
	}
}
