package httpx

import "net/http"

// NetHTTPAdapter mounts a HandlerFunc on a standard net/http server.
func NetHTTPAdapter(h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := &Request{
			Ctx:        r.Context(),
			Method:     r.Method,
			Path:       r.URL.Path,
			Header:     r.Header.Clone(),
			Body:       r.Body,
			RemoteAddr: r.RemoteAddr,
		}
		h(&netHTTPResponseWriter{w: w}, req)
	})
}

type netHTTPResponseWriter struct {
	w       http.ResponseWriter
	started bool
}

func (r *netHTTPResponseWriter) Header() http.Header { return r.w.Header() }

func (r *netHTTPResponseWriter) WriteHeader(status int) {
	r.started = true
	r.w.WriteHeader(status)
}

func (r *netHTTPResponseWriter) Write(b []byte) (int, error) {
	if !r.started {
		r.WriteHeader(http.StatusOK)
	}
	return r.w.Write(b)
}
