// Package httpx lets one handler serve under both net/http and fasthttp,
// so probe endpoints stay identical between the main server and the
// lightweight sidecar.
package httpx

import (
	"context"
	"io"
	"net/http"
)

// Request is the transport-neutral request handed to handlers.
type Request struct {
	Ctx        context.Context
	Method     string
	Path       string
	Header     http.Header
	Body       io.ReadCloser
	RemoteAddr string
}

// ResponseWriter is the subset of http.ResponseWriter adapters provide.
type ResponseWriter interface {
	Header() http.Header
	Write([]byte) (int, error)
	WriteHeader(status int)
}

// HandlerFunc is the handler signature shared across adapters.
type HandlerFunc func(w ResponseWriter, r *Request)
