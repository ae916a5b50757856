package auth

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// LoginLimiter rate-limits credential checks per remote address to slow
// down password guessing.
type LoginLimiter struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	rps   float64
	burst int
}

func NewLoginLimiter(rps float64, burst int) *LoginLimiter {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 5
	}
	return &LoginLimiter{m: make(map[string]*rate.Limiter), rps: rps, burst: burst}
}

func (p *LoginLimiter) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.m[key]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(p.rps), p.burst)
	p.m[key] = l
	return l
}

// Allow reports whether another attempt from key is permitted now.
func (p *LoginLimiter) Allow(key string) bool {
	return p.get(key).Allow()
}

// ClientIP extracts the remote IP for rate-limit keying.
func ClientIP(r *http.Request) string {
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return h
	}
	return r.RemoteAddr
}
