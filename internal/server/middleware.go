package server

import (
	"container/list"
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SecurityHeadersMiddleware adds security headers to all responses.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			// Widgets size themselves with inline styles. connect-src 'self'
			// covers the same-origin WebSocket.
			w.Header().Set("Content-Security-Policy",
				"default-src 'self'; "+
					"script-src 'self'; "+
					"style-src 'self' 'unsafe-inline'; "+
					"img-src 'self' data:; "+
					"connect-src 'self'; "+
					"frame-ancestors 'none'")

			next.ServeHTTP(w, r)
		})
	}
}

// evictionLogInterval is the minimum time between eviction log messages.
const evictionLogInterval = 30 * time.Second

// staleAfter is how long an idle IP keeps its limiter.
const staleAfter = 10 * time.Minute

// ipLimiter tracks a per-IP token bucket and its position in the LRU list.
type ipLimiter struct {
	ip       string
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiters is an LRU of token buckets keyed by client IP.
type ipLimiters struct {
	rps    rate.Limit
	burst  int
	maxIPs int

	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List // front = most recent, back = oldest

	// Eviction logging state
	lastEvictLog time.Time
	evictCount   int
}

func newIPLimiters(rps float64, burst, maxIPs int) *ipLimiters {
	if maxIPs <= 0 {
		maxIPs = 10000
	}
	return &ipLimiters{
		rps:    rate.Limit(rps),
		burst:  burst,
		maxIPs: maxIPs,
		items:  make(map[string]*list.Element),
		order:  list.New(),
	}
}

// allow takes a token from ip's bucket, creating the bucket (and evicting
// the least recently seen IP when full) on first sight.
func (l *ipLimiters) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, ok := l.items[ip]; ok {
		l.order.MoveToFront(elem)
		lim := elem.Value.(*ipLimiter)
		lim.lastSeen = now
		return lim.limiter.AllowN(now, 1)
	}

	if l.order.Len() >= l.maxIPs {
		l.evictOldest(now)
	}
	lim := &ipLimiter{
		ip:       ip,
		limiter:  rate.NewLimiter(l.rps, l.burst),
		lastSeen: now,
	}
	l.items[ip] = l.order.PushFront(lim)
	return lim.limiter.AllowN(now, 1)
}

func (l *ipLimiters) evictOldest(now time.Time) {
	back := l.order.Back()
	if back == nil {
		return
	}
	l.order.Remove(back)
	delete(l.items, back.Value.(*ipLimiter).ip)

	l.evictCount++
	if now.Sub(l.lastEvictLog) >= evictionLogInterval {
		log.Printf("[RateLimit] Evicted %d least-recent IP(s) (at capacity: %d IPs)", l.evictCount, l.maxIPs)
		l.lastEvictLog = now
		l.evictCount = 0
	}
}

// sweep drops limiters idle for longer than staleAfter. LRU order tracks
// access recency, not lastSeen, so every entry is checked.
func (l *ipLimiters) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for e := l.order.Back(); e != nil; {
		prev := e.Prev()
		if lim := e.Value.(*ipLimiter); now.Sub(lim.lastSeen) > staleAfter {
			l.order.Remove(e)
			delete(l.items, lim.ip)
		}
		e = prev
	}
}

func (l *ipLimiters) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}

// RateLimitMiddleware limits requests using a token bucket algorithm with per-IP tracking.
// rps is the rate limit in requests per second, burst is the maximum burst size,
// and maxIPs is the maximum number of unique IPs to track (LRU eviction when full).
//
// The cleanup goroutine starts immediately and runs until ctx is cancelled.
// The returned channel is closed when it exits.
func RateLimitMiddleware(ctx context.Context, rps float64, burst int, maxIPs int) (func(http.Handler) http.Handler, <-chan struct{}) {
	limiters := newIPLimiters(rps, burst, maxIPs)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				limiters.sweep(now)
			case <-ctx.Done():
				return
			}
		}
	}()

	middleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.allow(getClientIP(r), time.Now()) {
				w.Header().Set("Retry-After", "1")
				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	return middleware, done
}

// getClientIP extracts the client IP from the request.
// It only trusts X-Forwarded-For / X-Real-IP when the immediate peer is a
// loopback or private address (i.e., behind a reverse proxy).
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	peerIP := net.ParseIP(host)
	trustedProxy := peerIP != nil && (peerIP.IsLoopback() || peerIP.IsPrivate())

	if trustedProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	if peerIP != nil {
		return peerIP.String()
	}
	return host
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
