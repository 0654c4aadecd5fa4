package api

import (
	"container/list"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultLimiterClients caps how many client buckets an IPLimiter keeps.
// The least recently seen client is evicted once the cap is reached.
const DefaultLimiterClients = 4096

type limiterEntry struct {
	ip      string
	limiter *rate.Limiter
}

// IPLimiter is a token bucket per client IP, bounded to a fixed number of
// clients.
type IPLimiter struct {
	limit      rate.Limit
	burst      int
	maxClients int

	mu      sync.Mutex
	clients map[string]*list.Element
	order   *list.List // front is most recently seen
	now     func() time.Time
}

// NewIPLimiter returns a limiter allowing perSecond requests per client with
// the given burst. It returns nil when perSecond is not positive.
func NewIPLimiter(perSecond float64, burst int) *IPLimiter {
	if perSecond <= 0 {
		return nil
	}
	return &IPLimiter{
		limit:      rate.Limit(perSecond),
		burst:      burst,
		maxClients: DefaultLimiterClients,
		clients:    make(map[string]*list.Element),
		order:      list.New(),
		now:        time.Now,
	}
}

// Allow reports whether a request from ip may proceed now.
func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	el, ok := l.clients[ip]
	if ok {
		l.order.MoveToFront(el)
	} else {
		if l.order.Len() >= l.maxClients {
			oldest := l.order.Back()
			l.order.Remove(oldest)
			delete(l.clients, oldest.Value.(*limiterEntry).ip)
		}
		el = l.order.PushFront(&limiterEntry{ip: ip, limiter: rate.NewLimiter(l.limit, l.burst)})
		l.clients[ip] = el
	}
	return el.Value.(*limiterEntry).limiter.AllowN(l.now(), 1)
}

// Len returns the number of tracked clients.
func (l *IPLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}

// Middleware rejects requests over the limit with 429.
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the host part of RemoteAddr. Forwarding headers only reach
// it when the router installs middleware.RealIP (Server.TrustProxy).
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}
	return host
}
