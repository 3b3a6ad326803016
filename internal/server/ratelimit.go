package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var (
	limiterVisitors = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "w3studio_rate_limiter_visitors",
		Help: "Number of clients tracked by the proxy rate limiter",
	})
	limiterRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "w3studio_rate_limiter_rejected_total",
		Help: "Proxy requests rejected with 429",
	})
)

// visitorTTL is how long an idle client keeps its bucket.
const visitorTTL = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per client IP.
type rateLimiter struct {
	perSecond  float64
	burst      int
	proxyCount int

	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

func newRateLimiter(perSecond float64, burst, proxyCount int) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{
		perSecond:  perSecond,
		burst:      burst,
		proxyCount: proxyCount,
		visitors:   map[string]*visitor{},
		now:        time.Now,
	}
}

// allow reports whether r may proceed. A nil limiter allows everything.
func (l *rateLimiter) allow(r *http.Request) bool {
	if l == nil || l.perSecond <= 0 {
		return true
	}
	ip := l.clientIP(r)

	l.mu.Lock()
	defer l.mu.Unlock()
	v := l.visitors[ip]
	if v == nil {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(l.perSecond), l.burst)}
		l.visitors[ip] = v
		limiterVisitors.Set(float64(len(l.visitors)))
	}
	now := l.now()
	v.lastSeen = now
	if !v.limiter.AllowN(now, 1) {
		limiterRejected.Inc()
		return false
	}
	return true
}

// clientIP takes the address proxyCount hops back in X-Forwarded-For when
// the server runs behind reverse proxies.
func (l *rateLimiter) clientIP(r *http.Request) string {
	if l.proxyCount > 0 {
		forwarded := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
		if idx := len(forwarded) - l.proxyCount; idx >= 0 {
			if ip := strings.TrimSpace(forwarded[idx]); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// cleanup drops idle visitors.
func (l *rateLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-visitorTTL)
	for ip, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, ip)
		}
	}
	limiterVisitors.Set(float64(len(l.visitors)))
}
