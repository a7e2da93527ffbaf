package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rohits-web03/sharegate/internal/utils"
)

const limiterIdleTimeout = 3 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client IP. Forwarding headers only
// pick the client when the connection comes from one of proxies.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	proxies utils.TrustedProxies
	now     func() time.Time
}

func NewRateLimiter(perSecond float64, burst int, proxies utils.TrustedProxies) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		proxies: proxies,
		now:     time.Now,
	}
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, exists := rl.clients[ip]
	if !exists {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[ip] = cl
	}
	cl.lastSeen = rl.now()
	return cl.limiter
}

// Cleanup forgets clients idle for longer than limiterIdleTimeout and
// returns how many were dropped.
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	dropped := 0
	for ip, c := range rl.clients {
		if rl.now().Sub(c.lastSeen) > limiterIdleTimeout {
			delete(rl.clients, ip)
			dropped++
		}
	}
	return dropped
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.getLimiter(rl.proxies.PeerIP(r)).Allow() {
			utils.Fail(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
