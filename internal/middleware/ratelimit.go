package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit allows limit requests per client IP over each period per, as a
// token bucket with a burst of limit. Rejected requests get Retry-After and
// the body rejection writes. A non-positive limit disables the check.
func RateLimit(limit int, per time.Duration, rejection http.HandlerFunc) func(http.Handler) http.Handler {
	if rejection == nil {
		rejection = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}
	var mu sync.Mutex
	visitors := make(map[string]*visitor)
	lastSweep := time.Now()

	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		every := rate.Every(per / time.Duration(limit))
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			now := time.Now()

			mu.Lock()
			if now.Sub(lastSweep) > per {
				// A visitor idle for a full period has a full bucket again.
				for key, v := range visitors {
					if now.Sub(v.lastSeen) > per {
						delete(visitors, key)
					}
				}
				lastSweep = now
			}
			v, ok := visitors[ip]
			if !ok {
				v = &visitor{limiter: rate.NewLimiter(every, limit)}
				visitors[ip] = v
			}
			v.lastSeen = now
			res := v.limiter.ReserveN(now, 1)
			delay := res.DelayFrom(now)
			if delay > 0 {
				res.CancelAt(now)
			}
			mu.Unlock()

			if delay > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				rejection(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP keys the limiter on RemoteAddr only. Proxy headers are resolved
// into RemoteAddr by chi's RealIP ahead of this middleware.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && net.ParseIP(host) != nil {
		return host
	}
	return r.RemoteAddr
}
