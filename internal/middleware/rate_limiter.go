package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// windowCounter counts hits per client IP in fixed windows.
type windowCounter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*windowEntry
}

type windowEntry struct {
	count     int
	windowEnd time.Time
}

func newWindowCounter(limit int, window time.Duration) *windowCounter {
	return &windowCounter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*windowEntry),
	}
}

// allow records a hit for key and reports whether it is within the limit,
// plus the end of the current window.
func (w *windowCounter) allow(key string) (bool, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	e, ok := w.entries[key]
	if !ok || now.After(e.windowEnd) {
		e = &windowEntry{windowEnd: now.Add(w.window)}
		w.entries[key] = e
	}
	e.count++
	return e.count <= w.limit, e.windowEnd
}

func (w *windowCounter) purge() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	n := 0
	for k, e := range w.entries {
		if now.After(e.windowEnd) {
			delete(w.entries, k)
			n++
		}
	}
	return n
}

func (w *windowCounter) middleware(msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, windowEnd := w.allow(c.ClientIP())
		if !ok {
			secs := int(time.Until(windowEnd).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}

// RateLimiter holds the global API limiter and the stricter login limiter.
type RateLimiter struct {
	api   *windowCounter
	login *windowCounter
}

// NewRateLimiter allows apiLimit requests per window per IP on every route
// and 20 login attempts per minute per IP.
func NewRateLimiter(apiLimit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		api:   newWindowCounter(apiLimit, window),
		login: newWindowCounter(20, time.Minute),
	}
}

func (r *RateLimiter) API() gin.HandlerFunc {
	return r.api.middleware("Too many requests, try again shortly")
}

func (r *RateLimiter) Login() gin.HandlerFunc {
	return r.login.middleware("Too many login attempts, try again in a minute")
}

// RunPurge drops expired entries every interval until ctx is done.
func (r *RateLimiter) RunPurge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			api, login := r.api.purge(), r.login.purge()
			if api > 0 || login > 0 {
				log.Debug().
					Int("api_entries_purged", api).
					Int("login_entries_purged", login).
					Msg("rate limiter entries purged")
			}
		}
	}
}
