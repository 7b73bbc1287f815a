package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// requestUUID gives every request a UUID before chi's RequestID middleware
// reads the header, so request IDs are uuids rather than host-sequence strings.
func requestUUID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
			r.Header.Set(middleware.RequestIDHeader, id)
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// requestLogger writes one zap line per request
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.Info("request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// ipLimiter stores per-IP rate limiters with automatic cleanup until stopped
type ipLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	rate     rate.Limit
	burst    int

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(r rate.Limit, burst int) *ipLimiter {
	ipl := &ipLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     r,
		burst:    burst,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go ipl.cleanup(5 * time.Minute)
	return ipl
}

// Stop ends the cleanup goroutine and waits for it to exit
func (ipl *ipLimiter) Stop() {
	ipl.stopOnce.Do(func() { close(ipl.stop) })
	<-ipl.done
}

func (ipl *ipLimiter) getLimiter(ip string) *rate.Limiter {
	ipl.mu.Lock()
	defer ipl.mu.Unlock()

	entry, exists := ipl.limiters[ip]
	if !exists {
		limiter := rate.NewLimiter(ipl.rate, ipl.burst)
		ipl.limiters[ip] = &limiterEntry{limiter: limiter, lastSeen: time.Now()}
		return limiter
	}

	entry.lastSeen = time.Now()
	return entry.limiter
}

// cleanup drops clients idle for ten minutes
func (ipl *ipLimiter) cleanup(every time.Duration) {
	defer close(ipl.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ipl.stop:
			return
		case <-ticker.C:
			ipl.mu.Lock()
			for ip, entry := range ipl.limiters {
				if time.Since(entry.lastSeen) > 10*time.Minute {
					delete(ipl.limiters, ip)
				}
			}
			ipl.mu.Unlock()
		}
	}
}

// rateLimit allows perMinute requests per client IP, with a burst of the same size
func (s *Server) rateLimit(perMinute int) func(http.Handler) http.Handler {
	ipl := newIPLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	s.limiter = ipl

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ipl.getLimiter(extractIP(r)).Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(60/perMinute+1))
				s.writeError(w, recorderFor(r), http.StatusTooManyRequests,
					"RATE_LIMITED", "too many requests, please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractIP gets the client IP, respecting X-Forwarded-For from reverse proxies
func extractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
