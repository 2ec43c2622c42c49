package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dscnitrourkela/project-zucchini/internal/api/respond"
	"github.com/dscnitrourkela/project-zucchini/internal/metrics"
	"github.com/dscnitrourkela/project-zucchini/internal/ratelimit"
)

const rateLimitMessage = "Too many requests, please try again later"

// RateLimiter applies a ratelimit.Limiter to HTTP routes.
type RateLimiter struct {
	limiter *ratelimit.Limiter
	trusted []*net.IPNet
	env     string
	logger  zerolog.Logger
	now     func() time.Time
}

// NewRateLimiter parses trustedProxyCIDRs once. Invalid entries are logged
// and skipped. With no CIDRs configured, forwarding headers are trusted from
// any peer.
func NewRateLimiter(limiter *ratelimit.Limiter, trustedProxyCIDRs []string, env string, logger zerolog.Logger) *RateLimiter {
	rl := &RateLimiter{
		limiter: limiter,
		env:     env,
		logger:  logger.With().Str("component", "ratelimit").Logger(),
		now:     time.Now,
	}
	for _, raw := range trustedProxyCIDRs {
		_, cidr, err := net.ParseCIDR(strings.TrimSpace(raw))
		if err != nil {
			rl.logger.Warn().Str("cidr", raw).Msg("ignoring invalid trusted proxy CIDR")
			continue
		}
		rl.trusted = append(rl.trusted, cidr)
	}
	return rl
}

// CategoryForPath maps an API path onto its rate-limit category. Admin
// routes share one category; elsewhere the first matching path fragment wins.
func CategoryForPath(path string) (ratelimit.Category, bool) {
	switch {
	case strings.HasPrefix(path, "/api/admin/"):
		return ratelimit.CategoryAuth, true
	case strings.Contains(path, "/register"):
		return ratelimit.CategoryRegistration, true
	case strings.Contains(path, "/check-registration"),
		strings.Contains(path, "/check-cross-registration"),
		strings.Contains(path, "/payment/status"),
		strings.HasSuffix(path, "/mun/team"):
		return ratelimit.CategoryCheck, true
	case strings.Contains(path, "/initiate-order"),
		strings.Contains(path, "/intiate-order"),
		strings.Contains(path, "/verify-order"):
		return ratelimit.CategoryPayment, true
	case strings.Contains(path, "/upload"):
		return ratelimit.CategoryUpload, true
	}
	return "", false
}

// ForPath limits a route by the category its path maps to. Paths without a
// category are not limited.
func (rl *RateLimiter) ForPath(path string) func(http.Handler) http.Handler {
	category, ok := CategoryForPath(path)
	if !ok {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Limit(category)
}

// Limit counts every request against category and answers 429 with
// Retry-After once the window is spent. Store failures let the request through.
func (rl *RateLimiter) Limit(category ratelimit.Category) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := rl.clientKey(r)
			decision, err := rl.limiter.Allow(r.Context(), category, client)
			if err != nil {
				metrics.RateLimitStoreErrorsTotal.WithLabelValues(string(category)).Inc()
				zerolog.Ctx(r.Context()).Error().Err(err).Str("category", string(category)).Msg("rate limit store unavailable")
			}

			if decision.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
			}

			if !decision.Allowed {
				metrics.RateLimitRejectionsTotal.WithLabelValues(string(category)).Inc()
				retryAfter := decision.RetryAfter(rl.now())
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter/time.Second)))
				respond.Error(w, r, &respond.HTTPError{
					Status:  http.StatusTooManyRequests,
					Message: rateLimitMessage,
					Details: map[string]any{"retryAfterSeconds": int(retryAfter / time.Second)},
				}, rl.env)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey is the first X-Forwarded-For entry, then X-Real-IP, then the
// peer address. Headers count only when the peer is a trusted proxy.
func (rl *RateLimiter) clientKey(r *http.Request) string {
	remoteIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remoteIP = host
	}

	if rl.trustsHeadersFrom(remoteIP) {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
	}

	if remoteIP == "" {
		return "unknown"
	}
	return remoteIP
}

func (rl *RateLimiter) trustsHeadersFrom(ip string) bool {
	if len(rl.trusted) == 0 {
		return true
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, cidr := range rl.trusted {
		if cidr.Contains(parsed) {
			return true
		}
	}
	return false
}
