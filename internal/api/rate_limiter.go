package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"golang.org/x/time/rate"

	"github.com/id-scanner/internal/types"
)

// PlanResolver returns the current plan of a user
type PlanResolver func(ctx context.Context, userID string) types.Plan

// RateLimiter manages per-user request rate limits sized by plan
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex

	freeLimit rate.Limit
	proLimit  rate.Limit
	burstSize int

	resolvePlan PlanResolver
}

// NewRateLimiter creates a new rate limiter. The plan of a user is
// resolved once, when the user is first seen; Forget drops it.
func NewRateLimiter(freeRPS, proRPS int, resolvePlan PlanResolver) *RateLimiter {
	return &RateLimiter{
		limiters:    make(map[string]*rate.Limiter),
		freeLimit:   rate.Limit(freeRPS),
		proLimit:    rate.Limit(proRPS),
		burstSize:   10,
		resolvePlan: resolvePlan,
	}
}

// limitFor returns the request rate of plan
func (rl *RateLimiter) limitFor(plan types.Plan) rate.Limit {
	if plan.IsPaid() {
		return rl.proLimit
	}
	return rl.freeLimit
}

// getLimiter returns the rate limiter of userID, creating it on first use
func (rl *RateLimiter) getLimiter(ctx context.Context, userID string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[userID]
	rl.mu.RUnlock()

	if exists {
		return limiter
	}

	plan := types.PlanFree
	if rl.resolvePlan != nil {
		plan = rl.resolvePlan(ctx, userID)
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// another request may have created it meanwhile
	if limiter, exists := rl.limiters[userID]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rl.limitFor(plan), rl.burstSize)
	rl.limiters[userID] = limiter
	return limiter
}

// Forget drops the limiter of userID so the next request re-reads the plan
func (rl *RateLimiter) Forget(userID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.limiters, userID)
}

// RateLimitMiddleware creates a middleware that enforces rate limiting.
// It must run after RequireUser.
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := userIDFrom(r.Context())
			if userID == "" {
				userID = r.RemoteAddr
			}

			limiter := rl.getLimiter(r.Context(), userID)
			if !limiter.Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(1))
				respondError(w, http.StatusTooManyRequests, ErrCodeRateLimited, "Rate limit exceeded. Please try again later.", map[string]interface{}{
					"limit": float64(limiter.Limit()),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
