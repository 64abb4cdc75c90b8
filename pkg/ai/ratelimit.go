package ai

import (
	"context"

	"golang.org/x/time/rate"

	"daytrip/pkg/apperr"
)

type rateLimited struct {
	next    Planner
	limiter *rate.Limiter
}

// RateLimited wraps a planner with a shared token bucket. A non-positive
// rate disables limiting.
func RateLimited(next Planner, perSecond float64, burst int) Planner {
	if perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *rateLimited) PlanOneDayJSON(ctx context.Context, regionLabel, placesJSON, prefsJSON string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", apperr.Wrap(apperr.PlannerUnavailable, "planner rate limit", err)
	}
	return r.next.PlanOneDayJSON(ctx, regionLabel, placesJSON, prefsJSON)
}
