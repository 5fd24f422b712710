package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ClassLimiter enforces a minimum spacing between remote calls of the
// same resource class (e.g. sheet reads vs drive uploads). Waiting is
// a cooperative delay per class, so one class never starves another.
type ClassLimiter struct {
	mu       sync.Mutex
	spacing  map[string]time.Duration
	limiters map[string]*rate.Limiter
}

func NewClassLimiter(spacing map[string]time.Duration) *ClassLimiter {
	return &ClassLimiter{
		spacing:  spacing,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait delays until the class's minimum inter-request spacing has
// passed, or the context is done. Unknown classes pass through.
func (l *ClassLimiter) Wait(ctx context.Context, class string) error {
	l.mu.Lock()
	lim, ok := l.limiters[class]
	if !ok {
		spacing, known := l.spacing[class]
		if !known || spacing <= 0 {
			l.mu.Unlock()

			return nil
		}
		lim = rate.NewLimiter(rate.Every(spacing), 1)
		l.limiters[class] = lim
	}
	l.mu.Unlock()

	return lim.Wait(ctx)
}

// ActionPolicy bounds how often a user may perform an action class.
type ActionPolicy struct {
	Per   time.Duration
	Burst int
}

// UserLimiter throttles user-facing actions per (user, action-class).
type UserLimiter struct {
	mu       sync.Mutex
	policies map[string]ActionPolicy
	limiters map[userAction]*rate.Limiter
}

type userAction struct {
	userID int64
	action string
}

func NewUserLimiter(policies map[string]ActionPolicy) *UserLimiter {
	return &UserLimiter{
		policies: policies,
		limiters: make(map[userAction]*rate.Limiter),
	}
}

// Allow reports whether the user may perform the action now. Actions
// with no configured policy are always allowed.
func (l *UserLimiter) Allow(userID int64, action string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := userAction{userID: userID, action: action}
	lim, ok := l.limiters[key]
	if !ok {
		policy, known := l.policies[action]
		if !known || policy.Per <= 0 {
			return true
		}
		lim = rate.NewLimiter(rate.Every(policy.Per), policy.Burst)
		l.limiters[key] = lim
	}

	return lim.Allow()
}
