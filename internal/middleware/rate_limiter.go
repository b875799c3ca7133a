package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter controls how frequently a caller may perform an action.
type RateLimiter interface {
	Allow(key string) bool
}

type callerState struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// CallerRateLimiter applies a token-bucket limit per caller key (an IP
// address, or a scoped composite such as "acquire:10.0.0.1"). Idle entries
// are evicted lazily on the allow path.
type CallerRateLimiter struct {
	mu      sync.Mutex
	callers map[string]*callerState

	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	nextScan time.Time
	now      func() time.Time
}

const evictionInterval = time.Minute

// NewCallerRateLimiter allows `requests` events per `window` with the given
// burst headroom. Idle callers are forgotten after idleTTL.
func NewCallerRateLimiter(requests int, window time.Duration, burst int, idleTTL time.Duration) *CallerRateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	if idleTTL <= 0 {
		idleTTL = 5 * time.Minute
	}

	return &CallerRateLimiter{
		callers: make(map[string]*callerState),
		limit:   rate.Every(window / time.Duration(requests)),
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Allow reports whether the caller identified by key may proceed.
func (l *CallerRateLimiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}

	now := l.now()

	l.mu.Lock()
	state, ok := l.callers[key]
	if !ok {
		state = &callerState{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.callers[key] = state
	}
	state.lastSeen = now

	if now.After(l.nextScan) {
		for k, s := range l.callers {
			if now.Sub(s.lastSeen) > l.idleTTL {
				delete(l.callers, k)
			}
		}
		l.nextScan = now.Add(evictionInterval)
	}
	l.mu.Unlock()

	return state.limiter.Allow()
}

// SetNowFunc overrides the time source, for tests.
func (l *CallerRateLimiter) SetNowFunc(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}
