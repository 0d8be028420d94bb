package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/folderguard/folderguard/pkg/httputil"
	"github.com/folderguard/folderguard/pkg/observability"
)

// CrumbHeader is the request header carrying the anti-forgery token on
// mutating requests.
const CrumbHeader = "X-Crumb"

// CrumbRegistry issues and validates anti-forgery tokens. Tokens expire
// after a fixed TTL; a cron job sweeps expired entries so the registry does
// not grow without bound.
type CrumbRegistry struct {
	ttl     time.Duration
	metrics *observability.Metrics

	mu     sync.Mutex
	tokens map[string]time.Time

	cron *cron.Cron
}

// NewCrumbRegistry creates a registry whose tokens live for ttl and starts
// the expiry sweeper on sweepSchedule (a cron expression such as
// "@every 5m").
func NewCrumbRegistry(ttl time.Duration, sweepSchedule string, metrics *observability.Metrics) (*CrumbRegistry, error) {
	r := &CrumbRegistry{
		ttl:     ttl,
		metrics: metrics,
		tokens:  make(map[string]time.Time),
	}

	r.cron = cron.New()
	if _, err := r.cron.AddFunc(sweepSchedule, r.Sweep); err != nil {
		return nil, fmt.Errorf("invalid crumb sweep schedule %q: %w", sweepSchedule, err)
	}
	r.cron.Start()
	return r, nil
}

// Issue creates a fresh token.
func (r *CrumbRegistry) Issue() string {
	token := uuid.NewString()

	r.mu.Lock()
	r.tokens[token] = time.Now().Add(r.ttl)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.CrumbsIssuedTotal.Inc()
	}
	return token
}

// Validate reports whether token was issued by this registry and has not
// expired.
func (r *CrumbRegistry) Validate(token string) bool {
	if token == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	expiry, ok := r.tokens[token]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(r.tokens, token)
		return false
	}
	return true
}

// Sweep removes expired tokens.
func (r *CrumbRegistry) Sweep() {
	now := time.Now()
	swept := 0

	r.mu.Lock()
	for token, expiry := range r.tokens {
		if now.After(expiry) {
			delete(r.tokens, token)
			swept++
		}
	}
	r.mu.Unlock()

	if r.metrics != nil && swept > 0 {
		r.metrics.CrumbsSweptTotal.Add(float64(swept))
	}
}

// Close stops the expiry sweeper.
func (r *CrumbRegistry) Close() {
	if r.cron != nil {
		r.cron.Stop()
	}
}

// RequireCrumb rejects requests that do not carry a valid token with a 403.
func (r *CrumbRegistry) RequireCrumb(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !r.Validate(req.Header.Get(CrumbHeader)) {
			if r.metrics != nil {
				r.metrics.CrumbRejectedTotal.Inc()
			}
			httputil.WriteText(w, http.StatusForbidden, "No valid crumb was included in the request")
			return
		}
		next.ServeHTTP(w, req)
	})
}
