// Package capability resolves and caches user capabilities from the static
// role policy.
package capability

import (
	"sync"
	"time"

	"github.com/scholarpress/quire/model"
)

type grant struct {
	caps      model.CapabilitySet
	staleFrom time.Time
}

func (g grant) fresh(now time.Time) bool { return now.Before(g.staleFrom) }

// Resolver implements model.CapabilityResolver with an in-memory cache keyed
// by subject and tenant. A grant-revoked hook on the backend clients calls
// Invalidate, so a 401 from any upstream drops the stale entry immediately
// instead of waiting out the TTL.
type Resolver struct {
	evaluator model.PolicyEvaluator
	ttl       time.Duration

	mu     sync.RWMutex
	grants map[string]grant
}

// NewResolver creates a Resolver backed by evaluator. A non-positive ttl
// falls back to five minutes.
func NewResolver(evaluator model.PolicyEvaluator, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Resolver{
		evaluator: evaluator,
		ttl:       ttl,
		grants:    make(map[string]grant),
	}
}

func grantKey(subjectID, tenantID string) string {
	return subjectID + ":" + tenantID
}

// Resolve returns the capability set for the request's subject, serving from
// cache while the entry is fresh.
func (r *Resolver) Resolve(rctx *model.RequestContext) (model.CapabilitySet, error) {
	key := grantKey(rctx.SubjectID, rctx.TenantID)
	now := time.Now()

	r.mu.RLock()
	g, ok := r.grants[key]
	r.mu.RUnlock()
	if ok && g.fresh(now) {
		return g.caps, nil
	}

	caps, err := r.evaluator.ResolveCapabilities(rctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.grants[key] = grant{caps: caps, staleFrom: now.Add(r.ttl)}
	r.mu.Unlock()

	return caps, nil
}

// Invalidate drops the cached capability set for the given subject and
// tenant so the next request re-evaluates the policy.
func (r *Resolver) Invalidate(subjectID, tenantID string) {
	r.mu.Lock()
	delete(r.grants, grantKey(subjectID, tenantID))
	r.mu.Unlock()
}
