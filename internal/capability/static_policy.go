package capability

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/scholarpress/quire/model"
)

type policyFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// defaultPolicy grants each publishing role its built-in capabilities. A
// policy file, when configured, replaces the grants per role it names and
// leaves the rest intact.
var defaultPolicy = map[string][]string{
	string(model.RoleAuthor): {
		"submissions:wizard:execute",
		"submissions:own:view",
		"payments:card:execute",
	},
	string(model.RoleReviewer): {
		"reviews:queue:view",
		"submissions:assigned:view",
	},
	string(model.RoleJournalAdmin): {
		"journals:managed:view",
		"submissions:managed:view",
		"submissions:status:update",
	},
	string(model.RoleAccountant): {
		"finance:reports:view",
		"payments:transactions:view",
	},
	string(model.RoleSuperAdmin): {
		"*",
	},
}

// StaticPolicyEvaluator resolves capabilities from the built-in role policy,
// optionally overridden by a YAML file mapping roles to capability strings.
type StaticPolicyEvaluator struct {
	path   string
	mu     sync.RWMutex
	policy policyFile
}

// NewStaticPolicyEvaluator creates an evaluator. An empty path uses the
// built-in policy only.
func NewStaticPolicyEvaluator(path string) (*StaticPolicyEvaluator, error) {
	e := &StaticPolicyEvaluator{path: path}
	if err := e.Sync(); err != nil {
		return nil, err
	}
	return e, nil
}

// ResolveCapabilities returns the union of capabilities for all roles in the
// request context.
func (e *StaticPolicyEvaluator) ResolveCapabilities(rctx *model.RequestContext) (model.CapabilitySet, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	caps := make(model.CapabilitySet)
	for _, role := range rctx.Roles {
		grants, ok := e.policy.Roles[role]
		if !ok {
			grants = defaultPolicy[role]
		}
		for _, cap := range grants {
			caps[cap] = true
		}
	}
	return caps, nil
}

// Evaluate checks a single capability against the resolved set.
func (e *StaticPolicyEvaluator) Evaluate(rctx *model.RequestContext, capability string) (bool, error) {
	caps, err := e.ResolveCapabilities(rctx)
	if err != nil {
		return false, err
	}
	return caps.Has(capability), nil
}

// Sync reloads the policy file from disk.
func (e *StaticPolicyEvaluator) Sync() error {
	if e.path == "" {
		e.mu.Lock()
		e.policy = policyFile{}
		e.mu.Unlock()
		return nil
	}

	data, err := os.ReadFile(e.path)
	if err != nil {
		return fmt.Errorf("capability: reading policy file %s: %w", e.path, err)
	}

	var p policyFile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("capability: parsing policy file %s: %w", e.path, err)
	}

	e.mu.Lock()
	e.policy = p
	e.mu.Unlock()

	return nil
}
