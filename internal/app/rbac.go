package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

var errInvalidPolicy = errors.New("app: rbac policy must be role:object:action")

// parsePolicy reads "role:object:action".
func parsePolicy(raw string) ([]any, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: %q", errInvalidPolicy, raw)
	}

	rule := make([]any, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("%w: %q", errInvalidPolicy, raw)
		}
		rule = append(rule, p)
	}
	return rule, nil
}

// newEnforcer builds an in-memory RBAC enforcer seeded with policies. Grouping
// rules are added later by the identity module.
func newEnforcer(policies []string) (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}

	for _, raw := range policies {
		rule, err := parsePolicy(raw)
		if err != nil {
			return nil, err
		}
		if _, err := e.AddPolicy(rule...); err != nil {
			return nil, err
		}
	}

	return e, nil
}
