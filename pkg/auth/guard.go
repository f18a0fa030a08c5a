package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
	"go.uber.org/zap"
)

// GuardMode controls whether route guard decisions are enforced.
type GuardMode string

const (
	GuardModeEnforce  GuardMode = "enforce"
	GuardModeShadow   GuardMode = "shadow"
	GuardModeDisabled GuardMode = "disabled"
)

// ParseGuardMode converts a configuration value into a GuardMode.
// An empty value means enforce.
func ParseGuardMode(raw string) (GuardMode, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return GuardModeEnforce, nil
	}
	switch GuardMode(raw) {
	case GuardModeEnforce, GuardModeShadow, GuardModeDisabled:
		return GuardMode(raw), nil
	default:
		return "", errors.New("authz: invalid mode (expected enforce|shadow|disabled)")
	}
}

// Route guard actions.
const (
	ActionList   = "list"
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

const guardModel = `
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

// DefaultGuardPolicy grants programmers every action on work records and
// limited access to user accounts. Admins inherit it and manage users.
// Field- and record-level rules are decided by the policy engine.
const DefaultGuardPolicy = `
p, role:programmer, reports, *
p, role:programmer, issues, *
p, role:programmer, solutions, *
p, role:programmer, tasks, *
p, role:programmer, requests, *
p, role:programmer, prompts, *
p, role:programmer, file-versions, *
p, role:programmer, dashboard, read
p, role:programmer, users, read
p, role:programmer, users, update
p, role:programmer, users.directory, list
p, role:admin, users, *
g, role:admin, role:programmer
`

// RouteGuard is a coarse role-to-route check run before handlers.
type RouteGuard struct {
	enforcer *casbin.Enforcer
	mode     GuardMode
	logger   *zap.Logger
}

// NewRouteGuard builds a guard over the given policy text.
// Pass DefaultGuardPolicy unless a deployment overrides it.
func NewRouteGuard(policy string, mode GuardMode, logger *zap.Logger) (*RouteGuard, error) {
	m, err := model.NewModelFromString(guardModel)
	if err != nil {
		return nil, fmt.Errorf("authz: parse model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m, stringadapter.NewAdapter(strings.TrimSpace(policy)))
	if err != nil {
		return nil, fmt.Errorf("authz: create enforcer: %w", err)
	}
	return &RouteGuard{enforcer: enforcer, mode: mode, logger: logger}, nil
}

// SubjectFromRole returns the casbin subject for a role.
func SubjectFromRole(role string) string {
	role = strings.TrimSpace(strings.ToLower(role))
	if role == "" {
		role = "anonymous"
	}
	return "role:" + role
}

// Authorize reports whether role may perform action on resource and whether
// the decision is enforced in the current mode.
func (g *RouteGuard) Authorize(role, resource, action string) (allowed bool, enforced bool, err error) {
	switch g.mode {
	case GuardModeDisabled:
		return true, false, nil
	case GuardModeShadow:
		ok, err := g.enforcer.Enforce(SubjectFromRole(role), resource, action)
		if err != nil {
			return false, false, err
		}
		return ok, false, nil
	case GuardModeEnforce:
		ok, err := g.enforcer.Enforce(SubjectFromRole(role), resource, action)
		if err != nil {
			return false, true, err
		}
		return ok, true, nil
	default:
		return false, false, errors.New("authz: unknown mode")
	}
}

// Require wraps a handler that already runs behind RequireAuth.
// Shadow mode logs denials without blocking.
func (g *RouteGuard) Require(resource, action string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}

			allowed, enforced, err := g.Authorize(p.Role, resource, action)
			if err != nil {
				g.logger.Error("Route guard evaluation failed",
					zap.String("resource", resource),
					zap.String("action", action),
					zap.Error(err))
				writeAuthError(w, http.StatusInternalServerError, "internal_error", "Authorization check failed")
				return
			}
			if !allowed {
				if enforced {
					g.logger.Info("Route guard denied request",
						zap.Int64("user_id", p.ID),
						zap.String("role", p.Role),
						zap.String("resource", resource),
						zap.String("action", action))
					writeAuthError(w, http.StatusForbidden, "forbidden", "Insufficient permissions")
					return
				}
				g.logger.Warn("Route guard would deny request (shadow mode)",
					zap.Int64("user_id", p.ID),
					zap.String("role", p.Role),
					zap.String("resource", resource),
					zap.String("action", action))
			}
			next(w, r)
		}
	}
}
