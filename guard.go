package authclient

import (
	"context"
	"strings"
)

const (
	DefaultLoginRoute   = "/auth/login"
	DefaultDefaultRoute = "/dashboard"
)

// Route is a protected destination. Roles, when set, lists the roles allowed
// in; Section, when set, must be reachable under the access policy.
type Route struct {
	Path    string
	Section Section
	Roles   []UserRole
}

// RouteFor builds a route for a section using the section name as path
func RouteFor(section Section, roles ...UserRole) Route {
	return Route{
		Path:    "/" + strings.TrimPrefix(string(section), "/"),
		Section: section,
		Roles:   roles,
	}
}

// Decision is the guard verdict. Redirect is set when Allowed is false.
type Decision struct {
	Allowed  bool
	Redirect string
	Reason   error
}

type sessionExpirer interface {
	ExpireSession(ctx context.Context) error
}

// RouteGuard checks navigation against the session and the access policy
type RouteGuard struct {
	session      SessionReader
	policy       *AccessPolicy
	loginRoute   string
	defaultRoute string
	logger       Logger
}

// NewRouteGuard creates a guard with the default login and fallback routes
func NewRouteGuard(session SessionReader, policy *AccessPolicy) *RouteGuard {
	if policy == nil {
		policy = NewAccessPolicy(DefaultAccessRules())
	}
	return &RouteGuard{
		session:      session,
		policy:       policy,
		loginRoute:   DefaultLoginRoute,
		defaultRoute: DefaultDefaultRoute,
		logger:       defLogger{},
	}
}

func (g *RouteGuard) WithLogger(logger Logger) *RouteGuard {
	g.logger = normalizeLogger(logger)
	return g
}

// WithRoutes overrides the login and the fallback redirect targets
func (g *RouteGuard) WithRoutes(loginRoute, defaultRoute string) *RouteGuard {
	if loginRoute != "" {
		g.loginRoute = loginRoute
	}
	if defaultRoute != "" {
		g.defaultRoute = defaultRoute
	}
	return g
}

// Policy returns the access policy in use
func (g *RouteGuard) Policy() *AccessPolicy {
	return g.policy
}

// Check runs the guard steps in order. The expired path is the only one
// that changes session state.
func (g *RouteGuard) Check(ctx context.Context, route Route) Decision {
	if !g.session.IsAuthenticated(ctx) {
		g.logger.Debug("guard deny: not authenticated", "path", route.Path)
		return g.deny(g.loginRoute, ErrNoSession)
	}

	if g.session.IsExpired(ctx) {
		g.logger.Info("guard deny: session expired", "path", route.Path)
		g.forceLogout(ctx)
		return g.deny(g.loginRoute, ErrTokenExpired)
	}

	identity := g.session.CurrentIdentity()
	if identity == nil {
		g.logger.Warn("guard deny: credential without identity", "path", route.Path)
		g.forceLogout(ctx)
		return g.deny(g.loginRoute, ErrNoSession)
	}

	if !g.roleAllowed(identity.Role, route) {
		g.logger.Info("guard deny: role cannot reach route",
			"path", route.Path,
			"section", route.Section,
			"role", identity.Role,
		)
		return g.deny(g.defaultRoute, withCause(ErrAccessDenied, nil, map[string]any{
			"role":    identity.Role,
			"section": route.Section,
			"path":    route.Path,
		}))
	}

	return Decision{Allowed: true}
}

// Allowed is a shorthand for Check(...).Allowed
func (g *RouteGuard) Allowed(ctx context.Context, route Route) bool {
	return g.Check(ctx, route).Allowed
}

func (g *RouteGuard) roleAllowed(role UserRole, route Route) bool {
	if !role.IsValid() {
		return false
	}
	if len(route.Roles) > 0 && !containsRole(route.Roles, role) {
		return false
	}
	if route.Section != "" && !g.policy.CanReach(role, route.Section) {
		return false
	}
	return true
}

func (g *RouteGuard) forceLogout(ctx context.Context) {
	var err error
	if expirer, ok := g.session.(sessionExpirer); ok {
		err = expirer.ExpireSession(ctx)
	} else {
		err = g.session.Logout(ctx)
	}
	if err != nil {
		g.logger.Error("guard forced logout error", "error", err)
	}
}

func (g *RouteGuard) deny(redirect string, reason error) Decision {
	return Decision{
		Allowed:  false,
		Redirect: redirect,
		Reason:   reason,
	}
}
