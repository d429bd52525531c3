package auth

import (
	"strings"

	"github.com/spec-kit/loan-backoffice/internal/domain"
)

// Protected route prefixes.
const (
	RouteDashboard = "/dashboard"
	RouteBrokers   = "/brokers"
	RouteProposals = "/proposals"
	RouteUsers     = "/users"
	RouteSettings  = "/settings"
	RouteLogs      = "/logs"
)

// Section is one row of the access table: a route prefix, its menu label
// and the roles that may reach it.
type Section struct {
	Prefix string
	Label  string
	Roles  []domain.Role
}

// MenuItem is a navigation entry visible to a caller.
type MenuItem struct {
	Href  string `json:"href"`
	Label string `json:"label"`
}

// Decision is the outcome of evaluating a request against the policy.
// Redirect is empty when Allowed is true.
type Decision struct {
	Allowed  bool
	Redirect string
}

// sections is the single role -> route table used by the request gate and
// by menu rendering. BROKER rows additionally need brokerAdminAccess.
var sections = []Section{
	{Prefix: RouteDashboard, Label: "Dashboard", Roles: []domain.Role{domain.RoleAdmin, domain.RoleSupport}},
	{Prefix: RouteBrokers, Label: "Corretores", Roles: []domain.Role{domain.RoleAdmin, domain.RoleSupport}},
	{Prefix: RouteProposals, Label: "Propostas", Roles: []domain.Role{domain.RoleAdmin, domain.RoleSupport, domain.RoleBroker}},
	{Prefix: RouteUsers, Label: "Usuários", Roles: []domain.Role{domain.RoleAdmin, domain.RoleSupport}},
	{Prefix: RouteSettings, Label: "Configurações", Roles: []domain.Role{domain.RoleAdmin}},
	{Prefix: RouteLogs, Label: "Logs", Roles: []domain.Role{domain.RoleAdmin}},
}

// Policy answers role-based access questions. It is immutable and safe for
// concurrent use.
type Policy struct {
	sections []Section
	signIn   string
}

// NewPolicy builds the access policy; signInPath is where unauthenticated
// or fully denied callers are sent.
func NewPolicy(signInPath string) *Policy {
	if signInPath == "" {
		signInPath = "/login"
	}
	return &Policy{sections: sections, signIn: signInPath}
}

// SignInPath returns the sign-in page location.
func (p *Policy) SignInPath() string {
	return p.signIn
}

// ProtectedPrefixes lists every guarded route prefix in table order.
func (p *Policy) ProtectedPrefixes() []string {
	out := make([]string, 0, len(p.sections))
	for _, s := range p.sections {
		out = append(out, s.Prefix)
	}
	return out
}

// Allowed reports whether role may reach path given the caller's settings.
// Unknown roles and unknown paths are denied.
func (p *Policy) Allowed(role domain.Role, path string, settings domain.AccountSettings) bool {
	if role == domain.RoleAdmin {
		return true
	}
	section, ok := p.sectionFor(path)
	if !ok {
		return false
	}
	switch role {
	case domain.RoleBroker:
		return settings.General.BrokerAdminAccess && hasRole(section.Roles, domain.RoleBroker)
	case domain.RoleSupport:
		return hasRole(section.Roles, domain.RoleSupport)
	default:
		return false
	}
}

// Decide evaluates a full request. roleFilter is the value of the "role"
// query parameter, which SUPPORT may never set to ADMIN.
func (p *Policy) Decide(role domain.Role, path, roleFilter string, settings domain.AccountSettings) Decision {
	if !p.Allowed(role, path, settings) {
		return Decision{Redirect: p.fallback(role, settings)}
	}
	if role == domain.RoleSupport && matchesPrefix(path, RouteUsers) &&
		strings.EqualFold(strings.TrimSpace(roleFilter), string(domain.RoleAdmin)) {
		return Decision{Redirect: RouteUsers}
	}
	return Decision{Allowed: true}
}

// Landing returns the first page a role should see after signing in.
func (p *Policy) Landing(role domain.Role, settings domain.AccountSettings) string {
	for _, s := range p.sections {
		if p.Allowed(role, s.Prefix, settings) {
			return s.Prefix
		}
	}
	return p.signIn
}

// Menu returns the navigation entries the role can reach.
func (p *Policy) Menu(role domain.Role, settings domain.AccountSettings) []MenuItem {
	items := make([]MenuItem, 0, len(p.sections))
	for _, s := range p.sections {
		if p.Allowed(role, s.Prefix, settings) {
			items = append(items, MenuItem{Href: s.Prefix, Label: s.Label})
		}
	}
	return items
}

func (p *Policy) fallback(role domain.Role, settings domain.AccountSettings) string {
	switch role {
	case domain.RoleBroker:
		if p.Allowed(role, RouteProposals, settings) {
			return RouteProposals
		}
		return p.signIn
	case domain.RoleSupport:
		return RouteDashboard
	default:
		return p.signIn
	}
}

func (p *Policy) sectionFor(path string) (Section, bool) {
	for _, s := range p.sections {
		if matchesPrefix(path, s.Prefix) {
			return s, true
		}
	}
	return Section{}, false
}

// matchesPrefix is segment aware: /users matches /users and /users/new but
// not /usersfoo.
func matchesPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	rest := path[len(prefix):]
	return rest == "" || rest[0] == '/'
}

func hasRole(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
