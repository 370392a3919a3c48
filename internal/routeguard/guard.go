// Package routeguard gates every navigation at the edge, before any page
// handler runs. Classification is an explicit ordered rule list: public
// rules first, then shared rules, then role-exclusive rules. Order is the
// precedence mechanism; there is no longest-prefix resolution.
package routeguard

import (
	"net/http"
	"strings"

	"bookmart/internal/session"
	"bookmart/pkg/domain"
)

// Well-known paths. Login, register, and unauthorized are always public;
// the guard can therefore never produce a redirect loop.
const (
	LoginPath        = "/login"
	RegisterPath     = "/register"
	UnauthorizedPath = "/unauthorized"
)

type access int

const (
	accessPublic access = iota
	accessShared
	accessRole
)

// Rule classifies one path prefix. A path matches when it equals the
// prefix or extends it past a "/" boundary.
type Rule struct {
	Prefix string
	access access
	role   domain.Role
}

// Public marks a prefix reachable without a session.
func Public(prefix string) Rule {
	return Rule{Prefix: prefix, access: accessPublic}
}

// Shared marks a prefix reachable by any authenticated role.
func Shared(prefix string) Rule {
	return Rule{Prefix: prefix, access: accessShared}
}

// RoleOnly marks a prefix reachable only by one exact role.
func RoleOnly(prefix string, role domain.Role) Rule {
	return Rule{Prefix: prefix, access: accessRole, role: role}
}

func (r Rule) matches(path string) bool {
	return path == r.Prefix || strings.HasPrefix(path, r.Prefix+"/")
}

// DefaultRules is the route classification table of the marketplace.
// Shared rules are listed before role-exclusive ones on purpose: a path
// eligible for both is resolved by list order, not specificity.
func DefaultRules() []Rule {
	return []Rule{
		Public("/"),
		Public("/about"),
		Public(LoginPath),
		Public(RegisterPath),
		Public(UnauthorizedPath),
		Public("/healthz"),

		Shared("/viewonebook"),
		Shared("/editprofile"),

		RoleOnly("/admin", domain.RoleAdmin),

		RoleOnly("/sellerdashboard", domain.RoleSeller),
		RoleOnly("/addbook", domain.RoleSeller),
		RoleOnly("/sellerprofile", domain.RoleSeller),
		RoleOnly("/sellerorders", domain.RoleSeller),
		RoleOnly("/sellerbooks", domain.RoleSeller),
		RoleOnly("/sellersingleorder", domain.RoleSeller),
		RoleOnly("/updatebook", domain.RoleSeller),

		RoleOnly("/checkout", domain.RoleCustomer),
		RoleOnly("/customerprofile", domain.RoleCustomer),
		RoleOnly("/viewbooks", domain.RoleCustomer),
		RoleOnly("/vieworders", domain.RoleCustomer),
		RoleOnly("/cart", domain.RoleCustomer),
		RoleOnly("/wishlist", domain.RoleCustomer),
	}
}

// LandingPath is where an already-authenticated session is forwarded when
// it hits the login or registration page again.
func LandingPath(role domain.Role) string {
	switch role {
	case domain.RoleAdmin:
		return "/admin"
	case domain.RoleSeller:
		return "/sellerbooks"
	default:
		return "/viewbooks"
	}
}

// Decision is the outcome of one navigation check.
type Decision struct {
	Allow      bool
	RedirectTo string
}

// Guard evaluates navigations against the rule table and current session.
type Guard struct {
	sessions *session.Store
	rules    []Rule
}

// New builds a guard over the default classification table.
func New(sessions *session.Store) *Guard {
	return &Guard{sessions: sessions, rules: DefaultRules()}
}

// NewWithRules builds a guard over a custom ordered rule list.
func NewWithRules(sessions *session.Store, rules []Rule) *Guard {
	return &Guard{sessions: sessions, rules: rules}
}

// Decide classifies one navigation. Precedence:
//
//  1. auth form revisited with a live session: forward to the role landing
//     page instead of showing the form again
//  2. public: allow unconditionally
//  3. no token: to login
//  4. token without role (corrupt session): to login
//  5. first matching rule in list order: shared allows any role, exclusive
//     requires an exact role match or bounces to unauthorized
//  6. unclassified: allowed for any authenticated session
func (g *Guard) Decide(path string, sess domain.Session) Decision {
	if sess.Authenticated() && !sess.Corrupt() && isAuthForm(path) {
		role, _ := domain.ParseRole(string(sess.Role))
		return Decision{RedirectTo: LandingPath(role)}
	}
	rule, classified := g.classify(path)
	if classified && rule.access == accessPublic {
		return Decision{Allow: true}
	}
	if !sess.Authenticated() || sess.Corrupt() {
		return Decision{RedirectTo: LoginPath}
	}
	if !classified || rule.access == accessShared {
		return Decision{Allow: true}
	}
	sessRole, _ := domain.ParseRole(string(sess.Role))
	if rule.role != sessRole {
		return Decision{RedirectTo: UnauthorizedPath}
	}
	return Decision{Allow: true}
}

// classify returns the first rule in list order matching the path. The
// bare "/" prefix only matches the root itself, otherwise every path
// would be public.
func (g *Guard) classify(path string) (Rule, bool) {
	for _, rule := range g.rules {
		if rule.Prefix == "/" {
			if path == "/" {
				return rule, true
			}
			continue
		}
		if rule.matches(path) {
			return rule, true
		}
	}
	return Rule{}, false
}

func isAuthForm(path string) bool {
	return path == LoginPath || path == RegisterPath
}

// Wrap applies the guard to every request of next. The restored session
// is stored in the request context so handlers never re-read cookies.
func (g *Guard) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := g.sessions.FromRequest(r)
		decision := g.Decide(r.URL.Path, sess)
		if !decision.Allow {
			http.Redirect(w, r, decision.RedirectTo, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
	})
}
