// Package policy maps route prefixes to the principal a request needs.
package policy

import (
	"sort"
	"strings"

	"github.com/iliyamo/bearer-auth/internal/model"
	"github.com/iliyamo/bearer-auth/internal/security"
)

// Access is what a rule requires from the request.
type Access int

const (
	// Authenticated needs any principal.
	Authenticated Access = iota
	// Public needs nothing.
	Public
	// RoleRequired needs a principal whose authority equals Rule.Role.
	RoleRequired
)

// Decision is the outcome of evaluating a request.
type Decision int

const (
	Allow Decision = iota
	Unauthenticated
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	}
	return "unknown"
}

// Rule applies to every path equal to Prefix or below it.
type Rule struct {
	Prefix string
	Access Access
	Role   model.Role
}

// Policy holds an immutable rule table. Paths not covered by any rule
// require an authenticated principal.
type Policy struct {
	rules []Rule
}

// Route prefixes of the HTTP API.
const (
	AuthPrefix  = "/api/v1/auth"
	AdminPrefix = "/api/v1/admin"
	UserPrefix  = "/api/v1/user"
)

// Default is the table the service runs with.
func Default() *Policy {
	return New(
		Rule{Prefix: AuthPrefix, Access: Public},
		Rule{Prefix: AdminPrefix, Access: RoleRequired, Role: model.RoleAdmin},
		Rule{Prefix: UserPrefix, Access: RoleRequired, Role: model.RoleUser},
		Rule{Prefix: "/healthz", Access: Public},
		Rule{Prefix: "/metrics", Access: Public},
	)
}

// New builds a Policy. When prefixes overlap, the longest one wins.
func New(rules ...Rule) *Policy {
	rs := make([]Rule, 0, len(rules))
	for _, r := range rules {
		r.Prefix = "/" + strings.Trim(r.Prefix, "/")
		rs = append(rs, r)
	}
	sort.SliceStable(rs, func(i, j int) bool { return len(rs[i].Prefix) > len(rs[j].Prefix) })
	return &Policy{rules: rs}
}

// Decide evaluates path for the given principal; p is nil when the
// request is unauthenticated.
func (pl *Policy) Decide(path string, p *security.Principal) Decision {
	rule, ok := pl.match(path)
	if !ok {
		rule = Rule{Access: Authenticated}
	}
	switch rule.Access {
	case Public:
		return Allow
	case RoleRequired:
		if p == nil {
			return Unauthenticated
		}
		if p.Authority != rule.Role {
			return Forbidden
		}
		return Allow
	default:
		if p == nil {
			return Unauthenticated
		}
		return Allow
	}
}

func (pl *Policy) match(path string) (Rule, bool) {
	for _, r := range pl.rules {
		if matchPrefix(r.Prefix, path) {
			return r, true
		}
	}
	return Rule{}, false
}

// matchPrefix matches whole path segments: "/api/v1/admin" covers
// "/api/v1/admin" and "/api/v1/admin/x" but not "/api/v1/administer".
func matchPrefix(prefix, path string) bool {
	if prefix == "/" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
