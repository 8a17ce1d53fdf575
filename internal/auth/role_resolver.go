package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/terraconstructs/campusapi/internal/config"
)

// domainPattern extracts the domain part of an address for rule matching.
var domainPattern = regexp.MustCompile(`@([\w.-]+)$`)

// RoleRule maps email addresses to a role. A rule matches when Pattern matches the
// email or its domain, or when Expr evaluates true over {email, local, domain}.
type RoleRule struct {
	Pattern string
	Expr    string
	Role    Role
}

type compiledRule struct {
	pattern *regexp.Regexp
	expr    string
	role    Role
}

// RoleResolver derives the initial role of a principal from its email address.
// It is immutable after construction and safe for concurrent use.
type RoleResolver struct {
	rules []compiledRule
}

// NewRoleResolver validates and compiles rules. Rule order is significant: the first
// matching rule wins.
func NewRoleResolver(rules []RoleRule) (*RoleResolver, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for i, rule := range rules {
		if !rule.Role.Valid() {
			return nil, fmt.Errorf("role rule %d: unknown role %q", i, rule.Role)
		}
		if rule.Pattern == "" && rule.Expr == "" {
			return nil, fmt.Errorf("role rule %d: pattern or expression is required", i)
		}

		c := compiledRule{role: rule.Role, expr: rule.Expr}
		if rule.Pattern != "" {
			re, err := regexp.Compile("(?i)" + rule.Pattern)
			if err != nil {
				return nil, fmt.Errorf("role rule %d: invalid pattern: %w", i, err)
			}
			c.pattern = re
		}
		if rule.Expr != "" {
			if _, err := compileBexpr(rule.Expr); err != nil {
				return nil, fmt.Errorf("role rule %d: %w", i, err)
			}
		}
		compiled = append(compiled, c)
	}
	return &RoleResolver{rules: compiled}, nil
}

// NewRoleResolverFromConfig builds a resolver from the configured rule table.
func NewRoleResolverFromConfig(cfg []config.RoleRuleConfig) (*RoleResolver, error) {
	rules := make([]RoleRule, 0, len(cfg))
	var errs []error
	for i, rc := range cfg {
		role, err := ParseRole(rc.Role)
		if err != nil {
			errs = append(errs, fmt.Errorf("role rule %d: %w", i, err))
			continue
		}
		rules = append(rules, RoleRule{Pattern: rc.Pattern, Expr: rc.Expr, Role: role})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return NewRoleResolver(rules)
}

// Resolve returns the role for email. It never fails: malformed or empty input skips
// domain matching and falls through to DefaultRole.
func (r *RoleResolver) Resolve(email string) Role {
	email = strings.TrimSpace(email)

	var domain, local string
	if m := domainPattern.FindStringSubmatch(email); m != nil {
		domain = m[1]
		local = strings.TrimSuffix(email, "@"+domain)
	}
	attrs := map[string]any{
		"email":  strings.ToLower(email),
		"local":  strings.ToLower(local),
		"domain": strings.ToLower(domain),
	}

	for _, rule := range r.rules {
		if rule.pattern != nil {
			if rule.pattern.MatchString(email) || (domain != "" && rule.pattern.MatchString(domain)) {
				return rule.role
			}
		}
		if rule.expr != "" && EvaluateBexpr(rule.expr, attrs) {
			return rule.role
		}
	}
	return DefaultRole
}
