package auth

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
)

//go:embed model.conf
var casbinModelContent string

//go:embed policy.csv
var casbinPolicyContent string

// DefaultPolicy returns the embedded route policy table.
func DefaultPolicy() string { return casbinPolicyContent }

// InitEnforcer creates a Casbin enforcer with the embedded RBAC model and the given
// policy text (CSV lines, see policy.csv). An empty policy selects the embedded table.
func InitEnforcer(policy string) (casbin.IEnforcer, error) {
	if strings.TrimSpace(policy) == "" {
		policy = casbinPolicyContent
	}

	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m, stringadapter.NewAdapter(policy))
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load casbin policies: %w", err)
	}

	return enforcer, nil
}

// PolicySubject is the casbin subject for a request: the principal role, or anonymous.
func PolicySubject(principal *AuthenticatedPrincipal) string {
	if principal == nil || !principal.Role.Valid() {
		return string(RoleAnonymous)
	}
	return string(principal.Role)
}
