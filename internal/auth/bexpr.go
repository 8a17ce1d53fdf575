package auth

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-bexpr"
)

// bexprCache stores compiled go-bexpr evaluators keyed by expression string.
var bexprCache = &sync.Map{}

// compileBexpr returns the cached evaluator for expr, compiling it on first use.
func compileBexpr(expr string) (*bexpr.Evaluator, error) {
	if cached, ok := bexprCache.Load(expr); ok {
		return cached.(*bexpr.Evaluator), nil
	}

	evaluator, err := bexpr.CreateEvaluator(expr)
	if err != nil {
		return nil, fmt.Errorf("compile expression %q: %w", expr, err)
	}
	actual, _ := bexprCache.LoadOrStore(expr, evaluator)
	return actual.(*bexpr.Evaluator), nil
}

// EvaluateBexpr evaluates a go-bexpr expression against a flat attribute map.
// An empty expression never matches. Compile or evaluation errors (for example a
// selector naming a missing attribute) count as no match.
func EvaluateBexpr(expr string, attrs map[string]any) bool {
	if strings.TrimSpace(expr) == "" {
		return false
	}

	evaluator, err := compileBexpr(expr)
	if err != nil {
		return false
	}

	matches, err := evaluator.Evaluate(attrs)
	if err != nil {
		return false
	}
	return matches
}
