// Package rules provides the CEL-Go based indicator rule engine. Operators
// author rules as CEL expressions over customer aggregates; matching
// severity bands turn scores into fraud indicators alongside the built-in
// calculators.
package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Engine compiles and evaluates indicator rules. Safe for concurrent use;
// ReloadRules swaps the rule set atomically under the write lock.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	maxWorkers    int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Rule    *domain.IndicatorRule
	Program cel.Program
}

// NewEngine creates the rule engine with the customer-aggregate CEL
// environment.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	env, err := cel.NewEnv(
		cel.Variable("customer", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("total_spent", cel.DoubleType),
		cel.Variable("total_orders", cel.IntType),
		cel.Variable("avg_order_value", cel.DoubleType),
		cel.Variable("total_quantity", cel.IntType),
		cel.Variable("diversity_score", cel.DoubleType),
		cel.Variable("profile_completeness", cel.DoubleType),
		cel.Variable("activity_score", cel.DoubleType),
		cel.Variable("max_daily_txns", cel.IntType),
		cel.Variable("country", cel.StringType),
		cel.Variable("region", cel.StringType),
		cel.Variable("age", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		maxWorkers:    maxWorkers,
	}, nil
}

// ValidateRule compiles a rule without mutating the loaded set.
func (e *Engine) ValidateRule(rule *domain.IndicatorRule) error {
	if rule == nil {
		return fmt.Errorf("indicator rule is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(rule)
	return err
}

// LoadRule compiles and loads a single rule.
func (e *Engine) LoadRule(rule *domain.IndicatorRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(rule)
	if err != nil {
		return err
	}

	e.compiledRules[rule.ID] = compiled

	return nil
}

// LoadRules compiles and loads all enabled rules.
func (e *Engine) LoadRules(rules []*domain.IndicatorRule) error {
	for _, rule := range rules {
		if rule.Enabled {
			if err := e.LoadRule(rule); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReloadRules replaces the entire loaded rule set. A compile failure leaves
// the previous set untouched.
func (e *Engine) ReloadRules(rules []*domain.IndicatorRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}

		compiled, err := e.compileRule(rule)
		if err != nil {
			return err
		}
		newRules[rule.ID] = compiled
	}

	e.compiledRules = newRules

	return nil
}

// Evaluate runs every loaded rule against one customer aggregate and
// returns the raised indicators. Rules are evaluated in parallel, bounded
// by maxWorkers.
func (e *Engine) Evaluate(agg *domain.CustomerAggregate, profile *domain.CustomerProfile) []domain.FraudIndicator {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil
	}

	activation := buildActivation(agg, profile)

	results := make([]*domain.FraudIndicator, len(rules))
	var wg sync.WaitGroup

	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = evaluateRule(r, activation, agg.CustomerID)
		}(i, rule)
	}

	wg.Wait()

	indicators := make([]domain.FraudIndicator, 0, len(results))
	for _, ind := range results {
		if ind != nil {
			indicators = append(indicators, *ind)
		}
	}
	return indicators
}

// buildActivation flattens aggregate and profile fields into the CEL
// variable set.
func buildActivation(agg *domain.CustomerAggregate, profile *domain.CustomerProfile) map[string]any {
	country := ""
	age := 0
	if profile != nil {
		country = profile.Country
		age = profile.Age
	}

	return map[string]any{
		"customer": map[string]any{
			"id":           agg.CustomerID,
			"total_spent":  agg.TotalSpent,
			"total_orders": agg.TotalOrders,
			"country":      country,
			"region":       agg.Region,
		},
		"total_spent":          agg.TotalSpent,
		"total_orders":         int64(agg.TotalOrders),
		"avg_order_value":      agg.AvgOrderValue,
		"total_quantity":       int64(agg.TotalQuantity),
		"diversity_score":      agg.DiversityScore,
		"profile_completeness": agg.ProfileCompleteness,
		"activity_score":       agg.ActivityScore,
		"max_daily_txns":       int64(agg.MaxDailyTxns),
		"country":              country,
		"region":               agg.Region,
		"age":                  int64(age),
	}
}

// evaluateRule runs one rule and maps its score through the severity bands.
// A nil return means the rule did not fire.
func evaluateRule(rule *CompiledRule, activation map[string]any, customerID string) *domain.FraudIndicator {
	out, _, err := rule.Program.Eval(activation)
	if err != nil {
		// Missing-variable and type errors are treated as non-matching
		// rather than failing the whole customer.
		return nil
	}

	score := toScore(out)

	band := matchBand(score, rule.Rule.Bands)
	if band == nil {
		return nil
	}

	return &domain.FraudIndicator{
		CustomerID:          customerID,
		IndicatorType:       rule.Rule.Name,
		Severity:            band.Severity,
		Confidence:          band.Confidence,
		Description:         band.Reason,
		ContributingFactors: rule.Rule.ContributingFactors,
	}
}

// toScore converts a CEL value to a numeric score.
func toScore(val ref.Val) float64 {
	switch v := val.(type) {
	case types.Bool:
		if v {
			return 1.0
		}
		return 0.0
	case types.Double:
		return float64(v)
	case types.Int:
		return float64(v)
	default:
		return 0.0
	}
}

// matchBand finds the first band containing the score. Lower bound is
// inclusive, upper exclusive; a nil upper bound means +inf.
func matchBand(score float64, bands []domain.SeverityBand) *domain.SeverityBand {
	for i := range bands {
		band := &bands[i]

		lower := 0.0
		if band.LowerLimit != nil {
			lower = *band.LowerLimit
		}
		if score < lower {
			continue
		}
		if band.UpperLimit != nil && score >= *band.UpperLimit {
			continue
		}
		return band
	}
	return nil
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// GetLoadedRules returns the currently loaded rules.
func (e *Engine) GetLoadedRules() []*domain.IndicatorRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.IndicatorRule, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Rule)
	}
	return rules
}

// Close clears the loaded rule set.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(rule *domain.IndicatorRule) (*CompiledRule, error) {
	if rule.ID == "" {
		return nil, fmt.Errorf("rule id is required")
	}
	if len(rule.Bands) == 0 {
		return nil, fmt.Errorf("rule %s: at least one severity band is required", rule.ID)
	}

	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", rule.ID, issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.BoolType && outputType != cel.DoubleType && outputType != cel.IntType {
		return nil, fmt.Errorf("rule %s: expression must return bool, int, or double, got %s", rule.ID, outputType)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", rule.ID, err)
	}

	return &CompiledRule{
		Rule:    rule,
		Program: program,
	}, nil
}
