package domain

import (
	"context"
	"fmt"
)

// Action enumerates the store mutations captured in a Change.
type Action string

// Change actions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change describes a single record mutation about to be committed.
// Before is nil for creates, After is nil for deletes.
type Change struct {
	Entity EntityType
	Action Action
	Before *FeatureRequest
	After  *FeatureRequest
}

// RecordID returns the id of the record the change applies to.
func (c Change) RecordID() string {
	if c.After != nil {
		return c.After.ID
	}
	if c.Before != nil {
		return c.Before.ID
	}
	return ""
}

// Rule defines an evaluation executed before a mutation is committed.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, change Change) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine with no rules registered.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// NewDefaultRulesEngine builds an engine enforcing the board's data invariants.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(EnumerationMembershipRule())
	engine.Register(CommentLinkageRule())
	engine.Register(CommentAppendOnlyRule())
	return engine
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rules in evaluation order.
func (e *RulesEngine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, change Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, change)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasViolations reports whether any rule failed.
func (r Result) HasViolations() bool {
	return len(r.Violations) > 0
}

// RuleViolationError is returned when a mutation breaks a registered rule.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	if len(e.Result.Violations) == 1 {
		v := e.Result.Violations[0]
		return fmt.Sprintf("mutation blocked by rule %s: %s", v.Rule, v.Message)
	}
	return fmt.Sprintf("mutation blocked by %d rule violations", len(e.Result.Violations))
}

// Is lets errors.Is(err, ErrValidation) match rule violations.
func (e RuleViolationError) Is(target error) bool {
	return target == ErrValidation
}

// RuleFunc adapts a function into a Rule.
type RuleFunc struct {
	RuleName string
	Fn       func(ctx context.Context, change Change) (Result, error)
}

// Name returns the rule name.
func (r RuleFunc) Name() string { return r.RuleName }

// Evaluate calls the wrapped function.
func (r RuleFunc) Evaluate(ctx context.Context, change Change) (Result, error) {
	return r.Fn(ctx, change)
}

func violation(rule string, change Change, msg string) Result {
	return Result{Violations: []Violation{{
		Rule:     rule,
		Message:  msg,
		Entity:   EntityFeatureRequest,
		EntityID: change.RecordID(),
	}}}
}

// EnumerationMembershipRule blocks persisting a status or priority outside its enumeration.
func EnumerationMembershipRule() Rule {
	const name = "enumeration_membership"
	return RuleFunc{RuleName: name, Fn: func(_ context.Context, change Change) (Result, error) {
		if change.After == nil {
			return Result{}, nil
		}
		var res Result
		if !change.After.Status.Valid() {
			res.Merge(violation(name, change, fmt.Sprintf("status %q is not a valid status", change.After.Status)))
		}
		if !change.After.Priority.Valid() {
			res.Merge(violation(name, change, fmt.Sprintf("priority %q is not a valid priority", change.After.Priority)))
		}
		return res, nil
	}}
}

// CommentLinkageRule blocks comments whose back-reference does not match their owner.
func CommentLinkageRule() Rule {
	const name = "comment_linkage"
	return RuleFunc{RuleName: name, Fn: func(_ context.Context, change Change) (Result, error) {
		if change.After == nil {
			return Result{}, nil
		}
		var res Result
		for _, c := range change.After.Comments {
			if c.FeatureRequestID != change.After.ID {
				res.Merge(violation(name, change, fmt.Sprintf("comment %q references %q", c.ID, c.FeatureRequestID)))
			}
		}
		return res, nil
	}}
}

// CommentAppendOnlyRule blocks updates that remove, reorder or edit existing comments.
func CommentAppendOnlyRule() Rule {
	const name = "comment_append_only"
	return RuleFunc{RuleName: name, Fn: func(_ context.Context, change Change) (Result, error) {
		if change.Action != ActionUpdate || change.Before == nil || change.After == nil {
			return Result{}, nil
		}
		before, after := change.Before.Comments, change.After.Comments
		if len(after) < len(before) {
			return violation(name, change, fmt.Sprintf("comments shrank from %d to %d", len(before), len(after))), nil
		}
		for i := range before {
			if before[i] != after[i] {
				return violation(name, change, fmt.Sprintf("comment %q was modified or reordered", before[i].ID)), nil
			}
		}
		return Result{}, nil
	}}
}
