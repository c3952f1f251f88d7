package order

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"backoffice/internal/core/apperror"
)

// TransitionPolicy decides whether an order may move between two statuses.
type TransitionPolicy interface {
	Allow(ctx context.Context, o *Order, next Status) error
}

// PermissivePolicy lets any status follow any other.
type PermissivePolicy struct{}

// Allow implements TransitionPolicy.
func (PermissivePolicy) Allow(context.Context, *Order, Status) error { return nil }

// TablePolicy allows only the listed next statuses for each current status.
// Moving to the current status is always allowed.
type TablePolicy map[Status][]Status

// DefaultTransitionTable is the forward lifecycle with cancellation, hold,
// refund and return branches.
func DefaultTransitionTable() TablePolicy {
	return TablePolicy{
		StatusDraft:      {StatusPending, StatusConfirmed, StatusCancelled},
		StatusPending:    {StatusConfirmed, StatusProcessing, StatusOnHold, StatusCancelled, StatusDraft},
		StatusConfirmed:  {StatusProcessing, StatusOnHold, StatusCancelled, StatusPending},
		StatusProcessing: {StatusShipped, StatusOnHold, StatusCancelled},
		StatusShipped:    {StatusDelivered, StatusReturned},
		StatusDelivered:  {StatusReturned, StatusRefunded},
		StatusOnHold:     {StatusPending, StatusConfirmed, StatusProcessing, StatusCancelled},
		StatusCancelled:  {StatusRefunded},
		StatusReturned:   {StatusRefunded},
		StatusRefunded:   {},
	}
}

// Allow implements TransitionPolicy.
func (t TablePolicy) Allow(_ context.Context, o *Order, next Status) error {
	if o.Status == next {
		return nil
	}
	for _, allowed := range t[o.Status] {
		if allowed == next {
			return nil
		}
	}
	return apperror.NewTransitionNotAllowed(string(o.Status), string(next))
}

// CELPolicy evaluates a boolean CEL expression over the variables
// from, to, kind (strings) and deducted (bool).
//
//	kind == "agent" || !(from == "delivered" && to == "pending")
type CELPolicy struct {
	expr    string
	program cel.Program
}

// NewCELPolicy compiles expr once.
func NewCELPolicy(expr string) (*CELPolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable("from", cel.StringType),
		cel.Variable("to", cel.StringType),
		cel.Variable("kind", cel.StringType),
		cel.Variable("deducted", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile transition rule: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("transition rule must evaluate to bool, got %s", ast.OutputType())
	}

	prg, err := env.Program(ast, cel.CostLimit(10000))
	if err != nil {
		return nil, fmt.Errorf("program transition rule: %w", err)
	}
	return &CELPolicy{expr: expr, program: prg}, nil
}

// Allow implements TransitionPolicy.
func (p *CELPolicy) Allow(ctx context.Context, o *Order, next Status) error {
	out, _, err := p.program.ContextEval(ctx, map[string]any{
		"from":     string(o.Status),
		"to":       string(next),
		"kind":     string(o.Kind),
		"deducted": o.StockDeducted,
	})
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("evaluate transition rule: %w", err))
	}

	allowed, ok := out.Value().(bool)
	if !ok || !allowed {
		return apperror.NewTransitionNotAllowed(string(o.Status), string(next)).
			WithDetail("rule", p.expr)
	}
	return nil
}
