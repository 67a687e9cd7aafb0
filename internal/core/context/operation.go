package context

import "context"

// Operation describes the ledger write a context is carrying out.
type Operation struct {
	// Name is the orchestrator entry point: "create" or "reconcile".
	Name string
	// TransactionType is the type being written, e.g. "OUT".
	TransactionType string
	// Attempt counts commit attempts from 1; zero before the first one.
	Attempt int
}

type operationKey struct{}

// WithOperation binds op to ctx.
func WithOperation(ctx context.Context, op Operation) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

// GetOperation returns the ledger operation bound to ctx.
func GetOperation(ctx context.Context) (Operation, bool) {
	op, ok := ctx.Value(operationKey{}).(Operation)
	return op, ok
}

// WithAttempt returns ctx with the attempt number of its operation replaced.
// Without an operation ctx is returned unchanged.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	op, ok := GetOperation(ctx)
	if !ok {
		return ctx
	}
	op.Attempt = attempt
	return WithOperation(ctx, op)
}
