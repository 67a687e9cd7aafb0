package domain

import (
	"context"
	"sync"

	"stockledger/pkg/logger"
)

// Hook is a function that runs after a write unit has committed.
type Hook[T any] func(ctx context.Context, event T)

// HookRegistry stores post-commit hooks for an event type.
// Hooks run synchronously in registration order; a panicking hook is logged
// and does not affect the others.
type HookRegistry[T any] struct {
	mu    sync.RWMutex
	hooks []Hook[T]
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry[T any]() *HookRegistry[T] {
	return &HookRegistry[T]{}
}

// On registers a hook.
func (r *HookRegistry[T]) On(hook Hook[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// Len returns the number of registered hooks.
func (r *HookRegistry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}

// Run executes all hooks with event.
func (r *HookRegistry[T]) Run(ctx context.Context, event T) {
	r.mu.RLock()
	hooks := make([]Hook[T], len(r.hooks))
	copy(hooks, r.hooks)
	r.mu.RUnlock()

	for i, hook := range hooks {
		runHook(ctx, i, hook, event)
	}
}

func runHook[T any](ctx context.Context, index int, hook Hook[T], event T) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error(ctx, "post-commit hook panicked", "hook", index, "panic", rec)
		}
	}()
	hook(ctx, event)
}
