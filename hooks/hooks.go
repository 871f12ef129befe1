// Package hooks provides the hook interface for handling moderation events.
package hooks

import (
	"context"
)

// Hooks defines the interface for handling moderation events.
// Hook errors are logged by the client and never change a result.
type Hooks interface {
	// OnModerated is called after every moderation.
	OnModerated(ctx context.Context, e ModeratedEvent) error

	// OnRejected is called when content is not approved.
	OnRejected(ctx context.Context, e RejectedEvent) error

	// OnEscalated is called when the safety judge is consulted.
	OnEscalated(ctx context.Context, e EscalatedEvent) error
}

// NopHooks is a no-op implementation of Hooks.
type NopHooks struct{}

// OnModerated does nothing.
func (NopHooks) OnModerated(ctx context.Context, e ModeratedEvent) error { return nil }

// OnRejected does nothing.
func (NopHooks) OnRejected(ctx context.Context, e RejectedEvent) error { return nil }

// OnEscalated does nothing.
func (NopHooks) OnEscalated(ctx context.Context, e EscalatedEvent) error { return nil }

// Ensure NopHooks implements Hooks.
var _ Hooks = NopHooks{}

// ChainHooks chains multiple Hooks implementations.
type ChainHooks []Hooks

// OnModerated calls all hooks in order.
func (ch ChainHooks) OnModerated(ctx context.Context, e ModeratedEvent) error {
	for _, h := range ch {
		if err := h.OnModerated(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// OnRejected calls all hooks in order.
func (ch ChainHooks) OnRejected(ctx context.Context, e RejectedEvent) error {
	for _, h := range ch {
		if err := h.OnRejected(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// OnEscalated calls all hooks in order.
func (ch ChainHooks) OnEscalated(ctx context.Context, e EscalatedEvent) error {
	for _, h := range ch {
		if err := h.OnEscalated(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// FuncHooks allows using functions as hooks.
type FuncHooks struct {
	OnModeratedFunc func(ctx context.Context, e ModeratedEvent) error
	OnRejectedFunc  func(ctx context.Context, e RejectedEvent) error
	OnEscalatedFunc func(ctx context.Context, e EscalatedEvent) error
}

// OnModerated calls the function if set.
func (fh FuncHooks) OnModerated(ctx context.Context, e ModeratedEvent) error {
	if fh.OnModeratedFunc != nil {
		return fh.OnModeratedFunc(ctx, e)
	}
	return nil
}

// OnRejected calls the function if set.
func (fh FuncHooks) OnRejected(ctx context.Context, e RejectedEvent) error {
	if fh.OnRejectedFunc != nil {
		return fh.OnRejectedFunc(ctx, e)
	}
	return nil
}

// OnEscalated calls the function if set.
func (fh FuncHooks) OnEscalated(ctx context.Context, e EscalatedEvent) error {
	if fh.OnEscalatedFunc != nil {
		return fh.OnEscalatedFunc(ctx, e)
	}
	return nil
}
