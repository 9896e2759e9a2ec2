package field

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/atomic"
)

const (
	prePrefix  = "pre:"
	postPrefix = "post:"
)

// Hook is one middleware step. Returning nil continues the chain, returning
// an error aborts it.
type Hook[T any] func(ctx context.Context, hctx T) error

// HookChain runs ordered pre/post handlers around an operation.
type HookChain[T any] struct {
	mu     sync.RWMutex
	phases map[string][]Hook[T]
	sealed atomic.Bool
}

func NewHookChain[T any]() *HookChain[T] {
	return &HookChain[T]{phases: make(map[string][]Hook[T])}
}

// Register appends hook to phase ("pre:<name>" or "post:<name>").
func (c *HookChain[T]) Register(phase string, hook Hook[T]) error {
	if hook == nil {
		return fmt.Errorf("hook for %q is nil", phase)
	}
	if !strings.HasPrefix(phase, prePrefix) && !strings.HasPrefix(phase, postPrefix) {
		return fmt.Errorf("invalid hook phase %q", phase)
	}
	if c.sealed.Load() {
		return fmt.Errorf("register %q: %w", phase, ErrHooksSealed)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.phases[phase] = append(c.phases[phase], hook)
	return nil
}

// Seal forbids further registration.
func (c *HookChain[T]) Seal() {
	c.sealed.Store(true)
}

func (c *HookChain[T]) Sealed() bool {
	return c.sealed.Load()
}

func (c *HookChain[T]) handlers(phase string) []Hook[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Hook[T](nil), c.phases[phase]...)
}

// Run executes the pre handlers of name, then op, then the post handlers.
// The first failure stops the chain and is returned as a *PhaseError.
// op is expected to store its result in hctx before post handlers run.
func (c *HookChain[T]) Run(ctx context.Context, name string, hctx T, op func(context.Context, T) error) error {
	if err := c.runPhase(ctx, prePrefix+name, hctx); err != nil {
		return err
	}

	if err := op(ctx, hctx); err != nil {
		return &PhaseError{Phase: name, Err: err}
	}

	return c.runPhase(ctx, postPrefix+name, hctx)
}

func (c *HookChain[T]) runPhase(ctx context.Context, phase string, hctx T) error {
	for _, hook := range c.handlers(phase) {
		if err := hook(ctx, hctx); err != nil {
			return &PhaseError{Phase: phase, Err: err}
		}
	}
	return nil
}
