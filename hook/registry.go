package hook

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/tokenledger/collection"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/token"
)

// Registry manages all registered hooks and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu     sync.RWMutex
	hooks  []Hook
	logger *slog.Logger

	// Type-cached hook lists for efficient dispatch
	onInit              []OnInit
	onShutdown          []OnShutdown
	onCollectionCreated []OnCollectionCreated
	onCapTransferred    []OnCapTransferred
	onMetadataSet       []OnMetadataSet
	onMint              []OnMint
	onBurn              []OnBurn
	onTransfer          []OnTransfer
}

// NewRegistry creates a new hook registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a hook to the registry and caches its interfaces.
func (r *Registry) Register(h Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.hooks {
		if existing.Name() == h.Name() {
			return fmt.Errorf("hook: duplicate registration: %s", h.Name())
		}
	}

	r.hooks = append(r.hooks, h)

	// Type-switch to cache interfaces
	if v, ok := h.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := h.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := h.(OnCollectionCreated); ok {
		r.onCollectionCreated = append(r.onCollectionCreated, v)
	}
	if v, ok := h.(OnCapTransferred); ok {
		r.onCapTransferred = append(r.onCapTransferred, v)
	}
	if v, ok := h.(OnMetadataSet); ok {
		r.onMetadataSet = append(r.onMetadataSet, v)
	}
	if v, ok := h.(OnMint); ok {
		r.onMint = append(r.onMint, v)
	}
	if v, ok := h.(OnBurn); ok {
		r.onBurn = append(r.onBurn, v)
	}
	if v, ok := h.(OnTransfer); ok {
		r.onTransfer = append(r.onTransfer, v)
	}

	r.logger.Info("hook registered",
		"name", h.Name(),
		"interfaces", r.getImplementedInterfaces(h),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the hook.
func (r *Registry) getImplementedInterfaces(h Hook) []string {
	var interfaces []string
	v := reflect.TypeOf(h)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnCollectionCreated)(nil)).Elem(), "OnCollectionCreated")
	checkInterface(reflect.TypeOf((*OnCapTransferred)(nil)).Elem(), "OnCapTransferred")
	checkInterface(reflect.TypeOf((*OnMetadataSet)(nil)).Elem(), "OnMetadataSet")
	checkInterface(reflect.TypeOf((*OnMint)(nil)).Elem(), "OnMint")
	checkInterface(reflect.TypeOf((*OnBurn)(nil)).Elem(), "OnBurn")
	checkInterface(reflect.TypeOf((*OnTransfer)(nil)).Elem(), "OnTransfer")

	return interfaces
}

// Get returns a hook by name.
func (r *Registry) Get(name string) Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.hooks {
		if h.Name() == name {
			return h
		}
	}
	return nil
}

// List returns all registered hooks.
func (r *Registry) List() []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Hook, len(r.hooks))
	copy(result, r.hooks)
	return result
}

// Count returns the number of registered hooks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all hooks that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	hooks := r.onInit
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnInit(ctx, ledger)
		}); err != nil {
			r.logger.Warn("hook OnInit failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all hooks that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	hooks := r.onShutdown
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("hook OnShutdown failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitCollectionCreated emits a collection created event.
func (r *Registry) EmitCollectionCreated(ctx context.Context, col *collection.Collection, cap *collection.Cap) {
	r.mu.RLock()
	hooks := r.onCollectionCreated
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnCollectionCreated(ctx, col, cap)
		}); err != nil {
			r.logger.Warn("hook OnCollectionCreated failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitCapTransferred emits a capability transferred event.
func (r *Registry) EmitCapTransferred(ctx context.Context, cap *collection.Cap) {
	r.mu.RLock()
	hooks := r.onCapTransferred
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnCapTransferred(ctx, cap)
		}); err != nil {
			r.logger.Warn("hook OnCapTransferred failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitMetadataSet emits a metadata set event.
func (r *Registry) EmitMetadataSet(ctx context.Context, collectionID id.ID, tok token.ID, size int) {
	r.mu.RLock()
	hooks := r.onMetadataSet
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnMetadataSet(ctx, collectionID, tok, size)
		}); err != nil {
			r.logger.Warn("hook OnMetadataSet failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitMint emits a mint audit event.
func (r *Registry) EmitMint(ctx context.Context, ev *event.Event) {
	r.mu.RLock()
	hooks := r.onMint
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnMint(ctx, ev)
		}); err != nil {
			r.logger.Warn("hook OnMint failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitBurn emits a burn audit event.
func (r *Registry) EmitBurn(ctx context.Context, ev *event.Event) {
	r.mu.RLock()
	hooks := r.onBurn
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnBurn(ctx, ev)
		}); err != nil {
			r.logger.Warn("hook OnBurn failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitTransfer emits a transfer audit event.
func (r *Registry) EmitTransfer(ctx context.Context, ev *event.Event) {
	r.mu.RLock()
	hooks := r.onTransfer
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnTransfer(ctx, ev)
		}); err != nil {
			r.logger.Warn("hook OnTransfer failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a hook function with a timeout.
// Hooks observe the ledger; they must never block it.
func (r *Registry) callWithTimeout(ctx context.Context, hookName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("hook timeout: %s", hookName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
