// Package hook provides an extensible hook system for TokenLedger.
// Hooks can observe ledger lifecycle events to extend functionality,
// e.g. off-chain indexing, audit trails, or metrics.
package hook

import (
	"context"

	"github.com/xraph/tokenledger/collection"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/token"
)

// Hook is the base interface that all hooks must implement.
type Hook interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the hook is initialized.
type OnInit interface {
	Hook
	OnInit(ctx context.Context, ledger interface{}) error
}

// OnShutdown is called when the engine is shutting down.
type OnShutdown interface {
	Hook
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Collection lifecycle hooks
// ──────────────────────────────────────────────────

// OnCollectionCreated is called when a collection and its capability are created.
type OnCollectionCreated interface {
	Hook
	OnCollectionCreated(ctx context.Context, col *collection.Collection, cap *collection.Cap) error
}

// OnCapTransferred is called when a capability changes holder.
type OnCapTransferred interface {
	Hook
	OnCapTransferred(ctx context.Context, cap *collection.Cap) error
}

// OnMetadataSet is called when token metadata is set or overwritten.
type OnMetadataSet interface {
	Hook
	OnMetadataSet(ctx context.Context, collectionID id.ID, tok token.ID, size int) error
}

// ──────────────────────────────────────────────────
// Ledger audit hooks
// ──────────────────────────────────────────────────

// OnMint is called after a mint commits.
type OnMint interface {
	Hook
	OnMint(ctx context.Context, ev *event.Event) error
}

// OnBurn is called after a burn commits.
type OnBurn interface {
	Hook
	OnBurn(ctx context.Context, ev *event.Event) error
}

// OnTransfer is called after a transfer commits.
type OnTransfer interface {
	Hook
	OnTransfer(ctx context.Context, ev *event.Event) error
}
