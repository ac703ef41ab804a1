// Package store defines the unified storage interface for TokenLedger.
//
// Drivers persist collections, capabilities, balances, per-token supply,
// per-token metadata, and the audit event log. The engine serializes all
// mutations on a collection, so a driver's single obligation beyond plain
// CRUD is that each Commit* method applies its full effect set atomically:
// a reader never observes a supply total without its balance record, or an
// event without the state change it describes.
package store

import (
	"context"

	"github.com/xraph/tokenledger/balance"
	"github.com/xraph/tokenledger/collection"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/token"
)

// Store is the unified storage interface for all TokenLedger entities.
type Store interface {
	// Collection methods
	CreateCollection(ctx context.Context, col *collection.Collection, cap *collection.Cap) error
	GetCollection(ctx context.Context, collectionID id.ID) (*collection.Collection, error)
	GetCap(ctx context.Context, capID id.ID) (*collection.Cap, error)
	UpdateCapHolder(ctx context.Context, capID id.ID, holder string) error

	// Supply methods. Absence is zero, never an error.
	TotalSupply(ctx context.Context, collectionID id.ID, tok token.ID) (uint64, error)

	// Metadata methods. Absence IS an error on Get: blank metadata is
	// meaningfully different from no metadata.
	SetMetadata(ctx context.Context, collectionID id.ID, tok token.ID, data []byte) error
	GetMetadata(ctx context.Context, collectionID id.ID, tok token.ID) ([]byte, error)
	HasMetadata(ctx context.Context, collectionID id.ID, tok token.ID) (bool, error)

	// Balance methods
	CreateBalance(ctx context.Context, b *balance.Balance) error
	GetBalance(ctx context.Context, balanceID id.ID) (*balance.Balance, error)
	ListBalances(ctx context.Context, collectionID id.ID, tok token.ID) ([]*balance.Balance, error)
	DeleteBalance(ctx context.Context, balanceID id.ID) error

	// Composite commits. Each applies the full effect set of one ledger
	// operation atomically.
	CommitMint(ctx context.Context, b *balance.Balance, ev *event.Event) error
	CommitBurn(ctx context.Context, b *balance.Balance, ev *event.Event) error
	CommitTransfer(ctx context.Context, balanceID id.ID, holder string, ev *event.Event) error
	CommitSplit(ctx context.Context, src *balance.Balance, part *balance.Balance) error
	CommitJoin(ctx context.Context, dst *balance.Balance, srcID id.ID) error

	// Event methods
	ListEvents(ctx context.Context, collectionID id.ID, opts event.ListOpts) ([]*event.Event, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
