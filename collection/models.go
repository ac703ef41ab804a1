package collection

import (
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/types"
)

// Collection is the shared ledger instance. Per-token supply and metadata
// live in the store keyed by (collection, token id), not on the struct.
type Collection struct {
	types.Entity
	ID id.ID `json:"id"`
}

// Cap authorizes mint and metadata mutation for exactly one Collection.
// The binding is set at creation and never changes; only Holder moves.
type Cap struct {
	types.Entity
	ID         id.ID  `json:"id"`
	Collection id.ID  `json:"collection"`
	Holder     string `json:"holder"`
}

// Authorizes reports whether the cap is bound to the given collection.
func (c *Cap) Authorizes(collectionID id.ID) bool {
	return c.Collection == collectionID
}
