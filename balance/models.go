package balance

import (
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/token"
	"github.com/xraph/tokenledger/types"
)

// Balance is an exclusively-held quantity of one token type under one
// collection. Amount only ever changes through the engine's split and join
// operations; Holder only through transfer.
type Balance struct {
	types.Entity
	ID         id.ID    `json:"id"`
	Collection id.ID    `json:"collection"`
	Token      token.ID `json:"token"`
	Amount     uint64   `json:"amount"`
	Holder     string   `json:"holder"`
}

// IsZero reports whether the record holds nothing.
func (b *Balance) IsZero() bool { return b.Amount == 0 }

// SameKind reports whether two records track the same token type under the
// same collection, i.e. whether they are joinable.
func (b *Balance) SameKind(other *Balance) bool {
	return b.Collection == other.Collection && b.Token == other.Token
}
