package event

import (
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/token"
	"github.com/xraph/tokenledger/types"
)

type Type string

const (
	TypeMint     Type = "mint"
	TypeBurn     Type = "burn"
	TypeTransfer Type = "transfer"
)

// Event is a durable audit record. Seq is assigned by the store in
// commit order and is strictly increasing per collection.
type Event struct {
	types.Entity
	ID         id.ID    `json:"id"`
	Type       Type     `json:"type"`
	Collection id.ID    `json:"collection"`
	Token      token.ID `json:"token"`
	From       string   `json:"from,omitempty"`
	To         string   `json:"to,omitempty"`
	Amount     uint64   `json:"amount"`
	Seq        uint64   `json:"seq"`
}

// ListOpts controls event queries.
type ListOpts struct {
	Token    *token.ID // nil matches all token types
	Type     Type      // empty matches all event types
	AfterSeq uint64    // only events with Seq > AfterSeq
	Limit    int       // 0 means no limit
}

// ReplaySupply folds the audit trail into the total supply of one token
// type: mints add, burns subtract, transfers are neutral. The result must
// agree with the ledger's direct supply lookup at every quiescent point.
func ReplaySupply(events []*Event, tok token.ID) uint64 {
	var total uint64
	for _, ev := range events {
		if ev.Token != tok {
			continue
		}
		switch ev.Type {
		case TypeMint:
			total += ev.Amount
		case TypeBurn:
			total -= ev.Amount
		case TypeTransfer:
		}
	}
	return total
}
