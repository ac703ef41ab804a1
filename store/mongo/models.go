package mongo

import (
	"time"

	"github.com/xraph/tokenledger/balance"
	"github.com/xraph/tokenledger/collection"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/token"
	"github.com/xraph/tokenledger/types"
)

// Amounts are stored as int64; the cast round-trips all uint64 values
// unchanged.

// ==================== Collection models ====================

type collectionModel struct {
	ID        string    `bson:"_id"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toCollectionModel(col *collection.Collection) *collectionModel {
	return &collectionModel{
		ID:        col.ID.String(),
		CreatedAt: col.CreatedAt,
		UpdatedAt: col.UpdatedAt,
	}
}

func fromCollectionModel(m *collectionModel) (*collection.Collection, error) {
	colID, err := id.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	return &collection.Collection{
		Entity: types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:     colID,
	}, nil
}

type capModel struct {
	ID           string    `bson:"_id"`
	CollectionID string    `bson:"collection_id"`
	Holder       string    `bson:"holder"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toCapModel(c *collection.Cap) *capModel {
	return &capModel{
		ID:           c.ID.String(),
		CollectionID: c.Collection.String(),
		Holder:       c.Holder,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func fromCapModel(m *capModel) (*collection.Cap, error) {
	capID, err := id.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	colID, err := id.Parse(m.CollectionID)
	if err != nil {
		return nil, err
	}
	return &collection.Cap{
		Entity:     types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:         capID,
		Collection: colID,
		Holder:     m.Holder,
	}, nil
}

// ==================== Supply / metadata models ====================

type supplyModel struct {
	CollectionID string `bson:"collection_id"`
	TokenID      string `bson:"token_id"`
	Total        int64  `bson:"total"`
}

type metadataModel struct {
	CollectionID string `bson:"collection_id"`
	TokenID      string `bson:"token_id"`
	Data         []byte `bson:"data"`
}

// ==================== Balance models ====================

type balanceModel struct {
	ID           string    `bson:"_id"`
	CollectionID string    `bson:"collection_id"`
	TokenID      string    `bson:"token_id"`
	Amount       int64     `bson:"amount"`
	Holder       string    `bson:"holder"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toBalanceModel(b *balance.Balance) *balanceModel {
	return &balanceModel{
		ID:           b.ID.String(),
		CollectionID: b.Collection.String(),
		TokenID:      b.Token.String(),
		Amount:       int64(b.Amount),
		Holder:       b.Holder,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func fromBalanceModel(m *balanceModel) (*balance.Balance, error) {
	balID, err := id.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	colID, err := id.Parse(m.CollectionID)
	if err != nil {
		return nil, err
	}
	tok, err := token.Parse(m.TokenID)
	if err != nil {
		return nil, err
	}
	return &balance.Balance{
		Entity:     types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:         balID,
		Collection: colID,
		Token:      tok,
		Amount:     uint64(m.Amount),
		Holder:     m.Holder,
	}, nil
}

// ==================== Event models ====================

type eventModel struct {
	ID           string    `bson:"_id"`
	CollectionID string    `bson:"collection_id"`
	Seq          int64     `bson:"seq"`
	Type         string    `bson:"type"`
	TokenID      string    `bson:"token_id"`
	From         string    `bson:"from,omitempty"`
	To           string    `bson:"to,omitempty"`
	Amount       int64     `bson:"amount"`
	CreatedAt    time.Time `bson:"created_at"`
}

func toEventModel(ev *event.Event) *eventModel {
	return &eventModel{
		ID:           ev.ID.String(),
		CollectionID: ev.Collection.String(),
		Seq:          int64(ev.Seq),
		Type:         string(ev.Type),
		TokenID:      ev.Token.String(),
		From:         ev.From,
		To:           ev.To,
		Amount:       int64(ev.Amount),
		CreatedAt:    ev.CreatedAt,
	}
}

func fromEventModel(m *eventModel) (*event.Event, error) {
	evID, err := id.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	colID, err := id.Parse(m.CollectionID)
	if err != nil {
		return nil, err
	}
	tok, err := token.Parse(m.TokenID)
	if err != nil {
		return nil, err
	}
	return &event.Event{
		Entity:     types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.CreatedAt},
		ID:         evID,
		Collection: colID,
		Token:      tok,
		Seq:        uint64(m.Seq),
		Type:       event.Type(m.Type),
		From:       m.From,
		To:         m.To,
		Amount:     uint64(m.Amount),
	}, nil
}
