// Package mongo provides a store.Store implementation backed by MongoDB.
//
// Composite commits run inside a session transaction, so the deployment
// must support them (replica set or sharded cluster).
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	tokenledger "github.com/xraph/tokenledger"
	"github.com/xraph/tokenledger/balance"
	"github.com/xraph/tokenledger/collection"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	ledgerstore "github.com/xraph/tokenledger/store"
	"github.com/xraph/tokenledger/token"
)

// Collection name constants.
const (
	colCollections = "ledger_collections"
	colCaps        = "ledger_caps"
	colSupply      = "ledger_supply"
	colMetadata    = "ledger_metadata"
	colBalances    = "ledger_balances"
	colEvents      = "ledger_events"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	db *mongo.Database
}

// New creates a new MongoDB store on the given database.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// Database returns the underlying database for direct access.
func (s *Store) Database() *mongo.Database { return s.db }

// Migrate creates indexes for all ledger collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()
	for col, models := range indexes {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("tokenledger/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close disconnects the underlying client.
func (s *Store) Close() error {
	return s.db.Client().Disconnect(context.Background())
}

// ==================== Collection ====================

func (s *Store) CreateCollection(ctx context.Context, col *collection.Collection, cap *collection.Cap) error {
	return s.inTxn(ctx, func(ctx context.Context) error {
		if _, err := s.db.Collection(colCollections).InsertOne(ctx, toCollectionModel(col)); err != nil {
			return fmt.Errorf("tokenledger/mongo: create collection: %w", err)
		}
		if _, err := s.db.Collection(colCaps).InsertOne(ctx, toCapModel(cap)); err != nil {
			return fmt.Errorf("tokenledger/mongo: create cap: %w", err)
		}
		return nil
	})
}

func (s *Store) GetCollection(ctx context.Context, collectionID id.ID) (*collection.Collection, error) {
	var m collectionModel
	err := s.db.Collection(colCollections).
		FindOne(ctx, bson.M{"_id": collectionID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tokenledger.ErrCollectionNotFound
		}
		return nil, fmt.Errorf("tokenledger/mongo: get collection: %w", err)
	}
	return fromCollectionModel(&m)
}

func (s *Store) GetCap(ctx context.Context, capID id.ID) (*collection.Cap, error) {
	var m capModel
	err := s.db.Collection(colCaps).
		FindOne(ctx, bson.M{"_id": capID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tokenledger.ErrCapNotFound
		}
		return nil, fmt.Errorf("tokenledger/mongo: get cap: %w", err)
	}
	return fromCapModel(&m)
}

func (s *Store) UpdateCapHolder(ctx context.Context, capID id.ID, holder string) error {
	result, err := s.db.Collection(colCaps).UpdateOne(ctx,
		bson.M{"_id": capID.String()},
		bson.M{"$set": bson.M{"holder": holder, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("tokenledger/mongo: update cap holder: %w", err)
	}
	if result.MatchedCount == 0 {
		return tokenledger.ErrCapNotFound
	}
	return nil
}

// ==================== Supply ====================

func (s *Store) TotalSupply(ctx context.Context, collectionID id.ID, tok token.ID) (uint64, error) {
	var m supplyModel
	err := s.db.Collection(colSupply).
		FindOne(ctx, supplyFilter(collectionID, tok)).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil // absence is zero
		}
		return 0, fmt.Errorf("tokenledger/mongo: total supply: %w", err)
	}
	return uint64(m.Total), nil
}

// addSupply adjusts the running total by delta, creating the document on
// first mint. Two's-complement wraparound in the int64 cast keeps uint64
// arithmetic exact.
func (s *Store) addSupply(ctx context.Context, collectionID id.ID, tok token.ID, delta int64) error {
	_, err := s.db.Collection(colSupply).UpdateOne(ctx,
		supplyFilter(collectionID, tok),
		bson.M{"$inc": bson.M{"total": delta}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("tokenledger/mongo: update supply: %w", err)
	}
	return nil
}

func supplyFilter(collectionID id.ID, tok token.ID) bson.M {
	return bson.M{"collection_id": collectionID.String(), "token_id": tok.String()}
}

// ==================== Metadata ====================

func (s *Store) SetMetadata(ctx context.Context, collectionID id.ID, tok token.ID, data []byte) error {
	_, err := s.db.Collection(colMetadata).UpdateOne(ctx,
		supplyFilter(collectionID, tok),
		bson.M{"$set": bson.M{"data": data}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("tokenledger/mongo: set metadata: %w", err)
	}
	return nil
}

func (s *Store) GetMetadata(ctx context.Context, collectionID id.ID, tok token.ID) ([]byte, error) {
	var m metadataModel
	err := s.db.Collection(colMetadata).
		FindOne(ctx, supplyFilter(collectionID, tok)).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tokenledger.ErrMetadataNotFound
		}
		return nil, fmt.Errorf("tokenledger/mongo: get metadata: %w", err)
	}
	return m.Data, nil
}

func (s *Store) HasMetadata(ctx context.Context, collectionID id.ID, tok token.ID) (bool, error) {
	n, err := s.db.Collection(colMetadata).CountDocuments(ctx, supplyFilter(collectionID, tok))
	if err != nil {
		return false, fmt.Errorf("tokenledger/mongo: has metadata: %w", err)
	}
	return n > 0, nil
}

// ==================== Balances ====================

func (s *Store) CreateBalance(ctx context.Context, b *balance.Balance) error {
	if _, err := s.db.Collection(colBalances).InsertOne(ctx, toBalanceModel(b)); err != nil {
		return fmt.Errorf("tokenledger/mongo: create balance: %w", err)
	}
	return nil
}

func (s *Store) GetBalance(ctx context.Context, balanceID id.ID) (*balance.Balance, error) {
	var m balanceModel
	err := s.db.Collection(colBalances).
		FindOne(ctx, bson.M{"_id": balanceID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tokenledger.ErrBalanceNotFound
		}
		return nil, fmt.Errorf("tokenledger/mongo: get balance: %w", err)
	}
	return fromBalanceModel(&m)
}

func (s *Store) ListBalances(ctx context.Context, collectionID id.ID, tok token.ID) ([]*balance.Balance, error) {
	cursor, err := s.db.Collection(colBalances).Find(ctx,
		bson.M{"collection_id": collectionID.String(), "token_id": tok.String()},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("tokenledger/mongo: list balances: %w", err)
	}
	defer cursor.Close(ctx)

	result := make([]*balance.Balance, 0)
	for cursor.Next(ctx) {
		var m balanceModel
		if err := cursor.Decode(&m); err != nil {
			return nil, fmt.Errorf("tokenledger/mongo: decode balance: %w", err)
		}
		b, err := fromBalanceModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, cursor.Err()
}

func (s *Store) DeleteBalance(ctx context.Context, balanceID id.ID) error {
	result, err := s.db.Collection(colBalances).DeleteOne(ctx, bson.M{"_id": balanceID.String()})
	if err != nil {
		return fmt.Errorf("tokenledger/mongo: delete balance: %w", err)
	}
	if result.DeletedCount == 0 {
		return tokenledger.ErrBalanceNotFound
	}
	return nil
}

// ==================== Composite commits ====================

func (s *Store) CommitMint(ctx context.Context, b *balance.Balance, ev *event.Event) error {
	return s.inTxn(ctx, func(ctx context.Context) error {
		if err := s.addSupply(ctx, b.Collection, b.Token, int64(ev.Amount)); err != nil {
			return err
		}
		if err := s.CreateBalance(ctx, b); err != nil {
			return err
		}
		return s.appendEvent(ctx, ev)
	})
}

func (s *Store) CommitBurn(ctx context.Context, b *balance.Balance, ev *event.Event) error {
	return s.inTxn(ctx, func(ctx context.Context) error {
		if err := s.DeleteBalance(ctx, b.ID); err != nil {
			return err
		}
		if err := s.addSupply(ctx, b.Collection, b.Token, -int64(ev.Amount)); err != nil {
			return err
		}
		return s.appendEvent(ctx, ev)
	})
}

func (s *Store) CommitTransfer(ctx context.Context, balanceID id.ID, holder string, ev *event.Event) error {
	return s.inTxn(ctx, func(ctx context.Context) error {
		result, err := s.db.Collection(colBalances).UpdateOne(ctx,
			bson.M{"_id": balanceID.String()},
			bson.M{"$set": bson.M{"holder": holder, "updated_at": time.Now().UTC()}},
		)
		if err != nil {
			return fmt.Errorf("tokenledger/mongo: transfer balance: %w", err)
		}
		if result.MatchedCount == 0 {
			return tokenledger.ErrBalanceNotFound
		}
		return s.appendEvent(ctx, ev)
	})
}

func (s *Store) CommitSplit(ctx context.Context, src *balance.Balance, part *balance.Balance) error {
	return s.inTxn(ctx, func(ctx context.Context) error {
		if err := s.setAmount(ctx, src); err != nil {
			return err
		}
		return s.CreateBalance(ctx, part)
	})
}

func (s *Store) CommitJoin(ctx context.Context, dst *balance.Balance, srcID id.ID) error {
	return s.inTxn(ctx, func(ctx context.Context) error {
		if err := s.setAmount(ctx, dst); err != nil {
			return err
		}
		return s.DeleteBalance(ctx, srcID)
	})
}

func (s *Store) setAmount(ctx context.Context, b *balance.Balance) error {
	result, err := s.db.Collection(colBalances).UpdateOne(ctx,
		bson.M{"_id": b.ID.String()},
		bson.M{"$set": bson.M{"amount": int64(b.Amount), "updated_at": b.UpdatedAt}},
	)
	if err != nil {
		return fmt.Errorf("tokenledger/mongo: update balance amount: %w", err)
	}
	if result.MatchedCount == 0 {
		return tokenledger.ErrBalanceNotFound
	}
	return nil
}

// ==================== Events ====================

// appendEvent assigns the next per-collection sequence number and inserts
// the event. The engine serializes writers per collection, so reading the
// current maximum cannot race.
func (s *Store) appendEvent(ctx context.Context, ev *event.Event) error {
	var last eventModel
	err := s.db.Collection(colEvents).FindOne(ctx,
		bson.M{"collection_id": ev.Collection.String()},
		options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}}),
	).Decode(&last)
	switch {
	case err == nil:
		ev.Seq = uint64(last.Seq) + 1
	case isNoDocuments(err):
		ev.Seq = 1
	default:
		return fmt.Errorf("tokenledger/mongo: next event seq: %w", err)
	}

	if _, err := s.db.Collection(colEvents).InsertOne(ctx, toEventModel(ev)); err != nil {
		return fmt.Errorf("tokenledger/mongo: append event: %w", err)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, collectionID id.ID, opts event.ListOpts) ([]*event.Event, error) {
	filter := bson.M{
		"collection_id": collectionID.String(),
		"seq":           bson.M{"$gt": int64(opts.AfterSeq)},
	}
	if opts.Token != nil {
		filter["token_id"] = opts.Token.String()
	}
	if opts.Type != "" {
		filter["type"] = string(opts.Type)
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}

	cursor, err := s.db.Collection(colEvents).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("tokenledger/mongo: list events: %w", err)
	}
	defer cursor.Close(ctx)

	result := make([]*event.Event, 0)
	for cursor.Next(ctx) {
		var m eventModel
		if err := cursor.Decode(&m); err != nil {
			return nil, fmt.Errorf("tokenledger/mongo: decode event: %w", err)
		}
		ev, err := fromEventModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, ev)
	}
	return result, cursor.Err()
}

// ==================== Helpers ====================

// inTxn runs fn inside a session transaction so multi-document commits are
// atomic.
func (s *Store) inTxn(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := s.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("tokenledger/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all ledger collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colCaps: {
			{Keys: bson.D{{Key: "collection_id", Value: 1}}},
			{Keys: bson.D{{Key: "holder", Value: 1}}},
		},
		colSupply: {
			{
				Keys:    bson.D{{Key: "collection_id", Value: 1}, {Key: "token_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colMetadata: {
			{
				Keys:    bson.D{{Key: "collection_id", Value: 1}, {Key: "token_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colBalances: {
			{Keys: bson.D{{Key: "collection_id", Value: 1}, {Key: "token_id", Value: 1}}},
			{Keys: bson.D{{Key: "holder", Value: 1}}},
		},
		colEvents: {
			{
				Keys:    bson.D{{Key: "collection_id", Value: 1}, {Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "collection_id", Value: 1}, {Key: "token_id", Value: 1}}},
		},
	}
}
