// Package memory provides an in-memory store.Store implementation,
// suitable for tests and embedded single-process use.
package memory

import (
	"context"
	"sync"

	tokenledger "github.com/xraph/tokenledger"
	"github.com/xraph/tokenledger/balance"
	"github.com/xraph/tokenledger/collection"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	ledgerstore "github.com/xraph/tokenledger/store"
	"github.com/xraph/tokenledger/token"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	collections map[string]*collection.Collection
	caps        map[string]*collection.Cap
	balances    map[string]*balance.Balance

	// Supply and metadata keyed by collectionID + "/" + tokenID.
	supply   map[string]uint64
	metadata map[string][]byte

	// Audit log per collection, append-only, with a per-collection
	// sequence counter.
	events map[string][]*event.Event
	seq    map[string]uint64

	closed bool
}

func New() *Store {
	return &Store{
		collections: make(map[string]*collection.Collection),
		caps:        make(map[string]*collection.Cap),
		balances:    make(map[string]*balance.Balance),
		supply:      make(map[string]uint64),
		metadata:    make(map[string][]byte),
		events:      make(map[string][]*event.Event),
		seq:         make(map[string]uint64),
	}
}

func tokenKey(collectionID id.ID, tok token.ID) string {
	return collectionID.String() + "/" + tok.String()
}

// ==================== Collection ====================

func (s *Store) CreateCollection(_ context.Context, col *collection.Collection, cap *collection.Cap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tokenledger.ErrStoreClosed
	}
	if _, exists := s.collections[col.ID.String()]; exists {
		return tokenledger.ErrAlreadyExists
	}
	if _, exists := s.caps[cap.ID.String()]; exists {
		return tokenledger.ErrAlreadyExists
	}

	colCopy := *col
	capCopy := *cap
	s.collections[col.ID.String()] = &colCopy
	s.caps[capCopy.ID.String()] = &capCopy
	return nil
}

func (s *Store) GetCollection(_ context.Context, collectionID id.ID) (*collection.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[collectionID.String()]
	if !ok {
		return nil, tokenledger.ErrCollectionNotFound
	}
	colCopy := *col
	return &colCopy, nil
}

func (s *Store) GetCap(_ context.Context, capID id.ID) (*collection.Cap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.caps[capID.String()]
	if !ok {
		return nil, tokenledger.ErrCapNotFound
	}
	capCopy := *c
	return &capCopy, nil
}

func (s *Store) UpdateCapHolder(_ context.Context, capID id.ID, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.caps[capID.String()]
	if !ok {
		return tokenledger.ErrCapNotFound
	}
	c.Holder = holder
	c.Touch()
	return nil
}

// ==================== Supply ====================

func (s *Store) TotalSupply(_ context.Context, collectionID id.ID, tok token.ID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Absence is zero.
	return s.supply[tokenKey(collectionID, tok)], nil
}

// ==================== Metadata ====================

func (s *Store) SetMetadata(_ context.Context, collectionID id.ID, tok token.ID, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tokenledger.ErrStoreClosed
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	s.metadata[tokenKey(collectionID, tok)] = buf
	return nil
}

func (s *Store) GetMetadata(_ context.Context, collectionID id.ID, tok token.ID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.metadata[tokenKey(collectionID, tok)]
	if !ok {
		return nil, tokenledger.ErrMetadataNotFound
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

func (s *Store) HasMetadata(_ context.Context, collectionID id.ID, tok token.ID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.metadata[tokenKey(collectionID, tok)]
	return ok, nil
}

// ==================== Balances ====================

func (s *Store) CreateBalance(_ context.Context, b *balance.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tokenledger.ErrStoreClosed
	}
	if _, exists := s.balances[b.ID.String()]; exists {
		return tokenledger.ErrAlreadyExists
	}

	bCopy := *b
	s.balances[b.ID.String()] = &bCopy
	return nil
}

func (s *Store) GetBalance(_ context.Context, balanceID id.ID) (*balance.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.balances[balanceID.String()]
	if !ok {
		return nil, tokenledger.ErrBalanceNotFound
	}
	bCopy := *b
	return &bCopy, nil
}

func (s *Store) ListBalances(_ context.Context, collectionID id.ID, tok token.ID) ([]*balance.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*balance.Balance, 0)
	for _, b := range s.balances {
		if b.Collection == collectionID && b.Token == tok {
			bCopy := *b
			result = append(result, &bCopy)
		}
	}
	return result, nil
}

func (s *Store) DeleteBalance(_ context.Context, balanceID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.balances[balanceID.String()]; !ok {
		return tokenledger.ErrBalanceNotFound
	}
	delete(s.balances, balanceID.String())
	return nil
}

// ==================== Composite commits ====================

func (s *Store) CommitMint(_ context.Context, b *balance.Balance, ev *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tokenledger.ErrStoreClosed
	}
	if _, exists := s.balances[b.ID.String()]; exists {
		return tokenledger.ErrAlreadyExists
	}

	s.supply[tokenKey(b.Collection, b.Token)] += ev.Amount
	bCopy := *b
	s.balances[b.ID.String()] = &bCopy
	s.appendEventLocked(ev)
	return nil
}

func (s *Store) CommitBurn(_ context.Context, b *balance.Balance, ev *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.balances[b.ID.String()]; !ok {
		return tokenledger.ErrBalanceNotFound
	}

	s.supply[tokenKey(b.Collection, b.Token)] -= ev.Amount
	delete(s.balances, b.ID.String())
	s.appendEventLocked(ev)
	return nil
}

func (s *Store) CommitTransfer(_ context.Context, balanceID id.ID, holder string, ev *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.balances[balanceID.String()]
	if !ok {
		return tokenledger.ErrBalanceNotFound
	}

	b.Holder = holder
	b.Touch()
	s.appendEventLocked(ev)
	return nil
}

func (s *Store) CommitSplit(_ context.Context, src *balance.Balance, part *balance.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.balances[src.ID.String()]
	if !ok {
		return tokenledger.ErrBalanceNotFound
	}
	if _, exists := s.balances[part.ID.String()]; exists {
		return tokenledger.ErrAlreadyExists
	}

	stored.Amount = src.Amount
	stored.Touch()
	partCopy := *part
	s.balances[part.ID.String()] = &partCopy
	return nil
}

func (s *Store) CommitJoin(_ context.Context, dst *balance.Balance, srcID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.balances[dst.ID.String()]
	if !ok {
		return tokenledger.ErrBalanceNotFound
	}
	if _, ok := s.balances[srcID.String()]; !ok {
		return tokenledger.ErrBalanceNotFound
	}

	stored.Amount = dst.Amount
	stored.Touch()
	delete(s.balances, srcID.String())
	return nil
}

// ==================== Events ====================

// appendEventLocked assigns the next per-collection sequence number and
// appends the event. Callers must hold s.mu.
func (s *Store) appendEventLocked(ev *event.Event) {
	key := ev.Collection.String()
	s.seq[key]++
	evCopy := *ev
	evCopy.Seq = s.seq[key]
	s.events[key] = append(s.events[key], &evCopy)
	ev.Seq = evCopy.Seq
}

func (s *Store) ListEvents(_ context.Context, collectionID id.ID, opts event.ListOpts) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*event.Event, 0)
	for _, ev := range s.events[collectionID.String()] {
		if opts.Token != nil && ev.Token != *opts.Token {
			continue
		}
		if opts.Type != "" && ev.Type != opts.Type {
			continue
		}
		if ev.Seq <= opts.AfterSeq {
			continue
		}
		evCopy := *ev
		result = append(result, &evCopy)
		if opts.Limit > 0 && len(result) >= opts.Limit {
			break
		}
	}
	return result, nil
}

// ==================== Core ====================

func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return tokenledger.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
