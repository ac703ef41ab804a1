package memory

import (
	"context"
	"errors"
	"testing"

	tokenledger "github.com/xraph/tokenledger"
	"github.com/xraph/tokenledger/balance"
	"github.com/xraph/tokenledger/collection"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/token"
)

func testCollection() (*collection.Collection, *collection.Cap) {
	col := &collection.Collection{
		Entity: tokenledger.NewEntity(),
		ID:     id.NewCollectionID(),
	}
	cap := &collection.Cap{
		Entity:     tokenledger.NewEntity(),
		ID:         id.NewCapID(),
		Collection: col.ID,
		Holder:     "alice",
	}
	return col, cap
}

func testBalance(collectionID id.ID, tok token.ID, amount uint64) *balance.Balance {
	return &balance.Balance{
		Entity:     tokenledger.NewEntity(),
		ID:         id.NewBalanceID(),
		Collection: collectionID,
		Token:      tok,
		Amount:     amount,
		Holder:     "alice",
	}
}

func mintEvent(collectionID id.ID, tok token.ID, amount uint64) *event.Event {
	return &event.Event{
		Entity:     tokenledger.NewEntity(),
		ID:         id.NewEventID(),
		Type:       event.TypeMint,
		Collection: collectionID,
		Token:      tok,
		To:         "alice",
		Amount:     amount,
	}
}

func TestCollectionLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	col, cap := testCollection()

	if err := s.CreateCollection(ctx, col, cap); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateCollection(ctx, col, cap); !errors.Is(err, tokenledger.ErrAlreadyExists) {
		t.Errorf("duplicate create: err = %v, want ErrAlreadyExists", err)
	}

	got, err := s.GetCollection(ctx, col.ID)
	if err != nil {
		t.Fatalf("get collection: %v", err)
	}
	if got.ID != col.ID {
		t.Errorf("id = %s, want %s", got.ID, col.ID)
	}

	gotCap, err := s.GetCap(ctx, cap.ID)
	if err != nil {
		t.Fatalf("get cap: %v", err)
	}
	if gotCap.Holder != "alice" {
		t.Errorf("holder = %q, want alice", gotCap.Holder)
	}

	if err := s.UpdateCapHolder(ctx, cap.ID, "bob"); err != nil {
		t.Fatalf("update holder: %v", err)
	}
	gotCap, _ = s.GetCap(ctx, cap.ID)
	if gotCap.Holder != "bob" {
		t.Errorf("holder = %q after update, want bob", gotCap.Holder)
	}

	if _, err := s.GetCollection(ctx, id.NewCollectionID()); !errors.Is(err, tokenledger.ErrCollectionNotFound) {
		t.Errorf("missing collection: err = %v", err)
	}
	if err := s.UpdateCapHolder(ctx, id.NewCapID(), "x"); !errors.Is(err, tokenledger.ErrCapNotFound) {
		t.Errorf("missing cap: err = %v", err)
	}
}

func TestSupplyAbsenceIsZero(t *testing.T) {
	s := New()
	ctx := context.Background()

	supply, err := s.TotalSupply(ctx, id.NewCollectionID(), token.New(1, 1))
	if err != nil {
		t.Fatalf("total supply: %v", err)
	}
	if supply != 0 {
		t.Errorf("supply = %d, want 0", supply)
	}
}

func TestMetadataAbsenceIsError(t *testing.T) {
	s := New()
	ctx := context.Background()
	colID := id.NewCollectionID()
	tok := token.New(1, 1)

	if _, err := s.GetMetadata(ctx, colID, tok); !errors.Is(err, tokenledger.ErrMetadataNotFound) {
		t.Errorf("unset metadata: err = %v, want ErrMetadataNotFound", err)
	}

	if err := s.SetMetadata(ctx, colID, tok, []byte("hello")); err != nil {
		t.Fatalf("set: %v", err)
	}

	data, err := s.GetMetadata(ctx, colID, tok)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("data = %q", data)
	}

	// Returned slice is a copy.
	data[0] = 'X'
	data, _ = s.GetMetadata(ctx, colID, tok)
	if string(data) != "hello" {
		t.Errorf("stored data mutated through returned slice: %q", data)
	}

	// Empty blob is set, not absent.
	if err := s.SetMetadata(ctx, colID, tok, nil); err != nil {
		t.Fatalf("set empty: %v", err)
	}
	has, _ := s.HasMetadata(ctx, colID, tok)
	if !has {
		t.Error("has = false after setting empty blob")
	}
	if _, err := s.GetMetadata(ctx, colID, tok); err != nil {
		t.Errorf("get empty blob: %v", err)
	}
}

func TestCommitMint(t *testing.T) {
	s := New()
	ctx := context.Background()
	col, cap := testCollection()
	if err := s.CreateCollection(ctx, col, cap); err != nil {
		t.Fatal(err)
	}
	tok := token.New(5, 9)

	b := testBalance(col.ID, tok, 100)
	ev := mintEvent(col.ID, tok, 100)

	if err := s.CommitMint(ctx, b, ev); err != nil {
		t.Fatalf("commit mint: %v", err)
	}
	if ev.Seq != 1 {
		t.Errorf("seq = %d, want 1", ev.Seq)
	}

	supply, _ := s.TotalSupply(ctx, col.ID, tok)
	if supply != 100 {
		t.Errorf("supply = %d, want 100", supply)
	}

	got, err := s.GetBalance(ctx, b.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if got.Amount != 100 {
		t.Errorf("amount = %d, want 100", got.Amount)
	}

	events, _ := s.ListEvents(ctx, col.ID, event.ListOpts{})
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
}

func TestCommitBurn(t *testing.T) {
	s := New()
	ctx := context.Background()
	col, cap := testCollection()
	if err := s.CreateCollection(ctx, col, cap); err != nil {
		t.Fatal(err)
	}
	tok := token.New(5, 9)

	b := testBalance(col.ID, tok, 100)
	if err := s.CommitMint(ctx, b, mintEvent(col.ID, tok, 100)); err != nil {
		t.Fatal(err)
	}

	burnEv := &event.Event{
		Entity:     tokenledger.NewEntity(),
		ID:         id.NewEventID(),
		Type:       event.TypeBurn,
		Collection: col.ID,
		Token:      tok,
		From:       "alice",
		Amount:     100,
	}
	if err := s.CommitBurn(ctx, b, burnEv); err != nil {
		t.Fatalf("commit burn: %v", err)
	}
	if burnEv.Seq != 2 {
		t.Errorf("seq = %d, want 2", burnEv.Seq)
	}

	supply, _ := s.TotalSupply(ctx, col.ID, tok)
	if supply != 0 {
		t.Errorf("supply = %d, want 0", supply)
	}
	if _, err := s.GetBalance(ctx, b.ID); !errors.Is(err, tokenledger.ErrBalanceNotFound) {
		t.Errorf("burned balance: err = %v", err)
	}

	if err := s.CommitBurn(ctx, b, burnEv); !errors.Is(err, tokenledger.ErrBalanceNotFound) {
		t.Errorf("double burn: err = %v, want ErrBalanceNotFound", err)
	}
}

func TestCommitSplitAndJoin(t *testing.T) {
	s := New()
	ctx := context.Background()
	col, cap := testCollection()
	if err := s.CreateCollection(ctx, col, cap); err != nil {
		t.Fatal(err)
	}
	tok := token.New(5, 9)

	src := testBalance(col.ID, tok, 100)
	if err := s.CommitMint(ctx, src, mintEvent(col.ID, tok, 100)); err != nil {
		t.Fatal(err)
	}

	src.Amount = 70
	part := testBalance(col.ID, tok, 30)
	if err := s.CommitSplit(ctx, src, part); err != nil {
		t.Fatalf("commit split: %v", err)
	}

	got, _ := s.GetBalance(ctx, src.ID)
	if got.Amount != 70 {
		t.Errorf("src amount = %d, want 70", got.Amount)
	}
	got, _ = s.GetBalance(ctx, part.ID)
	if got.Amount != 30 {
		t.Errorf("part amount = %d, want 30", got.Amount)
	}

	src.Amount = 100
	if err := s.CommitJoin(ctx, src, part.ID); err != nil {
		t.Fatalf("commit join: %v", err)
	}
	got, _ = s.GetBalance(ctx, src.ID)
	if got.Amount != 100 {
		t.Errorf("src amount = %d after join, want 100", got.Amount)
	}
	if _, err := s.GetBalance(ctx, part.ID); !errors.Is(err, tokenledger.ErrBalanceNotFound) {
		t.Errorf("joined part: err = %v", err)
	}

	// Rebalancing is invisible to supply and the audit trail.
	supply, _ := s.TotalSupply(ctx, col.ID, tok)
	if supply != 100 {
		t.Errorf("supply = %d, want 100", supply)
	}
	events, _ := s.ListEvents(ctx, col.ID, event.ListOpts{})
	if len(events) != 1 {
		t.Errorf("got %d events, want 1", len(events))
	}
}

func TestListEventsFilters(t *testing.T) {
	s := New()
	ctx := context.Background()
	col, cap := testCollection()
	if err := s.CreateCollection(ctx, col, cap); err != nil {
		t.Fatal(err)
	}
	tokA := token.New(1, 1)
	tokB := token.New(1, 2)

	for _, tok := range []token.ID{tokA, tokB, tokA} {
		b := testBalance(col.ID, tok, 10)
		if err := s.CommitMint(ctx, b, mintEvent(col.ID, tok, 10)); err != nil {
			t.Fatal(err)
		}
	}

	all, _ := s.ListEvents(ctx, col.ID, event.ListOpts{})
	if len(all) != 3 {
		t.Fatalf("got %d events, want 3", len(all))
	}
	for i, ev := range all {
		if ev.Seq != uint64(i+1) {
			t.Errorf("event %d seq = %d, want %d", i, ev.Seq, i+1)
		}
	}

	byToken, _ := s.ListEvents(ctx, col.ID, event.ListOpts{Token: &tokA})
	if len(byToken) != 2 {
		t.Errorf("token filter: got %d, want 2", len(byToken))
	}

	after, _ := s.ListEvents(ctx, col.ID, event.ListOpts{AfterSeq: 1})
	if len(after) != 2 {
		t.Errorf("AfterSeq 1: got %d, want 2", len(after))
	}

	limited, _ := s.ListEvents(ctx, col.ID, event.ListOpts{Limit: 1})
	if len(limited) != 1 || limited[0].Seq != 1 {
		t.Errorf("Limit 1: got %d events", len(limited))
	}
}

func TestCopyOnReadWrite(t *testing.T) {
	s := New()
	ctx := context.Background()
	col, cap := testCollection()
	if err := s.CreateCollection(ctx, col, cap); err != nil {
		t.Fatal(err)
	}

	// Mutating the caller's struct after a write must not leak in.
	cap.Holder = "mallory"
	got, _ := s.GetCap(ctx, cap.ID)
	if got.Holder != "alice" {
		t.Errorf("holder = %q, want alice", got.Holder)
	}

	// Mutating a read result must not leak back.
	got.Holder = "mallory"
	got, _ = s.GetCap(ctx, cap.ID)
	if got.Holder != "alice" {
		t.Errorf("holder = %q after read mutation, want alice", got.Holder)
	}
}

func TestClose(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, tokenledger.ErrStoreClosed) {
		t.Errorf("ping after close: err = %v, want ErrStoreClosed", err)
	}

	col, cap := testCollection()
	if err := s.CreateCollection(ctx, col, cap); !errors.Is(err, tokenledger.ErrStoreClosed) {
		t.Errorf("create after close: err = %v, want ErrStoreClosed", err)
	}
}
