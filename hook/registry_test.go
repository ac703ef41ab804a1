package hook

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/token"
)

// recorder implements Hook plus the audit interfaces and records calls.
type recorder struct {
	name      string
	mints     int
	burns     int
	transfers int
	err       error
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) OnMint(_ context.Context, _ *event.Event) error {
	r.mints++
	return r.err
}

func (r *recorder) OnBurn(_ context.Context, _ *event.Event) error {
	r.burns++
	return r.err
}

func (r *recorder) OnTransfer(_ context.Context, _ *event.Event) error {
	r.transfers++
	return r.err
}

// bare implements only Hook.
type bare struct{ name string }

func (b *bare) Name() string { return b.name }

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	h := &recorder{name: "audit"}
	if err := r.Register(h); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(&bare{name: "noop"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if r.Count() != 2 {
		t.Errorf("count = %d, want 2", r.Count())
	}
	if got := r.Get("audit"); got != Hook(h) {
		t.Errorf("Get returned %v", got)
	}
	if got := r.Get("missing"); got != nil {
		t.Errorf("Get for unknown name returned %v", got)
	}
	if len(r.List()) != 2 {
		t.Errorf("list length = %d, want 2", len(r.List()))
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&bare{name: "x"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(&bare{name: "x"}); err == nil {
		t.Error("duplicate registration accepted")
	}
}

func TestEmitDispatchesByInterface(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	h := &recorder{name: "audit"}
	if err := r.Register(h); err != nil {
		t.Fatal(err)
	}
	// A hook without audit interfaces never gets called.
	if err := r.Register(&bare{name: "noop"}); err != nil {
		t.Fatal(err)
	}

	ev := &event.Event{
		ID:         id.NewEventID(),
		Type:       event.TypeMint,
		Collection: id.NewCollectionID(),
		Token:      token.New(1, 1),
		Amount:     10,
	}

	r.EmitMint(ctx, ev)
	r.EmitMint(ctx, ev)
	r.EmitBurn(ctx, ev)
	r.EmitTransfer(ctx, ev)

	if h.mints != 2 {
		t.Errorf("mints = %d, want 2", h.mints)
	}
	if h.burns != 1 {
		t.Errorf("burns = %d, want 1", h.burns)
	}
	if h.transfers != 1 {
		t.Errorf("transfers = %d, want 1", h.transfers)
	}
}

func TestEmitSurvivesHookFailure(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	failing := &recorder{name: "failing", err: errors.New("boom")}
	healthy := &recorder{name: "healthy"}
	if err := r.Register(failing); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(healthy); err != nil {
		t.Fatal(err)
	}

	ev := &event.Event{
		ID:         id.NewEventID(),
		Type:       event.TypeMint,
		Collection: id.NewCollectionID(),
		Token:      token.New(1, 1),
		Amount:     10,
	}

	// A failing hook is logged and skipped, never propagated.
	r.EmitMint(ctx, ev)

	if failing.mints != 1 || healthy.mints != 1 {
		t.Errorf("mints = %d and %d, want 1 and 1", failing.mints, healthy.mints)
	}
}

func TestGetImplementedInterfaces(t *testing.T) {
	r := NewRegistry()

	got := r.getImplementedInterfaces(&recorder{name: "audit"})
	want := map[string]bool{"OnMint": true, "OnBurn": true, "OnTransfer": true}
	if len(got) != len(want) {
		t.Fatalf("interfaces = %v", got)
	}
	for _, name := range got {
		if !want[name] {
			t.Errorf("unexpected interface %s", name)
		}
	}

	if ifaces := r.getImplementedInterfaces(&bare{name: "noop"}); len(ifaces) != 0 {
		t.Errorf("bare hook interfaces = %v, want none", ifaces)
	}
}
