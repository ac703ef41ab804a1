package tokenledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/xraph/tokenledger/balance"
	"github.com/xraph/tokenledger/collection"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/hook"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/store"
	"github.com/xraph/tokenledger/token"
)

// Ledger is the multi-token accounting engine. A single Ledger serves any
// number of collections; every mutation on a collection is serialized
// against all other mutations on the same collection, standing in for the
// host runtime's transaction ordering.
type Ledger struct {
	store  store.Store
	hooks  *hook.Registry
	logger *slog.Logger

	// Per-collection mutation locks. Reads go straight to the store.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  s,
		hooks:  hook.NewRegistry(),
		logger: slog.Default(),
		locks:  make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.hooks.WithLogger(logger)
	}
}

// WithHook registers a hook.
func WithHook(h hook.Hook) Option {
	return func(l *Ledger) {
		_ = l.hooks.Register(h) //nolint:errcheck // best-effort hook registration during init
	}
}

// Start migrates the store and initializes hooks.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	l.hooks.EmitInit(ctx, l)

	l.logger.Info("token ledger started", "hooks", l.hooks.Count())

	return nil
}

// Stop shuts down the Ledger.
func (l *Ledger) Stop() error {
	l.hooks.EmitShutdown(context.Background())

	return l.store.Close()
}

// lockCollection acquires the mutation lock for one collection. The
// returned func releases it.
func (l *Ledger) lockCollection(collectionID id.ID) func() {
	l.mu.Lock()
	lk, ok := l.locks[collectionID.String()]
	if !ok {
		lk = &sync.Mutex{}
		l.locks[collectionID.String()] = lk
	}
	l.mu.Unlock()

	lk.Lock()
	return lk.Unlock
}

// ──────────────────────────────────────────────────
// Collection Management
// ──────────────────────────────────────────────────

// CreateCollection creates a collection and its single capability as one
// indivisible unit. The capability is handed to the acting identity.
func (l *Ledger) CreateCollection(ctx context.Context) (*collection.Collection, *collection.Cap, error) {
	actor := ActorFrom(ctx)
	if actor == "" {
		return nil, nil, fmt.Errorf("%w: no acting identity on context", ErrInvalidInput)
	}

	col := &collection.Collection{
		Entity: NewEntity(),
		ID:     id.NewCollectionID(),
	}
	cap := &collection.Cap{
		Entity:     NewEntity(),
		ID:         id.NewCapID(),
		Collection: col.ID,
		Holder:     actor,
	}

	if err := l.store.CreateCollection(ctx, col, cap); err != nil {
		return nil, nil, err
	}

	l.hooks.EmitCollectionCreated(ctx, col, cap)
	l.logger.Info("collection created",
		"collection", col.ID,
		"cap", cap.ID,
		"holder", actor,
	)

	return col, cap, nil
}

// TransferCap delegates mint and metadata authority by handing the
// capability to another identity. Only the current holder may transfer it.
func (l *Ledger) TransferCap(ctx context.Context, capID id.ID, recipient string) error {
	cap, err := l.authorizeCapHolder(ctx, capID)
	if err != nil {
		return err
	}

	unlock := l.lockCollection(cap.Collection)
	defer unlock()

	if err := l.store.UpdateCapHolder(ctx, capID, recipient); err != nil {
		return err
	}

	cap.Holder = recipient
	l.hooks.EmitCapTransferred(ctx, cap)
	return nil
}

// ──────────────────────────────────────────────────
// Minting
// ──────────────────────────────────────────────────

// MintBalance creates new supply of one token type and returns the fresh
// record, held by the acting identity. Requires the collection's
// capability.
func (l *Ledger) MintBalance(ctx context.Context, capID, collectionID id.ID, tok token.ID, amount uint64) (*balance.Balance, error) {
	return l.mint(ctx, capID, collectionID, tok, amount, "")
}

// Mint is MintBalance followed by an unconditional handover of the fresh
// record to recipient. The Mint audit record still names the acting
// identity, not the recipient, and no Transfer event is emitted for the
// handover.
func (l *Ledger) Mint(ctx context.Context, capID, collectionID id.ID, tok token.ID, amount uint64, recipient string) (*balance.Balance, error) {
	if recipient == "" {
		return nil, fmt.Errorf("%w: empty recipient", ErrInvalidInput)
	}

	return l.mint(ctx, capID, collectionID, tok, amount, recipient)
}

// BatchMint mints once per (token, amount) pair, in input order, to the
// same recipient. Argument shape is validated before any mutation; after
// that each pair's effects are fully applied before the next begins.
func (l *Ledger) BatchMint(ctx context.Context, capID, collectionID id.ID, toks []token.ID, amounts []uint64, recipient string) ([]*balance.Balance, error) {
	if len(toks) == 0 || len(toks) != len(amounts) {
		return nil, fmt.Errorf("%w: batch wants equal non-empty token and amount lists, got %d and %d",
			ErrInvalidInput, len(toks), len(amounts))
	}

	minted := make([]*balance.Balance, 0, len(toks))
	for i := range toks {
		b, err := l.Mint(ctx, capID, collectionID, toks[i], amounts[i], recipient)
		if err != nil {
			return minted, fmt.Errorf("batch mint pair %d: %w", i, err)
		}
		minted = append(minted, b)
	}

	return minted, nil
}

// mint is the single mint path. An empty recipient keeps the record with
// the acting identity.
func (l *Ledger) mint(ctx context.Context, capID, collectionID id.ID, tok token.ID, amount uint64, recipient string) (*balance.Balance, error) {
	actor := ActorFrom(ctx)

	cap, err := l.authorizeCapHolder(ctx, capID)
	if err != nil {
		return nil, err
	}

	col, err := l.store.GetCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if !cap.Authorizes(col.ID) {
		return nil, fmt.Errorf("%w: cap %s is bound to %s, not %s",
			ErrWrongCollection, cap.ID, cap.Collection, col.ID)
	}
	if amount == 0 {
		return nil, ErrZeroAmount
	}

	unlock := l.lockCollection(col.ID)
	defer unlock()

	current, err := l.store.TotalSupply(ctx, col.ID, tok)
	if err != nil {
		return nil, err
	}
	if current > math.MaxUint64-amount {
		return nil, l.invariant("mint", "supply overflow for token %s: %d + %d", tok, current, amount)
	}

	holder := recipient
	if holder == "" {
		holder = actor
	}

	b := &balance.Balance{
		Entity:     NewEntity(),
		ID:         id.NewBalanceID(),
		Collection: col.ID,
		Token:      tok,
		Amount:     amount,
		Holder:     holder,
	}
	ev := &event.Event{
		Entity:     NewEntity(),
		ID:         id.NewEventID(),
		Type:       event.TypeMint,
		Collection: col.ID,
		Token:      tok,
		To:         actor,
		Amount:     amount,
	}

	if err := l.store.CommitMint(ctx, b, ev); err != nil {
		return nil, err
	}

	l.hooks.EmitMint(ctx, ev)
	l.logger.Debug("minted",
		"collection", col.ID,
		"token", tok,
		"amount", amount,
		"holder", holder,
	)

	return b, nil
}

// ──────────────────────────────────────────────────
// Burning
// ──────────────────────────────────────────────────

// Burn destroys a record and removes its amount from circulation. No
// capability is required; possession of the record is sufficient
// authority. Returns the amount burned.
func (l *Ledger) Burn(ctx context.Context, collectionID, balanceID id.ID) (uint64, error) {
	actor := ActorFrom(ctx)

	b, err := l.authorizeBalanceHolder(ctx, balanceID)
	if err != nil {
		return 0, err
	}

	col, err := l.store.GetCollection(ctx, collectionID)
	if err != nil {
		return 0, err
	}
	if b.Collection != col.ID {
		return 0, fmt.Errorf("%w: balance %s belongs to %s, not %s",
			ErrWrongCollection, b.ID, b.Collection, col.ID)
	}

	unlock := l.lockCollection(col.ID)
	defer unlock()

	// Re-read under the lock so the amount we subtract is the amount
	// that is actually destroyed.
	b, err = l.store.GetBalance(ctx, balanceID)
	if err != nil {
		return 0, err
	}

	current, err := l.store.TotalSupply(ctx, col.ID, b.Token)
	if err != nil {
		return 0, err
	}
	if current < b.Amount {
		return 0, l.invariant("burn", "supply underflow for token %s: %d - %d", b.Token, current, b.Amount)
	}

	ev := &event.Event{
		Entity:     NewEntity(),
		ID:         id.NewEventID(),
		Type:       event.TypeBurn,
		Collection: col.ID,
		Token:      b.Token,
		From:       actor,
		Amount:     b.Amount,
	}

	if err := l.store.CommitBurn(ctx, b, ev); err != nil {
		return 0, err
	}

	l.hooks.EmitBurn(ctx, ev)
	l.logger.Debug("burned",
		"collection", col.ID,
		"token", b.Token,
		"amount", b.Amount,
	)

	return b.Amount, nil
}

// BatchBurn burns each record in order; each burn's effects are fully
// applied before the next begins. Returns the total amount burned.
func (l *Ledger) BatchBurn(ctx context.Context, collectionID id.ID, balanceIDs []id.ID) (uint64, error) {
	if len(balanceIDs) == 0 {
		return 0, fmt.Errorf("%w: empty balance list", ErrInvalidInput)
	}

	var total uint64
	for i, balID := range balanceIDs {
		amount, err := l.Burn(ctx, collectionID, balID)
		if err != nil {
			return total, fmt.Errorf("batch burn element %d: %w", i, err)
		}
		total += amount
	}

	return total, nil
}

// ──────────────────────────────────────────────────
// Transfers
// ──────────────────────────────────────────────────

// Transfer reassigns a record to another identity and emits a Transfer
// audit record. It has no failure modes of its own beyond the host-style
// lookup and holder checks.
func (l *Ledger) Transfer(ctx context.Context, balanceID id.ID, recipient string) error {
	actor := ActorFrom(ctx)

	b, err := l.authorizeBalanceHolder(ctx, balanceID)
	if err != nil {
		return err
	}

	unlock := l.lockCollection(b.Collection)
	defer unlock()

	ev := &event.Event{
		Entity:     NewEntity(),
		ID:         id.NewEventID(),
		Type:       event.TypeTransfer,
		Collection: b.Collection,
		Token:      b.Token,
		From:       actor,
		To:         recipient,
		Amount:     b.Amount,
	}

	if err := l.store.CommitTransfer(ctx, balanceID, recipient, ev); err != nil {
		return err
	}

	l.hooks.EmitTransfer(ctx, ev)
	return nil
}

// SplitAndTransfer splits off amount and hands the new record to
// recipient; the remainder stays with the acting identity. Inherits
// Split's failure modes.
func (l *Ledger) SplitAndTransfer(ctx context.Context, balanceID id.ID, amount uint64, recipient string) (*balance.Balance, error) {
	part, err := l.Split(ctx, balanceID, amount)
	if err != nil {
		return nil, err
	}

	if err := l.Transfer(ctx, part.ID, recipient); err != nil {
		return nil, err
	}
	part.Holder = recipient

	return part, nil
}

// BatchTransfer transfers each record in order to the same recipient.
func (l *Ledger) BatchTransfer(ctx context.Context, balanceIDs []id.ID, recipient string) error {
	if len(balanceIDs) == 0 {
		return fmt.Errorf("%w: empty balance list", ErrInvalidInput)
	}

	for i, balID := range balanceIDs {
		if err := l.Transfer(ctx, balID, recipient); err != nil {
			return fmt.Errorf("batch transfer element %d: %w", i, err)
		}
	}

	return nil
}

// ──────────────────────────────────────────────────
// Split / Join
// ──────────────────────────────────────────────────

// Split decrements a record by amount and returns a new record of that
// amount with the same collection, token type, and holder. Either both
// effects commit or neither does.
func (l *Ledger) Split(ctx context.Context, balanceID id.ID, amount uint64) (*balance.Balance, error) {
	if amount == 0 {
		return nil, ErrZeroAmount
	}

	b, err := l.authorizeBalanceHolder(ctx, balanceID)
	if err != nil {
		return nil, err
	}

	unlock := l.lockCollection(b.Collection)
	defer unlock()

	b, err = l.store.GetBalance(ctx, balanceID)
	if err != nil {
		return nil, err
	}
	if b.Amount < amount {
		return nil, fmt.Errorf("%w: split %d from holding of %d", ErrInsufficientBalance, amount, b.Amount)
	}

	b.Amount -= amount
	b.Touch()
	part := &balance.Balance{
		Entity:     NewEntity(),
		ID:         id.NewBalanceID(),
		Collection: b.Collection,
		Token:      b.Token,
		Amount:     amount,
		Holder:     b.Holder,
	}

	if err := l.store.CommitSplit(ctx, b, part); err != nil {
		return nil, err
	}

	return part, nil
}

// Join adds the source record's amount into the destination and destroys
// the source. Both records must track the same token type under the same
// collection.
func (l *Ledger) Join(ctx context.Context, dstID, srcID id.ID) error {
	dst, err := l.authorizeBalanceHolder(ctx, dstID)
	if err != nil {
		return err
	}
	src, err := l.authorizeBalanceHolder(ctx, srcID)
	if err != nil {
		return err
	}

	if dst.Collection != src.Collection {
		return fmt.Errorf("%w: join across collections %s and %s",
			ErrWrongCollection, dst.Collection, src.Collection)
	}
	if dst.Token != src.Token {
		return fmt.Errorf("%w: join across token types %s and %s",
			ErrWrongTokenID, dst.Token, src.Token)
	}

	unlock := l.lockCollection(dst.Collection)
	defer unlock()

	dst, err = l.store.GetBalance(ctx, dstID)
	if err != nil {
		return err
	}
	src, err = l.store.GetBalance(ctx, srcID)
	if err != nil {
		return err
	}

	if dst.Amount > math.MaxUint64-src.Amount {
		return l.invariant("join", "amount overflow for token %s: %d + %d", dst.Token, dst.Amount, src.Amount)
	}

	dst.Amount += src.Amount
	dst.Touch()

	return l.store.CommitJoin(ctx, dst, srcID)
}

// Zero constructs a record with amount zero, held by the acting identity.
// Useful as a typed accumulator before repeated joins. Supply is
// unaffected.
func (l *Ledger) Zero(ctx context.Context, collectionID id.ID, tok token.ID) (*balance.Balance, error) {
	actor := ActorFrom(ctx)
	if actor == "" {
		return nil, fmt.Errorf("%w: no acting identity on context", ErrInvalidInput)
	}

	if _, err := l.store.GetCollection(ctx, collectionID); err != nil {
		return nil, err
	}

	b := &balance.Balance{
		Entity:     NewEntity(),
		ID:         id.NewBalanceID(),
		Collection: collectionID,
		Token:      tok,
		Amount:     0,
		Holder:     actor,
	}

	if err := l.store.CreateBalance(ctx, b); err != nil {
		return nil, err
	}

	return b, nil
}

// DestroyZero destroys a record whose amount is exactly zero. Supply is
// unaffected.
func (l *Ledger) DestroyZero(ctx context.Context, balanceID id.ID) error {
	b, err := l.authorizeBalanceHolder(ctx, balanceID)
	if err != nil {
		return err
	}

	unlock := l.lockCollection(b.Collection)
	defer unlock()

	b, err = l.store.GetBalance(ctx, balanceID)
	if err != nil {
		return err
	}
	if !b.IsZero() {
		return fmt.Errorf("%w: destroy of record still holding %d", ErrInsufficientBalance, b.Amount)
	}

	return l.store.DeleteBalance(ctx, balanceID)
}

// ──────────────────────────────────────────────────
// Metadata
// ──────────────────────────────────────────────────

// SetMetadata sets or overwrites the opaque metadata blob for one token
// type. Requires the collection's capability.
func (l *Ledger) SetMetadata(ctx context.Context, capID, collectionID id.ID, tok token.ID, data []byte) error {
	cap, err := l.authorizeCapHolder(ctx, capID)
	if err != nil {
		return err
	}

	col, err := l.store.GetCollection(ctx, collectionID)
	if err != nil {
		return err
	}
	if !cap.Authorizes(col.ID) {
		return fmt.Errorf("%w: cap %s is bound to %s, not %s",
			ErrWrongCollection, cap.ID, cap.Collection, col.ID)
	}

	unlock := l.lockCollection(col.ID)
	defer unlock()

	if err := l.store.SetMetadata(ctx, col.ID, tok, data); err != nil {
		return err
	}

	l.hooks.EmitMetadataSet(ctx, col.ID, tok, len(data))
	return nil
}

// GetMetadata returns the metadata blob for one token type. Unlike supply,
// absence is an error: blank metadata is meaningfully different from no
// metadata set.
func (l *Ledger) GetMetadata(ctx context.Context, collectionID id.ID, tok token.ID) ([]byte, error) {
	return l.store.GetMetadata(ctx, collectionID, tok)
}

// HasMetadata reports whether metadata exists for one token type.
func (l *Ledger) HasMetadata(ctx context.Context, collectionID id.ID, tok token.ID) (bool, error) {
	return l.store.HasMetadata(ctx, collectionID, tok)
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// TotalSupply returns the circulating supply of one token type; zero if
// the token was never minted.
func (l *Ledger) TotalSupply(ctx context.Context, collectionID id.ID, tok token.ID) (uint64, error) {
	return l.store.TotalSupply(ctx, collectionID, tok)
}

// GetBalance retrieves a record by ID.
func (l *Ledger) GetBalance(ctx context.Context, balanceID id.ID) (*balance.Balance, error) {
	return l.store.GetBalance(ctx, balanceID)
}

// ListBalances lists the live records of one token type under a
// collection.
func (l *Ledger) ListBalances(ctx context.Context, collectionID id.ID, tok token.ID) ([]*balance.Balance, error) {
	return l.store.ListBalances(ctx, collectionID, tok)
}

// Events lists the audit trail of a collection in commit order.
func (l *Ledger) Events(ctx context.Context, collectionID id.ID, opts event.ListOpts) ([]*event.Event, error) {
	return l.store.ListEvents(ctx, collectionID, opts)
}

// RecomputeSupply folds the audit trail into the supply of one token
// type. At every quiescent point it equals TotalSupply; indexers may use
// either path.
func (l *Ledger) RecomputeSupply(ctx context.Context, collectionID id.ID, tok token.ID) (uint64, error) {
	events, err := l.store.ListEvents(ctx, collectionID, event.ListOpts{Token: &tok})
	if err != nil {
		return 0, err
	}

	return event.ReplaySupply(events, tok), nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// authorizeCapHolder resolves a capability and verifies the acting
// identity holds it.
func (l *Ledger) authorizeCapHolder(ctx context.Context, capID id.ID) (*collection.Cap, error) {
	cap, err := l.store.GetCap(ctx, capID)
	if err != nil {
		return nil, err
	}

	if actor := ActorFrom(ctx); actor != cap.Holder {
		return nil, fmt.Errorf("%w: cap %s", ErrNotHolder, cap.ID)
	}

	return cap, nil
}

// authorizeBalanceHolder resolves a record and verifies the acting
// identity holds it.
func (l *Ledger) authorizeBalanceHolder(ctx context.Context, balanceID id.ID) (*balance.Balance, error) {
	b, err := l.store.GetBalance(ctx, balanceID)
	if err != nil {
		return nil, err
	}

	if actor := ActorFrom(ctx); actor != b.Holder {
		return nil, fmt.Errorf("%w: balance %s", ErrNotHolder, b.ID)
	}

	return b, nil
}

// invariant logs a conservation failure distinctly from user errors and
// returns it. These indicate a ledger defect, never bad input.
func (l *Ledger) invariant(op, format string, args ...any) error {
	err := NewInvariantError(op, format, args...)
	l.logger.Error("invariant violation", "op", op, "error", err)
	return err
}
