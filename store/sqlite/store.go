// Package sqlite provides a store.Store implementation backed by SQLite,
// using the cgo-free modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

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

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New opens a SQLite database at path and returns a Store. Use ":memory:"
// for an in-process ephemeral database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("tokenledger/sqlite: open %q: %w", path, err)
	}

	// The engine serializes writers; a single connection keeps SQLite from
	// returning busy errors underneath it.
	db.SetMaxOpenConns(1)

	return &Store{db: db}, nil
}

// NewWithDB wraps an existing database handle.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate creates the required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("tokenledger/sqlite: migrate: %w", err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Amounts are stored in SQLite's signed INTEGER; the int64 cast
// round-trips all uint64 values unchanged.

func ts(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTS(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ==================== Collection ====================

func (s *Store) CreateCollection(ctx context.Context, col *collection.Collection, cap *collection.Cap) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_collections (id, created_at, updated_at)
		VALUES (?, ?, ?)
	`, col.ID, ts(col.CreatedAt), ts(col.UpdatedAt)); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_caps (id, collection_id, holder, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, cap.ID, cap.Collection, cap.Holder, ts(cap.CreatedAt), ts(cap.UpdatedAt)); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) GetCollection(ctx context.Context, collectionID id.ID) (*collection.Collection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, updated_at
		FROM ledger_collections
		WHERE id = ?
	`, collectionID)

	var col collection.Collection
	var created, updated string
	if err := row.Scan(&col.ID, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tokenledger.ErrCollectionNotFound
		}
		return nil, err
	}
	col.CreatedAt = parseTS(created)
	col.UpdatedAt = parseTS(updated)
	return &col, nil
}

func (s *Store) GetCap(ctx context.Context, capID id.ID) (*collection.Cap, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, collection_id, holder, created_at, updated_at
		FROM ledger_caps
		WHERE id = ?
	`, capID)

	var c collection.Cap
	var created, updated string
	if err := row.Scan(&c.ID, &c.Collection, &c.Holder, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tokenledger.ErrCapNotFound
		}
		return nil, err
	}
	c.CreatedAt = parseTS(created)
	c.UpdatedAt = parseTS(updated)
	return &c, nil
}

func (s *Store) UpdateCapHolder(ctx context.Context, capID id.ID, holder string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE ledger_caps
		SET holder = ?, updated_at = ?
		WHERE id = ?
	`, holder, ts(time.Now()), capID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return tokenledger.ErrCapNotFound
	}
	return nil
}

// ==================== Supply ====================

func (s *Store) TotalSupply(ctx context.Context, collectionID id.ID, tok token.ID) (uint64, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT total FROM ledger_supply
		WHERE collection_id = ? AND token_id = ?
	`, collectionID, tok)

	var total int64
	if err := row.Scan(&total); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil // absence is zero
		}
		return 0, err
	}
	return uint64(total), nil
}

// ==================== Metadata ====================

func (s *Store) SetMetadata(ctx context.Context, collectionID id.ID, tok token.ID, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_metadata (collection_id, token_id, data)
		VALUES (?, ?, ?)
		ON CONFLICT (collection_id, token_id) DO UPDATE SET data = excluded.data
	`, collectionID, tok, data)
	return err
}

func (s *Store) GetMetadata(ctx context.Context, collectionID id.ID, tok token.ID) ([]byte, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT data FROM ledger_metadata
		WHERE collection_id = ? AND token_id = ?
	`, collectionID, tok)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tokenledger.ErrMetadataNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Store) HasMetadata(ctx context.Context, collectionID id.ID, tok token.ID) (bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM ledger_metadata
		WHERE collection_id = ? AND token_id = ?
	`, collectionID, tok)

	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ==================== Balances ====================

func (s *Store) CreateBalance(ctx context.Context, b *balance.Balance) error {
	return insertBalance(ctx, s.db, b)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertBalance(ctx context.Context, db execer, b *balance.Balance) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO ledger_balances (id, collection_id, token_id, amount, holder, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.Collection, b.Token, int64(b.Amount), b.Holder, ts(b.CreatedAt), ts(b.UpdatedAt))
	return err
}

func (s *Store) GetBalance(ctx context.Context, balanceID id.ID) (*balance.Balance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, collection_id, token_id, amount, holder, created_at, updated_at
		FROM ledger_balances
		WHERE id = ?
	`, balanceID)

	return scanBalance(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBalance(row rowScanner) (*balance.Balance, error) {
	var b balance.Balance
	var amount int64
	var created, updated string
	if err := row.Scan(&b.ID, &b.Collection, &b.Token, &amount, &b.Holder, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tokenledger.ErrBalanceNotFound
		}
		return nil, err
	}
	b.Amount = uint64(amount)
	b.CreatedAt = parseTS(created)
	b.UpdatedAt = parseTS(updated)
	return &b, nil
}

func (s *Store) ListBalances(ctx context.Context, collectionID id.ID, tok token.ID) ([]*balance.Balance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection_id, token_id, amount, holder, created_at, updated_at
		FROM ledger_balances
		WHERE collection_id = ? AND token_id = ?
		ORDER BY id
	`, collectionID, tok)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*balance.Balance, 0)
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

func (s *Store) DeleteBalance(ctx context.Context, balanceID id.ID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM ledger_balances WHERE id = ?`, balanceID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return tokenledger.ErrBalanceNotFound
	}
	return nil
}

// ==================== Composite commits ====================

func (s *Store) CommitMint(ctx context.Context, b *balance.Balance, ev *event.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_supply (collection_id, token_id, total)
		VALUES (?, ?, ?)
		ON CONFLICT (collection_id, token_id) DO UPDATE SET total = total + excluded.total
	`, b.Collection, b.Token, int64(ev.Amount)); err != nil {
		return err
	}

	if err := insertBalance(ctx, tx, b); err != nil {
		return err
	}

	if err := appendEvent(ctx, tx, ev); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) CommitBurn(ctx context.Context, b *balance.Balance, ev *event.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	result, err := tx.ExecContext(ctx, `DELETE FROM ledger_balances WHERE id = ?`, b.ID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return tokenledger.ErrBalanceNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE ledger_supply SET total = total - ?
		WHERE collection_id = ? AND token_id = ?
	`, int64(ev.Amount), b.Collection, b.Token); err != nil {
		return err
	}

	if err := appendEvent(ctx, tx, ev); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) CommitTransfer(ctx context.Context, balanceID id.ID, holder string, ev *event.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	result, err := tx.ExecContext(ctx, `
		UPDATE ledger_balances SET holder = ?, updated_at = ? WHERE id = ?
	`, holder, ts(time.Now()), balanceID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return tokenledger.ErrBalanceNotFound
	}

	if err := appendEvent(ctx, tx, ev); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) CommitSplit(ctx context.Context, src *balance.Balance, part *balance.Balance) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	result, err := tx.ExecContext(ctx, `
		UPDATE ledger_balances SET amount = ?, updated_at = ? WHERE id = ?
	`, int64(src.Amount), ts(src.UpdatedAt), src.ID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return tokenledger.ErrBalanceNotFound
	}

	if err := insertBalance(ctx, tx, part); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) CommitJoin(ctx context.Context, dst *balance.Balance, srcID id.ID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	result, err := tx.ExecContext(ctx, `
		UPDATE ledger_balances SET amount = ?, updated_at = ? WHERE id = ?
	`, int64(dst.Amount), ts(dst.UpdatedAt), dst.ID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return tokenledger.ErrBalanceNotFound
	}

	result, err = tx.ExecContext(ctx, `DELETE FROM ledger_balances WHERE id = ?`, srcID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return tokenledger.ErrBalanceNotFound
	}

	return tx.Commit()
}

// ==================== Events ====================

// appendEvent assigns the next per-collection sequence number inside the
// transaction and inserts the event. The engine serializes writers per
// collection, so MAX(seq)+1 cannot race.
func appendEvent(ctx context.Context, tx *sql.Tx, ev *event.Event) error {
	row := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) + 1 FROM ledger_events WHERE collection_id = ?
	`, ev.Collection)
	var seq int64
	if err := row.Scan(&seq); err != nil {
		return err
	}
	ev.Seq = uint64(seq)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_events (id, collection_id, seq, type, token_id, from_actor, to_actor, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.Collection, seq, string(ev.Type), ev.Token, ev.From, ev.To, int64(ev.Amount), ts(ev.CreatedAt))
	return err
}

func (s *Store) ListEvents(ctx context.Context, collectionID id.ID, opts event.ListOpts) ([]*event.Event, error) {
	query := `
		SELECT id, collection_id, seq, type, token_id, from_actor, to_actor, amount, created_at
		FROM ledger_events
		WHERE collection_id = ? AND seq > ?
	`
	args := []any{collectionID, int64(opts.AfterSeq)}

	if opts.Token != nil {
		query += ` AND token_id = ?`
		args = append(args, *opts.Token)
	}
	if opts.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(opts.Type))
	}
	query += ` ORDER BY seq`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*event.Event, 0)
	for rows.Next() {
		var ev event.Event
		var seq, amount int64
		var typ, created string
		if err := rows.Scan(&ev.ID, &ev.Collection, &seq, &typ, &ev.Token, &ev.From, &ev.To, &amount, &created); err != nil {
			return nil, err
		}
		ev.Seq = uint64(seq)
		ev.Type = event.Type(typ)
		ev.Amount = uint64(amount)
		ev.CreatedAt = parseTS(created)
		result = append(result, &ev)
	}
	return result, rows.Err()
}
