// Package postgres provides a store.Store implementation backed by
// PostgreSQL via lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

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

// Store implements store.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New opens a PostgreSQL database using the given connection string.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("tokenledger/postgres: open: %w", err)
	}

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
			return fmt.Errorf("tokenledger/postgres: migrate: %w", err)
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

// ==================== Collection ====================

func (s *Store) CreateCollection(ctx context.Context, col *collection.Collection, cap *collection.Cap) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_collections (id, created_at, updated_at)
		VALUES ($1, $2, $3)
	`, col.ID, col.CreatedAt, col.UpdatedAt); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_caps (id, collection_id, holder, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, cap.ID, cap.Collection, cap.Holder, cap.CreatedAt, cap.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) GetCollection(ctx context.Context, collectionID id.ID) (*collection.Collection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, updated_at
		FROM ledger_collections
		WHERE id = $1
	`, collectionID)

	var col collection.Collection
	if err := row.Scan(&col.ID, &col.CreatedAt, &col.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tokenledger.ErrCollectionNotFound
		}
		return nil, err
	}
	return &col, nil
}

func (s *Store) GetCap(ctx context.Context, capID id.ID) (*collection.Cap, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, collection_id, holder, created_at, updated_at
		FROM ledger_caps
		WHERE id = $1
	`, capID)

	var c collection.Cap
	if err := row.Scan(&c.ID, &c.Collection, &c.Holder, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tokenledger.ErrCapNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) UpdateCapHolder(ctx context.Context, capID id.ID, holder string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE ledger_caps
		SET holder = $2, updated_at = $3
		WHERE id = $1
	`, capID, holder, time.Now().UTC())
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
		WHERE collection_id = $1 AND token_id = $2
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
		VALUES ($1, $2, $3)
		ON CONFLICT (collection_id, token_id) DO UPDATE SET data = excluded.data
	`, collectionID, tok, data)
	return err
}

func (s *Store) GetMetadata(ctx context.Context, collectionID id.ID, tok token.ID) ([]byte, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT data FROM ledger_metadata
		WHERE collection_id = $1 AND token_id = $2
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
		SELECT EXISTS (
			SELECT 1 FROM ledger_metadata
			WHERE collection_id = $1 AND token_id = $2
		)
	`, collectionID, tok)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
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
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, b.ID, b.Collection, b.Token, int64(b.Amount), b.Holder, b.CreatedAt, b.UpdatedAt)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBalance(row rowScanner) (*balance.Balance, error) {
	var b balance.Balance
	var amount int64
	if err := row.Scan(&b.ID, &b.Collection, &b.Token, &amount, &b.Holder, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tokenledger.ErrBalanceNotFound
		}
		return nil, err
	}
	b.Amount = uint64(amount)
	return &b, nil
}

func (s *Store) GetBalance(ctx context.Context, balanceID id.ID) (*balance.Balance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, collection_id, token_id, amount, holder, created_at, updated_at
		FROM ledger_balances
		WHERE id = $1
	`, balanceID)

	return scanBalance(row)
}

func (s *Store) ListBalances(ctx context.Context, collectionID id.ID, tok token.ID) ([]*balance.Balance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection_id, token_id, amount, holder, created_at, updated_at
		FROM ledger_balances
		WHERE collection_id = $1 AND token_id = $2
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
	result, err := s.db.ExecContext(ctx, `DELETE FROM ledger_balances WHERE id = $1`, balanceID)
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
		VALUES ($1, $2, $3)
		ON CONFLICT (collection_id, token_id) DO UPDATE SET total = ledger_supply.total + excluded.total
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

	result, err := tx.ExecContext(ctx, `DELETE FROM ledger_balances WHERE id = $1`, b.ID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return tokenledger.ErrBalanceNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE ledger_supply SET total = total - $3
		WHERE collection_id = $1 AND token_id = $2
	`, b.Collection, b.Token, int64(ev.Amount)); err != nil {
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
		UPDATE ledger_balances SET holder = $2, updated_at = $3 WHERE id = $1
	`, balanceID, holder, time.Now().UTC())
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
		UPDATE ledger_balances SET amount = $2, updated_at = $3 WHERE id = $1
	`, src.ID, int64(src.Amount), src.UpdatedAt)
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
		UPDATE ledger_balances SET amount = $2, updated_at = $3 WHERE id = $1
	`, dst.ID, int64(dst.Amount), dst.UpdatedAt)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return tokenledger.ErrBalanceNotFound
	}

	result, err = tx.ExecContext(ctx, `DELETE FROM ledger_balances WHERE id = $1`, srcID)
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
		SELECT COALESCE(MAX(seq), 0) + 1 FROM ledger_events WHERE collection_id = $1
	`, ev.Collection)
	var seq int64
	if err := row.Scan(&seq); err != nil {
		return err
	}
	ev.Seq = uint64(seq)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_events (id, collection_id, seq, type, token_id, from_actor, to_actor, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, ev.ID, ev.Collection, seq, string(ev.Type), ev.Token, ev.From, ev.To, int64(ev.Amount), ev.CreatedAt)
	return err
}

func (s *Store) ListEvents(ctx context.Context, collectionID id.ID, opts event.ListOpts) ([]*event.Event, error) {
	query := `
		SELECT id, collection_id, seq, type, token_id, from_actor, to_actor, amount, created_at
		FROM ledger_events
		WHERE collection_id = $1 AND seq > $2
	`
	args := []any{collectionID, int64(opts.AfterSeq)}

	if opts.Token != nil {
		args = append(args, *opts.Token)
		query += fmt.Sprintf(` AND token_id = $%d`, len(args))
	}
	if opts.Type != "" {
		args = append(args, string(opts.Type))
		query += fmt.Sprintf(` AND type = $%d`, len(args))
	}
	query += ` ORDER BY seq`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
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
		var typ string
		if err := rows.Scan(&ev.ID, &ev.Collection, &seq, &typ, &ev.Token, &ev.From, &ev.To, &amount, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.Seq = uint64(seq)
		ev.Type = event.Type(typ)
		ev.Amount = uint64(amount)
		result = append(result, &ev)
	}
	return result, rows.Err()
}
