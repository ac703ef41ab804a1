// Package token defines the 128-bit token type identifier used to key
// supply and metadata inside a collection.
//
// An identifier packs two independent 64-bit namespaces: a location id in
// the top 64 bits and an item id in the bottom 64 bits. Packing is pure and
// total — every (location, item) pair is a valid identifier and round-trips
// exactly.
package token

import (
	"database/sql/driver"
	"fmt"
	"strconv"

	"github.com/holiman/uint256"
)

// ID is a 128-bit token type identifier.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	location uint64
	item     uint64
}

// New packs a location id and an item id into a token ID.
// Equivalent to (location << 64) | item on a 128-bit integer.
func New(location, item uint64) ID {
	return ID{location: location, item: item}
}

// Location returns the top 64 bits of the identifier.
func (t ID) Location() uint64 { return t.location }

// Item returns the bottom 64 bits of the identifier.
func (t ID) Item() uint64 { return t.item }

// String returns the canonical representation: 32 lowercase hex digits,
// zero-padded, location first. Fixed width keeps lexicographic and numeric
// ordering in agreement for database keys.
func (t ID) String() string {
	return fmt.Sprintf("%016x%016x", t.location, t.item)
}

// Parse parses the canonical 32-hex-digit representation produced by String.
func Parse(s string) (ID, error) {
	if len(s) != 32 {
		return ID{}, fmt.Errorf("token: parse %q: want 32 hex digits, got %d", s, len(s))
	}

	location, err := strconv.ParseUint(s[:16], 16, 64)
	if err != nil {
		return ID{}, fmt.Errorf("token: parse %q: %w", s, err)
	}
	item, err := strconv.ParseUint(s[16:], 16, 64)
	if err != nil {
		return ID{}, fmt.Errorf("token: parse %q: %w", s, err)
	}

	return ID{location: location, item: item}, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded token IDs.
func MustParse(s string) ID {
	t, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("token: must parse %q: %v", s, err))
	}

	return t
}

// Uint256 returns the identifier as a 256-bit integer with the 128-bit
// value in the low limbs, for callers that carry wide integers natively.
func (t ID) Uint256() *uint256.Int {
	return &uint256.Int{t.item, t.location, 0, 0}
}

// FromUint256 converts a wide integer back into a token ID. Returns an
// error if the value does not fit in 128 bits.
func FromUint256(v *uint256.Int) (ID, error) {
	if v[2] != 0 || v[3] != 0 {
		return ID{}, fmt.Errorf("token: value %s exceeds 128 bits", v.Hex())
	}

	return ID{location: v[1], item: v[0]}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (t ID) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ID) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}

// Value implements driver.Valuer for database storage.
func (t ID) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (t *ID) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return t.UnmarshalText([]byte(v))
	case []byte:
		return t.UnmarshalText(v)
	default:
		return fmt.Errorf("token: cannot scan %T into ID", src)
	}
}
