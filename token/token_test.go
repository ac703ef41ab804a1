package token_test

import (
	"math"
	"testing"

	"github.com/holiman/uint256"

	"github.com/xraph/tokenledger/token"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		location uint64
		item     uint64
	}{
		{"zero", 0, 0},
		{"small", 100, 1},
		{"item only", 0, 42},
		{"location only", 7, 0},
		{"max item", 1, math.MaxUint64},
		{"max location", math.MaxUint64, 1},
		{"max both", math.MaxUint64, math.MaxUint64},
		{"high bits set", 1 << 63, 1 << 63},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tid := token.New(tt.location, tt.item)
			if got := tid.Location(); got != tt.location {
				t.Errorf("Location: got %d, want %d", got, tt.location)
			}
			if got := tid.Item(); got != tt.item {
				t.Errorf("Item: got %d, want %d", got, tt.item)
			}
		})
	}
}

func TestStringParse(t *testing.T) {
	tests := []struct {
		name string
		id   token.ID
		want string
	}{
		{"zero", token.New(0, 0), "0000000000000000" + "0000000000000000"},
		{"mixed", token.New(100, 1), "0000000000000064" + "0000000000000001"},
		{"max", token.New(math.MaxUint64, math.MaxUint64), "ffffffffffffffff" + "ffffffffffffffff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.id.String()
			if s != tt.want {
				t.Errorf("String: got %q, want %q", s, tt.want)
			}
			parsed, err := token.Parse(s)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", s, err)
			}
			if parsed != tt.id {
				t.Errorf("round-trip mismatch: %v != %v", parsed, tt.id)
			}
		})
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"short", "abcdef"},
		{"long", "00000000000000000000000000000000ff"},
		{"non-hex", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := token.Parse(tt.input); err == nil {
				t.Errorf("expected error for %q, got nil", tt.input)
			}
		})
	}
}

func TestUint256Bridge(t *testing.T) {
	tid := token.New(100, 1)
	wide := tid.Uint256()

	want := new(uint256.Int).Lsh(uint256.NewInt(100), 64)
	want.Or(want, uint256.NewInt(1))
	if wide.Cmp(want) != 0 {
		t.Errorf("Uint256: got %s, want %s", wide.Hex(), want.Hex())
	}

	back, err := token.FromUint256(wide)
	if err != nil {
		t.Fatalf("FromUint256 failed: %v", err)
	}
	if back != tid {
		t.Errorf("round-trip mismatch: %v != %v", back, tid)
	}
}

func TestFromUint256Overflow(t *testing.T) {
	wide := new(uint256.Int).Lsh(uint256.NewInt(1), 200)
	if _, err := token.FromUint256(wide); err == nil {
		t.Error("expected error for value exceeding 128 bits")
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := token.New(42, 7)
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var restored token.ID
	if err := restored.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if restored != original {
		t.Errorf("mismatch: %v != %v", restored, original)
	}
}

func TestValueScan(t *testing.T) {
	original := token.New(9, 9)
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned token.ID
	if err := scanned.Scan(val); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if scanned != original {
		t.Errorf("mismatch: %v != %v", scanned, original)
	}
}
