package ir

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// IRValue is a sealed interface representing an identifier value.
// Only IRString and IRInt implement this.
// NO floats - an identifier read as 1.0 in one file and 1 in another
// must never compare unequal.
type IRValue interface {
	irValue() // Sealed - only these types implement it

	// Text renders the value the way it appears in a table cell.
	Text() string
}

// IRString represents a textual identifier.
// Construct with NewIRString so the value is NFC normalized and trimmed.
type IRString string

func (IRString) irValue() {}

// Text implements IRValue.
func (s IRString) Text() string { return string(s) }

// IRInt represents an integer identifier.
type IRInt int64

func (IRInt) irValue() {}

// Text implements IRValue.
func (n IRInt) Text() string { return strconv.FormatInt(int64(n), 10) }

// NewIRString creates an IRString with surrounding whitespace removed and
// NFC normalization applied, so visually identical identifiers match.
func NewIRString(s string) IRString {
	return IRString(norm.NFC.String(strings.TrimSpace(s)))
}

// ParseCell coerces a raw table cell into an identifier value.
//
// A cell whose trimmed text is the canonical base-10 form of an int64
// becomes IRInt; "007" and "+7" stay text. Every other non-empty cell
// becomes IRString. Empty (or whitespace-only) cells and cells that are not
// valid UTF-8 are rejected.
func ParseCell(cell string) (IRValue, error) {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return nil, fmt.Errorf("empty identifier")
	}
	if !utf8.ValidString(trimmed) {
		return nil, fmt.Errorf("identifier %q is not valid UTF-8", trimmed)
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil && strconv.FormatInt(n, 10) == trimmed {
		return IRInt(n), nil
	}
	return NewIRString(trimmed), nil
}

// FromAny converts a decoded scalar (YAML, JSON, CUE) into an IRValue.
// Floats are accepted only when integral.
func FromAny(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is not an identifier")
	case IRValue:
		return val, nil
	case string:
		return ParseCell(val)
	case int:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case uint64:
		if val > 1<<63-1 {
			return nil, fmt.Errorf("integer out of int64 range: %d", val)
		}
		return IRInt(int64(val)), nil
	case float64:
		if val != float64(int64(val)) {
			return nil, fmt.Errorf("floats are not identifiers: %v", val)
		}
		return IRInt(int64(val)), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("floats are not identifiers: %s", val)
		}
		return IRInt(n), nil
	default:
		return nil, fmt.Errorf("unsupported identifier type: %T", v)
	}
}

// Compare defines the total order used to normalize triples.
// Integers sort before strings; integers compare numerically and strings
// by UTF-16 code units (RFC 8785 order).
func Compare(a, b IRValue) int {
	ai, aIsInt := a.(IRInt)
	bi, bIsInt := b.(IRInt)
	switch {
	case aIsInt && bIsInt:
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	case aIsInt:
		return -1
	case bIsInt:
		return 1
	}
	return compareUTF16(a.Text(), b.Text())
}

// Equal reports whether two identifier values are the same value.
func Equal(a, b IRValue) bool {
	return Compare(a, b) == 0
}

// compareUTF16 compares strings using UTF-16 code unit ordering.
// Go's default string comparison uses UTF-8 which produces a different
// order for characters outside the BMP.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// ValueKey is the canonical map key for a single identifier value.
// It is the canonical JSON encoding, so IRInt(7) ("7") and IRString("7")
// ("\"7\"") never collide.
type ValueKey string

// KeyOf returns the canonical key for v.
func KeyOf(v IRValue) ValueKey {
	return ValueKey(appendValue(nil, v))
}

// appendValue appends the canonical JSON encoding of v to buf.
func appendValue(buf []byte, v IRValue) []byte {
	switch val := v.(type) {
	case IRInt:
		return strconv.AppendInt(buf, int64(val), 10)
	case IRString:
		return appendCanonicalString(buf, string(val))
	}
	panic(fmt.Sprintf("ir: unknown IRValue type %T", v))
}

// ParseValueKey decodes a ValueKey back into its value.
func ParseValueKey(k ValueKey) (IRValue, error) {
	s := string(k)
	if s == "" {
		return nil, fmt.Errorf("empty value key")
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal([]byte(s), &str); err != nil {
			return nil, fmt.Errorf("value key %q: %w", s, err)
		}
		return IRString(str), nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("value key %q: %w", s, err)
	}
	return IRInt(n), nil
}
