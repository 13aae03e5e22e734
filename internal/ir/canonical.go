package ir

import (
	"fmt"
	"slices"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON.
// CRITICAL: This is the ONLY serialization that should be used for
// content hashes, checkpoint state and golden traces.
//
// Differences from encoding/json:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping, U+2028/U+2029 emitted literally
//  3. Strings are NFC normalized
//  4. No floats, no null (returns error)
func MarshalCanonical(v any) ([]byte, error) {
	return appendCanonical(nil, v)
}

func appendCanonical(buf []byte, v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical JSON")
	case IRValue:
		return appendValue(buf, val), nil
	case string:
		return appendCanonicalString(buf, val), nil
	case int:
		return strconv.AppendInt(buf, int64(val), 10), nil
	case int64:
		return strconv.AppendInt(buf, val, 10), nil
	case bool:
		return strconv.AppendBool(buf, val), nil
	case []string:
		return appendCanonicalList(buf, len(val), func(b []byte, i int) ([]byte, error) {
			return appendCanonicalString(b, val[i]), nil
		})
	case []int:
		return appendCanonicalList(buf, len(val), func(b []byte, i int) ([]byte, error) {
			return strconv.AppendInt(b, int64(val[i]), 10), nil
		})
	case []any:
		return appendCanonicalList(buf, len(val), func(b []byte, i int) ([]byte, error) {
			out, err := appendCanonical(b, val[i])
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			return out, nil
		})
	case map[string]any:
		return appendCanonicalObject(buf, val)
	case map[string]int:
		obj := make(map[string]any, len(val))
		for k, n := range val {
			obj[k] = n
		}
		return appendCanonicalObject(buf, obj)
	case map[string]int64:
		obj := make(map[string]any, len(val))
		for k, n := range val {
			obj[k] = n
		}
		return appendCanonicalObject(buf, obj)
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

func appendCanonicalList(buf []byte, n int, elem func([]byte, int) ([]byte, error)) ([]byte, error) {
	buf = append(buf, '[')
	for i := 0; i < n; i++ {
		if i > 0 {
			buf = append(buf, ',')
		}
		var err error
		if buf, err = elem(buf, i); err != nil {
			return nil, err
		}
	}
	return append(buf, ']'), nil
}

func appendCanonicalObject(buf []byte, obj map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)

	buf = append(buf, '{')
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendCanonicalString(buf, k)
		buf = append(buf, ':')
		var err error
		if buf, err = appendCanonical(buf, obj[k]); err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	return append(buf, '}'), nil
}

const hexDigits = "0123456789abcdef"

// appendCanonicalString appends s as an RFC 8785 JSON string.
// Only quote, backslash and control characters (U+0000-U+001F) are escaped.
func appendCanonicalString(buf []byte, s string) []byte {
	s = norm.NFC.String(s)
	buf = append(buf, '"')
	for i := 0; i < len(s); {
		c := s[i]
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				buf = append(buf, "\uFFFD"...)
			} else {
				buf = append(buf, s[i:i+size]...)
			}
			i += size
			continue
		}
		switch c {
		case '"':
			buf = append(buf, '\\', '"')
		case '\\':
			buf = append(buf, '\\', '\\')
		case '\b':
			buf = append(buf, '\\', 'b')
		case '\f':
			buf = append(buf, '\\', 'f')
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\r':
			buf = append(buf, '\\', 'r')
		case '\t':
			buf = append(buf, '\\', 't')
		default:
			if c < 0x20 {
				buf = append(buf, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
			} else {
				buf = append(buf, c)
			}
		}
		i++
	}
	return append(buf, '"')
}
