package core

// canonical.go — deterministic serialization used for fingerprinting,
// hashing, signing, and persistence (spec.md §4.1). Every other subsystem
// that needs a stable byte representation of an Entry or Block routes
// through CanonicalJSON so that rehashing a stored value always reproduces
// the stored hash byte-for-byte.

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// CanonicalJSON serializes v (expected to be a map[string]any or a value
// built from one) into its canonical form: lexicographically sorted keys,
// no insignificant whitespace, UTF-8 NFC-normalized strings, decimal
// integers, and no null. It fails with *CanonicalizationError on non-UTF-8
// strings, NaN/Infinity, or disallowed types.
func CanonicalJSON(v interface{}) ([]byte, error) {
	tree, err := canonicalizeValue(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := encodeCanonical(&buf, tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// canonicalizeValue walks v, NFC-normalizing strings and rejecting
// disallowed values, and returns a tree of map[string]any / []any /
// string / float64 / integer / bool ready for deterministic encoding.
func canonicalizeValue(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case nil:
		return nil, &CanonicalizationError{Reason: "null is not allowed inside entry content"}
	case string:
		if !utf8.ValidString(t) {
			return nil, &CanonicalizationError{Reason: "value contains non-UTF-8 bytes"}
		}
		return norm.NFC.String(t), nil
	case bool:
		return t, nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, &CanonicalizationError{Reason: "NaN/Infinity numbers are not allowed"}
		}
		return t, nil
	case int, int32, int64, uint, uint32, uint64:
		return t, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if !utf8.ValidString(k) {
				return nil, &CanonicalizationError{Reason: "key contains non-UTF-8 bytes"}
			}
			cv, err := canonicalizeValue(val)
			if err != nil {
				return nil, err
			}
			out[norm.NFC.String(k)] = cv
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			cv, err := canonicalizeValue(val)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	default:
		return nil, &CanonicalizationError{Reason: fmt.Sprintf("disallowed type %T", v)}
	}
}

// encodeCanonical writes the canonical JSON encoding of v (already passed
// through canonicalizeValue) with sorted object keys and no extra
// whitespace.
func encodeCanonical(buf *bytes.Buffer, v interface{}) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case string:
		b, err := json.Marshal(t)
		if err != nil {
			return &CanonicalizationError{Reason: err.Error()}
		}
		buf.Write(b)
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case float64:
		buf.WriteString(formatNumber(t))
	case int:
		fmt.Fprintf(buf, "%d", t)
	case int64:
		fmt.Fprintf(buf, "%d", t)
	case int32, uint, uint32, uint64:
		fmt.Fprintf(buf, "%d", t)
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encodeCanonical(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []interface{}:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeCanonical(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return &CanonicalizationError{Reason: fmt.Sprintf("disallowed type %T", v)}
	}
	return nil
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// Fingerprint computes the SHA-256 digest over an entry's content, author,
// and intent — the deduplication key of spec.md §4.5.
func Fingerprint(content, author, intent string) ([32]byte, error) {
	b, err := CanonicalJSON(map[string]interface{}{
		"content": content,
		"author":  author,
		"intent":  intent,
	})
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(b), nil
}

// sha256Hex hashes b and returns the lowercase hex digest.
func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%x", sum)
}

// leadingHexZeros reports how many leading hex digits of hash are '0'.
func leadingHexZeros(hexHash string) int {
	n := 0
	for _, c := range hexHash {
		if c != '0' {
			break
		}
		n++
	}
	return n
}
