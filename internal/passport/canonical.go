// Package passport implements the vehicle passport record pipeline:
// deterministic canonicalization, the seal/verify tamper-evidence scheme,
// schema validation of drafts, and draft assembly from extraction output.
package passport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Canonicalize produces a byte-for-byte deterministic serialization of a
// JSON-like value, independent of key insertion order or incidental
// numeric/string formatting. The output is the exact byte input to hashing
// and signing, so two structurally equal values must always canonicalize
// identically.
//
// Rules, applied recursively:
//   - object keys are sorted byte-wise; arrays keep element order
//   - floats are rounded to at most 3 decimal places (guards against
//     representation drift across platforms, e.g. tyre-depth millimeters)
//   - strings are trimmed of leading/trailing whitespace
func Canonicalize(v any) ([]byte, error) {
	norm, err := decodeLoose(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, norm); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CanonicalPayload canonicalizes a record with its top-level "seal" field
// removed. Both sealing and verification hash exactly this payload: the
// record minus its own seal block.
func CanonicalPayload(v any) ([]byte, error) {
	norm, err := decodeLoose(v)
	if err != nil {
		return nil, err
	}
	if obj, ok := norm.(map[string]any); ok {
		delete(obj, "seal")
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, norm); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeLoose round-trips the value through encoding/json so structs, maps
// and raw JSON all normalize to the same generic shape. UseNumber keeps
// integer readings exact.
func decodeLoose(v any) (any, error) {
	raw, ok := v.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("canonicalize: marshal: %w", err)
		}
		raw = b
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("canonicalize: decode: %w", err)
	}
	return out, nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		return writeCanonicalString(buf, val)
	case json.Number:
		return writeCanonicalNumber(buf, val)
	case float64:
		return writeCanonicalNumber(buf, json.Number(strconv.FormatFloat(val, 'f', -1, 64)))
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("canonicalize: unsupported type %T", v)
	}
	return nil
}

func writeCanonicalString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// writeCanonicalNumber emits integers verbatim and floats rounded to 3
// decimal places in minimal form ("1.5", not "1.500").
func writeCanonicalNumber(buf *bytes.Buffer, n json.Number) error {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		buf.WriteString(s)
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("canonicalize: bad number %q: %w", s, err)
	}
	rounded := math.Round(f*1000) / 1000
	buf.WriteString(strconv.FormatFloat(rounded, 'f', -1, 64))
	return nil
}
