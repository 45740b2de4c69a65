package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrNotObject is returned when a JSON line does not hold an object
var ErrNotObject = errors.New("record is not a JSON object")

// Record is an ordered mapping of field names to raw JSON values
type Record struct {
	keys   []string
	values map[string]json.RawMessage
}

// New creates an empty record
func New() *Record {
	return &Record{values: make(map[string]json.RawMessage)}
}

// Parse decodes a single JSON object into a record
func Parse(data []byte) (*Record, error) {
	r := New()
	if err := r.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return r, nil
}

// Keys returns the field names in their original order
func (r *Record) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Len returns the number of fields
func (r *Record) Len() int {
	return len(r.keys)
}

// Has reports whether the field is present
func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Raw returns the raw JSON value of a field
func (r *Record) Raw(key string) (json.RawMessage, bool) {
	v, ok := r.values[key]
	return v, ok
}

// SetRaw stores a raw JSON value. New keys are appended, existing keys keep
// their position.
func (r *Record) SetRaw(key string, raw json.RawMessage) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = raw
}

// Set encodes v and stores it under key
func (r *Record) Set(key string, v any) error {
	raw, err := Encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode field %q: %w", key, err)
	}
	r.SetRaw(key, raw)
	return nil
}

// SetString stores a string value under key
func (r *Record) SetString(key, s string) {
	raw, _ := Encode(s) // strings always encode
	r.SetRaw(key, raw)
}

// Clone returns a shallow copy. Raw values are never mutated in place, so
// sharing them between copies is safe.
func (r *Record) Clone() *Record {
	c := &Record{
		keys:   make([]string, len(r.keys)),
		values: make(map[string]json.RawMessage, len(r.values)),
	}
	copy(c.keys, r.keys)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Truthy reports whether the field is present with a non-empty value.
// null, false, 0, "", [] and {} count as empty.
func (r *Record) Truthy(key string) bool {
	raw, ok := r.values[key]
	if !ok {
		return false
	}
	return truthy(raw)
}

// Text returns the field coerced to text: strings unquoted, everything else
// as its compact JSON literal.
func (r *Record) Text(key string) (string, bool) {
	raw, ok := r.values[key]
	if !ok {
		return "", false
	}
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return string(raw), true
		}
		return s, true
	}
	return string(raw), true
}

// MarshalJSON writes the fields in order without HTML escaping
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := Encode(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(r.values[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping its key order. Values are kept
// as compacted raw JSON; a repeated key keeps its first position and the
// last value.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return ErrNotObject
	}

	r.keys = nil
	r.values = make(map[string]json.RawMessage)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to decode record key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected record key %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("failed to decode field %q: %w", key, err)
		}

		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return fmt.Errorf("failed to compact field %q: %w", key, err)
		}
		value, err := literalStrings(compact.Bytes())
		if err != nil {
			return fmt.Errorf("failed to decode field %q: %w", key, err)
		}
		r.SetRaw(key, json.RawMessage(value))
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to decode record end: %w", err)
	}
	return nil
}

// Line returns the record as one JSON Lines entry including the newline
func (r *Record) Line() ([]byte, error) {
	data, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Encode marshals v as compact JSON with non-ASCII and HTML characters
// written literally. U+2028 and U+2029 are written literally as well.
func Encode(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return json.RawMessage(literalLineSeparators(bytes.TrimRight(buf.Bytes(), "\n"))), nil
}

// literalStrings re-encodes the string literals of compact JSON that carry
// \u escapes, so input written with ASCII-only escaping comes out literal.
// Key order, numbers and all other bytes stay untouched.
func literalStrings(raw []byte) ([]byte, error) {
	if !bytes.Contains(raw, []byte(`\u`)) {
		return raw, nil
	}

	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); {
		if raw[i] != '"' {
			out = append(out, raw[i])
			i++
			continue
		}

		end := stringEnd(raw, i)
		lit := raw[i:end]
		if bytes.Contains(lit, []byte(`\u`)) {
			var s string
			if err := json.Unmarshal(lit, &s); err != nil {
				return nil, err
			}
			enc, err := Encode(s)
			if err != nil {
				return nil, err
			}
			lit = enc
		}
		out = append(out, lit...)
		i = end
	}
	return out, nil
}

// stringEnd returns the index just past the closing quote of the string
// literal opening at start
func stringEnd(raw []byte, start int) int {
	for i := start + 1; i < len(raw); i++ {
		switch raw[i] {
		case '\\':
			i++
		case '"':
			return i + 1
		}
	}
	return len(raw)
}

// literalLineSeparators undoes the \u2028 and \u2029 escapes encoding/json
// always applies. Escaped backslashes are skipped as a pair so text like
// `\\u2028` keeps its meaning.
func literalLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u202`)) {
		return b
	}

	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		rest := b[i+1:]
		switch {
		case bytes.HasPrefix(rest, []byte("u2028")):
			out = append(out, "\u2028"...)
			i += 5
		case bytes.HasPrefix(rest, []byte("u2029")):
			out = append(out, "\u2029"...)
			i += 5
		default:
			out = append(out, b[i], b[i+1])
			i++
		}
	}
	return out
}

func truthy(raw json.RawMessage) bool {
	s := string(bytes.TrimSpace(raw))
	switch s {
	case "", "null", "false", `""`, "[]", "{}":
		return false
	}
	if c := s[0]; c == '-' || (c >= '0' && c <= '9') {
		f, err := strconv.ParseFloat(s, 64)
		return err != nil || f != 0
	}
	return true
}
