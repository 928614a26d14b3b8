// Package jsonspan locates the byte span of each string-valued field of
// a JSON object, without pulling in a full position-aware JSON AST
// library: encoding/json's streaming Decoder already reports InputOffset
// after every token, so finding a string value's span only takes a
// short backward scan for the matching (possibly escaped) opening quote.
package jsonspan

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrNotObject is returned by StringFields when raw doesn't start with
// a JSON object.
var ErrNotObject = errors.New("jsonspan: not a JSON object")

// Field is one key whose value is a JSON string, in document order.
type Field struct {
	Key   string
	Value string

	// ValueStart/ValueEnd are byte offsets of the value's content
	// between (not including) its surrounding quotes, relative to the
	// start of the document raw was sliced from (see base in
	// StringFields).
	ValueStart int
	ValueEnd   int
}

// StringFields decodes the JSON object in raw and returns every
// immediate field whose value is a string. Nested objects/arrays are
// skipped over (not recursed into) so callers can call StringFields
// again on a nested object's own raw bytes. base is added to every
// offset so spans end up relative to the enclosing document rather
// than raw itself.
func StringFields(raw []byte, base int) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, ErrNotObject
	}

	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)

		valueOffsetBefore := int(dec.InputOffset())
		valTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		valueOffsetAfter := int(dec.InputOffset())

		strVal, isString := valTok.(string)
		if !isString {
			if d, ok := valTok.(json.Delim); ok && (d == '{' || d == '[') {
				if err := skipContainer(dec); err != nil {
					return nil, err
				}
			}
			continue
		}

		start, end := findQuotedSpan(raw, valueOffsetBefore, valueOffsetAfter)
		fields = append(fields, Field{
			Key:        key,
			Value:      strVal,
			ValueStart: base + start,
			ValueEnd:   base + end,
		})
	}
	return fields, nil
}

// Locate returns the byte offset of nested (a json.RawMessage captured
// while decoding doc) within doc, so callers can recurse StringFields
// into a nested object with the right base offset. Returns -1 if not
// found (should not happen for a RawMessage actually sliced from doc,
// but decoders are free to copy).
func Locate(doc []byte, nested []byte) int {
	return bytes.Index(doc, nested)
}

func skipContainer(dec *json.Decoder) error {
	depth := 1
	for depth > 0 {
		t, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := t.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

// findQuotedSpan locates the opening/closing quote pair for a string
// token that Decoder reported as ending at offsetAfter (one past the
// closing quote), searching no further back than offsetBefore. It
// returns the byte range of the content strictly between the quotes.
func findQuotedSpan(raw []byte, offsetBefore, offsetAfter int) (start, end int) {
	end = offsetAfter - 1 // index of the closing quote
	if end < 0 || end >= len(raw) || raw[end] != '"' {
		return offsetBefore, offsetAfter
	}
	i := end
	for i > offsetBefore {
		i--
		if raw[i] != '"' {
			continue
		}
		backslashes := 0
		for k := i - 1; k >= offsetBefore && raw[k] == '\\'; k-- {
			backslashes++
		}
		if backslashes%2 == 0 {
			return i + 1, end
		}
	}
	return offsetBefore, end
}
