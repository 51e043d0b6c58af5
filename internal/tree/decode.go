package tree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var (
	// ErrSyntax is returned when the input is not a single well-formed JSON value.
	ErrSyntax = errors.New("invalid JSON document")

	// ErrTrailingData is returned when bytes follow the first JSON value.
	ErrTrailingData = errors.New("unexpected data after JSON value")
)

// Decode reads exactly one JSON value from r and returns it as a tree.
// Object keys keep the order in which they appear in the input.
func Decode(r io.Reader) (*Node, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	n, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}
	return n, nil
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte) (*Node, error) {
	return Decode(bytes.NewReader(data))
}

func decodeValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return nil, fmt.Errorf("%w: unexpected %q", ErrSyntax, rune(v))
		}
	case json.Number:
		f, err := strconv.ParseFloat(v.String(), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, fmt.Errorf("%w: bad number %q", ErrSyntax, v.String())
		}
		return &Node{kind: KindNumber, num: f, text: v.String()}, nil
	case string:
		return String(v), nil
	case bool:
		return Bool(v), nil
	case nil:
		return Null(), nil
	default:
		return nil, fmt.Errorf("%w: unexpected token %v", ErrSyntax, tok)
	}
}

func decodeObject(dec *json.Decoder) (*Node, error) {
	n := &Node{kind: KindObject}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: object key is %T", ErrSyntax, tok)
		}

		value, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		n.set(key, value)
	}

	// closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}
	return n, nil
}

func decodeArray(dec *json.Decoder) (*Node, error) {
	n := &Node{kind: KindArray}
	for dec.More() {
		item, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		n.items = append(n.items, item)
	}

	// closing ']'
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}
	return n, nil
}
