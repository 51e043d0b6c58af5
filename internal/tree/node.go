package tree

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Kind identifies which variant of the tagged union a Node holds.
type Kind int

const (
	// KindNull is the JSON null value. A nil *Node also reports KindNull.
	KindNull Kind = iota

	// KindBool is a JSON boolean.
	KindBool

	// KindNumber is a JSON number, kept as float64 plus its source literal.
	KindNumber

	// KindString is a JSON string.
	KindString

	// KindArray is an ordered sequence of nodes.
	KindArray

	// KindObject is an ordered mapping of string keys to nodes.
	KindObject
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Field is a single key/value pair of an object node.
type Field struct {
	// Key is the object key.
	Key string

	// Value is the node bound to Key. It is never nil.
	Value *Node
}

// Node is an immutable, already-decoded JSON value.
//
// Objects remember the order in which their keys appeared in the source
// document, and every traversal in this module visits keys in that order.
// All accessor methods are safe to call on a nil *Node, which behaves like
// an absent value: it reports KindNull and has no children.
type Node struct {
	kind    Kind
	boolean bool
	num     float64
	// text is the string value, or the source literal of a number.
	text   string
	items  []*Node
	fields []Field
	index  map[string]int
}

// Null returns a null node.
func Null() *Node {
	return &Node{kind: KindNull}
}

// Bool returns a boolean node.
func Bool(b bool) *Node {
	return &Node{kind: KindBool, boolean: b}
}

// Number returns a number node.
func Number(f float64) *Node {
	return &Node{kind: KindNumber, num: f}
}

// String returns a string node.
func String(s string) *Node {
	return &Node{kind: KindString, text: s}
}

// Array returns an array node holding items in the given order.
// Nil items are stored as null nodes.
func Array(items ...*Node) *Node {
	n := &Node{kind: KindArray, items: make([]*Node, 0, len(items))}
	for _, item := range items {
		if item == nil {
			item = Null()
		}
		n.items = append(n.items, item)
	}
	return n
}

// Object returns an object node holding fields in the given order.
// A repeated key keeps its first position and its last value, which is
// also how Decode treats duplicate keys.
func Object(fields ...Field) *Node {
	n := &Node{kind: KindObject, fields: make([]Field, 0, len(fields))}
	for _, f := range fields {
		n.set(f.Key, f.Value)
	}
	return n
}

// F is shorthand for building a Field.
func F(key string, value *Node) Field {
	return Field{Key: key, Value: value}
}

// set binds key to value during construction.
func (n *Node) set(key string, value *Node) {
	if value == nil {
		value = Null()
	}
	if n.index == nil {
		n.index = make(map[string]int)
	}
	if i, ok := n.index[key]; ok {
		n.fields[i].Value = value
		return
	}
	n.index[key] = len(n.fields)
	n.fields = append(n.fields, Field{Key: key, Value: value})
}

// Kind returns the variant held by the node.
func (n *Node) Kind() Kind {
	if n == nil {
		return KindNull
	}
	return n.kind
}

// IsNull reports whether the node is null or absent.
func (n *Node) IsNull() bool {
	return n.Kind() == KindNull
}

// IsObject reports whether the node is an object.
func (n *Node) IsObject() bool {
	return n.Kind() == KindObject
}

// IsArray reports whether the node is an array.
func (n *Node) IsArray() bool {
	return n.Kind() == KindArray
}

// IsContainer reports whether the node is an object or an array.
func (n *Node) IsContainer() bool {
	k := n.Kind()
	return k == KindObject || k == KindArray
}

// Str returns the string value and true if the node is a string.
func (n *Node) Str() (string, bool) {
	if n.Kind() != KindString {
		return "", false
	}
	return n.text, true
}

// Num returns the numeric value and true if the node is a number.
func (n *Node) Num() (float64, bool) {
	if n.Kind() != KindNumber {
		return 0, false
	}
	return n.num, true
}

// Bool returns the boolean value and true if the node is a boolean.
func (n *Node) Bool() (bool, bool) {
	if n.Kind() != KindBool {
		return false, false
	}
	return n.boolean, true
}

// Len returns the number of elements of an array or fields of an object.
// Scalars have length zero.
func (n *Node) Len() int {
	switch n.Kind() {
	case KindArray:
		return len(n.items)
	case KindObject:
		return len(n.fields)
	default:
		return 0
	}
}

// Index returns the i-th element of an array, or nil when the node is not
// an array or i is out of range.
func (n *Node) Index(i int) *Node {
	if n.Kind() != KindArray || i < 0 || i >= len(n.items) {
		return nil
	}
	return n.items[i]
}

// Get returns the value bound to key, or nil when the node is not an
// object or has no such key.
func (n *Node) Get(key string) *Node {
	if n.Kind() != KindObject {
		return nil
	}
	i, ok := n.index[key]
	if !ok {
		return nil
	}
	return n.fields[i].Value
}

// Has reports whether the node is an object carrying key.
func (n *Node) Has(key string) bool {
	if n.Kind() != KindObject {
		return false
	}
	_, ok := n.index[key]
	return ok
}

// Keys returns the object keys in document order.
func (n *Node) Keys() []string {
	if n.Kind() != KindObject {
		return nil
	}
	keys := make([]string, len(n.fields))
	for i, f := range n.fields {
		keys[i] = f.Key
	}
	return keys
}

// Fields returns the object fields in document order.
// The returned slice must not be modified.
func (n *Node) Fields() []Field {
	if n.Kind() != KindObject {
		return nil
	}
	return n.fields
}

// Items returns the array elements in index order.
// The returned slice must not be modified.
func (n *Node) Items() []*Node {
	if n.Kind() != KindArray {
		return nil
	}
	return n.items
}

// Truthy reports whether the node holds a non-empty value.
// Null, false, zero, the empty string, and empty containers are falsy.
func (n *Node) Truthy() bool {
	switch n.Kind() {
	case KindBool:
		return n.boolean
	case KindNumber:
		return n.num != 0
	case KindString:
		return n.text != ""
	case KindArray:
		return len(n.items) > 0
	case KindObject:
		return len(n.fields) > 0
	default:
		return false
	}
}

// String renders the node as text. Strings are returned verbatim; every
// other kind is rendered as compact JSON with object keys in document order.
func (n *Node) String() string {
	if s, ok := n.Str(); ok {
		return s
	}
	var buf bytes.Buffer
	n.writeJSON(&buf)
	return buf.String()
}

// MarshalJSON implements json.Marshaler, preserving object key order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	n.writeJSON(&buf)
	return buf.Bytes(), nil
}

func (n *Node) writeJSON(buf *bytes.Buffer) {
	switch n.Kind() {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(n.boolean))
	case KindNumber:
		if n.text != "" {
			buf.WriteString(n.text)
		} else {
			buf.WriteString(strconv.FormatFloat(n.num, 'f', -1, 64))
		}
	case KindString:
		writeJSONString(buf, n.text)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range n.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			item.writeJSON(buf)
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, f := range n.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, f.Key)
			buf.WriteByte(':')
			f.Value.writeJSON(buf)
		}
		buf.WriteByte('}')
	}
}

func writeJSONString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s) //nolint:errcheck // encoding a string into a bytes.Buffer cannot fail
	// Encoder appends a newline after each value.
	buf.Truncate(buf.Len() - 1)
}
