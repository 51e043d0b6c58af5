package search

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/nao1215/ytscan/internal/tree"
)

// Policy decides whether a key that is present but bound to an empty value
// counts as a match.
type Policy int

const (
	// SkipFalsy treats null, false, zero, "" and empty containers as not
	// found, and the search keeps looking past them. This is the default.
	SkipFalsy Policy = iota

	// StopOnPresent ends the search at the first present key, whatever its value.
	StopOnPresent
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case SkipFalsy:
		return "skip-falsy"
	case StopOnPresent:
		return "stop-on-present"
	default:
		return "unknown"
	}
}

// ParsePolicy parses a configuration name as returned by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip-falsy":
		return SkipFalsy, nil
	case "stop-on-present":
		return StopOnPresent, nil
	default:
		return SkipFalsy, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Segment is one step of a path: an object key or an array index.
type Segment struct {
	key     string
	index   int
	isIndex bool
}

// Key returns a segment that selects an object member.
func Key(k string) Segment {
	return Segment{key: k}
}

// Index returns a segment that selects an array element.
func Index(i int) Segment {
	return Segment{index: i, isIndex: true}
}

// String renders the segment the way it would appear in a path expression.
func (s Segment) String() string {
	if s.isIndex {
		return "[" + strconv.Itoa(s.index) + "]"
	}
	return s.key
}

// Engine runs structural queries over a tree.
// The zero value uses SkipFalsy. An Engine is immutable and may be shared
// between goroutines.
type Engine struct {
	policy Policy
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolicy sets the traversal policy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// New creates an Engine.
func New(opts ...Option) Engine {
	e := Engine{policy: SkipFalsy}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Policy returns the traversal policy of the engine.
func (e Engine) Policy() Policy {
	return e.policy
}

// Accept reports whether n counts as found under the engine's policy.
func (e Engine) Accept(n *tree.Node) bool {
	if n == nil {
		return false
	}
	if e.policy == StopOnPresent {
		return true
	}
	return n.Truthy()
}

// PathLookup follows path from root.
//
// Each segment is first tried as a direct child of the current node. When
// it is missing there, every container below the current node is tried in
// document order as a new starting point for the remaining segments, and
// the first accepted completion is returned. A segment that is present is
// followed without backtracking, so PathLookup(T, Key(a), Key(b)) is either
// T[a][b] or KeySearch(T[a], b). PathLookup returns nil when no completion
// is accepted.
func (e Engine) PathLookup(root *tree.Node, path ...Segment) *tree.Node {
	n := e.lookup(root, path)
	if !e.Accept(n) {
		return nil
	}
	return n
}

func (e Engine) lookup(n *tree.Node, path []Segment) *tree.Node {
	if len(path) == 0 {
		return n
	}
	seg := path[0]

	// A present segment commits the lookup to that child. Only the final
	// segment may fall through to the descendants when its value is rejected.
	switch n.Kind() {
	case tree.KindObject:
		if !seg.isIndex && n.Has(seg.key) {
			r := e.lookup(n.Get(seg.key), path[1:])
			if len(path) > 1 || e.Accept(r) {
				return r
			}
		}
		for _, f := range n.Fields() {
			if r := e.descend(f.Value, path); r != nil {
				return r
			}
		}
	case tree.KindArray:
		if seg.isIndex && seg.index >= 0 && seg.index < n.Len() {
			r := e.lookup(n.Index(seg.index), path[1:])
			if len(path) > 1 || e.Accept(r) {
				return r
			}
		}
		for _, item := range n.Items() {
			if r := e.descend(item, path); r != nil {
				return r
			}
		}
	}
	return nil
}

func (e Engine) descend(n *tree.Node, path []Segment) *tree.Node {
	if !n.IsContainer() {
		return nil
	}
	if r := e.lookup(n, path); e.Accept(r) {
		return r
	}
	return nil
}

// KeySearch returns the value of the first object, in pre-order, that binds
// key to an accepted value. Under SkipFalsy an empty binding does not stop
// the search; the object's children are still searched.
func (e Engine) KeySearch(root *tree.Node, key string) *tree.Node {
	var found *tree.Node
	tree.Walk(root, func(n *tree.Node) bool {
		if !n.IsObject() || !n.Has(key) {
			return true
		}
		if v := n.Get(key); e.Accept(v) {
			found = v
			return false
		}
		return true
	})
	return found
}

// SubstringSearch returns the first string scalar, in pre-order, that
// contains needle. Object values and array elements are both considered.
// With caseInsensitive set, both sides are case folded before comparison.
func (e Engine) SubstringSearch(root *tree.Node, needle string, caseInsensitive bool) (string, bool) {
	match := func(s string) bool { return strings.Contains(s, needle) }
	if caseInsensitive {
		// A Caser keeps state and must not be shared across calls.
		fold := cases.Fold()
		folded := fold.String(needle)
		match = func(s string) bool {
			return strings.Contains(fold.String(s), folded)
		}
	}

	var (
		found string
		ok    bool
	)
	tree.Walk(root, func(n *tree.Node) bool {
		s, isStr := n.Str()
		if !isStr || !e.Accept(n) || !match(s) {
			return true
		}
		found, ok = s, true
		return false
	})
	return found, ok
}

// PatternSearch returns the submatches of re in the first string scalar, in
// pre-order, that re matches.
func (e Engine) PatternSearch(root *tree.Node, re *regexp.Regexp) ([]string, bool) {
	var found []string
	tree.Walk(root, func(n *tree.Node) bool {
		s, isStr := n.Str()
		if !isStr || !e.Accept(n) {
			return true
		}
		if m := re.FindStringSubmatch(s); m != nil {
			found = m
			return false
		}
		return true
	})
	return found, found != nil
}

var defaultEngine = New()

// PathLookup runs Engine.PathLookup with the SkipFalsy policy.
func PathLookup(root *tree.Node, path ...Segment) *tree.Node {
	return defaultEngine.PathLookup(root, path...)
}

// KeySearch runs Engine.KeySearch with the SkipFalsy policy.
func KeySearch(root *tree.Node, key string) *tree.Node {
	return defaultEngine.KeySearch(root, key)
}

// SubstringSearch runs Engine.SubstringSearch with the SkipFalsy policy.
func SubstringSearch(root *tree.Node, needle string, caseInsensitive bool) (string, bool) {
	return defaultEngine.SubstringSearch(root, needle, caseInsensitive)
}

// PatternSearch runs Engine.PatternSearch with the SkipFalsy policy.
func PatternSearch(root *tree.Node, re *regexp.Regexp) ([]string, bool) {
	return defaultEngine.PatternSearch(root, re)
}
