package jsonpatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-openapi/jsonpointer"
)

var (
	// ErrMalformedPatch is returned when a patch document is not a JSON array of objects.
	ErrMalformedPatch = errors.New("jsonpatch: malformed patch document")
	// ErrInvalidOperation is returned for unknown ops or ops missing required members.
	ErrInvalidOperation = errors.New("jsonpatch: invalid operation")
	// ErrInvalidPointer is returned when a path or from member is not a valid JSON pointer.
	ErrInvalidPointer = errors.New("jsonpatch: invalid pointer")
	// ErrPathNotFound is returned when a pointer does not resolve against the document.
	ErrPathNotFound = errors.New("jsonpatch: path not found")
	// ErrTestFailed is returned when a test operation does not match.
	ErrTestFailed = errors.New("jsonpatch: test failed")
)

// Op names of RFC 6902.
const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
	OpMove    = "move"
	OpCopy    = "copy"
	OpTest    = "test"
)

// Operation is one entry of a patch document. Presence of optional members is tracked
// separately from their values, so `"value": null` differs from a missing value.
type Operation struct {
	Op       string
	Path     string
	From     string
	Value    json.RawMessage
	hasPath  bool
	hasFrom  bool
	hasValue bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Operation) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	if raw, ok := members["op"]; ok {
		if err := json.Unmarshal(raw, &o.Op); err != nil {
			return fmt.Errorf("op: %w", err)
		}
	}
	if raw, ok := members["path"]; ok {
		if err := json.Unmarshal(raw, &o.Path); err != nil {
			return fmt.Errorf("path: %w", err)
		}
		o.hasPath = true
	}
	if raw, ok := members["from"]; ok {
		if err := json.Unmarshal(raw, &o.From); err != nil {
			return fmt.Errorf("from: %w", err)
		}
		o.hasFrom = true
	}
	if raw, ok := members["value"]; ok {
		o.Value = raw
		o.hasValue = true
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (o Operation) MarshalJSON() ([]byte, error) {
	out := map[string]any{"op": o.Op, "path": o.Path}
	if o.hasFrom || o.From != "" {
		out["from"] = o.From
	}
	if o.hasValue || o.Value != nil {
		out["value"] = o.Value
	}
	return json.Marshal(out)
}

// Patch is an ordered list of operations.
type Patch []Operation

// DecodePatch parses a patch document. Only the document shape is checked here;
// each operation is validated when it is applied.
func DecodePatch(data []byte) (Patch, error) {
	var patch Patch
	if err := json.Unmarshal(data, &patch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPatch, err)
	}
	if patch == nil {
		return nil, fmt.Errorf("%w: expected an array of operations", ErrMalformedPatch)
	}
	return patch, nil
}

// OperationError reports which operation of a patch failed.
type OperationError struct {
	Index int
	Op    string
	Path  string
	Err   error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %d (%s %q): %v", e.Index, e.Op, e.Path, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// Apply applies every operation in order to a copy of doc and returns the result.
// doc itself is never modified. The first failing operation aborts the whole patch.
func (p Patch) Apply(doc *Value) (*Value, error) {
	work := doc.Clone()
	for i, op := range p {
		var err error
		work, err = op.apply(work)
		if err != nil {
			return nil, &OperationError{Index: i, Op: op.Op, Path: op.Path, Err: err}
		}
	}
	return work, nil
}

func (o Operation) apply(doc *Value) (*Value, error) {
	if !o.hasPath {
		return nil, fmt.Errorf("%w: missing path", ErrInvalidOperation)
	}
	path, err := parsePointer(o.Path)
	if err != nil {
		return nil, err
	}

	switch o.Op {
	case OpAdd:
		val, err := o.value()
		if err != nil {
			return nil, err
		}
		return add(doc, path, val)
	case OpRemove:
		_, err := remove(doc, path)
		return doc, err
	case OpReplace:
		val, err := o.value()
		if err != nil {
			return nil, err
		}
		return replace(doc, path, val)
	case OpMove:
		from, err := o.from()
		if err != nil {
			return nil, err
		}
		if isProperPrefix(from, path) {
			return nil, fmt.Errorf("%w: cannot move %q into its own child", ErrInvalidOperation, o.From)
		}
		if samePointer(from, path) {
			if _, err := get(doc, from); err != nil {
				return nil, err
			}
			return doc, nil
		}
		val, err := remove(doc, from)
		if err != nil {
			return nil, err
		}
		return add(doc, path, val)
	case OpCopy:
		from, err := o.from()
		if err != nil {
			return nil, err
		}
		val, err := get(doc, from)
		if err != nil {
			return nil, err
		}
		return add(doc, path, val.Clone())
	case OpTest:
		val, err := o.value()
		if err != nil {
			return nil, err
		}
		current, err := get(doc, path)
		if err != nil {
			return nil, err
		}
		if !Equal(current, val) {
			return nil, ErrTestFailed
		}
		return doc, nil
	case "":
		return nil, fmt.Errorf("%w: missing op", ErrInvalidOperation)
	default:
		return nil, fmt.Errorf("%w: unknown op %q", ErrInvalidOperation, o.Op)
	}
}

func (o Operation) value() (*Value, error) {
	if !o.hasValue {
		return nil, fmt.Errorf("%w: missing value", ErrInvalidOperation)
	}
	v, err := Parse(o.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: value: %v", ErrInvalidOperation, err)
	}
	return v, nil
}

func (o Operation) from() ([]string, error) {
	if !o.hasFrom {
		return nil, fmt.Errorf("%w: missing from", ErrInvalidOperation)
	}
	return parsePointer(o.From)
}

func parsePointer(s string) ([]string, error) {
	ptr, err := jsonpointer.New(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPointer, s, err)
	}
	return ptr.DecodedTokens(), nil
}

func isProperPrefix(prefix, path []string) bool {
	if len(prefix) >= len(path) {
		return false
	}
	for i := range prefix {
		if prefix[i] != path[i] {
			return false
		}
	}
	return true
}

func samePointer(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// get resolves tokens against doc.
func get(doc *Value, tokens []string) (*Value, error) {
	cur := doc
	for _, tok := range tokens {
		switch cur.kind {
		case KindObject:
			next, ok := cur.obj[tok]
			if !ok {
				return nil, fmt.Errorf("%w: member %q", ErrPathNotFound, tok)
			}
			cur = next
		case KindArray:
			idx, err := arrayIndex(tok, len(cur.arr)-1)
			if err != nil {
				return nil, err
			}
			cur = cur.arr[idx]
		default:
			return nil, fmt.Errorf("%w: cannot descend into %s", ErrPathNotFound, cur.kind)
		}
	}
	return cur, nil
}

func parent(doc *Value, tokens []string) (*Value, string, error) {
	p, err := get(doc, tokens[:len(tokens)-1])
	if err != nil {
		return nil, "", err
	}
	return p, tokens[len(tokens)-1], nil
}

func add(doc *Value, tokens []string, val *Value) (*Value, error) {
	if len(tokens) == 0 {
		return val, nil
	}
	p, key, err := parent(doc, tokens)
	if err != nil {
		return nil, err
	}
	switch p.kind {
	case KindObject:
		p.obj[key] = val
	case KindArray:
		if key == "-" {
			p.arr = append(p.arr, val)
			break
		}
		idx, err := arrayIndex(key, len(p.arr))
		if err != nil {
			return nil, err
		}
		p.arr = append(p.arr, nil)
		copy(p.arr[idx+1:], p.arr[idx:])
		p.arr[idx] = val
	default:
		return nil, fmt.Errorf("%w: cannot add to %s", ErrPathNotFound, p.kind)
	}
	return doc, nil
}

func remove(doc *Value, tokens []string) (*Value, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: cannot remove the document root", ErrInvalidOperation)
	}
	p, key, err := parent(doc, tokens)
	if err != nil {
		return nil, err
	}
	switch p.kind {
	case KindObject:
		old, ok := p.obj[key]
		if !ok {
			return nil, fmt.Errorf("%w: member %q", ErrPathNotFound, key)
		}
		delete(p.obj, key)
		return old, nil
	case KindArray:
		idx, err := arrayIndex(key, len(p.arr)-1)
		if err != nil {
			return nil, err
		}
		old := p.arr[idx]
		p.arr = append(p.arr[:idx], p.arr[idx+1:]...)
		return old, nil
	default:
		return nil, fmt.Errorf("%w: cannot remove from %s", ErrPathNotFound, p.kind)
	}
}

func replace(doc *Value, tokens []string, val *Value) (*Value, error) {
	if len(tokens) == 0 {
		return val, nil
	}
	p, key, err := parent(doc, tokens)
	if err != nil {
		return nil, err
	}
	switch p.kind {
	case KindObject:
		if _, ok := p.obj[key]; !ok {
			return nil, fmt.Errorf("%w: member %q", ErrPathNotFound, key)
		}
		p.obj[key] = val
	case KindArray:
		idx, err := arrayIndex(key, len(p.arr)-1)
		if err != nil {
			return nil, err
		}
		p.arr[idx] = val
	default:
		return nil, fmt.Errorf("%w: cannot replace in %s", ErrPathNotFound, p.kind)
	}
	return doc, nil
}

// arrayIndex parses an RFC 6901 array index and checks 0 <= idx <= max.
func arrayIndex(tok string, max int) (int, error) {
	if tok == "" || (len(tok) > 1 && tok[0] == '0') {
		return 0, fmt.Errorf("%w: bad array index %q", ErrInvalidPointer, tok)
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: bad array index %q", ErrInvalidPointer, tok)
		}
	}
	idx, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("%w: bad array index %q", ErrInvalidPointer, tok)
	}
	if idx > max {
		return 0, fmt.Errorf("%w: index %d out of range", ErrPathNotFound, idx)
	}
	return idx, nil
}
