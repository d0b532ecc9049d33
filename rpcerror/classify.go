package rpcerror

import (
	"bytes"
	"encoding/json"
	"regexp"
	"sort"

	"github.com/iov-one/dualsign/errors"
)

// node is a parsed level of a structured error payload. It is either a
// wrapper of another node or a leaf.
type node interface {
	kindName() string
}

// wrapperNode wraps exactly one more specific kind. Fields are the sibling
// attributes found next to the nested kind, for example the action index.
type wrapperNode struct {
	kind   string
	fields map[string]interface{}
	child  node
}

func (n *wrapperNode) kindName() string { return n.kind }

// leafNode is the innermost kind. A leaf created from a string tag has no
// fields.
type leafNode struct {
	kind   string
	fields map[string]interface{}
}

func (n *leafNode) kindName() string { return n.kind }

// kindNamePattern matches error kind names. Attribute names are snake case
// and never match.
var kindNamePattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)

func isKindName(s string) bool {
	return kindNamePattern.MatchString(s)
}

// Classify returns a typed error for the given structured error payload. The
// payload must be either a decoded JSON object or raw JSON bytes.
func Classify(raw interface{}) (*TypedError, error) {
	payload, err := decodePayload(raw)
	if err != nil {
		return nil, err
	}
	root, err := parseRoot(payload)
	if err != nil {
		return nil, err
	}
	return newTypedError(root, Context{ErrorPath: payload}), nil
}

// ClassifyResult returns a typed error for the failure carried by a
// transaction execution result or outcome. The failure is expected at
// status.Failure or outcome.status.Failure.
func ClassifyResult(result interface{}) (*TypedError, error) {
	payload, err := decodePayload(result)
	if err != nil {
		return nil, err
	}
	status, ok := payload["status"].(map[string]interface{})
	if !ok {
		if outcome, ok := payload["outcome"].(map[string]interface{}); ok {
			status, _ = outcome["status"].(map[string]interface{})
		}
	}
	if status == nil {
		return nil, errors.Wrap(errors.ErrMalformed, "no execution status")
	}
	failure, ok := status["Failure"].(map[string]interface{})
	if !ok {
		return nil, errors.Wrap(errors.ErrMalformed, "execution status is not a failure")
	}
	root, err := parseRoot(failure)
	if err != nil {
		return nil, err
	}
	return newTypedError(root, Context{ErrorPath: failure}), nil
}

func decodePayload(raw interface{}) (map[string]interface{}, error) {
	var b []byte
	switch v := raw.(type) {
	case nil:
		return nil, errors.Wrap(errors.ErrMalformed, "empty payload")
	case map[string]interface{}:
		if len(v) == 0 {
			return nil, errors.Wrap(errors.ErrMalformed, "empty payload")
		}
		return v, nil
	case json.RawMessage:
		b = v
	case []byte:
		b = v
	default:
		return nil, errors.Wrapf(errors.ErrMalformed, "unsupported payload type %T", raw)
	}

	if len(bytes.TrimSpace(b)) == 0 {
		return nil, errors.Wrap(errors.ErrMalformed, "empty payload")
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	// Keep large integers (gas, balances) exact.
	dec.UseNumber()
	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, errors.Wrapf(errors.ErrMalformed, "cannot decode payload: %s", err)
	}
	if len(payload) == 0 {
		return nil, errors.Wrap(errors.ErrMalformed, "empty payload")
	}
	return payload, nil
}

func parseRoot(payload map[string]interface{}) (node, error) {
	if len(payload) != 1 {
		return nil, errors.Wrapf(errors.ErrMalformed, "top level must hold exactly one kind, got %d keys", len(payload))
	}
	for kind, value := range payload {
		if !isKindName(kind) {
			return nil, errors.Wrapf(errors.ErrMalformed, "%q is not an error kind", kind)
		}
		return parseNode(kind, value)
	}
	panic("unreachable")
}

// parseNode parses the value found under a kind named key.
func parseNode(kind string, value interface{}) (node, error) {
	switch v := value.(type) {
	case nil:
		return &leafNode{kind: kind}, nil
	case string:
		if isKindName(v) {
			return &wrapperNode{kind: kind, child: &leafNode{kind: v}}, nil
		}
		// Free text, for example a contract panic message.
		return &leafNode{kind: kind, fields: map[string]interface{}{"message": v}}, nil
	case map[string]interface{}:
		return parseObject(kind, v)
	default:
		return nil, errors.Wrapf(errors.ErrMalformed, "unexpected %T value of %q", value, kind)
	}
}

func parseObject(kind string, obj map[string]interface{}) (node, error) {
	var kinds []string
	for k := range obj {
		if isKindName(k) {
			kinds = append(kinds, k)
		}
	}

	switch {
	case len(kinds) == 1 && len(obj) == 1:
		child, err := parseNode(kinds[0], obj[kinds[0]])
		if err != nil {
			return nil, err
		}
		return &wrapperNode{kind: kind, child: child}, nil
	case len(kinds) > 0:
		sort.Strings(kinds)
		return nil, errors.Wrapf(errors.ErrMalformed, "%q wraps more than one kind: %v", kind, kinds)
	}

	fields := make(map[string]interface{}, len(obj))
	for k, v := range obj {
		fields[k] = v
	}

	// Action errors carry the nested kind under the "kind" attribute,
	// next to the index of the failed action.
	switch inner := obj["kind"].(type) {
	case map[string]interface{}:
		if len(inner) != 1 {
			break
		}
		for k, v := range inner {
			if !isKindName(k) {
				break
			}
			child, err := parseNode(k, v)
			if err != nil {
				return nil, err
			}
			delete(fields, "kind")
			return &wrapperNode{kind: kind, fields: fields, child: child}, nil
		}
	case string:
		if isKindName(inner) {
			delete(fields, "kind")
			return &wrapperNode{kind: kind, fields: fields, child: &leafNode{kind: inner}}, nil
		}
	}

	return &leafNode{kind: kind, fields: fields}, nil
}

func newTypedError(root node, ctx Context) *TypedError {
	var (
		chain  []string
		fields = make(map[string]interface{})
	)
	for n := root; ; {
		chain = append(chain, n.kindName())
		switch v := n.(type) {
		case *wrapperNode:
			for k, val := range v.fields {
				fields[k] = val
			}
			n = v.child
		case *leafNode:
			// Leaf attributes take precedence over inherited ones.
			for k, val := range v.fields {
				fields[k] = val
			}
			return &TypedError{
				kind:   v.kind,
				chain:  chain,
				fields: fields,
				ctx:    ctx,
			}
		}
	}
}
