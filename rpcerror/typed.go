package rpcerror

import (
	"encoding/json"

	"github.com/iov-one/dualsign/errors"
)

// KindUntyped is the kind of a ledger error that could not be recognized.
const KindUntyped = "UntypedError"

// TypedError is a classified ledger error. It is immutable, all accessors
// return copies.
type TypedError struct {
	kind   string
	chain  []string
	fields map[string]interface{}
	ctx    Context
}

// Context holds the raw error information, retained for diagnostics.
type Context struct {
	// ErrorPath is the raw structured payload the error was classified
	// from. It is nil for errors created from a text message.
	ErrorPath interface{}
	// Message is the raw text of an error created from a text
	// message.
	Message string
}

var _ error = (*TypedError)(nil)

// FromMessage returns a typed error for a ledger error that arrived as text.
// The kind is decided by ClassifyMessage and the text is available as the
// "message" field.
func FromMessage(text string) *TypedError {
	kind := ClassifyMessage(text)
	return &TypedError{
		kind:   kind,
		chain:  []string{kind},
		fields: map[string]interface{}{"message": text},
		ctx:    Context{Message: text},
	}
}

// Kind returns the leaf, most specific kind of this error.
func (e *TypedError) Kind() string {
	return e.kind
}

// Chain returns all kinds of this error, starting with the outermost one. The
// last element is always the leaf kind.
func (e *TypedError) Chain() []string {
	return append([]string(nil), e.chain...)
}

// IsSubtypeOf returns true if given kind is present anywhere in the chain of
// this error.
func (e *TypedError) IsSubtypeOf(kind string) bool {
	for _, k := range e.chain {
		if k == kind {
			return true
		}
	}
	return false
}

// Field returns the value of a named attribute of this error.
func (e *TypedError) Field(name string) (interface{}, bool) {
	v, ok := e.fields[name]
	return v, ok
}

// Fields returns a copy of all named attributes of this error.
func (e *TypedError) Fields() map[string]interface{} {
	fields := make(map[string]interface{}, len(e.fields))
	for k, v := range e.fields {
		fields[k] = v
	}
	return fields
}

// Context returns the raw error information.
func (e *TypedError) Context() Context {
	return e.ctx
}

// Error returns a human readable message of this error.
func (e *TypedError) Error() string {
	if e.ctx.Message != "" {
		return e.ctx.Message
	}
	if _, ok := messageTemplates[e.kind]; ok {
		return Format(e.kind, e.fields)
	}
	return untypedMessage(e.ctx.ErrorPath)
}

// Cause implements causer interface. Every typed error is a ledger error,
// except for the unrecognized ones.
func (e *TypedError) Cause() error {
	if e.kind == KindUntyped {
		return errors.ErrUntyped
	}
	return errors.ErrLedger
}

// As returns the first typed error found in the chain of given error. Multi
// errors are searched in order.
func As(err error) (*TypedError, bool) {
	type causer interface {
		Cause() error
	}
	type unpacker interface {
		Unpack() []error
	}

	for err != nil {
		if te, ok := err.(*TypedError); ok {
			return te, true
		}
		if u, ok := err.(unpacker); ok {
			for _, e := range u.Unpack() {
				if te, ok := As(e); ok {
					return te, true
				}
			}
			return nil, false
		}
		c, ok := err.(causer)
		if !ok {
			return nil, false
		}
		err = c.Cause()
	}
	return nil, false
}

func untypedMessage(payload interface{}) string {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "Untyped error"
	}
	return "Untyped error: " + string(raw)
}
