package errors

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is used when a requested operation cannot be completed
	// due to missing data.
	ErrNotFound = Register(3, "not found")

	// ErrInput stands for general input problems indication.
	ErrInput = Register(4, "invalid input")

	// ErrEmpty is returned when a value fails a not empty assertion.
	ErrEmpty = Register(5, "value is empty")

	// ErrInvalidState is returned when an object is in invalid state.
	ErrInvalidState = Register(6, "invalid state")

	// ErrNetwork is returned whenever a remote service (ledger node or
	// helper service) cannot be reached or returns an unexpected
	// response.
	ErrNetwork = Register(7, "network")

	// ErrLedger is the root of every classified ledger error. Use
	// rpcerror.As to access the kind hierarchy.
	ErrLedger = Register(8, "ledger error")

	// ErrDatabase is returned when a storage backend fails.
	ErrDatabase = Register(9, "database")

	// ErrRequestSubmission is returned when a multisig request cannot be
	// registered on the contract.
	ErrRequestSubmission = Register(20, "request submission failed")

	// ErrCodeDelivery is returned when the confirmation code cannot be
	// delivered by the helper service.
	ErrCodeDelivery = Register(21, "code delivery failed")

	// ErrVerification is returned when the confirmation code verification
	// fails for a reason other than an invalid code or when the number of
	// allowed attempts is exhausted.
	ErrVerification = Register(22, "verification failed")

	// ErrMalformed is returned when a ledger error payload cannot be
	// classified because its shape is not recognized.
	ErrMalformed = Register(23, "malformed error payload")

	// ErrUntyped is the root of ledger errors that arrived as text and
	// did not match any known rule.
	ErrUntyped = Register(24, "untyped error")

	// ErrPanic is only set when we recover from a panic, so we know to
	// redact potentially sensitive system info.
	ErrPanic = Register(111222, "panic")
)

// Register returns an error instance that should be used as the base for
// creating error instances during runtime.
//
// Popular root errors are declared in this package, but other packages may
// declare custom codes. This function ensures that no error code is used
// twice. Attempt to reuse an error code results in panic.
//
// Use this function only during a program startup phase.
func Register(code uint32, description string) *Error {
	if e, ok := usedCodes[code]; ok {
		panic(fmt.Sprintf("error with code %d is already registered: %q", code, e.desc))
	}
	err := &Error{
		code: code,
		desc: description,
	}
	usedCodes[err.code] = err
	return err
}

// usedCodes is keeping track of used codes to ensure their uniqueness. No two
// error instances should share the same error code.
var usedCodes = map[uint32]*Error{
	1: nil, // Error code 1 is restricted for errors that do not wrap a registered one.
}

// Error represents a root error.
//
// Root errors categorize issues. Each instance created during the runtime
// should wrap one of the declared root errors. This allows error tests and
// returning all errors to the caller in a safe manner.
type Error struct {
	code uint32
	desc string
}

func (e Error) Error() string {
	return e.desc
}

// Code returns the registered code of this error.
func (e Error) Code() uint32 {
	return e.code
}

// New returns a new error. Returned instance is having the root cause set to
// this error. Below two lines are equal
//
//	e.New("my description")
//	Wrap(e, "my description")
func (e *Error) New(description string) error {
	return Wrap(e, description)
}

// Newf is basically New with formatting capabilities.
func (e *Error) Newf(description string, args ...interface{}) error {
	return e.New(fmt.Sprintf(description, args...))
}

// Is check if given error instance is of a given kind/type. This involves
// unwrapping given error using the Cause method if available.
func (kind *Error) Is(err error) bool {
	// Reflect usage is necessary to correctly compare with
	// a nil implementation of an error.
	if kind == nil {
		return isNilErr(err)
	}

	for {
		if err == kind {
			return true
		}

		// A multi error is matching when at least one of the errors it
		// contains is matching.
		if u, ok := err.(unpacker); ok {
			for _, e := range u.Unpack() {
				if kind.Is(e) {
					return true
				}
			}
		}

		if c, ok := err.(causer); ok {
			err = c.Cause()
		} else {
			return false
		}
	}
}

// Wrap extends given error with an additional information.
//
// If err is nil, this returns nil, avoiding the need for an if statement when
// wrapping a error returned at the end of a function
func Wrap(err error, description string) error {
	if err == nil {
		return nil
	}

	// If this error does not carry the stacktrace information yet, attach
	// one. This should be done only once per error at the lowest frame
	// possible (most inner wrap).
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}

	return &wrappedError{
		parent: err,
		msg:    description,
	}
}

// Wrapf extends given error with an additional information.
//
// This function works like Wrap function with additional funtionality of
// formatting the input as specified.
func Wrapf(err error, format string, args ...interface{}) error {
	desc := fmt.Sprintf(format, args...)
	return Wrap(err, desc)
}

// WithRoot returns an error of the root kind that keeps err as its cause.
// Both root.Is and checks of the wrapped error chain match the result.
//
// Use it to report a lower level failure as a failure of an operation while
// keeping the wrapped error accessible, for example a classified ledger
// error reported as a failed submission.
func WithRoot(root *Error, err error, description string) error {
	if err == nil {
		return nil
	}
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}
	return &rootedError{
		root:   root,
		msg:    description,
		parent: err,
	}
}

type rootedError struct {
	root   *Error
	msg    string
	parent error
}

func (e *rootedError) Error() string {
	if e.msg == "" {
		return fmt.Sprintf("%s: %s", e.root.desc, e.parent.Error())
	}
	return fmt.Sprintf("%s: %s: %s", e.root.desc, e.msg, e.parent.Error())
}

// Cause implements causer interface. The root kind is available through
// Unpack.
func (e *rootedError) Cause() error {
	return e.parent
}

// Unpack implements unpacker interface.
func (e *rootedError) Unpack() []error {
	return []error{e.root, e.parent}
}

type wrappedError struct {
	// This error layer description.
	msg string
	// The underlying error that triggered this one.
	parent error
}

func (e *wrappedError) Error() string {
	return fmt.Sprintf("%s: %s", e.msg, e.parent.Error())
}

func (e *wrappedError) Cause() error {
	return e.parent
}

// Recover captures a panic and stop its propagation. If panic happens it is
// transformed into a ErrPanic instance and assigned to given error. Call this
// function using defer in order to work as expected.
func Recover(err *error) {
	if r := recover(); r != nil {
		*err = Wrapf(ErrPanic, "%v", r)
	}
}

// causer is an interface implemented by an error that supports wrapping. Use
// it to test if an error wraps another error instance.
type causer interface {
	Cause() error
}

// isNilErr returns true if value represented by the given error is nil.
//
// Most of the time a simple == check is enough. There is a very narrowed
// spectrum of cases (mostly in tests) where a more sophisticated check is
// required.
func isNilErr(err error) bool {
	if err == nil {
		return true
	}
	if reflect.ValueOf(err).Kind() == reflect.Struct {
		return false
	}
	return reflect.ValueOf(err).IsNil()
}
