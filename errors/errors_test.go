package errors

import (
	stdlib "errors"
	"fmt"
	"testing"

	"github.com/pkg/errors"
)

func TestCause(t *testing.T) {
	std := stdlib.New("this is a stdlib error")

	cases := map[string]struct {
		err  error
		root error
	}{
		"Errors are self-causing": {
			err:  ErrNotFound,
			root: ErrNotFound,
		},
		"Wrap reveals root cause": {
			err:  Wrap(ErrNotFound, "foo"),
			root: ErrNotFound,
		},
		"Cause works for stderr as root": {
			err:  Wrap(std, "Some helpful text"),
			root: std,
		},
		"New reveals root cause": {
			err:  ErrRequestSubmission.New("no request id"),
			root: ErrRequestSubmission,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if got := errors.Cause(tc.err); got != tc.root {
				t.Fatal("unexpected result")
			}
		})
	}
}

func TestErrorIs(t *testing.T) {
	cases := map[string]struct {
		a      *Error
		b      error
		wantIs bool
	}{
		"instance of the same error": {
			a:      ErrNotFound,
			b:      ErrNotFound,
			wantIs: true,
		},
		"two different coded errors": {
			a:      ErrNotFound,
			b:      ErrInput,
			wantIs: false,
		},
		"successful comparison to a wrapped error": {
			a:      ErrCodeDelivery,
			b:      errors.Wrap(ErrCodeDelivery, "gone"),
			wantIs: true,
		},
		"successful comparison to a doubly wrapped error": {
			a:      ErrVerification,
			b:      Wrap(Wrapf(ErrVerification, "attempt %d", 3), "confirm"),
			wantIs: true,
		},
		"unsuccessful comparison to a wrapped error": {
			a:      ErrNotFound,
			b:      errors.Wrap(ErrMalformed, "too big"),
			wantIs: false,
		},
		"not equal to stdlib error": {
			a:      ErrNotFound,
			b:      fmt.Errorf("stdlib error"),
			wantIs: false,
		},
		"not equal to a wrapped stdlib error": {
			a:      ErrNotFound,
			b:      errors.Wrap(fmt.Errorf("stdlib error"), "wrapped"),
			wantIs: false,
		},
		"nil is nil": {
			a:      nil,
			b:      nil,
			wantIs: true,
		},
		"nil is any error nil": {
			a:      nil,
			b:      (*customError)(nil),
			wantIs: true,
		},
		"nil is not not-nil": {
			a:      nil,
			b:      ErrNotFound,
			wantIs: false,
		},
		"not-nil is not nil": {
			a:      ErrNotFound,
			b:      nil,
			wantIs: false,
		},
		"multi error with the same error": {
			a:      ErrNotFound,
			b:      Append(ErrNotFound, ErrInvalidState),
			wantIs: true,
		},
		"multi error with random order": {
			a:      ErrNotFound,
			b:      Append(ErrInvalidState, ErrNotFound),
			wantIs: true,
		},
		"multi error with wrapped err": {
			a:      ErrNotFound,
			b:      Append(Wrap(ErrNotFound, "test")),
			wantIs: true,
		},
		"wrapped multi error": {
			a:      ErrNetwork,
			b:      Wrap(Append(ErrInput, Wrap(ErrNetwork, "delete request 4")), "cleanup"),
			wantIs: true,
		},
		"multi error with different error": {
			a:      ErrNotFound,
			b:      Append(ErrInvalidState),
			wantIs: false,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if got := tc.a.Is(tc.b); got != tc.wantIs {
				t.Fatalf("unexpected result - got:%v want: %v", got, tc.wantIs)
			}
		})
	}
}

type customError struct {
}

func (customError) Error() string {
	return "custom error"
}

func TestWrapEmpty(t *testing.T) {
	if err := Wrap(nil, "wrapping <nil>"); err != nil {
		t.Fatal(err)
	}
}

func TestRegisterDuplicatedCode(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("registering a used code must panic")
		}
	}()
	Register(ErrNotFound.Code(), "another not found")
}

func TestRecover(t *testing.T) {
	fn := func() (err error) {
		defer Recover(&err)
		panic("boom")
	}
	err := fn()
	if !ErrPanic.Is(err) {
		t.Fatalf("want panic error, got %+v", err)
	}
	if want, got := "boom: panic", err.Error(); want != got {
		t.Fatalf("want %q message, got %q", want, got)
	}
}
