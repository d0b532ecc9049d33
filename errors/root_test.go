package errors

import (
	stdlib "errors"
	"testing"
)

func TestWithRoot(t *testing.T) {
	cause := Wrap(ErrNetwork, "node down")
	err := WithRoot(ErrRequestSubmission, cause, "add request")

	if !ErrRequestSubmission.Is(err) {
		t.Fatal("want root kind match")
	}
	if !ErrNetwork.Is(err) {
		t.Fatal("want cause kind match")
	}
	if ErrVerification.Is(err) {
		t.Fatal("unexpected kind match")
	}
	if got, want := err.Error(), "request submission failed: add request: node down: network"; got != want {
		t.Fatalf("want %q, got %q", want, got)
	}

	std := stdlib.New("boom")
	err = WithRoot(ErrVerification, std, "")
	if got, want := err.Error(), "verification failed: boom"; got != want {
		t.Fatalf("want %q, got %q", want, got)
	}

	if WithRoot(ErrVerification, nil, "nothing") != nil {
		t.Fatal("nil error must not be wrapped")
	}
}
