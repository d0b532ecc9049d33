package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/iov-one/dualsign/errors"
)

func TestReportError(t *testing.T) {
	color.NoColor = true

	var out bytes.Buffer
	err := errors.Append(
		errors.Field("Actions.1", errors.ErrEmpty, "no method"),
		errors.Field("Actions.0", errors.ErrInput, "two ops"),
	)
	reportError(&out, err)
	want := err.Error() + "\ninvalid fields: Actions.0, Actions.1\n"
	if got := out.String(); got != want {
		t.Fatalf("want %q, got %q", want, got)
	}

	out.Reset()
	reportError(&out, errors.ErrNetwork)
	if got := out.String(); got != "network\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}
