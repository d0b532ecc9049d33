package rpcerror

import (
	"testing"

	"github.com/iov-one/dualsign/dualsigntest/assert"
	"github.com/iov-one/dualsign/errors"
)

func TestAs(t *testing.T) {
	typed, err := Classify([]byte(`{"InvalidTxError":{"InvalidNonce":{"tx_nonce":1,"ak_nonce":2}}}`))
	assert.Nil(t, err)

	cases := map[string]struct {
		Err    error
		WantOK bool
	}{
		"typed error":   {Err: typed, WantOK: true},
		"wrapped once":  {Err: errors.Wrap(typed, "send"), WantOK: true},
		"wrapped twice": {Err: errors.Wrap(errors.Wrap(typed, "send"), "submit"), WantOK: true},
		"field error":   {Err: errors.Field("Actions", typed, "rejected"), WantOK: true},
		"multi error":   {Err: errors.Append(errors.ErrNetwork.New("gone"), errors.Wrap(typed, "delete")), WantOK: true},
		"rooted":        {Err: errors.WithRoot(errors.ErrRequestSubmission, typed, "add"), WantOK: true},
		"plain error":   {Err: errors.ErrNetwork, WantOK: false},
		"nil":           {Err: nil, WantOK: false},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			got, ok := As(tc.Err)
			assert.Equal(t, tc.WantOK, ok)
			if tc.WantOK && got != typed {
				t.Fatalf("unexpected typed error: %v", got)
			}
		})
	}
}

func TestTypedErrorCause(t *testing.T) {
	typed, err := Classify([]byte(`{"InvalidTxError":"Expired"}`))
	assert.Nil(t, err)

	wrapped := errors.Wrap(typed, "broadcast")
	if !errors.ErrLedger.Is(wrapped) {
		t.Fatalf("want ledger error, got %+v", wrapped)
	}
	if errors.ErrUntyped.Is(wrapped) {
		t.Fatal("classified error must not be untyped")
	}
	assert.Equal(t, "broadcast: Transaction has expired", wrapped.Error())
}
