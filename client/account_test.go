package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/iov-one/dualsign/crypto"
	"github.com/iov-one/dualsign/dualsigntest/assert"
	"github.com/iov-one/dualsign/errors"
	"github.com/iov-one/dualsign/rpcerror"
)

func newTestAccount(t *testing.T, url string) (*Account, *crypto.KeyPair) {
	t.Helper()
	key := crypto.KeyPairFromSeed(bytes.Repeat([]byte{4}, 32))
	signer, err := crypto.NewInMemorySigner("testnet", "alice.testnet", key)
	assert.Nil(t, err)
	acc := NewAccount(NewClient(url), signer, "testnet", "alice.testnet")
	acc.backoff = time.Millisecond
	return acc, key
}

func serveChain(node *fakeNode, nonce uint64) {
	node.handle("block", func(json.RawMessage) (interface{}, *jsonResponseError) {
		return map[string]interface{}{
			"header": map[string]interface{}{"height": 99, "hash": "11111111111111111111111111111111"},
		}, nil
	})
	node.handle("query", func(params json.RawMessage) (interface{}, *jsonResponseError) {
		return map[string]interface{}{"nonce": nonce, "permission": "FullAccess"}, nil
	})
}

func TestAccountSignAndSendTransaction(t *testing.T) {
	node, srv := newFakeNode(t)
	defer srv.Close()
	acc, key := newTestAccount(t, srv.URL)
	serveChain(node, 41)

	node.handle("broadcast_tx_commit", func(params json.RawMessage) (interface{}, *jsonResponseError) {
		var p []string
		if err := json.Unmarshal(params, &p); err != nil || len(p) != 1 {
			t.Errorf("unexpected params %s", params)
			return nil, &jsonResponseError{Code: -1, Message: "bad params"}
		}
		raw, _ := base64.StdEncoding.DecodeString(p[0])
		txRaw, sig := raw[:len(raw)-65], raw[len(raw)-64:]
		hash := sha256.Sum256(txRaw)
		if !key.PublicKey().Verify(hash[:], sig) {
			t.Error("invalid transaction signature")
		}

		want := Transaction{
			SignerID:   "alice.testnet",
			PublicKey:  key.PublicKey(),
			Nonce:      42,
			ReceiverID: "bob.testnet",
			Actions:    []Action{NewTransfer(NewBalance(10))},
		}
		wantRaw, _ := want.Serialize()
		if !bytes.Equal(wantRaw, txRaw) {
			t.Errorf("unexpected transaction\nwant %x\n got %x", wantRaw, txRaw)
		}
		return map[string]interface{}{"status": map[string]interface{}{"SuccessValue": ""}}, nil
	})

	out, err := acc.SignAndSendTransaction(context.Background(), "bob.testnet", []Action{NewTransfer(NewBalance(10))})
	assert.Nil(t, err)
	v, err := out.SuccessValue()
	assert.Nil(t, err)
	assert.Equal(t, 0, len(v))
}

func TestAccountRetriesInvalidNonce(t *testing.T) {
	node, srv := newFakeNode(t)
	defer srv.Close()
	acc, _ := newTestAccount(t, srv.URL)
	serveChain(node, 1)

	node.handle("broadcast_tx_commit", func(json.RawMessage) (interface{}, *jsonResponseError) {
		if node.callCount("broadcast_tx_commit") < 3 {
			return nil, &jsonResponseError{
				Code:    -32000,
				Message: "Server error",
				Data:    json.RawMessage(`{"TxExecutionError":{"InvalidTxError":{"InvalidNonce":{"tx_nonce":2,"ak_nonce":2}}}}`),
			}
		}
		return map[string]interface{}{"status": map[string]interface{}{"SuccessValue": "MQ=="}}, nil
	})

	out, err := acc.SignAndSendTransaction(context.Background(), "alice.testnet", []Action{NewCreateAccount()})
	assert.Nil(t, err)
	v, err := out.SuccessValue()
	assert.Nil(t, err)
	assert.Equal(t, "1", string(v))
	assert.Equal(t, 3, node.callCount("broadcast_tx_commit"))
}

func TestAccountGivesUpOnInvalidNonce(t *testing.T) {
	node, srv := newFakeNode(t)
	defer srv.Close()
	acc, _ := newTestAccount(t, srv.URL)
	serveChain(node, 1)

	node.handle("broadcast_tx_commit", func(json.RawMessage) (interface{}, *jsonResponseError) {
		return nil, &jsonResponseError{
			Code:    -32000,
			Message: "Server error",
			Data:    json.RawMessage(`"Transaction nonce 2 must be larger than nonce of the used access key 2"`),
		}
	})

	_, err := acc.SignAndSendTransaction(context.Background(), "alice.testnet", []Action{NewCreateAccount()})
	typed, ok := rpcerror.As(err)
	if !ok {
		t.Fatalf("want a typed error, got %+v", err)
	}
	assert.Equal(t, "InvalidNonce", typed.Kind())
	assert.Equal(t, TxNonceRetries, node.callCount("broadcast_tx_commit"))
}

func TestAccountTransactionFailure(t *testing.T) {
	node, srv := newFakeNode(t)
	defer srv.Close()
	acc, _ := newTestAccount(t, srv.URL)
	serveChain(node, 1)

	node.handle("broadcast_tx_commit", func(json.RawMessage) (interface{}, *jsonResponseError) {
		return json.RawMessage(`{"status":{"Failure":{"ActionError":{"index":0,"kind":{"FunctionCallError":{"ExecutionError":"Smart contract panicked: Account has too many active requests. Confirm or delete some"}}}}}}`), nil
	})

	out, err := acc.SignAndSendTransaction(context.Background(), "alice.testnet", []Action{NewFunctionCall("add_request_and_confirm", []byte("{}"), 1, nil)})
	if out == nil {
		t.Fatal("failed outcome must be returned")
	}
	assert.IsErr(t, errors.ErrLedger, err)
	typed, _ := rpcerror.As(err)
	assert.Equal(t, "ExecutionError", typed.Kind())
}

func TestAccountViewFunction(t *testing.T) {
	node, srv := newFakeNode(t)
	defer srv.Close()
	acc, _ := newTestAccount(t, srv.URL)

	node.handle("query", func(params json.RawMessage) (interface{}, *jsonResponseError) {
		p := queryType(t, params)
		args, _ := base64.StdEncoding.DecodeString(p["args_base64"].(string))
		if string(args) != `{"request_id":3}` {
			t.Errorf("unexpected args %s", args)
		}
		return map[string]interface{}{"result": ByteArray(`{"receiver_id":"bob"}`)}, nil
	})

	var dest struct {
		ReceiverID string `json:"receiver_id"`
	}
	err := acc.ViewFunction(context.Background(), "alice.testnet", "get_request", map[string]int{"request_id": 3}, &dest)
	assert.Nil(t, err)
	assert.Equal(t, "bob", dest.ReceiverID)
}
