package twofa

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/iov-one/dualsign/client"
	"github.com/iov-one/dualsign/crypto"
	"github.com/iov-one/dualsign/dualsigntest"
	"github.com/iov-one/dualsign/dualsigntest/assert"
	"github.com/iov-one/dualsign/errors"
	"github.com/iov-one/dualsign/multisig"
	"github.com/iov-one/dualsign/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBlocks struct {
	mock.Mock
}

func (m *mockBlocks) Block(ctx context.Context, finality string) (*client.Block, error) {
	args := m.Called(finality)
	b, _ := args.Get(0).(*client.Block)
	return b, args.Error(1)
}

func blockAt(height uint64) *client.Block {
	return &client.Block{Header: client.BlockHeader{Height: height}}
}

// helperServer records requests sent to the helper service and responds
// with the configured responses.
type helperServer struct {
	t         *testing.T
	mu        sync.Mutex
	requests  map[string][]map[string]interface{}
	responses map[string]func(body map[string]interface{}) (int, string)
}

func newHelperServer(t *testing.T) (*helperServer, *httptest.Server) {
	hs := &helperServer{
		t:         t,
		requests:  make(map[string][]map[string]interface{}),
		responses: make(map[string]func(map[string]interface{}) (int, string)),
	}
	return hs, httptest.NewServer(hs)
}

func (hs *helperServer) respond(path string, fn func(body map[string]interface{}) (int, string)) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.responses[path] = fn
}

func (hs *helperServer) received(path string) []map[string]interface{} {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return hs.requests[path]
}

func (hs *helperServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		hs.t.Errorf("unexpected method %s", r.Method)
	}
	raw, _ := ioutil.ReadAll(r.Body)
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		hs.t.Errorf("invalid body %q: %s", raw, err)
	}

	hs.mu.Lock()
	hs.requests[r.URL.Path] = append(hs.requests[r.URL.Path], body)
	fn, ok := hs.responses[r.URL.Path]
	hs.mu.Unlock()

	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	code, resp := fn(body)
	w.WriteHeader(code)
	_, _ = w.Write([]byte(resp))
}

func newTestHelper(t *testing.T, url string) (*Helper, *crypto.KeyPair, *mockBlocks) {
	t.Helper()
	key := crypto.KeyPairFromSeed(bytes.Repeat([]byte{7}, 32))
	signer, err := crypto.NewInMemorySigner("testnet", owner, key)
	require.NoError(t, err)
	blocks := &mockBlocks{}
	blocks.On("Block", client.FinalityFinal).Return(blockAt(77), nil)
	return NewHelper(url+"/", blocks, signer, "testnet", WithRateLimit(1000, 10)), key, blocks
}

func TestHelperSignsRequests(t *testing.T) {
	hs, srv := newHelperServer(t)
	defer srv.Close()
	h, key, blocks := newTestHelper(t, srv.URL)
	hs.respond("/2fa/send", func(map[string]interface{}) (int, string) { return 200, "" })

	err := h.SendCode(context.Background(), SendCodeRequest{
		AccountID: owner,
		RequestID: 3,
		Method:    &Method{Kind: "2fa-email", Detail: "alice@example.com"},
	})
	require.NoError(t, err)
	blocks.AssertExpectations(t)

	got := hs.received("/2fa/send")
	require.Len(t, got, 1)
	body := got[0]
	require.Equal(t, owner, body["accountId"])
	require.Equal(t, 3.0, body["requestId"])
	require.Equal(t, map[string]interface{}{"kind": "2fa-email", "detail": "alice@example.com"}, body["method"])
	require.Equal(t, "77", body["blockNumber"])

	sig, err := base64.StdEncoding.DecodeString(body["blockNumberSignature"].(string))
	require.NoError(t, err)
	hash := sha256.Sum256([]byte("77"))
	require.True(t, key.PublicKey().Verify(hash[:], sig))
}

func TestHelperEndpoints(t *testing.T) {
	hs, srv := newHelperServer(t)
	defer srv.Close()
	h, _, _ := newTestHelper(t, srv.URL)
	confirmOnly := crypto.KeyPairFromSeed(bytes.Repeat([]byte{8}, 32)).PublicKey()

	hs.respond("/2fa/verify", func(body map[string]interface{}) (int, string) {
		if body["securityCode"] != "123456" {
			return 401, "invalid 2fa code provided"
		}
		return 200, `{"success":true}`
	})
	hs.respond("/2fa/getAccessKey", func(map[string]interface{}) (int, string) {
		return 200, `{"publicKey":"` + confirmOnly.String() + `"}`
	})
	hs.respond("/account/recoveryMethods", func(map[string]interface{}) (int, string) {
		return 200, `[{"kind":"phrase","detail":"","publicKey":"ed25519:abc"},{"kind":"2fa-phone","detail":"+100","publicKey":null}]`
	})
	ctx := context.Background()

	payload, err := h.VerifyCode(ctx, VerifyRequest{AccountID: owner, RequestID: 1, Code: "123456"})
	require.NoError(t, err)
	require.JSONEq(t, `{"success":true}`, string(payload))

	_, err = h.VerifyCode(ctx, VerifyRequest{AccountID: owner, RequestID: 1, Code: "000000"})
	assert.IsErr(t, errors.ErrNetwork, err)
	require.True(t, isInvalidCode(err))
	require.Contains(t, err.Error(), "401")

	pk, err := h.AccessKey(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, confirmOnly, pk)

	methods, err := h.RecoveryMethods(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, []RecoveryMethod{
		{Kind: "phrase", PublicKey: "ed25519:abc"},
		{Kind: "2fa-phone", Detail: "+100"},
	}, methods)

	for _, path := range []string{"/2fa/verify", "/2fa/getAccessKey", "/account/recoveryMethods"} {
		for _, body := range hs.received(path) {
			require.Equal(t, owner, body["accountId"], path)
			require.Equal(t, "77", body["blockNumber"], path)
		}
	}
}

func TestHelperErrors(t *testing.T) {
	hs, srv := newHelperServer(t)
	h, _, _ := newTestHelper(t, srv.URL)
	hs.respond("/2fa/getAccessKey", func(map[string]interface{}) (int, string) {
		return 200, `{"publicKey":"ed25519:!!!"}`
	})
	hs.respond("/account/recoveryMethods", func(map[string]interface{}) (int, string) {
		return 200, `{"not":"a list"}`
	})
	ctx := context.Background()

	_, err := h.AccessKey(ctx, owner)
	assert.IsErr(t, errors.ErrInput, err)

	_, err = h.RecoveryMethods(ctx, owner)
	assert.IsErr(t, errors.ErrNetwork, err)

	err = h.SendCode(ctx, SendCodeRequest{AccountID: owner})
	assert.IsErr(t, errors.ErrNetwork, err)
	require.Contains(t, err.Error(), "404 not found")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err = h.SendCode(cancelled, SendCodeRequest{AccountID: owner})
	assert.IsErr(t, errors.ErrNetwork, err)

	srv.Close()
	_, err = h.RecoveryMethods(ctx, owner)
	assert.IsErr(t, errors.ErrNetwork, err)
}

func TestHelperBlockError(t *testing.T) {
	key := crypto.KeyPairFromSeed(bytes.Repeat([]byte{7}, 32))
	signer, err := crypto.NewInMemorySigner("testnet", owner, key)
	require.NoError(t, err)
	blocks := &mockBlocks{}
	blocks.On("Block", client.FinalityFinal).Return(nil, errors.ErrNetwork.New("node is down"))

	h := NewHelper("http://localhost:1", blocks, signer, "testnet")
	err = h.SendCode(context.Background(), SendCodeRequest{AccountID: owner})
	assert.IsErr(t, errors.ErrNetwork, err)
	blocks.AssertNumberOfCalls(t, "Block", 1)
}

func TestHelperConfirmsRequest(t *testing.T) {
	hs, srv := newHelperServer(t)
	defer srv.Close()
	h, _, _ := newTestHelper(t, srv.URL)

	contract := dualsigntest.NewContract(owner)
	hs.respond("/account/recoveryMethods", func(map[string]interface{}) (int, string) {
		return 200, `[{"kind":"2fa-email","detail":"alice@example.com"}]`
	})
	hs.respond("/2fa/send", func(map[string]interface{}) (int, string) { return 200, "" })
	hs.respond("/2fa/verify", func(body map[string]interface{}) (int, string) {
		if body["securityCode"] != "654321" {
			return 401, "2fa code not valid"
		}
		if err := contract.Confirm(uint64(body["requestId"].(float64))); err != nil {
			return 500, err.Error()
		}
		return 200, `{"status":{"SuccessValue":""}}`
	})

	codes := []string{"111111", "654321"}
	ms := multisig.NewAccount(contract, owner, multisig.WithStorage(store.NewMemStore()))
	acc := NewAccount(ms,
		WithHelper(h),
		WithCodeGetter(CodeGetterFunc(func(ctx context.Context, m *Method) (string, error) {
			require.Equal(t, "2fa-email", m.Kind)
			code := codes[0]
			codes = codes[1:]
			return code, nil
		})),
	)

	res, err := acc.SignAndSendTransaction(context.Background(), "bob.testnet", []client.Action{
		client.NewTransfer(client.NewBalance(1)),
	})
	ms.Wait()
	require.NoError(t, err)
	require.Equal(t, 2, res.Attempts)
	require.Empty(t, contract.RequestIDs())
	require.Len(t, hs.received("/2fa/send"), 1)
	require.Len(t, hs.received("/2fa/verify"), 2)
}
