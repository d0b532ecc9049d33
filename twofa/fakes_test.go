package twofa

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/iov-one/dualsign/crypto"
	"github.com/iov-one/dualsign/dualsigntest"
	"github.com/iov-one/dualsign/errors"
)

// fakeService plays the helper service. It delivers a code per request,
// reads entered codes from a queue and confirms the request on the contract
// once the right code is verified.
type fakeService struct {
	contract *dualsigntest.Contract
	methods  []RecoveryMethod
	key      crypto.PublicKey

	mu       sync.Mutex
	sent     []SendCodeRequest
	codes    map[uint64]string
	entered  []string
	verified []VerifyRequest

	sendErr   error
	verifyErr error
}

var (
	_ Service      = (*fakeService)(nil)
	_ CodeSender   = (*fakeService)(nil)
	_ CodeGetter   = (*fakeService)(nil)
	_ CodeVerifier = (*fakeService)(nil)
)

func newFakeService(contract *dualsigntest.Contract) *fakeService {
	return &fakeService{
		contract: contract,
		methods: []RecoveryMethod{
			{Kind: "phrase", PublicKey: "ed25519:recovery"},
			{Kind: "2fa-email", Detail: "alice@example.com"},
		},
		codes: make(map[uint64]string),
	}
}

func (f *fakeService) RecoveryMethods(ctx context.Context, accountID string) ([]RecoveryMethod, error) {
	return f.methods, nil
}

func (f *fakeService) AccessKey(ctx context.Context, accountID string) (crypto.PublicKey, error) {
	return f.key, nil
}

func (f *fakeService) SendCode(ctx context.Context, req SendCodeRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	if f.sendErr != nil {
		return f.sendErr
	}
	f.codes[req.RequestID] = "10" + strconv.FormatUint(req.RequestID, 10)
	return nil
}

// enter queues codes typed by the owner. The right code is entered once the
// queue is empty.
func (f *fakeService) enter(codes ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entered = append(f.entered, codes...)
}

func (f *fakeService) GetCode(ctx context.Context, method *Method) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entered) > 0 {
		code := f.entered[0]
		f.entered = f.entered[1:]
		return code, nil
	}
	for _, code := range f.codes {
		return code, nil
	}
	return "", errors.Wrap(errors.ErrNotFound, "no code delivered")
}

func (f *fakeService) VerifyCode(ctx context.Context, req VerifyRequest) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified = append(f.verified, req)
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	if f.codes[req.RequestID] != req.Code {
		return nil, errors.ErrNetwork.New("/2fa/verify: 401 invalid 2fa code provided")
	}
	if err := f.contract.Confirm(req.RequestID); err != nil {
		return nil, err
	}
	delete(f.codes, req.RequestID)
	return json.RawMessage(`{"confirmed":true}`), nil
}
