package twofa

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/iov-one/dualsign/client"
	"github.com/iov-one/dualsign/crypto"
	"github.com/iov-one/dualsign/errors"
	"github.com/iov-one/dualsign/multisig"
	"github.com/tendermint/tendermint/libs/log"
)

// Service provides account information held by the helper service.
// *Helper implements it.
type Service interface {
	RecoveryMethods(ctx context.Context, accountID string) ([]RecoveryMethod, error)
	AccessKey(ctx context.Context, accountID string) (crypto.PublicKey, error)
}

// AccountViewer reads the state of the owner account. *client.Account
// implements it.
type AccountViewer interface {
	State(ctx context.Context) (*client.AccountView, error)
	AccessKeys(ctx context.Context) ([]client.AccessKeyInfo, error)
}

var _ AccountViewer = (*client.Account)(nil)

// Result is the outcome of a confirmed request.
type Result struct {
	RequestID uint64
	SessionID string
	// Attempts is the number of codes entered until one was accepted.
	Attempts int
	// Payload is the confirmation returned by the verifier.
	Payload json.RawMessage
}

// Account sends transactions that must be confirmed with a code delivered
// to the owner.
type Account struct {
	ms      *multisig.Account
	service Service
	viewer  AccountViewer
	logger  log.Logger
	metrics *Metrics

	sender   CodeSender
	getter   CodeGetter
	verifier CodeVerifier

	maxCodeAttempts int
	onConfirm       func(*Result)
	onStateChange   StateChangeFunc
}

// Option configures an Account.
type Option func(*Account)

// WithHelper uses the helper service to deliver and verify codes and to
// read recovery methods. Explicitly configured sender and verifier take
// precedence.
func WithHelper(h *Helper) Option {
	return func(a *Account) {
		a.service = h
		if a.sender == nil {
			a.sender = h
		}
		if a.verifier == nil {
			a.verifier = h
		}
	}
}

// WithService sets the source of recovery methods and the confirm only key.
func WithService(s Service) Option {
	return func(a *Account) {
		a.service = s
	}
}

// WithAccountViewer sets the source of the owner account state. By default
// the multisig account ledger is used if it can read the state.
func WithAccountViewer(v AccountViewer) Option {
	return func(a *Account) {
		a.viewer = v
	}
}

// WithCodeSender sets the way codes are delivered.
func WithCodeSender(s CodeSender) Option {
	return func(a *Account) {
		a.sender = s
	}
}

// WithCodeGetter sets the way codes are read from the owner.
func WithCodeGetter(g CodeGetter) Option {
	return func(a *Account) {
		a.getter = g
	}
}

// WithCodeVerifier sets the way codes are verified.
func WithCodeVerifier(v CodeVerifier) Option {
	return func(a *Account) {
		a.verifier = v
	}
}

// WithMaxCodeAttempts limits how many codes can be entered for a single
// request.
func WithMaxCodeAttempts(n int) Option {
	return func(a *Account) {
		a.maxCodeAttempts = n
	}
}

// WithOnConfirmResult sets a function called with every confirmed result.
func WithOnConfirmResult(fn func(*Result)) Option {
	return func(a *Account) {
		a.onConfirm = fn
	}
}

// WithOnStateChange sets a function called on every session state change.
func WithOnStateChange(fn StateChangeFunc) Option {
	return func(a *Account) {
		a.onStateChange = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(a *Account) {
		a.logger = logger
	}
}

// WithMetrics sets the metrics to count sessions with.
func WithMetrics(m *Metrics) Option {
	return func(a *Account) {
		a.metrics = m
	}
}

// NewAccount returns an account confirming requests of the multisig account.
func NewAccount(ms *multisig.Account, opts ...Option) *Account {
	a := &Account{
		ms:              ms,
		logger:          log.NewNopLogger(),
		getter:          noCodeGetter{},
		maxCodeAttempts: 5,
	}
	for _, fn := range opts {
		fn(a)
	}
	if a.viewer == nil {
		if v, ok := ms.Ledger().(AccountViewer); ok {
			a.viewer = v
		}
	}
	a.logger = a.logger.With("account", ms.AccountID())
	return a
}

// AccountID returns the owner account.
func (a *Account) AccountID() string {
	return a.ms.AccountID()
}

// SignAndSendTransaction submits the actions as a multisig request and
// confirms it with a code delivered to the owner.
//
// An invalid code can be entered again, up to the configured number of
// attempts. Any other failure ends the confirmation.
func (a *Account) SignAndSendTransaction(ctx context.Context, receiverID string, actions []client.Action) (*Result, error) {
	start := time.Now()
	defer a.metrics.observe(start)

	res, err := a.ms.Submit(ctx, receiverID, actions)
	if err != nil {
		return nil, err
	}
	return a.Confirm(ctx, res.RequestID)
}

// Confirm runs the confirmation of an already submitted request.
func (a *Account) Confirm(ctx context.Context, requestID uint64) (*Result, error) {
	s := newSession(a.AccountID(), requestID, a.onStateChange)
	logger := a.logger.With("session", s.ID, "request", requestID)

	if err := s.fire(ctx, EventRequestCode); err != nil {
		return nil, err
	}
	method, err := a.Method(ctx)
	if err != nil {
		s.fail(ctx)
		a.metrics.inc(deliveryFailures)
		return nil, errors.WithRoot(errors.ErrCodeDelivery, err, "second factor")
	}
	if a.sender == nil {
		s.fail(ctx)
		return nil, errors.Wrap(errors.ErrCodeDelivery, "no code sender configured")
	}
	err = a.sender.SendCode(ctx, SendCodeRequest{
		AccountID: a.AccountID(),
		RequestID: requestID,
		Method:    method,
	})
	if err != nil {
		s.fail(ctx)
		a.metrics.inc(deliveryFailures)
		logger.Error("cannot deliver code", "err", err)
		return nil, errors.WithRoot(errors.ErrCodeDelivery, err, "send code")
	}
	a.metrics.inc(codesSent)
	if err := s.fire(ctx, EventCodeSent); err != nil {
		return nil, err
	}
	logger.Info("code sent")

	if a.verifier == nil {
		s.fail(ctx)
		return nil, errors.Wrap(errors.ErrVerification, "no code verifier configured")
	}
	for {
		code, err := a.getter.GetCode(ctx, method)
		if err != nil {
			s.fail(ctx)
			a.metrics.inc(verificationErrors)
			return nil, errors.WithRoot(errors.ErrVerification, err, "get code")
		}
		if err := s.fire(ctx, EventCodeEntered); err != nil {
			return nil, err
		}
		s.Attempts++

		payload, err := a.verifier.VerifyCode(ctx, VerifyRequest{
			AccountID: a.AccountID(),
			RequestID: requestID,
			Code:      strings.TrimSpace(code),
		})
		if err == nil {
			if err := s.fire(ctx, EventCodeValid); err != nil {
				return nil, err
			}
			a.metrics.inc(confirmations)
			logger.Info("request confirmed", "attempts", s.Attempts)
			result := &Result{
				RequestID: requestID,
				SessionID: s.ID,
				Attempts:  s.Attempts,
				Payload:   payload,
			}
			if a.onConfirm != nil {
				a.onConfirm(result)
			}
			return result, nil
		}

		if !isInvalidCode(err) {
			s.fail(ctx)
			a.metrics.inc(verificationErrors)
			logger.Error("verification failed", "err", err)
			return nil, errors.WithRoot(errors.ErrVerification, err, "verify code")
		}
		a.metrics.inc(invalidCodes)
		if s.Attempts >= a.maxCodeAttempts {
			s.fail(ctx)
			a.metrics.inc(verificationErrors)
			logger.Error("too many invalid codes", "attempts", s.Attempts)
			return nil, errors.WithRoot(errors.ErrVerification, err, "too many invalid codes")
		}
		logger.Debug("invalid code", "attempt", s.Attempts)
		if err := s.fire(ctx, EventCodeInvalid); err != nil {
			return nil, err
		}
	}
}

// Method returns the second factor of the account, or nil if none is
// registered or no service is configured.
func (a *Account) Method(ctx context.Context) (*Method, error) {
	if a.service == nil {
		return nil, nil
	}
	methods, err := a.service.RecoveryMethods(ctx, a.AccountID())
	if err != nil {
		return nil, errors.Wrap(err, "recovery methods")
	}
	for _, m := range methods {
		if strings.HasPrefix(m.Kind, "2fa-") {
			return &Method{Kind: m.Kind, Detail: m.Detail}, nil
		}
	}
	return nil, nil
}
