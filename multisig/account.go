package multisig

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iov-one/dualsign/client"
	"github.com/iov-one/dualsign/errors"
	"github.com/iov-one/dualsign/rpcerror"
	"github.com/iov-one/dualsign/store"
	"github.com/tendermint/tendermint/libs/log"
)

// Ledger sends transactions and calls view methods on behalf of the owner
// account. *client.Account implements it.
type Ledger interface {
	SignAndSendTransaction(ctx context.Context, receiverID string, actions []client.Action) (*client.FinalExecutionOutcome, error)
	ViewFunction(ctx context.Context, contractID, methodName string, args interface{}, dest interface{}) error
}

var _ Ledger = (*client.Account)(nil)

// SubmitResult is the outcome of a successful submission.
type SubmitResult struct {
	RequestID uint64
	Outcome   *client.FinalExecutionOutcome
}

// Account submits transactions as multisig requests.
type Account struct {
	ledger    Ledger
	accountID string
	requests  *RequestStore
	logger    log.Logger
	metrics   *Metrics

	maxResubmits   int
	cleanupTimeout time.Duration
	onAddRequest   func(*client.FinalExecutionOutcome)
	onCleanupError func(error)

	cleanups sync.WaitGroup
}

// Option configures an Account.
type Option func(*Account)

// WithStorage sets the storage of the pending request. By default a process
// wide in-memory storage is used.
func WithStorage(db store.Storage) Option {
	return func(a *Account) {
		a.requests = NewRequestStore(db)
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(a *Account) {
		a.logger = logger
	}
}

// WithMetrics sets the metrics to count lifecycle events with.
func WithMetrics(m *Metrics) Option {
	return func(a *Account) {
		a.metrics = m
	}
}

// WithMaxResubmits limits how many times stale requests are deleted and a
// submission repeated because the contract has too many active requests.
func WithMaxResubmits(n int) Option {
	return func(a *Account) {
		a.maxResubmits = n
	}
}

// WithCleanupTimeout limits the duration of the cleanup run in the
// background after each successful submission.
func WithCleanupTimeout(d time.Duration) Option {
	return func(a *Account) {
		a.cleanupTimeout = d
	}
}

// WithOnAddRequestResult sets a function called with the outcome of every
// successful submission.
func WithOnAddRequestResult(fn func(*client.FinalExecutionOutcome)) Option {
	return func(a *Account) {
		a.onAddRequest = fn
	}
}

// WithOnCleanupError sets a function called with the error of a failed
// background cleanup.
func WithOnCleanupError(fn func(error)) Option {
	return func(a *Account) {
		a.onCleanupError = fn
	}
}

// NewAccount returns a multisig account of given owner.
func NewAccount(ledger Ledger, accountID string, opts ...Option) *Account {
	a := &Account{
		ledger:         ledger,
		accountID:      accountID,
		logger:         log.NewNopLogger(),
		maxResubmits:   1,
		cleanupTimeout: time.Minute,
	}
	for _, fn := range opts {
		fn(a)
	}
	if a.requests == nil {
		a.requests = NewRequestStore(nil)
	}
	a.logger = a.logger.With("account", accountID)
	return a
}

// AccountID returns the owner account.
func (a *Account) AccountID() string {
	return a.accountID
}

// Ledger returns the ledger used by this account.
func (a *Account) Ledger() Ledger {
	return a.ledger
}

// Request returns the most recent request submitted by this owner, or nil.
func (a *Account) Request() (*PendingRequest, error) {
	r, err := a.requests.Get()
	if err != nil {
		return nil, err
	}
	if r == nil || r.OwnerAccount != a.accountID {
		return nil, nil
	}
	return r, nil
}

// Submit adds the actions as a new request of the contract and remembers it
// as the pending request. Stale requests are deleted in the background
// afterwards.
//
// When the contract has too many active requests, stale requests are deleted
// and the submission is repeated, at most as many times as configured.
func (a *Account) Submit(ctx context.Context, receiverID string, actions []client.Action) (*SubmitResult, error) {
	contractActions, err := ContractActions(actions, a.accountID, receiverID)
	if err != nil {
		a.metrics.inc(failedSubmissions)
		return nil, errors.WithRoot(errors.ErrRequestSubmission, err, "invalid actions")
	}
	args, err := json.Marshal(map[string]interface{}{
		"request": map[string]interface{}{
			"receiver_id": receiverID,
			"actions":     contractActions,
		},
	})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "cannot encode request: %s", err)
	}
	call := []client.Action{
		client.NewFunctionCall("add_request_and_confirm", args, MultisigGas, MultisigDeposit),
	}

	for resubmits := 0; ; resubmits++ {
		out, err := a.ledger.SignAndSendTransaction(ctx, a.accountID, call)
		if err == nil {
			return a.record(receiverID, actions, out)
		}
		if !isTooManyRequests(err) {
			a.metrics.inc(failedSubmissions)
			return nil, errors.WithRoot(errors.ErrRequestSubmission, err, "add request")
		}
		if resubmits >= a.maxResubmits {
			a.metrics.inc(failedSubmissions)
			return nil, errors.WithRoot(errors.ErrRequestSubmission, err,
				fmt.Sprintf("still too many active requests after %d cleanups", resubmits))
		}

		a.logger.Info("too many active requests, deleting stale requests", "attempt", resubmits+1)
		if err := a.DeleteUnconfirmedRequests(ctx); err != nil {
			// Some requests may be too young to delete. Submitting
			// again tells whether enough of them are gone.
			a.logger.Error("cannot delete all stale requests", "err", err)
		}
		a.metrics.inc(resubmissions)
	}
}

func (a *Account) record(receiverID string, actions []client.Action, out *client.FinalExecutionOutcome) (*SubmitResult, error) {
	if out == nil {
		a.metrics.inc(failedSubmissions)
		return nil, errors.Wrap(errors.ErrRequestSubmission, "no execution outcome")
	}
	raw, err := out.SuccessValue()
	if err != nil {
		a.metrics.inc(failedSubmissions)
		return nil, errors.WithRoot(errors.ErrRequestSubmission, err, "request id")
	}
	id, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		a.metrics.inc(failedSubmissions)
		return nil, errors.Wrapf(errors.ErrRequestSubmission, "request id %q is not a number", raw)
	}

	err = a.requests.Set(PendingRequest{
		OwnerAccount: a.accountID,
		Actions:      actions,
		RequestID:    id,
	})
	if err != nil {
		return nil, err
	}
	a.metrics.inc(submissions)
	a.logger.Info("request added", "request", id, "receiver", receiverID)

	if a.onAddRequest != nil {
		a.onAddRequest(out)
	}
	a.spawnCleanup()
	return &SubmitResult{RequestID: id, Outcome: out}, nil
}

// isTooManyRequests returns true if the contract rejected a request because
// the number of active requests reached the limit.
func isTooManyRequests(err error) bool {
	if typed, ok := rpcerror.As(err); ok {
		for _, v := range typed.Fields() {
			if s, ok := v.(string); ok && strings.Contains(s, TooManyRequestsMessage) {
				return true
			}
		}
	}
	return strings.Contains(err.Error(), TooManyRequestsMessage)
}

// GetRequestIDs returns identifiers of all active requests of the owner.
func (a *Account) GetRequestIDs(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	if err := a.ledger.ViewFunction(ctx, a.accountID, "list_request_ids", nil, &ids); err != nil {
		return nil, errors.Wrap(err, "list request ids")
	}
	return ids, nil
}

// DeleteUnconfirmedRequests deletes every active request except the pending
// one. A failure to delete one request does not stop deleting the others. All
// failures are returned together.
func (a *Account) DeleteUnconfirmedRequests(ctx context.Context) error {
	ids, err := a.GetRequestIDs(ctx)
	if err != nil {
		return err
	}
	var keep *uint64
	if r, err := a.Request(); err != nil {
		return err
	} else if r != nil {
		keep = &r.RequestID
	}

	var errs error
	for _, id := range ids {
		if keep != nil && id == *keep {
			continue
		}
		if err := a.deleteRequest(ctx, id); err != nil {
			a.metrics.inc(failedDeletions)
			a.logger.Error("cannot delete request", "request", id, "err", err)
			errs = errors.Append(errs, errors.Wrapf(err, "delete request %d", id))
			continue
		}
		a.metrics.inc(deletedRequests)
		a.logger.Debug("request deleted", "request", id)
	}
	return errs
}

func (a *Account) deleteRequest(ctx context.Context, id uint64) error {
	args, err := json.Marshal(map[string]uint64{"request_id": id})
	if err != nil {
		return errors.Wrapf(errors.ErrInput, "cannot encode args: %s", err)
	}
	_, err = a.ledger.SignAndSendTransaction(ctx, a.accountID, []client.Action{
		client.NewFunctionCall("delete_request", args, MultisigGas, MultisigDeposit),
	})
	return err
}

// spawnCleanup deletes stale requests in the background. Failures are only
// logged and reported to the cleanup error callback.
func (a *Account) spawnCleanup() {
	a.cleanups.Add(1)
	go func() {
		defer a.cleanups.Done()

		ctx, cancel := context.WithTimeout(context.Background(), a.cleanupTimeout)
		defer cancel()

		if err := a.cleanup(ctx); err != nil {
			a.logger.Error("background cleanup failed", "err", err)
			if a.onCleanupError != nil {
				a.onCleanupError(err)
			}
		}
	}()
}

func (a *Account) cleanup(ctx context.Context) (err error) {
	defer errors.Recover(&err)
	return a.DeleteUnconfirmedRequests(ctx)
}

// Wait blocks until all background cleanups are done.
func (a *Account) Wait() {
	a.cleanups.Wait()
}
