package dualsigntest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/iov-one/dualsign/client"
	"github.com/iov-one/dualsign/errors"
)

// Contract is an in memory implementation of an account with the multisig
// contract deployed. It implements multisig.Ledger and can be used instead
// of a real ledger connection.
//
// Zero value is not usable, use NewContract.
type Contract struct {
	// MaxRequests is the number of active requests after which adding a
	// new one fails.
	MaxRequests int
	// MinDeleteAge is how old a request must be before it can be deleted.
	MinDeleteAge time.Duration
	// Now returns the current time. Override it to control request age.
	Now func() time.Time

	mu       sync.Mutex
	owner    string
	nextID   uint64
	requests map[uint64]*ContractRequest
	failures map[string][]error
	calls    []string
	keys     []client.AccessKeyInfo
	codeHash string
}

// ContractRequest is a request held by the Contract.
type ContractRequest struct {
	ID        uint64
	Request   json.RawMessage
	CreatedAt time.Time
}

// NewContract returns a contract deployed to the owner account. It accepts
// four active requests and allows deleting them immediately.
func NewContract(owner string) *Contract {
	return &Contract{
		MaxRequests: 4,
		Now:         time.Now,
		owner:       owner,
		requests:    make(map[uint64]*ContractRequest),
		failures:    make(map[string][]error),
		codeHash:    client.EmptyCodeHash,
	}
}

// FailNext makes the next call of the method fail with given error. Calls
// to FailNext queue up.
func (c *Contract) FailNext(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[method] = append(c.failures[method], err)
}

// AddRequest inserts an active request created at given time, as if it was
// submitted by another client.
func (c *Contract) AddRequest(createdAt time.Time) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.requests[id] = &ContractRequest{ID: id, CreatedAt: createdAt}
	return id
}

// Confirm executes and removes the request, as the second signer would.
func (c *Contract) Confirm(id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.requests[id]; !ok {
		return errors.Wrapf(errors.ErrNotFound, "request %d", id)
	}
	delete(c.requests, id)
	return nil
}

// Request returns the active request with given id.
func (c *Contract) Request(id uint64) (*ContractRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.requests[id]
	return r, ok
}

// RequestIDs returns ids of all active requests in ascending order.
func (c *Contract) RequestIDs() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ids()
}

func (c *Contract) ids() []uint64 {
	ids := make([]uint64, 0, len(c.requests))
	for id := range c.requests {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Calls returns names of all methods called so far, in call order. Actions
// other than function calls are recorded by their kind.
func (c *Contract) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// CallCount returns how many times the method was called.
func (c *Contract) CallCount(method string) int {
	var n int
	for _, m := range c.Calls() {
		if m == method {
			n++
		}
	}
	return n
}

// SetKeys replaces the access keys of the owner account.
func (c *Contract) SetKeys(keys []client.AccessKeyInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append([]client.AccessKeyInfo(nil), keys...)
}

// SetCodeHash sets the hash of the code deployed to the owner account.
func (c *Contract) SetCodeHash(hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codeHash = hash
}

// AccessKeys returns the access keys of the owner account.
func (c *Contract) AccessKeys(ctx context.Context) ([]client.AccessKeyInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]client.AccessKeyInfo(nil), c.keys...), nil
}

// State returns the owner account state.
func (c *Contract) State(ctx context.Context) (*client.AccountView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &client.AccountView{
		Amount:   client.NewBalance(0),
		Locked:   client.NewBalance(0),
		CodeHash: c.codeHash,
	}, nil
}

// SignAndSendTransaction executes the actions. Only the owner account can
// be called. The return value of the last function call is the success
// value of the outcome.
func (c *Contract) SignAndSendTransaction(ctx context.Context, receiverID string, actions []client.Action) (*client.FinalExecutionOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrNetwork, err.Error())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if receiverID != c.owner {
		return nil, errors.Wrapf(errors.ErrInput, "receiver %q is not the contract owner", receiverID)
	}

	var value []byte
	for _, a := range actions {
		name := a.Kind()
		if a.FunctionCall != nil {
			name = a.FunctionCall.MethodName
		}
		c.calls = append(c.calls, name)

		if errs := c.failures[name]; len(errs) > 0 {
			c.failures[name] = errs[1:]
			return nil, errs[0]
		}

		var err error
		switch {
		case a.FunctionCall != nil:
			value, err = c.call(a.FunctionCall.MethodName, a.FunctionCall.Args)
		case a.AddKey != nil:
			c.removeKey(a.AddKey.PublicKey.String())
			c.keys = append(c.keys, client.AccessKeyInfo{
				PublicKey: a.AddKey.PublicKey.String(),
				AccessKey: a.AddKey.AccessKey,
			})
		case a.DeleteKey != nil:
			if !c.removeKey(a.DeleteKey.PublicKey.String()) {
				err = errors.Wrapf(errors.ErrNotFound, "access key %s", a.DeleteKey.PublicKey)
			}
		case a.DeployContract != nil:
			c.codeHash = "multisig"
		}
		if err != nil {
			return failure(err)
		}
	}

	ok := base64.StdEncoding.EncodeToString(value)
	return &client.FinalExecutionOutcome{
		Status: client.ExecutionStatus{SuccessValue: &ok},
	}, nil
}

func (c *Contract) removeKey(pk string) bool {
	for i, k := range c.keys {
		if k.PublicKey == pk {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Contract) call(method string, args []byte) ([]byte, error) {
	switch method {
	case "add_request", "add_request_and_confirm":
		var in struct {
			Request json.RawMessage `json:"request"`
		}
		if err := json.Unmarshal(args, &in); err != nil || len(in.Request) == 0 {
			return nil, panicked("Failed to deserialize input from JSON.")
		}
		if len(c.requests) >= c.MaxRequests {
			return nil, panicked("Account has too many active requests. Confirm or delete some.")
		}
		id := c.nextID
		c.nextID++
		c.requests[id] = &ContractRequest{ID: id, Request: in.Request, CreatedAt: c.Now()}
		return []byte(strconv.FormatUint(id, 10)), nil
	case "delete_request", "confirm":
		var in struct {
			RequestID *uint64 `json:"request_id"`
		}
		if err := json.Unmarshal(args, &in); err != nil || in.RequestID == nil {
			return nil, panicked("Failed to deserialize input from JSON.")
		}
		r, ok := c.requests[*in.RequestID]
		if !ok {
			return nil, panicked("No such request: either wrong number or already confirmed")
		}
		if method == "delete_request" && c.Now().Sub(r.CreatedAt) < c.MinDeleteAge {
			return nil, panicked("Request cannot be deleted immediately after creation.")
		}
		delete(c.requests, r.ID)
		return []byte("true"), nil
	case "new":
		return nil, nil
	default:
		return nil, errors.Wrapf(errors.ErrInput, "method %q not found", method)
	}
}

// ViewFunction implements view methods of the contract. Only
// list_request_ids is supported.
func (c *Contract) ViewFunction(ctx context.Context, contractID, methodName string, args interface{}, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if errs := c.failures[methodName]; len(errs) > 0 {
		c.failures[methodName] = errs[1:]
		return errs[0]
	}
	if contractID != c.owner {
		return errors.Wrapf(errors.ErrNotFound, "account %q", contractID)
	}
	if methodName != "list_request_ids" {
		return errors.Wrapf(errors.ErrInput, "method %q not found", methodName)
	}
	raw, err := json.Marshal(c.ids())
	if err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return errors.Wrapf(errors.ErrInput, "cannot decode result: %s", err)
	}
	return nil
}

type panicError string

func (e panicError) Error() string { return string(e) }

func panicked(msg string) error {
	return panicError("Smart contract panicked: " + msg)
}

// failure returns the outcome of a transaction that failed with err, the way
// the ledger reports it. A contract panic is reported as a typed execution
// error.
func failure(err error) (*client.FinalExecutionOutcome, error) {
	p, ok := err.(panicError)
	if !ok {
		return nil, err
	}
	raw, merr := json.Marshal(map[string]interface{}{
		"ActionError": map[string]interface{}{
			"index": 0,
			"kind": map[string]interface{}{
				"FunctionCallError": map[string]interface{}{
					"ExecutionError": string(p),
				},
			},
		},
	})
	if merr != nil {
		return nil, errors.Wrap(errors.ErrInput, merr.Error())
	}
	out := &client.FinalExecutionOutcome{
		Status: client.ExecutionStatus{Failure: raw},
	}
	return out, out.Failure()
}

// TooManyRequests returns the error the contract fails with when the
// number of active requests reaches the limit.
func TooManyRequests() error {
	_, err := failure(panicked("Account has too many active requests. Confirm or delete some."))
	return err
}
