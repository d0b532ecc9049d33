package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/iov-one/dualsign/crypto"
	"github.com/iov-one/dualsign/errors"
	"github.com/iov-one/dualsign/rpcerror"
	"github.com/tendermint/tendermint/libs/log"
)

// TxNonceRetries is the number of times a transaction is signed again with a
// fresh nonce when the ledger rejects the nonce.
const TxNonceRetries = 6

// Account sends transactions signed with the key of a single account.
type Account struct {
	conn      *Client
	signer    crypto.Signer
	networkID string
	accountID string
	logger    log.Logger
	backoff   time.Duration
}

// NewAccount returns an account using given connection and signer.
func NewAccount(conn *Client, signer crypto.Signer, networkID, accountID string) *Account {
	return &Account{
		conn:      conn,
		signer:    signer,
		networkID: networkID,
		accountID: accountID,
		logger:    log.NewNopLogger(),
		backoff:   500 * time.Millisecond,
	}
}

// WithLogger sets the logger of this account.
func (a *Account) WithLogger(logger log.Logger) *Account {
	a.logger = logger.With("account", a.accountID)
	return a
}

// AccountID returns the identifier of this account.
func (a *Account) AccountID() string {
	return a.accountID
}

// NetworkID returns the network this account lives on.
func (a *Account) NetworkID() string {
	return a.networkID
}

// Connection returns the node client used by this account.
func (a *Account) Connection() *Client {
	return a.conn
}

// Signer returns the signer used by this account.
func (a *Account) Signer() crypto.Signer {
	return a.signer
}

// PublicKey returns the key transactions of this account are signed with.
func (a *Account) PublicKey() (crypto.PublicKey, error) {
	return a.signer.PublicKey(a.accountID, a.networkID)
}

// State returns the current state of the account.
func (a *Account) State(ctx context.Context) (*AccountView, error) {
	return a.conn.ViewAccount(ctx, a.accountID)
}

// AccessKeys returns all access keys of the account.
func (a *Account) AccessKeys(ctx context.Context) ([]AccessKeyInfo, error) {
	return a.conn.ViewAccessKeyList(ctx, a.accountID)
}

// SignAndSendTransaction signs the actions with the account key, sends them
// to the receiver and waits for the execution outcome. A transaction
// rejected because of a stale nonce is signed again with a fresh one.
func (a *Account) SignAndSendTransaction(ctx context.Context, receiverID string, actions []Action) (*FinalExecutionOutcome, error) {
	backoff := a.backoff
	for attempt := 1; ; attempt++ {
		out, err := a.signAndSend(ctx, receiverID, actions)
		if err == nil {
			return out, nil
		}
		typed, ok := rpcerror.As(err)
		if !ok || typed.Kind() != "InvalidNonce" || attempt >= TxNonceRetries {
			return out, err
		}
		a.logger.Debug("retrying transaction with a fresh nonce", "attempt", attempt, "receiver", receiverID)
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "wait before retry")
		case <-time.After(backoff):
		}
		backoff = backoff * 3 / 2
	}
}

func (a *Account) signAndSend(ctx context.Context, receiverID string, actions []Action) (*FinalExecutionOutcome, error) {
	pub, err := a.PublicKey()
	if err != nil {
		return nil, errors.Wrap(err, "signer key")
	}
	ak, err := a.conn.ViewAccessKey(ctx, a.accountID, pub.String())
	if err != nil {
		return nil, errors.Wrap(err, "access key")
	}
	block, err := a.conn.Block(ctx, FinalityFinal)
	if err != nil {
		return nil, errors.Wrap(err, "latest block")
	}
	hash, err := DecodeBlockHash(block.Header.Hash)
	if err != nil {
		return nil, err
	}

	tx := Transaction{
		SignerID:   a.accountID,
		PublicKey:  pub,
		Nonce:      ak.Nonce + 1,
		ReceiverID: receiverID,
		BlockHash:  hash,
		Actions:    actions,
	}
	stx, _, err := SignTransaction(tx, a.signer, a.networkID)
	if err != nil {
		return nil, err
	}
	return a.conn.BroadcastTxCommit(ctx, stx)
}

// ViewFunction calls a view method of a contract with JSON encoded args and
// decodes the JSON result into dest.
func (a *Account) ViewFunction(ctx context.Context, contractID, methodName string, args interface{}, dest interface{}) error {
	if args == nil {
		args = struct{}{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return errors.Wrap(errors.ErrInput, "encode args")
	}
	res, err := a.conn.CallFunction(ctx, contractID, methodName, raw)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(res.Result, dest); err != nil {
		return errors.Wrapf(errors.ErrInput, "decode %s result: %s", methodName, err)
	}
	return nil
}
