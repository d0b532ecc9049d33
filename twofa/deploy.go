package twofa

import (
	"context"
	"encoding/json"

	"github.com/iov-one/dualsign/client"
	"github.com/iov-one/dualsign/crypto"
	"github.com/iov-one/dualsign/errors"
	"github.com/iov-one/dualsign/multisig"
)

// DeployMultisig turns the account into a multisig account guarded by the
// helper service.
//
// Every full access key except those held by seed phrase or ledger recovery
// methods becomes a key limited to submitting requests. The confirm only key
// of the helper service is added and the contract is deployed. The contract
// is initialized when the account had no code before. The transaction is sent
// directly, not as a request.
func (a *Account) DeployMultisig(ctx context.Context, contractCode []byte) (*client.FinalExecutionOutcome, error) {
	if err := a.deployable(); err != nil {
		return nil, err
	}
	accountID := a.AccountID()

	methods, err := a.service.RecoveryMethods(ctx, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "recovery methods")
	}
	recoveryKeys := make(map[string]bool)
	for _, m := range methods {
		if (m.Kind == "phrase" || m.Kind == "ledger") && m.PublicKey != "" {
			recoveryKeys[m.PublicKey] = true
		}
	}

	keys, err := a.viewer.AccessKeys(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "access keys")
	}
	var limit []crypto.PublicKey
	for _, k := range keys {
		if !k.AccessKey.Permission.IsFullAccess() || recoveryKeys[k.PublicKey] {
			continue
		}
		pk, err := crypto.ParsePublicKey(k.PublicKey)
		if err != nil {
			return nil, errors.Wrapf(err, "access key %q", k.PublicKey)
		}
		limit = append(limit, pk)
	}

	confirmOnly, err := a.service.AccessKey(ctx, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "confirm only key")
	}

	var actions []client.Action
	for _, pk := range limit {
		actions = append(actions, client.NewDeleteKey(pk))
	}
	for _, pk := range limit {
		actions = append(actions, client.NewAddKey(pk,
			client.FunctionCallAccessKey(accountID, multisig.MultisigChangeMethods, nil)))
	}
	actions = append(actions,
		client.NewAddKey(confirmOnly,
			client.FunctionCallAccessKey(accountID, multisig.MultisigConfirmMethods, nil)),
		client.NewDeployContract(contractCode),
	)

	state, err := a.viewer.State(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "account state")
	}
	if !state.HasContract() {
		args, err := json.Marshal(map[string]int{"num_confirmations": 2})
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInput, "cannot encode args: %s", err)
		}
		actions = append(actions, client.NewFunctionCall("new", args, multisig.MultisigGas, multisig.MultisigDeposit))
	}

	a.logger.Info("deploying multisig contract", "limited_keys", len(limit))
	return a.ms.Ledger().SignAndSendTransaction(ctx, accountID, actions)
}

// Disable removes the second factor from the account. The confirm only key
// is removed, keys limited to submitting requests regain full access and the
// given contract replaces the multisig one. The transaction must be confirmed
// like any other.
func (a *Account) Disable(ctx context.Context, contractCode []byte) (*Result, error) {
	if err := a.deployable(); err != nil {
		return nil, err
	}
	accountID := a.AccountID()

	keys, err := a.viewer.AccessKeys(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "access keys")
	}
	var restore []crypto.PublicKey
	for _, k := range keys {
		if !isMultisigKey(k.AccessKey.Permission, accountID) {
			continue
		}
		pk, err := crypto.ParsePublicKey(k.PublicKey)
		if err != nil {
			return nil, errors.Wrapf(err, "access key %q", k.PublicKey)
		}
		restore = append(restore, pk)
	}

	confirmOnly, err := a.service.AccessKey(ctx, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "confirm only key")
	}

	actions := []client.Action{client.NewDeleteKey(confirmOnly)}
	for _, pk := range restore {
		actions = append(actions, client.NewDeleteKey(pk))
	}
	for _, pk := range restore {
		actions = append(actions, client.NewAddKey(pk, client.FullAccessKey()))
	}
	actions = append(actions, client.NewDeployContract(contractCode))

	a.logger.Info("disabling second factor", "restored_keys", len(restore))
	return a.SignAndSendTransaction(ctx, accountID, actions)
}

func (a *Account) deployable() error {
	if a.service == nil {
		return errors.Wrap(errors.ErrInput, "no helper service configured")
	}
	if a.viewer == nil {
		return errors.Wrap(errors.ErrInput, "no account viewer configured")
	}
	return nil
}

// isMultisigKey returns true if the permission allows only submitting
// requests to the owner account.
func isMultisigKey(p client.AccessKeyPermission, accountID string) bool {
	fc := p.FunctionCall
	if fc == nil || fc.ReceiverID != accountID || len(fc.MethodNames) != len(multisig.MultisigChangeMethods) {
		return false
	}
	for _, m := range fc.MethodNames {
		if m == "add_request_and_confirm" {
			return true
		}
	}
	return false
}
