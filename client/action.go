package client

import (
	"encoding/json"

	"github.com/iov-one/dualsign/crypto"
	"github.com/iov-one/dualsign/errors"
)

// Action is a single operation of a transaction. Exactly one of the fields
// must be set.
type Action struct {
	CreateAccount  *CreateAccount  `json:"CreateAccount,omitempty"`
	DeployContract *DeployContract `json:"DeployContract,omitempty"`
	FunctionCall   *FunctionCall   `json:"FunctionCall,omitempty"`
	Transfer       *Transfer       `json:"Transfer,omitempty"`
	Stake          *Stake          `json:"Stake,omitempty"`
	AddKey         *AddKey         `json:"AddKey,omitempty"`
	DeleteKey      *DeleteKey      `json:"DeleteKey,omitempty"`
	DeleteAccount  *DeleteAccount  `json:"DeleteAccount,omitempty"`
}

type CreateAccount struct{}

type DeployContract struct {
	Code []byte `json:"code"`
}

type FunctionCall struct {
	MethodName string   `json:"method_name"`
	Args       []byte   `json:"args"`
	Gas        uint64   `json:"gas"`
	Deposit    *Balance `json:"deposit"`
}

type Transfer struct {
	Deposit *Balance `json:"deposit"`
}

type Stake struct {
	Stake     *Balance         `json:"stake"`
	PublicKey crypto.PublicKey `json:"public_key"`
}

type AddKey struct {
	PublicKey crypto.PublicKey `json:"public_key"`
	AccessKey AccessKey        `json:"access_key"`
}

type DeleteKey struct {
	PublicKey crypto.PublicKey `json:"public_key"`
}

type DeleteAccount struct {
	BeneficiaryID string `json:"beneficiary_id"`
}

// AccessKey describes what a key is allowed to do.
type AccessKey struct {
	Nonce      uint64              `json:"nonce"`
	Permission AccessKeyPermission `json:"permission"`
}

// AccessKeyPermission is either a full access or a function call permission.
// A nil FunctionCall means full access.
type AccessKeyPermission struct {
	FunctionCall *FunctionCallPermission
}

// FunctionCallPermission limits a key to calling given methods of a single
// receiver, spending no more than the allowance on gas.
type FunctionCallPermission struct {
	// Allowance is nil for an unlimited allowance.
	Allowance   *Balance `json:"allowance"`
	ReceiverID  string   `json:"receiver_id"`
	MethodNames []string `json:"method_names"`
}

const fullAccess = "FullAccess"

// IsFullAccess returns true if the key is not limited.
func (p AccessKeyPermission) IsFullAccess() bool {
	return p.FunctionCall == nil
}

// MarshalJSON implements json.Marshaler using the ledger representation,
// "FullAccess" or {"FunctionCall": {...}}.
func (p AccessKeyPermission) MarshalJSON() ([]byte, error) {
	if p.FunctionCall == nil {
		return json.Marshal(fullAccess)
	}
	return json.Marshal(map[string]*FunctionCallPermission{"FunctionCall": p.FunctionCall})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *AccessKeyPermission) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s != fullAccess {
			return errors.Wrapf(errors.ErrInput, "unknown permission %q", s)
		}
		p.FunctionCall = nil
		return nil
	}
	var obj struct {
		FunctionCall *FunctionCallPermission
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return errors.Wrapf(errors.ErrInput, "invalid permission: %s", err)
	}
	if obj.FunctionCall == nil {
		return errors.Wrap(errors.ErrInput, "unknown permission")
	}
	p.FunctionCall = obj.FunctionCall
	return nil
}

// FullAccessKey returns an access key without limits.
func FullAccessKey() AccessKey {
	return AccessKey{}
}

// FunctionCallAccessKey returns an access key limited to calling given
// methods of the receiver. An empty methods list allows any method.
func FunctionCallAccessKey(receiverID string, methodNames []string, allowance *Balance) AccessKey {
	return AccessKey{
		Permission: AccessKeyPermission{
			FunctionCall: &FunctionCallPermission{
				Allowance:   allowance,
				ReceiverID:  receiverID,
				MethodNames: methodNames,
			},
		},
	}
}

// NewCreateAccount returns an action creating the receiver account.
func NewCreateAccount() Action {
	return Action{CreateAccount: &CreateAccount{}}
}

// NewDeployContract returns an action deploying given code to the receiver.
func NewDeployContract(code []byte) Action {
	return Action{DeployContract: &DeployContract{Code: code}}
}

// NewFunctionCall returns an action calling a method of the receiver. args
// is usually JSON.
func NewFunctionCall(methodName string, args []byte, gas uint64, deposit *Balance) Action {
	return Action{FunctionCall: &FunctionCall{
		MethodName: methodName,
		Args:       args,
		Gas:        gas,
		Deposit:    deposit,
	}}
}

// NewTransfer returns an action sending tokens to the receiver.
func NewTransfer(deposit *Balance) Action {
	return Action{Transfer: &Transfer{Deposit: deposit}}
}

// NewStake returns an action staking tokens with given validator key.
func NewStake(stake *Balance, pk crypto.PublicKey) Action {
	return Action{Stake: &Stake{Stake: stake, PublicKey: pk}}
}

// NewAddKey returns an action adding a key to the receiver account.
func NewAddKey(pk crypto.PublicKey, ak AccessKey) Action {
	return Action{AddKey: &AddKey{PublicKey: pk, AccessKey: ak}}
}

// NewDeleteKey returns an action removing a key from the receiver account.
func NewDeleteKey(pk crypto.PublicKey) Action {
	return Action{DeleteKey: &DeleteKey{PublicKey: pk}}
}

// NewDeleteAccount returns an action deleting the receiver account and
// sending the remaining balance to the beneficiary.
func NewDeleteAccount(beneficiaryID string) Action {
	return Action{DeleteAccount: &DeleteAccount{BeneficiaryID: beneficiaryID}}
}

// Kind returns the name of the set action, or an empty string if none is
// set.
func (a Action) Kind() string {
	switch {
	case a.CreateAccount != nil:
		return "CreateAccount"
	case a.DeployContract != nil:
		return "DeployContract"
	case a.FunctionCall != nil:
		return "FunctionCall"
	case a.Transfer != nil:
		return "Transfer"
	case a.Stake != nil:
		return "Stake"
	case a.AddKey != nil:
		return "AddKey"
	case a.DeleteKey != nil:
		return "DeleteKey"
	case a.DeleteAccount != nil:
		return "DeleteAccount"
	default:
		return ""
	}
}

// Validate returns an error if not exactly one action is set.
func (a Action) Validate() error {
	var n int
	for _, set := range []bool{
		a.CreateAccount != nil,
		a.DeployContract != nil,
		a.FunctionCall != nil,
		a.Transfer != nil,
		a.Stake != nil,
		a.AddKey != nil,
		a.DeleteKey != nil,
		a.DeleteAccount != nil,
	} {
		if set {
			n++
		}
	}
	switch n {
	case 0:
		return errors.Wrap(errors.ErrEmpty, "action")
	case 1:
		return nil
	default:
		return errors.Wrapf(errors.ErrInput, "action must hold one operation, got %d", n)
	}
}
