package multisig

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/iov-one/dualsign/client"
	"github.com/iov-one/dualsign/crypto"
	"github.com/iov-one/dualsign/errors"
)

// ContractAction is the representation of an action that the multisig
// contract accepts as part of a request.
type ContractAction struct {
	Type       string              `json:"type"`
	Gas        string              `json:"gas,omitempty"`
	PublicKey  string              `json:"public_key,omitempty"`
	MethodName string              `json:"method_name,omitempty"`
	Args       string              `json:"args,omitempty"`
	Code       string              `json:"code,omitempty"`
	Amount     string              `json:"amount,omitempty"`
	Deposit    string              `json:"deposit"`
	Permission *ContractPermission `json:"permission,omitempty"`
}

// ContractPermission is the permission of a limited key added by a request.
type ContractPermission struct {
	ReceiverID  string   `json:"receiver_id"`
	Allowance   string   `json:"allowance,omitempty"`
	MethodNames []string `json:"method_names"`
}

// ContractActions converts actions sent by the owner to the receiver into
// their contract representation.
//
// A limited key added to the owner account without naming any method is
// granted the multisig change methods with the multisig allowance, so that it
// can keep submitting requests.
func ContractActions(actions []client.Action, ownerID, receiverID string) ([]ContractAction, error) {
	res := make([]ContractAction, 0, len(actions))
	var errs error
	for i, a := range actions {
		if err := a.Validate(); err != nil {
			errs = errors.AppendField(errs, "Actions."+strconv.Itoa(i), err)
			continue
		}
		res = append(res, contractAction(a, ownerID, receiverID))
	}
	if errs != nil {
		return nil, errs
	}
	return res, nil
}

func contractAction(a client.Action, ownerID, receiverID string) ContractAction {
	ca := ContractAction{
		Type:    a.Kind(),
		Deposit: "0",
	}
	var deposit *client.Balance
	switch {
	case a.DeployContract != nil:
		ca.Code = encodeBinary(a.DeployContract.Code)
	case a.FunctionCall != nil:
		fc := a.FunctionCall
		ca.MethodName = fc.MethodName
		ca.Args = encodeBinary(fc.Args)
		if fc.Gas > 0 {
			ca.Gas = strconv.FormatUint(fc.Gas, 10)
		}
		deposit = fc.Deposit
	case a.Transfer != nil:
		deposit = a.Transfer.Deposit
	case a.Stake != nil:
		ca.PublicKey = contractPublicKey(a.Stake.PublicKey)
		ca.Amount = a.Stake.Stake.String()
	case a.AddKey != nil:
		ca.PublicKey = contractPublicKey(a.AddKey.PublicKey)
		ca.Permission = contractPermission(a.AddKey.AccessKey.Permission, ownerID, receiverID)
	case a.DeleteKey != nil:
		ca.PublicKey = contractPublicKey(a.DeleteKey.PublicKey)
	}
	if deposit != nil {
		ca.Amount = deposit.String()
		ca.Deposit = deposit.String()
	}
	return ca
}

func contractPermission(p client.AccessKeyPermission, ownerID, receiverID string) *ContractPermission {
	fc := p.FunctionCall
	if fc == nil {
		return nil
	}
	if receiverID == ownerID && len(fc.MethodNames) == 0 {
		return &ContractPermission{
			ReceiverID:  ownerID,
			Allowance:   MultisigAllowance.String(),
			MethodNames: MultisigChangeMethods,
		}
	}
	perm := &ContractPermission{
		ReceiverID:  fc.ReceiverID,
		MethodNames: fc.MethodNames,
	}
	if perm.MethodNames == nil {
		perm.MethodNames = []string{}
	}
	if fc.Allowance != nil {
		perm.Allowance = fc.Allowance.String()
	}
	return perm
}

// contractPublicKey returns the key without the key type prefix.
func contractPublicKey(pk crypto.PublicKey) string {
	return strings.TrimPrefix(pk.String(), crypto.KeyTypeED25519+":")
}

func encodeBinary(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}
