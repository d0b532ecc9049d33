package multisig

import "github.com/iov-one/dualsign/client"

const (
	// StorageKey is the key the pending request is stored under.
	StorageKey = "__multisigRequest"

	// MultisigGas is the gas attached to every contract call.
	MultisigGas uint64 = 100000000000000

	// TooManyRequestsMessage is the contract panic message returned when
	// the number of active requests reached the limit.
	TooManyRequestsMessage = "Account has too many active requests. Confirm or delete some"
)

var (
	// MultisigDeposit is the deposit attached to every contract call.
	MultisigDeposit = client.NewBalance(0)

	// MultisigAllowance is the allowance of limited keys added to the
	// owner account, 1 NEAR.
	MultisigAllowance = client.MustParseBalance("1000000000000000000000000")

	// MultisigChangeMethods are the contract methods a limited owner key
	// may call.
	MultisigChangeMethods = []string{"add_request", "add_request_and_confirm", "delete_request", "confirm"}

	// MultisigConfirmMethods are the contract methods a confirm only key
	// may call.
	MultisigConfirmMethods = []string{"confirm"}
)
