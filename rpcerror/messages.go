package rpcerror

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// messageTemplates holds a human readable message for every known error
// kind. A {name} placeholder is replaced with the value of the attribute of
// that name.
var messageTemplates = map[string]string{
	// Account family.
	"AccountAlreadyExists":    "Can't create a new account {account_id}, because it already exists",
	"AccountDoesNotExist":     "Can't complete the action because account {account_id} doesn't exist",
	"ActorNoPermission":       "Actor {actor_id} doesn't have permission to account {account_id} to complete the action",
	"CreateAccountNotAllowed": "The new account_id {account_id} can't be created by {predecessor_id}",
	"DeleteAccountStaking":    "Account {account_id} is staking and can not be deleted",
	"InvalidAccountId":        "Invalid account ID",
	"CodeDoesNotExist":        "Cannot find contract code for account {account_id}",

	// Access key family.
	"AccessKeyNotFound":       "Signer \"{account_id}\" doesn't have access key with the given public_key {public_key}",
	"AccessKeyDoesNotExist":   "Can't complete the action because access key {public_key} doesn't exist",
	"AddKeyAlreadyExists":     "The public key {public_key} is already used for an existing access key",
	"DeleteKeyDoesNotExist":   "Account {account_id} tries to remove an access key that doesn't exist",
	"ReceiverMismatch":        "Wrong AccessKey used for transaction: transaction is sent to receiver_id={tx_receiver}, but is signed with function call access key that restricted to only use with receiver_id={ak_receiver}. Either change receiver_id in your transaction or switch to use a FullAccessKey.",
	"MethodNameMismatch":      "Transaction method name {method_name} isn't allowed by the access key",
	"RequiresFullAccess":      "The transaction contains more then one action, but it was signed with an access key which allows transaction to apply only one specific action. To apply more then one actions TX must be signed with a full access key",
	"NotEnoughAllowance":      "Access Key {account_id}:{public_key} does not have enough balance {allowance} for transaction costing {cost}",
	"DepositWithFunctionCall": "Transaction with FunctionCall access key doesn't allow to attach deposit",

	// Transaction validity family.
	"InvalidSignerId":    "Invalid signer account ID {signer_id} according to requirements",
	"SignerDoesNotExist": "Signer {signer_id} does not exist",
	"InvalidNonce":       "Transaction nonce {tx_nonce} must be larger than nonce of the used access key {ak_nonce}",
	"InvalidReceiverId":  "Invalid receiver account ID {receiver_id} according to requirements",
	"InvalidSignature":   "Transaction is not signed with the given public key",
	"NotEnoughBalance":   "Sender {signer_id} does not have enough balance {balance} for operation costing {cost}",
	"Expired":            "Transaction has expired",
	"InvalidChain":       "Transaction parent block hash doesn't belong to the current chain",

	// Action family.
	"TriesToUnstake":      "Account {account_id} is not yet staked, but tries to unstake",
	"TriesToStake":        "Account {account_id} tries to stake {stake}, but has staked {locked} and only has {balance}",
	"LackBalanceForState": "The account {account_id} wouldn't have enough balance to cover storage, required to have {amount}",
	"FunctionCallError":   "Smart contract execution failed",
	"ExecutionError":      "Smart contract execution failed: {message}",

	// Host function family.
	"GasLimitExceeded":                 "Exceeded the maximum amount of gas allowed to burn per contract",
	"GasExceeded":                      "Exceeded the prepaid gas",
	"BalanceExceeded":                  "Exceeded the account balance",
	"EmptyMethodName":                  "Method name is empty",
	"GuestPanic":                       "Smart contract panicked: {panic_msg}",
	"IntegerOverflow":                  "Integer overflow",
	"InvalidIteratorIndex":             "Iterator index {iterator_index} does not exist",
	"InvalidPromiseIndex":              "{promise_idx} does not correspond to existing promises",
	"MemoryAccessViolation":            "Accessed memory outside the bounds",
	"StackHeightExceeded":              "Exceeded the stack height limit",
	"CannotAppendActionToJointPromise": "Actions can only be appended to non-joint promise.",
	"CannotReturnJointPromise":         "Returning joint promise is currently prohibited",
	"MethodNotFound":                   "Contract method is not found",
}

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// Format returns a human readable message for the given kind, with
// placeholders substituted with the given attributes. A missing attribute is
// rendered as an empty string. An unknown kind results in a generic message
// carrying all attributes.
func Format(kind string, fields map[string]interface{}) string {
	tmpl, ok := messageTemplates[kind]
	if !ok {
		return untypedMessage(fields)
	}
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(placeholder string) string {
		name := placeholder[1 : len(placeholder)-1]
		v, ok := fields[name]
		if !ok || v == nil {
			return ""
		}
		return formatValue(v)
	})
}

func formatValue(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		// JSON numbers decoded without UseNumber.
		return fmt.Sprintf("%.0f", v)
	case map[string]interface{}, []interface{}:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(raw)
	default:
		return fmt.Sprint(v)
	}
}

// KnownKinds returns all kinds that have a dedicated message.
func KnownKinds() []string {
	kinds := make([]string, 0, len(messageTemplates))
	for k := range messageTemplates {
		kinds = append(kinds, k)
	}
	return kinds
}
