package client

import (
	"encoding/base64"
	"encoding/json"

	"github.com/iov-one/dualsign/errors"
	"github.com/iov-one/dualsign/rpcerror"
)

// Finality of the data a query reads.
const (
	FinalityFinal      = "final"
	FinalityOptimistic = "optimistic"
)

// Block is a ledger block. Only the header is decoded.
type Block struct {
	Author string      `json:"author"`
	Header BlockHeader `json:"header"`
}

// BlockHeader holds the block height and hash.
type BlockHeader struct {
	Height    uint64 `json:"height"`
	Hash      string `json:"hash"`
	PrevHash  string `json:"prev_hash"`
	Timestamp uint64 `json:"timestamp"`
}

// AccountView is the state of an account.
type AccountView struct {
	Amount        *Balance `json:"amount"`
	Locked        *Balance `json:"locked"`
	CodeHash      string   `json:"code_hash"`
	StorageUsage  uint64   `json:"storage_usage"`
	StoragePaidAt uint64   `json:"storage_paid_at"`
	BlockHeight   uint64   `json:"block_height"`
	BlockHash     string   `json:"block_hash"`
}

// EmptyCodeHash is the code hash of an account without a contract.
const EmptyCodeHash = "11111111111111111111111111111111"

// HasContract returns true if a contract is deployed to the account.
func (a *AccountView) HasContract() bool {
	return a.CodeHash != "" && a.CodeHash != EmptyCodeHash
}

// AccessKeyView is an access key together with the block it was read at.
type AccessKeyView struct {
	AccessKey
	BlockHeight uint64 `json:"block_height"`
	BlockHash   string `json:"block_hash"`
}

// AccessKeyInfo is an entry of the access key list of an account.
type AccessKeyInfo struct {
	PublicKey string    `json:"public_key"`
	AccessKey AccessKey `json:"access_key"`
}

// CallResult is the outcome of a view function call.
type CallResult struct {
	Result      ByteArray `json:"result"`
	Logs        []string  `json:"logs"`
	BlockHeight uint64    `json:"block_height"`
	BlockHash   string    `json:"block_hash"`
	// Error is set by older nodes instead of returning an RPC error.
	Error string `json:"error,omitempty"`
}

// ByteArray is a binary value encoded in JSON as an array of numbers.
type ByteArray []byte

// UnmarshalJSON implements json.Unmarshaler.
func (b *ByteArray) UnmarshalJSON(raw []byte) error {
	var nums []uint8
	// A []uint8 is decoded from base64, so decode through ints.
	var ints []int
	if err := json.Unmarshal(raw, &ints); err != nil {
		return errors.Wrapf(errors.ErrInput, "invalid byte array: %s", err)
	}
	nums = make([]uint8, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return errors.Wrapf(errors.ErrInput, "invalid byte value %d", v)
		}
		nums[i] = uint8(v)
	}
	*b = nums
	return nil
}

// MarshalJSON implements json.Marshaler.
func (b ByteArray) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(b))
	for i, v := range b {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

// ExecutionStatus is the status of a transaction or receipt execution.
// Exactly one of the fields is set for a finished execution.
type ExecutionStatus struct {
	SuccessValue     *string         `json:"SuccessValue,omitempty"`
	SuccessReceiptID *string         `json:"SuccessReceiptId,omitempty"`
	Failure          json.RawMessage `json:"Failure,omitempty"`
	// Other holds a status sent as a plain string, for example "Unknown".
	Other string `json:"-"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *ExecutionStatus) UnmarshalJSON(raw []byte) error {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		*s = ExecutionStatus{Other: text}
		return nil
	}
	type plain ExecutionStatus
	var p plain
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	*s = ExecutionStatus(p)
	return nil
}

// IsFailure returns true if the execution failed.
func (s ExecutionStatus) IsFailure() bool {
	return len(s.Failure) != 0 && string(s.Failure) != "null"
}

// ExecutionOutcome is the result of executing a transaction or receipt.
type ExecutionOutcome struct {
	Logs        []string        `json:"logs"`
	ReceiptIDs  []string        `json:"receipt_ids"`
	GasBurnt    uint64          `json:"gas_burnt"`
	TokensBurnt *Balance        `json:"tokens_burnt"`
	ExecutorID  string          `json:"executor_id"`
	Status      ExecutionStatus `json:"status"`
}

// ExecutionOutcomeWithID is an execution outcome with its identifier.
type ExecutionOutcomeWithID struct {
	ID        string           `json:"id"`
	BlockHash string           `json:"block_hash"`
	Outcome   ExecutionOutcome `json:"outcome"`
}

// FinalExecutionOutcome is the result of a committed transaction.
type FinalExecutionOutcome struct {
	Status             ExecutionStatus          `json:"status"`
	Transaction        json.RawMessage          `json:"transaction,omitempty"`
	TransactionOutcome ExecutionOutcomeWithID   `json:"transaction_outcome"`
	ReceiptsOutcome    []ExecutionOutcomeWithID `json:"receipts_outcome"`
}

// Failure returns the classified error of a failed transaction, or nil if
// the transaction did not fail.
func (o *FinalExecutionOutcome) Failure() error {
	if !o.Status.IsFailure() {
		return nil
	}
	raw := append(append([]byte(`{"status":{"Failure":`), o.Status.Failure...), "}}"...)
	typed, err := rpcerror.ClassifyResult(raw)
	if err != nil {
		return errors.Wrapf(err, "transaction failure %s", o.Status.Failure)
	}
	return typed
}

// SuccessValue returns the decoded return value of a successful
// transaction. ErrNotFound is returned when the transaction did not return
// a value.
func (o *FinalExecutionOutcome) SuccessValue() ([]byte, error) {
	if o.Status.SuccessValue == nil {
		return nil, errors.Wrap(errors.ErrNotFound, "no success value")
	}
	raw, err := base64.StdEncoding.DecodeString(*o.Status.SuccessValue)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "invalid success value: %s", err)
	}
	return raw, nil
}
