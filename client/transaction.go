package client

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"math/big"
	"strconv"

	"github.com/iov-one/dualsign/crypto"
	"github.com/iov-one/dualsign/errors"
	"github.com/mr-tron/base58"
)

// Transaction is an unsigned list of actions sent by the signer to the
// receiver.
type Transaction struct {
	SignerID   string
	PublicKey  crypto.PublicKey
	Nonce      uint64
	ReceiverID string
	BlockHash  [32]byte
	Actions    []Action
}

// SignedTransaction is a transaction together with the signature of its
// hash.
type SignedTransaction struct {
	Transaction Transaction
	Signature   []byte
}

// DecodeBlockHash decodes the base58 form of a block hash.
func DecodeBlockHash(s string) ([32]byte, error) {
	var hash [32]byte
	raw, err := base58.Decode(s)
	if err != nil {
		return hash, errors.Wrapf(errors.ErrInput, "invalid block hash %q: %s", s, err)
	}
	if len(raw) != len(hash) {
		return hash, errors.Wrapf(errors.ErrInput, "invalid block hash length: %d", len(raw))
	}
	copy(hash[:], raw)
	return hash, nil
}

// Serialize returns the binary (borsh) representation of the transaction.
func (tx *Transaction) Serialize() ([]byte, error) {
	var w borshWriter
	w.string(tx.SignerID)
	w.publicKey(tx.PublicKey)
	w.u64(tx.Nonce)
	w.string(tx.ReceiverID)
	w.raw(tx.BlockHash[:])
	w.u32(uint32(len(tx.Actions)))
	for i, a := range tx.Actions {
		if err := w.action(a); err != nil {
			return nil, errors.Field("Actions."+strconv.Itoa(i), err, "cannot serialize")
		}
	}
	return w.bytes(), w.err
}

// Hash returns the sha256 hash of the serialized transaction. This is the
// transaction identifier.
func (tx *Transaction) Hash() ([]byte, error) {
	raw, err := tx.Serialize()
	if err != nil {
		return nil, err
	}
	h := sha256.Sum256(raw)
	return h[:], nil
}

// SignTransaction serializes the transaction and signs it with the signer
// key of the given account.
func SignTransaction(tx Transaction, signer crypto.Signer, networkID string) (*SignedTransaction, []byte, error) {
	raw, err := tx.Serialize()
	if err != nil {
		return nil, nil, err
	}
	sig, err := signer.SignMessage(raw, tx.SignerID, networkID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "sign transaction")
	}
	h := sha256.Sum256(raw)
	return &SignedTransaction{Transaction: tx, Signature: sig}, h[:], nil
}

// Serialize returns the binary (borsh) representation of the signed
// transaction.
func (stx *SignedTransaction) Serialize() ([]byte, error) {
	raw, err := stx.Transaction.Serialize()
	if err != nil {
		return nil, err
	}
	if len(stx.Signature) != 64 {
		return nil, errors.Wrapf(errors.ErrInput, "invalid signature length: %d", len(stx.Signature))
	}
	var w borshWriter
	w.raw(raw)
	w.u8(0) // ed25519
	w.raw(stx.Signature)
	return w.bytes(), w.err
}

// Action enum indexes of the binary representation.
const (
	actionCreateAccount uint8 = iota
	actionDeployContract
	actionFunctionCall
	actionTransfer
	actionStake
	actionAddKey
	actionDeleteKey
	actionDeleteAccount
)

type borshWriter struct {
	buf bytes.Buffer
	err error
}

func (w *borshWriter) bytes() []byte {
	return w.buf.Bytes()
}

func (w *borshWriter) raw(b []byte) {
	w.buf.Write(b)
}

func (w *borshWriter) u8(v uint8) {
	w.buf.WriteByte(v)
}

func (w *borshWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *borshWriter) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

func (w *borshWriter) u128(v *Balance) {
	n := v.BigInt()
	if n.Sign() < 0 || n.Cmp(maxU128) > 0 {
		if w.err == nil {
			w.err = errors.Wrapf(errors.ErrInput, "amount %s out of range", n)
		}
		n = new(big.Int)
	}
	// big.Int bytes are big endian.
	be := n.Bytes()
	var b [16]byte
	for i := range be {
		b[i] = be[len(be)-1-i]
	}
	w.buf.Write(b[:])
}

func (w *borshWriter) bytesField(b []byte) {
	w.u32(uint32(len(b)))
	w.buf.Write(b)
}

func (w *borshWriter) string(s string) {
	w.bytesField([]byte(s))
}

func (w *borshWriter) publicKey(pk crypto.PublicKey) {
	if len(pk.Data) != 32 {
		if w.err == nil {
			w.err = errors.Wrapf(errors.ErrInput, "invalid public key length: %d", len(pk.Data))
		}
	}
	w.u8(0) // ed25519
	var b [32]byte
	copy(b[:], pk.Data)
	w.buf.Write(b[:])
}

func (w *borshWriter) action(a Action) error {
	if err := a.Validate(); err != nil {
		return err
	}
	switch {
	case a.CreateAccount != nil:
		w.u8(actionCreateAccount)
	case a.DeployContract != nil:
		w.u8(actionDeployContract)
		w.bytesField(a.DeployContract.Code)
	case a.FunctionCall != nil:
		w.u8(actionFunctionCall)
		w.string(a.FunctionCall.MethodName)
		w.bytesField(a.FunctionCall.Args)
		w.u64(a.FunctionCall.Gas)
		w.u128(a.FunctionCall.Deposit)
	case a.Transfer != nil:
		w.u8(actionTransfer)
		w.u128(a.Transfer.Deposit)
	case a.Stake != nil:
		w.u8(actionStake)
		w.u128(a.Stake.Stake)
		w.publicKey(a.Stake.PublicKey)
	case a.AddKey != nil:
		w.u8(actionAddKey)
		w.publicKey(a.AddKey.PublicKey)
		w.u64(a.AddKey.AccessKey.Nonce)
		if p := a.AddKey.AccessKey.Permission.FunctionCall; p != nil {
			w.u8(0)
			if p.Allowance == nil {
				w.u8(0)
			} else {
				w.u8(1)
				w.u128(p.Allowance)
			}
			w.string(p.ReceiverID)
			w.u32(uint32(len(p.MethodNames)))
			for _, m := range p.MethodNames {
				w.string(m)
			}
		} else {
			w.u8(1)
		}
	case a.DeleteKey != nil:
		w.u8(actionDeleteKey)
		w.publicKey(a.DeleteKey.PublicKey)
	case a.DeleteAccount != nil:
		w.u8(actionDeleteAccount)
		w.string(a.DeleteAccount.BeneficiaryID)
	}
	return w.err
}
