package client

import (
	"encoding/json"
	"math/big"

	"github.com/iov-one/dualsign/errors"
)

// Balance is an amount of the smallest ledger token unit. It is encoded in
// JSON as a decimal string.
type Balance big.Int

// NewBalance returns a balance of given value.
func NewBalance(v int64) *Balance {
	return (*Balance)(big.NewInt(v))
}

// ParseBalance decodes a decimal amount.
func ParseBalance(s string) (*Balance, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Wrapf(errors.ErrInput, "invalid amount %q", s)
	}
	if n.Sign() < 0 {
		return nil, errors.Wrapf(errors.ErrInput, "negative amount %q", s)
	}
	return (*Balance)(n), nil
}

// MustParseBalance is like ParseBalance but panics on error. Use it only for
// constants.
func MustParseBalance(s string) *Balance {
	b, err := ParseBalance(s)
	if err != nil {
		panic(err)
	}
	return b
}

// BigInt returns the value as a big integer. A nil balance is zero.
func (b *Balance) BigInt() *big.Int {
	if b == nil {
		return new(big.Int)
	}
	return (*big.Int)(b)
}

// String returns the decimal form of the amount.
func (b *Balance) String() string {
	return b.BigInt().String()
}

// MarshalJSON implements json.Marshaler.
func (b *Balance) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// UnmarshalJSON implements json.Unmarshaler. Both quoted and plain numbers
// are accepted.
func (b *Balance) UnmarshalJSON(raw []byte) error {
	s := string(raw)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	n, err := ParseBalance(s)
	if err != nil {
		return err
	}
	*b = *n
	return nil
}
