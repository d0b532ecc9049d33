package crypto

import (
	"strings"

	"github.com/iov-one/dualsign/errors"
	"github.com/stellar/go/exp/crypto/derivation"
	"github.com/tyler-smith/go-bip39"
)

// DefaultDerivationPath is the BIP44 path of the first account key.
const DefaultDerivationPath = "m/44'/397'/0'"

// KeyPairFromMnemonic derives an ed25519 key pair from a BIP39 seed phrase
// using SLIP-10 derivation along given path. An empty path selects
// DefaultDerivationPath.
func KeyPairFromMnemonic(mnemonic, path string) (*KeyPair, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if mnemonic == "" {
		return nil, errors.Wrap(errors.ErrEmpty, "mnemonic")
	}
	if path == "" {
		path = DefaultDerivationPath
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "invalid mnemonic: %s", err)
	}
	k, err := derivation.DeriveForPath(path, seed)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "cannot derive key using path=%q: %s", path, err)
	}
	return KeyPairFromSeed(k.Key), nil
}

// NewMnemonic returns a random 12 word seed phrase.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", errors.Wrapf(errors.ErrInput, "cannot create entropy: %s", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", errors.Wrapf(errors.ErrInput, "cannot create mnemonic: %s", err)
	}
	return mnemonic, nil
}
