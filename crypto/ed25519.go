package crypto

import (
	"strings"

	"github.com/iov-one/dualsign/errors"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ed25519"
)

// KeyTypeED25519 is the prefix of the textual form of ed25519 keys.
const KeyTypeED25519 = "ed25519"

// PublicKey is an ed25519 public key. Its textual form is "ed25519:" followed
// by the base58 encoded key.
type PublicKey struct {
	Data ed25519.PublicKey
}

// String returns the textual form of the key.
func (p PublicKey) String() string {
	return KeyTypeED25519 + ":" + base58.Encode(p.Data)
}

// IsEmpty returns true if this key holds no data.
func (p PublicKey) IsEmpty() bool {
	return len(p.Data) == 0
}

// Verify verifies the signature was created with this message and public key
func (p PublicKey) Verify(message, sig []byte) bool {
	if len(p.Data) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(p.Data, message, sig)
}

// MarshalText implements encoding.TextMarshaler.
func (p PublicKey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePublicKey decodes the textual form of a public key. The key type
// prefix is optional.
func ParsePublicKey(s string) (PublicKey, error) {
	raw, err := decodeKey(s)
	if err != nil {
		return PublicKey{}, err
	}
	if len(raw) != ed25519.PublicKeySize {
		return PublicKey{}, errors.Wrapf(errors.ErrInput, "invalid public key length: %d", len(raw))
	}
	return PublicKey{Data: raw}, nil
}

// KeyPair is an ed25519 private key together with its public key.
type KeyPair struct {
	priv ed25519.PrivateKey
}

// GenerateKeyPair returns a random new key pair.
func GenerateKeyPair() (*KeyPair, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "cannot generate ed25519 key: %s", err)
	}
	return &KeyPair{priv: priv}, nil
}

// KeyPairFromSeed will deterministically generate a key pair from a given
// 32 byte seed. Use if you have a strong source of external randomness, or
// for deterministic keys in test cases.
func KeyPairFromSeed(seed []byte) *KeyPair {
	return &KeyPair{priv: ed25519.NewKeyFromSeed(seed)}
}

// ParseKeyPair decodes the textual form of a secret key, as returned by
// String.
func ParseKeyPair(s string) (*KeyPair, error) {
	raw, err := decodeKey(s)
	if err != nil {
		return nil, err
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, errors.Wrapf(errors.ErrInput, "invalid private key length: %d", len(raw))
	}
	return &KeyPair{priv: ed25519.PrivateKey(raw)}, nil
}

// Sign returns a matching signature for this private key
func (k *KeyPair) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}

// PublicKey returns the corresponding PublicKey
func (k *KeyPair) PublicKey() PublicKey {
	return PublicKey{Data: k.priv.Public().(ed25519.PublicKey)}
}

// Verify verifies the signature was created with this key pair.
func (k *KeyPair) Verify(message, sig []byte) bool {
	return k.PublicKey().Verify(message, sig)
}

// String returns the textual form of the secret key. Never log it.
func (k *KeyPair) String() string {
	return KeyTypeED25519 + ":" + base58.Encode(k.priv)
}

func decodeKey(s string) ([]byte, error) {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		if kt := strings.ToLower(s[:i]); kt != KeyTypeED25519 {
			return nil, errors.Wrapf(errors.ErrInput, "unsupported key type %q", kt)
		}
		s = s[i+1:]
	}
	if s == "" {
		return nil, errors.Wrap(errors.ErrEmpty, "key")
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "invalid base58 key: %s", err)
	}
	return raw, nil
}
