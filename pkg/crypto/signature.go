package crypto

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"

	"github.com/kittynet/kittynet-wallet/pkg/types"
)

// SignatureSize is the length of a serialized Schnorr signature.
const SignatureSize = 64

// Signer signs 32-byte hashes on behalf of a public key. The keystore is the
// only production implementation; tests provide their own.
type Signer interface {
	// Sign produces a Schnorr signature over a 32-byte hash with the key
	// identified by pub.
	Sign(pub types.PublicKey, hash []byte) ([]byte, error)
}

// PrivateKey wraps a secp256k1 private key for Schnorr signing. The scalar is
// normalized so its public point always has an even Y coordinate; the
// 32-byte x coordinate then identifies the point completely, which is what
// lets types.PublicKey drop the parity prefix.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// normalizeEvenY negates the scalar in place when its public point has an
// odd Y coordinate. Negation maps d to n-d, whose point is the reflection
// with the same x coordinate, so signatures stay bound to the x-only key.
func normalizeEvenY(key *secp256k1.PrivateKey) *secp256k1.PrivateKey {
	if key.PubKey().SerializeCompressed()[0] == secp256k1.PubKeyFormatCompressedOdd {
		key.Key.Negate()
	}
	return key
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: normalizeEvenY(key)}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret. The
// returned key is even-Y normalized, so Serialize may differ from b.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	key := secp256k1.PrivKeyFromBytes(b)
	if key.Key.IsZero() {
		return nil, fmt.Errorf("private key is zero")
	}
	return &PrivateKey{key: normalizeEvenY(key)}, nil
}

// Sign produces a Schnorr signature over a 32-byte hash.
func (pk *PrivateKey) Sign(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	sig, err := schnorr.Sign(pk.key, hash)
	if err != nil {
		return nil, fmt.Errorf("schnorr sign: %w", err)
	}
	return sig.Serialize(), nil
}

// PublicKey returns the 32-byte x-only public key. The prefix byte is always
// the even-Y marker after normalization, so dropping it loses nothing.
func (pk *PrivateKey) PublicKey() types.PublicKey {
	var pub types.PublicKey
	copy(pub[:], pk.key.PubKey().SerializeCompressed()[1:])
	return pub
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// VerifySignature checks a Schnorr signature against a 32-byte hash and an
// x-only public key. The x coordinate names the even-Y point, matching the
// signing-side normalization. Returns false on any error.
func VerifySignature(hash, signature []byte, pub types.PublicKey) bool {
	compressed := make([]byte, 0, 33)
	compressed = append(compressed, secp256k1.PubKeyFormatCompressedEven)
	compressed = append(compressed, pub[:]...)
	pubKey, err := secp256k1.ParsePubKey(compressed)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(hash, pubKey)
}
