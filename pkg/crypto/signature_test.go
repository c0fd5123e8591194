package crypto

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func TestSignAndVerify(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	hash := Hash([]byte("hello"))

	sig, err := key.Sign(hash[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(sig) != SignatureSize {
		t.Fatalf("signature length = %d, want %d", len(sig), SignatureSize)
	}
	if !VerifySignature(hash[:], sig, key.PublicKey()) {
		t.Error("valid signature did not verify")
	}

	other := Hash([]byte("other"))
	if VerifySignature(other[:], sig, key.PublicKey()) {
		t.Error("signature verified against wrong hash")
	}

	wrong, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if VerifySignature(hash[:], sig, wrong.PublicKey()) {
		t.Error("signature verified against wrong key")
	}
}

func TestSign_RejectsBadHashLength(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if _, err := key.Sign([]byte("short")); err == nil {
		t.Error("signing a non-32-byte hash should fail")
	}
}

func TestPrivateKeyFromBytes(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	restored, err := PrivateKeyFromBytes(key.Serialize())
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes: %v", err)
	}
	if restored.PublicKey() != key.PublicKey() {
		t.Error("restored key has different public key")
	}

	if _, err := PrivateKeyFromBytes(make([]byte, 32)); err == nil {
		t.Error("zero key should be rejected")
	}
	if _, err := PrivateKeyFromBytes(make([]byte, 16)); err == nil {
		t.Error("short key should be rejected")
	}
}

// Small scalars cover both point parities; every key must end up even-Y so
// its x-only form verifies.
func TestPrivateKey_NormalizedToEvenY(t *testing.T) {
	for i := byte(1); i <= 20; i++ {
		var secret [32]byte
		secret[31] = i
		key, err := PrivateKeyFromBytes(secret[:])
		if err != nil {
			t.Fatalf("scalar %d: %v", i, err)
		}
		if prefix := key.key.PubKey().SerializeCompressed()[0]; prefix != secp256k1.PubKeyFormatCompressedEven {
			t.Errorf("scalar %d: public point parity prefix = %#x, want even", i, prefix)
		}

		hash := Hash([]byte{i})
		sig, err := key.Sign(hash[:])
		if err != nil {
			t.Fatalf("scalar %d: Sign: %v", i, err)
		}
		if !VerifySignature(hash[:], sig, key.PublicKey()) {
			t.Errorf("scalar %d: signature does not verify against x-only key", i)
		}

		// The serialized (normalized) scalar must reload to the same key.
		reloaded, err := PrivateKeyFromBytes(key.Serialize())
		if err != nil {
			t.Fatalf("scalar %d: reload: %v", i, err)
		}
		if reloaded.PublicKey() != key.PublicKey() {
			t.Errorf("scalar %d: reloaded key has different public key", i)
		}
	}
}

func TestHashConcat(t *testing.T) {
	a, b := Hash([]byte("mom")), Hash([]byte("dad"))
	want := Hash(append(append([]byte{}, a[:]...), b[:]...))
	if HashConcat(a, b) != want {
		t.Error("HashConcat should equal hash of concatenation")
	}
	if HashConcat(a, b) == HashConcat(b, a) {
		t.Error("HashConcat must be order sensitive")
	}
}

func TestHash_Deterministic(t *testing.T) {
	if Hash([]byte("x")) != Hash([]byte("x")) {
		t.Error("hash must be deterministic")
	}
	if Hash([]byte("x")) == Hash([]byte("y")) {
		t.Error("distinct inputs should not collide")
	}
}
