package keystore

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Wrapping constants.
const (
	saltSize = 32
	// Wrapped format: [salt(32)][memory(4)][iterations(4)][parallelism(1)][nonce(24)][ciphertext...]
	headerSize = saltSize + 4 + 4 + 1
)

// wrapParams holds Argon2id parameters.
type wrapParams struct {
	memory      uint32 // in KiB
	iterations  uint32
	parallelism uint8
}

// defaultWrapParams returns recommended Argon2id parameters.
func defaultWrapParams() wrapParams {
	return wrapParams{
		memory:      64 * 1024, // 64 MB
		iterations:  3,
		parallelism: 4,
	}
}

// deriveKey uses Argon2id to derive a 32-byte wrapping key from password and salt.
func deriveKey(password, salt []byte, params wrapParams) []byte {
	return argon2.IDKey(
		password,
		salt,
		params.iterations,
		params.memory,
		params.parallelism,
		chacha20poly1305.KeySize,
	)
}

// wrapSecret encrypts a key secret with a password using Argon2id +
// XChaCha20-Poly1305.
func wrapSecret(secret, password []byte, params wrapParams) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	key := deriveKey(password, salt, params)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, secret, nil)

	out := make([]byte, 0, headerSize+len(nonce)+len(ciphertext))
	out = append(out, salt...)
	out = binary.LittleEndian.AppendUint32(out, params.memory)
	out = binary.LittleEndian.AppendUint32(out, params.iterations)
	out = append(out, params.parallelism)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// unwrapSecret decrypts a secret wrapped by wrapSecret with the given password.
func unwrapSecret(wrapped, password []byte) ([]byte, error) {
	nonceSize := chacha20poly1305.NonceSizeX
	minSize := headerSize + nonceSize + chacha20poly1305.Overhead
	if len(wrapped) < minSize {
		return nil, fmt.Errorf("wrapped secret too short: %d bytes, need at least %d", len(wrapped), minSize)
	}

	salt := wrapped[:saltSize]
	params := wrapParams{
		memory:      binary.LittleEndian.Uint32(wrapped[saltSize:]),
		iterations:  binary.LittleEndian.Uint32(wrapped[saltSize+4:]),
		parallelism: wrapped[saltSize+8],
	}
	nonce := wrapped[headerSize : headerSize+nonceSize]
	ciphertext := wrapped[headerSize+nonceSize:]

	key := deriveKey(password, salt, params)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	secret, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("unwrap secret: %w", err)
	}
	return secret, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
