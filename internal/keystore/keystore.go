// Package keystore holds the wallet's key material and signs transaction
// hashes on request. Keys live one per file under the keystore directory;
// a key stored with a password is wrapped and must be unlocked before use.
package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	"github.com/kittynet/kittynet-wallet/internal/log"
	"github.com/kittynet/kittynet-wallet/pkg/crypto"
	"github.com/kittynet/kittynet-wallet/pkg/types"
)

// Keystore errors.
var (
	// ErrKeyNotFound is returned when the requested key is not in the store.
	ErrKeyNotFound = errors.New("key not found in keystore")
	// ErrLocked is returned when signing with a password-wrapped key that has
	// not been unlocked.
	ErrLocked = errors.New("key is password-protected and locked")
)

// ShawnPhrase is the well-known development seed phrase. The CLI inserts it
// in --dev mode so a fresh wallet can sign immediately.
const ShawnPhrase = "news slush supreme milk chapter athlete soap sausage put clutch what kitten"

// Derivation path m/44'/9090'/0'/0/0 for keys inserted from a seed phrase.
const (
	purposeBIP44 = bip32.FirstHardenedChild + 44
	coinType     = bip32.FirstHardenedChild + 9090
)

// keyFile is the on-disk JSON format for a stored key.
type keyFile struct {
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	PublicKey types.PublicKey `json:"public_key"`
	Wrapped   bool            `json:"wrapped"`
	// Secret is the 32-byte private scalar, or the wrapped blob when
	// Wrapped is true.
	Secret []byte `json:"secret"`
}

// Keystore manages key files in a directory. Wrapped keys unlocked during
// this process are cached in memory only.
type Keystore struct {
	path string

	mu       sync.Mutex
	unlocked map[types.PublicKey]*crypto.PrivateKey
}

// New creates a keystore that reads/writes the given directory.
// The directory is created if it doesn't exist.
func New(path string) (*Keystore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{
		path:     path,
		unlocked: make(map[types.PublicKey]*crypto.PrivateKey),
	}, nil
}

// keyPath returns the file path for a key.
func (ks *Keystore) keyPath(pub types.PublicKey) string {
	return filepath.Join(ks.path, pub.String()+".key")
}

// Generate creates a new random key, optionally wrapped with a password, and
// returns its public key.
func (ks *Keystore) Generate(password string) (types.PublicKey, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return types.PublicKey{}, err
	}
	defer priv.Zero()

	pub := priv.PublicKey()
	if err := ks.storeKey(pub, priv.Serialize(), password); err != nil {
		return types.PublicKey{}, err
	}
	log.Keystore.Info().Str("public_key", pub.String()).Msg("generated key")
	return pub, nil
}

// Insert derives a key from a BIP-39 seed phrase at m/44'/9090'/0'/0/0 and
// stores it unwrapped. Inserting the same phrase twice is idempotent.
func (ks *Keystore) Insert(seedPhrase string) (types.PublicKey, error) {
	if !bip39.IsMnemonicValid(seedPhrase) {
		return types.PublicKey{}, fmt.Errorf("invalid seed phrase")
	}
	seed, err := bip39.NewSeedWithErrorChecking(seedPhrase, "")
	if err != nil {
		return types.PublicKey{}, fmt.Errorf("derive seed: %w", err)
	}

	priv, err := deriveSigningKey(seed)
	if err != nil {
		return types.PublicKey{}, err
	}
	defer priv.Zero()

	pub := priv.PublicKey()
	if _, err := os.Stat(ks.keyPath(pub)); err == nil {
		return pub, nil
	}
	if err := ks.storeKey(pub, priv.Serialize(), ""); err != nil {
		return types.PublicKey{}, err
	}
	log.Keystore.Info().Str("public_key", pub.String()).Msg("inserted key from seed phrase")
	return pub, nil
}

// deriveSigningKey walks m/44'/9090'/0'/0/0 from a BIP-39 seed.
func deriveSigningKey(seed []byte) (*crypto.PrivateKey, error) {
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	indices := []uint32{purposeBIP44, coinType, bip32.FirstHardenedChild, 0, 0}
	key := master
	for _, idx := range indices {
		key, err = key.NewChildKey(idx)
		if err != nil {
			return nil, fmt.Errorf("derive child %d: %w", idx, err)
		}
	}
	raw := key.Key
	// bip32 private keys carry a leading 0x00 pad byte.
	if len(raw) == 33 && raw[0] == 0 {
		raw = raw[1:]
	}
	return crypto.PrivateKeyFromBytes(raw)
}

// storeKey writes a key file, wrapping the secret when a password is given.
func (ks *Keystore) storeKey(pub types.PublicKey, secret []byte, password string) error {
	kf := keyFile{
		Version:   1,
		CreatedAt: time.Now().UTC(),
		PublicKey: pub,
		Secret:    secret,
	}
	if password != "" {
		wrapped, err := wrapSecret(secret, []byte(password), defaultWrapParams())
		if err != nil {
			return fmt.Errorf("wrap key: %w", err)
		}
		kf.Wrapped = true
		kf.Secret = wrapped
	}

	data, err := json.MarshalIndent(&kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal key file: %w", err)
	}
	if err := os.WriteFile(ks.keyPath(pub), data, 0600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}

// readKey loads and parses a key file.
func (ks *Keystore) readKey(pub types.PublicKey) (*keyFile, error) {
	data, err := os.ReadFile(ks.keyPath(pub))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", pub, ErrKeyNotFound)
		}
		return nil, fmt.Errorf("read key file: %w", err)
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse key file: %w", err)
	}
	if kf.Version != 1 {
		return nil, fmt.Errorf("unsupported key file version: %d", kf.Version)
	}
	return &kf, nil
}

// Has reports whether the keystore holds a key for pub.
func (ks *Keystore) Has(pub types.PublicKey) bool {
	_, err := os.Stat(ks.keyPath(pub))
	return err == nil
}

// List returns the public keys of all stored keys.
func (ks *Keystore) List() ([]types.PublicKey, error) {
	entries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	var keys []types.PublicKey
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".key") {
			continue
		}
		pub, err := types.HexToPublicKey(strings.TrimSuffix(e.Name(), ".key"))
		if err != nil {
			continue // Foreign file in the keystore dir, skip.
		}
		keys = append(keys, pub)
	}
	return keys, nil
}

// Remove permanently deletes a key. There is no recovery path.
func (ks *Keystore) Remove(pub types.PublicKey) error {
	path := ks.keyPath(pub)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", pub, ErrKeyNotFound)
	}
	ks.mu.Lock()
	delete(ks.unlocked, pub)
	ks.mu.Unlock()
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove key file: %w", err)
	}
	log.Keystore.Warn().Str("public_key", pub.String()).Msg("key permanently removed")
	return nil
}

// Unlock decrypts a wrapped key with the password and caches it in memory
// for the rest of the process.
func (ks *Keystore) Unlock(pub types.PublicKey, password string) error {
	kf, err := ks.readKey(pub)
	if err != nil {
		return err
	}
	if !kf.Wrapped {
		return nil
	}

	secret, err := unwrapSecret(kf.Secret, []byte(password))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLocked, err)
	}
	priv, err := crypto.PrivateKeyFromBytes(secret)
	zeroBytes(secret)
	if err != nil {
		return err
	}

	ks.mu.Lock()
	ks.unlocked[pub] = priv
	ks.mu.Unlock()
	return nil
}

// Sign produces a Schnorr signature over a 32-byte hash with the key
// identified by pub. Implements crypto.Signer.
func (ks *Keystore) Sign(pub types.PublicKey, hash []byte) ([]byte, error) {
	ks.mu.Lock()
	priv, ok := ks.unlocked[pub]
	ks.mu.Unlock()
	if ok {
		return priv.Sign(hash)
	}

	kf, err := ks.readKey(pub)
	if err != nil {
		return nil, err
	}
	if kf.Wrapped {
		return nil, fmt.Errorf("%s: %w", pub, ErrLocked)
	}

	priv, err = crypto.PrivateKeyFromBytes(kf.Secret)
	if err != nil {
		return nil, fmt.Errorf("load key: %w", err)
	}
	defer priv.Zero()
	return priv.Sign(hash)
}
