// Package ledger implements the wallet's local view of the chain's unspent
// outputs. Every record corresponds to an output that existed on-chain as of
// the last committed sync; consumed outputs are removed, never flagged.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/kittynet/kittynet-wallet/internal/storage"
	"github.com/kittynet/kittynet-wallet/pkg/types"
)

// Store errors.
var (
	// ErrNotFound is returned when an output or named kitty is not tracked.
	ErrNotFound = errors.New("not found in local store")
	// ErrCorrupt indicates unreadable persisted data. Fatal for the current
	// command; the store is never written through a corrupt read.
	ErrCorrupt = errors.New("corrupt ledger data")
)

// Key prefixes within the ledger namespace.
var (
	prefixOutput = []byte("o/") // o/<ref36> -> Output JSON
	prefixName   = []byte("n/") // n/<owner32><name> -> ref36 (live kitty names)
	keyWatermark = []byte("w")  // -> Watermark JSON
)

// Output is an unspent output tracked by the wallet.
type Output struct {
	Ref     types.OutputRef `json:"ref"`
	Owner   types.PublicKey `json:"owner"`
	Payload types.Payload   `json:"payload"`
}

// Watermark records the block position up to which the store is known
// consistent with the chain. Advanced monotonically; rewound only on an
// explicit reorg rollback.
type Watermark struct {
	Height    uint64     `json:"height"`
	BlockHash types.Hash `json:"block_hash"`
}

// Store is the Local Ledger Store: a durable mapping from OutputRef to
// Output plus a (owner, name) index over live kitties and the sync
// watermark. A single-writer lock serializes mutation; reads are served from
// the last committed state.
type Store struct {
	mu sync.RWMutex
	db storage.DB
}

// NewStore creates a ledger store in its own namespace of db.
func NewStore(db storage.DB) *Store {
	return &Store{db: storage.NewPrefixDB(db, []byte("l/"))}
}

// outputKey builds the storage key for an output: "o/" + ref36.
func outputKey(ref types.OutputRef) []byte {
	return append(append([]byte{}, prefixOutput...), ref.Bytes()...)
}

// nameKey builds the kitty name index key: "n/" + owner(32) + name.
func nameKey(owner types.PublicKey, name string) []byte {
	key := make([]byte, 0, len(prefixName)+types.HashSize+len(name))
	key = append(key, prefixName...)
	key = append(key, owner[:]...)
	key = append(key, name...)
	return key
}

// Get retrieves a tracked output by reference.
func (s *Store) Get(ref types.OutputRef) (*Output, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(ref)
}

func (s *Store) getLocked(ref types.OutputRef) (*Output, error) {
	data, err := s.db.Get(outputKey(ref))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("output %s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read output %s: %w", ref, err)
	}
	var o Output
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("%w: output %s: %v", ErrCorrupt, ref, err)
	}
	return &o, nil
}

// Has reports whether the store tracks the given reference.
func (s *Store) Has(ref types.OutputRef) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Has(outputKey(ref))
}

// ForEach iterates over all tracked outputs.
func (s *Store) ForEach(fn func(*Output) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.ForEach(prefixOutput, func(key, value []byte) error {
		var o Output
		if err := json.Unmarshal(value, &o); err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return fn(&o)
	})
}

// OwnedBy returns all tracked outputs owned by any of the given keys.
func (s *Store) OwnedBy(owners ...types.PublicKey) ([]*Output, error) {
	set := make(map[types.PublicKey]bool, len(owners))
	for _, o := range owners {
		set[o] = true
	}
	var outs []*Output
	err := s.ForEach(func(o *Output) error {
		if set[o.Owner] {
			outs = append(outs, o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outs, nil
}

// KittyByName resolves a live kitty (plain or tradable) by owner and name
// through the name index.
func (s *Store) KittyByName(owner types.PublicKey, name string) (*Output, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refBytes, err := s.db.Get(nameKey(owner, name))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("kitty %q of %s: %w", name, owner, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read name index for %q: %w", name, err)
	}
	ref, err := types.OutputRefFromBytes(refBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: name index for %q: %v", ErrCorrupt, name, err)
	}
	return s.getLocked(ref)
}

// NameInUse reports whether owner already has a live kitty with this name.
func (s *Store) NameInUse(owner types.PublicKey, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Has(nameKey(owner, name))
}

// Watermark returns the persisted sync watermark, zero-valued if the store
// has never synced. A failed read is an error, not a fresh store: reporting
// zero there would silently restart sync from genesis.
func (s *Store) Watermark() (Watermark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.db.Get(keyWatermark)
	if errors.Is(err, storage.ErrNotFound) {
		return Watermark{}, nil
	}
	if err != nil {
		return Watermark{}, fmt.Errorf("read watermark: %w", err)
	}
	var w Watermark
	if err := json.Unmarshal(data, &w); err != nil {
		return Watermark{}, fmt.Errorf("%w: watermark: %v", ErrCorrupt, err)
	}
	return w, nil
}

// Batch stages output insertions and removals that commit atomically together
// with a watermark update. Nothing is visible until Commit succeeds.
type Batch struct {
	store     *Store
	inserts   []*Output
	removals  []types.OutputRef
	watermark *Watermark
}

// NewBatch starts an empty batch against the store.
func (s *Store) NewBatch() *Batch {
	return &Batch{store: s}
}

// Insert stages a new output.
func (b *Batch) Insert(o *Output) *Batch {
	b.inserts = append(b.inserts, o)
	return b
}

// Remove stages removal of a consumed output.
func (b *Batch) Remove(ref types.OutputRef) *Batch {
	b.removals = append(b.removals, ref)
	return b
}

// SetWatermark stages the watermark the store will report after Commit.
func (b *Batch) SetWatermark(w Watermark) *Batch {
	b.watermark = &w
	return b
}

// Empty reports whether the batch stages no changes at all.
func (b *Batch) Empty() bool {
	return len(b.inserts) == 0 && len(b.removals) == 0 && b.watermark == nil
}

// Commit applies the batch under the single-writer lock. Removals are staged
// before insertions so a ref consumed and recreated within one batch (not
// expected on-chain, but harmless) nets out to the inserted state.
func (b *Batch) Commit() error {
	s := b.store
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.db.(storage.Batcher).NewBatch()

	for _, ref := range b.removals {
		// Read first to clean up the name index for kitty payloads.
		o, err := s.getLocked(ref)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Unknown ref: removal of an untracked output is a no-op,
				// keeping batch application idempotent.
				continue
			}
			return err
		}
		if name, ok := o.Payload.KittyName(); ok {
			if err := batch.Delete(nameKey(o.Owner, name)); err != nil {
				return fmt.Errorf("stage name index delete: %w", err)
			}
		}
		if err := batch.Delete(outputKey(ref)); err != nil {
			return fmt.Errorf("stage output delete: %w", err)
		}
	}

	for _, o := range b.inserts {
		if err := o.Payload.Validate(); err != nil {
			return fmt.Errorf("insert %s: %w", o.Ref, err)
		}
		data, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		if err := batch.Put(outputKey(o.Ref), data); err != nil {
			return fmt.Errorf("stage output put: %w", err)
		}
		if name, ok := o.Payload.KittyName(); ok {
			if err := batch.Put(nameKey(o.Owner, name), o.Ref.Bytes()); err != nil {
				return fmt.Errorf("stage name index put: %w", err)
			}
		}
	}

	if b.watermark != nil {
		data, err := json.Marshal(b.watermark)
		if err != nil {
			return fmt.Errorf("marshal watermark: %w", err)
		}
		if err := batch.Put(keyWatermark, data); err != nil {
			return fmt.Errorf("stage watermark put: %w", err)
		}
	}

	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit ledger batch: %w", err)
	}
	return nil
}

// Clear removes every output, index entry and the watermark. Used by the
// explicit resync path after a detected divergence below the fork point.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys [][]byte
	for _, prefix := range [][]byte{prefixOutput, prefixName} {
		if err := s.db.ForEach(prefix, func(key, _ []byte) error {
			k := make([]byte, len(key))
			copy(k, key)
			keys = append(keys, k)
			return nil
		}); err != nil {
			return fmt.Errorf("scan prefix %s: %w", prefix, err)
		}
	}

	batch := s.db.(storage.Batcher).NewBatch()
	for _, key := range keys {
		if err := batch.Delete(key); err != nil {
			return err
		}
	}
	if err := batch.Delete(keyWatermark); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	return nil
}
