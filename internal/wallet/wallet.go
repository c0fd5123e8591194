// Package wallet implements the core wallet operations: input selection,
// transaction construction for every command family, and output verification.
// Operations build and submit transactions; the resulting ledger deltas are
// folded back into the local store by the sync engine once observed on-chain,
// never by the operations themselves.
package wallet

import (
	"crypto/rand"
	"io"
	"sort"
	"strings"

	"github.com/kittynet/kittynet-wallet/internal/chainclient"
	"github.com/kittynet/kittynet-wallet/internal/ledger"
	"github.com/kittynet/kittynet-wallet/pkg/types"
)

// Keychain is the keystore surface the wallet core consumes: listing tracked
// keys, membership checks and signing.
type Keychain interface {
	List() ([]types.PublicKey, error)
	Has(pub types.PublicKey) bool
	Sign(pub types.PublicKey, hash []byte) ([]byte, error)
}

// Wallet wires the local ledger store, keychain and chain client together.
// All state lives in the injected collaborators; Wallet itself is stateless
// beyond the entropy source.
type Wallet struct {
	store   *ledger.Store
	keys    Keychain
	chain   chainclient.Chain
	entropy io.Reader
}

// New creates a wallet over the given collaborators using crypto/rand as the
// genetics entropy source.
func New(store *ledger.Store, keys Keychain, chain chainclient.Chain) *Wallet {
	return &Wallet{store: store, keys: keys, chain: chain, entropy: rand.Reader}
}

// WithEntropy replaces the genetics entropy source. Tests fix it to get
// reproducible DNA and gender assignment.
func (w *Wallet) WithEntropy(r io.Reader) *Wallet {
	w.entropy = r
	return w
}

// Store exposes the ledger store handle, e.g. for the sync engine.
func (w *Wallet) Store() *ledger.Store {
	return w.store
}

// Balances returns, for each key in the keychain, the sum of all tracked
// coin output values owned by that key.
func (w *Wallet) Balances() (map[types.PublicKey]uint64, error) {
	keys, err := w.keys.List()
	if err != nil {
		return nil, err
	}
	balances := make(map[types.PublicKey]uint64, len(keys))
	for _, k := range keys {
		balances[k] = 0
	}

	err = w.store.ForEach(func(o *ledger.Output) error {
		if _, tracked := balances[o.Owner]; !tracked {
			return nil
		}
		if v, ok := o.Payload.CoinValue(); ok {
			balances[o.Owner] += v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return balances, nil
}

// AllOutputs returns every tracked output in canonical ref order.
func (w *Wallet) AllOutputs() ([]*ledger.Output, error) {
	var outs []*ledger.Output
	err := w.store.ForEach(func(o *ledger.Output) error {
		outs = append(outs, o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(outs, func(i, j int) bool {
		return outs[i].Ref.Less(outs[j].Ref)
	})
	return outs, nil
}

// AllKitties returns every tracked kitty output (plain and tradable) in
// canonical ref order.
func (w *Wallet) AllKitties() ([]*ledger.Output, error) {
	outs, err := w.AllOutputs()
	if err != nil {
		return nil, err
	}
	kitties := outs[:0]
	for _, o := range outs {
		if _, ok := o.Payload.KittyName(); ok {
			kitties = append(kitties, o)
		}
	}
	return kitties, nil
}

// OwnedKitties returns the kitty outputs owned by the given key.
func (w *Wallet) OwnedKitties(owner types.PublicKey) ([]*ledger.Output, error) {
	kitties, err := w.AllKitties()
	if err != nil {
		return nil, err
	}
	owned := kitties[:0]
	for _, o := range kitties {
		if o.Owner == owner {
			owned = append(owned, o)
		}
	}
	return owned, nil
}

// ChildName derives a default offspring name from the parents' names when
// the caller does not supply one: first two characters of each, which is
// subject to the usual collision rule like any other name.
func ChildName(momName, dadName string) string {
	take := func(s string) string {
		if len(s) > 2 {
			return s[:2]
		}
		return s
	}
	return strings.ToLower(take(momName) + take(dadName))
}
