package tx

import (
	"fmt"

	"github.com/kittynet/kittynet-wallet/pkg/crypto"
	"github.com/kittynet/kittynet-wallet/pkg/types"
)

// Builder constructs transactions incrementally. It records which key owns
// each input so that signing can route every input to its owner's key.
type Builder struct {
	tx     *Transaction
	owners []types.PublicKey // owner of tx.Inputs[i]
}

// NewBuilder creates a new transaction builder.
func NewBuilder() *Builder {
	return &Builder{tx: &Transaction{}}
}

// AddInput adds an input consuming ref, to be signed by owner's key.
func (b *Builder) AddInput(ref types.OutputRef, owner types.PublicKey) *Builder {
	b.tx.Inputs = append(b.tx.Inputs, Input{Ref: ref, PubKey: owner})
	b.owners = append(b.owners, owner)
	return b
}

// AddOutput adds an output assigning payload to owner.
func (b *Builder) AddOutput(owner types.PublicKey, payload types.Payload) *Builder {
	b.tx.Outputs = append(b.tx.Outputs, Output{Owner: owner, Payload: payload})
	return b
}

// Sign signs every input through the signer with the key of its recorded
// owner. Mint transactions (no inputs) pass through unsigned.
func (b *Builder) Sign(signer crypto.Signer) error {
	for _, out := range b.tx.Outputs {
		if err := out.Payload.Validate(); err != nil {
			return fmt.Errorf("output payload: %w", err)
		}
	}

	hash := b.tx.Hash()

	// Same key produces the same signature for the same hash only with
	// deterministic nonces; cache anyway so each key signs once.
	cache := make(map[types.PublicKey][]byte)
	for i := range b.tx.Inputs {
		owner := b.owners[i]
		sig, ok := cache[owner]
		if !ok {
			var err error
			sig, err = signer.Sign(owner, hash[:])
			if err != nil {
				return fmt.Errorf("sign input %d: %w", i, err)
			}
			cache[owner] = sig
		}
		b.tx.Inputs[i].Signature = sig
	}
	return nil
}

// Build returns the constructed transaction.
// The builder proposes; it does not validate economic balance.
func (b *Builder) Build() *Transaction {
	return b.tx
}
