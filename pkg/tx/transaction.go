// Package tx defines the wallet's transaction types and canonical encoding.
package tx

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/kittynet/kittynet-wallet/pkg/crypto"
	"github.com/kittynet/kittynet-wallet/pkg/types"
)

// Transaction is a candidate ledger transaction: consumed refs plus the new
// outputs they fund. Mint transactions have no inputs.
type Transaction struct {
	Inputs  []Input  `json:"inputs"`
	Outputs []Output `json:"outputs"`
}

// Input references a UTXO being consumed, with the owner's signature over the
// transaction signing bytes.
type Input struct {
	Ref       types.OutputRef `json:"ref"`
	Signature []byte          `json:"signature"`
	PubKey    types.PublicKey `json:"pubkey"`
}

// inputJSON is the JSON representation of Input with a hex-encoded signature.
type inputJSON struct {
	Ref       types.OutputRef `json:"ref"`
	Signature *string         `json:"signature"`
	PubKey    types.PublicKey `json:"pubkey"`
}

// MarshalJSON encodes the input with a hex-encoded signature.
func (in Input) MarshalJSON() ([]byte, error) {
	j := inputJSON{Ref: in.Ref, PubKey: in.PubKey}
	if in.Signature != nil {
		s := hex.EncodeToString(in.Signature)
		j.Signature = &s
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes an input with a hex-encoded signature.
func (in *Input) UnmarshalJSON(data []byte) error {
	var j inputJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	in.Ref = j.Ref
	in.PubKey = j.PubKey
	if j.Signature != nil {
		b, err := hex.DecodeString(*j.Signature)
		if err != nil {
			return err
		}
		in.Signature = b
	}
	return nil
}

// Output defines a new UTXO: a payload assigned to an owner key.
type Output struct {
	Owner   types.PublicKey `json:"owner"`
	Payload types.Payload   `json:"payload"`
}

// Hash computes the transaction ID (BLAKE3 hash of the signing bytes).
// Signatures are excluded to avoid a circular dependency with signing.
func (t *Transaction) Hash() types.Hash {
	return crypto.Hash(t.SigningBytes())
}

// SigningBytes returns the canonical byte representation used for signing.
// Format: input_count(4) | [ref(36)]... | output_count(4) |
// [owner(32) + payload_len(4) + payload_json]...
// All integers little-endian; payloads use their canonical JSON form.
func (t *Transaction) SigningBytes() []byte {
	var buf []byte

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Inputs)))
	for _, in := range t.Inputs {
		buf = append(buf, in.Ref.Bytes()...)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Outputs)))
	for _, out := range t.Outputs {
		buf = append(buf, out.Owner[:]...)
		payload, err := out.Payload.CanonicalBytes()
		if err != nil {
			// Malformed payloads are caught by Builder before signing; an
			// empty marker here keeps SigningBytes total.
			payload = nil
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(payload)))
		buf = append(buf, payload...)
	}

	return buf
}

// OutputRef returns the ledger reference of output index i, which only
// becomes meaningful once the transaction hash is fixed.
func (t *Transaction) OutputRef(i int) (types.OutputRef, error) {
	if i < 0 || i >= len(t.Outputs) {
		return types.OutputRef{}, fmt.Errorf("output index %d out of range [0,%d)", i, len(t.Outputs))
	}
	return types.OutputRef{TxHash: t.Hash(), Index: uint32(i)}, nil
}

// TotalOutputValue returns the sum of all coin output values.
// Non-coin outputs contribute nothing.
func (t *Transaction) TotalOutputValue() uint64 {
	var total uint64
	for _, out := range t.Outputs {
		if v, ok := out.Payload.CoinValue(); ok {
			total += v
		}
	}
	return total
}
