package types

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// OutputRefSize is the length of the binary form: tx hash (32) + index (4).
const OutputRefSize = HashSize + 4

// OutputRef references a specific output of a transaction. It is the stable,
// globally unique identifier of a UTXO and is never reused.
type OutputRef struct {
	TxHash Hash   `json:"tx_hash"`
	Index  uint32 `json:"index"`
}

// IsZero returns true if the ref has a zero TxHash and zero index.
func (r OutputRef) IsZero() bool {
	return r.TxHash.IsZero() && r.Index == 0
}

// String returns "txhash:index" in hex.
func (r OutputRef) String() string {
	return fmt.Sprintf("%s:%d", r.TxHash.String(), r.Index)
}

// Bytes returns the canonical binary form: hash(32) || index(4, big-endian).
// Big-endian index keeps byte order aligned with numeric order, so sorting
// refs as byte strings is a total, stable order.
func (r OutputRef) Bytes() []byte {
	b := make([]byte, OutputRefSize)
	copy(b, r.TxHash[:])
	binary.BigEndian.PutUint32(b[HashSize:], r.Index)
	return b
}

// Less reports whether r orders before other in canonical byte order.
func (r OutputRef) Less(other OutputRef) bool {
	return bytes.Compare(r.Bytes(), other.Bytes()) < 0
}

// OutputRefFromBytes parses the canonical binary form produced by Bytes.
func OutputRefFromBytes(b []byte) (OutputRef, error) {
	if len(b) != OutputRefSize {
		return OutputRef{}, fmt.Errorf("output ref must be %d bytes, got %d", OutputRefSize, len(b))
	}
	var r OutputRef
	copy(r.TxHash[:], b[:HashSize])
	r.Index = binary.BigEndian.Uint32(b[HashSize:])
	return r, nil
}

// ParseOutputRef parses the "txhash:index" string form produced by String.
func ParseOutputRef(s string) (OutputRef, error) {
	hashPart, idxPart, ok := strings.Cut(s, ":")
	if !ok {
		return OutputRef{}, fmt.Errorf("output ref must be <txhash>:<index>, got %q", s)
	}
	h, err := HexToHash(hashPart)
	if err != nil {
		return OutputRef{}, fmt.Errorf("output ref tx hash: %w", err)
	}
	idx, err := strconv.ParseUint(idxPart, 10, 32)
	if err != nil {
		return OutputRef{}, fmt.Errorf("output ref index: %w", err)
	}
	return OutputRef{TxHash: h, Index: uint32(idx)}, nil
}
