// Package chainsync reconciles the Local Ledger Store against the
// authoritative chain, advancing the sync watermark block by block.
package chainsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/kittynet/kittynet-wallet/internal/chainclient"
	"github.com/kittynet/kittynet-wallet/internal/ledger"
	"github.com/kittynet/kittynet-wallet/internal/log"
	"github.com/kittynet/kittynet-wallet/pkg/types"
)

// ErrSyncFailed wraps network or node failures mid-sync. The store keeps the
// last fully committed block state; no partial batch is ever visible.
var ErrSyncFailed = errors.New("sync failed")

// KeyLister exposes the set of keys whose outputs the wallet tracks.
// The keystore is the production implementation.
type KeyLister interface {
	List() ([]types.PublicKey, error)
}

// Result summarizes a sync run.
type Result struct {
	FromHeight uint64
	ToHeight   uint64
	Inserted   int
	Removed    int
	Resynced   bool // true when a divergence forced a full resync
}

// Engine pulls chain deltas and folds them into the ledger store. Each block
// is applied as one atomic batch that also advances the watermark, so a crash
// or cancellation between blocks leaves a consistent store.
type Engine struct {
	chain chainclient.Chain
	store *ledger.Store
	keys  KeyLister
}

// New creates a sync engine over the given chain, store and tracked key set.
func New(chain chainclient.Chain, store *ledger.Store, keys KeyLister) *Engine {
	return &Engine{chain: chain, store: store, keys: keys}
}

// Sync brings the store up to the chain tip from the persisted watermark.
// Re-running against an unchanged chain is a no-op. If the block hash at the
// watermark no longer matches the chain (reorg below the watermark), the
// store is cleared and rebuilt from genesis.
func (e *Engine) Sync(ctx context.Context) (*Result, error) {
	keys, err := e.keys.List()
	if err != nil {
		return nil, fmt.Errorf("%w: list tracked keys: %v", ErrSyncFailed, err)
	}
	tracked := make(map[types.PublicKey]bool, len(keys))
	for _, k := range keys {
		tracked[k] = true
	}

	wm, err := e.store.Watermark()
	if err != nil {
		return nil, err
	}

	tip, err := e.chain.GetTip(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: get tip: %v", ErrSyncFailed, err)
	}

	res := &Result{FromHeight: wm.Height, ToHeight: wm.Height}

	// Divergence check: the block we last synced must still be canonical.
	if !wm.BlockHash.IsZero() {
		blk, err := e.chain.GetBlock(ctx, wm.Height)
		if err != nil {
			return nil, fmt.Errorf("%w: check watermark block %d: %v", ErrSyncFailed, wm.Height, err)
		}
		if blk == nil || blk.Hash != wm.BlockHash {
			log.Sync.Warn().
				Uint64("height", wm.Height).
				Str("local_hash", wm.BlockHash.String()).
				Msg("chain diverged below watermark, resyncing from genesis")
			if err := e.store.Clear(); err != nil {
				return nil, err
			}
			wm = ledger.Watermark{}
			res.FromHeight = 0
			res.Resynced = true
		}
	}

	for h := wm.Height + 1; h <= tip.Height; h++ {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("%w: %v", ErrSyncFailed, err)
		}

		blk, err := e.chain.GetBlock(ctx, h)
		if err != nil {
			return res, fmt.Errorf("%w: fetch block %d: %v", ErrSyncFailed, h, err)
		}
		if blk == nil {
			// Tip retreated under us; stop at what we have.
			break
		}

		inserted, removed, err := e.applyBlock(blk, tracked)
		if err != nil {
			return res, err
		}
		res.Inserted += inserted
		res.Removed += removed
		res.ToHeight = h
	}

	if res.ToHeight > res.FromHeight || res.Resynced {
		log.Sync.Info().
			Uint64("from", res.FromHeight).
			Uint64("to", res.ToHeight).
			Int("inserted", res.Inserted).
			Int("removed", res.Removed).
			Msg("synced")
	}
	return res, nil
}

// applyBlock stages one block's consumed refs and tracked outputs plus the
// new watermark, and commits them as a single batch. An output created and
// consumed within the same block was never unspent at the block boundary, so
// neither side of it enters the batch.
func (e *Engine) applyBlock(blk *chainclient.Block, tracked map[types.PublicKey]bool) (inserted, removed int, err error) {
	consumed := make(map[types.OutputRef]bool)
	for i := range blk.Transactions {
		for _, in := range blk.Transactions[i].Inputs {
			consumed[in.Ref] = true
		}
	}

	batch := e.store.NewBatch()

	for i := range blk.Transactions {
		t := &blk.Transactions[i]
		txHash := t.Hash()
		for j, out := range t.Outputs {
			if !tracked[out.Owner] {
				continue
			}
			ref := types.OutputRef{TxHash: txHash, Index: uint32(j)}
			if consumed[ref] {
				// Spent later in this same block; nets to nothing.
				consumed[ref] = false
				continue
			}
			batch.Insert(&ledger.Output{
				Ref:     ref,
				Owner:   out.Owner,
				Payload: out.Payload,
			})
			inserted++
		}
	}

	for i := range blk.Transactions {
		for _, in := range blk.Transactions[i].Inputs {
			if !consumed[in.Ref] {
				continue // netted out above, or already staged
			}
			consumed[in.Ref] = false
			live, err := e.store.Has(in.Ref)
			if err != nil {
				return 0, 0, err
			}
			batch.Remove(in.Ref)
			if live {
				removed++
			}
		}
	}

	batch.SetWatermark(ledger.Watermark{Height: blk.Height, BlockHash: blk.Hash})
	if err := batch.Commit(); err != nil {
		return 0, 0, fmt.Errorf("apply block %d: %w", blk.Height, err)
	}
	return inserted, removed, nil
}
