// Package chainclient provides a JSON-RPC 2.0 client for kittynet nodes and
// the Chain interface the wallet core consumes.
package chainclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kittynet/kittynet-wallet/pkg/tx"
	"github.com/kittynet/kittynet-wallet/pkg/types"
)

// Block is the chain's view of a block, reduced to what the wallet needs.
type Block struct {
	Height       uint64           `json:"height"`
	Hash         types.Hash       `json:"hash"`
	Parent       types.Hash       `json:"parent"`
	Timestamp    uint64           `json:"timestamp"` // unix milliseconds
	Transactions []tx.Transaction `json:"transactions"`
}

// Tip identifies the chain head.
type Tip struct {
	Height uint64     `json:"height"`
	Hash   types.Hash `json:"hash"`
}

// Chain is the wallet's window onto the authoritative ledger. The node is
// the only production implementation; sync/verifier tests use a fake.
type Chain interface {
	// GetTip returns the current chain head.
	GetTip(ctx context.Context) (Tip, error)
	// GetBlock returns the block at the given height, or nil if the chain
	// has no block there.
	GetBlock(ctx context.Context, height uint64) (*Block, error)
	// GetOutput returns the output at ref if it is currently unspent
	// on-chain, or nil if absent/spent.
	GetOutput(ctx context.Context, ref types.OutputRef) (*tx.Output, error)
	// Submit proposes a signed transaction. Rejections surface as
	// *SubmissionError.
	Submit(ctx context.Context, t *tx.Transaction) error
	// LatestTimestamp returns the most recent on-chain timestamp.
	LatestTimestamp(ctx context.Context) (time.Time, error)
}

// SubmissionError is a remote rejection of a proposed transaction, surfaced
// verbatim and never retried by the core.
type SubmissionError struct {
	Code    int
	Message string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("transaction rejected by node (code %d): %s", e.Code, e.Message)
}

// Client is a JSON-RPC 2.0 HTTP client implementing Chain.
type Client struct {
	endpoint string
	http     *http.Client
}

// New creates a new RPC client targeting the given endpoint URL.
func New(endpoint string) *Client {
	return NewWithTimeout(endpoint, 10*time.Second)
}

// NewWithTimeout creates a new RPC client with a custom HTTP timeout.
func NewWithTimeout(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// request is a JSON-RPC 2.0 request.
type request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      int         `json:"id"`
}

// response is a JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      int             `json:"id"`
}

// rpcError is a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RPCError is returned when the server responds with an error.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call invokes a JSON-RPC method and unmarshals the result into the provided
// pointer. If result is nil, the response result is discarded.
func (c *Client) Call(ctx context.Context, method string, params, result interface{}) error {
	req := request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var rpcResp response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return &RPCError{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
		}
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}

	return nil
}

// GetTip returns the current chain head.
func (c *Client) GetTip(ctx context.Context) (Tip, error) {
	var tip Tip
	if err := c.Call(ctx, "chain_getTip", nil, &tip); err != nil {
		return Tip{}, err
	}
	return tip, nil
}

// GetBlock returns the block at the given height, nil if absent.
func (c *Client) GetBlock(ctx context.Context, height uint64) (*Block, error) {
	var blk *Block
	if err := c.Call(ctx, "chain_getBlock", []uint64{height}, &blk); err != nil {
		return nil, err
	}
	return blk, nil
}

// GetOutput returns the unspent output at ref, nil if absent or spent.
func (c *Client) GetOutput(ctx context.Context, ref types.OutputRef) (*tx.Output, error) {
	var out *tx.Output
	if err := c.Call(ctx, "chain_getOutput", []string{ref.String()}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Submit proposes a signed transaction to the node.
func (c *Client) Submit(ctx context.Context, t *tx.Transaction) error {
	err := c.Call(ctx, "chain_submitTransaction", []*tx.Transaction{t}, nil)
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return &SubmissionError{Code: rpcErr.Code, Message: rpcErr.Message}
	}
	return err
}

// LatestTimestamp returns the most recent on-chain timestamp.
func (c *Client) LatestTimestamp(ctx context.Context) (time.Time, error) {
	var ms uint64
	if err := c.Call(ctx, "chain_latestTimestamp", nil, &ms); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}
