// Package stub provides in-memory Solana RPC and WebSocket clients for tests.
package stub

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/mr-tron/base58"

	"solana-token-launchpad/internal/solanarpc"
)

// ErrNotFound is returned when a signature is unknown to the stub.
var ErrNotFound = errors.New("not found")

// DefaultBlockhash is returned by GetLatestBlockhash unless overridden.
const DefaultBlockhash = "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N"

// RPCClient implements solanarpc.RPCClient for testing.
type RPCClient struct {
	mu sync.Mutex

	Accounts     map[string]*solanarpc.AccountInfo
	Balances     map[string]uint64
	Statuses     map[string]*solanarpc.SignatureStatus
	Blockhash    solanarpc.LatestBlockhash
	BlockHeight  uint64
	RentPerByte  uint64
	Sent         []string
	Airdrops     map[string]uint64
	AirdropFails bool

	// AirdropStatus, when set, is recorded for airdrops instead of a confirmed status.
	AirdropStatus *solanarpc.SignatureStatus

	// Err, when set, is returned by every call.
	Err error

	// SendStatus is recorded for each sent transaction; nil leaves it unknown.
	SendStatus *solanarpc.SignatureStatus

	calls map[string]int
	seq   uint64
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts: make(map[string]*solanarpc.AccountInfo),
		Balances: make(map[string]uint64),
		Statuses: make(map[string]*solanarpc.SignatureStatus),
		Airdrops: make(map[string]uint64),
		Blockhash: solanarpc.LatestBlockhash{
			Blockhash:            DefaultBlockhash,
			LastValidBlockHeight: 1150,
		},
		BlockHeight: 1000,
		RentPerByte: 6960,
		calls:       make(map[string]int),
	}
}

func (c *RPCClient) record(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++
	return c.Err
}

// Calls returns how many times method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// TotalCalls returns the number of calls across all methods.
func (c *RPCClient) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

// GetAccountInfo returns the stored account or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solanarpc.AccountInfo, error) {
	if err := c.record("getAccountInfo"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.Accounts[pubkey]
	if !ok {
		return nil, nil
	}
	cp := *info
	return &cp, nil
}

// GetLatestBlockhash returns Blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solanarpc.LatestBlockhash, error) {
	if err := c.record("getLatestBlockhash"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	bh := c.Blockhash
	return &bh, nil
}

// GetMinimumBalanceForRentExemption charges RentPerByte for the account
// plus its 128-byte header.
func (c *RPCClient) GetMinimumBalanceForRentExemption(_ context.Context, dataLen uint64) (uint64, error) {
	if err := c.record("getMinimumBalanceForRentExemption"); err != nil {
		return 0, err
	}
	return (dataLen + 128) * c.RentPerByte, nil
}

// GetBalance returns the stored balance.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	if err := c.record("getBalance"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Balances[pubkey], nil
}

// RequestAirdrop credits the balance and records a confirmed status,
// unless AirdropFails is set, in which case the status stays unknown.
func (c *RPCClient) RequestAirdrop(_ context.Context, pubkey string, lamports uint64) (string, error) {
	if err := c.record("requestAirdrop"); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	sig := c.nextSignatureLocked()
	c.Airdrops[pubkey] += lamports
	if !c.AirdropFails {
		c.Balances[pubkey] += lamports
		st := solanarpc.SignatureStatus{Slot: c.BlockHeight, ConfirmationStatus: solanarpc.CommitmentConfirmed}
		if c.AirdropStatus != nil {
			st = *c.AirdropStatus
		}
		c.Statuses[sig] = &st
	}
	return sig, nil
}

// GetSignatureStatuses returns stored statuses, nil for unknown signatures.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures ...string) ([]*solanarpc.SignatureStatus, error) {
	if err := c.record("getSignatureStatuses"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*solanarpc.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		out[i] = c.Statuses[sig]
	}
	return out, nil
}

// SendTransaction records the transaction and returns a fresh signature.
func (c *RPCClient) SendTransaction(_ context.Context, encoded string) (string, error) {
	if err := c.record("sendTransaction"); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sent = append(c.Sent, encoded)
	sig := c.nextSignatureLocked()
	if c.SendStatus != nil {
		st := *c.SendStatus
		c.Statuses[sig] = &st
	}
	return sig, nil
}

// GetBlockHeight returns BlockHeight.
func (c *RPCClient) GetBlockHeight(_ context.Context) (uint64, error) {
	if err := c.record("getBlockHeight"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.BlockHeight, nil
}

// SetAccount stores an account.
func (c *RPCClient) SetAccount(pubkey string, info *solanarpc.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[pubkey] = info
}

// SetBlockHeight moves the chain forward.
func (c *RPCClient) SetBlockHeight(h uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.BlockHeight = h
}

// nextSignatureLocked derives a deterministic, well-formed signature.
func (c *RPCClient) nextSignatureLocked() string {
	c.seq++
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], c.seq)
	a := sha256.Sum256(seed[:])
	b := sha256.Sum256(a[:])
	return base58.Encode(append(a[:], b[:]...))
}

var _ solanarpc.RPCClient = (*RPCClient)(nil)
