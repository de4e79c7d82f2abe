// Package solanarpc is a Solana JSON-RPC over HTTP and PubSub over WebSocket
// client covering the calls the launchpad needs.
package solanarpc

import (
	"context"
	"encoding/base64"
	"fmt"
)

// RPCClient defines Solana RPC HTTP interface.
type RPCClient interface {
	// GetAccountInfo returns nil, nil when the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetLatestBlockhash returns a recent blockhash and the last block height
	// at which transactions using it are still valid.
	GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error)

	// GetMinimumBalanceForRentExemption returns the lamports needed for dataLen bytes.
	GetMinimumBalanceForRentExemption(ctx context.Context, dataLen uint64) (uint64, error)

	// GetBalance returns the account balance in lamports.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// RequestAirdrop asks the cluster faucet for lamports and returns the signature.
	RequestAirdrop(ctx context.Context, pubkey string, lamports uint64) (string, error)

	// GetSignatureStatuses returns one entry per signature, nil when unknown.
	GetSignatureStatuses(ctx context.Context, signatures ...string) ([]*SignatureStatus, error)

	// SendTransaction submits a base64 wire transaction and returns its signature.
	SendTransaction(ctx context.Context, encoded string) (string, error)

	// GetBlockHeight returns the current block height.
	GetBlockHeight(ctx context.Context) (uint64, error)
}

// Commitment is the level of finality a query observes.
type Commitment string

// Commitment levels, weakest first.
const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

func (c Commitment) rank() int {
	switch c {
	case CommitmentProcessed:
		return 1
	case CommitmentConfirmed:
		return 2
	case CommitmentFinalized:
		return 3
	default:
		return 0
	}
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// Bytes decodes the account data.
func (a *AccountInfo) Bytes() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(a.Data)
	if err != nil {
		return nil, fmt.Errorf("decode account data: %w", err)
	}
	return b, nil
}

// LatestBlockhash from getLatestBlockhash.
type LatestBlockhash struct {
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// SignatureStatus from getSignatureStatuses.
type SignatureStatus struct {
	Slot               uint64      `json:"slot"`
	Confirmations      *uint64     `json:"confirmations"`
	Err                interface{} `json:"err"`
	ConfirmationStatus Commitment  `json:"confirmationStatus"`
}

// Reached reports whether the status is at least commitment c.
func (s *SignatureStatus) Reached(c Commitment) bool {
	if s == nil {
		return false
	}
	return s.ConfirmationStatus.rank() >= c.rank()
}

// Failed reports whether the transaction executed with an error.
func (s *SignatureStatus) Failed() bool {
	return s != nil && s.Err != nil
}
