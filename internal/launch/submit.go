package launch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"solana-token-launchpad/internal/observability"
	"solana-token-launchpad/internal/solanarpc"
	"solana-token-launchpad/internal/token"
)

// SubmitResult is the outcome of a relayed transaction.
type SubmitResult struct {
	Signature          string
	ConfirmationStatus solanarpc.Commitment
	Slot               uint64
}

// Submit relays a fully signed transaction and waits for confirmation.
//
// Confirmation comes from a signatureSubscribe notification when a WebSocket
// client is configured, with status polling alongside it since a notification
// can be lost across a reconnect. Once the chain passes lastValidBlockHeight
// the result is ErrBlockhashExpired and the client must rebuild the request.
func (s *Service) Submit(ctx context.Context, signed string, lastValidBlockHeight uint64) (*SubmitResult, error) {
	tx, err := token.DecodeTransaction(signed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if missing := token.MissingSignatures(tx); len(missing) > 0 {
		keys := make([]string, len(missing))
		for i, k := range missing {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: missing signatures from %s", ErrInvalidInput, strings.Join(keys, ", "))
	}
	if err := tx.VerifySignatures(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if lastValidBlockHeight > 0 {
		expired, err := s.expired(ctx, lastValidBlockHeight)
		if err != nil {
			return nil, err
		}
		if expired {
			observability.RecordSettlement("expired")
			return nil, ErrBlockhashExpired
		}
	}

	sig, err := s.rpc.SendTransaction(ctx, signed)
	if err != nil {
		observability.RecordSettlement("rejected")
		return nil, fmt.Errorf("send transaction: %w", err)
	}
	log := s.log.With().Str("signature", sig).Logger()
	log.Info().Uint64("last_valid_block_height", lastValidBlockHeight).Msg("transaction sent")

	res, err := s.awaitConfirmation(ctx, sig, lastValidBlockHeight)
	switch {
	case errors.Is(err, ErrBlockhashExpired):
		observability.RecordSettlement("expired")
		log.Warn().Msg("blockhash expired before confirmation")
	case errors.Is(err, ErrTransactionFailed):
		observability.RecordSettlement("failed")
		log.Warn().Err(err).Msg("transaction failed")
	case err != nil:
		observability.RecordSettlement("timeout")
		log.Warn().Err(err).Msg("confirmation not observed")
	default:
		observability.RecordSettlement("confirmed")
		log.Info().Uint64("slot", res.Slot).Msg("transaction confirmed")
	}
	return res, err
}

// awaitConfirmation races the WebSocket notification against polling.
func (s *Service) awaitConfirmation(ctx context.Context, sig string, lastValid uint64) (*SubmitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ConfirmTimeout)
	defer cancel()

	var notify <-chan solanarpc.SignatureNotification
	if s.ws != nil {
		ch, err := s.ws.SignatureSubscribe(ctx, sig, solanarpc.CommitmentConfirmed)
		if err != nil {
			s.log.Debug().Err(err).Str("signature", sig).Msg("signature subscribe failed, polling only")
		} else {
			notify = ch
		}
	}

	type outcome struct {
		status *solanarpc.SignatureStatus
		err    error
	}
	polled := make(chan outcome, 1)
	go func() {
		st, err := s.pollStatus(ctx, sig, lastValid)
		polled <- outcome{st, err}
	}()

	for {
		select {
		case n, ok := <-notify:
			if !ok {
				notify = nil
				continue
			}
			if n.Err != nil {
				return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, n.Err)
			}
			return &SubmitResult{Signature: sig, ConfirmationStatus: solanarpc.CommitmentConfirmed, Slot: n.Slot}, nil

		case o := <-polled:
			if o.err != nil {
				return nil, o.err
			}
			if o.status == nil || !(o.status.Failed() || o.status.Reached(solanarpc.CommitmentConfirmed)) {
				if err := ctx.Err(); err != nil {
					return nil, fmt.Errorf("await confirmation: %w", err)
				}
				return nil, fmt.Errorf("await confirmation: %w", context.DeadlineExceeded)
			}
			if o.status.Failed() {
				return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, o.status.Err)
			}
			return &SubmitResult{
				Signature:          sig,
				ConfirmationStatus: o.status.ConfirmationStatus,
				Slot:               o.status.Slot,
			}, nil
		}
	}
}
