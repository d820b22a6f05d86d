// =============================
// File: internal/bundle/retry.go
// =============================
package bundle

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-launcher/internal/jito"
	"go.uber.org/zap"
)

// RecencySource supplies the shared blockhash for one submission attempt.
type RecencySource interface {
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
}

// Relay is the bundle-ingestion collaborator. It must not retry
// internally; the coordinator owns retry policy.
type Relay interface {
	SendBundle(ctx context.Context, transactions []*solana.Transaction) (string, error)
	AwaitOutcome(ctx context.Context, bundleID string, deadline time.Time) (jito.Status, error)
}

// Coordinator drives a plan through bounded submission attempts:
// Pending -> Landed | Rejected(permanent) | Expired -> Pending' with a
// fresh blockhash. Instructions are never rebuilt between attempts, only
// re-signed against the new blockhash.
type Coordinator struct {
	ledger       RecencySource
	relay        Relay
	assembler    *Assembler
	maxAttempts  int
	blockhashTTL time.Duration
	logger       *zap.Logger
}

func NewCoordinator(
	ledger RecencySource,
	relay Relay,
	assembler *Assembler,
	maxAttempts int,
	blockhashTTL time.Duration,
	logger *zap.Logger,
) *Coordinator {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if blockhashTTL <= 0 {
		blockhashTTL = 60 * time.Second
	}
	return &Coordinator{
		ledger:       ledger,
		relay:        relay,
		assembler:    assembler,
		maxAttempts:  maxAttempts,
		blockhashTTL: blockhashTTL,
		logger:       logger.Named("coordinator"),
	}
}

// Execute submits the plan until it lands, is permanently rejected, or the
// attempt bound is hit. Expiry cycling is invisible to the caller on
// eventual success.
func (c *Coordinator) Execute(ctx context.Context, plan *Plan) (Outcome, error) {
	var lastReason string

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		blockhash, err := c.fetchBlockhash(ctx)
		if err != nil {
			return Outcome{Status: OutcomeRejected, Reason: err.Error(), Attempts: attempt},
				fmt.Errorf("fetch recent blockhash: %w", err)
		}
		deadline := time.Now().Add(c.blockhashTTL)

		envelope, err := c.assembler.Seal(ctx, plan, blockhash)
		if err != nil {
			return Outcome{Status: OutcomeRejected, Reason: err.Error(), Attempts: attempt}, err
		}

		bundleID, err := c.relay.SendBundle(ctx, envelope.Transactions)
		if err != nil {
			if jito.IsTransient(err) {
				c.logger.Warn("Transient relay error on submission, will retry",
					zap.Int("attempt", attempt),
					zap.Error(err))
				lastReason = err.Error()
				continue
			}
			return Outcome{Status: OutcomeRejected, Reason: err.Error(), Attempts: attempt},
				fmt.Errorf("%w: %v", ErrRejectedPermanent, err)
		}

		status, err := c.relay.AwaitOutcome(ctx, bundleID, deadline)
		if err != nil {
			// Context cancellation after acknowledgment: the bundle
			// cannot be retracted, surface the error as-is.
			return Outcome{Status: OutcomeRejected, Reason: err.Error(), Attempts: attempt}, err
		}

		switch status.State {
		case jito.StateLanded:
			return c.landedOutcome(envelope, status, attempt)

		case jito.StateRejected:
			lastReason = status.Reason
			if jito.IsTransientReason(status.Reason) {
				c.logger.Warn("Transient rejection, will retry",
					zap.Int("attempt", attempt),
					zap.String("reason", status.Reason))
				continue
			}
			return Outcome{Status: OutcomeRejected, Reason: status.Reason, Attempts: attempt},
				fmt.Errorf("%w: %s", ErrRejectedPermanent, status.Reason)

		case jito.StateExpired:
			lastReason = "blockhash expired before landing"
			c.logger.Info("Attempt expired, refreshing blockhash",
				zap.Int("attempt", attempt),
				zap.String("bundle_id", bundleID))
			continue

		default:
			return Outcome{Status: OutcomeRejected, Reason: status.State.String(), Attempts: attempt},
				fmt.Errorf("unexpected terminal relay state %s", status.State)
		}
	}

	c.logger.Error("Bundle submission gave up",
		zap.Int("attempts", c.maxAttempts),
		zap.String("last_reason", lastReason))
	return Outcome{Status: OutcomeRetriesExhausted, Reason: lastReason, Attempts: c.maxAttempts},
		fmt.Errorf("%w after %d attempts: %s", ErrRetriesExhausted, c.maxAttempts, lastReason)
}

// fetchBlockhash wraps the recency fetch with a short exponential backoff;
// a blockhash is fetched once per attempt and shared by every transaction.
func (c *Coordinator) fetchBlockhash(ctx context.Context) (solana.Hash, error) {
	return backoff.Retry(ctx,
		func() (solana.Hash, error) {
			return c.ledger.GetRecentBlockhash(ctx)
		},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(10*time.Second),
	)
}

// landedOutcome validates the relay's landed report against the envelope.
// The relay contract is all-or-nothing: a landed bundle must account for
// every transaction, anything else is a protocol invariant violation.
func (c *Coordinator) landedOutcome(envelope *Envelope, status jito.Status, attempt int) (Outcome, error) {
	ids := status.Transactions
	if len(ids) == 0 {
		// Some relays omit the transaction list; the envelope's own
		// signatures are authoritative in that case.
		ids = envelope.Signatures()
	} else if len(ids) != len(envelope.Transactions) {
		return Outcome{Status: OutcomeRejected, Reason: "partial landing reported", Attempts: attempt},
			fmt.Errorf("%w: relay reported %d of %d transactions landed",
				ErrProtocolInvariant, len(ids), len(envelope.Transactions))
	}

	c.logger.Info("Bundle landed",
		zap.String("bundle_id", status.BundleID),
		zap.Uint64("slot", status.Slot),
		zap.Int("transactions", len(ids)),
		zap.Int("attempt", attempt))

	return Outcome{
		Status:         OutcomeLanded,
		Slot:           status.Slot,
		TransactionIDs: ids,
		Attempts:       attempt,
	}, nil
}
