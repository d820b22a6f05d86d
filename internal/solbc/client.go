// internal/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// Client is a thin adapter over the Solana JSON-RPC client. It is the only
// ledger collaborator the launch pipeline depends on: recent blockhash,
// account state and transaction simulation.
type Client struct {
	rpc    *rpc.Client
	logger *zap.Logger
}

var (
	ErrAccountNotFound = errors.New("account not found")
)

// IsAccountNotFoundError reports whether an RPC error means a missing account.
func IsAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// NewClient creates a client for the given RPC URL.
func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return &Client{
		rpc:    rpc.New(rpcURL),
		logger: logger.Named("solbc-client"),
	}
}

// GetRecentBlockhash fetches the latest finalized blockhash. Every
// transaction of one bundle attempt shares the value returned here.
func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		c.logger.Error("GetRecentBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return result.Value.Blockhash, nil
}

// GetAccountInfo fetches raw account state.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	result, err := c.rpc.GetAccountInfo(ctx, pubkey)
	if err != nil {
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// AccountExists reports whether an account is present on the ledger.
func (c *Client) AccountExists(ctx context.Context, address solana.PublicKey) (bool, error) {
	accountInfo, err := c.GetAccountInfo(ctx, address)
	if err != nil {
		if IsAccountNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return accountInfo != nil && accountInfo.Value != nil, nil
}

// GetBalance returns the lamport balance of an account.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	result, err := c.rpc.GetBalance(ctx, pubkey, commitment)
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, err
	}
	return result.Value, nil
}

// GetTokenAccountBalance returns the raw balance of a token account.
func (c *Client) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	result, err := c.rpc.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, err
	}
	if result == nil || result.Value == nil || result.Value.Amount == "" {
		return 0, fmt.Errorf("no token balance found")
	}
	balance, err := strconv.ParseUint(result.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token balance: %w", err)
	}
	return balance, nil
}

// SimulationResult carries the ledger's view of a simulated transaction.
type SimulationResult struct {
	Err           interface{}
	Logs          []string
	UnitsConsumed uint64
}

// SimulateTransaction runs a transaction against current ledger state
// without committing it.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error) {
	result, err := c.rpc.SimulateTransaction(ctx, tx)
	if err != nil {
		c.logger.Error("SimulateTransaction error", zap.Error(err))
		return nil, err
	}
	units := uint64(0)
	if result.Value.UnitsConsumed != nil {
		units = *result.Value.UnitsConsumed
	}
	return &SimulationResult{
		Err:           result.Value.Err,
		Logs:          result.Value.Logs,
		UnitsConsumed: units,
	}, nil
}

// TransactionOptions control direct (non-bundled) submission.
type TransactionOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
}

// SendTransactionWithOpts submits a single transaction outside any bundle.
// Used only by the explicit degraded path; bundle submission goes through
// the relay client.
func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts TransactionOptions) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
	})
	if err != nil {
		c.logger.Error("SendTransactionWithOpts error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// WaitForTransactionConfirmation polls signature status until the
// transaction confirms or the context / timeout gives up.
func (c *Client) WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(30 * time.Second)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("confirmation timeout")
		case <-ticker.C:
			statuses, err := c.rpc.GetSignatureStatuses(ctx, false, signature)
			if err != nil {
				c.logger.Warn("Error getting signature statuses", zap.Error(err))
				continue
			}
			if statuses != nil && len(statuses.Value) > 0 && statuses.Value[0] != nil {
				status := statuses.Value[0]
				if status.ConfirmationStatus == rpc.ConfirmationStatusFinalized ||
					status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed {
					return nil
				}
			}
		}
	}
}
