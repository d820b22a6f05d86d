// =============================
// File: internal/launch/service.go
// =============================
package launch

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/solana-launcher/internal/bundle"
	"github.com/rovshanmuradov/solana-launcher/internal/jito"
	"github.com/rovshanmuradov/solana-launcher/internal/pumpfun"
	"github.com/rovshanmuradov/solana-launcher/internal/solbc"
	"github.com/rovshanmuradov/solana-launcher/internal/wallet"
	"go.uber.org/zap"
)

// Config carries the trading knobs of the launch service.
type Config struct {
	SlippageBPS    uint64
	ComputeUnits   uint32
	PriorityFeeSOL string
}

// Service exposes the bundle operations: create-and-buy across many
// wallets, single-wallet buy and sell. One logical submission pipeline per
// bundle; services share nothing mutable beyond the injected clients.
type Service struct {
	client      *solbc.Client
	relay       *jito.Client
	resolver    *pumpfun.Resolver
	assembler   *bundle.Assembler
	coordinator *bundle.Coordinator
	cfg         Config
	logger      *zap.Logger
}

func NewService(
	client *solbc.Client,
	relay *jito.Client,
	maxAttempts int,
	blockhashTTL time.Duration,
	cfg Config,
	logger *zap.Logger,
) *Service {
	assembler := bundle.NewAssembler(logger)
	return &Service{
		client:      client,
		relay:       relay,
		resolver:    pumpfun.NewResolver(logger),
		assembler:   assembler,
		coordinator: bundle.NewCoordinator(client, relay, assembler, maxAttempts, blockhashTTL, logger),
		cfg:         cfg,
		logger:      logger.Named("launch"),
	}
}

// slippage returns the per-call slippage bound, falling back to the
// service default.
func (s *Service) slippage(override uint64) uint64 {
	if override > 0 {
		return override
	}
	return s.cfg.SlippageBPS
}

// tipGroup resolves a relay tip account and builds the fee-bid group.
func (s *Service) tipGroup(ctx context.Context, payer *wallet.Wallet, lamports uint64) (bundle.Group, error) {
	tipAccount, err := s.relay.TipAccount(ctx)
	if err != nil {
		return bundle.Group{}, fmt.Errorf("resolve tip account: %w", err)
	}
	return bundle.TipGroup(payer, tipAccount, lamports)
}

// preflight simulates a transaction group against current ledger state
// before the bundle is ever submitted. Simulation failures there would
// sink the whole bundle at the relay.
func (s *Service) preflight(ctx context.Context, group bundle.Group) error {
	blockhash, err := s.client.GetRecentBlockhash(ctx)
	if err != nil {
		return fmt.Errorf("preflight blockhash: %w", err)
	}
	tx, err := solana.NewTransaction(
		group.Instructions,
		blockhash,
		solana.TransactionPayer(group.Wallet.PublicKey),
	)
	if err != nil {
		return fmt.Errorf("preflight transaction: %w", err)
	}
	if err := group.Wallet.SignTransaction(tx, group.ExtraSigners...); err != nil {
		return fmt.Errorf("preflight sign: %w", err)
	}

	result, err := s.client.SimulateTransaction(ctx, tx)
	if err != nil {
		return fmt.Errorf("preflight simulation: %w", err)
	}
	if result.Err != nil {
		return fmt.Errorf("preflight simulation failed: %v (logs: %v)", result.Err, result.Logs)
	}
	return nil
}

// SubmitDirect sends a single transaction group through the plain RPC
// path, outside any bundle. This is the degraded mode: no atomicity, no
// relay prioritization. It exists as an explicit caller choice and is
// never used as a fallback when a tip is configured.
func (s *Service) SubmitDirect(ctx context.Context, group bundle.Group) (solana.Signature, error) {
	instructions := group.Instructions
	if prio, err := bundle.PriorityFeeInstructions(s.cfg.ComputeUnits, s.cfg.PriorityFeeSOL); err == nil {
		instructions = append(prio, instructions...)
	} else {
		return solana.Signature{}, err
	}

	blockhash, err := s.client.GetRecentBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("get recent blockhash: %w", err)
	}
	tx, err := solana.NewTransaction(
		instructions,
		blockhash,
		solana.TransactionPayer(group.Wallet.PublicKey),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("create transaction: %w", err)
	}
	if err := group.Wallet.SignTransaction(tx, group.ExtraSigners...); err != nil {
		return solana.Signature{}, fmt.Errorf("sign transaction: %w", err)
	}

	sig, err := s.client.SendTransactionWithOpts(ctx, tx, solbc.TransactionOptions{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentProcessed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	s.logger.Info("Direct transaction sent", zap.String("signature", sig.String()))

	if err := s.client.WaitForTransactionConfirmation(ctx, sig); err != nil {
		return sig, fmt.Errorf("confirmation failed: %w", err)
	}
	return sig, nil
}

// TransferSOL moves lamports between wallets through the direct path.
// Used to pre-fund buyer wallets from the operator wallet before a launch.
func (s *Service) TransferSOL(ctx context.Context, from *wallet.Wallet, to solana.PublicKey, lamports uint64) (solana.Signature, error) {
	if lamports == 0 {
		return solana.Signature{}, fmt.Errorf("amount cannot be zero")
	}

	balance, err := s.client.GetBalance(ctx, from.PublicKey, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("get balance: %w", err)
	}
	if balance < lamports {
		return solana.Signature{}, fmt.Errorf("insufficient balance: have %d, need %d", balance, lamports)
	}

	transferIx := system.NewTransferInstruction(lamports, from.PublicKey, to).Build()
	return s.SubmitDirect(ctx, bundle.Group{
		Wallet:       from,
		Instructions: []solana.Instruction{transferIx},
	})
}
