// =============================
// File: internal/launch/operations.go
// =============================
package launch

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-launcher/internal/bundle"
	"github.com/rovshanmuradov/solana-launcher/internal/jito"
	"github.com/rovshanmuradov/solana-launcher/internal/pumpfun"
	"github.com/rovshanmuradov/solana-launcher/internal/wallet"
	"go.uber.org/zap"
)

// MaxBuyerWallets is how many buyer wallets fit in a create-and-buy bundle:
// the relay ceiling minus the creation and fee-bid transactions.
const MaxBuyerWallets = jito.MaxBundleTransactions - 2

// AmountPolicy returns the SOL spend (in lamports) for the buyer at the
// given position. It lets callers vary amounts per wallet without building
// the slice by hand.
type AmountPolicy func(position int) uint64

// FixedAmount is the uniform policy: every wallet spends the same lamports.
func FixedAmount(lamports uint64) AmountPolicy {
	return func(int) uint64 { return lamports }
}

// LaunchParams describes one create-and-buy operation.
type LaunchParams struct {
	Creator *wallet.Wallet
	Buyers  []*wallet.Wallet

	// Mint is the token identity. Leave nil to generate a fresh one; the
	// same identity must never be submitted twice.
	Mint *wallet.Wallet

	Name        string
	Symbol      string
	MetadataURI string

	// Amounts takes precedence over Policy when both are set.
	Amounts []uint64
	Policy  AmountPolicy

	SlippageBPS uint64
	TipLamports uint64

	// Preflight simulates the creation transaction before submission.
	Preflight bool
}

// LaunchResult is the landed outcome plus the identity of the new token.
type LaunchResult struct {
	Mint    solana.PublicKey
	Outcome bundle.Outcome
}

func (p *LaunchParams) amountFor(position int) (uint64, error) {
	if len(p.Amounts) > 0 {
		if position >= len(p.Amounts) {
			return 0, fmt.Errorf("no amount for wallet %d", position)
		}
		return p.Amounts[position], nil
	}
	if p.Policy != nil {
		return p.Policy(position), nil
	}
	return 0, fmt.Errorf("no amounts or amount policy supplied")
}

// CreateAndBuy creates the token and executes one buy per wallet, all in a
// single atomic bundle: creation first, buys in wallet order, the fee bid
// last. Either every transaction lands or none does.
func (s *Service) CreateAndBuy(ctx context.Context, params LaunchParams) (*LaunchResult, error) {
	if params.Creator == nil {
		return nil, fmt.Errorf("creator wallet is required")
	}
	if len(params.Buyers) == 0 {
		return nil, fmt.Errorf("at least one buyer wallet is required")
	}
	if len(params.Buyers) > MaxBuyerWallets {
		return nil, fmt.Errorf("%w: %d buyer wallets, maximum %d alongside creation and fee bid",
			bundle.ErrBundleTooLarge, len(params.Buyers), MaxBuyerWallets)
	}

	mint := params.Mint
	if mint == nil {
		mint = wallet.Generate("mint")
	}

	accounts, err := s.resolver.ResolveLaunch(mint.PublicKey)
	if err != nil {
		return nil, err
	}
	global, err := pumpfun.FetchGlobalAccount(ctx, s.client, accounts.Global)
	if err != nil {
		return nil, err
	}
	accounts.FeeRecipient = global.FeeRecipient

	logger := s.logger.With(
		zap.String("mint", mint.PublicKey.String()),
		zap.String("symbol", params.Symbol),
	)
	logger.Info("Preparing launch bundle",
		zap.Int("buyer_wallets", len(params.Buyers)),
		zap.Uint64("tip_lamports", params.TipLamports))

	createIx := pumpfun.BuildCreate(
		accounts, mint.PublicKey, params.Creator.PublicKey,
		params.Name, params.Symbol, params.MetadataURI,
	)
	createGroup := bundle.Group{
		Wallet:       params.Creator,
		Instructions: []solana.Instruction{createIx},
		ExtraSigners: []solana.PrivateKey{mint.PrivateKey},
	}

	if params.Preflight {
		if err := s.preflight(ctx, createGroup); err != nil {
			return nil, err
		}
	}

	groups := make([]bundle.Group, 0, len(params.Buyers)+2)
	groups = append(groups, createGroup)

	// The mint does not exist yet, so buys are priced against a local copy
	// of the initial curve, stepped buy by buy in bundle order.
	curve := global.InitialCurve()
	slippage := s.slippage(params.SlippageBPS)
	for i, buyer := range params.Buyers {
		lamports, err := params.amountFor(i)
		if err != nil {
			return nil, err
		}
		if lamports == 0 {
			return nil, fmt.Errorf("wallet %d (%s) has zero buy amount", i, buyer.Name)
		}

		tokensOut, err := curve.BuyTokensForSol(lamports)
		if err != nil {
			return nil, fmt.Errorf("price buy for wallet %d: %w", i, err)
		}
		maxSolCost := pumpfun.WithSlippageBuy(lamports, slippage)

		buyIx, err := pumpfun.BuildBuy(accounts, buyer, mint.PublicKey, tokensOut, maxSolCost)
		if err != nil {
			return nil, fmt.Errorf("build buy for wallet %d: %w", i, err)
		}
		groups = append(groups, bundle.Group{
			Wallet: buyer,
			Instructions: []solana.Instruction{
				// New mint: every buyer needs its token account created
				// in the same transaction, before the buy.
				pumpfun.BuildCreateATAIdempotent(buyer.PublicKey, buyer.PublicKey, mint.PublicKey),
				buyIx,
			},
		})
		curve.ApplyBuy(lamports, tokensOut)
	}

	tip, err := s.tipGroup(ctx, params.Creator, params.TipLamports)
	if err != nil {
		return nil, err
	}
	groups = append(groups, tip)

	plan, err := bundle.NewPlan(groups)
	if err != nil {
		return nil, err
	}

	outcome, err := s.coordinator.Execute(ctx, plan)
	if err != nil {
		return nil, err
	}
	logger.Info("Launch bundle landed",
		zap.Uint64("slot", outcome.Slot),
		zap.Int("attempts", outcome.Attempts))

	return &LaunchResult{Mint: mint.PublicKey, Outcome: outcome}, nil
}

// TradeParams describes a single-wallet buy or sell against an existing
// token, still submitted as a (two-transaction) bundle: trade plus fee bid.
type TradeParams struct {
	Wallet      *wallet.Wallet
	Mint        solana.PublicKey
	SlippageBPS uint64
	TipLamports uint64
}

// Buy purchases tokens for the given SOL spend against the live curve.
func (s *Service) Buy(ctx context.Context, params TradeParams, lamports uint64) (bundle.Outcome, error) {
	if lamports == 0 {
		return bundle.Outcome{}, fmt.Errorf("buy amount cannot be zero")
	}

	accounts, curve, err := s.resolveTrade(ctx, params.Mint)
	if err != nil {
		return bundle.Outcome{}, err
	}

	tokensOut, err := curve.BuyTokensForSol(lamports)
	if err != nil {
		return bundle.Outcome{}, err
	}
	maxSolCost := pumpfun.WithSlippageBuy(lamports, s.slippage(params.SlippageBPS))

	buyIx, err := pumpfun.BuildBuy(accounts, params.Wallet, params.Mint, tokensOut, maxSolCost)
	if err != nil {
		return bundle.Outcome{}, err
	}

	instructions := []solana.Instruction{}
	ataIx, _, err := s.resolver.EnsureATA(ctx, s.client, params.Wallet, params.Mint)
	if err != nil {
		return bundle.Outcome{}, err
	}
	if ataIx != nil {
		instructions = append(instructions, ataIx)
	}
	instructions = append(instructions, buyIx)

	return s.executeTrade(ctx, params, bundle.Group{
		Wallet:       params.Wallet,
		Instructions: instructions,
	})
}

// Sell disposes of an absolute token amount.
func (s *Service) Sell(ctx context.Context, params TradeParams, tokenAmount uint64) (bundle.Outcome, error) {
	if tokenAmount == 0 {
		return bundle.Outcome{}, fmt.Errorf("sell amount cannot be zero")
	}
	return s.sell(ctx, params, tokenAmount)
}

// SellByPercent disposes of a percentage (1-100) of the wallet's current
// holdings, resolved from a live balance lookup.
func (s *Service) SellByPercent(ctx context.Context, params TradeParams, percent uint64) (bundle.Outcome, error) {
	if percent == 0 || percent > 100 {
		return bundle.Outcome{}, fmt.Errorf("percent must be between 1 and 100, got %d", percent)
	}

	ata, err := params.Wallet.GetATA(params.Mint)
	if err != nil {
		return bundle.Outcome{}, err
	}
	balance, err := s.client.GetTokenAccountBalance(ctx, ata)
	if err != nil {
		return bundle.Outcome{}, fmt.Errorf("get token balance: %w", err)
	}
	amount := balance * percent / 100
	if amount == 0 {
		return bundle.Outcome{}, fmt.Errorf("nothing to sell: balance %d, percent %d", balance, percent)
	}
	return s.sell(ctx, params, amount)
}

func (s *Service) sell(ctx context.Context, params TradeParams, tokenAmount uint64) (bundle.Outcome, error) {
	accounts, curve, err := s.resolveTrade(ctx, params.Mint)
	if err != nil {
		return bundle.Outcome{}, err
	}

	global, err := pumpfun.FetchGlobalAccount(ctx, s.client, accounts.Global)
	if err != nil {
		return bundle.Outcome{}, err
	}
	solOut, err := curve.SellSolForTokens(tokenAmount, global.FeeBasisPoints)
	if err != nil {
		return bundle.Outcome{}, err
	}
	minSolOutput := pumpfun.WithSlippageSell(solOut, s.slippage(params.SlippageBPS))

	sellIx, err := pumpfun.BuildSell(accounts, params.Wallet, params.Mint, tokenAmount, minSolOutput)
	if err != nil {
		return bundle.Outcome{}, err
	}

	return s.executeTrade(ctx, params, bundle.Group{
		Wallet:       params.Wallet,
		Instructions: []solana.Instruction{sellIx},
	})
}

// resolveTrade derives the launch accounts for an existing token and reads
// its live curve state, filling the fee recipient from the global account.
func (s *Service) resolveTrade(ctx context.Context, mint solana.PublicKey) (pumpfun.LaunchAccounts, *pumpfun.BondingCurveAccount, error) {
	accounts, err := s.resolver.ResolveLaunch(mint)
	if err != nil {
		return pumpfun.LaunchAccounts{}, nil, err
	}
	global, err := pumpfun.FetchGlobalAccount(ctx, s.client, accounts.Global)
	if err != nil {
		return pumpfun.LaunchAccounts{}, nil, err
	}
	accounts.FeeRecipient = global.FeeRecipient

	curve, err := pumpfun.FetchBondingCurveAccount(ctx, s.client, accounts.BondingCurve)
	if err != nil {
		return pumpfun.LaunchAccounts{}, nil, err
	}
	return accounts, curve, nil
}

// executeTrade wraps a single trade group with the fee bid and drives it
// through the coordinator.
func (s *Service) executeTrade(ctx context.Context, params TradeParams, trade bundle.Group) (bundle.Outcome, error) {
	tip, err := s.tipGroup(ctx, params.Wallet, params.TipLamports)
	if err != nil {
		return bundle.Outcome{}, err
	}
	plan, err := bundle.NewPlan([]bundle.Group{trade, tip})
	if err != nil {
		return bundle.Outcome{}, err
	}
	return s.coordinator.Execute(ctx, plan)
}
