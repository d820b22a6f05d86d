// =============================
// File: internal/pumpfun/accounts.go
// =============================
package pumpfun

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-launcher/internal/solbc"
	"github.com/rovshanmuradov/solana-launcher/internal/wallet"
	"go.uber.org/zap"
)

// ErrAddressDerivation marks a failure to derive a program address from a
// malformed input key. It is fatal and never retried.
var ErrAddressDerivation = errors.New("address derivation failed")

// LaunchAccounts are the program-owned addresses a launch interacts with.
// All of them are pure functions of the mint public key.
type LaunchAccounts struct {
	Global                 solana.PublicKey
	MintAuthority          solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	Metadata               solana.PublicKey
	EventAuthority         solana.PublicKey
	Program                solana.PublicKey

	// FeeRecipient comes from the global account, not a derivation; the
	// resolver leaves it zero until FetchGlobalAccount fills it in.
	FeeRecipient solana.PublicKey
}

// Resolver derives deterministic program-owned addresses. No network I/O,
// no randomness; resolution of the same mint always yields the same result.
type Resolver struct {
	program solana.PublicKey
	logger  *zap.Logger
}

func NewResolver(logger *zap.Logger) *Resolver {
	return &Resolver{
		program: PumpFunProgramID,
		logger:  logger.Named("resolver"),
	}
}

// ResolveLaunch derives every address needed to create and trade a token.
func (r *Resolver) ResolveLaunch(mint solana.PublicKey) (LaunchAccounts, error) {
	global, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedGlobal)},
		r.program,
	)
	if err != nil {
		return LaunchAccounts{}, fmt.Errorf("%w: global: %v", ErrAddressDerivation, err)
	}

	mintAuthority, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedMintAuthority)},
		r.program,
	)
	if err != nil {
		return LaunchAccounts{}, fmt.Errorf("%w: mint authority: %v", ErrAddressDerivation, err)
	}

	bondingCurve, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedBondingCurve), mint.Bytes()},
		r.program,
	)
	if err != nil {
		return LaunchAccounts{}, fmt.Errorf("%w: bonding curve: %v", ErrAddressDerivation, err)
	}

	associatedBondingCurve, _, err := solana.FindAssociatedTokenAddress(bondingCurve, mint)
	if err != nil {
		return LaunchAccounts{}, fmt.Errorf("%w: associated bonding curve: %v", ErrAddressDerivation, err)
	}

	metadata, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedMetadata), MPLTokenMetadataID.Bytes(), mint.Bytes()},
		MPLTokenMetadataID,
	)
	if err != nil {
		return LaunchAccounts{}, fmt.Errorf("%w: metadata: %v", ErrAddressDerivation, err)
	}

	r.logger.Debug("Derived launch accounts",
		zap.String("mint", mint.String()),
		zap.String("bonding_curve", bondingCurve.String()),
		zap.String("associated_bonding_curve", associatedBondingCurve.String()))

	return LaunchAccounts{
		Global:                 global,
		MintAuthority:          mintAuthority,
		BondingCurve:           bondingCurve,
		AssociatedBondingCurve: associatedBondingCurve,
		Metadata:               metadata,
		EventAuthority:         PumpFunEventAuth,
		Program:                r.program,
	}, nil
}

// EnsureATA checks whether a wallet's associated token account for the mint
// exists and, if not, returns an idempotent create instruction that must be
// placed immediately before that wallet's buy. A nil instruction means the
// account already exists.
func (r *Resolver) EnsureATA(ctx context.Context, client *solbc.Client, owner *wallet.Wallet, mint solana.PublicKey) (solana.Instruction, solana.PublicKey, error) {
	ata, err := owner.GetATA(mint)
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("%w: associated token account: %v", ErrAddressDerivation, err)
	}

	exists, err := client.AccountExists(ctx, ata)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	if exists {
		return nil, ata, nil
	}

	return BuildCreateATAIdempotent(owner.PublicKey, owner.PublicKey, mint), ata, nil
}

// FetchGlobalAccount reads and decodes the program's global account, filling
// the resolver-independent fee recipient into the launch accounts.
func FetchGlobalAccount(ctx context.Context, client *solbc.Client, globalAddr solana.PublicKey) (*GlobalAccount, error) {
	accountInfo, err := client.GetAccountInfo(ctx, globalAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to get global account: %w", err)
	}
	if accountInfo == nil || accountInfo.Value == nil {
		return nil, fmt.Errorf("global account not found: %s", globalAddr.String())
	}
	if !accountInfo.Value.Owner.Equals(PumpFunProgramID) {
		return nil, fmt.Errorf("global account has incorrect owner: expected %s, got %s",
			PumpFunProgramID.String(), accountInfo.Value.Owner.String())
	}

	return DecodeGlobalAccount(accountInfo.Value.Data.GetBinary())
}

// FetchBondingCurveAccount reads and decodes a token's bonding curve state.
func FetchBondingCurveAccount(ctx context.Context, client *solbc.Client, bondingCurve solana.PublicKey) (*BondingCurveAccount, error) {
	accountInfo, err := client.GetAccountInfo(ctx, bondingCurve)
	if err != nil {
		return nil, fmt.Errorf("failed to get bonding curve account: %w", err)
	}
	if accountInfo == nil || accountInfo.Value == nil {
		return nil, fmt.Errorf("bonding curve account not found")
	}

	return DecodeBondingCurve(accountInfo.Value.Data.GetBinary())
}
