// =============================
// File: internal/pumpfun/config.go
// =============================
package pumpfun

import (
	"github.com/gagliardetto/solana-go"
)

// Known Pump.fun protocol addresses.
var (
	// Program ID for the Pump.fun bonding curve program.
	PumpFunProgramID = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

	// Event authority for the Pump.fun program.
	PumpFunEventAuth = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")

	// Metaplex token metadata program, owner of the mint metadata PDA.
	MPLTokenMetadataID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

	AssociatedTokenProgramID = solana.SPLAssociatedTokenAccountProgramID
	SysvarRentPubkey         = solana.SysVarRentPubkey
)

// PDA seeds used by the program.
const (
	SeedGlobal        = "global"
	SeedMintAuthority = "mint-authority"
	SeedBondingCurve  = "bonding-curve"
	SeedMetadata      = "metadata"
)

// Token decimals and basis-point denominator for slippage math.
const (
	TokenDecimals    = 6
	basisPointsDenom = 10000
)
