// ==============================================
// File: internal/pumpfun/instructions.go
// ==============================================
package pumpfun

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-launcher/internal/wallet"
)

// Anchor instruction discriminators for the Pump.fun program.
var (
	CreateDiscriminator = []byte{0x18, 0x1e, 0xc8, 0x28, 0x05, 0x1c, 0x07, 0x77}
	BuyDiscriminator    = []byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}
	SellDiscriminator   = []byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}
)

// BuildCreate builds the token creation instruction. It binds the new mint
// to the bonding curve program and records name/symbol/metadata URI. The
// transaction carrying it must be signed by both the creator wallet and the
// mint identity.
func BuildCreate(accounts LaunchAccounts, mint solana.PublicKey, creator solana.PublicKey, name, symbol, uri string) solana.Instruction {
	data := make([]byte, 0, len(CreateDiscriminator)+12+len(name)+len(symbol)+len(uri))
	data = append(data, CreateDiscriminator...)
	data = appendBorshString(data, name)
	data = appendBorshString(data, symbol)
	data = appendBorshString(data, uri)

	// Account list must be in the exact order expected by the program
	insAccounts := []*solana.AccountMeta{
		{PublicKey: mint, IsSigner: true, IsWritable: true},
		{PublicKey: accounts.MintAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.Global, IsSigner: false, IsWritable: false},
		{PublicKey: MPLTokenMetadataID, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.Metadata, IsSigner: false, IsWritable: true},
		{PublicKey: creator, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: AssociatedTokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: SysvarRentPubkey, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.Program, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(accounts.Program, insAccounts, data)
}

// BuildBuy builds a purchase against the bonding curve. maxSolCost is a
// hard ceiling: the program aborts the whole transaction when execution-time
// cost exceeds it, it never truncates the purchase.
func BuildBuy(
	accounts LaunchAccounts,
	userWallet *wallet.Wallet,
	mint solana.PublicKey,
	tokenAmount, maxSolCost uint64,
) (solana.Instruction, error) {
	data := make([]byte, len(BuyDiscriminator), len(BuyDiscriminator)+16)
	copy(data, BuyDiscriminator)

	amountBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(amountBytes, tokenAmount)
	data = append(data, amountBytes...)

	maxSolBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(maxSolBytes, maxSolCost)
	data = append(data, maxSolBytes...)

	associatedUser, err := userWallet.GetATA(mint)
	if err != nil {
		return nil, fmt.Errorf("failed to get associated token account: %w", err)
	}

	// Account list must be in the exact order expected by the program
	insAccounts := []*solana.AccountMeta{
		{PublicKey: accounts.Global, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.FeeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: associatedUser, IsSigner: false, IsWritable: true},
		{PublicKey: userWallet.PublicKey, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: SysvarRentPubkey, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.Program, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(accounts.Program, insAccounts, data), nil
}

// BuildSell builds a sale against the bonding curve. minSolOutput is a hard
// floor enforced on-chain. The amount is always absolute token units;
// percent-of-holdings is resolved by the caller from a balance lookup.
func BuildSell(
	accounts LaunchAccounts,
	userWallet *wallet.Wallet,
	mint solana.PublicKey,
	tokenAmount, minSolOutput uint64,
) (solana.Instruction, error) {
	data := make([]byte, len(SellDiscriminator), len(SellDiscriminator)+16)
	copy(data, SellDiscriminator)

	amountBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(amountBytes, tokenAmount)
	data = append(data, amountBytes...)

	minSolBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(minSolBytes, minSolOutput)
	data = append(data, minSolBytes...)

	associatedUser, err := userWallet.GetATA(mint)
	if err != nil {
		return nil, fmt.Errorf("failed to get associated token account: %w", err)
	}

	// Account list must be in the exact order expected by the program
	insAccounts := []*solana.AccountMeta{
		{PublicKey: accounts.Global, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.FeeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: associatedUser, IsSigner: false, IsWritable: true},
		{PublicKey: userWallet.PublicKey, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: AssociatedTokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.Program, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(accounts.Program, insAccounts, data), nil
}

// BuildCreateATAIdempotent builds an idempotent create instruction for the
// owner's associated token account. Safe to include even when the account
// already exists.
func BuildCreateATAIdempotent(payer, owner, mint solana.PublicKey) solana.Instruction {
	ata, _, _ := solana.FindAssociatedTokenAddress(owner, mint)

	keys := []*solana.AccountMeta{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: ata, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: false, IsWritable: false},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: SysvarRentPubkey, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(
		AssociatedTokenProgramID,
		keys,
		[]byte{1}, // instruction code 1: create idempotent
	)
}

func appendBorshString(data []byte, s string) []byte {
	lengthBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(lengthBytes, uint32(len(s)))
	data = append(data, lengthBytes...)
	return append(data, []byte(s)...)
}
