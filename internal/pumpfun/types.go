// =============================
// File: internal/pumpfun/types.go
// =============================
package pumpfun

import (
	"errors"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// GlobalAccount is the program-wide Pump.fun state account.
type GlobalAccount struct {
	Discriminator               [8]byte
	Initialized                 bool
	Authority                   solana.PublicKey
	FeeRecipient                solana.PublicKey
	InitialVirtualTokenReserves uint64
	InitialVirtualSolReserves   uint64
	InitialRealTokenReserves    uint64
	TokenTotalSupply            uint64
	FeeBasisPoints              uint64
}

// BondingCurveAccount is the per-token curve state account.
type BondingCurveAccount struct {
	Discriminator        [8]byte
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

// ErrCurveComplete signals that the curve graduated and no longer trades.
var ErrCurveComplete = errors.New("bonding curve complete")

// DecodeGlobalAccount parses the borsh-encoded global account data.
func DecodeGlobalAccount(data []byte) (*GlobalAccount, error) {
	account := &GlobalAccount{}
	decoder := bin.NewBorshDecoder(data)
	if err := decoder.Decode(account); err != nil {
		return nil, fmt.Errorf("failed to decode global account: %w", err)
	}
	return account, nil
}

// DecodeBondingCurve parses the borsh-encoded bonding curve account data.
func DecodeBondingCurve(data []byte) (*BondingCurveAccount, error) {
	account := &BondingCurveAccount{}
	decoder := bin.NewBorshDecoder(data)
	if err := decoder.Decode(account); err != nil {
		return nil, fmt.Errorf("failed to decode bonding curve account: %w", err)
	}
	return account, nil
}

// InitialCurve returns the curve state of a token at the moment of creation.
// Used to price buys that land in the same bundle as the creation
// transaction, before the curve account exists on the ledger.
func (g *GlobalAccount) InitialCurve() *BondingCurveAccount {
	return &BondingCurveAccount{
		VirtualTokenReserves: g.InitialVirtualTokenReserves,
		VirtualSolReserves:   g.InitialVirtualSolReserves,
		RealTokenReserves:    g.InitialRealTokenReserves,
		TokenTotalSupply:     g.TokenTotalSupply,
	}
}

// BuyTokensForSol returns the token output for a SOL input against the
// current curve state. Intermediate products exceed 64 bits, so the math
// runs through big.Int.
func (b *BondingCurveAccount) BuyTokensForSol(lamports uint64) (uint64, error) {
	if b.Complete {
		return 0, ErrCurveComplete
	}
	if lamports == 0 {
		return 0, nil
	}

	vSol := new(big.Int).SetUint64(b.VirtualSolReserves)
	vTok := new(big.Int).SetUint64(b.VirtualTokenReserves)

	n := new(big.Int).Mul(vSol, vTok)
	i := new(big.Int).Add(vSol, new(big.Int).SetUint64(lamports))
	r := new(big.Int).Add(new(big.Int).Div(n, i), big.NewInt(1))
	s := new(big.Int).Sub(vTok, r)

	out := s.Uint64()
	if out > b.RealTokenReserves {
		out = b.RealTokenReserves
	}
	return out, nil
}

// SellSolForTokens returns the SOL output for selling a token amount, net
// of the protocol fee.
func (b *BondingCurveAccount) SellSolForTokens(tokenAmount, feeBasisPoints uint64) (uint64, error) {
	if b.Complete {
		return 0, ErrCurveComplete
	}
	if tokenAmount == 0 {
		return 0, nil
	}

	vSol := new(big.Int).SetUint64(b.VirtualSolReserves)
	vTok := new(big.Int).SetUint64(b.VirtualTokenReserves)
	amount := new(big.Int).SetUint64(tokenAmount)

	gross := new(big.Int).Div(
		new(big.Int).Mul(amount, vSol),
		new(big.Int).Add(vTok, amount),
	)
	fee := new(big.Int).Div(
		new(big.Int).Mul(gross, new(big.Int).SetUint64(feeBasisPoints)),
		big.NewInt(basisPointsDenom),
	)
	return new(big.Int).Sub(gross, fee).Uint64(), nil
}

// ApplyBuy advances a local copy of the curve by one executed buy. Buys in
// the same bundle execute sequentially on-chain, so pricing wallet i+1
// against the post-wallet-i state keeps local estimates aligned with
// execution order.
func (b *BondingCurveAccount) ApplyBuy(lamports, tokensOut uint64) {
	b.VirtualSolReserves += lamports
	if tokensOut > b.VirtualTokenReserves {
		tokensOut = b.VirtualTokenReserves
	}
	b.VirtualTokenReserves -= tokensOut
	if tokensOut > b.RealTokenReserves {
		b.RealTokenReserves = 0
	} else {
		b.RealTokenReserves -= tokensOut
	}
}

// WithSlippageBuy raises a SOL cost by the slippage bound: the maximum the
// buyer tolerates paying.
func WithSlippageBuy(lamports, basisPoints uint64) uint64 {
	return lamports + (lamports*basisPoints)/basisPointsDenom
}

// WithSlippageSell lowers a SOL output by the slippage bound: the minimum
// the seller tolerates receiving.
func WithSlippageSell(lamports, basisPoints uint64) uint64 {
	return lamports - (lamports*basisPoints)/basisPointsDenom
}
