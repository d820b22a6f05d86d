// =============================
// File: internal/bundle/types.go
// =============================
package bundle

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-launcher/internal/jito"
	"github.com/rovshanmuradov/solana-launcher/internal/wallet"
)

var (
	// ErrBundleTooLarge means the transaction count exceeds the relay
	// ceiling. The caller must reduce wallets or split into sequential
	// bundles; sequential bundles lose cross-bundle atomicity.
	ErrBundleTooLarge = errors.New("bundle exceeds relay transaction ceiling")

	// ErrRetriesExhausted is the terminal failure after the bounded number
	// of submission attempts.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrRejectedPermanent is a relay rejection that retrying cannot fix.
	ErrRejectedPermanent = errors.New("bundle rejected")

	// ErrProtocolInvariant means the relay reported an outcome that
	// violates its all-or-nothing contract, e.g. partial landing. Never
	// reconciled silently.
	ErrProtocolInvariant = errors.New("relay protocol invariant violated")
)

// Group is one wallet's slice of the bundle: the instructions that will
// form a single transaction signed solely by that wallet (plus extra
// signers, used by the creation transaction for the mint identity).
type Group struct {
	Wallet       *wallet.Wallet
	Instructions []solana.Instruction
	ExtraSigners []solana.PrivateKey
}

// Plan is the immutable instruction set of a bundle. Group order is the
// relay's execution order: the creation group (when present) is first, the
// fee-bid group is last, buys keep the caller-supplied wallet order.
// Re-submission after expiry re-signs exactly this plan; instructions are
// never rebuilt.
type Plan struct {
	groups []Group
}

// NewPlan validates the transaction count against the relay ceiling before
// any signing or network work happens.
func NewPlan(groups []Group) (*Plan, error) {
	if len(groups) == 0 {
		return nil, fmt.Errorf("plan has no transaction groups")
	}
	if len(groups) > jito.MaxBundleTransactions {
		return nil, fmt.Errorf("%w: %d transactions, ceiling %d",
			ErrBundleTooLarge, len(groups), jito.MaxBundleTransactions)
	}
	for i, g := range groups {
		if g.Wallet == nil {
			return nil, fmt.Errorf("group %d has no wallet", i)
		}
		if len(g.Instructions) == 0 {
			return nil, fmt.Errorf("group %d has no instructions", i)
		}
	}
	plan := &Plan{groups: make([]Group, len(groups))}
	copy(plan.groups, groups)
	return plan, nil
}

// Size is the number of transactions the sealed envelope will contain.
func (p *Plan) Size() int {
	return len(p.groups)
}

// Envelope is an ordered, fully signed set of transactions sharing one
// blockhash. Order is immutable once sealed; reordering would invalidate
// the relay's execution-order contract.
type Envelope struct {
	Transactions []*solana.Transaction
	Blockhash    solana.Hash
}

// Signatures returns the primary signature of every transaction in bundle
// order.
func (e *Envelope) Signatures() []solana.Signature {
	sigs := make([]solana.Signature, 0, len(e.Transactions))
	for _, tx := range e.Transactions {
		sigs = append(sigs, tx.Signatures[0])
	}
	return sigs
}

// OutcomeStatus is the terminal disposition of a bundle operation.
type OutcomeStatus int

const (
	OutcomeLanded OutcomeStatus = iota
	OutcomeRejected
	OutcomeRetriesExhausted
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeLanded:
		return "landed"
	case OutcomeRejected:
		return "rejected"
	case OutcomeRetriesExhausted:
		return "retries_exhausted"
	default:
		return "unknown"
	}
}

// Outcome is what the caller gets back: landed with slot and transaction
// ids, rejected with the relay's reason, or retries exhausted with the
// last known reason.
type Outcome struct {
	Status         OutcomeStatus
	Slot           uint64
	TransactionIDs []solana.Signature
	Reason         string
	Attempts       int
}
