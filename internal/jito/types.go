// =============================
// File: internal/jito/types.go
// =============================
package jito

import (
	"github.com/gagliardetto/solana-go"
)

// MaxBundleTransactions is the relay's hard protocol ceiling on the number
// of transactions in one bundle.
const MaxBundleTransactions = 5

// State is the relay-reported disposition of a submitted bundle.
type State int

const (
	StatePending State = iota
	StateLanded
	StateRejected
	StateExpired
	StateNotFound
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateLanded:
		return "landed"
	case StateRejected:
		return "rejected"
	case StateExpired:
		return "expired"
	case StateNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Status is one observation of a bundle's lifecycle.
type Status struct {
	BundleID     string
	State        State
	Slot         uint64
	Transactions []solana.Signature
	Reason       string
}

// jsonRPCRequest is the wire envelope for relay calls.
type jsonRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type inflightBundleStatus struct {
	BundleID   string `json:"bundle_id"`
	Status     string `json:"status"` // Invalid | Pending | Failed | Landed
	LandedSlot uint64 `json:"landed_slot"`
}

type landedBundleStatus struct {
	BundleID           string      `json:"bundle_id"`
	Transactions       []string    `json:"transactions"`
	Slot               uint64      `json:"slot"`
	ConfirmationStatus string      `json:"confirmation_status"`
	Err                interface{} `json:"err"`
}
