// =============================
// File: internal/jito/client.go
// =============================
package jito

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Client talks to a Jito block-engine relay over JSON-RPC. It submits
// bundles and reports their status; it never retries on its own — retry
// policy lives in the bundle coordinator.
type Client struct {
	url       string
	http      *http.Client
	logger    *zap.Logger
	pollDelay time.Duration

	mu          sync.RWMutex
	tipAccounts []solana.PublicKey
}

func NewClient(url string, pollDelay time.Duration, logger *zap.Logger) *Client {
	if pollDelay <= 0 {
		pollDelay = 500 * time.Millisecond
	}
	return &Client{
		url:       strings.TrimRight(url, "/"),
		http:      &http.Client{Timeout: 30 * time.Second},
		logger:    logger.Named("jito-client"),
		pollDelay: pollDelay,
	}
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	payload, err := json.Marshal(jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read relay response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("relay overloaded: status %d: %s", resp.StatusCode, string(body))
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *jsonRPCError   `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to decode relay response: %w", err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("relay error %d: %s", envelope.Error.Code, envelope.Error.Message)
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return nil
}

// TipAccount returns one relay-designated tip account, chosen at random
// from the advertised list. The list is fetched once and cached.
func (c *Client) TipAccount(ctx context.Context) (solana.PublicKey, error) {
	c.mu.RLock()
	accounts := c.tipAccounts
	c.mu.RUnlock()

	if len(accounts) == 0 {
		var raw []string
		if err := c.call(ctx, "getTipAccounts", []interface{}{}, &raw); err != nil {
			return solana.PublicKey{}, fmt.Errorf("failed to fetch tip accounts: %w", err)
		}
		accounts = make([]solana.PublicKey, 0, len(raw))
		for _, s := range raw {
			key, err := solana.PublicKeyFromBase58(s)
			if err != nil {
				c.logger.Warn("Skipping malformed tip account", zap.String("account", s))
				continue
			}
			accounts = append(accounts, key)
		}
		if len(accounts) == 0 {
			return solana.PublicKey{}, fmt.Errorf("relay advertised no usable tip accounts")
		}
		c.mu.Lock()
		c.tipAccounts = accounts
		c.mu.Unlock()
	}

	return accounts[rand.Intn(len(accounts))], nil
}

// SendBundle serializes the signed transactions to the relay wire format
// and submits them as one atomic bundle, returning the relay's bundle id.
func (c *Client) SendBundle(ctx context.Context, transactions []*solana.Transaction) (string, error) {
	if len(transactions) == 0 {
		return "", fmt.Errorf("no transactions to send")
	}
	if len(transactions) > MaxBundleTransactions {
		return "", fmt.Errorf("bundle exceeds maximum of %d transactions", MaxBundleTransactions)
	}

	encoded := make([]string, len(transactions))
	for i, tx := range transactions {
		if len(tx.Signatures) == 0 {
			return "", fmt.Errorf("transaction %d is not signed", i)
		}
		raw, err := tx.MarshalBinary()
		if err != nil {
			return "", fmt.Errorf("failed to encode transaction %d: %w", i, err)
		}
		encoded[i] = base64.StdEncoding.EncodeToString(raw)
	}

	var bundleID string
	err := c.call(ctx, "sendBundle", []interface{}{
		encoded,
		map[string]string{"encoding": "base64"},
	}, &bundleID)
	if err != nil {
		return "", err
	}

	c.logger.Info("Bundle submitted",
		zap.String("bundle_id", bundleID),
		zap.Int("transactions", len(transactions)))
	return bundleID, nil
}

// BundleStatus queries the relay once for the bundle's current disposition.
func (c *Client) BundleStatus(ctx context.Context, bundleID string) (Status, error) {
	var inflight struct {
		Value []inflightBundleStatus `json:"value"`
	}
	err := c.call(ctx, "getInflightBundleStatuses", []interface{}{[]string{bundleID}}, &inflight)
	if err != nil {
		return Status{}, err
	}
	if len(inflight.Value) == 0 {
		return Status{BundleID: bundleID, State: StateNotFound}, nil
	}

	entry := inflight.Value[0]
	switch entry.Status {
	case "Pending":
		return Status{BundleID: bundleID, State: StatePending}, nil
	case "Failed":
		return Status{BundleID: bundleID, State: StateRejected, Reason: "relay simulation failed"}, nil
	case "Invalid":
		// The relay forgets bundles it never accepted; before the first
		// poll lands this can also mean "not seen yet".
		return Status{BundleID: bundleID, State: StateNotFound}, nil
	case "Landed":
		return c.landedStatus(ctx, bundleID, entry.LandedSlot)
	default:
		return Status{}, fmt.Errorf("unknown relay bundle status %q", entry.Status)
	}
}

// landedStatus resolves the landed slot and transaction ids for a bundle
// the relay reports as landed.
func (c *Client) landedStatus(ctx context.Context, bundleID string, landedSlot uint64) (Status, error) {
	var landed struct {
		Value []landedBundleStatus `json:"value"`
	}
	err := c.call(ctx, "getBundleStatuses", []interface{}{[]string{bundleID}}, &landed)
	if err != nil {
		return Status{}, err
	}
	if len(landed.Value) == 0 {
		return Status{BundleID: bundleID, State: StateLanded, Slot: landedSlot}, nil
	}

	entry := landed.Value[0]
	signatures := make([]solana.Signature, 0, len(entry.Transactions))
	for _, s := range entry.Transactions {
		sig, err := solana.SignatureFromBase58(s)
		if err != nil {
			return Status{}, fmt.Errorf("relay returned malformed signature %q: %w", s, err)
		}
		signatures = append(signatures, sig)
	}

	slot := entry.Slot
	if slot == 0 {
		slot = landedSlot
	}
	return Status{
		BundleID:     bundleID,
		State:        StateLanded,
		Slot:         slot,
		Transactions: signatures,
	}, nil
}

// AwaitOutcome polls the bundle status at a bounded interval until the
// bundle lands, is rejected, or the deadline (the blockhash validity
// window) passes. A passed deadline with no terminal signal is expiry, not
// success.
func (c *Client) AwaitOutcome(ctx context.Context, bundleID string, deadline time.Time) (Status, error) {
	ticker := time.NewTicker(c.pollDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Status{}, ctx.Err()
		case <-ticker.C:
			if time.Now().After(deadline) {
				c.logger.Warn("Bundle expired without landing", zap.String("bundle_id", bundleID))
				return Status{BundleID: bundleID, State: StateExpired}, nil
			}

			status, err := c.BundleStatus(ctx, bundleID)
			if err != nil {
				c.logger.Warn("Bundle status poll failed", zap.Error(err))
				continue
			}
			switch status.State {
			case StateLanded, StateRejected:
				return status, nil
			case StatePending, StateNotFound:
				// keep polling until the deadline
			}
		}
	}
}

// IsTransient reports whether a relay error is worth retrying with a fresh
// attempt (overload, timeouts) as opposed to a permanent rejection.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"overloaded",
		"rate limit",
		"timeout",
		"deadline exceeded",
		"connection refused",
		"temporarily unavailable",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsTransientReason classifies a relay rejection reason string. Unknown
// reasons are treated as permanent so a misread transient can never burn
// retries on a bundle the relay will keep refusing.
func IsTransientReason(reason string) bool {
	msg := strings.ToLower(reason)
	for _, marker := range []string{"overload", "congest", "rate limit", "too many"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
