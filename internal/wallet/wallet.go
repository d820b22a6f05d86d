// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Wallet is a Solana signing identity. The launcher borrows it for the
// duration of one signing operation; key material never leaves the struct.
type Wallet struct {
	Name       string
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey

	mu       sync.RWMutex
	ataCache map[string]solana.PublicKey
}

// New creates a wallet from a base58-encoded private key.
func New(name, privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	privateKey := solana.PrivateKey(privateKeyBytes)
	return &Wallet{
		Name:       name,
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
		ataCache:   make(map[string]solana.PublicKey),
	}, nil
}

// Generate creates a fresh ephemeral identity. Used for the token mint,
// whose public half becomes the token address; generated once per launch.
func Generate(name string) *Wallet {
	account := solana.NewWallet()
	return &Wallet{
		Name:       name,
		PrivateKey: account.PrivateKey,
		PublicKey:  account.PublicKey(),
		ataCache:   make(map[string]solana.PublicKey),
	}
}

// LoadWallets reads wallets from a CSV file with columns [Name, PrivateKeyBase58].
// Rows that fail to parse are skipped. Order is preserved because the
// transaction order of a bundle follows the caller-supplied wallet order.
func LoadWallets(path string) ([]*Wallet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV file is empty or missing data")
	}

	wallets := make([]*Wallet, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) != 2 {
			continue
		}
		w, err := New(record[0], record[1])
		if err != nil {
			continue
		}
		wallets = append(wallets, w)
	}
	if len(wallets) == 0 {
		return nil, fmt.Errorf("no valid wallets in %s", path)
	}
	return wallets, nil
}

// SignTransaction signs a transaction with this wallet's key plus any extra
// signers (the mint identity co-signs the creation transaction).
func (w *Wallet) SignTransaction(tx *solana.Transaction, extra ...solana.PrivateKey) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		for i := range extra {
			if key.Equals(extra[i].PublicKey()) {
				return &extra[i]
			}
		}
		return nil
	})
	return err
}

// GetATA returns the associated token account address for the given mint.
// Derivations are cached; wallets sign concurrently during bundle assembly,
// so the cache is guarded.
func (w *Wallet) GetATA(mint solana.PublicKey) (solana.PublicKey, error) {
	mintStr := mint.String()

	w.mu.RLock()
	ata, ok := w.ataCache[mintStr]
	w.mu.RUnlock()
	if ok {
		return ata, nil
	}

	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}

	w.mu.Lock()
	w.ataCache[mintStr] = ata
	w.mu.Unlock()
	return ata, nil
}

// String returns the wallet's public key.
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
