// =============================
// File: internal/launch/service_test.go
// =============================
package launch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-launcher/internal/bundle"
	"github.com/rovshanmuradov/solana-launcher/internal/jito"
	"github.com/rovshanmuradov/solana-launcher/internal/pumpfun"
	"github.com/rovshanmuradov/solana-launcher/internal/solbc"
	"github.com/rovshanmuradov/solana-launcher/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// pumpfunGlobalAddr is the derived global state address; fixed because the
// derivation is deterministic.
const pumpfunGlobalAddr = "4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf"

func testGlobalAccount(t *testing.T) ([]byte, *pumpfun.GlobalAccount) {
	t.Helper()
	account := &pumpfun.GlobalAccount{
		Initialized:                 true,
		Authority:                   solana.NewWallet().PublicKey(),
		FeeRecipient:                solana.NewWallet().PublicKey(),
		InitialVirtualTokenReserves: 1_073_000_000_000_000,
		InitialVirtualSolReserves:   30_000_000_000,
		InitialRealTokenReserves:    793_100_000_000_000,
		TokenTotalSupply:            1_000_000_000_000_000,
		FeeBasisPoints:              100,
	}
	data, err := bin.MarshalBorsh(account)
	require.NoError(t, err)
	return data, account
}

type rpcRequest struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

// fakeLedgerServer imitates the subset of the Solana JSON-RPC surface the
// launch pipeline touches.
type fakeLedgerServer struct {
	globalData []byte
	blockhash  solana.Hash
}

func (f *fakeLedgerServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var result interface{}
	switch req.Method {
	case "getLatestBlockhash":
		result = map[string]interface{}{
			"context": map[string]interface{}{"slot": 100},
			"value": map[string]interface{}{
				"blockhash":            f.blockhash.String(),
				"lastValidBlockHeight": 200,
			},
		}
	case "getAccountInfo":
		pubkey, _ := req.Params[0].(string)
		var value interface{}
		if pubkey == pumpfunGlobalAddr {
			value = map[string]interface{}{
				"data":       []string{base64.StdEncoding.EncodeToString(f.globalData), "base64"},
				"executable": false,
				"lamports":   1_000_000,
				"owner":      pumpfun.PumpFunProgramID.String(),
				"rentEpoch":  0,
			}
		}
		result = map[string]interface{}{
			"context": map[string]interface{}{"slot": 100},
			"value":   value,
		}
	default:
		http.Error(w, "unexpected method "+req.Method, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"result":  result,
	})
}

// fakeRelayServer imitates the Jito bundle endpoints, landing every bundle.
type fakeRelayServer struct {
	tipAccount solana.PublicKey
	bundles    [][]string
}

func (f *fakeRelayServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var result interface{}
	switch req.Method {
	case "getTipAccounts":
		result = []string{f.tipAccount.String()}
	case "sendBundle":
		encoded, _ := req.Params[0].([]interface{})
		batch := make([]string, 0, len(encoded))
		for _, e := range encoded {
			batch = append(batch, e.(string))
		}
		f.bundles = append(f.bundles, batch)
		result = "test-bundle-id"
	case "getInflightBundleStatuses":
		result = map[string]interface{}{
			"value": []map[string]interface{}{
				{"bundle_id": "test-bundle-id", "status": "Landed", "landed_slot": 555},
			},
		}
	case "getBundleStatuses":
		result = map[string]interface{}{"value": []interface{}{}}
	default:
		http.Error(w, "unexpected method "+req.Method, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"result":  result,
	})
}

func newTestService(t *testing.T, ledgerURL, relayURL string) *Service {
	t.Helper()
	client := solbc.NewClient(ledgerURL, zap.NewNop())
	relay := jito.NewClient(relayURL, 10*time.Millisecond, zap.NewNop())
	return NewService(client, relay, 3, time.Minute, Config{
		SlippageBPS:  500,
		ComputeUnits: 200_000,
	}, zap.NewNop())
}

func decodeBundle(t *testing.T, encoded []string) []*solana.Transaction {
	t.Helper()
	txs := make([]*solana.Transaction, 0, len(encoded))
	for _, e := range encoded {
		raw, err := base64.StdEncoding.DecodeString(e)
		require.NoError(t, err)
		tx, err := solana.TransactionFromBytes(raw)
		require.NoError(t, err)
		txs = append(txs, tx)
	}
	return txs
}

func TestCreateAndBuy_BundleShape(t *testing.T) {
	globalData, _ := testGlobalAccount(t)
	ledger := &fakeLedgerServer{globalData: globalData, blockhash: solana.Hash{7}}
	relay := &fakeRelayServer{tipAccount: solana.NewWallet().PublicKey()}

	ledgerServer := httptest.NewServer(ledger)
	defer ledgerServer.Close()
	relayServer := httptest.NewServer(relay)
	defer relayServer.Close()

	service := newTestService(t, ledgerServer.URL, relayServer.URL)

	creator := wallet.Generate("creator")
	buyers := []*wallet.Wallet{
		wallet.Generate("buyer1"),
		wallet.Generate("buyer2"),
		wallet.Generate("buyer3"),
	}

	result, err := service.CreateAndBuy(context.Background(), LaunchParams{
		Creator:     creator,
		Buyers:      buyers,
		Name:        "MyToken",
		Symbol:      "MTK",
		MetadataURI: "https://ipfs.io/ipfs/QmTest",
		Policy:      FixedAmount(1_000_000_000),
		TipLamports: 100_000,
	})
	require.NoError(t, err)

	assert.Equal(t, bundle.OutcomeLanded, result.Outcome.Status)
	assert.Equal(t, uint64(555), result.Outcome.Slot)
	assert.Equal(t, 1, result.Outcome.Attempts)
	assert.False(t, result.Mint.IsZero())

	require.Len(t, relay.bundles, 1)
	txs := decodeBundle(t, relay.bundles[0])
	require.Len(t, txs, 5, "creation + 3 buys + fee bid")
	assert.Len(t, result.Outcome.TransactionIDs, 5)

	// One shared blockhash across the whole bundle.
	for _, tx := range txs {
		assert.Equal(t, txs[0].Message.RecentBlockhash, tx.Message.RecentBlockhash)
	}

	// Creation first: pays from the creator, co-signed by the mint identity.
	createTx := txs[0]
	assert.Equal(t, creator.PublicKey, createTx.Message.AccountKeys[0])
	assert.Len(t, createTx.Signatures, 2)
	createProgram, err := createTx.Message.Program(createTx.Message.Instructions[0].ProgramIDIndex)
	require.NoError(t, err)
	assert.Equal(t, pumpfun.PumpFunProgramID, createProgram)

	// Buys in wallet order, each with its token-account creation prepended.
	for i, buyer := range buyers {
		tx := txs[i+1]
		assert.Equal(t, buyer.PublicKey, tx.Message.AccountKeys[0], "buy %d out of order", i)
		require.Len(t, tx.Message.Instructions, 2)
		ataProgram, err := tx.Message.Program(tx.Message.Instructions[0].ProgramIDIndex)
		require.NoError(t, err)
		assert.Equal(t, pumpfun.AssociatedTokenProgramID, ataProgram)
		buyProgram, err := tx.Message.Program(tx.Message.Instructions[1].ProgramIDIndex)
		require.NoError(t, err)
		assert.Equal(t, pumpfun.PumpFunProgramID, buyProgram)
	}

	// Fee bid last: one system transfer to the relay's tip account.
	tipTx := txs[4]
	require.Len(t, tipTx.Message.Instructions, 1)
	tipProgram, err := tipTx.Message.Program(tipTx.Message.Instructions[0].ProgramIDIndex)
	require.NoError(t, err)
	assert.Equal(t, solana.SystemProgramID, tipProgram)
	assert.Contains(t, tipTx.Message.AccountKeys, relay.tipAccount)
}

func TestCreateAndBuy_SuccessiveBuysPricedSequentially(t *testing.T) {
	globalData, global := testGlobalAccount(t)
	ledger := &fakeLedgerServer{globalData: globalData, blockhash: solana.Hash{8}}
	relay := &fakeRelayServer{tipAccount: solana.NewWallet().PublicKey()}

	ledgerServer := httptest.NewServer(ledger)
	defer ledgerServer.Close()
	relayServer := httptest.NewServer(relay)
	defer relayServer.Close()

	service := newTestService(t, ledgerServer.URL, relayServer.URL)

	_, err := service.CreateAndBuy(context.Background(), LaunchParams{
		Creator:     wallet.Generate("creator"),
		Buyers:      []*wallet.Wallet{wallet.Generate("b1"), wallet.Generate("b2")},
		Name:        "T",
		Symbol:      "T",
		MetadataURI: "u",
		Policy:      FixedAmount(1_000_000_000),
		TipLamports: 100_000,
	})
	require.NoError(t, err)

	txs := decodeBundle(t, relay.bundles[0])
	first := buyTokenAmount(t, txs[1])
	second := buyTokenAmount(t, txs[2])

	// The first wallet buys at the launch price.
	expected, err := global.InitialCurve().BuyTokensForSol(1_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, expected, first)

	// The second wallet is priced against the post-first-buy curve.
	assert.Less(t, second, first)
}

// buyTokenAmount pulls the token amount argument out of a buy transaction.
func buyTokenAmount(t *testing.T, tx *solana.Transaction) uint64 {
	t.Helper()
	data := tx.Message.Instructions[1].Data
	require.GreaterOrEqual(t, len(data), 24)
	var amount uint64
	for i := 0; i < 8; i++ {
		amount |= uint64(data[8+i]) << (8 * i)
	}
	return amount
}

func TestCreateAndBuy_TooManyWallets(t *testing.T) {
	// Deliberately unreachable endpoints: the ceiling check must fire
	// before any network traffic.
	service := newTestService(t, "http://ledger.invalid", "http://relay.invalid")

	buyers := make([]*wallet.Wallet, MaxBuyerWallets+1)
	for i := range buyers {
		buyers[i] = wallet.Generate("b")
	}

	_, err := service.CreateAndBuy(context.Background(), LaunchParams{
		Creator:     wallet.Generate("creator"),
		Buyers:      buyers,
		Name:        "T",
		Symbol:      "T",
		MetadataURI: "u",
		Policy:      FixedAmount(1_000_000_000),
		TipLamports: 100_000,
	})
	assert.ErrorIs(t, err, bundle.ErrBundleTooLarge)
}

func TestCreateAndBuy_Validation(t *testing.T) {
	service := newTestService(t, "http://ledger.invalid", "http://relay.invalid")

	_, err := service.CreateAndBuy(context.Background(), LaunchParams{
		Buyers: []*wallet.Wallet{wallet.Generate("b")},
	})
	assert.ErrorContains(t, err, "creator")

	_, err = service.CreateAndBuy(context.Background(), LaunchParams{
		Creator: wallet.Generate("c"),
	})
	assert.ErrorContains(t, err, "buyer")
}

func TestCreateAndBuy_FreshMintPerLaunch(t *testing.T) {
	globalData, _ := testGlobalAccount(t)
	ledger := &fakeLedgerServer{globalData: globalData, blockhash: solana.Hash{9}}
	relay := &fakeRelayServer{tipAccount: solana.NewWallet().PublicKey()}

	ledgerServer := httptest.NewServer(ledger)
	defer ledgerServer.Close()
	relayServer := httptest.NewServer(relay)
	defer relayServer.Close()

	service := newTestService(t, ledgerServer.URL, relayServer.URL)

	params := LaunchParams{
		Creator:     wallet.Generate("creator"),
		Buyers:      []*wallet.Wallet{wallet.Generate("b")},
		Name:        "T",
		Symbol:      "T",
		MetadataURI: "u",
		Policy:      FixedAmount(1_000_000_000),
		TipLamports: 100_000,
	}

	first, err := service.CreateAndBuy(context.Background(), params)
	require.NoError(t, err)
	second, err := service.CreateAndBuy(context.Background(), params)
	require.NoError(t, err)

	assert.NotEqual(t, first.Mint, second.Mint, "each launch must mint a fresh identity")
}

func TestAmountPolicy(t *testing.T) {
	params := LaunchParams{Amounts: []uint64{100, 200}}

	first, err := params.amountFor(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), first)

	_, err = params.amountFor(5)
	assert.Error(t, err, "explicit amounts must cover every wallet")

	params = LaunchParams{Policy: FixedAmount(42)}
	amount, err := params.amountFor(7)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), amount)

	params = LaunchParams{}
	_, err = params.amountFor(0)
	assert.Error(t, err)
}
