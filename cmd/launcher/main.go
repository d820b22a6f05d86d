// =============================
// File: cmd/launcher/main.go
// =============================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rovshanmuradov/solana-launcher/internal/bundle"
	"github.com/rovshanmuradov/solana-launcher/internal/config"
	"github.com/rovshanmuradov/solana-launcher/internal/jito"
	"github.com/rovshanmuradov/solana-launcher/internal/launch"
	"github.com/rovshanmuradov/solana-launcher/internal/logger"
	"github.com/rovshanmuradov/solana-launcher/internal/metadata"
	"github.com/rovshanmuradov/solana-launcher/internal/solbc"
	"github.com/rovshanmuradov/solana-launcher/internal/wallet"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	name := flag.String("name", "", "token name")
	symbol := flag.String("symbol", "", "token symbol")
	description := flag.String("description", "", "token description")
	imagePath := flag.String("image", "", "path to token image")
	buySOL := flag.Float64("buy-sol", 0, "SOL each wallet spends buying")
	buyers := flag.Int("buyers", launch.MaxBuyerWallets, "number of buyer wallets to use")
	preflight := flag.Bool("preflight", false, "simulate the creation transaction before submitting")
	flag.Parse()

	if *name == "" || *symbol == "" || *buySOL <= 0 {
		fmt.Fprintln(os.Stderr, "usage: launcher -name <name> -symbol <symbol> -buy-sol <amount> [flags]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, runParams{
		name:        *name,
		symbol:      *symbol,
		description: *description,
		imagePath:   *imagePath,
		buySOL:      *buySOL,
		buyers:      *buyers,
		preflight:   *preflight,
	}); err != nil {
		log.LogError("Launch failed", err)
		os.Exit(1)
	}
}

type runParams struct {
	name        string
	symbol      string
	description string
	imagePath   string
	buySOL      float64
	buyers      int
	preflight   bool
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, params runParams) error {
	opLog := log.WithOperation("create_and_buy")

	wallets, err := wallet.LoadWallets(cfg.WalletsFile)
	if err != nil {
		return fmt.Errorf("load wallets: %w", err)
	}
	if len(wallets) < params.buyers+1 {
		return fmt.Errorf("need %d wallets (1 creator + %d buyers), have %d",
			params.buyers+1, params.buyers, len(wallets))
	}
	creator := wallets[0]
	buyers := wallets[1 : params.buyers+1]
	opLog.Info("Wallets loaded",
		zap.String("creator", creator.String()),
		zap.Int("buyers", len(buyers)))

	client := solbc.NewClient(cfg.RPCList[0], opLog)
	relay := jito.NewClient(cfg.JitoURL, time.Duration(cfg.PollDelay)*time.Millisecond, opLog)

	service := launch.NewService(
		client,
		relay,
		cfg.MaxAttempts,
		time.Duration(cfg.BlockhashTTL)*time.Millisecond,
		launch.Config{
			SlippageBPS:    cfg.SlippageBPS,
			ComputeUnits:   cfg.ComputeUnits,
			PriorityFeeSOL: cfg.PriorityFeeSOL,
		},
		opLog,
	)

	uploader := metadata.NewIPFSUploader(cfg.MetadataURL, opLog)
	uri, err := uploader.Upload(ctx, metadata.TokenMetadata{
		Name:        params.name,
		Symbol:      params.symbol,
		Description: params.description,
		ShowName:    true,
	}, params.imagePath)
	if err != nil {
		return fmt.Errorf("upload metadata: %w", err)
	}

	result, err := service.CreateAndBuy(ctx, launch.LaunchParams{
		Creator:     creator,
		Buyers:      buyers,
		Name:        params.name,
		Symbol:      params.symbol,
		MetadataURI: uri,
		Policy:      launch.FixedAmount(bundle.SOLToLamports(params.buySOL)),
		TipLamports: bundle.SOLToLamports(cfg.TipSOL),
		Preflight:   params.preflight,
	})
	if err != nil {
		return err
	}

	opLog.Info("Token launched",
		zap.String("mint", result.Mint.String()),
		zap.Uint64("slot", result.Outcome.Slot),
		zap.Int("attempts", result.Outcome.Attempts),
		zap.Int("transactions", len(result.Outcome.TransactionIDs)))
	fmt.Printf("Token launched: %s (slot %d, %d transactions)\n",
		result.Mint, result.Outcome.Slot, len(result.Outcome.TransactionIDs))
	return nil
}
