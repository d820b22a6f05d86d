// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type Config struct {
	RPCList        []string `mapstructure:"rpc_list"`
	JitoURL        string   `mapstructure:"jito_url"`
	WalletsFile    string   `mapstructure:"wallets_file"`
	TipSOL         float64  `mapstructure:"tip_sol"`
	SlippageBPS    uint64   `mapstructure:"slippage_bps"`
	MaxAttempts    int      `mapstructure:"max_attempts"`
	PollDelay      int      `mapstructure:"poll_delay"`
	BlockhashTTL   int      `mapstructure:"blockhash_ttl"`
	ComputeUnits   uint32   `mapstructure:"compute_units"`
	PriorityFeeSOL string   `mapstructure:"priority_fee_sol"`
	DebugLogging   bool     `mapstructure:"debug_logging"`
	MetadataURL    string   `mapstructure:"metadata_url"`
}

const (
	DefaultSlippageBPS  = 500
	DefaultMaxAttempts  = 3
	DefaultPollDelay    = 500   // ms between bundle status polls
	DefaultBlockhashTTL = 60000 // ms a fetched blockhash is trusted before the attempt is treated as expired
	DefaultComputeUnits = 200_000
	DefaultMetadataURL  = "https://pump.fun/api/ipfs"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"slippage_bps":     DefaultSlippageBPS,
		"max_attempts":     DefaultMaxAttempts,
		"poll_delay":       DefaultPollDelay,
		"blockhash_ttl":    DefaultBlockhashTTL,
		"compute_units":    DefaultComputeUnits,
		"priority_fee_sol": "default",
		"metadata_url":     DefaultMetadataURL,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if cfg.JitoURL != "" {
		if err := validateURLWithCache(cfg.JitoURL, "http"); err != nil {
			return errors.New("invalid Jito URL protocol")
		}
	}
	if cfg.WalletsFile == "" {
		return errors.New("missing wallets_file in configuration")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.TipSOL < 0 {
		return errors.New("invalid tip_sol")
	}
	if cfg.SlippageBPS > 10000 {
		return errors.New("invalid slippage_bps")
	}
	if cfg.MaxAttempts <= 0 {
		return errors.New("invalid max_attempts")
	}
	if cfg.PollDelay <= 0 {
		return errors.New("invalid poll_delay")
	}
	if cfg.BlockhashTTL <= 0 {
		return errors.New("invalid blockhash_ttl")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("SOLANA_LAUNCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envRPCList := v.GetString("RPC_LIST")
	if envRPCList != "" {
		rpcs := strings.Split(envRPCList, ",")
		var cleanRPCs []string
		for _, rpc := range rpcs {
			clean := strings.TrimSpace(rpc)
			if clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}

	envJito := v.GetString("JITO_URL")
	if envJito != "" {
		cfg.JitoURL = envJito
	}
	return nil
}
