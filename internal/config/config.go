package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"solana-token-market/internal/lplock"
	"solana-token-market/internal/market"
	"solana-token-market/internal/pricing"
	"solana-token-market/internal/solana"
)

// DefaultRPC is the public mainnet endpoint.
const DefaultRPC = "https://api.mainnet-beta.solana.com"

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL              string
	RPCTimeout          time.Duration
	PriceTTL            time.Duration
	PriceMin            float64
	PriceMax            float64
	DefaultNativePrice  float64
	ReferenceBaseVault  string
	ReferenceQuoteVault string
	StableMints         []string
	LockPrograms        []string
	TopHolders          int
	SignatureLimit      int
	LogLevel            string
	Addr                string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("rpc", DefaultRPC)
	v.SetDefault("rpc-timeout", solana.DefaultTimeout)
	v.SetDefault("price-ttl", pricing.DefaultTTL)
	v.SetDefault("price-min", pricing.DefaultMinPrice)
	v.SetDefault("price-max", pricing.DefaultMaxPrice)
	v.SetDefault("default-native-price", pricing.DefaultPrice)
	v.SetDefault("reference-base-vault", pricing.DefaultNativeVault)
	v.SetDefault("reference-quote-vault", pricing.DefaultStableVault)
	v.SetDefault("stable-mints", []string{market.USDCMint, market.USDTMint})
	v.SetDefault("lock-programs", lplock.DefaultLockPrograms)
	v.SetDefault("top-holders", lplock.DefaultTopHolders)
	v.SetDefault("signature-limit", market.DefaultSignatureLimit)
	v.SetDefault("log-level", "info")
	v.SetDefault("addr", ":8080")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:              v.GetString("rpc"),
		RPCTimeout:          v.GetDuration("rpc-timeout"),
		PriceTTL:            v.GetDuration("price-ttl"),
		PriceMin:            v.GetFloat64("price-min"),
		PriceMax:            v.GetFloat64("price-max"),
		DefaultNativePrice:  v.GetFloat64("default-native-price"),
		ReferenceBaseVault:  v.GetString("reference-base-vault"),
		ReferenceQuoteVault: v.GetString("reference-quote-vault"),
		StableMints:         getStringSlice(v, "stable-mints"),
		LockPrograms:        getStringSlice(v, "lock-programs"),
		TopHolders:          v.GetInt("top-holders"),
		SignatureLimit:      v.GetInt("signature-limit"),
		LogLevel:            v.GetString("log-level"),
		Addr:                v.GetString("addr"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges that would otherwise fail later at runtime.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.PriceMin <= 0 || c.PriceMax <= c.PriceMin {
		return fmt.Errorf("invalid price band [%v, %v]", c.PriceMin, c.PriceMax)
	}
	if c.DefaultNativePrice < c.PriceMin || c.DefaultNativePrice > c.PriceMax {
		return fmt.Errorf("default native price %v outside band [%v, %v]", c.DefaultNativePrice, c.PriceMin, c.PriceMax)
	}
	return nil
}

// Market converts c into the market service configuration.
func (c Config) Market() market.Config {
	return market.Config{
		Oracle: pricing.Config{
			TTL:          c.PriceTTL,
			InitialPrice: c.DefaultNativePrice,
			MinPrice:     c.PriceMin,
			MaxPrice:     c.PriceMax,
			NativeVault:  c.ReferenceBaseVault,
			StableVault:  c.ReferenceQuoteVault,
		},
		Lock: lplock.Config{
			TopHolders:   c.TopHolders,
			LockPrograms: c.LockPrograms,
		},
		StableMints:    c.StableMints,
		SignatureLimit: c.SignatureLimit,
	}
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
