// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	RPCURL           string        `mapstructure:"rpc_url"`
	MempoolWSURL     string        `mapstructure:"mempool_ws_url"`
	ListingsWSURL    string        `mapstructure:"listings_ws_url"`
	OracleURL        string        `mapstructure:"oracle_url"`
	PostgresURL      string        `mapstructure:"postgres_url"`
	WalletPrivateKey string        `mapstructure:"wallet_private_key"`
	DebugLogging     bool          `mapstructure:"debug_logging"`
	Scanner          ScannerConfig `mapstructure:"scanner"`
	Mempool          MempoolConfig `mapstructure:"mempool"`
	Router           RouterConfig  `mapstructure:"router"`
	Trading          TradingConfig `mapstructure:"trading"`
}

// ScannerConfig controls the priority scanner.
type ScannerConfig struct {
	Workers          int `mapstructure:"workers"`
	QueueSize        int `mapstructure:"queue_size"`
	DequeueTimeoutMS int `mapstructure:"dequeue_timeout_ms"`
}

// MempoolConfig controls the pending-transaction monitor. The whale
// and burst thresholds are heuristic tuning knobs, not invariants.
type MempoolConfig struct {
	ReconnectDelayMS  int     `mapstructure:"reconnect_delay_ms"`
	WindowSize        int     `mapstructure:"window_size"`
	WhaleThresholdSOL float64 `mapstructure:"whale_threshold_sol"`
	WhaleActionSOL    float64 `mapstructure:"whale_action_sol"`
	SuspiciousFee     uint64  `mapstructure:"suspicious_fee"`
	BurstCount        int     `mapstructure:"burst_count"`
	BurstWindowMS     int     `mapstructure:"burst_window_ms"`
	PatternIntervalMS int     `mapstructure:"pattern_interval_ms"`
	PatternMinWindow  int     `mapstructure:"pattern_min_window"`
	PatternSliceSize  int     `mapstructure:"pattern_slice_size"`
	LPWaveCount       int     `mapstructure:"lp_wave_count"`
	AccumulationSOL   float64 `mapstructure:"accumulation_sol"`
}

// RouterConfig controls the smart order router.
type RouterConfig struct {
	Venues           []string `mapstructure:"venues"`
	QuoteTimeoutMS   int      `mapstructure:"quote_timeout_ms"`
	CacheTTLMS       int      `mapstructure:"cache_ttl_ms"`
	FailureThreshold int      `mapstructure:"failure_threshold"`
	RecoveryTimeoutS int      `mapstructure:"recovery_timeout_s"`
	SplitImprovement float64  `mapstructure:"split_improvement"`
}

// TradingConfig seeds the mutable auto-trade settings at startup.
type TradingConfig struct {
	AutoBuyEnabled     bool    `mapstructure:"auto_buy_enabled"`
	AutoSellEnabled    bool    `mapstructure:"auto_sell_enabled"`
	MinConfidence      float64 `mapstructure:"min_confidence"`
	MaxRisk            float64 `mapstructure:"max_risk"`
	MinPredictedReturn float64 `mapstructure:"min_predicted_return"`
	MaxPerTradeSOL     float64 `mapstructure:"max_per_trade_sol"`
	DailyLimitSOL      float64 `mapstructure:"daily_limit_sol"`
	StopLossPct        float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct      float64 `mapstructure:"take_profit_pct"`
	TrailingStopPct    float64 `mapstructure:"trailing_stop_pct"`
	TrailingMinGainPct float64 `mapstructure:"trailing_min_gain_pct"`
	MaxHoldMinutes     int     `mapstructure:"max_hold_minutes"`
	MonitorIntervalMS  int     `mapstructure:"monitor_interval_ms"`
}

const (
	DefaultWorkers          = 5
	DefaultQueueSize        = 1000
	DefaultDequeueTimeoutMS = 1000
	DefaultReconnectDelayMS = 2000
	DefaultWindowSize       = 10000
	DefaultQuoteTimeoutMS   = 3000
	DefaultCacheTTLMS       = 5000
	DefaultFailureThreshold = 5
	DefaultRecoveryTimeoutS = 60
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"scanner.workers":               DefaultWorkers,
		"scanner.queue_size":            DefaultQueueSize,
		"scanner.dequeue_timeout_ms":    DefaultDequeueTimeoutMS,
		"mempool.reconnect_delay_ms":    DefaultReconnectDelayMS,
		"mempool.window_size":           DefaultWindowSize,
		"mempool.whale_threshold_sol":   1.0,
		"mempool.whale_action_sol":      5.0,
		"mempool.suspicious_fee":        100_000,
		"mempool.burst_count":           5,
		"mempool.burst_window_ms":       1000,
		"mempool.pattern_interval_ms":   5000,
		"mempool.pattern_min_window":    10,
		"mempool.pattern_slice_size":    100,
		"mempool.lp_wave_count":         3,
		"mempool.accumulation_sol":      10.0,
		"router.venues":                 []string{"jupiter", "raydium", "orca"},
		"router.quote_timeout_ms":       DefaultQuoteTimeoutMS,
		"router.cache_ttl_ms":           DefaultCacheTTLMS,
		"router.failure_threshold":      DefaultFailureThreshold,
		"router.recovery_timeout_s":     DefaultRecoveryTimeoutS,
		"router.split_improvement":      0.01,
		"trading.min_confidence":        0.7,
		"trading.max_risk":              0.3,
		"trading.min_predicted_return":  20.0,
		"trading.max_per_trade_sol":     0.2,
		"trading.daily_limit_sol":       2.0,
		"trading.stop_loss_pct":         15.0,
		"trading.take_profit_pct":       50.0,
		"trading.trailing_stop_pct":     20.0,
		"trading.trailing_min_gain_pct": 10.0,
		"trading.max_hold_minutes":      60,
		"trading.monitor_interval_ms":   5000,
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
	if cfg.RPCURL == "" {
		return errors.New("missing rpc_url in configuration")
	}
	if err := validateURL(cfg.RPCURL, "http"); err != nil {
		return errors.New("invalid RPC URL protocol")
	}
	if cfg.MempoolWSURL == "" {
		return errors.New("missing mempool_ws_url in configuration")
	}
	if err := validateURL(cfg.MempoolWSURL, "ws"); err != nil {
		return errors.New("invalid mempool WebSocket URL protocol")
	}
	if cfg.ListingsWSURL != "" {
		if err := validateURL(cfg.ListingsWSURL, "ws"); err != nil {
			return errors.New("invalid listings WebSocket URL protocol")
		}
	}
	if cfg.OracleURL != "" {
		if err := validateURL(cfg.OracleURL, "http"); err != nil {
			return errors.New("invalid oracle URL protocol")
		}
	}
	if len(cfg.Router.Venues) == 0 {
		return errors.New("router.venues is empty")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.Scanner.Workers < 0 {
		return errors.New("invalid scanner.workers count")
	}
	if cfg.Scanner.QueueSize <= 0 {
		return errors.New("invalid scanner.queue_size")
	}
	if cfg.Mempool.ReconnectDelayMS <= 0 {
		return errors.New("invalid mempool.reconnect_delay_ms")
	}
	if cfg.Router.QuoteTimeoutMS <= 0 {
		return errors.New("invalid router.quote_timeout_ms")
	}
	if cfg.Router.FailureThreshold <= 0 {
		return errors.New("invalid router.failure_threshold")
	}
	if cfg.Trading.MaxPerTradeSOL <= 0 {
		return errors.New("invalid trading.max_per_trade_sol")
	}
	if cfg.Trading.DailyLimitSOL < cfg.Trading.MaxPerTradeSOL {
		return errors.New("trading.daily_limit_sol below trading.max_per_trade_sol")
	}
	if cfg.Trading.MonitorIntervalMS <= 0 {
		return errors.New("invalid trading.monitor_interval_ms")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("MEMECOIN_BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envRPC := v.GetString("RPC_URL")
	if envRPC != "" {
		cfg.RPCURL = envRPC
	}

	envPostgres := v.GetString("POSTGRES_URL")
	if envPostgres != "" {
		cfg.PostgresURL = envPostgres
	}

	// The signing key is expected from the environment, never from the
	// config file checked into a repo.
	envKey := v.GetString("WALLET_PRIVATE_KEY")
	if envKey != "" {
		cfg.WalletPrivateKey = envKey
	}
	return nil
}
