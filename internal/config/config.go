package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TokenConfig struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals int32  `yaml:"decimals"`
	Native   bool   `yaml:"native"`
}

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	DB struct {
		DSN string `yaml:"dsn"`
	} `yaml:"db"`
	Auth struct {
		JWTSecret     string `yaml:"jwt_secret"`
		TokenTTLHours int    `yaml:"token_ttl_hours"`
	} `yaml:"auth"`
	Razorpay struct {
		BaseURL       string `yaml:"base_url"`
		KeyID         string `yaml:"key_id"`
		KeySecret     string `yaml:"key_secret"`
		WebhookSecret string `yaml:"webhook_secret"`
		AccountNumber string `yaml:"account_number"`
		MinOrderPaise int64  `yaml:"min_order_paise"`
	} `yaml:"razorpay"`
	Chain struct {
		Adapter         string        `yaml:"adapter"` // "evm" or "null"
		RPCURL          string        `yaml:"rpc_url"`
		ChainID         int64         `yaml:"chain_id"`
		PrivateKey      string        `yaml:"private_key"`
		PaymentContract string        `yaml:"payment_contract"`
		GasReserve      string        `yaml:"gas_reserve"`
		TransferTimeout int           `yaml:"transfer_timeout_seconds"`
		Tokens          []TokenConfig `yaml:"tokens"`
	} `yaml:"chain"`
	Orders struct {
		PendingTTLMinutes int `yaml:"pending_ttl_minutes"`
	} `yaml:"orders"`
	Worker struct {
		IntervalSeconds int64 `yaml:"interval_seconds"`
	} `yaml:"worker"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if cfg.Server.Addr == "" {
		return nil, errors.New("server.addr is required")
	}
	if cfg.DB.DSN == "" {
		return nil, errors.New("db.dsn is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	if cfg.Razorpay.KeyID == "" || cfg.Razorpay.KeySecret == "" {
		return nil, errors.New("razorpay credentials are incomplete")
	}
	if cfg.Chain.Adapter == "evm" && (cfg.Chain.RPCURL == "" || cfg.Chain.PrivateKey == "" || cfg.Chain.ChainID == 0) {
		return nil, errors.New("chain config is incomplete")
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Razorpay.BaseURL == "" {
		cfg.Razorpay.BaseURL = "https://api.razorpay.com/v1"
	}
	if cfg.Razorpay.MinOrderPaise == 0 {
		cfg.Razorpay.MinOrderPaise = 500
	}
	if cfg.Auth.TokenTTLHours == 0 {
		cfg.Auth.TokenTTLHours = 24
	}
	if cfg.Chain.Adapter == "" {
		cfg.Chain.Adapter = "evm"
	}
	if cfg.Chain.GasReserve == "" {
		cfg.Chain.GasReserve = "0.01"
	}
	if cfg.Chain.TransferTimeout == 0 {
		cfg.Chain.TransferTimeout = 90
	}
	if cfg.Orders.PendingTTLMinutes == 0 {
		cfg.Orders.PendingTTLMinutes = 30
	}
	if cfg.Worker.IntervalSeconds == 0 {
		cfg.Worker.IntervalSeconds = 60
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("RAZORPAY_BASE_URL"); v != "" {
		cfg.Razorpay.BaseURL = v
	}
	if v := os.Getenv("RAZORPAY_KEY_ID"); v != "" {
		cfg.Razorpay.KeyID = v
	}
	if v := os.Getenv("RAZORPAY_KEY_SECRET"); v != "" {
		cfg.Razorpay.KeySecret = v
	}
	if v := os.Getenv("RAZORPAY_WEBHOOK_SECRET"); v != "" {
		cfg.Razorpay.WebhookSecret = v
	}
	if v := os.Getenv("RAZORPAYX_ACCOUNT_NUMBER"); v != "" {
		cfg.Razorpay.AccountNumber = v
	}
	if v := os.Getenv("MIN_ORDER_PAISE"); v != "" {
		cfg.Razorpay.MinOrderPaise = atoi64Or(cfg.Razorpay.MinOrderPaise, v)
	}
	if v := os.Getenv("CHAIN_ADAPTER"); v != "" {
		cfg.Chain.Adapter = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("CHAIN_RPC_URL"); v != "" {
		cfg.Chain.RPCURL = v
	}
	if v := os.Getenv("CHAIN_ID"); v != "" {
		cfg.Chain.ChainID = atoi64Or(cfg.Chain.ChainID, v)
	}
	if v := os.Getenv("CHAIN_PRIVATE_KEY"); v != "" {
		cfg.Chain.PrivateKey = v
	}
	if v := os.Getenv("PAYMENT_CONTRACT_ADDRESS"); v != "" {
		cfg.Chain.PaymentContract = v
	}
	if v := os.Getenv("CHAIN_GAS_RESERVE"); v != "" {
		cfg.Chain.GasReserve = v
	}
	if v := os.Getenv("TRANSFER_TIMEOUT_SECONDS"); v != "" {
		cfg.Chain.TransferTimeout = atoiOr(cfg.Chain.TransferTimeout, v)
	}
	if v := os.Getenv("PENDING_TTL_MINUTES"); v != "" {
		cfg.Orders.PendingTTLMinutes = atoiOr(cfg.Orders.PendingTTLMinutes, v)
	}
	if v := os.Getenv("WORKER_INTERVAL_SECONDS"); v != "" {
		cfg.Worker.IntervalSeconds = atoi64Or(cfg.Worker.IntervalSeconds, v)
	}
}

func atoiOr(fallback int, v string) int {
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func atoi64Or(fallback int64, v string) int64 {
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}
