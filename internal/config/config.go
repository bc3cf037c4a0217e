package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"WalletCampaign/internal/secrets"
)

// Config holds all application configuration.
type Config struct {
	Env     string `yaml:"env" envconfig:"APP_ENV"`
	LogFile string `yaml:"log_file" envconfig:"LOG_FILE"`

	Telegram struct {
		BotToken string `yaml:"bot_token" envconfig:"TELEGRAM_BOT_TOKEN"`
		ChatID   string `yaml:"chat_id" envconfig:"TELEGRAM_CHAT_ID"`
	} `yaml:"telegram"`
	Page struct {
		BaseURL     string        `yaml:"base_url" envconfig:"CAMPAIGN_BASE_URL"`
		CardTimeout time.Duration `yaml:"card_timeout" envconfig:"CARD_TIMEOUT"`
		Mock        bool          `yaml:"mock" envconfig:"PAGE_MOCK"`
	} `yaml:"page"`
	Ledger struct {
		RPCURL          string        `yaml:"rpc_url" envconfig:"RPC_URL"`
		ChainID         int64         `yaml:"chain_id" envconfig:"CHAIN_ID"`
		TokenContract   string        `yaml:"token_contract" envconfig:"TOKEN_CONTRACT"`
		Recipient       string        `yaml:"recipient" envconfig:"TRANSFER_RECIPIENT"`
		TransferAmount  string        `yaml:"transfer_amount" envconfig:"TRANSFER_AMOUNT"`
		DepositAmount   string        `yaml:"deposit_amount" envconfig:"DEPOSIT_AMOUNT"`
		ConfirmTimeout  time.Duration `yaml:"confirm_timeout" envconfig:"CONFIRM_TIMEOUT"`
		BalanceCacheTTL time.Duration `yaml:"balance_cache_ttl" envconfig:"BALANCE_CACHE_TTL"`

		transfer decimal.Decimal
		deposit  decimal.Decimal
	} `yaml:"ledger"`
	Campaign struct {
		StateFile         string        `yaml:"state_file" envconfig:"STATE_FILE"`
		MaxSpinsPerWallet int           `yaml:"max_spins_per_wallet" envconfig:"MAX_SPINS_PER_WALLET"`
		SpinDelayMin      time.Duration `yaml:"spin_delay_min" envconfig:"SPIN_DELAY_MIN"`
		SpinDelayMax      time.Duration `yaml:"spin_delay_max" envconfig:"SPIN_DELAY_MAX"`
		IdleDelayMin      time.Duration `yaml:"idle_delay_min" envconfig:"IDLE_DELAY_MIN"`
		IdleDelayMax      time.Duration `yaml:"idle_delay_max" envconfig:"IDLE_DELAY_MAX"`
	} `yaml:"campaign"`
	Secrets struct {
		EncryptedFile string `yaml:"encrypted_file" envconfig:"SECRETS_FILE"`
		PlainFile     string `yaml:"plain_file" envconfig:"KEYS_FILE"`
		Iterations    int    `yaml:"iterations" envconfig:"SECRETS_KDF_ITERATIONS"`
	} `yaml:"secrets"`
	Schedule struct {
		RunCron    string `yaml:"run_cron" envconfig:"CRON_RUN"`
		SweepCron  string `yaml:"sweep_cron" envconfig:"CRON_SWEEP"`
		RunOnStart bool   `yaml:"run_on_start" envconfig:"RUN_ON_START"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy" envconfig:"HTTPS_PROXY"`
}

// Load reads config from a YAML file, then a .env file, then environment variable
// overrides, and finally fills defaults. Missing files are not errors.
func Load(path, envFile string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "production"
	}
	if c.Page.CardTimeout == 0 {
		c.Page.CardTimeout = 30 * time.Second
	}
	if c.Ledger.TransferAmount == "" {
		c.Ledger.TransferAmount = "0.00001"
	}
	if c.Ledger.DepositAmount == "" {
		c.Ledger.DepositAmount = "0.0001"
	}
	if c.Ledger.ConfirmTimeout == 0 {
		c.Ledger.ConfirmTimeout = 3 * time.Minute
	}
	if c.Ledger.BalanceCacheTTL == 0 {
		c.Ledger.BalanceCacheTTL = 30 * time.Second
	}
	if c.Campaign.StateFile == "" {
		c.Campaign.StateFile = "data/wallet_state.json"
	}
	if c.Campaign.MaxSpinsPerWallet == 0 {
		c.Campaign.MaxSpinsPerWallet = 10
	}
	if c.Campaign.SpinDelayMin == 0 {
		c.Campaign.SpinDelayMin = 15 * time.Second
	}
	if c.Campaign.SpinDelayMax == 0 {
		c.Campaign.SpinDelayMax = 45 * time.Second
	}
	if c.Campaign.IdleDelayMin == 0 {
		c.Campaign.IdleDelayMin = 30 * time.Second
	}
	if c.Campaign.IdleDelayMax == 0 {
		c.Campaign.IdleDelayMax = 120 * time.Second
	}
	if c.Secrets.EncryptedFile == "" {
		c.Secrets.EncryptedFile = "data/secrets.enc"
	}
	if c.Secrets.PlainFile == "" {
		c.Secrets.PlainFile = "data/keys.txt"
	}
	if c.Secrets.Iterations == 0 {
		c.Secrets.Iterations = secrets.DefaultIterations
	}
	if c.Schedule.RunCron == "" {
		c.Schedule.RunCron = "0 10 3 * * *"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/campaign.db"
	}
}

// Validate checks that all required fields are set and parses the amounts.
func (c *Config) Validate() error {
	if !c.Page.Mock && c.Page.BaseURL == "" {
		return fmt.Errorf("page.base_url is required")
	}
	if c.Ledger.RPCURL == "" {
		return fmt.Errorf("ledger.rpc_url is required")
	}
	if c.Ledger.TokenContract == "" {
		return fmt.Errorf("ledger.token_contract is required")
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when bot_token is set")
	}

	var err error
	if c.Ledger.transfer, err = positiveAmount("ledger.transfer_amount", c.Ledger.TransferAmount); err != nil {
		return err
	}
	if c.Ledger.deposit, err = positiveAmount("ledger.deposit_amount", c.Ledger.DepositAmount); err != nil {
		return err
	}

	if c.Campaign.MaxSpinsPerWallet <= 0 {
		return fmt.Errorf("campaign.max_spins_per_wallet must be positive")
	}
	if c.Campaign.SpinDelayMin < 0 || c.Campaign.SpinDelayMax < c.Campaign.SpinDelayMin {
		return fmt.Errorf("campaign.spin_delay_min/max must satisfy 0 <= min <= max")
	}
	if c.Campaign.IdleDelayMin < 0 || c.Campaign.IdleDelayMax < c.Campaign.IdleDelayMin {
		return fmt.Errorf("campaign.idle_delay_min/max must satisfy 0 <= min <= max")
	}
	if c.Secrets.Iterations < secrets.MinIterations {
		return fmt.Errorf("secrets.iterations must be at least %d", secrets.MinIterations)
	}
	return nil
}

// TransferAmount is the parsed daily transfer amount. Valid after Validate.
func (c *Config) TransferAmount() decimal.Decimal { return c.Ledger.transfer }

// DepositAmount is the parsed top-up amount. Valid after Validate.
func (c *Config) DepositAmount() decimal.Decimal { return c.Ledger.deposit }

// NotifierEnabled reports whether Telegram is configured.
func (c *Config) NotifierEnabled() bool { return c.Telegram.BotToken != "" }

func positiveAmount(name, v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %q is not a decimal", name, v)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s must be positive", name)
	}
	return d, nil
}
