package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/linlinbupt123-crypto/wallet_bot/utils"
)

type Config struct {
	Port    string        `mapstructure:"port"`
	Log     LogConfig     `mapstructure:"log"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Custody CustodyConfig `mapstructure:"custody"`
	Chain   ChainConfig   `mapstructure:"chain"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// MongoConfig configures the withdrawal journal. An empty URI disables it.
type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// CustodyConfig holds the credentials of the remote wallet API. SecretKey
// signs every request and must never be logged.
type CustodyConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	SecretKey  string        `mapstructure:"secret_key"`
	Passphrase string        `mapstructure:"passphrase"`
	ProjectID  string        `mapstructure:"project_id"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type ChainConfig struct {
	Index          string `mapstructure:"index"` // numeric chain identifier, also the EIP-155 chain id
	DerivationPath string `mapstructure:"derivation_path"`
}

// ChainID parses Index as a big integer.
func (c ChainConfig) ChainID() (*big.Int, error) {
	id, ok := new(big.Int).SetString(c.Index, 10)
	if !ok || id.Sign() <= 0 {
		return nil, fmt.Errorf("invalid chain index %q", c.Index)
	}
	return id, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "wallet_bot")
	v.SetDefault("custody.base_url", "https://www.okx.com")
	v.SetDefault("custody.api_key", "")
	v.SetDefault("custody.secret_key", "")
	v.SetDefault("custody.passphrase", "")
	v.SetDefault("custody.project_id", "")
	v.SetDefault("custody.timeout", 30*time.Second)
	v.SetDefault("chain.index", "1")
	v.SetDefault("chain.derivation_path", utils.ETH_DERIVATION_PATH)
}

// Load reads the YAML file at path. Variables from an optional .env file and
// the process environment override it (custody.api_key -> CUSTODY_API_KEY).
// A missing config file is not an error; defaults and env apply.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration that would make every remote call fail.
func (c *Config) Validate() error {
	var missing []string
	if c.Custody.BaseURL == "" {
		missing = append(missing, "custody.base_url")
	}
	if c.Custody.APIKey == "" {
		missing = append(missing, "custody.api_key")
	}
	if c.Custody.SecretKey == "" {
		missing = append(missing, "custody.secret_key")
	}
	if c.Custody.Passphrase == "" {
		missing = append(missing, "custody.passphrase")
	}
	if c.Custody.ProjectID == "" {
		missing = append(missing, "custody.project_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing config: %s", strings.Join(missing, ", "))
	}
	if _, err := c.Chain.ChainID(); err != nil {
		return err
	}
	return nil
}
