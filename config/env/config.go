package env

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"slices"

	"github.com/spf13/viper"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
)

// StarknetConfig is the configuration of the account signing Starknet transactions.
//
// WARNING: This data type contains sensitive fields and should not be logged or set in file
// configuration.
type StarknetConfig struct {
	AccountAddress string  `mapstructure:"account_address" yaml:"account_address"` // The address of the account contract
	PublicKey      string  `mapstructure:"public_key" yaml:"public_key"`           // The stark public key of the account
	PrivateKey     string  `mapstructure:"private_key" yaml:"private_key"`         // Secret: The stark private key of the account
	CairoVersion   int     `mapstructure:"cairo_version" yaml:"cairo_version"`     // The Cairo version of the account contract
	FeeMultiplier  float64 `mapstructure:"fee_multiplier" yaml:"fee_multiplier"`   // Multiplier applied to estimated fees
}

// OnchainConfig wraps the configuration for the onchain components.
type OnchainConfig struct {
	Starknet StarknetConfig `mapstructure:"starknet" yaml:"starknet"`
}

// Config wraps the entire configuration.
type Config struct {
	Onchain OnchainConfig `mapstructure:"onchain" yaml:"onchain"`
}

var ErrNoAccount = errors.New("no starknet account configured")

// Signer converts the account configuration into a starknet.Signer. It fails with ErrNoAccount
// when no account address is set, so read-only commands can run without an account.
func (c StarknetConfig) Signer() (starknet.Signer, error) {
	if c.AccountAddress == "" {
		return starknet.Signer{}, ErrNoAccount
	}

	addr, err := starknet.ParseFelt(c.AccountAddress)
	if err != nil {
		return starknet.Signer{}, fmt.Errorf("invalid account address: %w", err)
	}
	if c.PublicKey == "" {
		return starknet.Signer{}, errors.New("public key is required")
	}
	if _, err = starknet.ParseFelt(c.PublicKey); err != nil {
		return starknet.Signer{}, fmt.Errorf("invalid public key: %w", err)
	}
	if c.PrivateKey == "" {
		return starknet.Signer{}, errors.New("private key is required")
	}
	priv, ok := new(big.Int).SetString(c.PrivateKey, 0)
	if !ok || priv.Sign() <= 0 {
		// never echo the key
		return starknet.Signer{}, errors.New("invalid private key")
	}

	return starknet.Signer{
		Address:    addr,
		PublicKey:  c.PublicKey,
		PrivateKey: priv,
	}, nil
}

// Load loads the config from the file path, falling back to env vars if the file does not exist.
// If the file exists, any env vars that are set will override the values loaded from the file.
func Load(filePath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filePath)

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	err := v.Unmarshal(cfg)

	return cfg, err
}

// LoadEnv loads the config from the environment variables.
func LoadEnv() (*Config, error) {
	v := viper.New()

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	cfg := &Config{}
	err := v.Unmarshal(cfg)

	return cfg, err
}

// envBindings maps config keys to the environment variables that can provide them. The first
// name is preferred; the second is the name used by the common Starknet tooling.
var envBindings = map[string][]string{
	"onchain.starknet.account_address": {"ONCHAIN_STARKNET_ACCOUNT_ADDRESS", "STARKNET_ACCOUNT_ADDRESS"},
	"onchain.starknet.public_key":      {"ONCHAIN_STARKNET_PUBLIC_KEY", "STARKNET_PUBLIC_KEY"},
	"onchain.starknet.private_key":     {"ONCHAIN_STARKNET_PRIVATE_KEY", "STARKNET_PRIVATE_KEY"},
	"onchain.starknet.cairo_version":   {"ONCHAIN_STARKNET_CAIRO_VERSION"},
	"onchain.starknet.fee_multiplier":  {"ONCHAIN_STARKNET_FEE_MULTIPLIER"},
}

// bindEnvs binds the environment variables to the viper instance.
func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		inputs := slices.Insert(slices.Clone(envs), 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}
