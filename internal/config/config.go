// Package config defines the data structures related to configuration and
// includes functions for loading and parsing the config.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/josz5930/CDC-Value-For-You/internal/profile"
	"github.com/josz5930/CDC-Value-For-You/pkg/constants"
	"github.com/josz5930/CDC-Value-For-You/pkg/denomination"
	"github.com/josz5930/CDC-Value-For-You/pkg/validation"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. VOUCHER_LOGGING_LEVEL.
const EnvPrefix = "VOUCHER"

// Configuration holds all configuration for voucher-value.
type Configuration struct {
	Logging  LoggingConfig `yaml:"logging,omitempty" mapstructure:"logging"`
	Output   OutputConfig  `yaml:"output,omitempty" mapstructure:"output"`
	Defaults profile.Input `yaml:"defaults,omitempty" mapstructure:"defaults"`
	Wallets  WalletConfig  `yaml:"wallets,omitempty" mapstructure:"wallets"`
	Server   ServerSection `yaml:"server,omitempty" mapstructure:"server"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" mapstructure:"format"` // pretty, csv, json
}

// WalletConfig lists the voucher stacks used for wallet simulation. Empty
// lists fall back to the CDC presets.
type WalletConfig struct {
	Regular     []denomination.Unit `yaml:"regular,omitempty" mapstructure:"regular"`
	Supermarket []denomination.Unit `yaml:"supermarket,omitempty" mapstructure:"supermarket"`
}

// ServerSection points at the HTTP server's own YAML file.
type ServerSection struct {
	ConfigFile string `yaml:"configFile,omitempty" mapstructure:"configFile"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config, %s", err)
	}
	return decode(v)
}

// Default returns the configuration used when no file is given.
func Default() *Configuration {
	conf, err := decode(newViper())
	if err != nil {
		// Defaults alone always decode.
		panic(err)
	}
	return conf
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := profile.Defaults()
	v.SetDefault("logging.level", "")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("defaults.voucherAmount", defaults.VoucherAmount)
	v.SetDefault("defaults.voucherDenomination", defaults.VoucherDenomination)
	v.SetDefault("defaults.supermarketSpend", defaults.SupermarketSpend)
	v.SetDefault("defaults.supermarketVisits", defaults.SupermarketVisits)
	v.SetDefault("defaults.heartlandSpend", defaults.HeartlandSpend)
	v.SetDefault("defaults.heartlandVisits", defaults.HeartlandVisits)
	v.SetDefault("defaults.wtpPercentage", defaults.WTPPercentage)
	v.SetDefault("server.configFile", constants.DefaultServerConfigFile)
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}

// RegularWallet returns the configured regular wallet, or the CDC preset.
func (c *Configuration) RegularWallet() []denomination.Unit {
	if len(c.Wallets.Regular) == 0 {
		return denomination.CDCRegular()
	}
	return denomination.CloneUnits(c.Wallets.Regular)
}

// SupermarketWallet returns the configured supermarket wallet, or the CDC preset.
func (c *Configuration) SupermarketWallet() []denomination.Unit {
	if len(c.Wallets.Supermarket) == 0 {
		return denomination.CDCSupermarket()
	}
	return denomination.CloneUnits(c.Wallets.Supermarket)
}

// DefaultInput returns the configured form defaults with any blank field
// filled from the built-in defaults.
func (c *Configuration) DefaultInput() profile.Input {
	return c.Defaults.Merge(profile.Defaults())
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if c.Output.Format != "" {
		if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
			warnings = append(warnings, err.Error())
		}
	}

	if _, err := profile.Parse(c.DefaultInput()); err != nil {
		warnings = append(warnings, fmt.Sprintf("default profile is invalid: %v", err))
	}

	wallets := make(map[string][]denomination.Unit)
	if len(c.Wallets.Regular) > 0 {
		wallets[denomination.PresetRegular] = c.Wallets.Regular
	}
	if len(c.Wallets.Supermarket) > 0 {
		wallets[denomination.PresetSupermarket] = c.Wallets.Supermarket
	}
	return append(warnings, validation.ValidateWallets(wallets)...)
}
