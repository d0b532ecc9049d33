package main

import (
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/iov-one/dualsign/errors"
	"github.com/spf13/viper"
	"github.com/tendermint/tendermint/libs/log"
)

// config holds connection details shared by all commands.
type config struct {
	NodeURL         string
	HelperURL       string
	NetworkID       string
	AccountID       string
	StoreDir        string
	MaxCodeAttempts int
	Timeout         time.Duration
	Verbose         bool
}

// configFlag registers the flag pointing to the configuration file.
func configFlag(fl *flag.FlagSet) *string {
	return fl.String("config", "",
		"Path to the configuration file. By default $HOME/.dualsign.yaml is used if it exists.")
}

// loadConfig reads the configuration from given file, or from
// $HOME/.dualsign.yaml if path is empty. Every value can be overwritten by
// an environment variable with DUALSIGN_ prefix, for example
// DUALSIGN_ACCOUNT_ID.
func loadConfig(path string) (*config, error) {
	home, _ := os.UserHomeDir()

	v := viper.New()
	v.SetDefault("node_url", "https://rpc.testnet.near.org")
	v.SetDefault("helper_url", "https://helper.testnet.near.org")
	v.SetDefault("network_id", "testnet")
	v.SetDefault("account_id", "")
	v.SetDefault("store_dir", filepath.Join(home, ".dualsign"))
	v.SetDefault("max_code_attempts", 5)
	v.SetDefault("timeout", "2m")
	v.SetDefault("verbose", false)

	v.SetEnvPrefix("DUALSIGN")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(errors.ErrInput, "cannot read configuration %q: %s", path, err)
		}
	} else {
		v.SetConfigName(".dualsign")
		v.SetConfigType("yaml")
		v.AddConfigPath(home)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errors.Wrapf(errors.ErrInput, "cannot read configuration: %s", err)
			}
		}
	}

	c := &config{
		NodeURL:         v.GetString("node_url"),
		HelperURL:       v.GetString("helper_url"),
		NetworkID:       v.GetString("network_id"),
		AccountID:       v.GetString("account_id"),
		StoreDir:        v.GetString("store_dir"),
		MaxCodeAttempts: v.GetInt("max_code_attempts"),
		Timeout:         v.GetDuration("timeout"),
		Verbose:         v.GetBool("verbose"),
	}
	if c.MaxCodeAttempts < 1 {
		return nil, errors.Wrapf(errors.ErrInput, "max_code_attempts must be positive, got %d", c.MaxCodeAttempts)
	}
	if c.Timeout <= 0 {
		return nil, errors.Wrapf(errors.ErrInput, "timeout must be positive, got %s", c.Timeout)
	}
	return c, nil
}

// requireAccount returns an error if no account is configured.
func (c *config) requireAccount() error {
	if c.AccountID == "" {
		return errors.Wrap(errors.ErrEmpty, "account_id is not configured, set it in the configuration file or with DUALSIGN_ACCOUNT_ID")
	}
	return nil
}

// logger returns the logger writing to stderr. Only errors are logged unless
// verbose output is configured.
func (c *config) logger() log.Logger {
	logger := log.NewTMLogger(log.NewSyncWriter(os.Stderr))
	if c.Verbose {
		return log.NewFilter(logger, log.AllowDebug())
	}
	return log.NewFilter(logger, log.AllowError())
}
