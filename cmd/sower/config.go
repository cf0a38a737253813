package main

import (
	"fmt"

	"github.com/spf13/viper"
)

const (
	configFileName = "sower"
	configFileType = "yaml"

	cfgKeySchema   = "schema"
	cfgKeyLogLevel = "log_level"

	defaultLogLevel = "info"
)

// loadConfig reads sower.yaml from the working directory, if present.
// Values are overridable via SOWER_* environment variables; flags win
// over both. A missing config file is not an error.
func loadConfig() (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(".")
	v.SetEnvPrefix("SOWER")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	return v, nil
}
