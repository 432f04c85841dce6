// Package config loads agzip settings from defaults, an optional YAML file,
// AGZIP_* environment variables and bound command-line flags.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"agzip/pkg/core"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys understood in the config file and as AGZIP_<KEY> environment variables.
const (
	KeyMethod        = "method"
	KeyLevel         = "level"
	KeyKeepEmptyDirs = "keep_empty_dirs"
	KeyProgress      = "progress"
	KeyLogLevel      = "log_level"

	EnvPrefix      = "AGZIP"
	DefaultCfgName = ".agzip"
	DefaultCfgType = "yaml"
)

// Config is the resolved configuration.
type Config struct {
	Method        core.Method
	Level         int
	KeepEmptyDirs bool
	Progress      bool
	LogLevel      string
}

// New returns a viper instance carrying the defaults and the environment
// binding. Flags can be bound to it before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyMethod, core.Deflate.String())
	v.SetDefault(KeyLevel, -1)
	v.SetDefault(KeyKeepEmptyDirs, false)
	v.SetDefault(KeyProgress, true)
	v.SetDefault(KeyLogLevel, "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlag binds a command-line flag to a config key.
func BindFlag(v *viper.Viper, key string, flag *pflag.Flag) error {
	if flag == nil {
		return errors.Errorf("no flag for config key %s", key)
	}
	return errors.Wrapf(v.BindPFlag(key, flag), "bind flag %s", flag.Name)
}

// Load reads cfgFile, or $HOME/.agzip.yaml when cfgFile is empty. A missing
// default file is not an error; a missing explicit file is.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName(DefaultCfgName)
		v.SetConfigType(DefaultCfgType)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	method, err := core.ParseMethod(v.GetString(KeyMethod))
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Method:        method,
		Level:         v.GetInt(KeyLevel),
		KeepEmptyDirs: v.GetBool(KeyKeepEmptyDirs),
		Progress:      v.GetBool(KeyProgress),
		LogLevel:      v.GetString(KeyLogLevel),
	}
	if cfg.Level < -1 || cfg.Level > 9 {
		return nil, &core.InvalidArgumentError{Path: v.GetString(KeyLevel), Reason: "level must be between -1 and 9"}
	}
	return cfg, nil
}

// Used returns the config file that was read, if any.
func Used(v *viper.Viper) string {
	if f := v.ConfigFileUsed(); f != "" {
		return filepath.Clean(f)
	}
	return ""
}
