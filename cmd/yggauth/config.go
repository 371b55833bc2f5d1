package main

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	yggAuth "github.com/nsiso/yggAuth"
	"github.com/nsiso/yggAuth/yggdrasil"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "YGGAUTH"

type cliConfig struct {
	Server      string         `mapstructure:"server"`
	ClientToken string         `mapstructure:"client_token"`
	Verbose     bool           `mapstructure:"verbose"`
	Auth        yggAuth.Config `mapstructure:"auth"`
}

// commonFlags registers the flags shared by every subcommand.
func commonFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "path to a YAML/TOML/JSON config file")
	fs.String("server", yggdrasil.DefaultBaseURL, "Yggdrasil auth server base URL")
	fs.String("proxy", "", "proxy auth server base URL; overrides --server for every endpoint")
	fs.StringArray("arg", nil, "extra request argument key=value (repeatable, order kept)")
	fs.Duration("timeout", 15*time.Second, "per-request timeout")
	fs.String("client-token", "", "client token; a random one is generated when empty")
	fs.BoolP("verbose", "v", false, "development logging at debug level")
}

var flagKeys = map[string]string{
	"server":       "server",
	"proxy":        "auth.proxy_auth_server_address",
	"arg":          "auth.auth_args",
	"timeout":      "auth.request_timeout",
	"client-token": "client_token",
	"verbose":      "verbose",
}

// loadConfig merges, lowest first: defaults, config file, YGGAUTH_* env,
// explicitly set flags.
func loadConfig(fs *pflag.FlagSet) (cliConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	defaults := yggAuth.DefaultConfig()
	v.SetDefault("server", yggdrasil.DefaultBaseURL)
	v.SetDefault("client_token", "")
	v.SetDefault("verbose", false)
	v.SetDefault("auth.proxy_auth_server_address", "")
	v.SetDefault("auth.auth_args", []string{})
	v.SetDefault("auth.request_timeout", defaults.RequestTimeout)
	v.SetDefault("auth.audit.enabled", defaults.Audit.Enabled)
	v.SetDefault("auth.audit.buffer_size", defaults.Audit.BufferSize)
	v.SetDefault("auth.audit.drop_if_full", defaults.Audit.DropIfFull)
	v.SetDefault("auth.metrics.enabled", true)
	v.SetDefault("auth.metrics.enable_latency_histograms", true)

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cliConfig{}, errors.Wrapf(err, "read config %s", path)
		}
	}

	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return cliConfig{}, errors.Wrapf(err, "bind flag --%s", name)
		}
	}

	var cfg cliConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cliConfig{}, errors.Wrap(err, "decode config")
	}
	if err := cfg.Auth.Validate(); err != nil {
		return cliConfig{}, errors.Wrap(err, "invalid auth config")
	}
	return cfg, nil
}
