package yggAuth

import (
	"net/url"
	"strings"
	"time"
)

// Config defines the engine configuration shared by every authenticator the
// engine creates.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	// ProxyAuthServerAddress, when set, replaces the default endpoint base:
	// requests go to <address>/authenticate, /validate and /refresh.
	ProxyAuthServerAddress string `mapstructure:"proxy_auth_server_address"`
	// AuthArgs are forwarded verbatim, in order, to every remote call.
	AuthArgs []string `mapstructure:"auth_args"`
	// RequestTimeout bounds each remote call. Zero leaves the caller's
	// context as the only deadline.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	Audit   AuditConfig   `mapstructure:"audit"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
	DropIfFull bool `mapstructure:"drop_if_full"`
}

// MetricsConfig controls outcome counters and remote-call latency histograms.
type MetricsConfig struct {
	Enabled                 bool `mapstructure:"enabled"`
	EnableLatencyHistograms bool `mapstructure:"enable_latency_histograms"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used by [New] when none is supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		RequestTimeout: 15 * time.Second,
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if len(cfg.AuthArgs) != 0 {
		out.AuthArgs = make([]string, len(cfg.AuthArgs))
		copy(out.AuthArgs, cfg.AuthArgs)
	} else {
		out.AuthArgs = nil
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks c and normalizes the proxy address by trimming a trailing
// slash, so endpoint suffixes never produce a double slash.
func (c *Config) Validate() error {
	if c.ProxyAuthServerAddress != "" {
		addr := strings.TrimRight(strings.TrimSpace(c.ProxyAuthServerAddress), "/")
		u, err := url.Parse(addr)
		if err != nil {
			return ErrInvalidProxyAddress
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return ErrInvalidProxyAddress
		}
		if u.Host == "" || u.RawQuery != "" || u.Fragment != "" {
			return ErrInvalidProxyAddress
		}
		c.ProxyAuthServerAddress = addr
	}

	if c.RequestTimeout < 0 {
		return ErrInvalidRequestTimeout
	}

	if c.Audit.BufferSize < 0 {
		return ErrInvalidAuditBuffer
	}

	return nil
}

// endpoint returns the override address for op, or "" for the client default.
func (c *Config) endpoint(op string) string {
	if c.ProxyAuthServerAddress == "" {
		return ""
	}
	return c.ProxyAuthServerAddress + "/" + op
}

// arguments returns the extra arguments for a remote call, or nil when none
// are configured.
func (c *Config) arguments() []string {
	if len(c.AuthArgs) == 0 {
		return nil
	}
	out := make([]string, len(c.AuthArgs))
	copy(out, c.AuthArgs)
	return out
}
