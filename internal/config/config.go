// Package config loads launchpad settings from flags, environment, an
// optional .env file and an optional config file.
//
// Precedence, highest first: flags, LAUNCHPAD_* environment variables,
// legacy environment names, config file, defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"solana-token-launchpad/internal/solanarpc"
)

// Keys shared by flags, environment and config file.
const (
	KeyConfigFile     = "config"
	KeyRPCEndpoint    = "rpc-endpoint"
	KeyWSEndpoint     = "ws-endpoint"
	KeyListenAddr     = "listen-addr"
	KeyPinataJWT      = "pinata-jwt"
	KeyPinataGateway  = "pinata-gateway"
	KeyPostgresDSN    = "postgres-dsn"
	KeyClickHouseDSN  = "clickhouse-dsn"
	KeyUseMemory      = "use-memory"
	KeyLogLevel       = "log-level"
	KeyLogFormat      = "log-format"
	KeyAirdropRate    = "airdrop-rate"
	KeyAirdropBurst   = "airdrop-burst"
	KeyConfirmTimeout = "confirm-timeout"
)

// EnvPrefix prefixes every environment variable, e.g. LAUNCHPAD_LISTEN_ADDR.
const EnvPrefix = "LAUNCHPAD"

// Defaults.
const (
	DefaultRPCEndpoint    = "https://api.devnet.solana.com"
	DefaultListenAddr     = ":8080"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
	DefaultAirdropRate    = time.Minute
	DefaultAirdropBurst   = 2
	DefaultConfirmTimeout = 60 * time.Second
)

// legacyEnv maps keys to the unprefixed variable names older deployments use.
var legacyEnv = map[string]string{
	KeyRPCEndpoint:   "SOLANA_RPC_ENDPOINT",
	KeyWSEndpoint:    "SOLANA_WS_ENDPOINT",
	KeyPinataJWT:     "PINATA_JWT",
	KeyPinataGateway: "PINATA_GATEWAY",
	KeyPostgresDSN:   "POSTGRES_DSN",
	KeyClickHouseDSN: "CLICKHOUSE_DSN",
}

// Config holds the resolved settings.
type Config struct {
	RPCEndpoint string
	WSEndpoint  string // derived from RPCEndpoint when unset
	ListenAddr  string

	PinataJWT     string
	PinataGateway string

	PostgresDSN   string
	ClickHouseDSN string
	UseMemory     bool

	LogLevel  string
	LogFormat string

	// AirdropRate is the refill interval of each address's airdrop budget.
	AirdropRate    time.Duration
	AirdropBurst   int
	ConfirmTimeout time.Duration
}

// RegisterFlags adds every setting to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String(KeyConfigFile, "", "Path to a config file (yaml, json or toml)")
	flags.String(KeyRPCEndpoint, DefaultRPCEndpoint, "Solana RPC HTTP endpoint")
	flags.String(KeyWSEndpoint, "", "Solana WebSocket endpoint (derived from --rpc-endpoint if empty)")
	flags.String(KeyListenAddr, DefaultListenAddr, "HTTP listen address")
	flags.String(KeyPinataJWT, "", "Pinata API JWT")
	flags.String(KeyPinataGateway, "", "Pinata gateway host")
	flags.String(KeyPostgresDSN, "", "PostgreSQL connection string")
	flags.String(KeyClickHouseDSN, "", "ClickHouse connection string")
	flags.Bool(KeyUseMemory, false, "Use in-memory storage instead of PostgreSQL and ClickHouse")
	flags.String(KeyLogLevel, DefaultLogLevel, "Log level (debug, info, warn, error)")
	flags.String(KeyLogFormat, DefaultLogFormat, "Log format (console, json)")
	flags.Duration(KeyAirdropRate, DefaultAirdropRate, "Interval at which an address earns another airdrop")
	flags.Int(KeyAirdropBurst, DefaultAirdropBurst, "Airdrops an address may request back to back")
	flags.Duration(KeyConfirmTimeout, DefaultConfirmTimeout, "How long to wait for a confirmation")
}

// Load resolves the configuration from flags, which may be nil. envFile is loaded first if it exists;
// variables already set in the environment are not overridden.
func Load(flags *pflag.FlagSet, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if path := v.GetString(KeyConfigFile); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetDefault(KeyRPCEndpoint, DefaultRPCEndpoint)
	v.SetDefault(KeyListenAddr, DefaultListenAddr)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFormat, DefaultLogFormat)
	v.SetDefault(KeyAirdropRate, DefaultAirdropRate)
	v.SetDefault(KeyAirdropBurst, DefaultAirdropBurst)
	v.SetDefault(KeyConfirmTimeout, DefaultConfirmTimeout)

	cfg := &Config{
		RPCEndpoint:    v.GetString(KeyRPCEndpoint),
		WSEndpoint:     v.GetString(KeyWSEndpoint),
		ListenAddr:     v.GetString(KeyListenAddr),
		PinataJWT:      v.GetString(KeyPinataJWT),
		PinataGateway:  v.GetString(KeyPinataGateway),
		PostgresDSN:    v.GetString(KeyPostgresDSN),
		ClickHouseDSN:  v.GetString(KeyClickHouseDSN),
		UseMemory:      v.GetBool(KeyUseMemory),
		LogLevel:       v.GetString(KeyLogLevel),
		LogFormat:      v.GetString(KeyLogFormat),
		AirdropRate:    v.GetDuration(KeyAirdropRate),
		AirdropBurst:   v.GetInt(KeyAirdropBurst),
		ConfirmTimeout: v.GetDuration(KeyConfirmTimeout),
	}
	if cfg.WSEndpoint == "" {
		ws, err := solanarpc.WSEndpointFromHTTP(cfg.RPCEndpoint)
		if err != nil {
			return nil, fmt.Errorf("derive ws endpoint: %w", err)
		}
		cfg.WSEndpoint = ws
	}
	return cfg, nil
}

// Validate checks the settings the server needs.
func (c *Config) Validate() error {
	if c.RPCEndpoint == "" {
		return errors.New("--rpc-endpoint is required")
	}
	if c.PinataJWT == "" || c.PinataGateway == "" {
		return errors.New("--pinata-jwt and --pinata-gateway are required")
	}
	if !c.UseMemory && (c.PostgresDSN == "" || c.ClickHouseDSN == "") {
		return errors.New("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}
	if c.AirdropRate < 0 || c.AirdropBurst < 0 {
		return errors.New("airdrop rate and burst must not be negative")
	}
	if c.ConfirmTimeout <= 0 {
		return errors.New("--confirm-timeout must be positive")
	}
	return nil
}
