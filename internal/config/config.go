package config

import (
	"errors"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	DB struct {
		DSN string `yaml:"dsn"`
	} `yaml:"db"`
	Escrow struct {
		XPub         string `yaml:"xpub"`
		Bech32Prefix string `yaml:"bech32_prefix"`
	} `yaml:"escrow"`
	Clock struct {
		GenesisUnix int64 `yaml:"genesis_unix"`
		StepSeconds int64 `yaml:"step_seconds"`
	} `yaml:"clock"`
	Auctions struct {
		NativeDenom string `yaml:"native_denom"`
	} `yaml:"auctions"`
	Relayer struct {
		IntervalSeconds int64 `yaml:"interval_seconds"`
		BatchSize       int   `yaml:"batch_size"`
	} `yaml:"relayer"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Server.Addr == "" {
		return nil, errors.New("server.addr is required")
	}
	if cfg.DB.DSN == "" {
		return nil, errors.New("db.dsn is required")
	}
	if cfg.Clock.StepSeconds <= 0 {
		return nil, errors.New("clock.step_seconds must be positive")
	}
	if cfg.Auctions.NativeDenom == "" {
		return nil, errors.New("auctions.native_denom is required")
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("ESCROW_XPUB"); v != "" {
		cfg.Escrow.XPub = v
	}
	if v := os.Getenv("ESCROW_BECH32_PREFIX"); v != "" {
		cfg.Escrow.Bech32Prefix = v
	}
	if v := os.Getenv("CLOCK_GENESIS_UNIX"); v != "" {
		cfg.Clock.GenesisUnix = atoi64Or(cfg.Clock.GenesisUnix, v)
	}
	if v := os.Getenv("CLOCK_STEP_SECONDS"); v != "" {
		cfg.Clock.StepSeconds = atoi64Or(cfg.Clock.StepSeconds, v)
	}
	if v := os.Getenv("NATIVE_DENOM"); v != "" {
		cfg.Auctions.NativeDenom = v
	}
	if v := os.Getenv("RELAYER_INTERVAL_SECONDS"); v != "" {
		cfg.Relayer.IntervalSeconds = atoi64Or(cfg.Relayer.IntervalSeconds, v)
	}
	if v := os.Getenv("RELAYER_BATCH_SIZE"); v != "" {
		cfg.Relayer.BatchSize = atoiOr(cfg.Relayer.BatchSize, v)
	}
}

func atoiOr(fallback int, v string) int {
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func atoi64Or(fallback int64, v string) int64 {
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}
