// Package config loads the daemon's own service configuration, as distinct
// from the per-timer *.conf files read by internal/fileloader, from a TOML
// file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/midbel/toml"
)

// Config is the daemon's top-level service configuration.
type Config struct {
	Timer    TimerDirs     `toml:"timer"`
	Defaults DefaultsBlock `toml:"defaults"`
	Host     HostBlock     `toml:"host"`
	Hermes   HermesBlock   `toml:"hermes"`
	History  HistoryBlock  `toml:"history"`
	Alert    AlertBlock    `toml:"alert"`
}

// TimerDirs names the directory of static timer configs and the directory
// per-timer logs are appended to.
type TimerDirs struct {
	AllDir string `toml:"all_dir"`
	LogDir string `toml:"log_dir"`
}

type DefaultsBlock struct {
	Verbose bool `toml:"verbose"`
}

// HostBlock configures the control-plane RPC listener.
type HostBlock struct {
	GRPC GRPCBlock `toml:"grpc"`
}

type GRPCBlock struct {
	Address string `toml:"address"`
	TLS     bool   `toml:"tls"`
	TLSPem  string `toml:"tls_pem"`
	TLSKey  string `toml:"tls_key"`
}

// HermesBlock configures the optional upstream status bus.
type HermesBlock struct {
	Enable  bool   `toml:"enable"`
	Address string `toml:"address"`
	Table   string `toml:"table"`
}

// HistoryBlock configures the execution-history store.
type HistoryBlock struct {
	Enable   bool   `toml:"enable"`
	DBPath   string `toml:"db_path"`
	KeepLast int    `toml:"keep_last"`
}

// AlertBlock configures the optional Slack failure-alert sink.
type AlertBlock struct {
	Slack SlackAlertBlock `toml:"slack"`
}

type SlackAlertBlock struct {
	Enable  bool   `toml:"enable"`
	Token   string `toml:"token"`
	Channel string `toml:"channel"`
}

const defaultKeepLast = 50

// Load reads and validates the TOML config at path.
func Load(path string) (Config, error) {
	var cfg Config
	if err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse toml config %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.History.KeepLast <= 0 {
		cfg.History.KeepLast = defaultKeepLast
	}
	if cfg.History.DBPath == "" {
		cfg.History.DBPath = DefaultHistoryDBPath()
	}
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.Timer.AllDir) == "" {
		return errors.New("config: timer.all_dir is required")
	}
	if strings.TrimSpace(cfg.Timer.LogDir) == "" {
		return errors.New("config: timer.log_dir is required")
	}

	if cfg.Host.GRPC.Address != "" && cfg.Host.GRPC.TLS {
		if cfg.Host.GRPC.TLSPem == "" || cfg.Host.GRPC.TLSKey == "" {
			return errors.New("config: host.grpc.tls_pem and host.grpc.tls_key are required when host.grpc.tls is enabled")
		}
	}

	if cfg.Hermes.Enable {
		if strings.TrimSpace(cfg.Hermes.Address) == "" {
			return errors.New("config: hermes.address is required when hermes.enable is true")
		}
		if strings.TrimSpace(cfg.Hermes.Table) == "" {
			return errors.New("config: hermes.table is required when hermes.enable is true")
		}
	}

	if cfg.Alert.Slack.Enable {
		if strings.TrimSpace(cfg.Alert.Slack.Token) == "" {
			return errors.New("config: alert.slack.token is required when alert.slack.enable is true")
		}
		if strings.TrimSpace(cfg.Alert.Slack.Channel) == "" {
			return errors.New("config: alert.slack.channel is required when alert.slack.enable is true")
		}
	}

	return nil
}
