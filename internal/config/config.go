// Package config loads and validates the flat configuration recognized
// by the trap ingestion core.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	apperrors "snmptrapd-core/pkg/errors"
	"snmptrapd-core/pkg/types"

	"gopkg.in/yaml.v2"
)

// Load reads configFile (if non-empty) as YAML, applies environment
// overrides, fills defaults, and validates the result.
func Load(configFile string) (*types.Config, error) {
	cfg := &types.Config{}

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, apperrors.NewCritical(apperrors.CodeConfigNotFound, "config", "Load",
				fmt.Sprintf("cannot read config file %s", configFile)).Wrap(err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.NewCritical(apperrors.CodeConfigInvalid, "config", "Load",
				fmt.Sprintf("cannot parse config file %s", configFile)).Wrap(err)
		}
	}

	applyEnvironmentOverrides(cfg)
	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults fills zero-valued fields with the core's operating
// defaults, in the teacher's applyDefaults style.
func applyDefaults(cfg *types.Config) {
	if cfg.ServerThreshold == 0 {
		cfg.ServerThreshold = 5
	}
	if cfg.SNMPConsoleThreshold == 0 {
		cfg.SNMPConsoleThreshold = cfg.ServerThreshold
	}
	if cfg.SNMPConsoleThreads == 0 {
		cfg.SNMPConsoleThreads = 4
	}
	if cfg.SNMPStormTimeout == 0 {
		cfg.SNMPStormTimeout = 60
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.App.LogFormat == "" {
		cfg.App.LogFormat = "text"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
	if cfg.DB.MaxOpenConns == 0 {
		cfg.DB.MaxOpenConns = 10
	}
	if cfg.DB.MaxIdleConns == 0 {
		cfg.DB.MaxIdleConns = 5
	}
	if cfg.DB.ConnMaxLifetime == 0 {
		cfg.DB.ConnMaxLifetime = 30
	}
	if cfg.Redis.LockTTLSeconds == 0 {
		cfg.Redis.LockTTLSeconds = 30
	}
	if cfg.SNMPForwardBinary == "" {
		cfg.SNMPForwardBinary = "snmptrap"
	}
}

// applyEnvironmentOverrides layers SNMPTRAPD_-prefixed environment
// variables on top of the YAML-loaded config, following the teacher's
// env-override-after-load ordering.
func applyEnvironmentOverrides(cfg *types.Config) {
	if v := os.Getenv("SNMPTRAPD_LOGFILE"); v != "" {
		cfg.SNMPLogfile = v
	}
	if v := os.Getenv("SNMPTRAPD_EXTLOG"); v != "" {
		cfg.SNMPExtlog = v
	}
	if v := os.Getenv("SNMPTRAPD_LOG_LEVEL"); v != "" {
		cfg.App.LogLevel = v
	}
	if v := os.Getenv("SNMPTRAPD_LOG_FORMAT"); v != "" {
		cfg.App.LogFormat = v
	}
	if v := os.Getenv("SNMPTRAPD_DB_DSN"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("SNMPTRAPD_STORM_PROTECTION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SNMPStormProtection = n
		}
	}
	if v := os.Getenv("SNMPTRAPD_LOCK_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SNMPConsoleLock = b
		}
	}
	if v := os.Getenv("SNMPTRAPD_FORWARD_TRAP"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SNMPForwardTrap = b
		}
	}
}

// Validate checks the minimum set of keys required for the core to
// start. snmptrapd_args/snmp_ignore_authfailure are not checked here;
// they are parsed into Config but never read by internal/app (see
// SPEC_FULL.md §5).
func Validate(cfg *types.Config) error {
	if cfg.SNMPLogfile == "" {
		return apperrors.NewCritical(apperrors.CodeConfigInvalid, "config", "Validate",
			"snmp_logfile is required")
	}
	if cfg.SNMPConsoleThreads < 1 {
		return apperrors.NewCritical(apperrors.CodeConfigInvalid, "config", "Validate",
			"snmpconsole_threads must be >= 1")
	}
	if cfg.SNMPForwardTrap {
		v := strings.TrimSpace(cfg.SNMPForwardVersion)
		if v != "1" && v != "2c" && v != "3" {
			return apperrors.NewCritical(apperrors.CodeConfigInvalid, "config", "Validate",
				fmt.Sprintf("snmp_forward_version must be one of 1, 2c, 3; got %q", cfg.SNMPForwardVersion))
		}
		if cfg.SNMPForwardIP == "" {
			return apperrors.NewCritical(apperrors.CodeConfigInvalid, "config", "Validate",
				"snmp_forward_ip is required when snmp_forward_trap is enabled")
		}
	}
	return nil
}
