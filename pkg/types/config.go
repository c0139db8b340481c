package types

// Config holds the flat set of options recognized by this core, per
// spec.md §6, plus the ambient app/metrics/positions keys the teacher
// carries for logging and observability, the db/redis/filters sections
// and snmp_forward_binary.
type Config struct {
	// Tailed log files.
	SNMPLogfile string `yaml:"snmp_logfile"`
	SNMPExtlog  string `yaml:"snmp_extlog"`

	// Tick cadence and worker pool sizing.
	ServerThreshold       int `yaml:"server_threshold"`
	SNMPConsoleThreshold  int `yaml:"snmpconsole_threshold"`
	SNMPConsoleThreads    int `yaml:"snmpconsole_threads"`

	// Storm protection. SNMPStormProtection carries the trap-count
	// threshold itself (spec.md §4.3's storm_threshold), matching
	// Pandora's real snmp_storm_protection key, which is numeric, not
	// boolean; <= 0 disables storm protection entirely. SNMPStormTimeout
	// is the sliding window length in seconds, kept as a separate field
	// so threshold and window can be configured independently.
	SNMPStormProtection    int `yaml:"snmp_storm_protection"`
	SNMPStormTimeout       int `yaml:"snmp_storm_timeout"`
	SNMPStormSilencePeriod int `yaml:"snmp_storm_silence_period"`

	// Per-source serialization.
	SNMPConsoleLock bool `yaml:"snmpconsole_lock"`

	// Source normalization for v1.
	SNMPPDUAddress bool `yaml:"snmp_pdu_address"`

	// Forwarding.
	SNMPForwardTrap    bool   `yaml:"snmp_forward_trap"`
	SNMPForwardVersion string `yaml:"snmp_forward_version"` // "1", "2c", "3"
	SNMPForwardIP      string `yaml:"snmp_forward_ip"`
	SNMPForwardCommunity string `yaml:"snmp_forward_community"`
	SNMPForwardV3User     string `yaml:"snmp_forward_v3_user"`
	SNMPForwardV3AuthProto string `yaml:"snmp_forward_v3_auth_proto"`
	SNMPForwardV3AuthPass  string `yaml:"snmp_forward_v3_auth_pass"`
	SNMPForwardV3PrivProto string `yaml:"snmp_forward_v3_priv_proto"`
	SNMPForwardV3PrivPass  string `yaml:"snmp_forward_v3_priv_pass"`
	SNMPForwardBinary      string `yaml:"snmp_forward_binary"`

	// Worker pacing, post-persist.
	SNMPDelay int `yaml:"snmp_delay"`

	// Parsed but deliberately inert in this core — belong to the
	// external supervision wrapper (SPEC_FULL.md §5).
	SNMPIgnoreAuthfailure bool   `yaml:"snmp_ignore_authfailure"`
	SNMPTrapdArgs         string `yaml:"snmptrapd_args"`

	App      AppConfig      `yaml:"app"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Positions PositionsConfig `yaml:"positions"`
	DB       DBConfig       `yaml:"db"`
	Redis    RedisConfig    `yaml:"redis"`
	Filters  FiltersConfig  `yaml:"filters"`
}

// AppConfig covers ambient application-wide settings.
type AppConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // "json" or "text"
}

// MetricsConfig controls the Prometheus HTTP server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// PositionsConfig controls where index-file-derived state may be
// inspected; the index files themselves live alongside the log per
// spec.md §3, this only covers any auxiliary bookkeeping directory.
type PositionsConfig struct {
	Dir string `yaml:"dir"`
}

// DBConfig configures the Persister's relational store connection.
type DBConfig struct {
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
}

// RedisConfig configures the optional distributed SourceLocker
// backend.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Password string `yaml:"password"`
	DB      int    `yaml:"db"`
	LockTTLSeconds int `yaml:"lock_ttl_seconds"`
}

// FiltersConfig points at the external filter-compilation store.
type FiltersConfig struct {
	Path string `yaml:"path"`
}
