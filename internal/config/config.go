// Package config provides Viper-based configuration loading for the arena server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds the HTTP/websocket listener settings.
type ServerConfig struct {
	// Host is the bind address for the HTTP listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the HTTP listener.
	Port int `mapstructure:"port"`
	// WriteTimeout bounds a single websocket write.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ReadTimeout bounds reading the headers of an HTTP request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// PingInterval is the time between keepalive pings on a websocket.
	PingInterval time.Duration `mapstructure:"ping_interval"`
	// PongTimeout is how long a ping may go unanswered before the
	// connection is dropped.
	PongTimeout time.Duration `mapstructure:"pong_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds PostgreSQL connection settings for the match-result store.
type DatabaseConfig struct {
	// Enabled turns match-result persistence on. When false no pool is opened.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// RulesConfig holds the tunable turn and combat rules.
type RulesConfig struct {
	// TurnDuration is the length of a player turn.
	TurnDuration time.Duration `mapstructure:"turn_duration"`
	// TransitionDelay separates the turn-transition notice from the turn start.
	TransitionDelay time.Duration `mapstructure:"transition_delay"`
	// FirstTurnDelay postpones the first turn-start broadcast of a game.
	FirstTurnDelay time.Duration `mapstructure:"first_turn_delay"`
	// CombatTurnDuration is the length of a combat turn.
	CombatTurnDuration time.Duration `mapstructure:"combat_turn_duration"`
	// CombatTurnNoEscapeDuration is used once the acting fighter has no escapes left.
	CombatTurnNoEscapeDuration time.Duration `mapstructure:"combat_turn_no_escape_duration"`
	// MaxEscapeAttempts caps escape attempts per combat.
	MaxEscapeAttempts int `mapstructure:"max_escape_attempts"`
	// EscapeChancePct is the success chance of one escape attempt, in percent.
	EscapeChancePct int `mapstructure:"escape_chance_pct"`
	// BasePower is added to every attack and defense roll.
	BasePower int `mapstructure:"base_power"`
	// DebuffPenalty is subtracted from rolls made on ice.
	DebuffPenalty int `mapstructure:"debuff_penalty"`
	// WinThreshold is the number of fights a free-for-all player must win.
	WinThreshold int `mapstructure:"win_threshold"`
	// FakeHumanDelay bounds the random reaction delay of bots.
	FakeHumanDelay time.Duration `mapstructure:"fake_human_delay"`
	// MaxItems is the inventory capacity of a player.
	MaxItems int `mapstructure:"max_items"`
}

// BotsConfig holds bot behavior content locations. Empty paths select the embedded defaults.
type BotsConfig struct {
	DomainDir string `mapstructure:"domain_dir"`
	ScriptDir string `mapstructure:"script_dir"`
	// InstructionLimit caps Lua opcodes per precondition call; 0 uses the default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Rules    RulesConfig    `mapstructure:"rules"`
	Bots     BotsConfig     `mapstructure:"bots"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Database.Enabled {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateRules(c.Rules); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Bots.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("bots.instruction_limit must be >= 0, got %d", c.Bots.InstructionLimit))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if s.ReadTimeout < 0 {
		errs = append(errs, "server.read_timeout must not be negative")
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, "server.write_timeout must not be negative")
	}
	if s.PingInterval < 0 {
		errs = append(errs, "server.ping_interval must not be negative")
	}
	if s.PongTimeout < 0 {
		errs = append(errs, "server.pong_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateRules(r RulesConfig) error {
	var errs []string
	positive := []struct {
		name string
		d    time.Duration
	}{
		{"rules.turn_duration", r.TurnDuration},
		{"rules.combat_turn_duration", r.CombatTurnDuration},
		{"rules.combat_turn_no_escape_duration", r.CombatTurnNoEscapeDuration},
	}
	for _, p := range positive {
		if p.d < time.Second {
			errs = append(errs, fmt.Sprintf("%s must be at least 1s, got %s", p.name, p.d))
		}
	}
	if r.TransitionDelay < 0 {
		errs = append(errs, "rules.transition_delay must not be negative")
	}
	if r.FirstTurnDelay < 0 {
		errs = append(errs, "rules.first_turn_delay must not be negative")
	}
	if r.FakeHumanDelay < 0 {
		errs = append(errs, "rules.fake_human_delay must not be negative")
	}
	if r.MaxEscapeAttempts < 0 {
		errs = append(errs, fmt.Sprintf("rules.max_escape_attempts must be >= 0, got %d", r.MaxEscapeAttempts))
	}
	if r.EscapeChancePct < 0 || r.EscapeChancePct > 100 {
		errs = append(errs, fmt.Sprintf("rules.escape_chance_pct must be 0-100, got %d", r.EscapeChancePct))
	}
	if r.WinThreshold < 1 {
		errs = append(errs, fmt.Sprintf("rules.win_threshold must be >= 1, got %d", r.WinThreshold))
	}
	if r.MaxItems < 0 {
		errs = append(errs, fmt.Sprintf("rules.max_items must be >= 0, got %d", r.MaxItems))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// DefaultRules returns the rule set used when no configuration overrides it.
//
// Postcondition: The returned value passes validateRules.
func DefaultRules() RulesConfig {
	return RulesConfig{
		TurnDuration:               30 * time.Second,
		TransitionDelay:            3 * time.Second,
		FirstTurnDelay:             500 * time.Millisecond,
		CombatTurnDuration:         5 * time.Second,
		CombatTurnNoEscapeDuration: 3 * time.Second,
		MaxEscapeAttempts:          2,
		EscapeChancePct:            30,
		BasePower:                  4,
		DebuffPenalty:              2,
		WinThreshold:               3,
		FakeHumanDelay:             2 * time.Second,
		MaxItems:                   2,
	}
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.write_timeout", "3s")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.ping_interval", "20s")
	v.SetDefault("server.pong_timeout", "10s")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "arena")
	v.SetDefault("database.password", "arena")
	v.SetDefault("database.name", "arena")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	r := DefaultRules()
	v.SetDefault("rules.turn_duration", r.TurnDuration.String())
	v.SetDefault("rules.transition_delay", r.TransitionDelay.String())
	v.SetDefault("rules.first_turn_delay", r.FirstTurnDelay.String())
	v.SetDefault("rules.combat_turn_duration", r.CombatTurnDuration.String())
	v.SetDefault("rules.combat_turn_no_escape_duration", r.CombatTurnNoEscapeDuration.String())
	v.SetDefault("rules.max_escape_attempts", r.MaxEscapeAttempts)
	v.SetDefault("rules.escape_chance_pct", r.EscapeChancePct)
	v.SetDefault("rules.base_power", r.BasePower)
	v.SetDefault("rules.debuff_penalty", r.DebuffPenalty)
	v.SetDefault("rules.win_threshold", r.WinThreshold)
	v.SetDefault("rules.fake_human_delay", r.FakeHumanDelay.String())
	v.SetDefault("rules.max_items", r.MaxItems)

	v.SetDefault("bots.domain_dir", "")
	v.SetDefault("bots.script_dir", "")
	v.SetDefault("bots.instruction_limit", 0)
}
