// Package config provides Viper-based configuration loading for the spell engine server.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// Enabled turns cooldown persistence on. When false the server runs without a database.
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

// EngineConfig holds cast engine timing and randomness settings.
type EngineConfig struct {
	// ProjectileStepMs is the interval between missile position updates.
	ProjectileStepMs int64 `mapstructure:"projectile_step_ms"`
	// ProjectileFinalizeMs is the remaining flight time below which a missile lands.
	ProjectileFinalizeMs int64 `mapstructure:"projectile_finalize_ms"`
	// FocusRadius is the distance within which a required focus object must lie.
	FocusRadius float32 `mapstructure:"focus_radius"`
	// Seed fixes the dice source. Zero selects a random seed.
	Seed uint64 `mapstructure:"seed"`
	// ScriptInstructionLimit bounds each Lua hook invocation.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
	// AITickMs is the interval between NPC planning passes.
	AITickMs int64 `mapstructure:"ai_tick_ms"`
	// AIAwarenessRadius bounds which units an NPC considers when planning.
	AIAwarenessRadius float32 `mapstructure:"ai_awareness_radius"`
}

// ContentConfig names the on-disk content the server loads at startup.
type ContentConfig struct {
	SpellsDir    string `mapstructure:"spells_dir"`
	FactionsFile string `mapstructure:"factions_file"`
	SpawnsFile   string `mapstructure:"spawns_file"`
	// ScriptsDir is optional; an empty value disables scripting.
	ScriptsDir string `mapstructure:"scripts_dir"`
	// AIDir is optional and requires ScriptsDir; an empty value disables NPC planning.
	AIDir string `mapstructure:"ai_dir"`
}

// GameServerConfig holds the gRPC health endpoint settings.
type GameServerConfig struct {
	// GRPCHost is the bind address for the gRPC listener.
	GRPCHost string `mapstructure:"grpc_host"`
	// GRPCPort is the TCP port for the gRPC listener.
	GRPCPort int `mapstructure:"grpc_port"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (g GameServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.GRPCHost, g.GRPCPort)
}

// WorldConfig holds map and game clock settings.
type WorldConfig struct {
	MapID uint32 `mapstructure:"map_id"`
	// StartHour is the game hour at server start.
	StartHour int `mapstructure:"start_hour"`
	// HourDuration is the real time one game hour lasts.
	HourDuration     time.Duration `mapstructure:"hour_duration"`
	DayStartHour     int           `mapstructure:"day_start_hour"`
	NightStartHour   int           `mapstructure:"night_start_hour"`
	VisibilityRadius float32       `mapstructure:"visibility_radius"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Content    ContentConfig    `mapstructure:"content"`
	GameServer GameServerConfig `mapstructure:"gameserver"`
	World      WorldConfig      `mapstructure:"world"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Database.Enabled {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateEngine(c.Engine); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGameServer(c.GameServer); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateWorld(c.World); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
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

func validateEngine(e EngineConfig) error {
	var errs []string
	if e.ProjectileStepMs < 1 {
		errs = append(errs, fmt.Sprintf("engine.projectile_step_ms must be >= 1, got %d", e.ProjectileStepMs))
	}
	if e.ProjectileFinalizeMs < 1 {
		errs = append(errs, fmt.Sprintf("engine.projectile_finalize_ms must be >= 1, got %d", e.ProjectileFinalizeMs))
	}
	if e.FocusRadius <= 0 {
		errs = append(errs, fmt.Sprintf("engine.focus_radius must be > 0, got %g", e.FocusRadius))
	}
	if e.ScriptInstructionLimit < 1 {
		errs = append(errs, fmt.Sprintf("engine.script_instruction_limit must be >= 1, got %d", e.ScriptInstructionLimit))
	}
	if e.AITickMs < 1 {
		errs = append(errs, fmt.Sprintf("engine.ai_tick_ms must be >= 1, got %d", e.AITickMs))
	}
	if e.AIAwarenessRadius <= 0 {
		errs = append(errs, fmt.Sprintf("engine.ai_awareness_radius must be > 0, got %g", e.AIAwarenessRadius))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.SpellsDir == "" {
		errs = append(errs, "content.spells_dir must not be empty")
	}
	if c.FactionsFile == "" {
		errs = append(errs, "content.factions_file must not be empty")
	}
	if c.SpawnsFile == "" {
		errs = append(errs, "content.spawns_file must not be empty")
	}
	if c.AIDir != "" && c.ScriptsDir == "" {
		errs = append(errs, "content.ai_dir requires content.scripts_dir")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGameServer(g GameServerConfig) error {
	var errs []string
	if g.GRPCHost == "" {
		errs = append(errs, "gameserver.grpc_host must not be empty")
	}
	if g.GRPCPort < 1 || g.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("gameserver.grpc_port must be 1-65535, got %d", g.GRPCPort))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateWorld(w WorldConfig) error {
	var errs []string
	for name, h := range map[string]int{
		"world.start_hour":       w.StartHour,
		"world.day_start_hour":   w.DayStartHour,
		"world.night_start_hour": w.NightStartHour,
	} {
		if h < 0 || h > 23 {
			errs = append(errs, fmt.Sprintf("%s must be 0-23, got %d", name, h))
		}
	}
	if w.DayStartHour >= w.NightStartHour {
		errs = append(errs, "world.day_start_hour must be before world.night_start_hour")
	}
	if w.HourDuration < time.Millisecond {
		errs = append(errs, fmt.Sprintf("world.hour_duration must be >= 1ms, got %s", w.HourDuration))
	}
	if w.VisibilityRadius <= 0 {
		errs = append(errs, fmt.Sprintf("world.visibility_radius must be > 0, got %g", w.VisibilityRadius))
	}
	if len(errs) > 0 {
		slices.Sort(errs)
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

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with SPELL_ prefix
	v.SetEnvPrefix("SPELL")
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

// SetDefaults installs every default value on v.
func SetDefaults(v *viper.Viper) { setDefaults(v) }

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "spellcore")
	v.SetDefault("database.password", "spellcore")
	v.SetDefault("database.name", "spellcore")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("engine.projectile_step_ms", 200)
	v.SetDefault("engine.projectile_finalize_ms", 50)
	v.SetDefault("engine.focus_radius", 10)
	v.SetDefault("engine.seed", 0)
	v.SetDefault("engine.script_instruction_limit", 100000)
	v.SetDefault("engine.ai_tick_ms", 1000)
	v.SetDefault("engine.ai_awareness_radius", 40)

	v.SetDefault("content.spells_dir", "content/spells")
	v.SetDefault("content.factions_file", "content/factions.yaml")
	v.SetDefault("content.spawns_file", "content/spawns.yaml")
	v.SetDefault("content.scripts_dir", "")
	v.SetDefault("content.ai_dir", "")

	v.SetDefault("gameserver.grpc_host", "127.0.0.1")
	v.SetDefault("gameserver.grpc_port", 50051)

	v.SetDefault("world.map_id", 1)
	v.SetDefault("world.start_hour", 6)
	v.SetDefault("world.hour_duration", "1m")
	v.SetDefault("world.day_start_hour", 6)
	v.SetDefault("world.night_start_hour", 20)
	v.SetDefault("world.visibility_radius", 100)
}
