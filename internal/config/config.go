package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/claude/rehabreps/internal/exercise"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Redis     RedisConfig     `yaml:"redis"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Exercise  ExerciseConfig  `yaml:"exercise"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// DefaultRedisTTL applies when redis.ttl is unset.
const DefaultRedisTTL = 10 * time.Minute

// RedisConfig enables the live session cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// MQTTConfig enables event publishing when Broker is set.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
}

// ExerciseConfig tunes the trackers. Zero values keep the defaults, except
// Cooldown where an explicit 0s disables the post-count pause.
type ExerciseConfig struct {
	Locale       string                      `yaml:"locale"`
	Cooldown     *time.Duration              `yaml:"cooldown"`
	ArmHold      time.Duration               `yaml:"arm_hold"`
	Hold         time.Duration               `yaml:"hold"`
	Termination  string                      `yaml:"termination"`
	Window       time.Duration               `yaml:"window"`
	TrunkVariant string                      `yaml:"trunk_variant"`
	NeckVariant  string                      `yaml:"neck_variant"`
	GuideOffset  float64                     `yaml:"guide_offset"`
	Targets      map[string]exercise.Targets `yaml:"targets"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Options converts the exercise section to tracker options on top of
// exercise.DefaultOptions.
func (e ExerciseConfig) Options() (exercise.Options, error) {
	opts := exercise.DefaultOptions()

	locale, err := exercise.ParseLocale(e.Locale)
	if err != nil {
		return opts, err
	}
	opts.Locale = locale

	if e.Cooldown != nil {
		if *e.Cooldown < 0 {
			return opts, fmt.Errorf("exercise.cooldown must not be negative")
		}
		opts.Cooldown = *e.Cooldown
	}
	if e.ArmHold > 0 {
		opts.ArmHold = e.ArmHold
	}
	if e.Hold > 0 {
		opts.Hold = e.Hold
	}
	if e.GuideOffset > 0 {
		opts.GuideOffset = e.GuideOffset
	}

	switch exercise.Termination(e.Termination) {
	case "", exercise.TerminateReps:
	case exercise.TerminateDuration:
		if e.Window <= 0 {
			return opts, fmt.Errorf("exercise.window is required when termination is %q", e.Termination)
		}
		opts.Termination = exercise.TerminateDuration
		opts.Window = e.Window
	default:
		return opts, fmt.Errorf("exercise.termination %q: want reps or duration", e.Termination)
	}

	switch exercise.Variant(e.TrunkVariant) {
	case "", exercise.VariantHoldReturn:
	case exercise.VariantGuideLines:
		opts.TrunkVariant = exercise.VariantGuideLines
	default:
		return opts, fmt.Errorf("exercise.trunk_variant %q: want hold_return or guide_lines", e.TrunkVariant)
	}

	switch exercise.Variant(e.NeckVariant) {
	case "", exercise.VariantHoldReturn:
	case exercise.VariantImmediate:
		opts.NeckVariant = exercise.VariantImmediate
	default:
		return opts, fmt.Errorf("exercise.neck_variant %q: want hold_return or immediate", e.NeckVariant)
	}

	return opts, nil
}

// Catalog returns the default catalog with the configured target overrides.
func (e ExerciseConfig) Catalog() (*exercise.Catalog, error) {
	if len(e.Targets) == 0 {
		return exercise.DefaultCatalog(), nil
	}
	return exercise.DefaultCatalog().WithTargets(e.Targets)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix REHABREPS_ and underscore-separated paths:
//
//	REHABREPS_SERVER_HOST, REHABREPS_SERVER_PORT,
//	REHABREPS_DB_HOST, REHABREPS_DB_PORT, REHABREPS_DB_NAME,
//	REHABREPS_DB_USER, REHABREPS_DB_PASSWORD, REHABREPS_DB_SSLMODE,
//	REHABREPS_AUTH_API_KEY,
//	REHABREPS_TS_ENABLED, REHABREPS_TS_HOSTNAME,
//	REHABREPS_REDIS_ADDR, REHABREPS_REDIS_PASSWORD,
//	REHABREPS_MQTT_BROKER,
//	REHABREPS_EXERCISE_LOCALE, REHABREPS_EXERCISE_TERMINATION
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REHABREPS_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("REHABREPS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("REHABREPS_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("REHABREPS_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("REHABREPS_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("REHABREPS_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("REHABREPS_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("REHABREPS_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("REHABREPS_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("REHABREPS_TS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = enabled
		}
	}
	if v := os.Getenv("REHABREPS_TS_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("REHABREPS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REHABREPS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REHABREPS_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("REHABREPS_EXERCISE_LOCALE"); v != "" {
		cfg.Exercise.Locale = v
	}
	if v := os.Getenv("REHABREPS_EXERCISE_TERMINATION"); v != "" {
		cfg.Exercise.Termination = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = DefaultRedisTTL
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	if c.Exercise.GuideOffset < 0 || c.Exercise.GuideOffset >= 0.5 {
		return fmt.Errorf("exercise.guide_offset must be in [0, 0.5)")
	}
	if _, err := c.Exercise.Options(); err != nil {
		return err
	}
	if _, err := c.Exercise.Catalog(); err != nil {
		return fmt.Errorf("exercise.targets: %w", err)
	}
	return nil
}
