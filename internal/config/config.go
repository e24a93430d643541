package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/abusaleh34/secure-cas-commercial/internal/core"
)

type Config struct {
	Server    ServerConfig            `yaml:"server"`
	JIT       JITConfig               `yaml:"jit"`
	MFA       MFAConfig               `yaml:"mfa"`
	Audit     AuditConfig             `yaml:"audit"`
	Store     StoreConfig             `yaml:"store"`
	Challenge ChallengeConfig         `yaml:"challenge"`
	Rules     []core.ProvisioningRule `yaml:"rules"`
}

type ServerConfig struct {
	// Listen is the host:port the HTTP API binds to.
	Listen string `yaml:"listen"`
}

// JITConfig controls the just-in-time provisioning engine.
type JITConfig struct {
	Enabled bool `yaml:"enabled"`

	// DefaultRoles are granted when no rule assigned any role. The first
	// entry is the fallback default role.
	DefaultRoles []string `yaml:"default_roles"`

	// SyncAttributesOnLogin re-maps directory attributes on every login.
	SyncAttributesOnLogin bool `yaml:"sync_attributes_on_login"`

	// AutoDeactivate enables the periodic inactive-user sweep.
	AutoDeactivate bool `yaml:"auto_deactivate"`

	// InactiveDays is the sweep threshold in days.
	InactiveDays int `yaml:"inactive_days"`

	// Sources limits provisioning to the listed sources. Empty means all.
	Sources []string `yaml:"sources"`

	// RuleRefreshInterval re-reads rules from the store on this interval.
	// Zero disables periodic refresh.
	RuleRefreshInterval time.Duration `yaml:"rule_refresh_interval"`
}

// MFAConfig controls OTP challenge issuance and delivery.
type MFAConfig struct {
	OTPLength          int  `yaml:"otp_length"`
	OTPValiditySeconds int  `yaml:"otp_validity_seconds"`
	SMSEnabled         bool `yaml:"sms_enabled"`
	EmailEnabled       bool `yaml:"email_enabled"`
}

func (c MFAConfig) Validity() time.Duration {
	return time.Duration(c.OTPValiditySeconds) * time.Second
}

type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Type    string `yaml:"type"` // "file" or "memory"
	Path    string `yaml:"path"`
}

// StoreConfig selects the identity/rule persistence backend.
type StoreConfig struct {
	Type string `yaml:"type"` // "memory" or "postgres"
	DSN  string `yaml:"dsn"`
}

// ChallengeConfig selects the OTP challenge backend.
type ChallengeConfig struct {
	Type  string      `yaml:"type"` // "memory" or "redis"
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Default returns the configuration used when no file is given: in-memory
// everything, JIT enabled with the standard fallback role.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Listen: ":8080"},
		JIT: JITConfig{
			Enabled:               true,
			DefaultRoles:          []string{"ROLE_USER"},
			SyncAttributesOnLogin: true,
			InactiveDays:          90,
		},
		MFA: MFAConfig{
			OTPLength:          6,
			OTPValiditySeconds: 300,
		},
		Audit:     AuditConfig{Enabled: true, Type: "memory"},
		Store:     StoreConfig{Type: "memory"},
		Challenge: ChallengeConfig{Type: "memory"},
	}
}

// Load reads and parses the configuration file at the given path.
// It returns a Config struct or an error if loading/parsing/validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen must not be empty")
	}

	if len(c.JIT.DefaultRoles) == 0 {
		return fmt.Errorf("jit.default_roles must not be empty")
	}
	for _, raw := range c.JIT.Sources {
		if _, err := core.ParseSource(raw); err != nil {
			return fmt.Errorf("jit.sources: %w", err)
		}
	}
	if c.JIT.InactiveDays < 0 {
		return fmt.Errorf("jit.inactive_days must not be negative")
	}
	if c.JIT.AutoDeactivate && c.JIT.InactiveDays == 0 {
		return fmt.Errorf("jit.inactive_days is required when auto_deactivate is enabled")
	}

	if c.MFA.OTPLength < 4 || c.MFA.OTPLength > 10 {
		return fmt.Errorf("mfa.otp_length must be between 4 and 10, got %d", c.MFA.OTPLength)
	}
	if c.MFA.OTPValiditySeconds <= 0 {
		return fmt.Errorf("mfa.otp_validity_seconds must be positive")
	}

	switch c.Audit.Type {
	case "memory":
	case "file":
		if c.Audit.Enabled && c.Audit.Path == "" {
			return fmt.Errorf("audit.path is required for the file auditor")
		}
	default:
		return fmt.Errorf("unknown audit type '%s'", c.Audit.Type)
	}

	switch c.Store.Type {
	case "memory":
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store type '%s'", c.Store.Type)
	}

	switch c.Challenge.Type {
	case "memory":
	case "redis":
		if c.Challenge.Redis.Addr == "" {
			return fmt.Errorf("challenge.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown challenge type '%s'", c.Challenge.Type)
	}

	names := make(map[string]struct{})
	for idx, rule := range c.Rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("rule at index %d: %w", idx, err)
		}
		if _, taken := names[rule.Name]; taken {
			return fmt.Errorf("rule at index %d: duplicate name '%s'", idx, rule.Name)
		}
		names[rule.Name] = struct{}{}
	}

	return nil
}

// EnabledSources converts the configured source names into the engine's
// enable map. Nil when every source is allowed.
func (c *Config) EnabledSources() map[core.Source]bool {
	if len(c.JIT.Sources) == 0 {
		return nil
	}
	enabled := make(map[core.Source]bool, len(c.JIT.Sources))
	for _, raw := range c.JIT.Sources {
		source, err := core.ParseSource(raw)
		if err != nil {
			continue // Validate rejects these before we get here
		}
		enabled[source] = true
	}
	return enabled
}
