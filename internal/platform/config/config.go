// Package config loads service configuration from an optional YAML file and
// the environment. Environment variables win over file values so deployments
// can override without editing files.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Audit    AuditConfig    `yaml:"audit"`
	Rules    RulesConfig    `yaml:"rules"`
	LogLevel string         `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"SERVER_ADDR" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type DatabaseConfig struct {
	// URL empty means the service runs on in-memory stores, which is the
	// local development default.
	URL            string `yaml:"url" env:"DATABASE_URL"`
	MigrateOnStart bool   `yaml:"migrate_on_start" env:"DATABASE_MIGRATE_ON_START" env-default:"true"`
}

type RedisConfig struct {
	// URL empty means group locking falls back to in-process mutexes.
	URL          string        `yaml:"url" env:"REDIS_URL"`
	LockTTL      time.Duration `yaml:"lock_ttl" env:"REDIS_LOCK_TTL" env-default:"10s"`
	LockWait     time.Duration `yaml:"lock_wait" env:"REDIS_LOCK_WAIT" env-default:"5s"`
	LockRetry    time.Duration `yaml:"lock_retry" env:"REDIS_LOCK_RETRY" env-default:"50ms"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"REDIS_READ_TIMEOUT" env-default:"3s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"REDIS_WRITE_TIMEOUT" env-default:"3s"`
}

type AuthConfig struct {
	JWTSigningKey string        `yaml:"jwt_signing_key" env:"JWT_SIGNING_KEY" env-default:"dev-signing-key-change-me"`
	JWTIssuer     string        `yaml:"jwt_issuer" env:"JWT_ISSUER" env-default:"veritas"`
	JWTAudience   string        `yaml:"jwt_audience" env:"JWT_AUDIENCE" env-default:"veritas-api"`
	JWTExpiry     time.Duration `yaml:"jwt_expiry" env:"JWT_EXPIRY" env-default:"1h"`
}

type AuditConfig struct {
	// KafkaBrokers empty means audit events go to the structured log only.
	KafkaBrokers string `yaml:"kafka_brokers" env:"AUDIT_KAFKA_BROKERS"`
	KafkaTopic   string `yaml:"kafka_topic" env:"AUDIT_KAFKA_TOPIC" env-default:"veritas.audit.v1"`
	BufferSize   int    `yaml:"buffer_size" env:"AUDIT_BUFFER_SIZE" env-default:"256"`
}

type RulesConfig struct {
	// StrictComplianceApps lists caller names subject to the strict phone
	// compliance rule, comma separated.
	StrictComplianceApps string `yaml:"strict_compliance_apps" env:"RULES_STRICT_COMPLIANCE_APPS" env-default:"crm_app"`
	// EmailDenyDomains rejects submissions from these domains as disposable.
	EmailDenyDomains string `yaml:"email_deny_domains" env:"RULES_EMAIL_DENY_DOMAINS" env-default:"mailinator.com,tempmail.com,guerrillamail.com"`
	// EmailAllowDomains, when non-empty, restricts accepted domains to this set.
	EmailAllowDomains string `yaml:"email_allow_domains" env:"RULES_EMAIL_ALLOW_DOMAINS"`
	// DefaultPhoneRegion seeds the library parse for numbers without a +CC.
	DefaultPhoneRegion string `yaml:"default_phone_region" env:"RULES_DEFAULT_PHONE_REGION" env-default:"BR"`
}

// Load reads the config file at path (when it exists) and then the
// environment. An empty path skips the file entirely.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("reading config file %s: %w", path, err)
			}
			return &cfg, nil
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	return &cfg, nil
}

// StrictComplianceSet returns the configured caller names as a lookup set.
func (r RulesConfig) StrictComplianceSet() map[string]struct{} {
	return splitSet(r.StrictComplianceApps)
}

// DenyDomainSet returns the deny-listed email domains as a lookup set.
func (r RulesConfig) DenyDomainSet() map[string]struct{} {
	return splitSet(r.EmailDenyDomains)
}

// AllowDomainSet returns the allow-listed email domains as a lookup set. An
// empty set disables allow-list enforcement.
func (r RulesConfig) AllowDomainSet() map[string]struct{} {
	return splitSet(r.EmailAllowDomains)
}

// KafkaBrokerList splits the broker string into addresses.
func (a AuditConfig) KafkaBrokerList() []string {
	if strings.TrimSpace(a.KafkaBrokers) == "" {
		return nil
	}
	parts := strings.Split(a.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitSet(csv string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, p := range strings.Split(csv, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			set[p] = struct{}{}
		}
	}
	return set
}
