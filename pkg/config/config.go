// Package config loads bridge configuration from YAML files and the
// OPENCLAW_ environment, with file values overriding defaults and
// environment values overriding both.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/openclaw/bridge/pkg/resilience"
)

type Config struct {
	Gateway    GatewayConfig    `koanf:"gateway"`
	Log        LogConfig        `koanf:"log"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Skills     SkillsConfig     `koanf:"skills"`
	Audit      AuditConfig      `koanf:"audit"`
	Governance GovernanceConfig `koanf:"governance"`
}

type GatewayConfig struct {
	URL            string          `koanf:"url"`
	Token          string          `koanf:"token"`
	ConnectTimeout time.Duration   `koanf:"connect_timeout"`
	RequestTimeout time.Duration   `koanf:"request_timeout"`
	Reconnect      ReconnectConfig `koanf:"reconnect"`
}

type ReconnectConfig struct {
	Enabled     bool          `koanf:"enabled"`
	BaseDelay   time.Duration `koanf:"base_delay"`
	MaxDelay    time.Duration `koanf:"max_delay"`
	MaxAttempts int           `koanf:"max_attempts"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Enabled      bool   `koanf:"enabled"`
	Exporter     string `koanf:"exporter"` // stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

type SkillsConfig struct {
	Dir string `koanf:"dir"`
}

type AuditConfig struct {
	DBPath string `koanf:"db_path"` // empty means in-memory audit log
}

type GovernanceConfig struct {
	MaxTotalCost    float64  `koanf:"max_total_cost"`
	MaxCostPerSkill float64  `koanf:"max_cost_per_skill"`
	Allowlist       []string `koanf:"allowlist"`
	Blocklist       []string `koanf:"blocklist"`
	RequireApproval []string `koanf:"require_approval"`
}

// BackoffPolicy converts the reconnect settings to a policy, falling back to
// the library defaults for unset fields.
func (g GatewayConfig) BackoffPolicy() resilience.BackoffPolicy {
	policy := resilience.DefaultBackoffPolicy()
	if g.Reconnect.BaseDelay > 0 {
		policy.InitialDelay = g.Reconnect.BaseDelay
	}
	if g.Reconnect.MaxDelay > 0 {
		policy.MaxDelay = g.Reconnect.MaxDelay
	}
	if g.Reconnect.MaxAttempts > 0 {
		policy.MaxAttempts = g.Reconnect.MaxAttempts
	}
	return policy
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("gateway.url", "ws://127.0.0.1:18789")
	k.Set("gateway.connect_timeout", "10s")
	k.Set("gateway.request_timeout", "60s")
	k.Set("gateway.reconnect.enabled", true)
	k.Set("gateway.reconnect.base_delay", "1s")
	k.Set("gateway.reconnect.max_delay", "30s")
	k.Set("gateway.reconnect.max_attempts", 5)

	k.Set("log.level", "info")
	k.Set("log.format", "text")

	k.Set("telemetry.enabled", false)
	k.Set("telemetry.exporter", "stdout")

	k.Set("skills.dir", "skills")

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV (OPENCLAW_GATEWAY_URL -> gateway.url)
	if err := k.Load(env.Provider("OPENCLAW_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "OPENCLAW_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
