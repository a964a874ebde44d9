package toolmgr

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvDefaults are process-level overrides for manifest entries that omit the
// corresponding field. They are read once at manifest load time.
type EnvDefaults struct {
	ConnectTimeout      time.Duration `env:"TOOLBRIDGE_CONNECT_TIMEOUT"       envDefault:"30s"`
	CallTimeout         time.Duration `env:"TOOLBRIDGE_CALL_TIMEOUT"          envDefault:"30s"`
	ProbeTimeout        time.Duration `env:"TOOLBRIDGE_PROBE_TIMEOUT"         envDefault:"5s"`
	HealthCheckInterval time.Duration `env:"TOOLBRIDGE_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
	MaxRetryAttempts    int           `env:"TOOLBRIDGE_MAX_RETRY_ATTEMPTS"    envDefault:"3"`
	ClientVersion       string        `env:"TOOLBRIDGE_CLIENT_VERSION"        envDefault:"1.0.0"`
}

// DefaultsFromEnv loads EnvDefaults from the environment.
func DefaultsFromEnv() (EnvDefaults, error) {
	var d EnvDefaults
	if err := env.Parse(&d); err != nil {
		return EnvDefaults{}, fmt.Errorf("toolmgr: parse env defaults: %w", err)
	}
	return d, nil
}

// durationValue accepts Go duration strings ("30s", "1m") in YAML manifests.
type durationValue time.Duration

func (d *durationValue) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = durationValue(parsed)
	return nil
}

// ServiceManifest is one entry in a YAML service file.
type ServiceManifest struct {
	// Transport selects "stdio" or "http".
	Transport string `yaml:"transport"`

	// Stdio fields.
	Command string            `yaml:"command,omitempty"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`

	// HTTP fields.
	Endpoint  string            `yaml:"endpoint,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty"`
	PreferSSE *bool             `yaml:"prefer_sse,omitempty"`

	// Shared overrides; zero values fall back to EnvDefaults.
	ConnectTimeout      durationValue `yaml:"connect_timeout,omitempty"`
	CallTimeout         durationValue `yaml:"call_timeout,omitempty"`
	ProbeTimeout        durationValue `yaml:"probe_timeout,omitempty"`
	HealthCheckInterval durationValue `yaml:"health_check_interval,omitempty"`
	MaxRetryAttempts    int           `yaml:"max_retry_attempts,omitempty"`
}

type manifestFile struct {
	Services map[string]ServiceManifest `yaml:"services"`
}

// LoadServices parses a YAML manifest into ServiceConfigs keyed by service
// id, filling unset fields from EnvDefaults read from the process
// environment.
func LoadServices(path string) (map[string]ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("toolmgr: read manifest: %w", err)
	}
	return ParseServices(data)
}

// ParseServices is LoadServices over in-memory YAML bytes.
func ParseServices(data []byte) (map[string]ServiceConfig, error) {
	defaults, err := DefaultsFromEnv()
	if err != nil {
		return nil, err
	}

	var file manifestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("toolmgr: parse manifest: %w", err)
	}
	if len(file.Services) == 0 {
		return nil, fmt.Errorf("toolmgr: manifest declares no services")
	}

	configs := make(map[string]ServiceConfig, len(file.Services))
	for id, entry := range file.Services {
		cfg, err := entry.config(defaults)
		if err != nil {
			return nil, fmt.Errorf("toolmgr: service %q: %w", id, err)
		}
		configs[id] = cfg
	}
	return configs, nil
}

func (m ServiceManifest) config(defaults EnvDefaults) (ServiceConfig, error) {
	base := BaseServiceConfig{
		ConnectTimeout:      pick(time.Duration(m.ConnectTimeout), defaults.ConnectTimeout),
		CallTimeout:         pick(time.Duration(m.CallTimeout), defaults.CallTimeout),
		ProbeTimeout:        pick(time.Duration(m.ProbeTimeout), defaults.ProbeTimeout),
		HealthCheckInterval: pick(time.Duration(m.HealthCheckInterval), defaults.HealthCheckInterval),
		ClientVersion:       defaults.ClientVersion,
	}
	recovery := DefaultRecoveryConfig()
	if m.MaxRetryAttempts > 0 {
		recovery.MaxRetryAttempts = m.MaxRetryAttempts
	} else if defaults.MaxRetryAttempts > 0 {
		recovery.MaxRetryAttempts = defaults.MaxRetryAttempts
	}
	base.Recovery = recovery

	switch m.Transport {
	case "stdio":
		if m.Command == "" {
			return nil, fmt.Errorf("stdio transport requires a command")
		}
		return &StdioServiceConfig{
			BaseServiceConfig: base,
			Command:           m.Command,
			Args:              m.Args,
			Env:               m.Env,
		}, nil
	case "http":
		if m.Endpoint == "" {
			return nil, fmt.Errorf("http transport requires an endpoint")
		}
		headers := make(http.Header, len(m.Headers))
		for k, v := range m.Headers {
			headers.Set(k, v)
		}
		return &HTTPServiceConfig{
			BaseServiceConfig: base,
			Endpoint:          m.Endpoint,
			Headers:           headers,
			PreferSSE:         m.PreferSSE,
		}, nil
	case "":
		return nil, fmt.Errorf("transport is required")
	default:
		return nil, fmt.Errorf("unknown transport %q", m.Transport)
	}
}

func pick(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
