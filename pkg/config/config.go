package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// RuntimeConfig holds derived runtime values that other packages may query
// at runtime (populated during startup after merging env+file).
type RuntimeConfig struct {
	SigningKeys map[string]struct{}
	// PrimarySigningKey is the key new session tokens are minted with;
	// the others remain valid for verification during rotation.
	PrimarySigningKey string
}

var (
	runtimeMu  sync.RWMutex
	runtimeCfg *RuntimeConfig
)

// SetRuntime sets the canonical runtime config used by the running server.
func SetRuntime(rc *RuntimeConfig) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	runtimeCfg = rc
}

// GetSigningKeys returns a copy of the configured session signing keys.
func GetSigningKeys() map[string]struct{} {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	out := map[string]struct{}{}
	if runtimeCfg == nil || runtimeCfg.SigningKeys == nil {
		return out
	}
	for k := range runtimeCfg.SigningKeys {
		out[k] = struct{}{}
	}
	return out
}

// PrimarySigningKey returns the key used to mint new session tokens.
func PrimarySigningKey() string {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	if runtimeCfg == nil {
		return ""
	}
	return runtimeCfg.PrimarySigningKey
}

type Config struct {
	Server struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`
	OpenAI struct {
		APIKey         string `yaml:"api_key"`
		Model          string `yaml:"model"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"openai"`
	Campus struct {
		BaseURL           string `yaml:"base_url"`
		TimeoutSeconds    int    `yaml:"timeout_seconds"`
		SessionTTLMinutes int    `yaml:"session_ttl_minutes"`
		SweepCron         string `yaml:"sweep_cron"`
	} `yaml:"campus"`
	Chat struct {
		// MaxRounds bounds the number of completion rounds per user
		// message; tool-requesting rounds count toward the limit.
		MaxRounds     int `yaml:"max_rounds"`
		MaxMessageLen int `yaml:"max_message_len"`
	} `yaml:"chat"`
	Auth struct {
		SigningKeys       []string `yaml:"signing_keys"`
		SessionTTLMinutes int      `yaml:"session_ttl_minutes"`
		Login             struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"login"`
	} `yaml:"auth"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text|json
	} `yaml:"logging"`
}

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// ApplyDefaults fills zero values with server defaults.
func (c *Config) ApplyDefaults() {
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.OpenAI.TimeoutSeconds == 0 {
		c.OpenAI.TimeoutSeconds = 60
	}
	if c.Campus.BaseURL == "" {
		c.Campus.BaseURL = "https://appmob.uphf.fr/backend"
	}
	if c.Campus.TimeoutSeconds == 0 {
		c.Campus.TimeoutSeconds = 30
	}
	if c.Campus.SessionTTLMinutes == 0 {
		c.Campus.SessionTTLMinutes = 60
	}
	if c.Campus.SweepCron == "" {
		c.Campus.SweepCron = "*/15 * * * *"
	}
	if c.Chat.MaxRounds == 0 {
		c.Chat.MaxRounds = 5
	}
	if c.Chat.MaxMessageLen == 0 {
		c.Chat.MaxMessageLen = 4000
	}
	if c.Auth.SessionTTLMinutes == 0 {
		c.Auth.SessionTTLMinutes = 12 * 60
	}
	if c.Auth.Login.RPS == 0 {
		c.Auth.Login.RPS = 1
	}
	if c.Auth.Login.Burst == 0 {
		c.Auth.Login.Burst = 5
	}
}

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}
