package config

import (
	"flag"
	"net"
	"os"
	"strconv"
	"strings"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Addr   string
	DB     string
	Config string
	Set    map[string]bool
}

// EffectiveConfigResult is the merged configuration the server runs with
// after combining config file, environment and command-line flags.
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	Source string // "flags", "config", or "env"
}

// ParseCommandFlags defines and parses command-line flags.
func ParseCommandFlags() Flags {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	dbPtr := flag.String("db", "./.database", "Pebble DB path")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return Flags{Addr: *addrPtr, DB: *dbPtr, Config: *cfgPtr, Set: setFlags}
}

// ResolveConfigPath picks the config file path: an explicit flag wins over
// the ESUPCHAT_CONFIG environment variable, which wins over the default.
func ResolveConfigPath(flagVal string, flagSet bool) string {
	if flagSet {
		return flagVal
	}
	if v := strings.TrimSpace(os.Getenv("ESUPCHAT_CONFIG")); v != "" {
		return v
	}
	return flagVal
}

// LoadEnvOverrides applies environment overrides onto the provided cfg and
// reports whether any env vars were used.
func LoadEnvOverrides(cfg *Config) bool {
	envUsed := false
	parseList := func(v string) []string {
		if v == "" {
			return nil
		}
		var parts []string
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				parts = append(parts, s)
			}
		}
		return parts
	}

	if v := os.Getenv("ESUPCHAT_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		}
	}
	if v := os.Getenv("ESUPCHAT_DB_PATH"); v != "" {
		envUsed = true
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		envUsed = true
		cfg.OpenAI.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("ESUPCHAT_OPENAI_MODEL"); v != "" {
		envUsed = true
		cfg.OpenAI.Model = v
	}
	if v := os.Getenv("ESUPCHAT_CAMPUS_URL"); v != "" {
		envUsed = true
		cfg.Campus.BaseURL = v
	}
	if v := os.Getenv("ESUPCHAT_SIGNING_KEYS"); v != "" {
		envUsed = true
		cfg.Auth.SigningKeys = parseList(v)
	}
	if v := os.Getenv("ESUPCHAT_LOG_LEVEL"); v != "" {
		envUsed = true
		cfg.Logging.Level = v
	}
	return envUsed
}

// LoadEffective loads the config file (if present), applies env overrides
// and defaults, and resolves addr/db with explicit flags winning.
func LoadEffective(flags Flags) (EffectiveConfigResult, error) {
	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := Load(cfgPath)
	fileUsed := true
	if err != nil {
		if !os.IsNotExist(err) {
			return EffectiveConfigResult{}, err
		}
		cfg = &Config{}
		fileUsed = false
	}
	envUsed := LoadEnvOverrides(cfg)
	cfg.ApplyDefaults()

	addr := cfg.Addr()
	if flags.Set["addr"] {
		addr = flags.Addr
	}
	dbPath := cfg.Storage.DBPath
	if dbPath == "" || flags.Set["db"] {
		dbPath = flags.DB
	}

	source := "flags"
	switch {
	case fileUsed:
		source = "config"
	case envUsed:
		source = "env"
	}
	return EffectiveConfigResult{Config: cfg, Addr: addr, DBPath: dbPath, Source: source}, nil
}
