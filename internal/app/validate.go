package app

import (
	"fmt"

	"esupchat/pkg/config"
	"esupchat/pkg/logger"
)

// validateConfig fails fast on settings the server cannot run without.
func validateConfig(eff config.EffectiveConfigResult) error {
	if eff.Config == nil {
		return fmt.Errorf("no effective config")
	}
	if eff.DBPath == "" {
		return fmt.Errorf("db path is required (use --db or ESUPCHAT_DB_PATH)")
	}
	if eff.Addr == "" {
		return fmt.Errorf("listen address is required")
	}
	if len(eff.Config.Auth.SigningKeys) == 0 {
		return fmt.Errorf("at least one session signing key is required (ESUPCHAT_SIGNING_KEYS)")
	}
	if eff.Config.OpenAI.APIKey == "" {
		// the server can start for inspection, but chat turns will 503
		logger.Warn("openai_api_key_missing")
	}
	return nil
}
