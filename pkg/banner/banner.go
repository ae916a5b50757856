package banner

import (
	"fmt"

	"esupchat/pkg/config"
)

const banner = `
███████╗███████╗██╗   ██╗██████╗  ██████╗██╗  ██╗ █████╗ ████████╗
██╔════╝██╔════╝██║   ██║██╔══██╗██╔════╝██║  ██║██╔══██╗╚══██╔══╝
█████╗  ███████╗██║   ██║██████╔╝██║     ███████║███████║   ██║
██╔══╝  ╚════██║██║   ██║██╔═══╝ ██║     ██╔══██║██╔══██║   ██║
███████╗███████║╚██████╔╝██║     ╚██████╗██║  ██║██║  ██║   ██║
╚══════╝╚══════╝ ╚═════╝ ╚═╝      ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝
`

// Print renders the startup banner with the effective runtime settings.
func Print(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	dbPath := eff.DBPath
	if dbPath == "" && eff.Config != nil {
		dbPath = eff.Config.Storage.DBPath
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config:   %s\n", src)
	if eff.Config != nil {
		fmt.Printf("Model:    %s\n", eff.Config.OpenAI.Model)
		fmt.Printf("Campus:   %s\n", eff.Config.Campus.BaseURL)
	}

	fmt.Println("\n== Checks =====================================================")
	if eff.Config != nil && eff.Config.OpenAI.APIKey != "" {
		fmt.Println("- OpenAI API key: OK")
	} else {
		fmt.Println("- OpenAI API key: MISSING (set OPENAI_API_KEY; chat will fail)")
	}
	if eff.Config != nil && len(eff.Config.Auth.SigningKeys) > 0 {
		fmt.Printf("- Session signing keys: OK (%d)\n", len(eff.Config.Auth.SigningKeys))
	} else {
		fmt.Println("- Session signing keys: MISSING (set ESUPCHAT_SIGNING_KEYS)")
	}
	if dbPath != "" {
		fmt.Printf("- DB Path: %s\n", dbPath)
	} else {
		fmt.Println("- DB Path: not set (use --db or ESUPCHAT_DB_PATH)")
	}

	fmt.Println("\n== Examples ===================================================")
	fmt.Println("curl -X POST 'http://<host>:<port>/api/register' -d '{\"username\":\"alice\",\"password\":\"...\"}'")
	fmt.Println("curl -X POST 'http://<host>:<port>/api/chat' -H 'Authorization: Bearer <token>' -d '{\"message\":\"Quel est le menu du RU ?\"}'")

	fmt.Println("\n== Logs: ======================================================")
}
