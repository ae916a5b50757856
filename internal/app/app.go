package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"esupchat/internal/sweeper"
	"esupchat/pkg/banner"
	"esupchat/pkg/campus"
	"esupchat/pkg/completion"
	"esupchat/pkg/config"
	"esupchat/pkg/orchestrator"
	"esupchat/pkg/store"
	"esupchat/pkg/tools"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	campus *campus.Client
	engine *orchestrator.Engine
	sweep  *sweeper.Sweeper

	srv *http.Server
}

// New initializes everything that does not need a running context: config
// validation, runtime signing keys, the store and the orchestration
// engine. Call Run to start the HTTP server and block until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	if err := validateConfig(eff); err != nil {
		return nil, err
	}
	cfg := eff.Config

	// runtime signing keys; the first configured key mints new sessions
	rc := &config.RuntimeConfig{SigningKeys: map[string]struct{}{}}
	for i, k := range cfg.Auth.SigningKeys {
		rc.SigningKeys[k] = struct{}{}
		if i == 0 {
			rc.PrimarySigningKey = k
		}
	}
	config.SetRuntime(rc)

	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	campusClient := campus.New(
		cfg.Campus.BaseURL,
		time.Duration(cfg.Campus.TimeoutSeconds)*time.Second,
		time.Duration(cfg.Campus.SessionTTLMinutes)*time.Minute,
	)
	llm := completion.NewOpenAIClient(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		time.Duration(cfg.OpenAI.TimeoutSeconds)*time.Second,
	)
	dispatcher := tools.NewDispatcher(campusClient)
	engine := orchestrator.New(store.DB{}, llm, dispatcher, cfg.Chat.MaxRounds)

	sw, err := sweeper.New(campusClient, cfg.Campus.SweepCron, time.Duration(cfg.Campus.SessionTTLMinutes)*time.Minute)
	if err != nil {
		return nil, err
	}

	return &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		campus:    campusClient,
		engine:    engine,
		sweep:     sw,
	}, nil
}

// Run starts the session sweeper and the HTTP server, and blocks until
// ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	stopSweep := a.sweep.Start(ctx)
	defer stopSweep()

	a.printBanner()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		return a.shutdownHTTP()
	case err := <-errCh:
		return err
	}
}

func (a *App) printBanner() {
	verStr := a.version
	if a.commit != "" && a.commit != "none" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "" && a.buildDate != "unknown" {
		verStr += " @ " + a.buildDate
	}
	banner.Print(a.eff, verStr)
}

func (a *App) shutdownHTTP() error {
	if a.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.srv.Shutdown(ctx)
}
