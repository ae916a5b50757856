package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"esupchat/pkg/api/handlers"
	"esupchat/pkg/auth"
	"esupchat/pkg/config"
	"esupchat/pkg/orchestrator"
	"esupchat/pkg/telemetry"
)

// Handler assembles the full API router.
//
// Everything under /api requires a session except registration and login.
// Health, readiness, metrics and docs are mounted by the app, not here.
func Handler(eng *orchestrator.Engine, cfg *config.Config) http.Handler {
	r := mux.NewRouter()
	r.Use(telemetry.Middleware)

	sessionTTL := time.Duration(cfg.Auth.SessionTTLMinutes) * time.Minute
	limiter := auth.NewLoginLimiter(cfg.Auth.Login.RPS, cfg.Auth.Login.Burst)

	pub := r.PathPrefix("/api").Subrouter()
	handlers.RegisterPublicUsers(pub, limiter, sessionTTL)

	priv := r.PathPrefix("/api").Subrouter()
	priv.Use(auth.RequireSession)
	handlers.RegisterUsers(priv)
	handlers.RegisterConversations(priv)
	handlers.RegisterChat(priv, eng, cfg.Chat.MaxMessageLen)

	return r
}
