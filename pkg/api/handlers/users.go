package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"esupchat/pkg/auth"
	"esupchat/pkg/models"
	"esupchat/pkg/store"
	"esupchat/pkg/utils"
	"esupchat/pkg/validation"
)

var sessionTTL = 12 * time.Hour

// RegisterPublicUsers registers the routes reachable without a session.
func RegisterPublicUsers(r *mux.Router, limiter *auth.LoginLimiter, ttl time.Duration) {
	if ttl > 0 {
		sessionTTL = ttl
	}
	r.HandleFunc("/register", registerUser).Methods(http.MethodPost)
	r.HandleFunc("/login", loginLimited(limiter)).Methods(http.MethodPost)
}

// RegisterUsers registers the session-scoped account routes.
func RegisterUsers(r *mux.Router) {
	r.HandleFunc("/logout", logout).Methods(http.MethodPost)
	r.HandleFunc("/me", currentUser).Methods(http.MethodGet)
}

type credentials struct {
	Username            string `json:"username"`
	Password            string `json:"password"`
	CampusUsername      string `json:"campus_username,omitempty"`
	CampusPassword      string `json:"campus_password,omitempty"`
	PreferredLanguage   string `json:"preferred_language,omitempty"`
	PreferredRestaurant string `json:"preferred_restaurant,omitempty"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// registerUser handles POST /api/register. Campus credentials are optional
// at signup; without them the campus tools report errors instead of data.
func registerUser(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validation.Registration(req.Username, req.Password, req.PreferredRestaurant); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, taken, err := store.GetUserByName(req.Username); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	} else if taken {
		utils.JSONError(w, http.StatusConflict, "username already taken")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "could not hash password")
		return
	}
	u, err := store.CreateUser(models.User{
		Username:            req.Username,
		PasswordHash:        hash,
		CampusUsername:      req.CampusUsername,
		CampusPassword:      req.CampusPassword,
		PreferredLanguage:   req.PreferredLanguage,
		PreferredRestaurant: req.PreferredRestaurant,
	})
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	issueSession(w, u, http.StatusCreated)
}

// loginLimited handles POST /api/login with a per-IP rate limit so
// credential stuffing gets throttled before bcrypt work happens.
func loginLimited(limiter *auth.LoginLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if limiter != nil && !limiter.Allow(auth.ClientIP(r)) {
			utils.JSONError(w, http.StatusTooManyRequests, "too many login attempts")
			return
		}
		var req credentials
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		u, ok, err := store.GetUserByName(req.Username)
		if err != nil {
			utils.JSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !ok || !auth.CheckPassword(u.PasswordHash, req.Password) {
			utils.JSONError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		issueSession(w, u, http.StatusOK)
	}
}

func issueSession(w http.ResponseWriter, u models.User, status int) {
	token, err := auth.MintSession(u.ID, sessionTTL)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "could not mint session")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	_ = utils.JSONWrite(w, status, sessionResponse{Token: token, User: u})
}

// logout clears the session cookie. Tokens are not tracked server side, so
// a bearer client simply discards its copy.
func logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func currentUser(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserIDFromContext(r.Context())
	u, ok, err := store.GetUser(uid)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		utils.JSONError(w, http.StatusNotFound, "user not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, u)
}
