package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"esupchat/pkg/auth"
	"esupchat/pkg/models"
	"esupchat/pkg/store"
	"esupchat/pkg/utils"
	"esupchat/pkg/validation"
)

// RegisterConversations registers the conversation CRUD routes.
func RegisterConversations(r *mux.Router) {
	r.HandleFunc("/conversations", createConversation).Methods(http.MethodPost)
	r.HandleFunc("/conversations", listConversations).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}", renameConversation).Methods(http.MethodPatch)
	r.HandleFunc("/conversations/{id}", deleteConversation).Methods(http.MethodDelete)
	r.HandleFunc("/conversations/{id}/messages", listMessages).Methods(http.MethodGet)
}

// createConversation handles POST /api/conversations. The title is
// optional; an untitled conversation gets one from its first message.
func createConversation(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserIDFromContext(r.Context())

	var req struct {
		Title string `json:"title"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Title != "" {
		if err := validation.Title(req.Title); err != nil {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	conv, err := store.CreateConversation(uid, req.Title)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, conv)
}

func listConversations(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserIDFromContext(r.Context())
	convs, err := store.ListConversations(uid)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Conversations []models.Conversation `json:"conversations"`
	}{Conversations: convs})
}

func renameConversation(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserIDFromContext(r.Context())
	id := mux.Vars(r)["id"]

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validation.Title(req.Title); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok, err := store.GetConversation(id, uid); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	} else if !ok {
		utils.JSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	conv, err := store.UpdateTitle(id, req.Title)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, conv)
}

func deleteConversation(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserIDFromContext(r.Context())
	id := mux.Vars(r)["id"]

	if _, ok, err := store.GetConversation(id, uid); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	} else if !ok {
		utils.JSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err := store.DeleteConversation(id); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Deleted string `json:"deleted"`
	}{Deleted: id})
}

// listMessages handles GET /api/conversations/{id}/messages. Developer
// seed messages stay in the transcript; clients filter on role when
// rendering.
func listMessages(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserIDFromContext(r.Context())
	id := mux.Vars(r)["id"]

	if _, ok, err := store.GetConversation(id, uid); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	} else if !ok {
		utils.JSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	msgs, err := store.GetMessages(id, uid)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Conversation string           `json:"conversation"`
		Messages     []models.Message `json:"messages"`
	}{Conversation: id, Messages: msgs})
}
