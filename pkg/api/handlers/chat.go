package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"esupchat/pkg/auth"
	"esupchat/pkg/models"
	"esupchat/pkg/orchestrator"
	"esupchat/pkg/utils"
	"esupchat/pkg/validation"
)

// RegisterChat registers the chat turn endpoint.
func RegisterChat(r *mux.Router, eng *orchestrator.Engine, maxMessageLen int) {
	r.HandleFunc("/chat", chatTurn(eng, maxMessageLen)).Methods(http.MethodPost)
}

type chatRequest struct {
	Conversation string `json:"conversation,omitempty"`
	Message      string `json:"message"`
}

type chatResponse struct {
	Conversation models.Conversation `json:"conversation"`
	// Messages holds the caller's message and the final assistant reply.
	Messages []models.Message `json:"messages"`
	// Steps holds the intermediate tool traffic, for clients that render it.
	Steps []models.Message `json:"steps,omitempty"`
}

// chatTurn handles POST /api/chat: one user message in, one assistant
// reply out, with the tool traffic in between exposed as steps.
func chatTurn(eng *orchestrator.Engine, maxMessageLen int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.UserIDFromContext(r.Context())

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if err := validation.ChatMessage(req.Message, maxMessageLen); err != nil {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := eng.HandleUserMessage(r.Context(), uid, req.Conversation, req.Message)
		switch {
		case err == nil:
			// fall through to the success response
		case errors.Is(err, orchestrator.ErrExhausted), errors.Is(err, orchestrator.ErrPersistence):
			// the turn still produced a reply the user should see
		case errors.Is(err, orchestrator.ErrEmptyMessage):
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, orchestrator.ErrUnauthorized):
			utils.JSONError(w, http.StatusForbidden, "conversation not accessible")
			return
		case errors.Is(err, orchestrator.ErrCompletion):
			utils.JSONError(w, http.StatusServiceUnavailable, "completion service unavailable")
			return
		default:
			utils.JSONError(w, http.StatusInternalServerError, err.Error())
			return
		}

		_ = utils.JSONWrite(w, http.StatusOK, chatResponse{
			Conversation: res.Conversation,
			Messages:     []models.Message{res.UserMessage, res.Reply},
			Steps:        res.Steps,
		})
	}
}
