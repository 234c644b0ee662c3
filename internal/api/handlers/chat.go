package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmlee-dev/guidebot-backend/internal/rag"
	"github.com/jmlee-dev/guidebot-backend/internal/vectorstore"
)

type ChatHandler struct {
	chatbot *rag.Chatbot
}

func NewChatHandler(chatbot *rag.Chatbot) *ChatHandler {
	return &ChatHandler{chatbot: chatbot}
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req rag.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	resp, err := h.chatbot.Answer(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, rag.ErrEmptyQuery):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, vectorstore.ErrUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "vector index unavailable"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
