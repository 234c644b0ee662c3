package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jmlee-dev/guidebot-backend/internal/search"
)

// TranslateRequest carries the fields of one benefit record to translate
// from the native language in a single call.
type TranslateRequest struct {
	Title          string `json:"title"`
	Eligibility    string `json:"eligibility"`
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
}

type TranslateResponse struct {
	Title       string `json:"title"`
	Eligibility string `json:"eligibility"`
	Text        string `json:"text"`
}

type TranslateHandler struct {
	translator search.Translator
}

func NewTranslateHandler(translator search.Translator) *TranslateHandler {
	return &TranslateHandler{translator: translator}
}

func (h *TranslateHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Text) == "" || req.TargetLanguage == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title, text and target_language are required"})
		return
	}

	var resp TranslateResponse
	fields := []struct {
		src string
		dst *string
	}{
		{req.Title, &resp.Title},
		{req.Eligibility, &resp.Eligibility},
		{req.Text, &resp.Text},
	}
	for _, f := range fields {
		translated, err := h.translator.Translate(r.Context(), f.src, req.TargetLanguage)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		*f.dst = translated
	}

	writeJSON(w, http.StatusOK, resp)
}
