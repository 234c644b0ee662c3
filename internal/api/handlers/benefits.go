package handlers

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmlee-dev/guidebot-backend/internal/cache"
	"github.com/jmlee-dev/guidebot-backend/internal/search"
	"github.com/jmlee-dev/guidebot-backend/internal/vectorstore"
)

const benefitsCacheTTL = 5 * time.Minute

type BenefitsHandler struct {
	svc   *search.BenefitsService
	cache *cache.Cache
}

func NewBenefitsHandler(svc *search.BenefitsService, c *cache.Cache) *BenefitsHandler {
	return &BenefitsHandler{svc: svc, cache: c}
}

func (h *BenefitsHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req search.BenefitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	cacheKey := benefitsCacheKey(req)
	if h.cache != nil {
		var cached search.BenefitsResponse
		if found, _ := h.cache.Get(r.Context(), cacheKey, &cached); found {
			writeJSON(w, http.StatusOK, &cached)
			return
		}
	}

	resp, err := h.svc.Search(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrEmptyQuery):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, vectorstore.ErrUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "vector index unavailable"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), cacheKey, resp, benefitsCacheTTL); err != nil {
			slog.Debug("cache benefits response", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func benefitsCacheKey(req search.BenefitsRequest) string {
	raw := fmt.Sprintf("%s|%s|%s|%s|%s|%d|%d|%d",
		req.Query, req.Lang, req.Visa, req.Jurisdiction, req.Category, req.K, req.Page, req.Size)
	sum := sha1.Sum([]byte(raw))
	return "benefits:search:" + hex.EncodeToString(sum[:])
}
