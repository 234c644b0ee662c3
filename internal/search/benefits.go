package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmlee-dev/guidebot-backend/internal/embedding"
	"github.com/jmlee-dev/guidebot-backend/internal/vectorstore"
)

// ErrEmptyQuery marks a blank query string. Caller-correctable, never
// retried.
var ErrEmptyQuery = errors.New("query text is empty")

type BenefitsRequest struct {
	Query        string `json:"query"`
	Lang         string `json:"lang"`
	Visa         string `json:"visa,omitempty"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
	Category     string `json:"category,omitempty"`
	K            int    `json:"k,omitempty"`
	Page         int    `json:"page"`
	Size         int    `json:"size"`
}

type BenefitHit struct {
	ProgramID    string  `json:"program_id"`
	Authority    string  `json:"authority,omitempty"`
	Jurisdiction string  `json:"jurisdiction,omitempty"`
	Category     string  `json:"category,omitempty"`
	Name         string  `json:"name"`
	Desc         string  `json:"desc,omitempty"`
	ApplyURL     string  `json:"apply_url,omitempty"`
	SourceURL    string  `json:"source_url,omitempty"`
	Featured     bool    `json:"featured"`
	UpdatedAt    string  `json:"updated_at,omitempty"`
	Score        float64 `json:"score"`
}

type BenefitsResponse struct {
	Total int          `json:"total"`
	Page  int          `json:"page"`
	Size  int          `json:"size"`
	Items []BenefitHit `json:"items"`
}

// BenefitsService runs business-ranked retrieval over the benefits
// collection: embed the query, fetch a candidate set larger than one page,
// fuse similarity with featured and recency signals, then paginate the
// fully sorted set.
type BenefitsService struct {
	store      vectorstore.Store
	embedder   *embedding.Service
	weights    Weights
	candidateK int
	translator Translator
	now        func() time.Time
}

func NewBenefitsService(store vectorstore.Store, embedder *embedding.Service, weights Weights, candidateK int, translator Translator) *BenefitsService {
	if candidateK <= 0 {
		candidateK = 30
	}
	return &BenefitsService{
		store:      store,
		embedder:   embedder,
		weights:    weights,
		candidateK: candidateK,
		translator: translator,
		now:        time.Now,
	}
}

func (s *BenefitsService) Search(ctx context.Context, req BenefitsRequest) (*BenefitsResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}
	lang := req.Lang
	if lang == "" {
		lang = nativeLang
	}
	size := req.Size
	if size <= 0 {
		size = 10
	}
	page := req.Page
	if page < 0 {
		page = 0
	}
	k := req.K
	if k <= 0 {
		k = s.candidateK
	}

	vector, err := s.embedder.EmbedSingle(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	filter := &vectorstore.SearchFilter{
		Jurisdiction: req.Jurisdiction,
		Category:     req.Category,
		Visa:         req.Visa,
	}
	hits, err := s.store.Search(ctx, vector, k, filter)
	if err != nil {
		return nil, fmt.Errorf("search benefits: %w", err)
	}

	ranked := Rank(hits, s.weights, s.now())
	pageHits := Paginate(ranked, page, size)

	items := make([]BenefitHit, 0, len(pageHits))
	for _, rh := range pageHits {
		items = append(items, s.toBenefitHit(ctx, rh, lang))
	}

	slog.Debug("benefits search",
		"query_len", len(req.Query),
		"lang", lang,
		"candidates", len(hits),
		"page", page,
		"returned", len(items),
	)

	return &BenefitsResponse{
		Total: len(ranked),
		Page:  page,
		Size:  size,
		Items: items,
	}, nil
}

func (s *BenefitsService) toBenefitHit(ctx context.Context, rh RankedHit, lang string) BenefitHit {
	pl := rh.Hit.Payload
	name, desc := pickText(ctx, pl, lang, s.translator)

	programID := payloadString(pl, "program_id")
	if programID == "" {
		programID = payloadString(pl, "id")
	}
	if programID == "" {
		programID = rh.Hit.ID
	}

	featured, _ := pl["featured"].(bool)

	return BenefitHit{
		ProgramID:    programID,
		Authority:    payloadString(pl, "authority"),
		Jurisdiction: payloadString(pl, "jurisdiction"),
		Category:     payloadString(pl, "category"),
		Name:         name,
		Desc:         desc,
		ApplyURL:     payloadString(pl, "apply_url"),
		SourceURL:    payloadString(pl, "source_url"),
		Featured:     featured,
		UpdatedAt:    payloadString(pl, "updated_at"),
		Score:        rh.FinalScore,
	}
}
