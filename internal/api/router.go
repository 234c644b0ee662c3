package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/jmlee-dev/guidebot-backend/internal/api/handlers"
	"github.com/jmlee-dev/guidebot-backend/internal/api/middleware"
	"github.com/jmlee-dev/guidebot-backend/internal/cache"
	"github.com/jmlee-dev/guidebot-backend/internal/config"
	"github.com/jmlee-dev/guidebot-backend/internal/document"
	"github.com/jmlee-dev/guidebot-backend/internal/queue"
	"github.com/jmlee-dev/guidebot-backend/internal/rag"
	"github.com/jmlee-dev/guidebot-backend/internal/search"
	"github.com/jmlee-dev/guidebot-backend/internal/vectorstore"
)

// Deps carries the shared services the router wires into handlers. The two
// vector stores point at different collections of the same index.
type Deps struct {
	DB             *pgxpool.Pool
	Redis          *redis.Client
	Cfg            *config.Config
	DocSvc         *document.Service
	QueueClient    *queue.Client
	Chatbot        *rag.Chatbot
	BenefitsSvc    *search.BenefitsService
	Translator     search.Translator
	GuidebookStore vectorstore.Store
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	health := handlers.NewHealthHandler(deps.DB, deps.Redis, deps.GuidebookStore)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	respCache := cache.NewCache(deps.Redis)

	r.Route("/api/v1", func(r chi.Router) {
		chatH := handlers.NewChatHandler(deps.Chatbot)
		r.Post("/chat", chatH.Chat)

		benefitsH := handlers.NewBenefitsHandler(deps.BenefitsSvc, respCache)
		r.Post("/semantic/benefits/search", benefitsH.Search)

		translateH := handlers.NewTranslateHandler(deps.Translator)
		r.Post("/translate", translateH.Translate)

		docH := handlers.NewDocumentHandler(deps.DocSvc, deps.QueueClient)
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", docH.Upload)
			r.Get("/", docH.List)
			r.Get("/{id}", docH.Get)
			r.Delete("/{id}", docH.Delete)
			r.Get("/{id}/status", docH.Status)
		})
	})

	return r
}
