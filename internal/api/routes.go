package api

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"portfolio-tracker/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultRequestTimeout = 2 * time.Minute

// NewRouter mounts the dashboard page, the JSON/htmx API and /metrics.
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	timeout := time.Duration(cfg.HTTP.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		CORS(cfg.HTTP.CORSAllowedOrigins),
		Instrument,
	)

	r.Get("/", h.HandleIndex)
	r.Get("/index.html", h.HandleIndex)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealth)

		r.Get("/portfolio", h.HandleGetPortfolio)
		r.Get("/positions", h.HandleGetPositions)
		r.Post("/positions/import", h.HandleImportPositions)
		r.Get("/positions/export", h.HandleExportPositions)

		r.Get("/transactions", h.HandleGetTransactions)
		r.Post("/transactions", h.HandleCreateTransaction)

		r.Get("/performance", h.HandleGetPerformance)
		r.Get("/distribution", h.HandleGetDistribution)
		r.Get("/quotes", h.HandleGetQuotes)

		r.Post("/analysis", h.HandleAnalysis)
		r.Post("/valuation/dcf", h.HandleDCF)

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.HandleGetSettings)
			r.Post("/", h.HandleUpdateAPIKey)
			r.Post("/{service}/test", h.HandleTestAPIKey)
			r.Delete("/{service}", h.HandleDeleteAPIKey)
		})
	})

	return r
}

// CORS answers preflight requests and tags responses for the configured
// origins. origins is "*" or a comma separated list; with a list the
// request's Origin is echoed back only when it is on it.
func CORS(origins string) func(http.Handler) http.Handler {
	var allowed []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	wildcard := len(allowed) == 0 || slices.Contains(allowed, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hdr := w.Header()
			switch origin := r.Header.Get("Origin"); {
			case wildcard:
				hdr.Set("Access-Control-Allow-Origin", "*")
			case origin != "" && slices.Contains(allowed, origin):
				hdr.Set("Access-Control-Allow-Origin", origin)
				hdr.Add("Vary", "Origin")
			}
			hdr.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			hdr.Set("Access-Control-Allow-Headers", "Content-Type, HX-Request, HX-Target, HX-Current-URL")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
