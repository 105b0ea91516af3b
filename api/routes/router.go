package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tooldepot/tooldepot-backend/api/controllers"
	"github.com/tooldepot/tooldepot-backend/api/middleware"
	"github.com/tooldepot/tooldepot-backend/internal/editing"
	"github.com/tooldepot/tooldepot-backend/pkg/config"
	"github.com/tooldepot/tooldepot-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	catalogPinger controllers.Pinger,
	mediaPinger controllers.Pinger,
	editingService editing.Service,
	metricsGatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, catalogPinger, mediaPinger))
	})

	if metricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/products/{productId}/edit-session", controllers.OpenProductSession(editingService, logg))

		r.Route("/edit-sessions", func(r chi.Router) {
			r.Post("/", controllers.OpenBlankSession(editingService, logg))

			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", controllers.GetSession(editingService, logg))
				r.Delete("/", controllers.DiscardSession(editingService, logg))
				r.Post("/save", controllers.SaveSession(editingService, logg))

				r.Put("/fields/{field}", controllers.UpdateSessionField(editingService, logg))
				r.Put("/attributes/{attribute}", controllers.UpdateSessionAttribute(editingService, logg))

				r.Route("/media", func(r chi.Router) {
					r.Post("/files", controllers.AddSessionMediaFiles(editingService, logg, cfg.MediaStore.MaxUploadBytes()))
					r.Post("/url", controllers.AddSessionMediaURL(editingService, logg))
					r.Delete("/{ref}", controllers.RemoveSessionMedia(editingService, logg))
					r.Put("/order", controllers.ReorderSessionMedia(editingService, logg))
				})
			})
		})
	})

	return r
}
