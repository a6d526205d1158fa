package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/packfinderz-field/api/controllers"
	"github.com/angelmondragon/packfinderz-field/api/middleware"
	"github.com/angelmondragon/packfinderz-field/internal/connectivity"
	"github.com/angelmondragon/packfinderz-field/internal/queue"
	syncpkg "github.com/angelmondragon/packfinderz-field/internal/sync"
	"github.com/angelmondragon/packfinderz-field/pkg/config"
	"github.com/angelmondragon/packfinderz-field/pkg/db"
	"github.com/angelmondragon/packfinderz-field/pkg/logger"
)

// NewRouter assembles the loopback HTTP surface the mobile UI talks to.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	store *queue.Store,
	engine *syncpkg.Engine,
	monitor *connectivity.Monitor,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/queue", func(r chi.Router) {
			r.Post("/", controllers.EnqueueEntry(store, logg))
			r.Get("/", controllers.ListQueue(store, logg))
			r.Get("/failed", controllers.ListFailed(store, logg))
			r.Get("/counts", controllers.QueueCounts(store, logg))
			r.Post("/retry-failed", controllers.RetryAllFailed(engine, logg))
			r.Delete("/", controllers.ClearQueue(store, logg))
			r.Route("/{entryId}", func(r chi.Router) {
				r.Delete("/", controllers.DiscardEntry(store, logg))
				r.Post("/retry", controllers.RetryEntry(store, engine, logg))
			})
		})

		r.Post("/sync", controllers.TriggerSync(monitor, logg))
		r.Post("/connectivity", controllers.ReportConnectivity(monitor, logg))
		r.Get("/status", controllers.SyncStatus(monitor, logg))
	})

	return r
}
