package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fabtrack/fabtrack-backend/api/controllers"
	"github.com/fabtrack/fabtrack-backend/api/middleware"
	"github.com/fabtrack/fabtrack-backend/internal/audit"
	"github.com/fabtrack/fabtrack-backend/internal/inventory"
	"github.com/fabtrack/fabtrack-backend/internal/projects"
	"github.com/fabtrack/fabtrack-backend/internal/queue"
	"github.com/fabtrack/fabtrack-backend/internal/scheduling"
	"github.com/fabtrack/fabtrack-backend/pkg/config"
	"github.com/fabtrack/fabtrack-backend/pkg/db"
	"github.com/fabtrack/fabtrack-backend/pkg/logger"
	"github.com/fabtrack/fabtrack-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	metricsHandler http.Handler,
	txRunner db.TxRunner,
	projectService projects.Service,
	deadlineValidator projects.DeadlineValidator,
	queueService queue.Service,
	queueOrdering queue.Ordering,
	capacityValidator queue.CapacityValidator,
	scheduler scheduling.Scheduler,
	inventoryMatcher inventory.Matcher,
	inventoryLedger inventory.Ledger,
	inventoryRepo inventory.Repository,
	auditService audit.Service,
	thicknessTolerance decimal.Decimal,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Post("/", controllers.ProjectCreate(projectService, logg))
			r.Get("/", controllers.ProjectList(projectService, logg))
			r.Get("/overdue", controllers.ProjectsOverdue(deadlineValidator, logg))
			r.Get("/upcoming", controllers.ProjectsUpcoming(deadlineValidator, cfg.Scheduling.UpcomingWindowDays, logg))
			r.Route("/{projectId}", func(r chi.Router) {
				r.Get("/", controllers.ProjectDetail(projectService, logg))
				r.Post("/quote", controllers.ProjectSetQuote(projectService, logg))
				r.Post("/pop", controllers.ProjectMarkPOP(projectService, logg))
				r.Post("/cancel", controllers.ProjectCancel(projectService, logg))
				r.Get("/pop-deadline", controllers.ProjectDeadline(deadlineValidator, logg))
				r.Get("/eligibility", controllers.ProjectEligibility(scheduler, logg))
				r.Post("/schedule", controllers.ProjectSchedule(scheduler, logg))
			})
		})

		r.Route("/queue", func(r chi.Router) {
			r.Get("/", controllers.QueueList(queueService, logg))
			r.Post("/", controllers.QueueEnqueue(queueService, logg))
			r.Post("/reorder", controllers.QueueReorder(queueService, queueOrdering, logg))
			r.Get("/capacity", controllers.QueueCapacity(capacityValidator, logg))
			r.Route("/{entryId}", func(r chi.Router) {
				r.Get("/", controllers.QueueEntryDetail(queueService, logg))
				r.Patch("/status", controllers.QueueUpdateStatus(queueService, logg))
			})
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.InventoryList(inventoryRepo, logg))
			r.Get("/low-stock", controllers.InventoryLowStock(inventoryRepo, logg))
			r.Post("/match", controllers.InventoryMatch(inventoryMatcher, thicknessTolerance, logg))
			r.Route("/{itemId}", func(r chi.Router) {
				r.Post("/reserve", controllers.InventoryReserve(inventoryLedger, txRunner, logg))
				r.Post("/release", controllers.InventoryRelease(inventoryLedger, txRunner, logg))
				r.Get("/transactions", controllers.InventoryTransactions(inventoryRepo, logg))
			})
		})

		r.Get("/audit/{entityType}/{entityId}", controllers.AuditTrail(auditService, logg))
	})

	return r
}
