package api

import (
	"database/sql"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/expense-tracker-be/internal/api/handlers"
	"github.com/isdelr/expense-tracker-be/internal/auth"
	"github.com/isdelr/expense-tracker-be/internal/services"
	"github.com/isdelr/expense-tracker-be/internal/websocket"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	DB         *sql.DB
	Tokens     *auth.TokenIssuer
	Users      services.UserServiceProvider
	Expenses   services.ExpenseServiceProvider
	Reports    services.ReportServiceProvider
	Events     services.EventServiceProvider
	Recurring  services.RecurringServiceProvider
	Hub        *websocket.Hub
	Stats      handlers.StatsSource
	ClientURL  string
	Production bool
}

// PublicRoutes are reachable without a token. Every other route is gated.
var PublicRoutes = map[string]bool{
	"GET /health":                true,
	"POST /api/v1/auth/register": true,
	"POST /api/v1/auth/login":    true,
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(requestIDField)
	r.Use(accessLog())
	r.Use(recoverer(deps.Production))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{deps.ClientURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(deps.Users, deps.Tokens)
	expenseHandler := handlers.NewExpenseHandler(deps.Expenses)
	reportHandler := handlers.NewReportHandler(deps.Reports)
	eventHandler := handlers.NewEventHandler(deps.Events)
	recurringHandler := handlers.NewRecurringHandler(deps.Recurring)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.ClientURL)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Stats)

	requireAuth := auth.Middleware(deps.Tokens, handlers.RejectToken)

	r.Get("/health", healthHandler.Check)

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", userHandler.Register)
		r.Post("/auth/login", userHandler.Login)

		// Everything below requires a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/auth/profile", userHandler.Profile)
			r.Put("/auth/password", userHandler.ChangePassword)

			r.Route("/expenses", func(r chi.Router) {
				r.Get("/", expenseHandler.List)
				r.Post("/", expenseHandler.Create)
				r.Get("/export", reportHandler.Export)
				r.Delete("/{id}", expenseHandler.Delete)
			})
			r.Get("/reports/export-pdf", reportHandler.Export)

			r.Get("/events", eventHandler.GetRecent)

			r.Route("/recurring", func(r chi.Router) {
				r.Get("/", recurringHandler.List)
				r.Post("/", recurringHandler.Create)
				r.Delete("/{id}", recurringHandler.Delete)
			})

			// WebSocket connection endpoint
			r.Get("/ws", wsHandler.Serve)
		})
	})

	return r
}
