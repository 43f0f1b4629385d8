package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"aprovaai-backend/internal/handlers"
	"aprovaai-backend/internal/middleware"
	"aprovaai-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	documentHandler *handlers.DocumentHandler,
	studyPlanHandler *handlers.StudyPlanHandler,
	dashboardHandler *handlers.DashboardHandler,
	jobHandler *handlers.JobHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Get("/verify-email", authHandler.VerifyEmail)
			r.Post("/resend-verification", authHandler.ResendVerification)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Document Routes ────
		r.Route("/documents", func(r chi.Router) {
			r.Get("/supported-formats", documentHandler.SupportedFormats) // Public

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/upload", documentHandler.Upload)
				r.Post("/from-url", documentHandler.FromURL)
				r.Get("/", documentHandler.List)
				r.Get("/{id}", documentHandler.Get)
				r.Delete("/{id}", documentHandler.Delete)
				r.Put("/{id}/favorite", documentHandler.ToggleFavorite)
				r.Post("/{id}/regenerate", documentHandler.Regenerate)
				r.Post("/{id}/analyze-edital", documentHandler.AnalyzeEdital)
			})
		})

		// ──── Study Plan Routes ────
		r.Route("/study-plans", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", studyPlanHandler.Generate)
			r.Get("/", studyPlanHandler.List)
			r.Get("/{id}", studyPlanHandler.Get)
			r.Delete("/{id}", studyPlanHandler.Delete)
			r.Post("/{id}/sessions", studyPlanHandler.RecordSession)
		})

		// ──── Dashboard Routes ────
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/stats", dashboardHandler.Stats)
		})

		// ──── Job Routes ────
		r.Route("/jobs", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/{id}", jobHandler.Get)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
