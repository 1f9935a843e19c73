package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prepside/gmat-backend/internal/config"
	"github.com/prepside/gmat-backend/internal/handler"
	"github.com/prepside/gmat-backend/internal/middleware"
	"github.com/prepside/gmat-backend/internal/response"
	"github.com/prepside/gmat-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Quiz     *handler.QuizHandler
	Focus    *handler.FocusHandler
	Question *handler.QuestionHandler
	WS       *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
		auth.POST("/guest", handlers.Auth.LoginGuest)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Taker Group (JWT + Single Device) ──────────────────────────
	api := router.Group("/api/v1")
	api.Use(
		middleware.RequireJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		// Standalone practice quizzes
		api.POST("/quiz/start", handlers.Quiz.Start)
		api.POST("/quiz/:quiz_id/submit", handlers.Quiz.Submit)
		api.GET("/quiz/:quiz_id/report", handlers.Quiz.Report)
		api.GET("/quiz/:quiz_id/answers", handlers.Quiz.Recover)

		// GMAT Focus runs
		api.POST("/focus/start", handlers.Focus.Start)
		api.GET("/focus/state", handlers.Focus.State)
		api.POST("/focus/answer", handlers.Focus.Answer)
		api.POST("/focus/flag", handlers.Focus.Flag)
		api.POST("/focus/next", handlers.Focus.Next)
		api.POST("/focus/prev", handlers.Focus.Prev)
		api.POST("/focus/complete", handlers.Focus.Complete)
		api.POST("/focus/retry", handlers.Focus.Retry)
		api.POST("/focus/break/end", handlers.Focus.EndBreak)
		api.POST("/focus/abandon", handlers.Focus.Abandon)
		api.GET("/focus/result", handlers.Focus.Result)
		api.GET("/focus/history", handlers.Focus.History)
	}

	// ─── 3. WebSocket Group (WS Auth via query token) ──────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/focus/stream", handlers.WS.FocusStream)
	}

	// ─── 4. Admin Group (JWT + role gate) ──────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireJWT(authService), middleware.RequireAdmin())
	{
		adminAPI.GET("/questions", handlers.Question.List)
		adminAPI.POST("/questions", handlers.Question.Create)
		adminAPI.GET("/questions/:question_id", handlers.Question.Get)
		adminAPI.PUT("/questions/:question_id", handlers.Question.Update)
		adminAPI.DELETE("/questions/:question_id", handlers.Question.Delete)
	}

	return router
}
