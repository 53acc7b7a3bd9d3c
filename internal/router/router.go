package router

import (
	"net/http"
	"time"

	"github.com/examly/examly-backend/internal/config"
	"github.com/examly/examly-backend/internal/handler"
	"github.com/examly/examly-backend/internal/middleware"
	"github.com/examly/examly-backend/internal/response"
	"github.com/examly/examly-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps bundles everything the route table needs.
type Deps struct {
	Config     *config.Config
	Auth       *service.AuthService
	Exams      *handler.ExamHandler
	Violations *handler.ViolationHandler
	Monitor    *handler.MonitorHandler
}

// New builds the gin engine with the full route table.
func New(deps Deps) *gin.Engine {
	gin.SetMode(deps.Config.GinMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(response.RequestID())
	r.Use(corsMiddleware(deps.Config))

	r.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	authed := middleware.RequireAuth(deps.Auth)
	teacher := middleware.RequireTeacher()
	student := middleware.RequireStudent()

	// Submissions and violation reports come from exam-taking clients that
	// can fire rapidly (integrity signals); keep them behind a limiter.
	limiter := middleware.NewRateLimiter(5, 20)

	api := r.Group("/api/v1")
	{
		exams := api.Group("/exams", authed)
		{
			exams.POST("", teacher, deps.Exams.Create)
			exams.GET("", deps.Exams.List)
			exams.GET("/:exam_id", deps.Exams.Get)
			exams.PUT("/:exam_id", teacher, deps.Exams.Update)
			exams.DELETE("/:exam_id", teacher, deps.Exams.Delete)
			exams.POST("/:exam_id/submit", student, limiter.Middleware(), deps.Exams.Submit)
			exams.PUT("/:exam_id/verify/:submission_id", teacher, deps.Exams.Verify)
			exams.POST("/:exam_id/violations", student, limiter.Middleware(), deps.Violations.Report)
			exams.GET("/:exam_id/violations", teacher, deps.Violations.List)
		}
	}

	ws := r.Group("/ws/v1", middleware.RequireWSAuth(deps.Auth), teacher)
	{
		ws.GET("/exams/:exam_id/monitor", deps.Monitor.Stream)
	}

	return r
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", response.RequestIDHeader},
		ExposeHeaders:    []string{response.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	return cors.New(corsCfg)
}
