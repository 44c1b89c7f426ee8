package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/brighterbites/backend/config"
	"github.com/brighterbites/backend/controllers"
	"github.com/brighterbites/backend/middleware"
	"github.com/brighterbites/backend/models"
	"github.com/brighterbites/backend/services"
	"github.com/brighterbites/backend/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, records *services.RecordService) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(utils.RequestID())
	// Access log goes to its own rolling file; fall back to the app logger.
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err != nil {
		gl = utils.Logger
	}
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, false))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", utils.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", utils.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	parentController := controllers.NewParentController(db)
	childController := controllers.NewChildController(db)
	habitController := controllers.NewHabitController(db)
	taskController := controllers.NewTaskController(records)

	parentOnly := middleware.RequireType(models.ActorParent)
	childOnly := middleware.RequireType(models.ActorChild)
	anyAccount := middleware.RequireType(models.ActorParent, models.ActorChild)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))
	authGroup.POST("/parent/register", authController.RegisterParent)
	authGroup.POST("/parent/login", authController.LoginParent)
	authGroup.POST("/child/login", authController.LoginChild)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired())

	protected.GET("/parent/me", parentOnly, parentController.Me)
	protected.PUT("/parent/me", parentOnly, parentController.UpdateProfile)

	protected.GET("/children", parentOnly, childController.List)
	protected.POST("/children", parentOnly, childController.Add)
	// paths used by the first mobile client
	protected.POST("/children/add", parentOnly, childController.Add)
	protected.POST("/children/my-children", parentOnly, childController.List)

	protected.GET("/habits", anyAccount, habitController.List)
	protected.POST("/habits", parentOnly, habitController.Create)
	protected.POST("/habits/add", parentOnly, habitController.Create)
	protected.PUT("/habits/:id", parentOnly, habitController.Update)
	protected.DELETE("/habits/:id", parentOnly, habitController.Delete)

	tasks := protected.Group("/tasks")
	tasks.GET("/today", childOnly, taskController.Today)
	tasks.POST("/:taskType/complete", childOnly, taskController.Complete)
	tasks.GET("/calendar", anyAccount, taskController.Calendar)
	tasks.GET("/calendar/summary", anyAccount, taskController.CalendarSummary)
	tasks.POST("/today/add-habit", parentOnly, taskController.AddHabit)
	tasks.POST("/today/update", parentOnly, taskController.Refresh)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	return r
}
