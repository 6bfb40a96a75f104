package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/gympoints/config"
	"github.com/cppla/gympoints/controllers"
	"github.com/cppla/gympoints/metrics"
	"github.com/cppla/gympoints/middleware"
	"github.com/cppla/gympoints/services"
	"github.com/cppla/gympoints/session"
	"github.com/cppla/gympoints/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, svc *services.RewardsService, sessions session.Store) *gin.Engine {
	// Load config and set Gin mode from configuration
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
	// Access log goes to its own rolling file; falls back to the app logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg)
	if err != nil {
		utils.Sugar.Warnf("gin access log disabled: %v", err)
		gl = utils.Logger
	}
	r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(gl, true))
	r.Use(middleware.Metrics())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		// credentials cannot be combined with a wildcard origin
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	if corsCfg.AllowAllOrigins || len(corsCfg.AllowOrigins) > 0 {
		r.Use(cors.New(corsCfg))
	}

	r.GET("/health", func(ctx *gin.Context) {
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx.Request.Context()) != nil {
			utils.Error(ctx, http.StatusServiceUnavailable, 50300, "database unavailable")
			return
		}
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	memberController := controllers.NewMemberController(svc, cfg.PublicBaseURL)
	checkInController := controllers.NewCheckInController(svc, memberController)
	prizeController := controllers.NewPrizeController(svc, memberController)
	statsController := controllers.NewStatsController(svc)
	adminController := controllers.NewAdminController(svc)

	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour

	api := r.Group("/api/v1")
	api.Use(middleware.Session(sessions, cfg.SessionCookieName, ttl))

	// Public read endpoints
	api.GET("/prizes", prizeController.List)
	api.GET("/leaderboard", statsController.Leaderboard)
	api.GET("/stats", statsController.GetStats)
	api.GET("/referral", memberController.Referral)

	membersGroup := api.Group("/members")
	membersGroup.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	membersGroup.POST("/register", memberController.Register)
	membersGroup.POST("/login", memberController.Login)
	membersGroup.POST("/logout", memberController.Logout)
	membersGroup.GET("/me", memberController.Me)

	protected := api.Group("")
	protected.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	protected.POST("/checkins", checkInController.DailyCheckIn)
	protected.GET("/checkins", checkInController.History)
	protected.POST("/prizes/:id/redeem", prizeController.Redeem)
	protected.GET("/redemptions", prizeController.Redemptions)

	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired())
	admin.GET("/prizes", adminController.ListPrizes)
	admin.POST("/prizes", adminController.CreatePrize)
	admin.PUT("/prizes/:id", adminController.UpdatePrize)
	admin.PATCH("/redemptions/:id", adminController.UpdateRedemption)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
