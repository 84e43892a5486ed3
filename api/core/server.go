package core

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/retrato-app/retrato/api/common"
	handlerAuth "github.com/retrato-app/retrato/api/handler/auth"
	handlerImages "github.com/retrato-app/retrato/api/handler/images"
	handlerShare "github.com/retrato-app/retrato/api/handler/share"
	"github.com/retrato-app/retrato/api/middleware"
	"github.com/retrato-app/retrato/cache"
	"github.com/retrato-app/retrato/config"
	"github.com/retrato-app/retrato/internal/auth"
	"github.com/retrato-app/retrato/internal/image"
	"github.com/retrato-app/retrato/internal/quota"
	"github.com/retrato-app/retrato/storage"
	"gorm.io/gorm"
)

var startTime = time.Now()

// ServerDependencies 服务器依赖项
type ServerDependencies struct {
	DB            *gorm.DB
	CacheProvider cache.Provider
	Storage       storage.Provider

	TokenManager  *auth.TokenManager
	CpfService    *auth.CpfService
	UploadService *image.UploadService
	Gallery       *image.GalleryService
	Tracker       *quota.Tracker
	Resolver      *image.Resolver

	Config *config.Config
}

// setupRouter 组装 gin 路由
func setupRouter(deps *ServerDependencies) (*gin.Engine, func()) {
	cfg := deps.Config
	router := gin.New()

	// 仅在开发版本时启用 gin 日志
	if config.IsDevelopment() {
		router.Use(gin.Logger())
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.BaseURL()},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.SetTrustedProxies(nil)

	// 限制上传文件大小
	router.MaxMultipartMemory = int64(cfg.UploadMaxFileSizeMB) << 20

	// 并发限制，避免内存过载
	concurrencyLimiter := middleware.NewConcurrencyLimiter(100)
	router.Use(concurrencyLimiter.Middleware())

	// 基础监控指标
	router.Use(middleware.Metrics())

	// 速率限制
	authRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitAuthRPS, cfg.RateLimitAuthBurst, cfg.RateLimitExpireTime)
	apiRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitApiRPS, cfg.RateLimitApiBurst, cfg.RateLimitExpireTime)
	imageRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitImageRPS, cfg.RateLimitImageBurst, cfg.RateLimitExpireTime)
	cleanup := func() {
		authRateLimiter.StopCleanup()
		apiRateLimiter.StopCleanup()
		imageRateLimiter.StopCleanup()
	}

	registerBasicRoutes(router, deps)

	// 创建处理器（依赖注入）
	authHandler := handlerAuth.NewHandler(deps.CpfService)
	imageHandler := handlerImages.NewHandler(deps.UploadService, deps.Gallery, deps.Tracker, cfg.UploadMaxFileSizeMB)
	shareHandler := handlerShare.NewHandler(deps.Resolver, deps.Storage)

	// 公开分享访问
	shareGroup := router.Group("/image")
	shareGroup.Use(imageRateLimiter.Middleware())
	{
		shareGroup.GET("/:token", shareHandler.GetImage) // GET /image/{token}
	}

	apiGroup := router.Group("/api")
	apiGroup.Use(func(context *gin.Context) { // 所有API禁止缓存
		context.Header("Cache-Control", "no-store")
		context.Next()
	})
	{
		authGroup := apiGroup.Group("/auth")
		authGroup.Use(authRateLimiter.Middleware())
		{
			authGroup.POST("/cpf", authHandler.Authenticate) // POST /api/auth/cpf
		}

		v1 := apiGroup.Group("/v1")
		v1.Use(apiRateLimiter.Middleware())
		v1.Use(middleware.BearerAuth(deps.TokenManager))
		{
			imagesGroup := v1.Group("/images")
			{
				imagesGroup.POST("/upload", imageHandler.UploadImages)  // POST /api/v1/images/upload
				imagesGroup.GET("/list", imageHandler.ListImages)       // GET /api/v1/images/list
				imagesGroup.POST("/delete", imageHandler.DeleteImages)  // POST /api/v1/images/delete
				imagesGroup.DELETE("/:token", imageHandler.DeleteImage) // DELETE /api/v1/images/:token
				imagesGroup.GET("/usage", imageHandler.GetUsage)        // GET /api/v1/images/usage
			}
		}
	}

	return router, cleanup
}

// registerBasicRoutes 注册健康检查等基础路由
func registerBasicRoutes(router *gin.Engine, deps *ServerDependencies) {
	router.GET("/health", func(context *gin.Context) {
		health := gin.H{
			"status":  "ok",
			"uptime":  time.Since(startTime).Round(time.Second).String(),
			"version": config.Version,
			"checks": gin.H{
				"database": checkDatabaseHealth(deps.DB),
				"cache":    checkCacheHealth(deps.CacheProvider),
				"storage":  checkStorageHealth(context.Request.Context(), deps.Storage),
			},
		}
		httpStatus := http.StatusOK
		for _, checkResult := range health["checks"].(gin.H) {
			if result, ok := checkResult.(string); ok && result != "ok" {
				httpStatus = http.StatusServiceUnavailable
				break
			}
		}
		context.JSON(httpStatus, health)
	})

	router.GET("/version", func(context *gin.Context) {
		common.RespondSuccess(context, gin.H{
			"version": config.Version,
			"commit":  config.CommitHash,
		})
	})

	router.GET("/metrics", func(context *gin.Context) {
		context.JSON(http.StatusOK, middleware.GetMetrics())
	})
}

// StartServer 构建 HTTP 服务器
func StartServer(deps *ServerDependencies) (*http.Server, func()) {
	cfg := deps.Config
	router, clean := setupRouter(deps)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return srv, clean
}
