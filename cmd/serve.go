package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/retrato-app/retrato/api/core"
	"github.com/retrato-app/retrato/cache"
	"github.com/retrato-app/retrato/config"
	"github.com/retrato-app/retrato/database"
	"github.com/retrato-app/retrato/database/repo/accounts"
	"github.com/retrato-app/retrato/database/repo/links"
	"github.com/retrato-app/retrato/internal/auth"
	"github.com/retrato-app/retrato/internal/compress"
	"github.com/retrato-app/retrato/internal/image"
	"github.com/retrato-app/retrato/internal/quota"
	"github.com/retrato-app/retrato/internal/worker"
	"github.com/retrato-app/retrato/storage"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start API server",
	Run: func(cmd *cobra.Command, args []string) {
		RunServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer() {
	config.InitConfig()
	cfg := config.Get()

	if err := os.MkdirAll("./data", os.ModePerm); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// libvips 只初始化一次，进程退出时统一释放
	vips.Startup(nil)
	defer vips.Shutdown()

	db, err := database.NewDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to auto migrate database: %v", err)
	}
	log.Println("Database initialized successfully")

	cacheProvider, err := cache.NewProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}

	storageProvider, err := storage.NewProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// 异步任务协程池
	pool := worker.NewPool(cfg.WorkerCount, 1000)
	pool.Start()

	// 仓库
	accountsRepo := accounts.NewRepository(db)
	linksRepo := links.NewRepository(db)

	// 认证
	tokenManager, err := auth.NewTokenManager(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize token manager: %v", err)
	}
	cpfService := auth.NewCpfService(accountsRepo, tokenManager)

	// 配额跟踪：使用量以存储后端列举结果为准
	normalizer := compress.NewNormalizer(compress.Settings{
		MaxDimension: cfg.CompressMaxDimension,
		MaxSizeBytes: cfg.CompressMaxSizeKB * 1024,
		Quality:      cfg.CompressQuality,
		Format:       cfg.CompressFormat,
	})
	tracker := quota.NewTracker(
		image.NewStorageUsageLister(storageProvider),
		normalizer,
		quota.Limits{
			MaxCount:          cfg.QuotaMaxImages,
			MaxBytes:          cfg.QuotaMaxBytes(),
			MaxBatchFiles:     cfg.UploadMaxBatchFiles,
			StrictCompression: cfg.QuotaStrictCompression,
		},
		cfg.UsageTTL(),
	)

	// 图片服务
	baseURL := cfg.BaseURL()
	gallery := image.NewGalleryService(linksRepo, cacheProvider, baseURL, cfg.ListingTTL())
	uploadService := image.NewUploadService(linksRepo, storageProvider, tracker, gallery, cacheProvider, pool, baseURL)
	resolver := image.NewResolver(linksRepo, storageProvider, cacheProvider)

	deps := &core.ServerDependencies{
		DB:            db,
		CacheProvider: cacheProvider,
		Storage:       storageProvider,
		TokenManager:  tokenManager,
		CpfService:    cpfService,
		UploadService: uploadService,
		Gallery:       gallery,
		Tracker:       tracker,
		Resolver:      resolver,
		Config:        cfg,
	}

	// 启动gin
	server, cleanup := core.StartServer(deps)
	go func() {
		log.Printf("Server started on %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// 处理退出signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if cleanup != nil {
		cleanup()
		log.Println("Cleanup tasks finished.")
	}

	// 先停 HTTP 再停工作池：在途的处理器还会向队列提交任务，
	// 队列关闭后提交会 panic
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	pool.Stop()

	if err := cacheProvider.Close(); err != nil {
		log.Printf("Error closing cache: %v", err)
	}

	log.Println("Server exited successfully")
}
