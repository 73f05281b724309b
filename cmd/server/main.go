package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	accountinghandler "github.com/harry123180/erp-backend/internal/accounting/handler"
	accountingrepo "github.com/harry123180/erp-backend/internal/accounting/repository"
	accountingservice "github.com/harry123180/erp-backend/internal/accounting/service"
	accountingentity "github.com/harry123180/erp-backend/internal/accounting/entity"
	attachmenthandler "github.com/harry123180/erp-backend/internal/attachment/handler"
	attachmentrepo "github.com/harry123180/erp-backend/internal/attachment/repository"
	attachmentservice "github.com/harry123180/erp-backend/internal/attachment/service"
	attachmententity "github.com/harry123180/erp-backend/internal/attachment/entity"
	"github.com/harry123180/erp-backend/internal/cache"
	"github.com/harry123180/erp-backend/internal/codegen"
	"github.com/harry123180/erp-backend/internal/config"
	"github.com/harry123180/erp-backend/internal/events"
	identityhandler "github.com/harry123180/erp-backend/internal/identity/handler"
	identityrepo "github.com/harry123180/erp-backend/internal/identity/repository"
	identityservice "github.com/harry123180/erp-backend/internal/identity/service"
	identityentity "github.com/harry123180/erp-backend/internal/identity/entity"
	logisticshandler "github.com/harry123180/erp-backend/internal/logistics/handler"
	logisticsrepo "github.com/harry123180/erp-backend/internal/logistics/repository"
	logisticsservice "github.com/harry123180/erp-backend/internal/logistics/service"
	logisticsentity "github.com/harry123180/erp-backend/internal/logistics/entity"
	"github.com/harry123180/erp-backend/internal/middleware"
	procurementhandler "github.com/harry123180/erp-backend/internal/procurement/handler"
	procurementrepo "github.com/harry123180/erp-backend/internal/procurement/repository"
	procurementservice "github.com/harry123180/erp-backend/internal/procurement/service"
	procuremententity "github.com/harry123180/erp-backend/internal/procurement/entity"
	warehousehandler "github.com/harry123180/erp-backend/internal/warehouse/handler"
	warehouserepo "github.com/harry123180/erp-backend/internal/warehouse/repository"
	warehouseservice "github.com/harry123180/erp-backend/internal/warehouse/service"
	warehouseentity "github.com/harry123180/erp-backend/internal/warehouse/entity"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// .env仅本地开发使用，不存在时忽略
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting erp-backend service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := autoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	rdb := initRedis(cfg.Redis)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		zapLogger.Warn("Redis unavailable, cache/lock/events degraded", zap.Error(err))
		rdb = nil
	}

	minioClient := initMinIO(cfg.MinIO, zapLogger)

	// 共享基础设施
	appCache := cache.New(rdb, zapLogger)
	gen := codegen.New(db, rdb, zapLogger)
	publisher := events.NewPublisher(rdb, zapLogger)

	// 仓库
	procurementRepos := procurementrepo.NewRepositories(db)
	warehouseRepos := warehouserepo.NewRepositories(db)
	consolidationRepo := logisticsrepo.NewConsolidationRepository(db)
	paymentRepo := accountingrepo.NewPaymentRepository(db)
	userRepo := identityrepo.NewUserRepository(db)
	attachmentRepo := attachmentrepo.NewAttachmentRepository(db)

	// 支出重算工作者
	expenditureWorker := procurementservice.NewExpenditureWorker(db, zapLogger)
	expenditureWorker.Start()
	defer expenditureWorker.Stop()

	// 服务
	supplierSvc := procurementservice.NewSupplierService(procurementRepos.Supplier, appCache)
	requisitionSvc := procurementservice.NewRequisitionService(procurementRepos, db, gen, zapLogger)
	poSvc := procurementservice.NewPOService(procurementRepos, db, gen, expenditureWorker, publisher, zapLogger)
	projectSvc := procurementservice.NewProjectService(procurementRepos.Project, appCache, expenditureWorker)
	storageSvc := warehouseservice.NewStorageService(warehouseRepos, appCache)
	inventorySvc := warehouseservice.NewInventoryService(warehouseRepos, procurementRepos.PO, db, gen, publisher, zapLogger)
	logisticsSvc := logisticsservice.NewLogisticsService(consolidationRepo, procurementRepos.PO, procurementRepos.Supplier, db, gen, publisher, zapLogger)
	accountingSvc := accountingservice.NewAccountingService(paymentRepo, procurementRepos.PO, procurementRepos.Supplier, db, zapLogger)
	authSvc := identityservice.NewAuthService(userRepo, cfg.JWT, zapLogger)
	attachmentSvc := attachmentservice.NewAttachmentService(attachmentRepo, minioClient, cfg.MinIO.Bucket, zapLogger)

	// 处理器
	procurementHandlers := procurementhandler.NewHandlers(supplierSvc, requisitionSvc, poSvc, projectSvc)
	warehouseHandlers := warehousehandler.NewHandlers(storageSvc, inventorySvc)
	consolidationHandler := logisticshandler.NewConsolidationHandler(logisticsSvc)
	accountingHandler := accountinghandler.NewAccountingHandler(accountingSvc)
	authHandler := identityhandler.NewAuthHandler(authSvc)
	attachmentHandler := attachmenthandler.NewAttachmentHandler(attachmentSvc)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.RequestID())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Disposition", "X-Request-ID"},
		MaxAge:           12 * time.Hour,
	}))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, cfg,
		authHandler, procurementHandlers, warehouseHandlers,
		consolidationHandler, accountingHandler, attachmentHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&identityentity.User{},
		&procuremententity.Supplier{},
		&procuremententity.Project{},
		&procuremententity.ProjectSupplierExpenditure{},
		&procuremententity.RequestOrder{},
		&procuremententity.RequestOrderItem{},
		&procuremententity.PurchaseOrder{},
		&procuremententity.PurchaseOrderItem{},
		&procuremententity.RemarksHistory{},
		&warehouseentity.Storage{},
		&warehouseentity.InventoryBatch{},
		&warehouseentity.InventoryBatchStorage{},
		&warehouseentity.InventoryMovement{},
		&logisticsentity.ShipmentConsolidation{},
		&accountingentity.PaymentRecord{},
		&attachmententity.Attachment{},
	)
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func initMinIO(cfg config.MinIOConfig, zapLogger *zap.Logger) *minio.Client {
	if cfg.Endpoint == "" {
		return nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		zapLogger.Warn("MinIO unavailable, attachments degraded", zap.Error(err))
		return nil
	}
	return client
}

func registerRoutes(
	r *gin.Engine,
	cfg *config.Config,
	auth *identityhandler.AuthHandler,
	procurement *procurementhandler.Handlers,
	warehouse *warehousehandler.Handlers,
	consolidation *logisticshandler.ConsolidationHandler,
	accounting *accountinghandler.AccountingHandler,
	attachment *attachmenthandler.AttachmentHandler,
) {
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	v1 := r.Group("/api/v1")

	// 认证（无需登录）
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/login", auth.Login)
		authGroup.POST("/refresh", auth.Refresh)
	}

	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		authorized.GET("/auth/me", auth.Me)

		// 供应商
		suppliers := authorized.Group("/suppliers")
		{
			suppliers.GET("", procurement.Supplier.List)
			suppliers.GET("/:id", procurement.Supplier.Get)
			suppliers.POST("", middleware.RequireRole(middleware.RoleProcurement), procurement.Supplier.Create)
			suppliers.PUT("/:id", middleware.RequireRole(middleware.RoleProcurement), procurement.Supplier.Update)
		}

		// 专案
		projects := authorized.Group("/projects")
		{
			projects.GET("", procurement.Project.List)
			projects.GET("/:id", procurement.Project.Get)
			projects.POST("", middleware.RequireRole(middleware.RoleProcurement), procurement.Project.Create)
			projects.PUT("/:id", middleware.RequireRole(middleware.RoleProcurement), procurement.Project.Update)
			projects.POST("/:id/recalculate", middleware.RequireRole(middleware.RoleProcurement, middleware.RoleAccountant), procurement.Project.Recalculate)
		}

		// 请购单（任何登录用户可建单，审核限采购）
		requisitions := authorized.Group("/requisitions")
		{
			requisitions.GET("", procurement.Requisition.List)
			requisitions.GET("/approved-items", middleware.RequireRole(middleware.RoleProcurement), procurement.Requisition.ApprovedItems)
			requisitions.GET("/:id", procurement.Requisition.Get)
			requisitions.POST("", procurement.Requisition.Create)
			requisitions.PUT("/:id", procurement.Requisition.Update)
			requisitions.POST("/:id/submit", procurement.Requisition.Submit)
			requisitions.POST("/:id/items/:itemId/review", middleware.RequireRole(middleware.RoleProcurement), procurement.Requisition.ReviewItem)
			requisitions.POST("/:id/items/:itemId/resubmit", procurement.Requisition.ResubmitItem)
			requisitions.POST("/:id/items/:itemId/cancel", procurement.Requisition.CancelItem)
		}

		// 采购订单
		pos := authorized.Group("/purchase-orders")
		{
			pos.GET("", procurement.PO.List)
			pos.GET("/:id", procurement.PO.Get)
			pos.GET("/:id/export", middleware.RequireRole(middleware.RoleProcurement), procurement.PO.Export)
			pos.GET("/:id/remarks-history", procurement.PO.RemarksHistory)
			pos.POST("", middleware.RequireRole(middleware.RoleProcurement), procurement.PO.Create)
			pos.POST("/build", middleware.RequireRole(middleware.RoleProcurement), procurement.PO.Build)
			pos.PUT("/:id", middleware.RequireRole(middleware.RoleProcurement), procurement.PO.Update)
			pos.PUT("/:id/items", middleware.RequireRole(middleware.RoleProcurement), procurement.PO.ReplaceItems)
			pos.POST("/:id/confirm", middleware.RequireRole(middleware.RoleProcurement), procurement.PO.Confirm)
			pos.POST("/:id/withdraw", middleware.RequireRole(middleware.RoleProcurement), procurement.PO.Withdraw)
			pos.PUT("/:id/delivery", middleware.RequireRole(middleware.RoleProcurement, middleware.RoleLogistics), procurement.PO.UpdateDelivery)
			pos.PUT("/:id/remarks", middleware.RequireRole(middleware.RoleProcurement), procurement.PO.UpdateRemarks)
		}

		// 储位
		storages := authorized.Group("/storages")
		{
			storages.GET("", warehouse.Storage.List)
			storages.GET("/:id", warehouse.Storage.Get)
			storages.GET("/:id/balances", warehouse.Storage.Balances)
			storages.POST("", middleware.RequireRole(middleware.RoleWarehouse), warehouse.Storage.Create)
			storages.PUT("/:id", middleware.RequireRole(middleware.RoleWarehouse), warehouse.Storage.Update)
		}

		// 库存
		inventory := authorized.Group("/inventory")
		{
			inventory.GET("/batches", warehouse.Inventory.ListBatches)
			inventory.GET("/batches/:id", warehouse.Inventory.GetBatch)
			inventory.GET("/movements", warehouse.Inventory.ListMovements)
			inventory.POST("/receive", middleware.RequireRole(middleware.RoleWarehouse), warehouse.Inventory.Receive)
			inventory.POST("/batches/:id/allocate", middleware.RequireRole(middleware.RoleWarehouse), warehouse.Inventory.Allocate)
			inventory.POST("/batches/:id/issue", middleware.RequireRole(middleware.RoleWarehouse), warehouse.Inventory.Issue)
			inventory.POST("/batches/:id/transfer", middleware.RequireRole(middleware.RoleWarehouse), warehouse.Inventory.Transfer)
			inventory.POST("/batches/:id/adjust", middleware.RequireRole(middleware.RoleWarehouse), warehouse.Inventory.Adjust)
		}

		// 併櫃
		consolidations := authorized.Group("/consolidations")
		{
			consolidations.GET("", consolidation.List)
			consolidations.GET("/:id", consolidation.Get)
			consolidations.POST("", middleware.RequireRole(middleware.RoleLogistics), consolidation.Create)
			consolidations.POST("/:id/pos", middleware.RequireRole(middleware.RoleLogistics), consolidation.AddPO)
			consolidations.DELETE("/:id/pos/:poId", middleware.RequireRole(middleware.RoleLogistics), consolidation.RemovePO)
			consolidations.PUT("/:id/status", middleware.RequireRole(middleware.RoleLogistics), consolidation.UpdateStatus)
		}

		// 应付帐款
		acct := authorized.Group("/accounting")
		acct.Use(middleware.RequireRole(middleware.RoleAccountant))
		{
			acct.GET("/payables", accounting.ListPayables)
			acct.GET("/payables/:poNo", accounting.GetPayable)
			acct.POST("/payables/:poNo/payments", accounting.RecordPayment)
			acct.GET("/statement", accounting.MonthlyStatement)
			acct.GET("/statement/export", accounting.ExportStatementXLSX)
			acct.GET("/statement/export-csv", accounting.ExportStatementCSV)
		}

		// 附件
		attachments := authorized.Group("/attachments")
		{
			attachments.GET("", attachment.ListByRelated)
			attachments.POST("", attachment.Upload)
			attachments.GET("/:id/download", attachment.Download)
			attachments.GET("/:id/url", attachment.PresignedURL)
		}
	}
}
