package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/rulehub/rulehub-backend/internal/config"
	"github.com/rulehub/rulehub-backend/internal/database"
	"github.com/rulehub/rulehub-backend/internal/handler"
	"github.com/rulehub/rulehub-backend/internal/middleware"
	"github.com/rulehub/rulehub-backend/internal/migration"
	"github.com/rulehub/rulehub-backend/internal/publisher"
	"github.com/rulehub/rulehub-backend/internal/repository"
	"github.com/rulehub/rulehub-backend/internal/routes"
	"github.com/rulehub/rulehub-backend/internal/service"
	pkgcache "github.com/rulehub/rulehub-backend/pkg/cache"
	pkges "github.com/rulehub/rulehub-backend/pkg/elasticsearch"
	"github.com/rulehub/rulehub-backend/pkg/jwt"
	pkglogger "github.com/rulehub/rulehub-backend/pkg/logger"
	pkgredis "github.com/rulehub/rulehub-backend/pkg/redis"
)

// @title           RuleHub Backend API
// @version         1.0
// @description     Rule catalog browse, engagement and admin API
//
// @license.name    MIT
//
// @host            localhost:8082
// @BasePath        /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Authorization header using the Bearer scheme. Example: "Bearer {token}"

func main() {
	dotenvFiles := config.LoadDotEnv()

	// 로거 초기화
	env := config.Env()
	pkglogger.InitStructured(env)
	pkglogger.Info("APP_ENV=%s, loaded env files: %v", env, dotenvFiles)

	// 설정 로드
	configPath := config.Path(env)
	pkglogger.Info("Loading config from: %s", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		pkglogger.Fatal("Failed to load config: %v", err)
	}
	config.LogResolved(cfg)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	// DB 연결 + 마이그레이션
	db, err := database.Open(cfg.Database, cfg.IsDevelopment())
	if err != nil {
		pkglogger.Fatal("Failed to connect to database: %v", err)
	}
	pkglogger.Info("Connected to %s", cfg.Database.Driver)
	if err := migration.Run(db); err != nil {
		pkglogger.Fatal("Migration failed: %v", err)
	}

	// Redis 연결 (optional)
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient, err = pkgredis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
		)
		if err != nil {
			pkglogger.Warn("Failed to connect to Redis: %v (continuing without Redis)", err)
			redisClient = nil
		} else {
			pkglogger.Info("Connected to Redis")
		}
	}
	cacheService := pkgcache.NewService(redisClient)

	// Repositories
	ruleRepo := repository.NewRuleRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)

	// Elasticsearch 연결 (optional, 제목 자동완성)
	var searchBackend service.SearchBackend
	if cfg.Elasticsearch.Enabled {
		esClient, esErr := pkges.NewClient(pkges.Config{
			Addresses: cfg.Elasticsearch.Addresses,
			Username:  cfg.Elasticsearch.Username,
			Password:  cfg.Elasticsearch.Password,
		})
		if esErr != nil {
			pkglogger.Warn("Elasticsearch connection failed: %v (continuing without suggest)", esErr)
		} else {
			searchBackend = esClient
			pkglogger.Info("Connected to Elasticsearch")
		}
	}
	searchService := service.NewSearchService(searchBackend, ruleRepo, cfg.Elasticsearch.Index)
	if searchService.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := searchService.EnsureIndex(ctx); err != nil {
			pkglogger.Warn("Failed to ensure search index: %v", err)
		}
		cancel()
	}

	// RabbitMQ 연결 (optional, engagement 이벤트)
	var eventPublisher publisher.Publisher = publisher.Nop{}
	if cfg.RabbitMQ.Enabled {
		mq, mqErr := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, pkglogger.WithComponent("publisher"))
		if mqErr != nil {
			pkglogger.Warn("RabbitMQ connection failed: %v (engagement events disabled)", mqErr)
		} else {
			eventPublisher = mq
			pkglogger.Info("Connected to RabbitMQ")
		}
	}
	defer eventPublisher.Close()

	// JWT Manager
	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn)

	// Services
	ruleService := service.NewRuleService(ruleRepo, categoryRepo, cacheService, searchService, eventPublisher, service.ListOptions{
		PageSize:    cfg.Browse.PageSize,
		MaxPageSize: cfg.Browse.MaxPageSize,
	})
	categoryService := service.NewCategoryService(categoryRepo, cacheService)

	// Gin 라우터 생성
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.Origins(),
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Remaining"},
		MaxAge:           12 * time.Hour,
	}))

	// Middleware
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.InputSanitizer())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		status := gin.H{
			"status":  "ok",
			"service": cfg.App.Name,
			"time":    time.Now().Unix(),
			"cache":   cacheService.IsAvailable(),
			"search":  searchService.Enabled(),
		}
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status["status"] = "degraded"
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		c.JSON(http.StatusOK, status)
	})

	// Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 관리자 감사 로그
	auditLogger := middleware.NewAuditLogger(db)
	adminHandler := handler.NewAdminHandler(ruleService, categoryService, searchService)
	adminHandler.SetAuditLogger(auditLogger)

	routes.Setup(router, routes.Handlers{
		Rule:     handler.NewRuleHandler(ruleService, searchService),
		Category: handler.NewCategoryHandler(categoryService),
		Browse:   handler.NewBrowseHandler(ruleService, categoryService),
		Admin:    adminHandler,
	}, jwtManager, redisClient, cfg.Browse)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		pkglogger.Info("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			pkglogger.Fatal("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	pkglogger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		pkglogger.Error("Server shutdown failed: %v", err)
	}
	auditLogger.Wait()
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
