package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"yieldhub/internal/client/balance"
	"yieldhub/internal/client/defillama"
	"yieldhub/internal/client/etherscan"
	"yieldhub/internal/client/lido"
	"yieldhub/internal/client/morpho"
	"yieldhub/internal/config"
	"yieldhub/internal/db"
	"yieldhub/internal/handler"
	"yieldhub/internal/logger"
	"yieldhub/internal/normalize"
	gormrepository "yieldhub/internal/repository/gorm"
	"yieldhub/internal/scheduler"
	"yieldhub/internal/service"

	_ "yieldhub/docs"
)

func main() {
	cfgPath := os.Getenv("YH_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("YH_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	defillamaClient := defillama.NewClient(&http.Client{Timeout: cfg.Providers.DefiLlama.Timeout}, cfg.Providers.DefiLlama.BaseURL)
	morphoClient := morpho.NewClient(&http.Client{Timeout: cfg.Providers.Morpho.Timeout}, cfg.Providers.Morpho.BaseURL)
	lidoClient := lido.NewClient(&http.Client{Timeout: cfg.Providers.Lido.Timeout}, cfg.Providers.Lido.BaseURL)
	scraper := etherscan.NewScraper(&http.Client{Timeout: cfg.Providers.Etherscan.Timeout}, cfg.Providers.Etherscan.BaseURL, cfg.Providers.Etherscan.UserAgent)
	balanceClient := balance.NewClient(&http.Client{Timeout: cfg.Providers.Balance.Timeout}, cfg.Providers.Balance.BaseURL, cfg.Providers.Balance.APIKey)
	if !balanceClient.Configured() {
		logger.Warn("balance provider key missing, holder balances degrade to zero")
	}

	gates := normalize.Gates{
		MinTVLUSD: decimal.NewFromFloat(cfg.Sync.MinTVLUSD),
		MaxAPY:    decimal.NewFromFloat(cfg.Sync.MaxAPY),
	}
	reconciler := &service.Reconciler{
		Repo:     store,
		Detector: service.NewChangeDetector(cfg.Sync.APYEpsilon, cfg.Sync.TVLEpsilonUSD),
		Logger:   logger,
	}
	poolSync := &service.PoolSyncService{
		Repo:              store,
		Reconciler:        reconciler,
		Logger:            logger,
		Gates:             gates,
		DefiLlama:         defillamaClient,
		Morpho:            morphoClient,
		Lido:              lidoClient,
		DefiLlamaProjects: cfg.Providers.DefiLlama.Projects,
		MorphoChainIDs:    cfg.Providers.Morpho.ChainIDs,
		MorphoPageSize:    cfg.Providers.Morpho.PageSize,
	}
	holderSync := &service.HolderSyncService{
		Repo:        store,
		Scraper:     scraper,
		Balances:    balanceClient,
		Logger:      logger,
		MaxHolders:  cfg.Holders.MaxHolders,
		Freshness:   cfg.Holders.Freshness,
		Parallelism: cfg.Holders.Parallelism,
		MaxPools:    cfg.Holders.MaxPools,
	}
	outlookSvc := &service.OutlookService{
		Repo:      store,
		Generator: service.RuleBasedGenerator{},
		Logger:    logger,
		Expiry:    cfg.Outlook.Expiry,
		BatchSize: cfg.Outlook.BatchSize,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serviceConfigs, err := service.EnsureServiceConfigs(ctx, store, service.DefaultServiceConfigs(cfg.Sync))
	if err != nil {
		logger.Fatal("seed service configs failed", zap.Error(err))
	}

	sched := scheduler.New(logger, ctx)
	jobs := map[string]scheduler.Job{
		service.JobDefiLlamaSync:  {Name: service.JobDefiLlamaSync, Run: poolSync.SyncDefiLlama},
		service.JobMorphoSync:     {Name: service.JobMorphoSync, Run: poolSync.SyncMorpho},
		service.JobLidoSync:       {Name: service.JobLidoSync, Run: poolSync.SyncLido},
		service.JobHolderSync:     {Name: service.JobHolderSync, Run: holderSync.Run},
		service.JobOutlookRefresh: {Name: service.JobOutlookRefresh, Run: outlookSvc.Run},
	}
	for _, sc := range serviceConfigs {
		job, ok := jobs[sc.Name]
		if !ok {
			continue
		}
		if err := sched.Register(job, sc); err != nil {
			logger.Warn("job registration failed", zap.String("job", sc.Name), zap.Error(err))
		}
	}
	sched.Start()
	defer sched.Stop()

	monitor := &service.HealthMonitor{
		Repo:         store,
		Logger:       logger,
		TTL:          cfg.Health.TTL,
		ProbeTimeout: cfg.Health.ProbeTimeout,
		Probes: []service.Probe{
			{Name: "postgres", Check: func(ctx context.Context) error { return dbConn.SQL.PingContext(ctx) }},
			{Name: "defillama", Check: defillamaClient.Probe},
			{Name: "morpho", Check: morphoClient.Probe},
			{Name: "lido", Check: lidoClient.Probe},
			{Name: "etherscan", Check: scraper.Probe},
			{Name: "balance_provider", Check: balanceClient.Probe},
		},
	}
	go monitor.Run(ctx, cfg.Health.RefreshInterval)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)

	v1 := engine.Group("/api/v1")
	poolHandler := &handler.PoolHandler{Repo: store, Logger: logger}
	poolHandler.Register(v1)
	serviceHandler := &handler.ServiceHandler{Repo: store, Scheduler: sched, Logger: logger}
	serviceHandler.Register(v1)
	syncHandler := &handler.SyncHandler{Scheduler: sched, Logger: logger}
	syncHandler.Register(v1)
	systemHandler := &handler.SystemHandler{Repo: store, Monitor: monitor}
	systemHandler.Register(v1)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,PATCH,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
