package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/brief-governance/internal/audit"
	"github.com/xela07ax/brief-governance/internal/console/handler"
	"github.com/xela07ax/brief-governance/internal/console/server"
	"github.com/xela07ax/brief-governance/internal/console/service"
	"github.com/xela07ax/brief-governance/internal/escalation"
	"github.com/xela07ax/brief-governance/internal/infra"
	"github.com/xela07ax/brief-governance/internal/infra/auth"
	"github.com/xela07ax/brief-governance/internal/lifecycle"
	"github.com/xela07ax/brief-governance/internal/notify"
	"github.com/xela07ax/brief-governance/internal/policy"
	"github.com/xela07ax/brief-governance/internal/repository/postgres"
	"github.com/xela07ax/brief-governance/internal/trail"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// console hash-password <password>: хэш для заведения пользователя в таблице users
	if len(os.Args) == 3 && os.Args[1] == "hash-password" {
		h, err := service.HashPassword(os.Args[2], cfg.Auth.BcryptCost)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(h)
		return
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("console stopped with error", zap.Error(err))
	}
}

func run(cfg *infra.Config, logger *zap.Logger) error {
	// Контекст жизни процесса: SIGINT/SIGTERM остановят слушателей и сервер
	appCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Инфраструктура и ресурсы
	if cfg.Database.URL == "" {
		return errors.New("database.url (DATABASE_URL) is required")
	}
	repo, err := postgres.New(appCtx, cfg.Database)
	if err != nil {
		return err
	}
	defer repo.Close()

	pingCtx, cancel := context.WithTimeout(appCtx, 5*time.Second)
	err = repo.Ping(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	if cfg.Database.Migrate {
		if err := repo.Migrate(appCtx); err != nil {
			return err
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(appCtx).Err(); err != nil {
		// Redis нужен только для сигналов и уведомлений: переходы брифов работают и без него
		logger.Warn("redis unreachable, notifications and policy signals degraded", zap.Error(err))
	}

	// Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := infra.NewMetrics(reg)

	// 2. Policy Engine: справочник форматов + кэш порогов с горячей перезагрузкой
	catalog, err := policy.LoadCatalog(cfg.Policy.CatalogPath)
	if err != nil {
		return err
	}
	settings := policy.NewSettingsCache(policy.Settings{
		OwnerApprovalCost: cfg.Policy.OwnerApprovalCost,
		MaxCost:           cfg.Policy.MaxCost,
		CrisisMinContext:  cfg.Policy.CrisisMinContext,
		UrgentDays:        cfg.Policy.UrgentDays,
		RelaxedDays:       cfg.Policy.RelaxedDays,
		LowCost:           cfg.Policy.LowCost,
	}, repo, logger)
	if err := settings.Refresh(appCtx); err != nil {
		return fmt.Errorf("initial policy settings load: %w", err)
	}
	go settings.Listen(appCtx, rdb)

	engine := policy.NewEngine(settings, catalog)
	auditor := audit.NewAuditor(audit.Thresholds{
		CostThreshold:  cfg.Audit.CostThreshold,
		KPIUpperBound:  cfg.Audit.KPIUpperBound,
		DefaultSLADays: cfg.Audit.DefaultSLADays,
	})

	// 3. Журнал переходов (асинхронно, пачками)
	journal := trail.NewJournal(repo, logger, trail.Options{
		BufferSize:    cfg.Trail.BufferSize,
		BatchSize:     cfg.Trail.BatchSize,
		FlushInterval: cfg.Trail.FlushInterval,
		BufferFill:    metrics.TrailBufferFill,
	})
	journal.Start()

	// 4. Ядро: автомат брифа + доставка уведомлений
	machine := lifecycle.NewMachine(repo, auditor, engine, escalation.NewTrigger(), journal, metrics, logger)
	dispatcher := notify.NewDispatcher(notify.NewRedisPublisher(rdb, logger), cfg.Notify, metrics, logger)

	// 5. Сервисы и HTTP
	privateKey, err := auth.ParseRSAPrivateKey(cfg.Auth.PrivateKey)
	if err != nil {
		return fmt.Errorf("auth private key: %w", err)
	}
	publicKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		return fmt.Errorf("auth public key: %w", err)
	}

	authService := service.NewAuthService(repo, privateKey, cfg.Auth.TokenTTL)
	briefService := service.NewBriefService(machine, repo, dispatcher, logger)
	policyService := service.NewPolicyService(engine, settings, repo, rdb, logger)

	srvHandler := server.NewConsoleServer(
		logger,
		metrics,
		reg,
		auth.NewBaseValidator(publicKey),
		handler.NewAuthHandler(authService, logger),
		handler.NewBriefHandler(briefService, logger),
		handler.NewPolicyHandler(policyService, logger),
		handler.NewDashboardHandler(briefService, logger),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srvHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("console API started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 6. Graceful Shutdown
	select {
	case <-appCtx.Done():
	case err := <-serveErr:
		if err != nil {
			journal.Stop()
			return fmt.Errorf("listen: %w", err)
		}
	}
	logger.Info("console stopping")

	// Даем 10 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	// Сначала досылаем уведомления, потом сливаем журнал в базу
	briefService.Wait()
	journal.Stop()

	logger.Info("console exited properly")
	return nil
}
