// cmd/intake-manager/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"applicant-intake/internal/api"
	"applicant-intake/internal/common/auth"
	awsclient "applicant-intake/internal/common/aws"
	"applicant-intake/internal/common/camunda"
	"applicant-intake/internal/common/config"
	"applicant-intake/internal/common/database"
	"applicant-intake/internal/common/logger"
	"applicant-intake/internal/common/observability"
	"applicant-intake/internal/common/ocr"
	"applicant-intake/internal/common/records"
	"applicant-intake/internal/common/search"
	"applicant-intake/internal/common/validation"
	"applicant-intake/internal/intake/ingest"
	"applicant-intake/internal/intake/persist"
	"applicant-intake/internal/intake/service"
	"applicant-intake/internal/intake/session"
	"applicant-intake/pkg/registry"

	edf "applicant-intake/internal/workers/intake/extract-document-fields"
	iad "applicant-intake/internal/workers/intake/ingest-assistant-data"
	lba "applicant-intake/internal/workers/intake/load-booking-applicants"
	rdu "applicant-intake/internal/workers/intake/record-document-upload"
	sar "applicant-intake/internal/workers/intake/save-applicant-roster"
	ssn "applicant-intake/internal/workers/intake/send-submission-notification"
	vbe "applicant-intake/internal/workers/intake/verify-booking-email"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrap := logger.New("info", "console")
		bootstrap.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer func() { _ = zapLog.Sync() }()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting intake manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability setup failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	if files := cfg.Camunda.ProcessFiles; len(files) > 0 {
		res, err := zeebe.DeployResources(ctx, files...)
		if err != nil {
			zapLog.Warn("process deployment failed", zap.Strings("files", files), zap.Error(err))
		} else {
			zapLog.Info("processes deployed", zap.Int("deployments", len(res.GetDeployments())))
		}
	}

	// --- Redis: sessions, save lock, email cache, channel dedupe ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	zapLog.Info("Redis connected successfully")

	// --- Postgres: save audit trail. The service runs without it. ---
	var (
		pg      *database.PostgresClient
		auditDB *sql.DB
	)
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Warn("postgres unavailable, save audit disabled", zap.Error(err))
		pg = nil
	} else {
		auditDB = pg.DB
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Elasticsearch: applicant search index ---
	var (
		esClient *database.ElasticsearchClient
		indexer  *search.Indexer
	)
	if cfg.Search.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, search indexing disabled", zap.Error(err))
			esClient = nil
		} else if indexer, err = search.NewIndexer(esClient.Client, cfg.Search.IndexName); err != nil {
			zapLog.Fatal("search indexer setup failed", zap.Error(err))
		} else if err := indexer.EnsureIndex(ctx); err != nil {
			zapLog.Warn("search index setup failed, search indexing disabled", zap.Error(err))
			indexer = nil
		}
	}

	// --- Remote collaborators ---
	recordsHTTP, err := auth.ClientCredentialsHTTPClient(ctx, cfg.Records)
	if err != nil {
		zapLog.Fatal("record store auth setup failed", zap.Error(err))
	}
	recordStore := records.NewClient(cfg.Records.BaseURL, recordsHTTP, cfg.Records.MaxRetries)
	ocrClient := ocr.NewClient(cfg.OCR.BaseURL,
		auth.APIKeyHTTPClient(cfg.OCR.APIKey, config.GetDuration(cfg.OCR.Timeout)),
		cfg.OCR.MaxRetries,
	)

	var (
		mailer ssn.Mailer
		texter ssn.Texter
	)
	if cfg.Notifications.Email.Enabled {
		m, err := awsclient.NewMailer(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.Email.FromEmail)
		if err != nil {
			zapLog.Fatal("ses client setup failed", zap.Error(err))
		}
		mailer = m
	}
	if cfg.Notifications.SMS.Enabled {
		t, err := awsclient.NewTexter(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.SMS.SenderID)
		if err != nil {
			zapLog.Fatal("sns client setup failed", zap.Error(err))
		}
		texter = t
	}
	zapLog.Info("All external service clients initialized")

	// --- Activity registry and input validation ---
	reg, err := registry.LoadRegistry(cfg.RegistryPath)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.String("path", cfg.RegistryPath), zap.Error(err))
	}
	validator, err := validation.NewValidator(reg)
	if err != nil {
		zapLog.Fatal("input schema compile failed", zap.Error(err))
	}

	// --- Intake service ---
	prefix := cfg.Session.KeyPrefix
	svc := service.New(service.Deps{
		Sessions: session.NewStore(rdb.Client, prefix, config.GetDuration(cfg.Session.TTL)),
		Records:  recordStore,
		OCR:      ocrClient,
		Saver: persist.NewOrchestrator(recordStore,
			persist.NewRedisGuard(rdb.Client, prefix, config.GetDuration(cfg.Session.SaveLockTTL)), log),
		Channel: ingest.NewChannel(cfg.Channel.AllowedOrigins,
			config.GetDuration(cfg.Channel.DedupeWindow), ingest.NewRedisDeduper(rdb.Client, prefix), log),
		Emails: service.NewEmailCache(rdb.Client, prefix, config.GetDuration(cfg.Session.EmailCacheTTL), log),
		Events: zeebe,
		Logger: log,
	})

	// --- Workers ---
	wcfg := func(taskType string) config.WorkerConfig { return config.GetWorkerConfig(cfg, taskType) }

	var audit sar.Auditor
	if auditDB != nil {
		store := sar.NewAuditStore(auditDB)
		if err := store.EnsureSchema(ctx); err != nil {
			zapLog.Warn("audit schema setup failed, save audit disabled", zap.Error(err))
		} else {
			audit = store
		}
	}
	var index sar.Indexer
	if indexer != nil {
		index = indexer
	}

	registrations := []camunda.Registration{
		{TaskType: lba.TaskType, Handler: lba.NewHandler(lba.NewConfig(wcfg(lba.TaskType)), svc, validator, log).Handle},
		{TaskType: vbe.TaskType, Handler: vbe.NewHandler(vbe.NewConfig(wcfg(vbe.TaskType)), svc, validator, log).Handle},
		{TaskType: iad.TaskType, Handler: iad.NewHandler(iad.NewConfig(wcfg(iad.TaskType)), svc, validator, log).Handle},
		{TaskType: edf.TaskType, Handler: edf.NewHandler(edf.NewConfig(wcfg(edf.TaskType)), svc, validator, log).Handle},
		{TaskType: rdu.TaskType, Handler: rdu.NewHandler(rdu.NewConfig(wcfg(rdu.TaskType)), svc, validator, log).Handle},
		{TaskType: sar.TaskType, Handler: sar.NewHandler(sar.NewConfig(wcfg(sar.TaskType)), svc, audit, index, validator, log).Handle},
		{TaskType: ssn.TaskType, Handler: ssn.NewHandler(ssn.NewConfig(wcfg(ssn.TaskType), cfg.Notifications), svc, mailer, texter, validator, log).Handle},
	}

	var workers []*camunda.CamundaWorker
	for _, r := range registrations {
		if !config.IsWorkerEnabled(cfg, r.TaskType) {
			zapLog.Info("worker disabled", zap.String("taskType", r.TaskType))
			continue
		}
		if a, ok := reg.Find(r.TaskType); !ok || a.ImplementationStatus != registry.StatusImplemented {
			zapLog.Warn("worker not marked implemented in registry", zap.String("taskType", r.TaskType))
		}
		workers = append(workers, camunda.StartWorker(zeebe.GetClient(), r, wcfg(r.TaskType), cfg.Camunda, obs, zapLog))
	}
	zapLog.Info("workers registered", zap.Int("count", len(workers)))

	// --- HTTP edge and metrics ---
	deps := map[string]database.Pinger{"redis": rdb, "zeebe": zeebe}
	if pg != nil {
		deps["postgres"] = pg
	}
	if esClient != nil {
		deps["elasticsearch"] = esClient
	}
	apiHandler := api.NewHandler(svc, api.Config{
		MaxBodyBytes:   cfg.Channel.MaxBodyBytes,
		RequestTimeout: config.GetDuration(cfg.Camunda.RequestTimeout),
		Dependencies:   deps,
	}, log)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	servers := []*http.Server{
		{Addr: cfg.Server.APIAddress, Handler: apiHandler.Routes(), ReadHeaderTimeout: 10 * time.Second},
		{Addr: cfg.Server.MetricsAddress, Handler: metricsMux, ReadHeaderTimeout: 10 * time.Second},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	// --- Graceful Shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		zapLog.Info("Shutdown signal received, stopping workers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		for _, w := range workers {
			w.Stop()
		}
		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}
		errs = append(errs, zeebe.Close(), rdb.Close(), obs.Shutdown(shutdownCtx))
		if pg != nil {
			errs = append(errs, pg.Close())
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("intake manager stopped with errors", zap.Error(err))
		os.Exit(1)
	}
	zapLog.Info("Intake manager stopped gracefully")
}

