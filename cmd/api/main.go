package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm/logger"

	"loanflow-backend/internal/adapter/filestore"
	httpadp "loanflow-backend/internal/adapter/http"
	"loanflow-backend/internal/adapter/middleware"
	"loanflow-backend/internal/adapter/mirror"
	"loanflow-backend/internal/adapter/notifier"
	"loanflow-backend/internal/adapter/repository/mysql"
	"loanflow-backend/internal/config"
	"loanflow-backend/internal/infrastructure/cache"
	"loanflow-backend/internal/infrastructure/db"
	"loanflow-backend/internal/infrastructure/kafka"
	logpkg "loanflow-backend/internal/infrastructure/logger"
	"loanflow-backend/internal/usecase/approval"
	"loanflow-backend/internal/usecase/extension"
	"loanflow-backend/internal/usecase/fine"
	"loanflow-backend/internal/usecase/loan"
	"loanflow-backend/internal/usecase/returns"
	"loanflow-backend/internal/usecase/sideeffect"
	"loanflow-backend/internal/usecase/warehouse"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		stdlog.Fatalf("invalid config: %v", err)
	}
	log := logpkg.New(cfg.LogLevel, cfg.LogFormat)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
	log.Info("bye")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	gdb, err := db.Open(cfg.DBDriver, cfg.DSN(), db.WithLogger(log, logger.Warn))
	if err != nil {
		return err
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := db.Migrate(gdb); err != nil {
		return err
	}

	rdb, err := cache.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var producer kafka.Producer = kafka.NewLogProducer(log)
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewWriterProducer(cfg.KafkaBrokers)
	}
	defer producer.Close()

	files, err := filestore.NewLocal(cfg.UploadDir)
	if err != nil {
		return err
	}

	loans := mysql.NewLoanRepository(gdb)
	tx := mysql.NewGormUoW(gdb)
	worker := sideeffect.NewWorker(
		mysql.NewOutboxRepository(gdb),
		mysql.NewReceiptRepository(gdb),
		notifier.NewDispatcher(producer, cfg.KafkaNotificationTopic, log),
		mirror.NewSync(producer, cfg.KafkaMirrorTopic),
		log,
		cfg.WorkerConfig(),
	)
	policy := cfg.FinePolicy()
	errs := httpadp.ErrorMapper{ExposeDetail: !cfg.IsProduction(), Log: log}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Recover(), requestLogger(log), echomw.BodyLimit("45M"))

	routeMW := []echo.MiddlewareFunc{middleware.Actor()}
	if rdb != nil {
		routeMW = append(routeMW, middleware.Idempotency(rdb, cfg.IdempotencyTTL(), log))
	} else {
		log.Warn("REDIS_ADDR not set, idempotency disabled")
	}
	httpadp.Register(e, httpadp.Handlers{
		Base:      httpadp.NewHandler(),
		Loans:     httpadp.NewLoanHandler(loan.NewUsecase(loans, tx, policy, worker, log), errs),
		Approvals: httpadp.NewApprovalHandler(approval.NewUsecase(tx, worker, log), errs),
		Warehouse: httpadp.NewWarehouseHandler(warehouse.NewUsecase(tx, files, worker, log), errs),
		Returns:   httpadp.NewReturnHandler(returns.NewUsecase(tx, worker, log), errs),
		Extension: httpadp.NewExtensionHandler(extension.NewUsecase(tx, worker, log), errs),
		Fines:     httpadp.NewFineHandler(fine.NewUsecase(loans, tx, policy, log), errs),
	}, routeMW...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.AppPort
		log.Info("listening", zap.String("addr", addr), zap.String("db", cfg.DBDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(sctx)
	})
	return g.Wait()
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("actor", c.Request().Header.Get(middleware.HeaderActorID)),
			}
			if v.Error != nil {
				log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}
