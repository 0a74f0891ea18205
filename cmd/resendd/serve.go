package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/boclar/booking-app-business-demo-sub000/internal/engine"
	"github.com/boclar/booking-app-business-demo-sub000/internal/registry"
	"github.com/boclar/booking-app-business-demo-sub000/internal/repo"
	"github.com/boclar/booking-app-business-demo-sub000/internal/server"
	"github.com/boclar/booking-app-business-demo-sub000/internal/service"
	"github.com/boclar/booking-app-business-demo-sub000/internal/tasks"
	"github.com/boclar/booking-app-business-demo-sub000/internal/tasks/housekeeping"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/cooldown"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/db"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/kvstore"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/logger"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/message/verification"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and housekeeping jobs",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	heartbeat, err := cooldown.HeartbeatFor(cfg.Cooldown.Platform)
	if err != nil {
		return err
	}
	store, err := kvstore.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	sched := engine.NewScheduler()
	if gs, ok := store.(*kvstore.GormStore); ok {
		// 同库记录任务执行历史
		jobLogs := repo.NewJobLogRepo(gs.DB(), repo.DefaultKeep)
		if err := jobLogs.AutoMigrate(ctx); err != nil {
			return fmt.Errorf("migrate job logs: %w", err)
		}
		sched.SetRecorder(jobLogs)
	}
	hub, err := registry.NewHub(registry.Options{
		Store:     store,
		Scheduler: sched,
		Heartbeat: heartbeat,
		Defaults:  cfg.Cooldown.Defaults(),
	})
	if err != nil {
		return err
	}

	senders := verification.NewCodeSenderFactory(cfg.Verification)
	for _, t := range []verification.CodeType{verification.CodeTypeSMS, verification.CodeTypeEmail} {
		if _, err := senders.GetCodeSender(t); err != nil {
			return fmt.Errorf("code sender %s: %w", t, err)
		}
	}
	codes, err := db.GetRedisConn("verification", cfg.Verification.Redis)
	if err != nil {
		return fmt.Errorf("verification redis: %w", err)
	}
	svc := service.NewResender(hub, senders, codes, service.Options{
		CodeLength: cfg.Verification.CodeLength,
		CodeTTL:    time.Duration(cfg.Verification.CodeTTL) * time.Second,
	})

	housekeeping.Register(hub)
	housekeeping.RegisterProbe(store)
	tasks.ApplyAutoJobs(sched)
	for _, job := range cfg.Jobs {
		if !job.Enable {
			continue
		}
		if err := sched.AddJob(job.Cron, job.TaskName(), job.Name, job.Params, engine.SourceYAML); err != nil {
			logger.Warn("failed to schedule job", zap.String("job", job.Name), zap.Error(err))
			continue
		}
		logger.Info("job scheduled", zap.String("job", job.Name), zap.String("cron", job.Cron))
	}
	sched.Start()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.NewServer(svc, sched)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("resendd listening", zap.String("addr", cfg.Server.Port),
			zap.String("store", cfg.Store.Driver), zap.String("heartbeat", heartbeat.Name()))
		errCh <- srv.Run(cfg.Server.Port)
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	// 先关控制器再停调度器，关闭时会按进入后台写入 lastUpdate
	hub.Close()
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduler stop", zap.Error(err))
	}
	db.CloseRedis()
	db.CloseMongo(shutdownCtx)
	return runErr
}
