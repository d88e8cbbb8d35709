package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"staycal/internal/app/schedule"
	"staycal/internal/infra/bootstrap"
	"staycal/internal/infra/broker/kafka"
	"staycal/internal/infra/config"
	ginserver "staycal/internal/infra/http/gin"
	"staycal/internal/infra/obs"
	infraoutbox "staycal/internal/infra/outbox"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.LoadDotEnv()
	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	rt, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.Close(closeCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	fixturesPath := cfg.FixturesPath
	if fixturesPath == "" {
		fixturesPath = bootstrap.DefaultFixturesPath()
	}
	if err := rt.LoadFixtures(ctx, fixturesPath); err != nil {
		logger.Warn("property fixtures load failed", "error", err, "path", fixturesPath)
	}

	buses := rt.Buses()
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: rt.Checks}, ginserver.Handlers{
		Stays:    ginserver.StayHandler{Queries: buses.Queries},
		Calendar: ginserver.CalendarHandler{Queries: buses.Queries},
		Holds:    ginserver.HoldHandler{Commands: buses.Commands},
		Admin:    ginserver.AdminHandler{Commands: buses.Commands},
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.AuditCron != "" && cfg.AuditCron != "off" {
		sched := schedule.New(logger)
		if err := sched.Add(gctx, cfg.AuditCron, "audit-sweep", schedule.AuditSweepJob(buses.Commands, time.Now)); err != nil {
			logger.Error("audit schedule rejected", "error", err)
			os.Exit(1)
		}
		logger.Info("audit sweep scheduled", "spec", cfg.AuditCron)
		g.Go(func() error { return ignoreCanceled(sched.Run(gctx)) })
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			logger.Error("kafka producer failed", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		if rt.OutboxQueue != nil {
			worker := &infraoutbox.Worker{
				Queue:       rt.OutboxQueue,
				Producer:    producer,
				Interval:    cfg.OutboxPollInterval,
				TopicPrefix: cfg.KafkaTopicPrefix,
				Backoff:     cfg.RetryBackoff,
				Logger:      logger,
			}
			g.Go(func() error { return ignoreCanceled(worker.Run(gctx)) })
		}

		handler := &kafka.AuditRequestHandler{Commands: buses.Commands, Inbox: rt.Inbox, Logger: logger}
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, handler, logger)
		if err != nil {
			logger.Error("kafka consumer failed", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()
		consumer.Backoff = cfg.RetryBackoff
		topic := cfg.KafkaTopicPrefix + cfg.AuditRequestsTopic
		logger.Info("consuming audit requests", "topic", topic, "group", cfg.KafkaGroupID)
		g.Go(func() error { return ignoreCanceled(consumer.Run(gctx, []string{topic})) })
	}

	if err := g.Wait(); err != nil {
		logger.Error("staycal stopped with error", "error", err)
		return
	}
	logger.Info("staycal stopped")
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
