// Package bootstrap assembles adapters from configuration for the binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"staycal/internal/app/middleware"
	appoutbox "staycal/internal/app/outbox"
	"staycal/internal/app/uow"
	"staycal/internal/app/wiring"
	"staycal/internal/domain/calendar"
	"staycal/internal/domain/holds"
	"staycal/internal/domain/property"
	"staycal/internal/domain/reconciliation"
	"staycal/internal/infra/broker/kafka"
	rediscache "staycal/internal/infra/cache/redis"
	"staycal/internal/infra/config"
	mongodb "staycal/internal/infra/db/mongo"
	"staycal/internal/infra/inbox"
	"staycal/internal/infra/obs"
	infraoutbox "staycal/internal/infra/outbox"
	"staycal/internal/infra/reports"
	"staycal/internal/infra/storage/memory"
	"staycal/internal/infra/storage/s3"
)

// Runtime holds every adapter a binary needs. Optional parts are nil when
// their configuration is absent.
type Runtime struct {
	Config      config.Config
	Logger      *slog.Logger
	UoW         uow.UoWFactory
	Calendar    calendar.Store
	Properties  property.Repository
	Outbox      appoutbox.Outbox
	OutboxQueue infraoutbox.Queue
	Idempotency middleware.IdempotencyStore
	Inbox       kafka.Inbox
	Locker      holds.Locker
	Checkpoint  reconciliation.Checkpoint
	Sink        reconciliation.Sink
	Checks      map[string]obs.Check

	closers []func(context.Context) error
}

// Open connects storage, coordination and report sinks according to cfg.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Logger: logger, Checks: map[string]obs.Check{}}
	steps := []func(context.Context) error{rt.openStorage, rt.openCoordination, rt.openSinks}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			_ = rt.Close(context.Background())
			return nil, err
		}
	}
	return rt, nil
}

func (rt *Runtime) openStorage(ctx context.Context) error {
	switch rt.Config.Storage {
	case config.StorageMongo:
		client, err := mongodb.New(rt.Config.MongoURI, rt.Config.MongoDB)
		if err != nil {
			return fmt.Errorf("bootstrap: mongo: %w", err)
		}
		rt.closers = append(rt.closers, client.Close)
		rt.Checks["mongo"] = client.Ping
		store := infraoutbox.NewStore(client.DB)
		rt.Calendar = mongodb.NewCalendarStore(client.DB)
		rt.Properties = mongodb.NewPropertyRepository(client.DB)
		rt.Outbox = store
		rt.OutboxQueue = store
		rt.Idempotency = mongodb.NewIdempotencyStore(client.DB, rt.Config.IdempotencyTTL)
		rt.Inbox = inbox.NewStore(client.DB, rt.Config.KafkaGroupID, inbox.DefaultRetention)
		rt.UoW = mongodb.Factory{DB: client.DB, CalendarStore: rt.Calendar, PropertyRepo: rt.Properties}
	default:
		box := memory.NewOutbox()
		box.Logger = rt.Logger
		rt.Calendar = memory.NewCalendarStore()
		rt.Properties = memory.NewPropertyRepository()
		rt.Outbox = box
		rt.Idempotency = memory.NewIdempotencyStore()
		rt.Inbox = memory.NewInbox()
		rt.UoW = memory.Factory{CalendarStore: rt.Calendar, PropertyRepo: rt.Properties}
	}
	rt.Logger.Info("storage ready", "backend", rt.Config.Storage)
	return nil
}

// openCoordination picks Redis for locks and sweep checkpoints when configured;
// in-process versions are only correct for a single instance.
func (rt *Runtime) openCoordination(ctx context.Context) error {
	if rt.Config.RedisAddr == "" {
		rt.Locker = memory.NewLocker()
		rt.Checkpoint = memory.NewCheckpoint()
		return nil
	}
	client, err := rediscache.NewClient(rt.Config.RedisAddr, rt.Config.RedisPassword, rt.Config.RedisDB)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	rt.closers = append(rt.closers, func(context.Context) error { return client.Close() })
	rt.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	rt.Locker = rediscache.NewLocker(client, "")
	rt.Checkpoint = rediscache.NewCheckpoint(client, 0)
	return nil
}

func (rt *Runtime) openSinks(ctx context.Context) error {
	sinks := reports.Multi{reports.LogSink{Logger: rt.Logger}}
	if rt.Config.ReportDir != "" {
		sinks = append(sinks, reports.FileSink{Dir: rt.Config.ReportDir})
	}
	if rt.Config.S3Endpoint != "" {
		client, err := s3.NewClient(rt.Config.S3Endpoint, rt.Config.S3UseSSL, rt.Config.S3AccessKey, rt.Config.S3SecretKey, rt.Config.S3Bucket, rt.Logger)
		if err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
		rt.Checks["s3"] = client.Ping
		sinks = append(sinks, s3.ReportSink{Uploader: client, Prefix: rt.Config.S3ReportsDir})
	}
	rt.Sink = sinks
	return nil
}

// Settings maps configuration onto handler settings.
func (rt *Runtime) Settings() wiring.Settings {
	return wiring.Settings{
		FetchTimeout:     rt.Config.FetchTimeout,
		Policy:           reconciliation.Policy{NearFutureWindow: rt.Config.NearFutureWindow},
		WindowBack:       rt.Config.AuditWindowBack,
		WindowForward:    rt.Config.AuditWindowForward,
		Concurrency:      rt.Config.AuditConcurrency,
		HoldLockTTL:      rt.Config.HoldLockTTL,
		RegenerateMonths: rt.Config.RegenerateMonths,
		MaxStayNights:    rt.Config.MaxStayNights,
		Now:              time.Now,
	}
}

func (rt *Runtime) Buses() wiring.Buses {
	return wiring.Build(wiring.Deps{
		UoW:         rt.UoW,
		Outbox:      rt.Outbox,
		Idempotency: rt.Idempotency,
		Locker:      rt.Locker,
		Sink:        rt.Sink,
		Checkpoint:  rt.Checkpoint,
		Settings:    rt.Settings(),
		Logger:      rt.Logger,
	})
}

// Close releases connections in reverse order of opening.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
