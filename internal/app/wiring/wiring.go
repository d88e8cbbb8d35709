package wiring

import (
	"log/slog"
	"time"

	"staycal/internal/app/commands"
	auditapp "staycal/internal/app/handlers/audit"
	calendarapp "staycal/internal/app/handlers/calendar"
	holdsapp "staycal/internal/app/handlers/holds"
	"staycal/internal/app/handlers/stays"
	"staycal/internal/app/middleware"
	"staycal/internal/app/outbox"
	"staycal/internal/app/queries"
	"staycal/internal/app/uow"
	domainholds "staycal/internal/domain/holds"
	"staycal/internal/domain/reconciliation"
)

type Settings struct {
	FetchTimeout     time.Duration
	Policy           reconciliation.Policy
	WindowBack       int
	WindowForward    int
	Concurrency      int
	HoldLockTTL      time.Duration
	RegenerateMonths int
	MaxStayNights    int
	Now              func() time.Time
}

type Deps struct {
	UoW         uow.UoWFactory
	Outbox      outbox.Outbox
	Idempotency middleware.IdempotencyStore
	Locker      domainholds.Locker
	Sink        reconciliation.Sink
	Checkpoint  reconciliation.Checkpoint
	Settings    Settings
	Logger      *slog.Logger
}

type Buses struct {
	Commands commands.Bus
	Queries  queries.Bus
}

// Build registers every handler and wraps the buses in the middleware chain:
// validation, idempotency, transaction, outbox flush.
func Build(d Deps) Buses {
	s := d.Settings
	encoder := outbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()
	holdsHandler := &holdsapp.HoldsHandler{
		UoWFactory: d.UoW,
		Locker:     d.Locker,
		LockTTL:    s.HoldLockTTL,
		MaxNights:  s.MaxStayNights,
		Outbox:     d.Outbox,
		Encoder:    encoder,
		Now:        s.Now,
		Logger:     d.Logger,
	}
	holdsHandler.Register(commandBus)
	commands.RegisterHandler(commandBus, auditapp.RunAuditCommand{}.Key(), &auditapp.RunAuditHandler{
		UoWFactory:    d.UoW,
		Outbox:        d.Outbox,
		Encoder:       encoder,
		Sink:          d.Sink,
		Policy:        s.Policy,
		FetchTimeout:  s.FetchTimeout,
		WindowBack:    s.WindowBack,
		WindowForward: s.WindowForward,
		Now:           s.Now,
		Logger:        d.Logger,
	})
	commands.RegisterHandler(commandBus, auditapp.SweepAuditsCommand{}.Key(), &auditapp.SweepAuditsHandler{
		UoWFactory:    d.UoW,
		Outbox:        d.Outbox,
		Encoder:       encoder,
		Sink:          d.Sink,
		Checkpoint:    d.Checkpoint,
		Policy:        s.Policy,
		FetchTimeout:  s.FetchTimeout,
		Concurrency:   s.Concurrency,
		WindowBack:    s.WindowBack,
		WindowForward: s.WindowForward,
		Now:           s.Now,
		Logger:        d.Logger,
	})
	commands.RegisterHandler(commandBus, calendarapp.ApplyCorrectionsCommand{}.Key(), &calendarapp.ApplyCorrectionsHandler{
		UoWFactory:    d.UoW,
		Outbox:        d.Outbox,
		Encoder:       encoder,
		Policy:        s.Policy,
		FetchTimeout:  s.FetchTimeout,
		WindowBack:    s.WindowBack,
		WindowForward: s.WindowForward,
		Now:           s.Now,
		Logger:        d.Logger,
	})
	commands.RegisterHandler(commandBus, calendarapp.RegeneratePricesCommand{}.Key(), &calendarapp.RegeneratePricesHandler{
		UoWFactory:    d.UoW,
		Outbox:        d.Outbox,
		Encoder:       encoder,
		FetchTimeout:  s.FetchTimeout,
		DefaultMonths: s.RegenerateMonths,
		Now:           s.Now,
		Logger:        d.Logger,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, stays.CheckStayQuery{}.Key(), &stays.CheckStayHandler{
		UoWFactory:   d.UoW,
		FetchTimeout: s.FetchTimeout,
		MaxNights:    s.MaxStayNights,
		Logger:       d.Logger,
	})
	queries.RegisterHandler(queryBus, calendarapp.GetMonthQuery{}.Key(), &calendarapp.GetMonthHandler{
		UoWFactory: d.UoW,
	})

	cmdMiddleware := []middleware.CommandMiddleware{middleware.Validation(middleware.SelfValidator{})}
	if d.Idempotency != nil {
		cmdMiddleware = append(cmdMiddleware, middleware.Idempotency(d.Idempotency, nil))
	}
	cmdMiddleware = append(cmdMiddleware, middleware.Transaction(d.UoW, middleware.ReadOnlyHint))
	if d.Outbox != nil {
		cmdMiddleware = append(cmdMiddleware, middleware.OutboxFlush(d.Outbox))
	}

	return Buses{
		Commands: middleware.ChainCommands(commandBus, cmdMiddleware...),
		Queries:  middleware.ChainQueries(queryBus, middleware.QueryValidation(middleware.SelfValidator{})),
	}
}
