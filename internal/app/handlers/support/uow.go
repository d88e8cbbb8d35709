package support

import (
	"context"

	"staycal/internal/app/uow"
)

func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	return beginUnit(ctx, factory, uow.TxOptions{ReadOnly: true})
}

// Managed is a unit opened by a handler itself because no transaction
// middleware supplied one. Commit and Close are no-ops on borrowed units.
type Managed struct {
	uow.UnitOfWork
	owned     bool
	committed bool
}

// BeginUnit returns the unit from ctx or opens one. Callers defer Close.
func BeginUnit(ctx context.Context, factory uow.UoWFactory) (*Managed, context.Context, error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return &Managed{UnitOfWork: unit}, ctx, nil
	}
	unit, execCtx, _, err := beginUnit(ctx, factory, uow.TxOptions{})
	if err != nil {
		return nil, ctx, err
	}
	return &Managed{UnitOfWork: unit, owned: true}, execCtx, nil
}

func (m *Managed) Commit(ctx context.Context) error {
	if !m.owned {
		return nil
	}
	if err := m.UnitOfWork.Commit(ctx); err != nil {
		return err
	}
	m.committed = true
	return nil
}

func (m *Managed) Close(ctx context.Context) {
	if m.owned && !m.committed {
		_ = m.UnitOfWork.Rollback(ctx)
	}
}

func beginUnit(ctx context.Context, factory uow.UoWFactory, opts uow.TxOptions) (uow.UnitOfWork, context.Context, func(), error) {
	unit, ok := uow.FromContext(ctx)
	if ok {
		return unit, ctx, func() {}, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrUnitOfWorkMissing
	}
	newUnit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := ctx
	if injector, ok := newUnit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		execCtx = injector.InjectContext(ctx)
	}
	execCtx = uow.ContextWithUnitOfWork(execCtx, newUnit)
	cleanup := func() {
		_ = newUnit.Rollback(execCtx)
	}
	return newUnit, execCtx, cleanup, nil
}
