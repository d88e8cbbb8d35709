package memory

import (
	"context"
	"errors"

	"staycal/internal/app/uow"
	"staycal/internal/domain/calendar"
	"staycal/internal/domain/property"
)

// Factory wires in-memory stores into a unit-of-work boundary.
type Factory struct {
	CalendarStore calendar.Store
	PropertyRepo  property.Repository
}

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a lightweight transaction boundary. No isolation is provided;
// day writes are still conditional at the store.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.CalendarStore == nil || f.PropertyRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{calendar: f.CalendarStore, properties: f.PropertyRepo}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	calendar   calendar.Store
	properties property.Repository
}

func (u *Unit) Calendar() calendar.Store {
	return u.calendar
}

func (u *Unit) Properties() property.Repository {
	return u.properties
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}
