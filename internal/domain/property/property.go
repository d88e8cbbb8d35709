package property

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"staycal/internal/domain/pricing"
)

var (
	ErrNotFound      = errors.New("property: not found")
	ErrIDRequired    = errors.New("property: id is required")
	ErrNameRequired  = errors.New("property: name is required")
	ErrInvalidPolicy = errors.New("property: invalid pricing configuration")
)

type ID string

// Property is the slice of a property record this service needs: identity and
// the compiled pricing policy.
type Property struct {
	ID        ID
	Name      string
	Pricing   pricing.Policy
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Property, error)
	Save(ctx context.Context, p *Property) error
	List(ctx context.Context) ([]*Property, error)
}

// Lookup is the read side used by resolvers and auditors.
type Lookup interface {
	ByID(ctx context.Context, id ID) (*Property, error)
}

type CreateParams struct {
	ID      ID
	Name    string
	Pricing pricing.Config
	Now     time.Time
}

// New validates the pricing config once, at load time.
func New(params CreateParams) (*Property, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(params.Name) == "" {
		return nil, ErrNameRequired
	}
	policy, err := pricing.Compile(params.Pricing)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPolicy, params.ID, err)
	}
	now := params.Now.UTC()
	return &Property{
		ID:        params.ID,
		Name:      strings.TrimSpace(params.Name),
		Pricing:   policy,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Reprice swaps the pricing configuration after validating it.
func (p *Property) Reprice(cfg pricing.Config, now time.Time) error {
	policy, err := pricing.Compile(cfg)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidPolicy, p.ID, err)
	}
	p.Pricing = policy
	p.UpdatedAt = now.UTC()
	return nil
}
