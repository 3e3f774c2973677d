// Package customer authenticates members and manages the customers they bill.
package customer

import (
	"context"

	"github.com/dvloznov/bookkeeper/internal/domain"
	"github.com/dvloznov/bookkeeper/internal/secret"
	"github.com/rs/zerolog"
)

// Directory is the billing platform's customer store.
type Directory interface {
	Customers(ctx context.Context) ([]domain.Customer, error)
	Customer(ctx context.Context, id string) (domain.Customer, error)
	CreatePendingCustomer(ctx context.Context, provider string) (domain.Customer, error)
	CompleteCustomer(ctx context.Context, id string, u domain.CustomerUpdate) error
}

// authFailed is the only message a caller sees for a rejected login.
const authFailed = "Authentication required."

// Service authenticates members and runs the customer onboarding flow.
type Service struct {
	dir       Directory
	validator *Validator
	log       zerolog.Logger
}

// NewService creates a new customer Service.
func NewService(dir Directory, log zerolog.Logger) *Service {
	return &Service{
		dir:       dir,
		validator: NewValidator(),
		log:       log,
	}
}

// Authenticate checks Basic credentials against the member directory. An
// unknown login and a wrong password fail the same way.
func (s *Service) Authenticate(ctx context.Context, login, password string) (domain.Member, error) {
	customers, err := s.dir.Customers(ctx)
	if err != nil {
		return domain.Member{}, domain.Upstream("list customers", err)
	}

	for _, m := range domain.Members(customers) {
		if m.Email != login {
			continue
		}
		if secret.CheckPassword(m.Metadata[domain.MetaSalt], password, m.Metadata[domain.MetaPassword]) {
			return m, nil
		}
		s.log.Warn().Str("login", login).Msg("Invalid password")
		return domain.Member{}, domain.Unauthorized(authFailed)
	}

	s.log.Warn().Str("login", login).Msg("Member not found")
	return domain.Member{}, domain.Unauthorized(authFailed)
}

// List returns the customers billed by member.
func (s *Service) List(ctx context.Context, member domain.Member) ([]domain.Customer, error) {
	customers, err := s.dir.Customers(ctx)
	if err != nil {
		return nil, domain.Upstream("list customers", err)
	}
	out := []domain.Customer{}
	for _, c := range customers {
		if p, ok := c.Metadata[domain.MetaProvider]; ok && p == member.Description {
			out = append(out, c)
		}
	}
	return out, nil
}

// CreatePending creates an empty customer for member to hand over for onboarding.
func (s *Service) CreatePending(ctx context.Context, member domain.Member) (domain.Customer, error) {
	c, err := s.dir.CreatePendingCustomer(ctx, member.Description)
	if err != nil {
		return domain.Customer{}, domain.Upstream("create customer", err)
	}
	return c, nil
}

// Complete validates the onboarding payload and stores it on a pending customer.
func (s *Service) Complete(ctx context.Context, id string, o Onboarding) error {
	if err := s.validator.Validate(&o); err != nil {
		return err
	}

	c, err := s.dir.Customer(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Str("customer_id", id).Msg("Failed to fetch customer")
		return &domain.Error{Kind: domain.KindState, Message: "Customer not editable", Cause: err}
	}
	if c.Metadata[domain.MetaStatus] != domain.CustomerPending {
		s.log.Warn().
			Str("customer_id", id).
			Str("status", c.Metadata[domain.MetaStatus]).
			Msg("Customer not in pending status")
		return domain.StateConflict("Customer not editable")
	}

	if err := s.dir.CompleteCustomer(ctx, id, o.Update()); err != nil {
		return &domain.Error{Kind: domain.KindState, Message: "Customer not editable", Cause: err}
	}
	return nil
}
