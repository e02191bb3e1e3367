package customers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwabenaosei/dukapos-backend/pkg/db/models"
	pkgerrors "github.com/kwabenaosei/dukapos-backend/pkg/errors"
)

// Candidate is the identity data a sale or credit request carries.
type Candidate struct {
	Name    string
	Phone   string
	Email   string
	Address string
}

// Service resolves walk-in customer identities without creating duplicates.
type Service interface {
	Upsert(ctx context.Context, businessID uuid.UUID, candidate Candidate) (*models.Customer, bool, error)
	List(ctx context.Context, businessID uuid.UUID) ([]models.Customer, error)
	Get(ctx context.Context, businessID, id uuid.UUID) (*models.Customer, error)
}

type service struct {
	repo *Repository
}

// NewService constructs a customer resolver instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	return &service{repo: repo}, nil
}

// Upsert finds an existing customer or creates a new one. Matching order,
// first hit wins: trimmed case-insensitive name, then digit-normalized
// phone, then case-insensitive email. This is a heuristic, not a key
// lookup; it prefers merging over duplicate walk-in rows.
func (s *service) Upsert(ctx context.Context, businessID uuid.UUID, candidate Candidate) (*models.Customer, bool, error) {
	if businessID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	name := strings.TrimSpace(candidate.Name)
	if name == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}

	phoneDisplay, phoneDigits := NormalizePhone(candidate.Phone)

	existing, err := s.repo.FindByName(ctx, businessID, name)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "matching customer by name")
	}
	if existing == nil && phoneDigits != "" {
		existing, err = s.repo.FindByPhoneDigits(ctx, businessID, phoneDigits)
		if err != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "matching customer by phone")
		}
	}
	if existing == nil && candidate.Email != "" {
		existing, err = s.repo.FindByEmail(ctx, businessID, candidate.Email)
		if err != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "matching customer by email")
		}
	}
	if existing != nil {
		return existing, false, nil
	}

	customer := &models.Customer{
		ID:             uuid.New(),
		BusinessID:     businessID,
		Name:           name,
		CurrentBalance: decimal.Zero,
	}
	if phoneDisplay != "" {
		customer.Phone = &phoneDisplay
	}
	if phoneDigits != "" {
		customer.PhoneDigits = &phoneDigits
	}
	if email := strings.TrimSpace(candidate.Email); email != "" {
		customer.Email = &email
	}
	if address := strings.TrimSpace(candidate.Address); address != "" {
		customer.Address = &address
	}

	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating customer")
	}
	return customer, true, nil
}

func (s *service) List(ctx context.Context, businessID uuid.UUID) ([]models.Customer, error) {
	if businessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	rows, err := s.repo.ListByBalance(ctx, businessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing customers")
	}
	return rows, nil
}

func (s *service) Get(ctx context.Context, businessID, id uuid.UUID) (*models.Customer, error) {
	if businessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	customer, err := s.repo.FindByID(ctx, businessID, id)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("customer %s not found", id))
	}
	return customer, nil
}
