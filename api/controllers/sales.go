package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kwabenaosei/dukapos-backend/api/responses"
	"github.com/kwabenaosei/dukapos-backend/api/validators"
	"github.com/kwabenaosei/dukapos-backend/internal/inventory"
	salesvc "github.com/kwabenaosei/dukapos-backend/internal/sales"
	"github.com/kwabenaosei/dukapos-backend/pkg/db/models"
	"github.com/kwabenaosei/dukapos-backend/pkg/enums"
	pkgerrors "github.com/kwabenaosei/dukapos-backend/pkg/errors"
	"github.com/kwabenaosei/dukapos-backend/pkg/logger"
	"github.com/kwabenaosei/dukapos-backend/pkg/types"
)

// RecordSale ingests one completed sale from a POS terminal.
func RecordSale(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		businessID, err := businessIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload recordSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RecordSale(r.Context(), businessID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Duplicate {
			// A suppressed duplicate returns the original record, not an
			// error. The client treats it as its own successful submit.
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, recordSaleResponse{
			Sale:            result.Sale,
			Duplicate:       result.Duplicate,
			Items:           result.ItemOutcomes,
			Customer:        result.Customer,
			CustomerCreated: result.CustomerCreated,
		})
	}
}

// GetSalesByDate returns the tenant's sales for one calendar date.
func GetSalesByDate(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		businessID, err := businessIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		date := strings.TrimSpace(chi.URLParam(r, "date"))
		summary, err := svc.GetSalesByDate(r.Context(), businessID, date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

type recordSaleRequest struct {
	Items         []types.SaleItem `json:"items" validate:"required,min=1,dive"`
	Total         decimal.Decimal  `json:"total"`
	PaymentMethod string           `json:"payment_method" validate:"required"`
	Customer      *saleCustomerRef `json:"customer,omitempty"`
}

type saleCustomerRef struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

type recordSaleResponse struct {
	Sale            salesvc.SaleRecord      `json:"sale"`
	Duplicate       bool                    `json:"duplicate"`
	Items           []inventory.ItemOutcome `json:"items,omitempty"`
	Customer        *models.Customer        `json:"customer,omitempty"`
	CustomerCreated bool                    `json:"customer_created"`
}

func (r recordSaleRequest) toInput() (salesvc.RecordSaleInput, error) {
	method, err := enums.ParsePaymentMethod(strings.TrimSpace(r.PaymentMethod))
	if err != nil {
		return salesvc.RecordSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}

	input := salesvc.RecordSaleInput{
		Items:         r.Items,
		Total:         r.Total,
		PaymentMethod: method,
	}
	if r.Customer != nil {
		input.Customer = &salesvc.CustomerRef{
			Name:  strings.TrimSpace(r.Customer.Name),
			Phone: strings.TrimSpace(r.Customer.Phone),
			Email: strings.TrimSpace(r.Customer.Email),
		}
	}
	return input, nil
}
