package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwabenaosei/dukapos-backend/api/responses"
	"github.com/kwabenaosei/dukapos-backend/api/validators"
	creditsvc "github.com/kwabenaosei/dukapos-backend/internal/credit"
	"github.com/kwabenaosei/dukapos-backend/internal/customers"
	"github.com/kwabenaosei/dukapos-backend/pkg/enums"
	pkgerrors "github.com/kwabenaosei/dukapos-backend/pkg/errors"
	"github.com/kwabenaosei/dukapos-backend/pkg/logger"
	"github.com/kwabenaosei/dukapos-backend/pkg/pagination"
	"github.com/kwabenaosei/dukapos-backend/pkg/types"
)

// CreateCreditSale opens a ledger entry for goods taken on credit.
func CreateCreditSale(svc creditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credit service unavailable"))
			return
		}

		businessID, err := businessIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createCreditSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateCreditSale(r.Context(), businessID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ListCreditSales returns one page of the tenant's credit sales.
func ListCreditSales(svc creditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credit service unavailable"))
			return
		}

		businessID, err := businessIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListCreditSales(r.Context(), businessID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// ListCustomerCreditSales returns every credit sale for one customer.
func ListCustomerCreditSales(svc creditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credit service unavailable"))
			return
		}

		businessID, err := businessIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customerID, err := uuid.Parse(chi.URLParam(r, "customerId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id"))
			return
		}

		rows, err := svc.ListCreditSalesByCustomer(r.Context(), businessID, customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

// ListCustomerCreditPayments returns the payment history for one customer.
func ListCustomerCreditPayments(svc creditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credit service unavailable"))
			return
		}

		businessID, err := businessIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customerID, err := uuid.Parse(chi.URLParam(r, "customerId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id"))
			return
		}

		rows, err := svc.ListPayments(r.Context(), businessID, customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

// RecordCreditPayment applies money received against the customer's debt.
func RecordCreditPayment(svc creditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credit service unavailable"))
			return
		}

		businessID, err := businessIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload recordCreditPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RecordPayment(r.Context(), businessID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// GetCreditSummary returns the tenant-wide credit position.
func GetCreditSummary(svc creditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credit service unavailable"))
			return
		}

		businessID, err := businessIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.GetCreditSummary(r.Context(), businessID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

type createCreditSaleRequest struct {
	CustomerID  *uuid.UUID       `json:"customer_id,omitempty"`
	Customer    *saleCustomerRef `json:"customer,omitempty"`
	Items       []types.SaleItem `json:"items" validate:"required,min=1,dive"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	AmountPaid  decimal.Decimal  `json:"amount_paid"`
	DueDate     *time.Time       `json:"due_date,omitempty"`
}

func (r createCreditSaleRequest) toInput() (creditsvc.CreateCreditSaleInput, error) {
	input := creditsvc.CreateCreditSaleInput{
		CustomerID:  r.CustomerID,
		Items:       r.Items,
		TotalAmount: r.TotalAmount,
		AmountPaid:  r.AmountPaid,
		DueDate:     r.DueDate,
	}
	if r.Customer != nil {
		input.Customer = &customers.Candidate{
			Name:  strings.TrimSpace(r.Customer.Name),
			Phone: strings.TrimSpace(r.Customer.Phone),
			Email: strings.TrimSpace(r.Customer.Email),
		}
	}
	return input, nil
}

type recordCreditPaymentRequest struct {
	CustomerID   uuid.UUID       `json:"customer_id" validate:"required"`
	CreditSaleID *uuid.UUID      `json:"credit_sale_id,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Method       string          `json:"method" validate:"required"`
	Reference    string          `json:"reference,omitempty"`
	ReceivedBy   string          `json:"received_by" validate:"required"`
}

func (r recordCreditPaymentRequest) toInput() (creditsvc.RecordPaymentInput, error) {
	method, err := enums.ParsePaymentMethod(strings.TrimSpace(r.Method))
	if err != nil {
		return creditsvc.RecordPaymentInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	return creditsvc.RecordPaymentInput{
		CustomerID:   r.CustomerID,
		CreditSaleID: r.CreditSaleID,
		Amount:       r.Amount,
		Method:       method,
		Reference:    strings.TrimSpace(r.Reference),
		ReceivedBy:   strings.TrimSpace(r.ReceivedBy),
	}, nil
}
