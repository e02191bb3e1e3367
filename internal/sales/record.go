package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwabenaosei/dukapos-backend/pkg/enums"
	"github.com/kwabenaosei/dukapos-backend/pkg/types"
)

const keyPrefix = "sale"

// CustomerRef is the identity snapshot a sale carries. The resolver owns
// the canonical customer row; this is what the cashier typed.
type CustomerRef struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// SaleRecord is the tagged shape persisted in the keyed record store.
// Records are immutable once written.
type SaleRecord struct {
	ID            string              `json:"id"`
	BusinessID    uuid.UUID           `json:"business_id"`
	Timestamp     time.Time           `json:"timestamp"`
	Date          string              `json:"date"`
	Items         []types.SaleItem    `json:"items"`
	Total         decimal.Decimal     `json:"total"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Customer      *CustomerRef        `json:"customer,omitempty"`
}

// newSaleID builds a globally unique id. The millisecond prefix keeps keys
// roughly time-ordered; the suffix guards against same-millisecond sales.
func newSaleID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

func saleKey(businessID uuid.UUID, date, saleID string) string {
	return fmt.Sprintf("%s:%s:%s:%s", keyPrefix, businessID, date, saleID)
}

func dayPrefix(businessID uuid.UUID, date string) string {
	return fmt.Sprintf("%s:%s:%s:", keyPrefix, businessID, date)
}

func (r SaleRecord) matchesCandidate(name, phoneDigits string, total decimal.Decimal) bool {
	if !r.Total.Equal(total) {
		return false
	}
	recordName, recordDigits := "", ""
	if r.Customer != nil {
		recordName = strings.ToLower(strings.TrimSpace(r.Customer.Name))
		recordDigits = digitsOnly(r.Customer.Phone)
	}
	return recordName == name && recordDigits == phoneDigits
}

func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
