package orders

import (
	"errors"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrEmptyCart      = errors.New("cart is empty, nothing to order")
	ErrInvalidPayment = errors.New("payment method is required")
)

// NewRecord builds a paid order from the current cart lines.
func NewRecord(sessionID string, lines []domain.CartLine, totalCents int64, payment domain.PaymentInfo, now time.Time) (domain.OrderRecord, error) {
	if len(lines) == 0 {
		return domain.OrderRecord{}, ErrEmptyCart
	}
	payment.Method = strings.TrimSpace(payment.Method)
	if payment.Method == "" {
		return domain.OrderRecord{}, ErrInvalidPayment
	}
	if n := len(payment.CardLast4); n > 4 {
		payment.CardLast4 = payment.CardLast4[n-4:]
	}

	items := make([]domain.CartLine, len(lines))
	copy(items, lines)

	return domain.OrderRecord{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		CreatedAt:  now.UTC(),
		TotalCents: totalCents,
		Items:      items,
		Payment:    payment,
		Status:     domain.OrderStatusPaid,
	}, nil
}
