package domain

import "time"

const OrderStatusPaid = "paid"

type PaymentInfo struct {
	Method     string `json:"method"`
	CardLast4  string `json:"cardLast4,omitempty"`
	HolderName string `json:"holderName,omitempty"`
}

type OrderRecord struct {
	ID         string      `json:"id"`
	SessionID  string      `json:"sessionId,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	TotalCents int64       `json:"totalCents"`
	Items      []CartLine  `json:"items"`
	Payment    PaymentInfo `json:"payment"`
	Status     string      `json:"status"`
}
