package domain

import "time"

type DiscountType string

const (
	DiscountPercentage  DiscountType = "Percentage"
	DiscountFixedAmount DiscountType = "FixedAmount"
)

// Promotion mirrors the /promotions/store/active payload. ApplicationCondition
// carries the discount value as a string: a percentage or a whole-dollar amount.
type Promotion struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	DiscountType         DiscountType `json:"discountType"`
	ApplicationCondition string       `json:"applicationCondition"`
	Scope                string       `json:"scope,omitempty"`
	StartsAt             *time.Time   `json:"startDate,omitempty"`
	EndsAt               *time.Time   `json:"endDate,omitempty"`
}

// ActiveAt reports whether now falls inside the optional start/end window.
func (p Promotion) ActiveAt(now time.Time) bool {
	if p.StartsAt != nil && now.Before(*p.StartsAt) {
		return false
	}
	if p.EndsAt != nil && now.After(*p.EndsAt) {
		return false
	}
	return true
}
