package promotion

import (
	"time"

	"hotelres/internal/domain/shared/money"
)

type PromotionRedeemed struct {
	PromotionID   string
	Code          string
	ReservationID string
	CustomerID    string
	Discount      money.Money
	At            time.Time
}

func (e PromotionRedeemed) EventName() string     { return "promotion.redeemed" }
func (e PromotionRedeemed) AggregateID() string   { return e.PromotionID }
func (e PromotionRedeemed) OccurredAt() time.Time { return e.At }

type PromotionUsageRestored struct {
	PromotionID   string
	Code          string
	ReservationID string
	At            time.Time
}

func (e PromotionUsageRestored) EventName() string     { return "promotion.usage_restored" }
func (e PromotionUsageRestored) AggregateID() string   { return e.PromotionID }
func (e PromotionUsageRestored) OccurredAt() time.Time { return e.At }

type PromotionToggled struct {
	PromotionID string
	Code        string
	Active      bool
	At          time.Time
}

func (e PromotionToggled) EventName() string     { return "promotion.toggled" }
func (e PromotionToggled) AggregateID() string   { return e.PromotionID }
func (e PromotionToggled) OccurredAt() time.Time { return e.At }
