package dto

import (
	"time"

	domainpromotion "hotelres/internal/domain/promotion"
)

type PromoValidation struct {
	Code           string `json:"code"`
	Valid          bool   `json:"valid"`
	Reason         string `json:"reason,omitempty"`
	Message        string `json:"message,omitempty"`
	OriginalAmount string `json:"original_amount"`
	Discount       string `json:"discount_amount"`
	FinalAmount    string `json:"final_amount"`
}

type Promotion struct {
	ID              string    `json:"id"`
	Code            string    `json:"code"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Kind            string    `json:"kind"`
	Value           string    `json:"value"`
	MinimumAmount   string    `json:"minimum_amount"`
	MaximumDiscount *string   `json:"maximum_discount,omitempty"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	UsageLimit      *int      `json:"usage_limit,omitempty"`
	UsageCount      int       `json:"usage_count"`
	Active          bool      `json:"active"`
	OncePerCustomer bool      `json:"once_per_customer"`
}

type PromotionCollection struct {
	Items []Promotion `json:"items"`
}

type PromotionUsage struct {
	ReservationID string    `json:"reservation_id"`
	CustomerID    string    `json:"customer_id"`
	Discount      string    `json:"discount_amount"`
	UsedAt        time.Time `json:"used_at"`
}

type PromotionStats struct {
	Code          string           `json:"code"`
	UsageCount    int              `json:"usage_count"`
	UsageLimit    *int             `json:"usage_limit,omitempty"`
	TotalDiscount string           `json:"total_discount"`
	Currency      string           `json:"currency"`
	History       []PromotionUsage `json:"history"`
}

func MapPromotion(p *domainpromotion.Promotion) Promotion {
	out := Promotion{
		ID:              p.ID,
		Code:            p.Code,
		Title:           p.Title,
		Description:     p.Description,
		Kind:            string(p.Kind),
		Value:           p.Value.String(),
		MinimumAmount:   p.MinimumAmount.StringFixed(2),
		StartsAt:        p.StartsAt,
		EndsAt:          p.EndsAt,
		UsageLimit:      p.UsageLimit,
		UsageCount:      p.UsageCount,
		Active:          p.Active,
		OncePerCustomer: p.SingleUsePerCustomer(),
	}
	if p.MaximumDiscount != nil {
		v := p.MaximumDiscount.StringFixed(2)
		out.MaximumDiscount = &v
	}
	return out
}

func MapStats(p *domainpromotion.Promotion, stats domainpromotion.Statistics) PromotionStats {
	out := PromotionStats{
		Code:          stats.Code,
		UsageCount:    stats.UsageCount,
		UsageLimit:    p.UsageLimit,
		TotalDiscount: Amount(stats.TotalDiscount),
		Currency:      stats.TotalDiscount.Currency,
		History:       make([]PromotionUsage, 0, len(stats.History)),
	}
	for _, u := range stats.History {
		out.History = append(out.History, PromotionUsage{
			ReservationID: u.ReservationID,
			CustomerID:    u.CustomerID,
			Discount:      Amount(u.DiscountApplied),
			UsedAt:        u.UsedAt,
		})
	}
	return out
}
