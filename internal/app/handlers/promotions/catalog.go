package promotions

import (
	"context"
	"sort"
	"time"

	"hotelres/internal/app/commands"
	"hotelres/internal/app/dto"
	handlersupport "hotelres/internal/app/handlers/support"
	"hotelres/internal/app/outbox"
	"hotelres/internal/app/queries"
	"hotelres/internal/app/uow"
	domainpromotion "hotelres/internal/domain/promotion"
	"hotelres/internal/domain/shared/money"
)

const (
	listActivePromotionsKey = "promotions.active"
	promotionStatsKey       = "promotions.stats"
	setPromotionActiveKey   = "promotions.set_active"
)

type ListActivePromotionsQuery struct{}

func (q ListActivePromotionsQuery) Key() string { return listActivePromotionsKey }

// ListActivePromotionsHandler returns promotions redeemable right now, ordered by code.
type ListActivePromotionsHandler struct {
	UoWFactory uow.UoWFactory
	Clock      func() time.Time
}

func (h *ListActivePromotionsHandler) Handle(ctx context.Context, _ ListActivePromotionsQuery) (*dto.PromotionCollection, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	all, err := unit.Promotions().List(execCtx)
	if err != nil {
		return nil, err
	}
	now := handlersupport.Now(h.Clock)
	out := &dto.PromotionCollection{Items: make([]dto.Promotion, 0, len(all))}
	for _, p := range all {
		if !p.CurrentlyValid(now) || p.Exhausted() {
			continue
		}
		out.Items = append(out.Items, dto.MapPromotion(p))
	}
	sort.Slice(out.Items, func(i, j int) bool { return out.Items[i].Code < out.Items[j].Code })
	return out, nil
}

type PromotionStatsQuery struct {
	Code string `json:"code" validate:"required"`
}

func (q PromotionStatsQuery) Key() string { return promotionStatsKey }

type PromotionStatsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *PromotionStatsHandler) Handle(ctx context.Context, q PromotionStatsQuery) (*dto.PromotionStats, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	promo, err := unit.Promotions().ByCode(execCtx, domainpromotion.NormalizeCode(q.Code))
	if err != nil {
		return nil, err
	}
	usages, err := unit.Usages().ByPromotion(execCtx, promo.ID)
	if err != nil {
		return nil, err
	}
	currency := money.DefaultCurrency
	if len(usages) > 0 {
		currency = usages[0].DiscountApplied.Currency
	}
	stats := dto.MapStats(promo, domainpromotion.Summarize(promo, usages, currency))
	return &stats, nil
}

type SetPromotionActiveCommand struct {
	Code   string `json:"code" validate:"required"`
	Active bool   `json:"active"`
}

func (c SetPromotionActiveCommand) Key() string { return setPromotionActiveKey }

type SetPromotionActiveHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      func() time.Time
}

func (h *SetPromotionActiveHandler) Handle(ctx context.Context, cmd SetPromotionActiveCommand) (*dto.Promotion, error) {
	var out dto.Promotion
	err := handlersupport.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		promo, err := unit.Promotions().ByCode(ctx, domainpromotion.NormalizeCode(cmd.Code))
		if err != nil {
			return err
		}
		promo.SetActive(cmd.Active, handlersupport.Now(h.Clock))
		if err := unit.Promotions().Save(ctx, promo); err != nil {
			return err
		}
		if err := handlersupport.Record(ctx, h.Outbox, h.Encoder, promo.Drain()); err != nil {
			return err
		}
		out = dto.MapPromotion(promo)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

var (
	_ queries.Handler[ListActivePromotionsQuery, *dto.PromotionCollection] = (*ListActivePromotionsHandler)(nil)
	_ queries.Handler[PromotionStatsQuery, *dto.PromotionStats]            = (*PromotionStatsHandler)(nil)
	_ commands.Handler[SetPromotionActiveCommand, *dto.Promotion]          = (*SetPromotionActiveHandler)(nil)
)
