package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hotelres/internal/app/uow"
	domainpromotion "hotelres/internal/domain/promotion"
	domainrooms "hotelres/internal/domain/rooms"
	"hotelres/internal/domain/shared/money"
)

// Fixtures seed rooms and promotions. Existing entries are left untouched.
type Fixtures struct {
	Rooms      []RoomFixture      `json:"rooms"`
	Promotions []PromotionFixture `json:"promotions"`
}

type RoomFixture struct {
	ID          string `json:"id"`
	Number      string `json:"number"`
	Type        string `json:"type"`
	NightlyRate string `json:"nightly_rate"`
	Currency    string `json:"currency"`
	Capacity    int    `json:"capacity"`
}

type PromotionFixture struct {
	ID              string  `json:"id"`
	Code            string  `json:"code"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Kind            string  `json:"kind"`
	Value           string  `json:"value"`
	MinimumAmount   string  `json:"minimum_amount"`
	MaximumDiscount *string `json:"maximum_discount"`
	StartsAt        string  `json:"starts_at"`
	EndsAt          string  `json:"ends_at"`
	UsageLimit      *int    `json:"usage_limit"`
	OncePerCustomer bool    `json:"once_per_customer"`
	Active          *bool   `json:"active"`
}

// LoadFixturesFile reads path and seeds it through factory. A missing file is not an error.
func LoadFixturesFile(ctx context.Context, factory uow.UoWFactory, path string, logger *slog.Logger) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if logger != nil {
				logger.Info("fixtures file not found, skipping", "path", path)
			}
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fx Fixtures
	if err := json.Unmarshal(data, &fx); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	return LoadFixtures(ctx, factory, fx, time.Now().UTC(), logger)
}

func LoadFixtures(ctx context.Context, factory uow.UoWFactory, fx Fixtures, now time.Time, logger *slog.Logger) error {
	return uow.Run(ctx, factory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		for _, rf := range fx.Rooms {
			room, err := rf.build()
			if err != nil {
				return fmt.Errorf("room fixture %q: %w", rf.ID, err)
			}
			if _, err := unit.Rooms().ByID(ctx, room.ID); err == nil {
				continue
			} else if !errors.Is(err, domainrooms.ErrRoomNotFound) {
				return err
			}
			if err := unit.Rooms().Save(ctx, room); err != nil {
				return err
			}
			if logger != nil {
				logger.Info("room fixture imported", "room_id", room.ID)
			}
		}
		for _, pf := range fx.Promotions {
			promo, err := pf.build(now)
			if err != nil {
				return fmt.Errorf("promotion fixture %q: %w", pf.Code, err)
			}
			if _, err := unit.Promotions().ByCode(ctx, promo.Code); err == nil {
				continue
			} else if !errors.Is(err, domainpromotion.ErrPromotionNotFound) {
				return err
			}
			if err := unit.Promotions().Save(ctx, promo); err != nil {
				return err
			}
			if logger != nil {
				logger.Info("promotion fixture imported", "code", promo.Code)
			}
		}
		return nil
	})
}

func (f RoomFixture) build() (*domainrooms.Room, error) {
	currency := f.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	rate, err := money.Parse(f.NightlyRate, currency)
	if err != nil {
		return nil, err
	}
	return domainrooms.NewRoom(domainrooms.CreateParams{
		ID:          domainrooms.RoomID(f.ID),
		Number:      f.Number,
		Type:        domainrooms.RoomType(f.Type),
		NightlyRate: rate,
		Capacity:    f.Capacity,
	})
}

func (f PromotionFixture) build(now time.Time) (*domainpromotion.Promotion, error) {
	value, err := decimal.NewFromString(f.Value)
	if err != nil {
		return nil, err
	}
	minimum := decimal.Zero
	if f.MinimumAmount != "" {
		if minimum, err = decimal.NewFromString(f.MinimumAmount); err != nil {
			return nil, err
		}
	}
	var maxDiscount *decimal.Decimal
	if f.MaximumDiscount != nil {
		v, err := decimal.NewFromString(*f.MaximumDiscount)
		if err != nil {
			return nil, err
		}
		maxDiscount = &v
	}
	startsAt, err := parseFixtureTime(f.StartsAt, now.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	endsAt, err := parseFixtureTime(f.EndsAt, now.AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}
	active := true
	if f.Active != nil {
		active = *f.Active
	}
	id := f.ID
	if id == "" {
		id = "promo-" + strings.ToLower(domainpromotion.NormalizeCode(f.Code))
	}
	return domainpromotion.New(domainpromotion.CreateParams{
		ID:              id,
		Code:            f.Code,
		Title:           f.Title,
		Description:     f.Description,
		Kind:            domainpromotion.Kind(strings.ToUpper(f.Kind)),
		Value:           value,
		MinimumAmount:   minimum,
		MaximumDiscount: maxDiscount,
		StartsAt:        startsAt,
		EndsAt:          endsAt,
		UsageLimit:      f.UsageLimit,
		OncePerCustomer: f.OncePerCustomer,
		Active:          active,
		CreatedAt:       now,
	})
}

func parseFixtureTime(value string, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339, value)
}
