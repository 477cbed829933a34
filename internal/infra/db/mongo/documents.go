package mongo

import (
	"time"

	"github.com/shopspring/decimal"

	domainavailability "hotelres/internal/domain/availability"
	domainpricing "hotelres/internal/domain/pricing"
	domainpromotion "hotelres/internal/domain/promotion"
	domainreservation "hotelres/internal/domain/reservation"
	domainrooms "hotelres/internal/domain/rooms"
	"hotelres/internal/domain/shared/daterange"
	"hotelres/internal/domain/shared/money"
)

// Amounts are stored as decimal strings so no precision is lost in BSON doubles.
type moneyDocument struct {
	Amount   string `bson:"amount"`
	Currency string `bson:"currency"`
}

func newMoneyDocument(m money.Money) moneyDocument {
	return moneyDocument{Amount: m.Amount.String(), Currency: m.Currency}
}

func (d moneyDocument) toMoney() (money.Money, error) {
	if d.Amount == "" {
		return money.Zero(d.Currency), nil
	}
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return money.Money{}, err
	}
	return money.Money{Amount: amount, Currency: d.Currency}, nil
}

type roomDocument struct {
	ID          string        `bson:"_id"`
	Number      string        `bson:"number"`
	Type        string        `bson:"type"`
	NightlyRate moneyDocument `bson:"nightly_rate"`
	Capacity    int           `bson:"capacity"`
	Status      string        `bson:"status"`
	Version     int64         `bson:"version"`
}

func newRoomDocument(r *domainrooms.Room) roomDocument {
	return roomDocument{
		ID:          string(r.ID),
		Number:      r.Number,
		Type:        string(r.Type),
		NightlyRate: newMoneyDocument(r.NightlyRate),
		Capacity:    r.Capacity,
		Status:      string(r.Status),
		Version:     r.Version,
	}
}

func (d roomDocument) toAggregate() (*domainrooms.Room, error) {
	rate, err := d.NightlyRate.toMoney()
	if err != nil {
		return nil, err
	}
	return &domainrooms.Room{
		ID:          domainrooms.RoomID(d.ID),
		Number:      d.Number,
		Type:        domainrooms.RoomType(d.Type),
		NightlyRate: rate,
		Capacity:    d.Capacity,
		Status:      domainrooms.Status(d.Status),
		Version:     d.Version,
	}, nil
}

type blockDocument struct {
	CheckIn   time.Time `bson:"check_in"`
	CheckOut  time.Time `bson:"check_out"`
	Reference string    `bson:"reference"`
	CreatedAt time.Time `bson:"created_at"`
}

type calendarDocument struct {
	RoomID  string          `bson:"_id"`
	Blocks  []blockDocument `bson:"blocks"`
	Version int64           `bson:"version"`
}

func newCalendarDocument(c *domainavailability.Calendar) calendarDocument {
	doc := calendarDocument{RoomID: string(c.RoomID), Blocks: make([]blockDocument, 0, len(c.Blocks)), Version: c.Version}
	for _, b := range c.Blocks {
		doc.Blocks = append(doc.Blocks, blockDocument{
			CheckIn:   b.Range.CheckIn,
			CheckOut:  b.Range.CheckOut,
			Reference: b.Reference,
			CreatedAt: b.CreatedAt,
		})
	}
	return doc
}

func (d calendarDocument) toAggregate() *domainavailability.Calendar {
	cal := domainavailability.NewCalendar(domainrooms.RoomID(d.RoomID))
	cal.Version = d.Version
	for _, b := range d.Blocks {
		cal.Blocks = append(cal.Blocks, domainavailability.Block{
			Range:     daterange.DateRange{CheckIn: b.CheckIn.UTC(), CheckOut: b.CheckOut.UTC()},
			Reference: b.Reference,
			CreatedAt: b.CreatedAt.UTC(),
		})
	}
	return cal
}

type breakdownDocument struct {
	Nights        int           `bson:"nights"`
	Nightly       moneyDocument `bson:"nightly"`
	Subtotal      moneyDocument `bson:"subtotal"`
	ServiceCharge moneyDocument `bson:"service_charge"`
	Tax           moneyDocument `bson:"tax"`
	Total         moneyDocument `bson:"total"`
}

type reservationDocument struct {
	ID                 string            `bson:"_id"`
	Reference          string            `bson:"reference"`
	RoomID             string            `bson:"room_id"`
	CustomerID         string            `bson:"customer_id"`
	ContactEmail       string            `bson:"contact_email,omitempty"`
	CheckIn            time.Time         `bson:"check_in"`
	CheckOut           time.Time         `bson:"check_out"`
	Guests             int               `bson:"guests"`
	Price              breakdownDocument `bson:"price"`
	PromoCode          string            `bson:"promo_code,omitempty"`
	Original           moneyDocument     `bson:"original"`
	Discount           moneyDocument     `bson:"discount"`
	Total              moneyDocument     `bson:"total"`
	State              string            `bson:"state"`
	PaymentStatus      string            `bson:"payment_status"`
	SpecialRequests    string            `bson:"special_requests,omitempty"`
	CustomerNotes      string            `bson:"customer_notes,omitempty"`
	AdminNotes         string            `bson:"admin_notes,omitempty"`
	CancellationReason string            `bson:"cancellation_reason,omitempty"`
	CreatedAt          time.Time         `bson:"created_at"`
	UpdatedAt          time.Time         `bson:"updated_at"`
	CancelledAt        *time.Time        `bson:"cancelled_at,omitempty"`
	CheckedInAt        *time.Time        `bson:"checked_in_at,omitempty"`
	CheckedOutAt       *time.Time        `bson:"checked_out_at,omitempty"`
	Version            int64             `bson:"version"`
}

func newReservationDocument(r *domainreservation.Reservation) reservationDocument {
	return reservationDocument{
		ID:           string(r.ID),
		Reference:    r.Reference,
		RoomID:       string(r.RoomID),
		CustomerID:   r.CustomerID,
		ContactEmail: r.ContactEmail,
		CheckIn:      r.Range.CheckIn,
		CheckOut:     r.Range.CheckOut,
		Guests:       r.Guests,
		Price: breakdownDocument{
			Nights:        r.Price.Nights,
			Nightly:       newMoneyDocument(r.Price.Nightly),
			Subtotal:      newMoneyDocument(r.Price.Subtotal),
			ServiceCharge: newMoneyDocument(r.Price.ServiceCharge),
			Tax:           newMoneyDocument(r.Price.Tax),
			Total:         newMoneyDocument(r.Price.Total),
		},
		PromoCode:          r.PromoCode,
		Original:           newMoneyDocument(r.Original),
		Discount:           newMoneyDocument(r.Discount),
		Total:              newMoneyDocument(r.Total),
		State:              string(r.State),
		PaymentStatus:      string(r.PaymentStatus),
		SpecialRequests:    r.Notes.SpecialRequests,
		CustomerNotes:      r.Notes.Customer,
		AdminNotes:         r.Notes.Admin,
		CancellationReason: r.CancellationReason,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		CancelledAt:        r.CancelledAt,
		CheckedInAt:        r.CheckedInAt,
		CheckedOutAt:       r.CheckedOutAt,
		Version:            r.Version,
	}
}

func (d reservationDocument) toAggregate() (*domainreservation.Reservation, error) {
	amounts := []moneyDocument{
		d.Price.Nightly, d.Price.Subtotal, d.Price.ServiceCharge, d.Price.Tax, d.Price.Total,
		d.Original, d.Discount, d.Total,
	}
	parsed := make([]money.Money, len(amounts))
	for i, m := range amounts {
		v, err := m.toMoney()
		if err != nil {
			return nil, err
		}
		parsed[i] = v
	}
	return &domainreservation.Reservation{
		ID:           domainreservation.ReservationID(d.ID),
		Reference:    d.Reference,
		RoomID:       domainrooms.RoomID(d.RoomID),
		CustomerID:   d.CustomerID,
		ContactEmail: d.ContactEmail,
		Range:        daterange.DateRange{CheckIn: d.CheckIn.UTC(), CheckOut: d.CheckOut.UTC()},
		Guests:       d.Guests,
		Price: domainpricing.Breakdown{
			Nights:        d.Price.Nights,
			Nightly:       parsed[0],
			Subtotal:      parsed[1],
			ServiceCharge: parsed[2],
			Tax:           parsed[3],
			Total:         parsed[4],
		},
		PromoCode:     d.PromoCode,
		Original:      parsed[5],
		Discount:      parsed[6],
		Total:         parsed[7],
		State:         domainreservation.State(d.State),
		PaymentStatus: domainreservation.PaymentStatus(d.PaymentStatus),
		Notes: domainreservation.Notes{
			SpecialRequests: d.SpecialRequests,
			Customer:        d.CustomerNotes,
			Admin:           d.AdminNotes,
		},
		CancellationReason: d.CancellationReason,
		CreatedAt:          d.CreatedAt.UTC(),
		UpdatedAt:          d.UpdatedAt.UTC(),
		CancelledAt:        utcPtr(d.CancelledAt),
		CheckedInAt:        utcPtr(d.CheckedInAt),
		CheckedOutAt:       utcPtr(d.CheckedOutAt),
		Version:            d.Version,
	}, nil
}

type promotionDocument struct {
	ID              string    `bson:"_id"`
	Code            string    `bson:"code"`
	Title           string    `bson:"title"`
	Description     string    `bson:"description,omitempty"`
	Kind            string    `bson:"kind"`
	Value           string    `bson:"value"`
	MinimumAmount   string    `bson:"minimum_amount"`
	MaximumDiscount *string   `bson:"maximum_discount,omitempty"`
	StartsAt        time.Time `bson:"starts_at"`
	EndsAt          time.Time `bson:"ends_at"`
	UsageLimit      *int      `bson:"usage_limit,omitempty"`
	UsageCount      int       `bson:"usage_count"`
	Active          bool      `bson:"active"`
	OncePerCustomer bool      `bson:"once_per_customer"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
	Version         int64     `bson:"version"`
}

func newPromotionDocument(p *domainpromotion.Promotion) promotionDocument {
	doc := promotionDocument{
		ID:              p.ID,
		Code:            p.Code,
		Title:           p.Title,
		Description:     p.Description,
		Kind:            string(p.Kind),
		Value:           p.Value.String(),
		MinimumAmount:   p.MinimumAmount.String(),
		StartsAt:        p.StartsAt,
		EndsAt:          p.EndsAt,
		UsageLimit:      p.UsageLimit,
		UsageCount:      p.UsageCount,
		Active:          p.Active,
		OncePerCustomer: p.OncePerCustomer,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		Version:         p.Version,
	}
	if p.MaximumDiscount != nil {
		v := p.MaximumDiscount.String()
		doc.MaximumDiscount = &v
	}
	return doc
}

func (d promotionDocument) toAggregate() (*domainpromotion.Promotion, error) {
	value, err := decimal.NewFromString(d.Value)
	if err != nil {
		return nil, err
	}
	minimum, err := decimal.NewFromString(d.MinimumAmount)
	if err != nil {
		return nil, err
	}
	var maximum *decimal.Decimal
	if d.MaximumDiscount != nil {
		v, err := decimal.NewFromString(*d.MaximumDiscount)
		if err != nil {
			return nil, err
		}
		maximum = &v
	}
	return &domainpromotion.Promotion{
		ID:              d.ID,
		Code:            d.Code,
		Title:           d.Title,
		Description:     d.Description,
		Kind:            domainpromotion.Kind(d.Kind),
		Value:           value,
		MinimumAmount:   minimum,
		MaximumDiscount: maximum,
		StartsAt:        d.StartsAt.UTC(),
		EndsAt:          d.EndsAt.UTC(),
		UsageLimit:      d.UsageLimit,
		UsageCount:      d.UsageCount,
		Active:          d.Active,
		OncePerCustomer: d.OncePerCustomer,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
		Version:         d.Version,
	}, nil
}

type usageDocument struct {
	ID              string        `bson:"_id"`
	PromotionID     string        `bson:"promotion_id"`
	Code            string        `bson:"code"`
	ReservationID   string        `bson:"reservation_id"`
	CustomerID      string        `bson:"customer_id"`
	DiscountApplied moneyDocument `bson:"discount_applied"`
	OncePerCustomer bool          `bson:"once_per_customer"`
	UsedAt          time.Time     `bson:"used_at"`
}

func newUsageDocument(u domainpromotion.Usage) usageDocument {
	return usageDocument{
		ID:              u.ID,
		PromotionID:     u.PromotionID,
		Code:            u.Code,
		ReservationID:   u.ReservationID,
		CustomerID:      u.CustomerID,
		DiscountApplied: newMoneyDocument(u.DiscountApplied),
		OncePerCustomer: u.OncePerCustomer,
		UsedAt:          u.UsedAt,
	}
}

func (d usageDocument) toUsage() (domainpromotion.Usage, error) {
	discount, err := d.DiscountApplied.toMoney()
	if err != nil {
		return domainpromotion.Usage{}, err
	}
	return domainpromotion.Usage{
		ID:              d.ID,
		PromotionID:     d.PromotionID,
		Code:            d.Code,
		ReservationID:   d.ReservationID,
		CustomerID:      d.CustomerID,
		DiscountApplied: discount,
		OncePerCustomer: d.OncePerCustomer,
		UsedAt:          d.UsedAt.UTC(),
	}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
