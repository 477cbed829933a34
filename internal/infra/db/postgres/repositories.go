package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hotelres/internal/app/uow"
	domainavailability "hotelres/internal/domain/availability"
	domainpricing "hotelres/internal/domain/pricing"
	domainpromotion "hotelres/internal/domain/promotion"
	domainreservation "hotelres/internal/domain/reservation"
	domainrooms "hotelres/internal/domain/rooms"
	"hotelres/internal/domain/shared/daterange"
	"hotelres/internal/domain/shared/money"
)

// Amounts cross the wire as text so NUMERIC keeps exact cents without a
// decimal codec.

func parseMoney(amount, currency string) (money.Money, error) {
	v, err := decimal.NewFromString(amount)
	if err != nil {
		return money.Money{}, fmt.Errorf("postgres: bad amount %q: %w", amount, err)
	}
	return money.Money{Amount: v, Currency: strings.TrimSpace(currency)}, nil
}

type roomRepository struct {
	tx pgx.Tx
}

const roomColumns = `id, number, type, nightly_rate::text, currency, capacity, status, version`

func scanRoom(row pgx.Row) (*domainrooms.Room, error) {
	var (
		r               domainrooms.Room
		id, typ, status string
		rate, currency  string
	)
	if err := row.Scan(&id, &r.Number, &typ, &rate, &currency, &r.Capacity, &status, &r.Version); err != nil {
		return nil, err
	}
	nightly, err := parseMoney(rate, currency)
	if err != nil {
		return nil, err
	}
	r.ID = domainrooms.RoomID(id)
	r.Type = domainrooms.RoomType(typ)
	r.Status = domainrooms.Status(status)
	r.NightlyRate = nightly
	return &r, nil
}

func (r roomRepository) ByID(ctx context.Context, id domainrooms.RoomID) (*domainrooms.Room, error) {
	room, err := scanRoom(r.tx.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainrooms.ErrRoomNotFound
	}
	return room, translate(err)
}

func (r roomRepository) List(ctx context.Context) ([]*domainrooms.Room, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY number`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []*domainrooms.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, rows.Err()
}

func (r roomRepository) Save(ctx context.Context, room *domainrooms.Room) error {
	tag, err := r.tx.Exec(ctx, `
		INSERT INTO rooms (id, number, type, nightly_rate, currency, capacity, status, version)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			number = EXCLUDED.number,
			type = EXCLUDED.type,
			nightly_rate = EXCLUDED.nightly_rate,
			currency = EXCLUDED.currency,
			capacity = EXCLUDED.capacity,
			status = EXCLUDED.status,
			version = EXCLUDED.version
		WHERE rooms.version = $9`,
		string(room.ID), room.Number, string(room.Type), room.NightlyRate.Amount.String(), room.NightlyRate.Currency,
		room.Capacity, string(room.Status), room.Version+1, room.Version,
	)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return uow.ErrConcurrentUpdate
	}
	room.Version++
	return nil
}

type calendarRepository struct {
	tx   pgx.Tx
	lock bool
}

const lockRoomSQL = `SELECT id FROM rooms WHERE id = $1 FOR UPDATE`

type blockRow struct {
	CheckIn   time.Time `json:"check_in"`
	CheckOut  time.Time `json:"check_out"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}

func (r calendarRepository) Calendar(ctx context.Context, id domainrooms.RoomID) (*domainavailability.Calendar, error) {
	var (
		raw     []byte
		version int64
	)
	if r.lock {
		if _, err := r.tx.Exec(ctx, lockRoomSQL, string(id)); err != nil {
			return nil, translate(err)
		}
	}
	err := r.tx.QueryRow(ctx, `SELECT blocks, version FROM room_calendars WHERE room_id = $1`, string(id)).Scan(&raw, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domainavailability.NewCalendar(id), nil
	}
	if err != nil {
		return nil, translate(err)
	}
	var rows []blockRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("postgres: decode calendar %s: %w", id, err)
	}
	cal := domainavailability.NewCalendar(id)
	cal.Version = version
	for _, b := range rows {
		cal.Blocks = append(cal.Blocks, domainavailability.Block{
			Range:     daterange.DateRange{CheckIn: b.CheckIn.UTC(), CheckOut: b.CheckOut.UTC()},
			Reference: b.Reference,
			CreatedAt: b.CreatedAt.UTC(),
		})
	}
	return cal, nil
}

func (r calendarRepository) Save(ctx context.Context, cal *domainavailability.Calendar) error {
	rows := make([]blockRow, 0, len(cal.Blocks))
	for _, b := range cal.Blocks {
		rows = append(rows, blockRow{CheckIn: b.Range.CheckIn, CheckOut: b.Range.CheckOut, Reference: b.Reference, CreatedAt: b.CreatedAt})
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	tag, err := r.tx.Exec(ctx, `
		INSERT INTO room_calendars (room_id, blocks, version) VALUES ($1, $2, $3)
		ON CONFLICT (room_id) DO UPDATE SET blocks = EXCLUDED.blocks, version = EXCLUDED.version
		WHERE room_calendars.version = $4`,
		string(cal.RoomID), raw, cal.Version+1, cal.Version,
	)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return uow.ErrConcurrentUpdate
	}
	cal.Version++
	return nil
}

type reservationRepository struct {
	tx pgx.Tx
}

type priceRow struct {
	Nights        int    `json:"nights"`
	Nightly       string `json:"nightly"`
	Subtotal      string `json:"subtotal"`
	ServiceCharge string `json:"service_charge"`
	Tax           string `json:"tax"`
	Total         string `json:"total"`
	Currency      string `json:"currency"`
}

func newPriceRow(b domainpricing.Breakdown) priceRow {
	return priceRow{
		Nights:        b.Nights,
		Nightly:       b.Nightly.Amount.String(),
		Subtotal:      b.Subtotal.Amount.String(),
		ServiceCharge: b.ServiceCharge.Amount.String(),
		Tax:           b.Tax.Amount.String(),
		Total:         b.Total.Amount.String(),
		Currency:      b.Total.Currency,
	}
}

func (p priceRow) breakdown() (domainpricing.Breakdown, error) {
	out := domainpricing.Breakdown{Nights: p.Nights}
	fields := []struct {
		raw string
		dst *money.Money
	}{
		{p.Nightly, &out.Nightly},
		{p.Subtotal, &out.Subtotal},
		{p.ServiceCharge, &out.ServiceCharge},
		{p.Tax, &out.Tax},
		{p.Total, &out.Total},
	}
	for _, f := range fields {
		m, err := parseMoney(f.raw, p.Currency)
		if err != nil {
			return domainpricing.Breakdown{}, err
		}
		*f.dst = m
	}
	return out, nil
}

const reservationColumns = `id, reference, room_id, customer_id, contact_email, check_in, check_out, guests, price,
	promo_code, original_amount::text, discount_amount::text, total_amount::text, currency, state, payment_status,
	special_requests, customer_notes, admin_notes, cancellation_reason,
	created_at, updated_at, cancelled_at, checked_in_at, checked_out_at, version`

func scanReservation(row pgx.Row) (*domainreservation.Reservation, error) {
	var (
		r                                   domainreservation.Reservation
		id, roomID, state, payment          string
		checkIn, checkOut                   time.Time
		priceRaw                            []byte
		original, discount, total, currency string
	)
	err := row.Scan(
		&id, &r.Reference, &roomID, &r.CustomerID, &r.ContactEmail, &checkIn, &checkOut, &r.Guests, &priceRaw,
		&r.PromoCode, &original, &discount, &total, &currency, &state, &payment,
		&r.Notes.SpecialRequests, &r.Notes.Customer, &r.Notes.Admin, &r.CancellationReason,
		&r.CreatedAt, &r.UpdatedAt, &r.CancelledAt, &r.CheckedInAt, &r.CheckedOutAt, &r.Version,
	)
	if err != nil {
		return nil, err
	}
	var price priceRow
	if err := json.Unmarshal(priceRaw, &price); err != nil {
		return nil, fmt.Errorf("postgres: decode price of %s: %w", id, err)
	}
	if r.Price, err = price.breakdown(); err != nil {
		return nil, err
	}
	if r.Original, err = parseMoney(original, currency); err != nil {
		return nil, err
	}
	if r.Discount, err = parseMoney(discount, currency); err != nil {
		return nil, err
	}
	if r.Total, err = parseMoney(total, currency); err != nil {
		return nil, err
	}
	r.ID = domainreservation.ReservationID(id)
	r.RoomID = domainrooms.RoomID(roomID)
	r.Range = daterange.DateRange{CheckIn: daterange.Day(checkIn), CheckOut: daterange.Day(checkOut)}
	r.State = domainreservation.State(state)
	r.PaymentStatus = domainreservation.PaymentStatus(payment)
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

func (r reservationRepository) ByID(ctx context.Context, id domainreservation.ReservationID) (*domainreservation.Reservation, error) {
	return r.one(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, string(id))
}

func (r reservationRepository) ByReference(ctx context.Context, reference string) (*domainreservation.Reservation, error) {
	return r.one(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE reference = $1`, reference)
}

func (r reservationRepository) one(ctx context.Context, sql string, arg any) (*domainreservation.Reservation, error) {
	res, err := scanReservation(r.tx.QueryRow(ctx, sql, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainreservation.ErrReservationNotFound
	}
	return res, translate(err)
}

func (r reservationRepository) List(ctx context.Context, filter domainreservation.Filter) ([]*domainreservation.Reservation, error) {
	where, args := reservationWhere(filter)
	rows, err := r.tx.Query(ctx, `SELECT `+reservationColumns+` FROM reservations`+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []*domainreservation.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// reservationWhere renders f as a WHERE clause with positional arguments.
func reservationWhere(f domainreservation.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.CustomerID != "" {
		add("customer_id = $%d", f.CustomerID)
	}
	if f.RoomID != "" {
		add("room_id = $%d", string(f.RoomID))
	}
	if len(f.States) > 0 {
		states := make([]string, 0, len(f.States))
		for _, s := range f.States {
			states = append(states, string(s))
		}
		add("state = ANY($%d)", states)
	}
	if !f.CheckInOn.IsZero() {
		add("check_in = $%d", daterange.Day(f.CheckInOn))
	}
	if !f.CheckOutOn.IsZero() {
		add("check_out = $%d", daterange.Day(f.CheckOutOn))
	}
	if !f.CheckInBefore.IsZero() {
		add("check_in < $%d", f.CheckInBefore)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r reservationRepository) Save(ctx context.Context, res *domainreservation.Reservation) error {
	price, err := json.Marshal(newPriceRow(res.Price))
	if err != nil {
		return err
	}
	tag, err := r.tx.Exec(ctx, `
		INSERT INTO reservations (`+strings.ReplaceAll(reservationColumns, "::text", "")+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::numeric, $12::numeric, $13::numeric, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
		ON CONFLICT (id) DO UPDATE SET
			contact_email = EXCLUDED.contact_email,
			guests = EXCLUDED.guests,
			price = EXCLUDED.price,
			promo_code = EXCLUDED.promo_code,
			original_amount = EXCLUDED.original_amount,
			discount_amount = EXCLUDED.discount_amount,
			total_amount = EXCLUDED.total_amount,
			state = EXCLUDED.state,
			payment_status = EXCLUDED.payment_status,
			special_requests = EXCLUDED.special_requests,
			customer_notes = EXCLUDED.customer_notes,
			admin_notes = EXCLUDED.admin_notes,
			cancellation_reason = EXCLUDED.cancellation_reason,
			updated_at = EXCLUDED.updated_at,
			cancelled_at = EXCLUDED.cancelled_at,
			checked_in_at = EXCLUDED.checked_in_at,
			checked_out_at = EXCLUDED.checked_out_at,
			version = EXCLUDED.version
		WHERE reservations.version = $27`,
		string(res.ID), res.Reference, string(res.RoomID), res.CustomerID, res.ContactEmail,
		res.Range.CheckIn, res.Range.CheckOut, res.Guests, price,
		res.PromoCode, res.Original.Amount.String(), res.Discount.Amount.String(), res.Total.Amount.String(), res.Total.Currency,
		string(res.State), string(res.PaymentStatus),
		res.Notes.SpecialRequests, res.Notes.Customer, res.Notes.Admin, res.CancellationReason,
		res.CreatedAt, res.UpdatedAt, res.CancelledAt, res.CheckedInAt, res.CheckedOutAt, res.Version+1,
		res.Version,
	)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return uow.ErrConcurrentUpdate
	}
	res.Version++
	return nil
}

type promotionRepository struct {
	tx   pgx.Tx
	lock bool
}

func promotionByCodeSQL(lock bool) string {
	q := `SELECT ` + promotionColumns + ` FROM promotions WHERE code = $1`
	if lock {
		q += ` FOR UPDATE`
	}
	return q
}

const promotionColumns = `id, code, title, description, kind, value::text, minimum_amount::text, maximum_discount::text,
	starts_at, ends_at, usage_limit, usage_count, active, once_per_customer, created_at, updated_at, version`

func scanPromotion(row pgx.Row) (*domainpromotion.Promotion, error) {
	var (
		p              domainpromotion.Promotion
		kind           string
		value, minimum string
		maximum        *string
	)
	err := row.Scan(&p.ID, &p.Code, &p.Title, &p.Description, &kind, &value, &minimum, &maximum,
		&p.StartsAt, &p.EndsAt, &p.UsageLimit, &p.UsageCount, &p.Active, &p.OncePerCustomer,
		&p.CreatedAt, &p.UpdatedAt, &p.Version)
	if err != nil {
		return nil, err
	}
	p.Kind = domainpromotion.Kind(kind)
	if p.Value, err = decimal.NewFromString(value); err != nil {
		return nil, err
	}
	if p.MinimumAmount, err = decimal.NewFromString(minimum); err != nil {
		return nil, err
	}
	if maximum != nil {
		v, err := decimal.NewFromString(*maximum)
		if err != nil {
			return nil, err
		}
		p.MaximumDiscount = &v
	}
	p.StartsAt, p.EndsAt = p.StartsAt.UTC(), p.EndsAt.UTC()
	p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
	return &p, nil
}

func (r promotionRepository) ByCode(ctx context.Context, code string) (*domainpromotion.Promotion, error) {
	promo, err := scanPromotion(r.tx.QueryRow(ctx, promotionByCodeSQL(r.lock), domainpromotion.NormalizeCode(code)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainpromotion.ErrPromotionNotFound
	}
	return promo, translate(err)
}

func (r promotionRepository) List(ctx context.Context) ([]*domainpromotion.Promotion, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+promotionColumns+` FROM promotions ORDER BY code`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []*domainpromotion.Promotion
	for rows.Next() {
		promo, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, promo)
	}
	return out, rows.Err()
}

func (r promotionRepository) Save(ctx context.Context, promo *domainpromotion.Promotion) error {
	var maximum *string
	if promo.MaximumDiscount != nil {
		v := promo.MaximumDiscount.String()
		maximum = &v
	}
	tag, err := r.tx.Exec(ctx, `
		INSERT INTO promotions (`+strings.ReplaceAll(promotionColumns, "::text", "")+`)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			value = EXCLUDED.value,
			minimum_amount = EXCLUDED.minimum_amount,
			maximum_discount = EXCLUDED.maximum_discount,
			starts_at = EXCLUDED.starts_at,
			ends_at = EXCLUDED.ends_at,
			usage_limit = EXCLUDED.usage_limit,
			usage_count = EXCLUDED.usage_count,
			active = EXCLUDED.active,
			once_per_customer = EXCLUDED.once_per_customer,
			updated_at = EXCLUDED.updated_at,
			version = EXCLUDED.version
		WHERE promotions.version = $18`,
		promo.ID, promo.Code, promo.Title, promo.Description, string(promo.Kind),
		promo.Value.String(), promo.MinimumAmount.String(), maximum,
		promo.StartsAt, promo.EndsAt, promo.UsageLimit, promo.UsageCount, promo.Active, promo.OncePerCustomer,
		promo.CreatedAt, promo.UpdatedAt, promo.Version+1,
		promo.Version,
	)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return uow.ErrConcurrentUpdate
	}
	promo.Version++
	return nil
}

type usageRepository struct {
	tx pgx.Tx
}

func (r usageRepository) Add(ctx context.Context, u domainpromotion.Usage) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO promotion_usages
			(id, promotion_id, code, reservation_id, customer_id, discount_amount, currency, once_per_customer, used_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9)`,
		u.ID, u.PromotionID, u.Code, u.ReservationID, u.CustomerID,
		u.DiscountApplied.Amount.String(), u.DiscountApplied.Currency, u.OncePerCustomer, u.UsedAt,
	)
	return translate(err)
}

func (r usageRepository) ExistsForCustomer(ctx context.Context, promotionID, customerID string) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM promotion_usages WHERE promotion_id = $1 AND customer_id = $2)`,
		promotionID, customerID,
	).Scan(&exists)
	return exists, translate(err)
}

func (r usageRepository) ByPromotion(ctx context.Context, promotionID string) ([]domainpromotion.Usage, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT id, promotion_id, code, reservation_id, customer_id, discount_amount::text, currency, once_per_customer, used_at
		FROM promotion_usages WHERE promotion_id = $1 ORDER BY used_at, id`, promotionID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	out := make([]domainpromotion.Usage, 0)
	for rows.Next() {
		var (
			u                  domainpromotion.Usage
			discount, currency string
		)
		if err := rows.Scan(&u.ID, &u.PromotionID, &u.Code, &u.ReservationID, &u.CustomerID,
			&discount, &currency, &u.OncePerCustomer, &u.UsedAt); err != nil {
			return nil, err
		}
		if u.DiscountApplied, err = parseMoney(discount, currency); err != nil {
			return nil, err
		}
		u.UsedAt = u.UsedAt.UTC()
		out = append(out, u)
	}
	return out, rows.Err()
}
