package memory

import (
	"context"
	"sort"

	domainavailability "hotelres/internal/domain/availability"
	domainpromotion "hotelres/internal/domain/promotion"
	domainreservation "hotelres/internal/domain/reservation"
	domainrooms "hotelres/internal/domain/rooms"
)

// Repositories hand out clones so callers never mutate committed state.

type roomRepo struct{ u *Unit }

func (r roomRepo) ByID(_ context.Context, id domainrooms.RoomID) (*domainrooms.Room, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if room, ok := r.u.rooms[id]; ok {
		return room.Clone(), nil
	}
	s := r.u.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, domainrooms.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (r roomRepo) List(context.Context) ([]*domainrooms.Room, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	s := r.u.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domainrooms.Room, 0, len(s.rooms))
	for id, room := range s.rooms {
		if staged, ok := r.u.rooms[id]; ok {
			room = staged
		}
		out = append(out, room.Clone())
	}
	for id, room := range r.u.rooms {
		if _, ok := s.rooms[id]; !ok {
			out = append(out, room.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r roomRepo) Save(_ context.Context, room *domainrooms.Room) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if err := r.u.stage("room:"+string(room.ID), &room.Version); err != nil {
		return err
	}
	r.u.rooms[room.ID] = room.Clone()
	return nil
}

type calendarRepo struct{ u *Unit }

func (r calendarRepo) Calendar(ctx context.Context, id domainrooms.RoomID) (*domainavailability.Calendar, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if err := r.u.acquire(ctx, "calendar:"+string(id)); err != nil {
		return nil, err
	}
	if cal, ok := r.u.calendars[id]; ok {
		return cal.Clone(), nil
	}
	s := r.u.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cal, ok := s.calendars[id]; ok {
		return cal.Clone(), nil
	}
	return domainavailability.NewCalendar(id), nil
}

func (r calendarRepo) Save(ctx context.Context, cal *domainavailability.Calendar) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if err := r.u.acquire(ctx, "calendar:"+string(cal.RoomID)); err != nil {
		return err
	}
	if err := r.u.stage("calendar:"+string(cal.RoomID), &cal.Version); err != nil {
		return err
	}
	r.u.calendars[cal.RoomID] = cal.Clone()
	return nil
}

type reservationRepo struct{ u *Unit }

func (r reservationRepo) ByID(_ context.Context, id domainreservation.ReservationID) (*domainreservation.Reservation, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if res, ok := r.u.reservations[id]; ok {
		return res.Clone(), nil
	}
	s := r.u.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.reservations[id]
	if !ok {
		return nil, domainreservation.ErrReservationNotFound
	}
	return res.Clone(), nil
}

func (r reservationRepo) ByReference(ctx context.Context, reference string) (*domainreservation.Reservation, error) {
	all, err := r.all()
	if err != nil {
		return nil, err
	}
	for _, res := range all {
		if res.Reference == reference {
			return res, nil
		}
	}
	return nil, domainreservation.ErrReservationNotFound
}

func (r reservationRepo) List(ctx context.Context, filter domainreservation.Filter) ([]*domainreservation.Reservation, error) {
	all, err := r.all()
	if err != nil {
		return nil, err
	}
	out := make([]*domainreservation.Reservation, 0, len(all))
	for _, res := range all {
		if filter.Matches(res) {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r reservationRepo) all() ([]*domainreservation.Reservation, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	s := r.u.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domainreservation.Reservation, 0, len(s.reservations)+len(r.u.reservations))
	for id, res := range s.reservations {
		if staged, ok := r.u.reservations[id]; ok {
			res = staged
		}
		out = append(out, res.Clone())
	}
	for id, res := range r.u.reservations {
		if _, ok := s.reservations[id]; !ok {
			out = append(out, res.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r reservationRepo) Save(_ context.Context, res *domainreservation.Reservation) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if err := r.u.stage("reservation:"+string(res.ID), &res.Version); err != nil {
		return err
	}
	r.u.reservations[res.ID] = res.Clone()
	return nil
}

type promotionRepo struct{ u *Unit }

func (r promotionRepo) ByCode(ctx context.Context, code string) (*domainpromotion.Promotion, error) {
	code = domainpromotion.NormalizeCode(code)
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if err := r.u.acquire(ctx, "promotion:"+code); err != nil {
		return nil, err
	}
	if promo, ok := r.u.promotions[code]; ok {
		return promo.Clone(), nil
	}
	s := r.u.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	promo, ok := s.promotions[code]
	if !ok {
		return nil, domainpromotion.ErrPromotionNotFound
	}
	return promo.Clone(), nil
}

func (r promotionRepo) List(context.Context) ([]*domainpromotion.Promotion, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	s := r.u.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domainpromotion.Promotion, 0, len(s.promotions))
	for code, promo := range s.promotions {
		if staged, ok := r.u.promotions[code]; ok {
			promo = staged
		}
		out = append(out, promo.Clone())
	}
	for code, promo := range r.u.promotions {
		if _, ok := s.promotions[code]; !ok {
			out = append(out, promo.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r promotionRepo) Save(ctx context.Context, promo *domainpromotion.Promotion) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if err := r.u.acquire(ctx, "promotion:"+promo.Code); err != nil {
		return err
	}
	if err := r.u.stage("promotion:"+promo.Code, &promo.Version); err != nil {
		return err
	}
	r.u.promotions[promo.Code] = promo.Clone()
	return nil
}

type usageRepo struct{ u *Unit }

func (r usageRepo) Add(_ context.Context, usage domainpromotion.Usage) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if r.u.closed {
		return ErrUnitClosed
	}
	if r.u.readOnly {
		return ErrReadOnly
	}
	r.u.usages = append(r.u.usages, usage)
	return nil
}

func (r usageRepo) ExistsForCustomer(_ context.Context, promotionID, customerID string) (bool, error) {
	for _, usage := range r.snapshot() {
		if usage.PromotionID == promotionID && usage.CustomerID == customerID {
			return true, nil
		}
	}
	return false, nil
}

func (r usageRepo) ByPromotion(_ context.Context, promotionID string) ([]domainpromotion.Usage, error) {
	out := make([]domainpromotion.Usage, 0)
	for _, usage := range r.snapshot() {
		if usage.PromotionID == promotionID {
			out = append(out, usage)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UsedAt.Before(out[j].UsedAt) })
	return out, nil
}

func (r usageRepo) snapshot() []domainpromotion.Usage {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	s := r.u.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domainpromotion.Usage, 0, len(s.usages)+len(r.u.usages))
	out = append(out, s.usages...)
	return append(out, r.u.usages...)
}
