package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	appoutbox "hotelres/internal/app/outbox"
	"hotelres/internal/app/uow"
	domainavailability "hotelres/internal/domain/availability"
	domainpromotion "hotelres/internal/domain/promotion"
	domainreservation "hotelres/internal/domain/reservation"
	domainrooms "hotelres/internal/domain/rooms"
)

var (
	// ErrUnitClosed is returned by a unit used after Commit or Rollback.
	ErrUnitClosed = errors.New("memory: unit of work already closed")
	// ErrReadOnly is returned when a read-only unit tries to write.
	ErrReadOnly = errors.New("memory: unit of work is read-only")
)

// Store is the committed state. Units buffer their writes and re-check every
// constraint against it under the write lock at commit. Writable units also
// hold a per-room and per-promotion lock from first read until they close, so
// bookings for one room queue instead of failing on a stale calendar version.
type Store struct {
	lockMu sync.Mutex
	locks  map[string]chan struct{}

	mu           sync.RWMutex
	rooms        map[domainrooms.RoomID]*domainrooms.Room
	calendars    map[domainrooms.RoomID]*domainavailability.Calendar
	reservations map[domainreservation.ReservationID]*domainreservation.Reservation
	promotions   map[string]*domainpromotion.Promotion
	usages       []domainpromotion.Usage
	outbox       *Outbox
}

func NewStore() *Store {
	return &Store{
		rooms:        make(map[domainrooms.RoomID]*domainrooms.Room),
		calendars:    make(map[domainrooms.RoomID]*domainavailability.Calendar),
		reservations: make(map[domainreservation.ReservationID]*domainreservation.Reservation),
		promotions:   make(map[string]*domainpromotion.Promotion),
		locks:        make(map[string]chan struct{}),
		outbox:       NewOutbox(),
	}
}

// Outbox returns the store's transactional outbox.
func (s *Store) Outbox() *Outbox {
	return s.outbox
}

func (s *Store) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	return &Unit{
		store:        s,
		readOnly:     opts.ReadOnly,
		rooms:        make(map[domainrooms.RoomID]*domainrooms.Room),
		calendars:    make(map[domainrooms.RoomID]*domainavailability.Calendar),
		reservations: make(map[domainreservation.ReservationID]*domainreservation.Reservation),
		promotions:   make(map[string]*domainpromotion.Promotion),
		base:         make(map[string]int64),
		held:         make(map[string]chan struct{}),
	}, nil
}

func (s *Store) keyLock(key string) chan struct{} {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[key] = l
	}
	return l
}

// Unit buffers writes until Commit. Reads see the unit's own writes first.
type Unit struct {
	store    *Store
	readOnly bool

	mu           sync.Mutex
	closed       bool
	rooms        map[domainrooms.RoomID]*domainrooms.Room
	calendars    map[domainrooms.RoomID]*domainavailability.Calendar
	reservations map[domainreservation.ReservationID]*domainreservation.Reservation
	promotions   map[string]*domainpromotion.Promotion
	usages       []domainpromotion.Usage
	records      []appoutbox.EventRecord
	// base holds the version each aggregate had when this unit first wrote it.
	base map[string]int64
	held map[string]chan struct{}
}

func (u *Unit) Rooms() domainrooms.Repository              { return roomRepo{u} }
func (u *Unit) Calendars() domainavailability.Repository   { return calendarRepo{u} }
func (u *Unit) Reservations() domainreservation.Repository { return reservationRepo{u} }
func (u *Unit) Promotions() domainpromotion.Repository     { return promotionRepo{u} }
func (u *Unit) Usages() domainpromotion.UsageRepository    { return usageRepo{u} }

func (u *Unit) Rollback(context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	defer u.release()
	u.closed = true
	u.rooms, u.calendars, u.reservations, u.promotions = nil, nil, nil, nil
	u.usages, u.records = nil, nil
	return nil
}

func (u *Unit) Commit(context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	defer u.release()
	if u.closed {
		return ErrUnitClosed
	}
	u.closed = true
	if u.readOnly {
		return nil
	}

	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := u.check(); err != nil {
		return err
	}
	for id, room := range u.rooms {
		s.rooms[id] = room
	}
	for id, cal := range u.calendars {
		s.calendars[id] = cal
	}
	for id, res := range u.reservations {
		s.reservations[id] = res
	}
	for code, promo := range u.promotions {
		s.promotions[code] = promo
	}
	s.usages = append(s.usages, u.usages...)
	s.outbox.append(u.records...)
	return nil
}

// check validates the buffered writes against committed state. Caller holds store.mu.
func (u *Unit) check() error {
	s := u.store
	for id := range u.rooms {
		if err := u.checkVersion("room:"+string(id), roomVersion(s.rooms[id])); err != nil {
			return err
		}
	}
	for id := range u.calendars {
		if err := u.checkVersion("calendar:"+string(id), calendarVersion(s.calendars[id])); err != nil {
			return err
		}
	}
	for code, promo := range u.promotions {
		if err := u.checkVersion("promotion:"+code, promotionVersion(s.promotions[code])); err != nil {
			return err
		}
		if promo.UsageLimit != nil && promo.UsageCount > *promo.UsageLimit {
			return domainpromotion.Invalid(domainpromotion.ReasonUsageExhausted)
		}
	}
	for id, res := range u.reservations {
		if err := u.checkVersion("reservation:"+string(id), reservationVersion(s.reservations[id])); err != nil {
			return err
		}
		for otherID, other := range s.reservations {
			if otherID == id {
				continue
			}
			if staged, ok := u.reservations[otherID]; ok {
				other = staged
			}
			if other.Reference == res.Reference {
				return domainreservation.ErrDuplicateReference
			}
			if res.State.Blocking() && other.State.Blocking() && other.RoomID == res.RoomID && other.Range.Overlaps(res.Range) {
				return fmt.Errorf("%w: %w", domainreservation.ErrRoomUnavailable, domainavailability.ErrOverlappingRange)
			}
		}
	}
	for i, usage := range u.usages {
		for _, existing := range append(append([]domainpromotion.Usage(nil), s.usages...), u.usages[:i]...) {
			if existing.PromotionID != usage.PromotionID {
				continue
			}
			if existing.ReservationID == usage.ReservationID {
				return domainreservation.ErrPromoAlreadyApplied
			}
			if usage.OncePerCustomer && existing.CustomerID == usage.CustomerID {
				return domainpromotion.Invalid(domainpromotion.ReasonAlreadyUsedByCustomer)
			}
		}
	}
	return nil
}

// acquire blocks until this unit owns key. Read-only units never lock and a
// unit re-acquiring a key it holds returns at once. Caller holds u.mu.
func (u *Unit) acquire(ctx context.Context, key string) error {
	if u.readOnly {
		return nil
	}
	if u.closed {
		return ErrUnitClosed
	}
	if _, ok := u.held[key]; ok {
		return nil
	}
	l := u.store.keyLock(key)
	select {
	case l <- struct{}{}:
		u.held[key] = l
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (u *Unit) release() {
	for key, l := range u.held {
		<-l
		delete(u.held, key)
	}
}

func (u *Unit) checkVersion(key string, committed int64) error {
	if base, ok := u.base[key]; ok && base != committed {
		return uow.ErrConcurrentUpdate
	}
	return nil
}

// stage records the base version of key on first write and bumps version.
func (u *Unit) stage(key string, version *int64) error {
	if u.closed {
		return ErrUnitClosed
	}
	if u.readOnly {
		return ErrReadOnly
	}
	if _, ok := u.base[key]; !ok {
		u.base[key] = *version
	}
	*version++
	return nil
}

func (u *Unit) addRecord(rec appoutbox.EventRecord) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return ErrUnitClosed
	}
	if u.readOnly {
		return ErrReadOnly
	}
	u.records = append(u.records, rec)
	return nil
}

func roomVersion(r *domainrooms.Room) int64 {
	if r == nil {
		return 0
	}
	return r.Version
}

func calendarVersion(c *domainavailability.Calendar) int64 {
	if c == nil {
		return 0
	}
	return c.Version
}

func promotionVersion(p *domainpromotion.Promotion) int64 {
	if p == nil {
		return 0
	}
	return p.Version
}

func reservationVersion(r *domainreservation.Reservation) int64 {
	if r == nil {
		return 0
	}
	return r.Version
}

var (
	_ uow.UoWFactory = (*Store)(nil)
	_ uow.UnitOfWork = (*Unit)(nil)
)
