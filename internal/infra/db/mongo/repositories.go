package mongo

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hotelres/internal/app/uow"
	domainavailability "hotelres/internal/domain/availability"
	domainpromotion "hotelres/internal/domain/promotion"
	domainreservation "hotelres/internal/domain/reservation"
	domainrooms "hotelres/internal/domain/rooms"
	"hotelres/internal/domain/shared/daterange"
)

// saveVersioned upserts doc guarded by the expected version. A stale version
// either matches nothing or collides with the existing _id on upsert.
func saveVersioned(ctx context.Context, col *mongo.Collection, id string, expected int64, doc any) error {
	filter := bson.M{"_id": id, "version": expected}
	res, err := col.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), "_id_") {
			return uow.ErrConcurrentUpdate
		}
		return translate(err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return uow.ErrConcurrentUpdate
	}
	return nil
}

type roomRepository struct {
	col *mongo.Collection
}

func (r roomRepository) ByID(ctx context.Context, id domainrooms.RoomID) (*domainrooms.Room, error) {
	var doc roomDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainrooms.ErrRoomNotFound
		}
		return nil, translate(err)
	}
	return doc.toAggregate()
}

func (r roomRepository) List(ctx context.Context) ([]*domainrooms.Room, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "number", Value: 1}}))
	if err != nil {
		return nil, translate(err)
	}
	defer cur.Close(ctx)
	var out []*domainrooms.Room
	for cur.Next(ctx) {
		var doc roomDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		room, err := doc.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, cur.Err()
}

func (r roomRepository) Save(ctx context.Context, room *domainrooms.Room) error {
	doc := newRoomDocument(room)
	doc.Version = room.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, room.Version, doc); err != nil {
		return err
	}
	room.Version = doc.Version
	return nil
}

type calendarRepository struct {
	col *mongo.Collection
}

func (r calendarRepository) Calendar(ctx context.Context, id domainrooms.RoomID) (*domainavailability.Calendar, error) {
	var doc calendarDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domainavailability.NewCalendar(id), nil
		}
		return nil, translate(err)
	}
	return doc.toAggregate(), nil
}

// Save bumps the calendar version. Every booking of a room writes its calendar,
// so concurrent bookings of one room conflict here.
func (r calendarRepository) Save(ctx context.Context, cal *domainavailability.Calendar) error {
	doc := newCalendarDocument(cal)
	doc.Version = cal.Version + 1
	if err := saveVersioned(ctx, r.col, doc.RoomID, cal.Version, doc); err != nil {
		return err
	}
	cal.Version = doc.Version
	return nil
}

type reservationRepository struct {
	col *mongo.Collection
}

func (r reservationRepository) ByID(ctx context.Context, id domainreservation.ReservationID) (*domainreservation.Reservation, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r reservationRepository) ByReference(ctx context.Context, reference string) (*domainreservation.Reservation, error) {
	return r.findOne(ctx, bson.M{"reference": reference})
}

func (r reservationRepository) findOne(ctx context.Context, filter bson.M) (*domainreservation.Reservation, error) {
	var doc reservationDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainreservation.ErrReservationNotFound
		}
		return nil, translate(err)
	}
	return doc.toAggregate()
}

func (r reservationRepository) List(ctx context.Context, filter domainreservation.Filter) ([]*domainreservation.Reservation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.col.Find(ctx, reservationFilter(filter), opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cur.Close(ctx)
	var out []*domainreservation.Reservation
	for cur.Next(ctx) {
		var doc reservationDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		res, err := doc.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, cur.Err()
}

func reservationFilter(f domainreservation.Filter) bson.M {
	q := bson.M{}
	if f.CustomerID != "" {
		q["customer_id"] = f.CustomerID
	}
	if f.RoomID != "" {
		q["room_id"] = string(f.RoomID)
	}
	if len(f.States) > 0 {
		states := make([]string, 0, len(f.States))
		for _, s := range f.States {
			states = append(states, string(s))
		}
		q["state"] = bson.M{"$in": states}
	}
	checkIn := bson.M{}
	if !f.CheckInOn.IsZero() {
		checkIn["$eq"] = daterange.Day(f.CheckInOn)
	}
	if !f.CheckInBefore.IsZero() {
		checkIn["$lt"] = f.CheckInBefore
	}
	if len(checkIn) > 0 {
		q["check_in"] = checkIn
	}
	if !f.CheckOutOn.IsZero() {
		q["check_out"] = daterange.Day(f.CheckOutOn)
	}
	return q
}

func (r reservationRepository) Save(ctx context.Context, res *domainreservation.Reservation) error {
	doc := newReservationDocument(res)
	doc.Version = res.Version + 1
	err := saveVersioned(ctx, r.col, doc.ID, res.Version, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), "reference") {
			return domainreservation.ErrDuplicateReference
		}
		return err
	}
	res.Version = doc.Version
	return nil
}

type promotionRepository struct {
	col *mongo.Collection
}

func (r promotionRepository) ByCode(ctx context.Context, code string) (*domainpromotion.Promotion, error) {
	var doc promotionDocument
	if err := r.col.FindOne(ctx, bson.M{"code": domainpromotion.NormalizeCode(code)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainpromotion.ErrPromotionNotFound
		}
		return nil, translate(err)
	}
	return doc.toAggregate()
}

func (r promotionRepository) List(ctx context.Context) ([]*domainpromotion.Promotion, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "code", Value: 1}}))
	if err != nil {
		return nil, translate(err)
	}
	defer cur.Close(ctx)
	var out []*domainpromotion.Promotion
	for cur.Next(ctx) {
		var doc promotionDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		promo, err := doc.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, promo)
	}
	return out, cur.Err()
}

// Save guards usage_count with the version, so two redemptions racing for the
// last slot cannot both commit.
func (r promotionRepository) Save(ctx context.Context, promo *domainpromotion.Promotion) error {
	doc := newPromotionDocument(promo)
	doc.Version = promo.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, promo.Version, doc); err != nil {
		return err
	}
	promo.Version = doc.Version
	return nil
}

type usageRepository struct {
	col *mongo.Collection
}

func (r usageRepository) Add(ctx context.Context, usage domainpromotion.Usage) error {
	_, err := r.col.InsertOne(ctx, newUsageDocument(usage))
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		switch {
		case strings.Contains(err.Error(), "usage_once_per_customer"):
			return domainpromotion.Invalid(domainpromotion.ReasonAlreadyUsedByCustomer)
		case strings.Contains(err.Error(), "usage_per_reservation"):
			return domainreservation.ErrPromoAlreadyApplied
		}
	}
	return translate(err)
}

func (r usageRepository) ExistsForCustomer(ctx context.Context, promotionID, customerID string) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"promotion_id": promotionID, "customer_id": customerID}, options.Count().SetLimit(1))
	if err != nil {
		return false, translate(err)
	}
	return n > 0, nil
}

func (r usageRepository) ByPromotion(ctx context.Context, promotionID string) ([]domainpromotion.Usage, error) {
	cur, err := r.col.Find(ctx, bson.M{"promotion_id": promotionID}, options.Find().SetSort(bson.D{{Key: "used_at", Value: 1}}))
	if err != nil {
		return nil, translate(err)
	}
	defer cur.Close(ctx)
	out := make([]domainpromotion.Usage, 0)
	for cur.Next(ctx) {
		var doc usageDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		usage, err := doc.toUsage()
		if err != nil {
			return nil, err
		}
		out = append(out, usage)
	}
	return out, cur.Err()
}
