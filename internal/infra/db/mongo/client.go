package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	colRooms        = "agg_room"
	colCalendars    = "agg_calendar"
	colReservations = "agg_reservation"
	colPromotions   = "agg_promotion"
	colUsages       = "promotion_usage"
)

type Client struct {
	DB *mongo.Database
}

// New connects to uri. Transactions need a replica set; a standalone server
// fails on the first Begin.
func New(ctx context.Context, uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := m.Ping(ctx, readpref.Primary()); err != nil {
		_ = m.Disconnect(context.Background())
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the unique indexes the repositories rely on for
// reference and promotion-usage constraints.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	models := map[string][]mongo.IndexModel{
		colReservations: {
			{Keys: bson.D{{Key: "reference", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "check_in", Value: 1}}},
			{Keys: bson.D{{Key: "customer_id", Value: 1}}},
		},
		colPromotions: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colUsages: {
			{Keys: bson.D{{Key: "promotion_id", Value: 1}, {Key: "reservation_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("usage_per_reservation")},
			{
				Keys: bson.D{{Key: "promotion_id", Value: 1}, {Key: "customer_id", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetName("usage_once_per_customer").
					SetPartialFilterExpression(bson.M{"once_per_customer": true}),
			},
		},
	}
	for name, idx := range models {
		if _, err := c.DB.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}
