package direct

import (
	"context"
	"errors"
	"testing"
)

type recorder struct {
	got [][]byte
	err error
}

func (r *recorder) Handle(_ context.Context, payload []byte) error {
	r.got = append(r.got, payload)
	return r.err
}

func TestPublishRoutesByTopic(t *testing.T) {
	reservations := &recorder{}
	all := &recorder{}
	pub := &Publisher{}
	pub.Subscribe("reservation.events.v1", reservations)
	pub.Subscribe("", all)

	if err := pub.Publish(context.Background(), "reservation.events.v1", "r1", []byte("a"), nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := pub.Publish(context.Background(), "promotion.events.v1", "p1", []byte("b"), nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(reservations.got) != 1 || string(reservations.got[0]) != "a" {
		t.Fatalf("reservation handler got %q", reservations.got)
	}
	if len(all.got) != 2 {
		t.Fatalf("wildcard handler got %d payloads", len(all.got))
	}
}

func TestPublishJoinsHandlerErrors(t *testing.T) {
	boom := errors.New("smtp down")
	pub := &Publisher{}
	pub.Subscribe("", &recorder{err: boom})
	pub.Subscribe("", &recorder{})
	if err := pub.Publish(context.Background(), "reservation.events.v1", "r1", nil, nil); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
