package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestPublishSendsPayload(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"id":"e1"}` {
			return errors.New("unexpected payload " + string(val))
		}
		return nil
	})
	p := &Producer{sync: mock}
	err := p.Publish(context.Background(), "reservation.events.v1", "r1", []byte(`{"id":"e1"}`), map[string]string{"request_id": "req-1"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestPublishReportsBrokerFailure(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)
	p := &Producer{sync: mock}
	err := p.Publish(context.Background(), "reservation.events.v1", "r1", []byte("x"), nil)
	if !errors.Is(err, sarama.ErrNotLeaderForPartition) {
		t.Fatalf("err = %v", err)
	}
	_ = p.Close()
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	p := &Producer{sync: mock}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Publish(ctx, "t", "k", nil, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	_ = p.Close()
}
