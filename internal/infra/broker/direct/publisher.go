// Package direct delivers outbox records to in-process handlers when no broker
// is configured.
package direct

import (
	"context"
	"errors"
	"strings"
)

type MessageHandler interface {
	Handle(ctx context.Context, payload []byte) error
}

// Publisher calls every handler subscribed to the record's topic. An empty
// topic subscribes to everything.
type Publisher struct {
	subs []subscription
}

type subscription struct {
	topic   string
	handler MessageHandler
}

func (p *Publisher) Subscribe(topic string, h MessageHandler) {
	p.subs = append(p.subs, subscription{topic: topic, handler: h})
}

func (p *Publisher) Publish(ctx context.Context, topic string, _ string, payload []byte, _ map[string]string) error {
	var errs []error
	for _, s := range p.subs {
		if s.topic != "" && !strings.EqualFold(s.topic, topic) {
			continue
		}
		if err := s.handler.Handle(ctx, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
