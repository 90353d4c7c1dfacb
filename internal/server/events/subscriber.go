package events

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/vaultkeeper/internal/logging"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
	"github.com/fxamacker/cbor/v2"
	"github.com/nats-io/nats.go"
)

// PaymentHandler applies a decoded payment event.
type PaymentHandler interface {
	HandlePaymentEvent(ctx context.Context, ev models.PaymentEvent) error
}

// handleTimeout bounds the work done for a single message.
const handleTimeout = 30 * time.Second

// Subscriber feeds payment events from NATS into a PaymentHandler.
type Subscriber struct {
	nc      conn
	subject string
	handler PaymentHandler
	log     logging.Logger
	sub     *nats.Subscription
}

func NewSubscriber(nc conn, subject string, handler PaymentHandler, log logging.Logger) *Subscriber {
	return &Subscriber{nc: nc, subject: subject, handler: handler, log: log}
}

// Start subscribes to the payment subject. Messages are handled on the
// NATS delivery goroutine, one at a time.
func (s *Subscriber) Start() error {
	sub, err := s.nc.Subscribe(s.subject, s.onMessage)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.subject, err)
	}
	s.sub = sub
	s.log.Info(context.Background(), "subscribed to payment events", "subject", s.subject)
	return nil
}

func (s *Subscriber) onMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if err := s.handle(ctx, msg.Data); err != nil {
		s.log.Error(ctx, "payment event rejected", "subject", msg.Subject, "error", err)
	}
}

func (s *Subscriber) handle(ctx context.Context, data []byte) error {
	var ev models.PaymentEvent
	if err := cbor.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("decode payment event: %w", err)
	}
	return s.handler.HandlePaymentEvent(ctx, ev)
}

// Stop drains the connection so in-flight messages finish.
func (s *Subscriber) Stop() error {
	return s.nc.Drain()
}
