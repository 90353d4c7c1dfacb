package events

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
	"github.com/fxamacker/cbor/v2"
)

// Publisher sends welcome notifications over NATS.
type Publisher struct {
	nc      conn
	subject string
}

func NewPublisher(nc conn, subject string) *Publisher {
	return &Publisher{nc: nc, subject: subject}
}

// SendWelcome publishes a WelcomeMessage for user.
func (p *Publisher) SendWelcome(_ context.Context, user *models.User) error {
	data, err := cbor.Marshal(models.WelcomeMessage{UserID: user.ID, Email: user.Email, UserName: user.UserName})
	if err != nil {
		return fmt.Errorf("encode welcome: %w", err)
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish welcome: %w", err)
	}
	return nil
}

// NopNotifier drops notifications. Used when no broker is configured.
type NopNotifier struct{}

func (NopNotifier) SendWelcome(context.Context, *models.User) error { return nil }
