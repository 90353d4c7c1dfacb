package events

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/vaultkeeper/internal/logging"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
	"github.com/fxamacker/cbor/v2"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	published map[string][][]byte
	handlers  map[string]nats.MsgHandler
	pubErr    error
	drained   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{published: map[string][][]byte{}, handlers: map[string]nats.MsgHandler{}}
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.pubErr != nil {
		return f.pubErr
	}
	f.published[subject] = append(f.published[subject], data)
	return nil
}

func (f *fakeConn) Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error) {
	f.handlers[subject] = cb
	return &nats.Subscription{Subject: subject}, nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

type recordingHandler struct {
	got []models.PaymentEvent
	err error
}

func (h *recordingHandler) HandlePaymentEvent(_ context.Context, ev models.PaymentEvent) error {
	h.got = append(h.got, ev)
	return h.err
}

func TestPublisher_SendWelcome(t *testing.T) {
	nc := newFakeConn()
	p := NewPublisher(nc, "notifications.welcome")

	err := p.SendWelcome(context.Background(), &models.User{ID: "u1", Email: "a@example.com", UserName: "alice"})
	require.NoError(t, err)

	require.Len(t, nc.published["notifications.welcome"], 1)
	var msg models.WelcomeMessage
	require.NoError(t, cbor.Unmarshal(nc.published["notifications.welcome"][0], &msg))
	assert.Equal(t, models.WelcomeMessage{UserID: "u1", Email: "a@example.com", UserName: "alice"}, msg)
}

func TestPublisher_PublishError(t *testing.T) {
	nc := newFakeConn()
	nc.pubErr = errors.New("no responders")

	err := NewPublisher(nc, "s").SendWelcome(context.Background(), &models.User{ID: "u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish welcome")
}

func TestNopNotifier(t *testing.T) {
	assert.NoError(t, NopNotifier{}.SendWelcome(context.Background(), &models.User{}))
}

func TestSubscriber_DecodesAndDispatches(t *testing.T) {
	nc := newFakeConn()
	h := &recordingHandler{}
	s := NewSubscriber(nc, "payments.events", h, logging.Nop{})
	require.NoError(t, s.Start())

	ev := models.PaymentEvent{PaymentID: "p1", Status: "approved", UserID: "u1", PurchaseKind: "plan", ProductID: 2}
	data, err := cbor.Marshal(ev)
	require.NoError(t, err)

	nc.handlers["payments.events"](&nats.Msg{Subject: "payments.events", Data: data})

	require.Len(t, h.got, 1)
	assert.Equal(t, ev, h.got[0])
}

func TestSubscriber_BadPayloadIsNotDispatched(t *testing.T) {
	nc := newFakeConn()
	h := &recordingHandler{}
	s := NewSubscriber(nc, "payments.events", h, logging.Nop{})

	err := s.handle(context.Background(), []byte{0xff, 0x00})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode payment event")
	assert.Empty(t, h.got)
}

func TestSubscriber_HandlerErrorIsReturned(t *testing.T) {
	h := &recordingHandler{err: errors.New("unknown product")}
	s := NewSubscriber(newFakeConn(), "x", h, logging.Nop{})

	data, _ := cbor.Marshal(models.PaymentEvent{PaymentID: "p"})
	assert.EqualError(t, s.handle(context.Background(), data), "unknown product")
}

func TestSubscriber_StopDrains(t *testing.T) {
	nc := newFakeConn()
	s := NewSubscriber(nc, "x", &recordingHandler{}, logging.Nop{})
	require.NoError(t, s.Stop())
	assert.True(t, nc.drained)
}
