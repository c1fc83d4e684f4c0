package hub

import (
	"log"

	"homepage/pkg/broker"
	"homepage/pkg/envelope"
)

// EventsChannel carries board events between instances.
const EventsChannel = "board:events"

// Feed delivers board events to websocket clients. With a broker every
// event takes a round trip through Redis so all instances see it; without
// one it goes straight to the local hub.
type Feed struct {
	hub     *Hub
	broker  *broker.Broker
	service string
}

func NewFeed(h *Hub, b *broker.Broker, service string) (*Feed, error) {
	f := &Feed{hub: h, broker: b, service: service}
	if b == nil {
		return f, nil
	}

	b.On("*", func(env envelope.Envelope) {
		if env.Action == ActionUserCount {
			return
		}
		h.BroadcastEnvelope(env)
	})
	if err := b.Subscribe(EventsChannel); err != nil {
		return nil, err
	}
	log.Printf("[HUB] relaying %s via redis", EventsChannel)
	return f, nil
}

func (f *Feed) Notify(action string, data interface{}) {
	if f.broker != nil {
		err := f.broker.Broadcast(EventsChannel, action, f.service, data)
		if err == nil {
			return
		}
		log.Printf("[HUB] publish %s failed, delivering locally: %v", action, err)
	}
	f.hub.Broadcast(action, data)
}
