package broker

import (
	"context"
	"fmt"
	"log"
	"sync"

	"homepage/pkg/envelope"

	"github.com/redis/go-redis/v9"
)

type HandlerFunc func(envelope.Envelope)

// Broker fans envelopes out over Redis pub/sub so every instance sees them.
type Broker struct {
	rdb      *redis.Client
	ctx      context.Context
	cancel   context.CancelFunc
	handlers sync.Map
	wg       sync.WaitGroup
}

// New wraps a connected client. The client stays owned by the caller.
func New(rdb *redis.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{rdb: rdb, ctx: ctx, cancel: cancel}
}

func (b *Broker) Publish(channel string, env envelope.Envelope) error {
	data, err := env.Marshal()
	if err != nil {
		return err
	}
	return b.rdb.Publish(b.ctx, channel, data).Err()
}

func (b *Broker) Broadcast(channel string, action, service string, data interface{}) error {
	env, err := envelope.NewEvent(action, service, data)
	if err != nil {
		return err
	}
	return b.Publish(channel, env)
}

// On registers the handler for one action. "*" receives every action
// without a dedicated handler.
func (b *Broker) On(action string, fn HandlerFunc) {
	b.handlers.Store(action, fn)
}

// Subscribe returns once Redis has confirmed the subscription, so nothing
// published afterwards is missed.
func (b *Broker) Subscribe(channels ...string) error {
	sub := b.rdb.Subscribe(b.ctx, channels...)
	if _, err := sub.Receive(b.ctx); err != nil {
		sub.Close()
		return fmt.Errorf("subscribe %v: %w", channels, err)
	}
	ch := sub.Channel()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer sub.Close()
		for {
			select {
			case <-b.ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				env, err := envelope.Unmarshal([]byte(msg.Payload))
				if err != nil {
					log.Printf("[BROKER] dropping malformed message on %s: %v", msg.Channel, err)
					continue
				}
				b.dispatch(env)
			}
		}
	}()
	return nil
}

func (b *Broker) dispatch(env envelope.Envelope) {
	if fn, ok := b.handlers.Load(env.Action); ok {
		fn.(HandlerFunc)(env)
		return
	}
	if fn, ok := b.handlers.Load("*"); ok {
		fn.(HandlerFunc)(env)
	}
}

func (b *Broker) Close() {
	b.cancel()
	b.wg.Wait()
}
