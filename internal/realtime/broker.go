package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Payphone-Digital/sprintdesk/internal/constants"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	redisclient "github.com/Payphone-Digital/sprintdesk/pkg/redis"
)

// RedisBroker relays events through a Redis pub/sub channel so that
// connections held by other instances receive them too.
type RedisBroker struct {
	client  *redisclient.Client
	channel string
	hub     *Hub
}

func NewRedisBroker(client *redisclient.Client, channel string, hub *Hub) *RedisBroker {
	if channel == "" {
		channel = constants.KeyRealtimeChannel
	}
	return &RedisBroker{client: client, channel: channel, hub: hub}
}

func (b *RedisBroker) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.client.Publish(ctx, b.channel, data)
}

// Run delivers relayed events to the local hub until ctx is done. The hub
// publishes through the broker only once the subscription is confirmed.
func (b *RedisBroker) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.hub.SetPublisher(b)
	defer b.hub.SetPublisher(nil)

	logger.GetLogger().Info("Realtime relay subscribed")

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.GetLogger().Warn("Dropping malformed relayed event")
				continue
			}
			b.hub.Deliver(ctx, event)
		}
	}
}
