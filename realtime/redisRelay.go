package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/apex/log"
	"github.com/redis/go-redis/v9"
)

type relayEnvelope struct {
	UserID  string          `json:"userId"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// RedisRelay fans pushes out over Redis pub/sub so that every API instance delivers
// to the connections it holds.
type RedisRelay struct {
	client  *redis.Client
	channel string
	hub     *Hub
}

func NewRedisRelay(client *redis.Client, channel string, hub *Hub) *RedisRelay {
	return &RedisRelay{client: client, channel: channel, hub: hub}
}

// PushToUser publishes the event; Run on each instance hands it to the local hub.
func (r *RedisRelay) PushToUser(userID string, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(relayEnvelope{UserID: userID, Event: event, Payload: data})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return r.client.Publish(ctx, r.channel, msg).Err()
}

// Run subscribes to the relay channel until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	log.WithField("channel", r.channel).Info("realtime relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env relayEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.WithError(err).Warn("dropping malformed relay message")
				continue
			}
			if err := r.hub.PushToUser(env.UserID, env.Event, env.Payload); err != nil {
				log.WithError(err).WithField("user", env.UserID).Warn("relay push failed")
			}
		}
	}
}
