package websocket

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/adi27online/meruglobalconnect/logger"
	"github.com/adi27online/meruglobalconnect/utils"
)

const relayChannel = "meruglobalconnect:events"

type envelope struct {
	Origin  string          `json:"origin"`
	UserIDs []string        `json:"userIds"`
	Frame   json.RawMessage `json:"frame"`
}

// Relay shares hub events between server instances over Redis pub/sub.
type Relay struct {
	client *redis.Client
	origin string
}

func NewRelay(client *redis.Client) *Relay {
	return &Relay{client: client, origin: utils.GenerateUUID()}
}

// ConnectRedis opens a client from a redis:// URL and checks it with a ping.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}

func (r *Relay) Publish(ctx context.Context, userIDs []string, frame []byte) error {
	data, err := json.Marshal(envelope{Origin: r.origin, UserIDs: userIDs, Frame: frame})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, relayChannel, data).Err()
}

// Run delivers events published by other instances to the hub's local
// connections until ctx is done.
func (r *Relay) Run(ctx context.Context, hub *Hub) {
	sub := r.client.Subscribe(ctx, relayChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logger.Warn().Err(err).Msg("bad relay envelope")
				continue
			}
			if env.Origin == r.origin {
				continue
			}
			hub.deliver(env.UserIDs, env.Frame)
		}
	}
}
