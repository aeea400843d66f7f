// Package gamercoord optionally shares one measured uplink budget
// across several publisher processes on the same host (e.g. simulcast
// to multiple ingests) via redis pub/sub, instead of each process
// independently assuming the full configured upload rate. Gamer mode
// works standalone without this package; it is purely additive.
package gamercoord

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Budget is the shared value published to and received from the
// coordination channel.
type Budget struct {
	AvgUploadBytesPerSec float64 `json:"avg_upload_bytes_per_sec"`
	PublisherCount       int     `json:"publisher_count"`
}

// Coordinator publishes this process's desired share of the uplink and
// listens for updates from sibling processes publishing the same way.
type Coordinator struct {
	client  *redis.Client
	channel string
	logger  *log.Logger
}

// New connects to a redis instance at addr and prepares to coordinate
// over channel.
func New(addr, password, channel string) *Coordinator {
	return &Coordinator{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		channel: channel,
		logger:  log.New(log.Writer(), "gamercoord: ", log.LstdFlags),
	}
}

// Publish broadcasts this process's current budget view to the
// channel.
func (c *Coordinator) Publish(ctx context.Context, b Budget) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("gamercoord: marshal budget: %w", err)
	}
	return c.client.Publish(ctx, c.channel, payload).Err()
}

// Watch subscribes to the channel and invokes onUpdate for every budget
// update received, including this process's own publishes, until ctx is
// canceled. Connection failures are logged and retried with backoff
// rather than propagated, matching the tolerant reconnect-on-failure
// style the rest of the corpus uses for optional coordination channels.
func (c *Coordinator) Watch(ctx context.Context, onUpdate func(Budget)) {
	for {
		if ctx.Err() != nil {
			return
		}
		sub := c.client.Subscribe(ctx, c.channel)
		ch := sub.Channel()

		for msg := range ch {
			var b Budget
			if err := json.Unmarshal([]byte(msg.Payload), &b); err != nil {
				c.logger.Printf("discarding malformed budget update: %v", err)
				continue
			}
			onUpdate(b)
		}
		sub.Close()

		if ctx.Err() != nil {
			return
		}
		c.logger.Printf("lost connection to redis, retrying in 10s")
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Second):
		}
	}
}

// Close releases the underlying redis client.
func (c *Coordinator) Close() error {
	return c.client.Close()
}
