package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nyurban_tracker/internal/model"
)

// Redis implements Store as one JSON document under a single key, in the
// same layout as the state file.
type Redis struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

// NewRedis returns a store that keeps its document under key.
func NewRedis(client *redis.Client, key string) *Redis {
	return &Redis{client: client, key: key, now: time.Now}
}

// Load reads the state document. A missing key is an empty state.
func (r *Redis) Load(ctx context.Context) (model.State, error) {
	doc, err := r.read(ctx)
	if err != nil {
		return model.State{}, err
	}
	return doc.state(), nil
}

// LastCheckTime returns the stamped last check time, or 0.
func (r *Redis) LastCheckTime(ctx context.Context) (float64, error) {
	doc, err := r.read(ctx)
	if err != nil {
		return 0, err
	}
	return doc.lastCheck(), nil
}

// Save replaces the snapshot, keeping the stored metadata.
func (r *Redis) Save(ctx context.Context, slots model.Snapshot) error {
	previous, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("get state: %w", err)
	}

	data, err := replace(previous, slots, nowEpoch(r.now))
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if err := r.client.Set(ctx, r.key, string(data), 0).Err(); err != nil {
		return fmt.Errorf("set state: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) read(ctx context.Context) (document, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return document{}, nil
	}
	if err != nil {
		return document{}, fmt.Errorf("get state: %w", err)
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return document{}, fmt.Errorf("parse state: %w", err)
	}
	return doc, nil
}
