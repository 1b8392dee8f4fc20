package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roomops/pms-console/pkg/conversation"
)

// StateRepository is a Redis-backed conversation.StateStore. Snapshots
// have no TTL: a pending confirmation or a half-filled slot session lives
// until the user acts on it.
type StateRepository struct {
	client *redis.Client
}

// NewStateRepository connects to Redis and verifies the connection.
func NewStateRepository(redisURL string) (*StateRepository, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &StateRepository{client: client}, nil
}

func (r *StateRepository) stateKey(key string) string {
	return fmt.Sprintf("conversation:state:%s", key)
}

func (r *StateRepository) Load(ctx context.Context, key string) (*conversation.State, error) {
	data, err := r.client.Get(ctx, r.stateKey(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation state: %w", err)
	}

	var state conversation.State
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to parse conversation state: %w", err)
	}
	return &state, nil
}

func (r *StateRepository) Save(ctx context.Context, key string, state conversation.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to serialize conversation state: %w", err)
	}

	if err := r.client.Set(ctx, r.stateKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save conversation state: %w", err)
	}
	return nil
}

func (r *StateRepository) Clear(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.stateKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to clear conversation state: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (r *StateRepository) Close() error {
	return r.client.Close()
}
