package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quiz-poll-bot/internal/domain"

	"github.com/redis/go-redis/v9"
)

// PollRegistry keeps pending polls in Redis. Claim is a single GETDEL, which
// Redis executes atomically, so only one resolver ever sees the entry.
// Entries expire after ttl in case the process dies before resolving them.
type PollRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPollRegistry(client *redis.Client, ttl time.Duration) *PollRegistry {
	return &PollRegistry{client: client, ttl: ttl}
}

func (r *PollRegistry) Register(ctx context.Context, poll domain.PendingPoll) error {
	data, err := json.Marshal(poll)
	if err != nil {
		return fmt.Errorf("marshal poll: %w", err)
	}
	return r.client.Set(ctx, r.key(poll.PollID), data, r.ttl).Err()
}

func (r *PollRegistry) Claim(ctx context.Context, pollID string) (domain.PendingPoll, bool, error) {
	raw, err := r.client.GetDel(ctx, r.key(pollID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PendingPoll{}, false, nil
	}
	if err != nil {
		return domain.PendingPoll{}, false, fmt.Errorf("claim poll: %w", err)
	}

	var poll domain.PendingPoll
	if err := json.Unmarshal(raw, &poll); err != nil {
		return domain.PendingPoll{}, false, fmt.Errorf("unmarshal poll: %w", err)
	}
	poll.Resolved = true
	return poll, true, nil
}

func (r *PollRegistry) key(pollID string) string {
	return "quiz:poll:" + pollID
}
