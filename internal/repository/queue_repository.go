package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hanuri-school/registration-api/internal/models"
)

// QueueRepository keeps the registration waiting queue in Redis. A monotonic
// ticket counter gives every candidate a strictly-ordered entry; the reported
// position is the candidate's rank among members still in the queue, so
// positions shrink as earlier candidates finish.
type QueueRepository struct {
	client *redis.Client
	prefix string
}

// NewQueueRepository constructs the repository.
func NewQueueRepository(client *redis.Client, prefix string) *QueueRepository {
	if prefix == "" {
		prefix = "registration:queue"
	}
	return &QueueRepository{client: client, prefix: prefix}
}

func (r *QueueRepository) ticketKey() string  { return r.prefix + ":ticket" }
func (r *QueueRepository) membersKey() string { return r.prefix + ":members" }

// Join enters the queue, returning the candidate's position. Joining again
// with the same email keeps the original ticket and position: the NX add only
// scores a member once, so concurrent joins for the same email can never
// re-score an existing entry. An unused ticket from the losing join is
// harmless; tickets only order members.
func (r *QueueRepository) Join(ctx context.Context, email string) (int64, error) {
	ticket, err := r.client.Incr(ctx, r.ticketKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("allocate queue ticket: %w", err)
	}
	if err := r.client.ZAddNX(ctx, r.membersKey(), redis.Z{Score: float64(ticket), Member: email}).Err(); err != nil {
		return 0, fmt.Errorf("join queue: %w", err)
	}
	return r.Position(ctx, email)
}

// Position returns the 1-based rank among live members, or PositionEnded when
// the candidate is no longer queued.
func (r *QueueRepository) Position(ctx context.Context, email string) (int64, error) {
	rank, err := r.client.ZRank(ctx, r.membersKey(), email).Result()
	if err == redis.Nil {
		return models.PositionEnded, nil
	}
	if err != nil {
		return 0, fmt.Errorf("queue rank: %w", err)
	}
	return rank + 1, nil
}

// Leave removes the candidate from the queue. Safe to call repeatedly.
func (r *QueueRepository) Leave(ctx context.Context, email string) error {
	if err := r.client.ZRem(ctx, r.membersKey(), email).Err(); err != nil {
		return fmt.Errorf("leave queue: %w", err)
	}
	return nil
}

// Depth returns the number of candidates currently queued.
func (r *QueueRepository) Depth(ctx context.Context) (int64, error) {
	depth, err := r.client.ZCard(ctx, r.membersKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return depth, nil
}
