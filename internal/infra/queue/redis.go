package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"autopost-bot/internal/domain"
)

// RedisPublishQueue реализует очередь задач на базе Redis lists.
// Используется как запасной вариант при отсутствии RabbitMQ; ack(false)
// возвращает задачу в хвост очереди.
type RedisPublishQueue struct {
	client *redis.Client
	key    string
}

// NewRedisPublishQueue создаёт очередь по указанному ключу.
func NewRedisPublishQueue(client *redis.Client, key string) *RedisPublishQueue {
	return &RedisPublishQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisPublishQueue) Enqueue(ctx context.Context, job domain.PublishJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Receive блокирующе читает задачу из очереди.
func (q *RedisPublishQueue) Receive(ctx context.Context) (domain.PublishJob, domain.PublishAckFunc, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.PublishJob{}, nil, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.PublishJob{}, nil, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.PublishJob{}, nil, err
		}
		if len(res) != 2 {
			return domain.PublishJob{}, nil, errors.New("redis queue: unexpected response")
		}
		payload := []byte(res[1])
		var job domain.PublishJob
		if err := json.Unmarshal(payload, &job); err != nil {
			return domain.PublishJob{}, nil, fmt.Errorf("decode job: %w", err)
		}
		ack := func(success bool) error {
			if success {
				return nil
			}
			return q.client.LPush(context.Background(), q.key, payload).Err()
		}
		return job, ack, nil
	}
}
