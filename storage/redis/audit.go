// Package redisstore keeps the moderation audit log in a capped Redis list.
package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/audit"
)

// Open connects to Redis and pings it.
func Open(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return client, nil
}

// AuditStore is an audit.Store keeping the newest `capacity` entries, newest at the head of the list.
type AuditStore struct {
	client   redis.Cmdable
	key      string
	capacity int64
}

var _ audit.Store = (*AuditStore)(nil)

func NewAuditStore(client redis.Cmdable, conf *core.Config) *AuditStore {
	capacity := conf.Audit.Capacity
	if capacity <= 0 {
		capacity = audit.DefaultCapacity
	}
	key := conf.Audit.Key
	if key == "" {
		key = "audit"
	}
	return &AuditStore{client: client, key: key, capacity: int64(capacity)}
}

func (s *AuditStore) Append(ctx context.Context, e audit.Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "encoding audit entry")
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.key, b)
		pipe.LTrim(ctx, s.key, 0, s.capacity-1)
		return nil
	})
	return errors.Wrap(err, "appending audit entry")
}

func (s *AuditStore) List(ctx context.Context, limit int) ([]audit.Entry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	values, err := s.client.LRange(ctx, s.key, 0, stop).Result()
	if err != nil {
		if err == redis.Nil {
			return []audit.Entry{}, nil
		}
		return nil, errors.Wrap(err, "listing audit entries")
	}
	entries := make([]audit.Entry, 0, len(values))
	for _, v := range values {
		var e audit.Entry
		if err = json.Unmarshal([]byte(v), &e); err != nil {
			return nil, errors.Wrap(err, "decoding audit entry")
		}
		entries = append(entries, e)
	}
	return entries, nil
}
