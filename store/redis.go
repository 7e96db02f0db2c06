package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/zeu5/taxi-rl/policies"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisStore keeps each snapshot as a JSON string under prefix+name
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = &RedisStore{}

func NewRedisStore(config RedisConfig) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
		}),
		prefix: config.Prefix,
	}
}

// Ping checks that the server is reachable
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Save(ctx context.Context, name string, snapshot *policies.Snapshot) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	bs, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.prefix+name, bs, 0).Err(); err != nil {
		return fmt.Errorf("saving table %s: %w", name, err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, name string) (*policies.Snapshot, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	bs, err := r.client.Get(ctx, r.prefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	} else if err != nil {
		return nil, fmt.Errorf("loading table %s: %w", name, err)
	}
	snapshot := &policies.Snapshot{}
	if err := json.Unmarshal(bs, snapshot); err != nil {
		return nil, fmt.Errorf("decoding table %s: %w", name, err)
	}
	return snapshot, nil
}

func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
