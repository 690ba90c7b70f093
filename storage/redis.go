package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sealdice/perworld/perworld/types"
	"github.com/sealdice/perworld/utils"
)

const redisKeyPrefix = "pwi:"

// RedisIO 每个玩家一个 hash：pwi:<玩家ID>，字段为 <分组>:<模式>
type RedisIO struct {
	rdb *redis.Client
}

func NewRedisIO(client *redis.Client) *RedisIO {
	return &RedisIO{rdb: client}
}

func OpenRedis(addr, password string, db int) (*RedisIO, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("redis: addr is required")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return NewRedisIO(rdb), nil
}

func playerHashKey(id uuid.UUID) string {
	return redisKeyPrefix + id.String()
}

func (r *RedisIO) Save(ctx context.Context, rec *types.Record) error {
	payload, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	field := utils.PackGroupMode(rec.Key.Group, rec.Key.GameMode)
	if err := r.rdb.HSet(ctx, playerHashKey(rec.Key.PlayerID), field, payload).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", rec.Key, err)
	}
	return nil
}

func (r *RedisIO) Load(ctx context.Context, key types.Key) (*types.Record, error) {
	field := utils.PackGroupMode(key.Group, key.GameMode)
	raw, err := r.rdb.HGet(ctx, playerHashKey(key.PlayerID), field).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, types.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("hget %s: %w", key, err)
	}
	return decodeRecord(raw)
}

// Each scans every player hash. Players are visited in id order, fields in name order.
func (r *RedisIO) Each(ctx context.Context, fn func(rec *types.Record) error) error {
	var hashes []string
	iter := r.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		hashes = append(hashes, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	sort.Strings(hashes)

	for _, h := range hashes {
		fields, err := r.rdb.HGetAll(ctx, h).Result()
		if err != nil {
			return fmt.Errorf("hgetall %s: %w", h, err)
		}
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rec, err := decodeRecord([]byte(fields[name]))
			if err != nil {
				return fmt.Errorf("%s %s: %w", h, name, err)
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *RedisIO) Close() error {
	return r.rdb.Close()
}
