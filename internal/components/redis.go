// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package components

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/strongbox/internal/faults"
	"github.com/tomtom215/strongbox/internal/logging"
	"github.com/tomtom215/strongbox/internal/models"
)

// SnapshotFileName is the cache snapshot written by the cache component.
const SnapshotFileName = "cache_snapshot.json"

const cacheSnapshotVersion = 1

// CacheSnapshot is the on-disk form of a cache dump.
type CacheSnapshot struct {
	Version int            `json:"version"`
	TakenAt time.Time      `json:"taken_at"`
	Keys    []CacheKeyDump `json:"keys"`
}

// CacheKeyDump holds one key. Exactly one value field is set, chosen by Type.
type CacheKeyDump struct {
	Key    string            `json:"key"`
	Type   string            `json:"type"`
	TTLMs  int64             `json:"ttl_ms"`
	String string            `json:"string,omitempty"`
	Hash   map[string]string `json:"hash,omitempty"`
	List   []string          `json:"list,omitempty"`
	Set    []string          `json:"set,omitempty"`
	ZSet   []ZMember         `json:"zset,omitempty"`
}

// ZMember is one sorted set member.
type ZMember struct {
	Member string  `json:"member"`
	Score  float64 `json:"score"`
}

// RedisConfig configures the cache component.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Match     string
	ScanCount int64
}

// Redis snapshots a Redis keyspace.
type Redis struct {
	client    *redis.Client
	match     string
	scanCount int64
}

// NewRedis connects lazily; no I/O happens until Dump, Restore or Version.
func NewRedis(cfg RedisConfig) *Redis {
	return NewRedisWithClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), cfg.Match, cfg.ScanCount)
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, match string, scanCount int64) *Redis {
	if match == "" {
		match = "*"
	}
	if scanCount <= 0 {
		scanCount = 1000
	}
	return &Redis{client: client, match: match, scanCount: scanCount}
}

func (r *Redis) Name() string { return models.ComponentCache }

// Close releases the connection pool.
func (r *Redis) Close() error { return r.client.Close() }

// Dump enumerates keys with SCAN and records each key's type, TTL and value.
func (r *Redis) Dump(ctx context.Context, dir string) error {
	snap := CacheSnapshot{Version: cacheSnapshotVersion, TakenAt: time.Now().UTC(), Keys: []CacheKeyDump{}}

	iter := r.client.Scan(ctx, 0, r.match, r.scanCount).Iterator()
	for iter.Next(ctx) {
		dump, ok, err := r.dumpKey(ctx, iter.Val())
		if err != nil {
			return err
		}
		if ok {
			snap.Keys = append(snap.Keys, dump)
		}
	}
	if err := iter.Err(); err != nil {
		return faults.Transport("redis scan", err)
	}

	data, err := json.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("marshal cache snapshot: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, SnapshotFileName), data, 0o640)
}

// dumpKey reads one key. Keys that vanish mid-scan or have an unsupported
// type are skipped.
func (r *Redis) dumpKey(ctx context.Context, key string) (CacheKeyDump, bool, error) {
	typ, err := r.client.Type(ctx, key).Result()
	if err != nil {
		return CacheKeyDump{}, false, faults.Transport("redis type", err)
	}
	dump := CacheKeyDump{Key: key, Type: typ}

	switch typ {
	case "none":
		return dump, false, nil
	case "string":
		dump.String, err = r.client.Get(ctx, key).Result()
	case "hash":
		dump.Hash, err = r.client.HGetAll(ctx, key).Result()
	case "list":
		dump.List, err = r.client.LRange(ctx, key, 0, -1).Result()
	case "set":
		dump.Set, err = r.client.SMembers(ctx, key).Result()
	case "zset":
		var members []redis.Z
		members, err = r.client.ZRangeWithScores(ctx, key, 0, -1).Result()
		for _, m := range members {
			dump.ZSet = append(dump.ZSet, ZMember{Member: fmt.Sprint(m.Member), Score: m.Score})
		}
	default:
		logging.Warn().Str("key", key).Str("type", typ).Msg("Skipping cache key with unsupported type")
		return dump, false, nil
	}
	if err == redis.Nil {
		return dump, false, nil
	}
	if err != nil {
		return CacheKeyDump{}, false, faults.Transport("redis read "+typ, err)
	}

	ttl, err := r.client.PTTL(ctx, key).Result()
	if err != nil {
		return CacheKeyDump{}, false, faults.Transport("redis pttl", err)
	}
	if ttl > 0 {
		dump.TTLMs = ttl.Milliseconds()
	}
	return dump, true, nil
}

// Restore replaces every key in the snapshot through one pipeline.
func (r *Redis) Restore(ctx context.Context, dir string) error {
	snap, err := ReadCacheSnapshot(filepath.Join(dir, SnapshotFileName))
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	for _, k := range snap.Keys {
		pipe.Del(ctx, k.Key)
		switch k.Type {
		case "string":
			pipe.Set(ctx, k.Key, k.String, 0)
		case "hash":
			if len(k.Hash) > 0 {
				pipe.HSet(ctx, k.Key, k.Hash)
			}
		case "list":
			if len(k.List) > 0 {
				pipe.RPush(ctx, k.Key, toInterfaces(k.List)...)
			}
		case "set":
			if len(k.Set) > 0 {
				pipe.SAdd(ctx, k.Key, toInterfaces(k.Set)...)
			}
		case "zset":
			members := make([]redis.Z, 0, len(k.ZSet))
			for _, m := range k.ZSet {
				members = append(members, redis.Z{Member: m.Member, Score: m.Score})
			}
			if len(members) > 0 {
				pipe.ZAdd(ctx, k.Key, members...)
			}
		}
		if k.TTLMs > 0 {
			pipe.PExpire(ctx, k.Key, time.Duration(k.TTLMs)*time.Millisecond)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return faults.Transport("redis restore", err)
	}
	return nil
}

// Version parses redis_version from INFO server.
func (r *Redis) Version(ctx context.Context) (string, error) {
	info, err := r.client.Info(ctx, "server").Result()
	if err != nil {
		return "", faults.Transport("redis info", err)
	}
	return parseRedisVersion(info), nil
}

func parseRedisVersion(info string) string {
	scanner := bufio.NewScanner(strings.NewReader(info))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if v, ok := strings.CutPrefix(line, "redis_version:"); ok {
			return v
		}
	}
	return "unknown"
}

// ReadCacheSnapshot parses a snapshot file.
//
//nolint:gosec // G304: path is inside a scratch directory
func ReadCacheSnapshot(path string) (*CacheSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cache snapshot: %w", err)
	}
	var snap CacheSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, faults.Integrity("cache restore", "cache snapshot is not valid JSON", err)
	}
	if snap.Version != cacheSnapshotVersion {
		return nil, faults.Integrity("cache restore", fmt.Sprintf("unsupported snapshot version %d", snap.Version), nil)
	}
	return &snap, nil
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// RedisProber checks cache connectivity with PING.
type RedisProber struct {
	Addr     string
	Password string
	DB       int
}

func (RedisProber) Name() string { return "cache_connectivity" }

func (p RedisProber) Probe(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{Addr: p.Addr, Password: p.Password, DB: p.DB})
	defer client.Close() //nolint:errcheck // Best effort cleanup

	if err := client.Ping(ctx).Err(); err != nil {
		return faults.Transport("redis ping", err)
	}
	return nil
}
