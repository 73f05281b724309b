package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 缓存键命名空间: erp:<prefix>:<key>
const keyNamespace = "erp:"

// 各类数据的TTL
const (
	DefaultTTL    = 5 * time.Minute
	MasterDataTTL = 30 * time.Minute // 供应商、储位等主数据
)

// Cache Redis读缓存。rdb为nil时所有操作直通（开发环境无Redis）。
type Cache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func New(rdb *redis.Client, logger *zap.Logger) *Cache {
	return &Cache{rdb: rdb, logger: logger}
}

func key(prefix, k string) string {
	return keyNamespace + prefix + ":" + k
}

// GetJSON 读取缓存并反序列化到dest，返回是否命中
func (c *Cache) GetJSON(ctx context.Context, prefix, k string, dest interface{}) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	val, err := c.rdb.Get(ctx, key(prefix, k)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("缓存读取失败", zap.String("key", key(prefix, k)), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		c.logger.Warn("缓存反序列化失败", zap.String("key", key(prefix, k)), zap.Error(err))
		return false
	}
	return true
}

// SetJSON 序列化并写入缓存
func (c *Cache) SetJSON(ctx context.Context, prefix, k string, value interface{}, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("缓存序列化失败", zap.String("key", key(prefix, k)), zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, key(prefix, k), data, ttl).Err(); err != nil {
		c.logger.Warn("缓存写入失败", zap.String("key", key(prefix, k)), zap.Error(err))
	}
}

// InvalidatePrefix 按前缀扫描删除 erp:<prefix>:*（写路径调用）
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) {
	if c == nil || c.rdb == nil {
		return
	}
	pattern := keyNamespace + prefix + ":*"
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("缓存失效扫描失败", zap.String("pattern", pattern), zap.Error(err))
		return
	}
	if len(keys) > 0 {
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			c.logger.Warn("缓存删除失败", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}
