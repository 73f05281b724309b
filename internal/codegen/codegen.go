package codegen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 单号前缀
const (
	PrefixPO            = "PO"  // 采购订单
	PrefixRequest       = "REQ" // 请购单
	PrefixConsolidation = "SH"  // 併櫃
	PrefixBatch         = "BA"  // 入库批次
)

// Generator 单号生成器，格式 PREFIX{yyyymmdd}{3位序号}。
// 序号取自当日最大单号+1，并以Redis分布式锁防止并发重号；
// 无Redis时退化为无锁（仅靠唯一索引兜底）。
type Generator struct {
	db     *gorm.DB
	locker *redislock.Client
	logger *zap.Logger
}

func New(db *gorm.DB, rdb *redis.Client, logger *zap.Logger) *Generator {
	g := &Generator{db: db, logger: logger}
	if rdb != nil {
		g.locker = redislock.New(rdb)
	}
	return g
}

// Next 生成下一个单号。table/column指定扫描的表与单号列。
func (g *Generator) Next(ctx context.Context, table, column, prefix string) (string, error) {
	datePrefix := prefix + time.Now().Format("20060102")

	if g.locker != nil {
		lockKey := "erp:codegen:" + prefix
		lock, err := g.locker.Obtain(ctx, lockKey, 3*time.Second, &redislock.Options{
			RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 10),
		})
		if err != nil {
			if errors.Is(err, redislock.ErrNotObtained) {
				return "", fmt.Errorf("单号生成锁获取失败: %w", err)
			}
			g.logger.Warn("单号锁异常，降级为无锁生成", zap.String("prefix", prefix), zap.Error(err))
		} else {
			defer lock.Release(ctx)
		}
	}

	var maxCode string
	err := g.db.WithContext(ctx).
		Table(table).
		Select("COALESCE(MAX(" + column + "), '')").
		Where(column+" LIKE ?", datePrefix+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", fmt.Errorf("查询最大单号失败: %w", err)
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, datePrefix+"%03d", &seq)
	}
	seq++
	return fmt.Sprintf("%s%03d", datePrefix, seq), nil
}
