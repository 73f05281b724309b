package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 事件流key与保留长度
const (
	StreamKey = "erp:events"
	maxLen    = 10000
)

// 事件类型
const (
	TypePOConfirmed         = "po.confirmed"
	TypePOWithdrawn         = "po.withdrawn"
	TypeDeliveryUpdated     = "delivery.updated"
	TypeConsolidationUpdate = "consolidation.updated"
	TypeBatchReceived       = "batch.received"
)

// Publisher 领域事件发布器，写入Redis Stream。
// 发布是尽力而为：失败只记日志，不影响主流程。
type Publisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewPublisher(rdb *redis.Client, logger *zap.Logger) *Publisher {
	return &Publisher{rdb: rdb, logger: logger}
}

// Publish 发布事件，payload序列化为JSON
func (p *Publisher) Publish(ctx context.Context, eventType, entityID string, payload interface{}) {
	if p == nil || p.rdb == nil {
		return
	}

	values := map[string]interface{}{
		"type":      eventType,
		"entity_id": entityID,
		"at":        time.Now().Format(time.RFC3339),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			p.logger.Warn("事件序列化失败", zap.String("type", eventType), zap.Error(err))
			return
		}
		values["payload"] = string(data)
	}

	err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: maxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		p.logger.Warn("事件发布失败",
			zap.String("type", eventType),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
	}
}
