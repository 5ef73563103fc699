// Package cataloginbox 消费 catalog 发布的视频事件，维护奖励侧的视频投影。
package cataloginbox

import (
	"encoding/json"
	"fmt"
)

// 事件类型常量，与 catalog 发布侧的约定一致。
const (
	EventTypeVideoCreated = "catalog.video.created"
	EventTypeVideoUpdated = "catalog.video.updated"
	EventTypeVideoDeleted = "catalog.video.deleted"
)

// Event 为 catalog 视频事件的 JSON 载荷。
// 指针字段区分"未携带"与"显式置空"。
type Event struct {
	EventID         string   `json:"event_id"`
	EventType       string   `json:"event_type"`
	AggregateID     string   `json:"aggregate_id"`
	Version         int64    `json:"version"`
	OccurredAt      string   `json:"occurred_at"`
	Title           *string  `json:"title,omitempty"`
	RewardLevel     *int32   `json:"reward_level,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
}

// decoder 实现 inbox.Decoder 接口，将 Pub/Sub payload 解析为 Catalog 事件。
type decoder struct{}

// newDecoder 构造事件解码器。
func newDecoder() *decoder {
	return &decoder{}
}

// Decode 解析事件载荷。
func (d *decoder) Decode(data []byte) (*Event, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("catalog inbox: empty payload")
	}
	evt := &Event{}
	if err := json.Unmarshal(data, evt); err != nil {
		return nil, fmt.Errorf("catalog inbox: unmarshal event: %w", err)
	}
	return evt, nil
}
