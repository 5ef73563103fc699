package outboxevents

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewRewardGrantedEvent 构造奖励发放事件。
func NewRewardGrantedEvent(payload RewardGranted) (*DomainEvent, error) {
	if payload.UserID == uuid.Nil {
		return nil, fmt.Errorf("reward event: user_id required")
	}
	if payload.VideoID == uuid.Nil {
		return nil, fmt.Errorf("reward event: video_id required")
	}
	if payload.XPGranted <= 0 && payload.CoinsGranted <= 0 {
		return nil, fmt.Errorf("reward event: empty grant")
	}
	occurredAt := payload.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
		payload.OccurredAt = occurredAt
	}
	return &DomainEvent{
		EventID:       uuid.New(),
		Kind:          KindRewardGranted,
		AggregateID:   payload.VideoID,
		AggregateType: AggregateTypeRewardLedger,
		Version:       VersionFromTime(occurredAt),
		OccurredAt:    occurredAt,
		Payload:       &payload,
	}, nil
}

// NewWatchProgressedEvent 构造观看进度推进事件。
func NewWatchProgressedEvent(payload WatchProgressed) (*DomainEvent, error) {
	if payload.UserID == uuid.Nil {
		return nil, fmt.Errorf("watch event: user_id required")
	}
	if payload.VideoID == uuid.Nil {
		return nil, fmt.Errorf("watch event: video_id required")
	}
	occurredAt := payload.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
		payload.OccurredAt = occurredAt
	}
	return &DomainEvent{
		EventID:       uuid.New(),
		Kind:          KindWatchProgressed,
		AggregateID:   payload.VideoID,
		AggregateType: AggregateTypeWatchProgress,
		Version:       VersionFromTime(occurredAt),
		OccurredAt:    occurredAt,
		Payload:       &payload,
	}, nil
}

// NewDailyCapReachedEvent 构造当日上限触达事件。
func NewDailyCapReachedEvent(payload DailyCapReached) (*DomainEvent, error) {
	if payload.UserID == uuid.Nil {
		return nil, fmt.Errorf("cap event: user_id required")
	}
	occurredAt := payload.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
		payload.OccurredAt = occurredAt
	}
	return &DomainEvent{
		EventID:       uuid.New(),
		Kind:          KindDailyCapReached,
		AggregateID:   payload.UserID,
		AggregateType: AggregateTypeRewardLedger,
		Version:       VersionFromTime(occurredAt),
		OccurredAt:    occurredAt,
		Payload:       &payload,
	}, nil
}

// MarshalPayload 将事件载荷序列化为 JSON 字节，供 outbox 持久化与发布。
// 消费方的 inbox decoder 以 JSON 模式解析同一载荷。
func MarshalPayload(evt *DomainEvent) ([]byte, error) {
	if evt == nil {
		return nil, ErrUnknownEventKind
	}
	if evt.EventID == uuid.Nil {
		return nil, ErrInvalidEventID
	}
	data, err := json.Marshal(evt.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	return data, nil
}
