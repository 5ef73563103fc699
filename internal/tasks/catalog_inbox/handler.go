package cataloginbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikey1384/twinkle-vite-sub013/internal/models/po"
	"github.com/mikey1384/twinkle-vite-sub013/internal/repositories"

	"github.com/bionicotaku/lingo-utils/outbox/store"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

type eventHandler struct {
	projections *repositories.VideoProjectionRepository
	log         *log.Helper
	metrics     *inboxMetrics
	clock       func() time.Time
}

func newEventHandler(repo *repositories.VideoProjectionRepository, logger log.Logger, metrics *inboxMetrics) *eventHandler {
	return &eventHandler{
		projections: repo,
		log:         log.NewHelper(logger),
		metrics:     metrics,
		clock:       time.Now,
	}
}

func (h *eventHandler) Handle(ctx context.Context, sess txmanager.Session, evt *Event, inboxEvt *store.InboxEvent) error {
	if evt == nil {
		return fmt.Errorf("catalog inbox: nil event")
	}

	aggregateID := evt.AggregateID
	if aggregateID == "" && inboxEvt != nil && inboxEvt.AggregateID != nil {
		aggregateID = *inboxEvt.AggregateID
	}
	videoID, err := uuid.Parse(aggregateID)
	if err != nil {
		return fmt.Errorf("catalog inbox: parse aggregate_id: %w", err)
	}

	occurredAt, err := parseRFC3339(evt.OccurredAt)
	if err != nil {
		if h.metrics != nil {
			h.metrics.recordFailure(ctx, evt.EventType, err)
		}
		return fmt.Errorf("catalog inbox: parse occurred_at: %w", err)
	}
	if occurredAt.IsZero() {
		occurredAt = h.clock().UTC()
	}

	var handleErr error
	switch evt.EventType {
	case EventTypeVideoCreated:
		handleErr = h.handleUpsert(ctx, sess, evt, videoID, occurredAt, nil)
	case EventTypeVideoUpdated:
		current, err := h.loadCurrent(ctx, sess, videoID)
		if err != nil {
			handleErr = err
			break
		}
		handleErr = h.handleUpsert(ctx, sess, evt, videoID, occurredAt, current)
	case EventTypeVideoDeleted:
		handleErr = h.handleDeleted(ctx, sess, videoID, occurredAt, evt.Version)
	default:
		h.log.WithContext(ctx).Debugw("msg", "catalog inbox: skip unsupported event", "event_type", evt.EventType, "event_id", evt.EventID)
		return nil
	}

	if handleErr != nil {
		if h.metrics != nil {
			h.metrics.recordFailure(ctx, evt.EventType, handleErr)
		}
		return handleErr
	}

	if h.metrics != nil {
		h.metrics.recordSuccess(ctx, evt.EventType, occurredAt, h.clock())
	}
	return nil
}

func (h *eventHandler) handleUpsert(ctx context.Context, sess txmanager.Session, evt *Event, videoID uuid.UUID, occurredAt time.Time, current *po.RewardVideo) error {
	if current != nil && !shouldApply(evt.Version, current.Version) {
		h.log.WithContext(ctx).Debugw("msg", "catalog inbox: skip stale event", "video_id", videoID, "event_version", evt.Version, "current_version", current.Version)
		return nil
	}

	title := ""
	rewardLevel := int32(0)
	duration := 0.0
	if current != nil {
		title = current.Title
		rewardLevel = current.RewardLevel
		duration = current.DurationSeconds
	}
	if evt.Title != nil {
		title = *evt.Title
	}
	if evt.RewardLevel != nil {
		rewardLevel = *evt.RewardLevel
	}
	if evt.DurationSeconds != nil {
		duration = *evt.DurationSeconds
	}

	input := repositories.UpsertRewardVideoInput{
		VideoID:         videoID,
		Title:           defaultTitle(title),
		RewardLevel:     rewardLevel,
		DurationSeconds: duration,
		Version:         evt.Version,
		UpdatedAt:       &occurredAt,
	}
	if err := h.projections.Upsert(ctx, sess, input); err != nil {
		return fmt.Errorf("catalog inbox: upsert projection: %w", err)
	}
	return nil
}

func (h *eventHandler) handleDeleted(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, occurredAt time.Time, version int64) error {
	current, err := h.loadCurrent(ctx, sess, videoID)
	if err != nil {
		return err
	}
	if current == nil {
		return nil
	}
	if !shouldApply(version, current.Version) {
		h.log.WithContext(ctx).Debugw("msg", "catalog inbox: skip stale delete", "video_id", videoID, "event_version", version, "current_version", current.Version)
		return nil
	}
	if err := h.projections.MarkDeleted(ctx, sess, videoID, occurredAt, version); err != nil {
		return fmt.Errorf("catalog inbox: mark deleted: %w", err)
	}
	return nil
}

func (h *eventHandler) loadCurrent(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.RewardVideo, error) {
	record, err := h.projections.Get(ctx, sess, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrRewardVideoNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("catalog inbox: load projection: %w", err)
	}
	return record, nil
}

func parseRFC3339(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

func shouldApply(newVersion, currentVersion int64) bool {
	if newVersion == 0 {
		return true
	}
	return newVersion > currentVersion
}

func defaultTitle(title string) string {
	if title == "" {
		return "(untitled)"
	}
	return title
}
