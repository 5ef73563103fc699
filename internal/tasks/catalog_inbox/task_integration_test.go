package cataloginbox_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/mikey1384/twinkle-vite-sub013/internal/repositories"
	cataloginbox "github.com/mikey1384/twinkle-vite-sub013/internal/tasks/catalog_inbox"

	"github.com/bionicotaku/lingo-utils/gcpubsub"
	outboxcfg "github.com/bionicotaku/lingo-utils/outbox/config"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/docker/go-connections/nat"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestCatalogInboxTask_MaintainsProjection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn, terminate := startPostgres(ctx, t)
	defer terminate()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	applyMigrations(ctx, t, pool)

	logger := log.NewStdLogger(io.Discard)
	inboxRepo := repositories.NewInboxRepository(pool, logger, outboxcfg.Config{Schema: "rewards"})
	projectionRepo := repositories.NewVideoProjectionRepository(pool, logger)
	manager, err := txmanager.NewManager(pool, txmanager.Config{}, txmanager.Dependencies{Logger: logger})
	require.NoError(t, err)

	videoID := uuid.New()
	occurredAt := time.Now().UTC().Truncate(time.Millisecond)

	created := cataloginbox.Event{
		EventID:         uuid.NewString(),
		EventType:       cataloginbox.EventTypeVideoCreated,
		AggregateID:     videoID.String(),
		Version:         1,
		OccurredAt:      occurredAt.Format(time.RFC3339Nano),
		Title:           strPtr("intro to tides"),
		RewardLevel:     int32Ptr(3),
		DurationSeconds: float64Ptr(600),
	}

	stub := &stubSubscriber{messages: []*gcpubsub.Message{buildMessage(t, created)}}
	cfg := outboxcfg.Config{Schema: "rewards", Inbox: outboxcfg.InboxConfig{SourceService: "catalog", MaxConcurrency: 1}}
	task := cataloginbox.NewTask(stub, inboxRepo, projectionRepo, manager, logger, cfg.Inbox)
	require.NotNil(t, task)

	require.NoError(t, task.Run(ctx))

	video, err := projectionRepo.Get(ctx, nil, videoID)
	require.NoError(t, err)
	require.Equal(t, "intro to tides", video.Title)
	require.Equal(t, int32(3), video.RewardLevel)
	require.InDelta(t, 600.0, video.DurationSeconds, 0.001)
	require.Equal(t, int64(1), video.Version)
	require.Nil(t, video.DeletedAt)

	var processed int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM rewards.inbox_events WHERE processed_at IS NOT NULL`,
	).Scan(&processed))
	require.Equal(t, 1, processed)

	// A stale update loses; the fresh one wins and fills missing fields
	// from the current row.
	stale := cataloginbox.Event{
		EventID:     uuid.NewString(),
		EventType:   cataloginbox.EventTypeVideoUpdated,
		AggregateID: videoID.String(),
		Version:     1,
		OccurredAt:  occurredAt.Add(time.Minute).Format(time.RFC3339Nano),
		Title:       strPtr("stale title"),
	}
	fresh := cataloginbox.Event{
		EventID:     uuid.NewString(),
		EventType:   cataloginbox.EventTypeVideoUpdated,
		AggregateID: videoID.String(),
		Version:     2,
		OccurredAt:  occurredAt.Add(2 * time.Minute).Format(time.RFC3339Nano),
		RewardLevel: int32Ptr(5),
	}
	stub.messages = []*gcpubsub.Message{buildMessage(t, stale), buildMessage(t, fresh)}
	require.NoError(t, task.Run(ctx))

	video, err = projectionRepo.Get(ctx, nil, videoID)
	require.NoError(t, err)
	require.Equal(t, int64(2), video.Version)
	require.Equal(t, int32(5), video.RewardLevel)
	require.Equal(t, "intro to tides", video.Title)
	require.InDelta(t, 600.0, video.DurationSeconds, 0.001)

	// Delete keeps the row for ledger history but marks it.
	deleted := cataloginbox.Event{
		EventID:     uuid.NewString(),
		EventType:   cataloginbox.EventTypeVideoDeleted,
		AggregateID: videoID.String(),
		Version:     3,
		OccurredAt:  occurredAt.Add(3 * time.Minute).Format(time.RFC3339Nano),
	}
	stub.messages = []*gcpubsub.Message{buildMessage(t, deleted)}
	require.NoError(t, task.Run(ctx))

	video, err = projectionRepo.Get(ctx, nil, videoID)
	require.NoError(t, err)
	require.NotNil(t, video.DeletedAt)
	require.Equal(t, int64(3), video.Version)
}

func TestCatalogInboxTask_CreatedWithoutTitleGetsPlaceholder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn, terminate := startPostgres(ctx, t)
	defer terminate()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	applyMigrations(ctx, t, pool)

	logger := log.NewStdLogger(io.Discard)
	inboxRepo := repositories.NewInboxRepository(pool, logger, outboxcfg.Config{Schema: "rewards"})
	projectionRepo := repositories.NewVideoProjectionRepository(pool, logger)
	manager, err := txmanager.NewManager(pool, txmanager.Config{}, txmanager.Dependencies{Logger: logger})
	require.NoError(t, err)

	videoID := uuid.New()
	events := []cataloginbox.Event{
		{
			EventID:     uuid.NewString(),
			EventType:   cataloginbox.EventTypeVideoCreated,
			AggregateID: videoID.String(),
			Version:     1,
			OccurredAt:  time.Now().UTC().Format(time.RFC3339Nano),
			RewardLevel: int32Ptr(1),
		},
		// Unknown event types are skipped without failing the batch.
		{
			EventID:     uuid.NewString(),
			EventType:   "catalog.video.transcoded",
			AggregateID: videoID.String(),
			Version:     2,
			OccurredAt:  time.Now().UTC().Format(time.RFC3339Nano),
		},
	}

	var msgs []*gcpubsub.Message
	for _, evt := range events {
		msgs = append(msgs, buildMessage(t, evt))
	}
	stub := &stubSubscriber{messages: msgs}
	cfg := outboxcfg.Config{Schema: "rewards", Inbox: outboxcfg.InboxConfig{SourceService: "catalog", MaxConcurrency: 1}}
	task := cataloginbox.NewTask(stub, inboxRepo, projectionRepo, manager, logger, cfg.Inbox)
	require.NotNil(t, task)

	require.NoError(t, task.Run(ctx))

	video, err := projectionRepo.Get(ctx, nil, videoID)
	require.NoError(t, err)
	require.Equal(t, "(untitled)", video.Title)
	require.Equal(t, int32(1), video.RewardLevel)
}

// stubSubscriber delivers queued messages synchronously.
type stubSubscriber struct {
	messages []*gcpubsub.Message
}

func (s *stubSubscriber) Receive(ctx context.Context, handler func(context.Context, *gcpubsub.Message) error) error {
	for _, msg := range s.messages {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *stubSubscriber) Stop() {}

func buildMessage(t *testing.T, evt cataloginbox.Event) *gcpubsub.Message {
	t.Helper()
	data, err := json.Marshal(evt)
	require.NoError(t, err)
	return &gcpubsub.Message{
		ID:   uuid.NewString(),
		Data: data,
		Attributes: map[string]string{
			"event_id":       evt.EventID,
			"event_type":     evt.EventType,
			"aggregate_id":   evt.AggregateID,
			"aggregate_type": "video",
		},
	}
}

func strPtr(v string) *string { return &v }

func int32Ptr(v int32) *int32 { return &v }

func float64Ptr(v float64) *float64 { return &v }

func startPostgres(ctx context.Context, t *testing.T) (string, func()) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_DB":       "rewards",
		},
		WaitingFor: wait.ForSQL("5432/tcp", "postgres", func(host string, port nat.Port) string {
			return fmt.Sprintf("postgres://postgres:postgres@%s:%s/rewards?sslmode=disable", host, port.Port())
		}).WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("skip catalog inbox tests: cannot start postgres container: %v", err)
	}

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/rewards?sslmode=disable", host, port.Port())
	cleanup := func() {
		termCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = container.Terminate(termCtx)
	}
	return dsn, cleanup
}

func applyMigrations(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	migrationsDir := filepath.Join("..", "..", "..", "migrations")
	entries, err := filepath.Glob(filepath.Join(migrationsDir, "*.sql"))
	require.NoError(t, err)
	sort.Strings(entries)

	for _, path := range entries {
		content, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		_, execErr := pool.Exec(ctx, string(content))
		require.NoErrorf(t, execErr, "apply migration %s", filepath.Base(path))
	}
}
