package watch

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Manager 托管多个观看会话的生命周期：为每个会话启动 tick 循环，
// 并在关闭时统一释放守卫槽位。
type Manager struct {
	cfg      Config
	progress ProgressStore
	claimer  RewardClaimer
	guard    SessionGuard
	logger   log.Logger
	log      *log.Helper

	mu       sync.Mutex
	sessions map[uuid.UUID]*managedSession
	group    *errgroup.Group
	groupCtx context.Context
	cancel   context.CancelFunc
	closed   bool
}

type managedSession struct {
	session *Session
	cancel  context.CancelFunc
}

// NewManager 构造 Manager。
func NewManager(cfg Config, progress ProgressStore, claimer RewardClaimer, guard SessionGuard, logger log.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(ctx)
	return &Manager{
		cfg:      cfg.Normalize(),
		progress: progress,
		claimer:  claimer,
		guard:    guard,
		logger:   logger,
		log:      log.NewHelper(logger),
		sessions: make(map[uuid.UUID]*managedSession),
		group:    group,
		groupCtx: groupCtx,
		cancel:   cancel,
	}
}

// StartSession 创建会话、尝试激活并启动其 tick 循环。
// 激活失败不视为错误；会话以 Paused 状态返回。
func (m *Manager) StartSession(ctx context.Context, params SessionParams, player PlayerSource) (*Session, error) {
	if params.UserID == uuid.Nil || params.VideoID == uuid.Nil {
		return nil, fmt.Errorf("start session: missing identifiers")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("start session: manager closed")
	}
	session := NewSession(m.cfg, params, player, m.progress, m.claimer, m.guard, m.logger)
	sessionCtx, cancel := context.WithCancel(m.groupCtx)
	m.sessions[session.Token()] = &managedSession{session: session, cancel: cancel}
	m.group.Go(func() error {
		defer m.remove(session.Token())
		if err := session.Run(sessionCtx); err != nil && sessionCtx.Err() == nil {
			return err
		}
		return nil
	})
	m.mu.Unlock()

	if err := session.Play(ctx); err != nil {
		m.StopSession(ctx, session.Token())
		return nil, err
	}
	return session, nil
}

// StopSession 结束并移除指定会话。
func (m *Manager) StopSession(ctx context.Context, token uuid.UUID) error {
	m.mu.Lock()
	managed, ok := m.sessions[token]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	err := managed.session.End(ctx)
	managed.cancel()
	return err
}

// Session 按令牌查找托管中的会话。
func (m *Manager) Session(token uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	managed, ok := m.sessions[token]
	if !ok {
		return nil, false
	}
	return managed.session, true
}

// Close 结束所有会话并等待 tick 循环退出。
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	tokens := make([]uuid.UUID, 0, len(m.sessions))
	for token := range m.sessions {
		tokens = append(tokens, token)
	}
	m.mu.Unlock()

	for _, token := range tokens {
		if err := m.StopSession(ctx, token); err != nil {
			m.log.WithContext(ctx).Warnf("stop session failed: token=%s err=%v", token, err)
		}
	}
	m.cancel()
	return m.group.Wait()
}

func (m *Manager) remove(token uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}
