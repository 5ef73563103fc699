package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mikey1384/twinkle-vite-sub013/internal/models/vo"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// GuardTTL 为会话守卫的心跳存活时长，约为两个 tick 周期。
type GuardTTL time.Duration

// DefaultGuardTTL 返回默认存活时长。
func DefaultGuardTTL() GuardTTL {
	return GuardTTL(4 * time.Second)
}

type guardSlot struct {
	token       uuid.UUID
	rewardLevel int32
	deadline    time.Time
}

// SessionGuardService 维护每用户唯一的活跃观看会话。
// 槽位仅存在于进程内存中，按 TTL 过期；崩溃或断网的会话无需显式释放即可被回收。
type SessionGuardService struct {
	mu    sync.Mutex
	slots map[uuid.UUID]guardSlot
	ttl   time.Duration
	now   func() time.Time
	log   *log.Helper
}

// NewSessionGuardService 构造 SessionGuardService。
func NewSessionGuardService(ttl GuardTTL, logger log.Logger) *SessionGuardService {
	d := time.Duration(ttl)
	if d <= 0 {
		d = time.Duration(DefaultGuardTTL())
	}
	return &SessionGuardService{
		slots: make(map[uuid.UUID]guardSlot),
		ttl:   d,
		now:   time.Now,
		log:   log.NewHelper(logger),
	}
}

// TryActivate 尝试将 token 注册为用户的活跃会话。
// 仅当没有其他存活 token 时成功；重复注册同一 token 视为续约。
func (s *SessionGuardService) TryActivate(ctx context.Context, userID, token uuid.UUID, rewardLevel int32) (*vo.SessionActivation, error) {
	if userID == uuid.Nil || token == uuid.Nil {
		return nil, fmt.Errorf("session activate: missing identifiers")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	slot, ok := s.slots[userID]
	if ok && slot.token != token && now.Before(slot.deadline) {
		return &vo.SessionActivation{Activated: false}, nil
	}
	s.slots[userID] = guardSlot{
		token:       token,
		rewardLevel: rewardLevel,
		deadline:    now.Add(s.ttl),
	}
	if ok && slot.token != token {
		s.log.WithContext(ctx).Infof("session takeover: user=%s old=%s new=%s", userID, slot.token, token)
	}
	return &vo.SessionActivation{Activated: true}, nil
}

// Heartbeat 续约活跃会话。token 不匹配或已过期时返回 StillActive=false，
// 且不会复活过期槽位；调用方需重新 TryActivate。
func (s *SessionGuardService) Heartbeat(ctx context.Context, userID, token uuid.UUID) (*vo.SessionHeartbeat, error) {
	if userID == uuid.Nil || token == uuid.Nil {
		return nil, fmt.Errorf("session heartbeat: missing identifiers")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	slot, ok := s.slots[userID]
	if !ok || slot.token != token || !now.Before(slot.deadline) {
		return &vo.SessionHeartbeat{StillActive: false}, nil
	}
	slot.deadline = now.Add(s.ttl)
	s.slots[userID] = slot
	return &vo.SessionHeartbeat{StillActive: true}, nil
}

// Release 释放会话槽位；token 不匹配时为空操作。
func (s *SessionGuardService) Release(ctx context.Context, userID, token uuid.UUID) error {
	if userID == uuid.Nil || token == uuid.Nil {
		return fmt.Errorf("session release: missing identifiers")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if slot, ok := s.slots[userID]; ok && slot.token == token {
		delete(s.slots, userID)
	}
	return nil
}

// ActiveSessions 返回当前存活槽位数量，供监控使用。
func (s *SessionGuardService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for _, slot := range s.slots {
		if now.Before(slot.deadline) {
			count++
		}
	}
	return count
}

// Run 周期性清理过期槽位，直到 ctx 取消。作为后台 worker 随服务启停。
func (s *SessionGuardService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *SessionGuardService) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for userID, slot := range s.slots {
		if !now.Before(slot.deadline) {
			delete(s.slots, userID)
		}
	}
}
