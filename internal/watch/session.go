package watch

import (
	"context"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// State 表示会话状态机的当前状态。
type State int

// 会话状态常量。
const (
	// StateIdle 表示尚未开始播放。
	StateIdle State = iota
	// StatePlaying 表示正在播放且本会话为活跃会话。
	StatePlaying
	// StatePaused 表示暂停，包括守卫冲突导致的被动暂停。
	StatePaused
	// StateEnded 表示会话已结束，不可复用。
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Snapshot 为面向展示层的只读会话快照。
type Snapshot struct {
	State                   State
	ProgressPercent         float64
	AccumulatedSeconds      float64
	XPEarnedThisSession     int64
	CoinsEarnedThisSession  int64
	XPTotal                 int64
	CoinTotal               int64
	ReachedDailyLimit       bool
	ReachedMaxWatchDuration bool
	GuardConflict           bool
}

// SessionParams 描述新会话的固定标识。
type SessionParams struct {
	UserID      uuid.UUID
	VideoID     uuid.UUID
	RewardLevel int32
}

// Session 为单个视频的观看会话状态机。
// 所有状态变更都发生在持锁区内；tick 严格串行，前一个 tick
// 的本地工作完成前下一个不会开始。
type Session struct {
	cfg      Config
	params   SessionParams
	token    uuid.UUID
	player   PlayerSource
	progress ProgressStore
	claimer  RewardClaimer
	guard    SessionGuard
	log      *log.Helper

	mu                      sync.Mutex
	state                   State
	accumulatedSeconds      float64
	lastPosition            float64
	lastPositionValid       bool
	lastSnapshot            PlayerSnapshot
	xpThisSession           int64
	coinsThisSession        int64
	xpTotal                 int64
	coinTotal               int64
	reachedDailyLimit       bool
	reachedMaxWatchDuration bool
	guardConflict           bool
}

// NewSession 构造观看会话。rewardLevel 为 0 时引擎保持惰性：
// 状态机照常运转但不会发起任何申领。
func NewSession(
	cfg Config,
	params SessionParams,
	player PlayerSource,
	progress ProgressStore,
	claimer RewardClaimer,
	guard SessionGuard,
	logger log.Logger,
) *Session {
	return &Session{
		cfg:      cfg.Normalize(),
		params:   params,
		token:    uuid.New(),
		player:   player,
		progress: progress,
		claimer:  claimer,
		guard:    guard,
		log:      log.NewHelper(logger),
		state:    StateIdle,
	}
}

// Token 返回本会话的守卫令牌。
func (s *Session) Token() uuid.UUID {
	return s.token
}

// Play 尝试进入 Playing 状态。若用户已有其他活跃会话，
// 本会话立即转入 Paused 并标记守卫冲突，而非报错。
func (s *Session) Play(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateEnded {
		return nil
	}
	if s.params.RewardLevel <= 0 {
		// Not reward eligible; still track playback state for display.
		s.state = StatePlaying
		return nil
	}

	activated, err := s.guard.TryActivate(ctx, s.params.UserID, s.token, s.params.RewardLevel)
	if err != nil {
		return err
	}
	if !activated {
		s.state = StatePaused
		s.guardConflict = true
		return nil
	}
	s.state = StatePlaying
	s.guardConflict = false
	return nil
}

// Pause 进入 Paused 状态。累计秒数保留，续播后继续累加。
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StatePlaying {
		s.state = StatePaused
	}
}

// End 结束会话并释放守卫槽位。结束后的会话不再响应任何事件。
func (s *Session) End(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateEnded {
		s.mu.Unlock()
		return nil
	}
	s.state = StateEnded
	s.mu.Unlock()

	if s.params.RewardLevel > 0 {
		return s.guard.Release(ctx, s.params.UserID, s.token)
	}
	return nil
}

// SetBalance 用权威余额校准本地乐观值，通常在会话建立时调用一次。
func (s *Session) SetBalance(xpTotal, coinTotal int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.xpTotal = xpTotal
	s.coinTotal = coinTotal
}

// Snapshot 返回展示层快照。
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	progressPercent := 0.0
	if s.lastSnapshot.DurationSeconds > 0 {
		progressPercent = 100 * s.lastSnapshot.CurrentTime / s.lastSnapshot.DurationSeconds
		if progressPercent > 100 {
			progressPercent = 100
		}
	}
	return Snapshot{
		State:                   s.state,
		ProgressPercent:         progressPercent,
		AccumulatedSeconds:      s.accumulatedSeconds,
		XPEarnedThisSession:     s.xpThisSession,
		CoinsEarnedThisSession:  s.coinsThisSession,
		XPTotal:                 s.xpTotal,
		CoinTotal:               s.coinTotal,
		ReachedDailyLimit:       s.reachedDailyLimit,
		ReachedMaxWatchDuration: s.reachedMaxWatchDuration,
		GuardConflict:           s.guardConflict,
	}
}

// Run 以 TickInterval 周期推进状态机直到 ctx 取消或会话结束。
// Tick 之间不会重叠。
func (s *Session) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if ended := s.Tick(ctx); ended {
				return nil
			}
		}
	}
}

// Tick 执行一次状态机推进，返回会话是否已结束。
// 导出以便在无真实时钟的环境下驱动会话。
func (s *Session) Tick(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateEnded:
		return true
	case StatePlaying:
	default:
		return false
	}

	if s.params.RewardLevel > 0 {
		alive, err := s.guard.Heartbeat(ctx, s.params.UserID, s.token)
		if err != nil {
			// Transient failure; retry on the next tick.
			s.log.WithContext(ctx).Warnf("heartbeat failed: video=%s err=%v", s.params.VideoID, err)
			return false
		}
		if !alive {
			s.state = StatePaused
			s.guardConflict = true
			return false
		}
	}

	snap := s.player.Snapshot()
	s.lastSnapshot = snap

	// Position frozen since the last tick means the player is buffering;
	// nothing is watched and nothing is reported.
	if s.lastPositionValid && snap.IsPlaying && snap.CurrentTime == s.lastPosition {
		return false
	}
	s.lastPosition = snap.CurrentTime
	s.lastPositionValid = true

	if s.progress != nil {
		delta := s.cfg.TickInterval.Seconds()
		if !snap.IsPlaying {
			delta = 0
		}
		if err := s.progress.ReportProgress(ctx, ProgressReport{
			UserID:          s.params.UserID,
			VideoID:         s.params.VideoID,
			PositionSeconds: snap.CurrentTime,
			DeltaSeconds:    delta,
		}); err != nil {
			s.log.WithContext(ctx).Warnf("report progress failed: video=%s err=%v", s.params.VideoID, err)
		}
	}

	if !snap.IsPlaying {
		return false
	}
	if snap.Muted || snap.Volume <= 0 {
		return false
	}
	if s.params.RewardLevel <= 0 {
		return false
	}
	if s.reachedDailyLimit || s.reachedMaxWatchDuration {
		return false
	}

	s.accumulatedSeconds += s.cfg.TickInterval.Seconds()
	if s.accumulatedSeconds < s.cfg.ClaimThresholdSeconds {
		return false
	}

	// Reset at send time, not at response time; the ledger owns duplicate
	// rejection, so a slow response can cost at most one claim.
	s.accumulatedSeconds = 0
	s.claimLocked(ctx, snap.DurationSeconds)
	return false
}

func (s *Session) claimLocked(ctx context.Context, durationSeconds float64) {
	req := ClaimRequest{
		UserID:               s.params.UserID,
		VideoID:              s.params.VideoID,
		XPAmount:             s.cfg.xpPerClaim(s.params.RewardLevel),
		CoinAmount:           s.cfg.coinsPerClaim(s.params.RewardLevel),
		TotalDurationSeconds: durationSeconds,
		SessionToken:         s.token,
	}
	verdict, err := s.claimer.ClaimReward(ctx, req)
	if err != nil {
		s.log.WithContext(ctx).Warnf("claim failed: video=%s err=%v", s.params.VideoID, err)
		return
	}
	s.applyVerdictLocked(verdict)
}

func (s *Session) applyVerdictLocked(verdict ClaimVerdict) {
	if verdict.Granted {
		s.xpThisSession += verdict.XPGranted
		s.coinsThisSession += verdict.CoinsGranted
		s.xpTotal = verdict.NewXPTotal
		s.coinTotal = verdict.NewCoinTotal
	} else {
		// Reconcile against the authoritative totals even when rejected.
		s.xpTotal = verdict.NewXPTotal
		s.coinTotal = verdict.NewCoinTotal
	}
	if verdict.MaxReached {
		s.reachedMaxWatchDuration = true
	}
	if verdict.DailyCapReached {
		s.reachedDailyLimit = true
	}
}
