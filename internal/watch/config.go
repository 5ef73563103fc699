package watch

import "time"

// Config 汇总会话引擎的节奏与奖励换算参数。
type Config struct {
	// TickInterval 为状态机推进周期。
	TickInterval time.Duration
	// ClaimThresholdSeconds 为触发一次申领所需的累计有效观看秒数。
	ClaimThresholdSeconds float64
	// PerMinuteXPRate 为每分钟每 reward_level 的 XP 额度。
	PerMinuteXPRate int64
	// PerMinuteCoinRate 为 reward_level 超过 2 时每级的 coin 额度。
	PerMinuteCoinRate int64
}

// DefaultConfig 返回生产默认参数。
func DefaultConfig() Config {
	return Config{
		TickInterval:          2 * time.Second,
		ClaimThresholdSeconds: 60,
		PerMinuteXPRate:       20,
		PerMinuteCoinRate:     5,
	}
}

// Normalize 补齐未设置的字段。
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = def.TickInterval
	}
	if c.ClaimThresholdSeconds <= 0 {
		c.ClaimThresholdSeconds = def.ClaimThresholdSeconds
	}
	if c.PerMinuteXPRate <= 0 {
		c.PerMinuteXPRate = def.PerMinuteXPRate
	}
	if c.PerMinuteCoinRate <= 0 {
		c.PerMinuteCoinRate = def.PerMinuteCoinRate
	}
	return c
}

// xpPerClaim 计算单次申领的 XP 额度。
func (c Config) xpPerClaim(rewardLevel int32) int64 {
	if rewardLevel <= 0 {
		return 0
	}
	return int64(rewardLevel) * c.PerMinuteXPRate
}

// coinsPerClaim 计算单次申领的 coin 额度；仅 reward_level > 2 时非零。
func (c Config) coinsPerClaim(rewardLevel int32) int64 {
	if rewardLevel <= 2 {
		return 0
	}
	return int64(rewardLevel-2) * c.PerMinuteCoinRate
}
