package cooldown

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultMaxAttempts    = 3
	DefaultCooldownPeriod = 3600
)

// DefaultInitialTimers 默认的递增重发间隔（秒）
var DefaultInitialTimers = []float64{60, 120, 300}

var (
	ErrInvalidConfig = errors.New("invalid cooldown config")
	ErrClosed        = errors.New("cooldown controller closed")
)

// Config 控制器配置，不做持久化
type Config struct {
	// InstanceKey 实例标识，如 CONFIRM_EMAIL，所有存储键以此区分
	InstanceKey string `mapstructure:"instance_key" json:"instanceKey"`
	// InitialTimers 每次重发后的等待秒数，按次数递增
	InitialTimers []float64 `mapstructure:"initial_timers" json:"initialTimers"`
	// MaxAttempts 进入冷却前允许的发送次数
	MaxAttempts int `mapstructure:"max_attempts" json:"maxAttempts"`
	// CooldownPeriod 冷却秒数
	CooldownPeriod float64 `mapstructure:"cooldown_period" json:"cooldownPeriod"`
}

// WithDefaults 补全未设置的字段
func (c Config) WithDefaults() Config {
	if len(c.InitialTimers) == 0 {
		c.InitialTimers = append([]float64(nil), DefaultInitialTimers...)
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.CooldownPeriod <= 0 {
		c.CooldownPeriod = DefaultCooldownPeriod
	}
	return c
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.InstanceKey) == "" {
		return fmt.Errorf("%w: instance key is required", ErrInvalidConfig)
	}
	for i, t := range c.InitialTimers {
		if t < 0 {
			return fmt.Errorf("%w: initial_timers[%d] is negative", ErrInvalidConfig, i)
		}
	}
	return nil
}

// timerAt 按下标取间隔，越界时取最后一个
func (c Config) timerAt(index int) float64 {
	if index < 0 {
		index = 0
	}
	if last := len(c.InitialTimers) - 1; index > last {
		index = last
	}
	return c.InitialTimers[index]
}
