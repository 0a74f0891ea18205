package cooldown

import (
	"encoding/json"
	"math"
	"strconv"
)

// State 控制器状态，字段与持久化键一一对应
type State struct {
	Attempts          int     `json:"attempts"`
	ResendCodeIndex   int     `json:"resendCodeIndex"`
	Timer             float64 `json:"timer"`
	Cooldown          float64 `json:"cooldown"`
	CooldownEnabled   bool    `json:"isCooldownEnabled"`
	ResendCodeEnabled bool    `json:"isResendCodeEnabled"`
	// LastUpdate 毫秒时间戳，0 表示从未记录
	LastUpdate int64 `json:"lastUpdate,omitempty"`
}

// DefaultState 首次使用时的状态：第一条验证码已发出，等待第一个间隔
func DefaultState(cfg Config) State {
	return State{
		Attempts:        1,
		ResendCodeIndex: 1,
		Timer:           cfg.timerAt(0),
	}
}

// reset 冷却结束后的完整重置
func (s *State) reset() {
	s.Attempts = 1
	s.ResendCodeIndex = 1
	s.Timer = 0
	s.Cooldown = 0
	s.CooldownEnabled = false
	s.ResendCodeEnabled = true
}

// settle 根据 timer/cooldown 重新推导两个开关；冷却归零且次数已用完时完整重置
func (s *State) settle(cfg Config) {
	if s.CooldownEnabled && s.Cooldown == 0 && s.Attempts >= cfg.MaxAttempts {
		s.reset()
		return
	}
	s.CooldownEnabled = s.Cooldown > 0
	s.ResendCodeEnabled = s.Timer == 0 && s.Cooldown == 0
}

// tick 一秒倒计时
func (s *State) tick(cfg Config) {
	if s.Timer > 0 && !s.ResendCodeEnabled {
		s.Timer = math.Max(0, s.Timer-1)
	}
	if s.Cooldown > 0 {
		s.Cooldown = math.Max(0, s.Cooldown-1)
	}
	s.settle(cfg)
}

// elapse 扣除挂起期间流逝的秒数
func (s *State) elapse(seconds float64, cfg Config) {
	if seconds < 0 {
		seconds = 0
	}
	if s.Timer > 0 {
		s.Timer = math.Max(0, s.Timer-seconds)
	}
	if s.Cooldown > 0 {
		s.Cooldown = math.Max(0, s.Cooldown-seconds)
	}
	s.settle(cfg)
}

func (s State) counting() bool {
	return s.Timer > 0 || s.Cooldown > 0
}

// elapsedSeconds 两个毫秒时间戳之间的秒数，四舍五入
func elapsedSeconds(nowMs, lastUpdateMs int64) float64 {
	return math.Round(float64(nowMs-lastUpdateMs) / 1000)
}

// encode 序列化为 JSON 原始值，不含 lastUpdate
func (s State) encode(k Keys) map[string]string {
	return map[string]string{
		k.Attempts:          strconv.Itoa(s.Attempts),
		k.ResendCodeIndex:   strconv.Itoa(s.ResendCodeIndex),
		k.Timer:             encodeNumber(s.Timer),
		k.Cooldown:          encodeNumber(s.Cooldown),
		k.CooldownEnabled:   strconv.FormatBool(s.CooldownEnabled),
		k.ResendCodeEnabled: strconv.FormatBool(s.ResendCodeEnabled),
	}
}

func encodeNumber(v float64) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "0"
	}
	return string(b)
}

func decodeNumber(raw string) (float64, error) {
	var v float64
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return 0, err
	}
	return v, nil
}

func decodeBool(raw string) (bool, error) {
	var v bool
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return false, err
	}
	return v, nil
}
