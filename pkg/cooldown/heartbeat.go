package cooldown

import (
	"fmt"
	"strings"
)

// HeartbeatPolicy 决定 lastUpdate 的写入时机
//
// web 端拿不到可靠的前后台事件，只能在每次保存时刷新 lastUpdate，
// 下次加载时据此扣除流逝时间；原生端只在进入后台时写入。
type HeartbeatPolicy interface {
	// StampOnSave 每次保存是否一并写入 lastUpdate
	StampOnSave() bool
	Name() string
}

type WebHeartbeat struct{}

func (WebHeartbeat) StampOnSave() bool { return true }
func (WebHeartbeat) Name() string      { return "web" }

type NativeHeartbeat struct{}

func (NativeHeartbeat) StampOnSave() bool { return false }
func (NativeHeartbeat) Name() string      { return "native" }

// HeartbeatFor 按平台名选择策略，空值按 native 处理
func HeartbeatFor(platform string) (HeartbeatPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(platform)) {
	case "", "native", "ios", "android":
		return NativeHeartbeat{}, nil
	case "web":
		return WebHeartbeat{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown platform %q", ErrInvalidConfig, platform)
	}
}
