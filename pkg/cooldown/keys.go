package cooldown

// 持久化键前缀，客户端已有数据依赖这套命名，不可修改
const (
	prefixAttempts          = "ATTEMPTS_"
	prefixCooldown          = "COOLDOWN_"
	prefixCooldownEnabled   = "COOLDOWN_ENABLED_"
	prefixLastUpdate        = "LAST_UPDATE_"
	prefixResendCodeEnabled = "RESEND_CODE_ENABLED_"
	prefixResendCodeIndex   = "RESEND_CODE_INDEX_"
	prefixTimer             = "TIMER_"
)

// Keys 某个实例的全部存储键
type Keys struct {
	Attempts          string
	Cooldown          string
	CooldownEnabled   string
	LastUpdate        string
	ResendCodeEnabled string
	ResendCodeIndex   string
	Timer             string
}

// KeysFor 根据实例标识生成存储键，例如 CONFIRM_EMAIL -> ATTEMPTS_CONFIRM_EMAIL
func KeysFor(instanceKey string) Keys {
	return Keys{
		Attempts:          prefixAttempts + instanceKey,
		Cooldown:          prefixCooldown + instanceKey,
		CooldownEnabled:   prefixCooldownEnabled + instanceKey,
		LastUpdate:        prefixLastUpdate + instanceKey,
		ResendCodeEnabled: prefixResendCodeEnabled + instanceKey,
		ResendCodeIndex:   prefixResendCodeIndex + instanceKey,
		Timer:             prefixTimer + instanceKey,
	}
}

// All 返回全部键，顺序固定
func (k Keys) All() []string {
	return []string{
		k.Attempts,
		k.Cooldown,
		k.CooldownEnabled,
		k.LastUpdate,
		k.ResendCodeEnabled,
		k.ResendCodeIndex,
		k.Timer,
	}
}
