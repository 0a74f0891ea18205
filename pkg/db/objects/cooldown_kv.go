package objects

import "time"

// CooldownKV 对应 cooldown_kv 表，每行一个冷却状态字段
type CooldownKV struct {
	Key       string `gorm:"column:store_key;primaryKey;size:191"`
	Value     string `gorm:"column:store_value;size:64;not null"`
	UpdatedAt time.Time
}

func (CooldownKV) TableName() string {
	return "cooldown_kv"
}
