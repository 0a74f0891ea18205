package conf

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/boclar/booking-app-business-demo-sub000/pkg/config"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/cooldown"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 RESEND_SERVER_PORT
const EnvPrefix = "RESEND"

type Config struct {
	Server       ServerConfig              `mapstructure:"server"`
	Log          LogConfig                 `mapstructure:"log"`
	Cooldown     CooldownConfig            `mapstructure:"cooldown"`
	Store        config.StoreConfig        `mapstructure:"store"`
	Verification config.VerificationConfig `mapstructure:"verification"`
	Jobs         []JobConfig               `mapstructure:"jobs"`
}

type ServerConfig struct {
	Port                   string `mapstructure:"port"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
}

func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// CooldownConfig 所有控制器共用的默认参数
type CooldownConfig struct {
	Platform       string    `mapstructure:"platform"` // native / web
	InitialTimers  []float64 `mapstructure:"initial_timers"`
	MaxAttempts    int       `mapstructure:"max_attempts"`
	CooldownPeriod float64   `mapstructure:"cooldown_period"`
}

// Defaults 转换为控制器配置，InstanceKey 由调用方填写
func (c CooldownConfig) Defaults() cooldown.Config {
	return cooldown.Config{
		InitialTimers:  c.InitialTimers,
		MaxAttempts:    c.MaxAttempts,
		CooldownPeriod: c.CooldownPeriod,
	}.WithDefaults()
}

type JobConfig struct {
	Name   string                 `mapstructure:"name"` // 唯一名称
	Task   string                 `mapstructure:"task"` // 任务实现，为空时同 Name
	Cron   string                 `mapstructure:"cron"`
	Enable bool                   `mapstructure:"enable"`
	Params map[string]interface{} `mapstructure:"params"`
}

func (j JobConfig) TaskName() string {
	if j.Task != "" {
		return j.Task
	}
	return j.Name
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("cooldown.platform", "native")
	v.SetDefault("cooldown.initial_timers", cooldown.DefaultInitialTimers)
	v.SetDefault("cooldown.max_attempts", cooldown.DefaultMaxAttempts)
	v.SetDefault("cooldown.cooldown_period", cooldown.DefaultCooldownPeriod)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.prefix", "resend:")
	v.SetDefault("verification.code_length", 6)
	v.SetDefault("verification.code_ttl_seconds", 300)
	v.SetDefault("verification.sms.provider", "console")
	v.SetDefault("verification.email.provider", "console")
}

// LoadConfig 加载配置
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // 自动读取环境变量

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// 显式展开 YAML 中的 ${VAR}
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.Contains(val, "${") {
			v.Set(key, os.ExpandEnv(val))
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if _, err := cooldown.HeartbeatFor(c.Cooldown.Platform); err != nil {
		return err
	}
	cfg := c.Cooldown.Defaults()
	cfg.InstanceKey = "config"
	if err := cfg.Validate(); err != nil {
		return err
	}
	for _, job := range c.Jobs {
		if job.Name == "" || job.Cron == "" {
			return fmt.Errorf("job requires name and cron: %+v", job)
		}
	}
	return nil
}
