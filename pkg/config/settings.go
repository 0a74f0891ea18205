package config

import "fmt"

// RedisConfig redis 连接配置，Url 优先于 Host/Port
type RedisConfig struct {
	Url      string `mapstructure:"url" json:"url"`
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	PassWord string `mapstructure:"password" json:"passWord"`
	DB       int    `mapstructure:"db" json:"db"`
}

func (c RedisConfig) Addr() string {
	host := c.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := c.Port
	if port == 0 {
		port = 6379
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// SQLConfig mysql / postgres 连接配置
type SQLConfig struct {
	Dialect  string `mapstructure:"dialect" json:"dialect"` // mysql / postgres
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"password"`
	DbName   string `mapstructure:"dbname" json:"dbname"`
	LogLevel string `mapstructure:"logLevel" json:"logLevel"`
	DSN      string `mapstructure:"dsn" json:"dsn"` // 设置后忽略上面的字段
}

// MongoDB mongo 连接配置
type MongoDB struct {
	Link       string `mapstructure:"link" json:"link"`
	Database   string `mapstructure:"database" json:"database"`
	Collection string `mapstructure:"collection" json:"collection"`
}

// StoreConfig 冷却状态存储配置
type StoreConfig struct {
	Driver     string      `mapstructure:"driver" json:"driver"` // memory / redis / mysql / postgres / mongo
	Prefix     string      `mapstructure:"prefix" json:"prefix"` // 仅 redis 使用
	TTLSeconds int         `mapstructure:"ttl_seconds" json:"ttlSeconds"`
	Redis      RedisConfig `mapstructure:"redis" json:"redis"`
	SQL        SQLConfig   `mapstructure:"sql" json:"sql"`
	Mongo      MongoDB     `mapstructure:"mongo" json:"mongo"`
}

type Email struct {
	Host     string `mapstructure:"host" json:"host"`
	Port     string `mapstructure:"port" json:"port"`
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"password"`
}

// VerificationConfig 验证码服务配置
type VerificationConfig struct {
	CodeLength int                     `mapstructure:"code_length" json:"codeLength"`
	CodeTTL    int                     `mapstructure:"code_ttl_seconds" json:"codeTTLSeconds"`
	Redis      RedisConfig             `mapstructure:"redis" json:"redis"`
	SMS        SMSVerificationConfig   `mapstructure:"sms" json:"sms"`
	Email      EmailVerificationConfig `mapstructure:"email" json:"email"`
}

// SMSVerificationConfig 短信验证码配置
type SMSVerificationConfig struct {
	Provider string `mapstructure:"provider" json:"provider"` // 服务商：console
}

// EmailVerificationConfig 邮件验证码配置
type EmailVerificationConfig struct {
	Provider string `mapstructure:"provider" json:"provider"` // 服务商：console/smtp
	SMTP     Email  `mapstructure:"smtp" json:"smtp"`
}
