package core

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// TaskCreator 定义任务构造函数签名
type TaskCreator func() Task

// Task 任务接口
type Task interface {
	// Run 执行任务逻辑
	// params 是从配置文件或注册时传入的动态参数
	Run(ctx context.Context, params map[string]any) error

	// Identifier 返回任务唯一标识 (用于日志)
	Identifier() string
}

// IntParam 读取整数参数，兼容 yaml/json 解出的各种数字类型
func IntParam(params map[string]any, key string, def int) (int, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("param %s: %w", key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("param %s: unsupported type %T", key, raw)
	}
}

// SecondsParam 以秒为单位的时长参数
func SecondsParam(params map[string]any, key string, def time.Duration) (time.Duration, error) {
	n, err := IntParam(params, key, int(def/time.Second))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("param %s: must not be negative", key)
	}
	return time.Duration(n) * time.Second, nil
}
