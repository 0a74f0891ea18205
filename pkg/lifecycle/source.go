package lifecycle

import (
	"fmt"
	"sync"
)

// AppState 应用前后台状态
type AppState string

const (
	Active     AppState = "active"
	Inactive   AppState = "inactive"
	Background AppState = "background"
)

// Suspended inactive 与 background 都视为挂起
func (s AppState) Suspended() bool {
	return s == Inactive || s == Background
}

// ParseAppState 解析客户端上报的状态
func ParseAppState(s string) (AppState, error) {
	switch AppState(s) {
	case Active, Inactive, Background:
		return AppState(s), nil
	default:
		return "", fmt.Errorf("unknown app state %q", s)
	}
}

// Handler 状态变化回调
type Handler func(state AppState)

// Source 生命周期信号源
type Source interface {
	Subscribe(h Handler) (unsubscribe func())
}

// Emitter 进程内的信号源，Publish 同步通知所有订阅者
type Emitter struct {
	mu       sync.RWMutex
	seq      int
	handlers map[int]Handler
}

var _ Source = (*Emitter)(nil)

func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[int]Handler)}
}

func (e *Emitter) Subscribe(h Handler) func() {
	e.mu.Lock()
	e.seq++
	id := e.seq
	e.handlers[id] = h
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.handlers, id)
		e.mu.Unlock()
	}
}

// Publish 广播状态
func (e *Emitter) Publish(state AppState) {
	e.mu.RLock()
	hs := make([]Handler, 0, len(e.handlers))
	for _, h := range e.handlers {
		hs = append(hs, h)
	}
	e.mu.RUnlock()

	for _, h := range hs {
		h(state)
	}
}

// Subscribers 当前订阅数
func (e *Emitter) Subscribers() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers)
}
