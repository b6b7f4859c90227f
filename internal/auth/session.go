package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/plantlog/internal/realtime"
)

// Subscriber 提供按主题的订阅，由 realtime.Hub 实现
type Subscriber interface {
	Subscribe(topic string) *realtime.Subscription
	Unsubscribe(sub *realtime.Subscription)
}

// Session 是进程级的会话状态。
// Init 订阅会话变更，Teardown 取消订阅；两者之间跟踪当前登录的用户。
type Session struct {
	changes Subscriber

	mu         sync.RWMutex
	active     map[string]int
	lastChange realtime.Change
	sub        *realtime.Subscription
	done       chan struct{}
}

// NewSession 构造 Session
func NewSession(changes Subscriber) *Session {
	return &Session{changes: changes, active: make(map[string]int)}
}

// Init 订阅 auth 主题，重复调用返回错误
func (s *Session) Init() error {
	if s.changes == nil {
		return errors.New("session has no change source")
	}

	s.mu.Lock()
	if s.sub != nil {
		s.mu.Unlock()
		return errors.New("session already initialized")
	}
	sub := s.changes.Subscribe(realtime.TopicAuth)
	done := make(chan struct{})
	s.sub = sub
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		for change := range sub.C() {
			s.apply(change)
		}
	}()
	return nil
}

// Teardown 取消订阅并等待处理协程退出，未初始化时直接返回
func (s *Session) Teardown() {
	s.mu.Lock()
	sub, done := s.sub, s.done
	s.sub, s.done = nil, nil
	s.mu.Unlock()

	if sub == nil {
		return
	}
	s.changes.Unsubscribe(sub)
	<-done
}

// ActiveCount 返回当前登录中的用户数
func (s *Session) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

// SignedIn 判断用户是否处于登录状态
func (s *Session) SignedIn(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active[userID] > 0
}

// LastChangeAt 返回最近一次会话变更的时间
func (s *Session) LastChangeAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastChange.At
}

func (s *Session) apply(change realtime.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastChange = change
	switch change.Event {
	case realtime.EventSignedIn:
		s.active[change.RecordID]++
	case realtime.EventSignedOut:
		if s.active[change.RecordID] <= 1 {
			delete(s.active, change.RecordID)
			return
		}
		s.active[change.RecordID]--
	}
}
