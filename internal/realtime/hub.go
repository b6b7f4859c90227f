package realtime

import (
	"context"
	"log"
	"sync"
	"time"
)

// 变更事件类型，与数据库行变更和会话变更保持一致的命名
const (
	EventInsert    = "INSERT"
	EventUpdate    = "UPDATE"
	EventDelete    = "DELETE"
	EventSignedIn  = "SIGNED_IN"
	EventSignedOut = "SIGNED_OUT"
)

// TopicAuth 为会话变更使用的主题，其余主题直接使用表名
const TopicAuth = "auth"

const defaultBufferSize = 16

// Change 描述一次变更通知。
// 不携带行数据差异，订阅方需要自行重新拉取。
type Change struct {
	Topic    string
	Event    string
	RecordID string
	At       time.Time
}

// Publisher 由需要发出变更通知的组件依赖
type Publisher interface {
	Publish(ctx context.Context, change Change)
}

// Subscription 表示对某个主题的一次订阅
type Subscription struct {
	topic string
	ch    chan Change
	once  sync.Once
}

// C 返回接收变更的通道，取消订阅后通道会被关闭
func (s *Subscription) C() <-chan Change {
	return s.ch
}

// Topic 返回订阅的主题
func (s *Subscription) Topic() string {
	return s.topic
}

// Hub 是进程内的按主题分发的变更中心
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string][]*Subscription
	bufferSize  int
	closed      bool
}

// NewHub 创建 Hub，bufferSize<=0 时使用默认缓冲
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Hub{
		subscribers: make(map[string][]*Subscription),
		bufferSize:  bufferSize,
	}
}

// Subscribe 订阅指定主题
func (h *Hub) Subscribe(topic string) *Subscription {
	sub := &Subscription{topic: topic, ch: make(chan Change, h.bufferSize)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.close()
		return sub
	}
	h.subscribers[topic] = append(h.subscribers[topic], sub)
	return sub
}

// Unsubscribe 取消订阅并关闭通道，重复调用是安全的
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	subs := h.subscribers[sub.topic]
	for i, candidate := range subs {
		if candidate == sub {
			h.subscribers[sub.topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(h.subscribers[sub.topic]) == 0 {
		delete(h.subscribers, sub.topic)
	}
	h.mu.Unlock()

	sub.close()
}

// Publish 向主题的全部订阅者投递变更。
// 订阅者缓冲已满时丢弃本次事件：后续任意事件都会触发同样的全量刷新。
func (h *Hub) Publish(ctx context.Context, change Change) {
	if change.At.IsZero() {
		change.At = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	for _, sub := range h.subscribers[change.Topic] {
		select {
		case sub.ch <- change:
		case <-ctx.Done():
			return
		default:
			log.Printf("[realtime] subscriber buffer full on topic %q, dropping %s %s", change.Topic, change.Event, change.RecordID)
		}
	}
}

// SubscriberCount 返回主题当前的订阅数
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[topic])
}

// Close 关闭 Hub 并释放全部订阅
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for topic, subs := range h.subscribers {
		for _, sub := range subs {
			sub.close()
		}
		delete(h.subscribers, topic)
	}
}

func (s *Subscription) close() {
	s.once.Do(func() {
		close(s.ch)
	})
}
