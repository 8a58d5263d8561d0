// Package session 提供按会话 id 存取对话状态的存储。
package session

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"circuit-nav-go/internal/model"
)

// Store 会话存储。跨会话并发由内部锁保护；
// 同一会话内的读写按“一个会话一个客户端”假设串行。
type Store struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

// New 创建会话存储。ttl <= 0 表示会话永不过期。
func New(ttl time.Duration) *Store {
	expiration := gocache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = ttl
	}
	return &Store{cache: gocache.New(expiration, cleanup)}
}

// GetOrCreate 取会话状态，不存在则惰性创建。
func (s *Store) GetOrCreate(sessionID string) *model.ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cache.Get(sessionID); ok {
		return v.(*model.ConversationState)
	}
	state := model.NewConversationState()
	s.cache.SetDefault(sessionID, state)
	return state
}

// Touch 刷新会话的过期时间（每轮对话后调用）。
func (s *Store) Touch(sessionID string, state *model.ConversationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.SetDefault(sessionID, state)
}

// Delete 删除会话。
func (s *Store) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(sessionID)
}

// Count 活跃会话数。
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.ItemCount()
}
