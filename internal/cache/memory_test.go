package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"keygate/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type MemoryCacheTestSuite struct {
	suite.Suite
	cache *MemoryCache
	ctx   context.Context
}

func (s *MemoryCacheTestSuite) SetupTest() {
	s.cache = NewMemoryCache(MemoryCacheConfig{MaxKeys: 3, CleanupInterval: time.Hour})
	s.ctx = context.Background()
}

func (s *MemoryCacheTestSuite) TearDownTest() {
	s.NoError(s.cache.Close())
}

func (s *MemoryCacheTestSuite) TestDefaults() {
	c := NewMemoryCache(MemoryCacheConfig{})
	defer func() { _ = c.Close() }()

	s.Equal(1000, c.maxKeys)
	s.Equal(auth.CacheTypeMemory, c.Stats().Type)
}

func (s *MemoryCacheTestSuite) TestSetAndGet() {
	s.NoError(s.cache.Set(s.ctx, "api_key:0a1b", []byte(`{"sub":"api_key:0a1b"}`), 0))

	value, err := s.cache.Get(s.ctx, "api_key:0a1b")
	s.NoError(err)
	s.Equal(`{"sub":"api_key:0a1b"}`, string(value))
}

func (s *MemoryCacheTestSuite) TestSetCopiesValue() {
	value := []byte("abc")
	s.NoError(s.cache.Set(s.ctx, "k", value, 0))
	value[0] = 'x'

	stored, err := s.cache.Get(s.ctx, "k")
	s.NoError(err)
	s.Equal("abc", string(stored))
}

func (s *MemoryCacheTestSuite) TestGet_KeyNotFound() {
	value, err := s.cache.Get(s.ctx, "missing")
	s.ErrorIs(err, auth.ErrCacheKeyNotFound)
	s.Nil(value)
}

func (s *MemoryCacheTestSuite) TestTTLExpiration() {
	s.NoError(s.cache.Set(s.ctx, "short", []byte("v"), 20*time.Millisecond))
	s.True(s.cache.Exists(s.ctx, "short"))

	time.Sleep(40 * time.Millisecond)

	s.False(s.cache.Exists(s.ctx, "short"))
	_, err := s.cache.Get(s.ctx, "short")
	s.ErrorIs(err, auth.ErrCacheKeyNotFound)
	s.Equal(int64(0), s.cache.Stats().Keys)
}

func (s *MemoryCacheTestSuite) TestDelete() {
	s.NoError(s.cache.Set(s.ctx, "k", []byte("v"), 0))
	s.NoError(s.cache.Delete(s.ctx, "k"))
	s.False(s.cache.Exists(s.ctx, "k"))

	s.NoError(s.cache.Delete(s.ctx, "never-set"))
}

func (s *MemoryCacheTestSuite) TestMaxKeysEviction() {
	for i := range 3 {
		s.NoError(s.cache.Set(s.ctx, fmt.Sprintf("k%d", i), []byte("v"), 0))
	}
	s.NoError(s.cache.Set(s.ctx, "k3", []byte("v"), 0))

	s.Equal(int64(3), s.cache.Stats().Keys)
	s.True(s.cache.Exists(s.ctx, "k3"))
}

func (s *MemoryCacheTestSuite) TestEvictionPrefersExpired() {
	s.NoError(s.cache.Set(s.ctx, "stale", []byte("v"), time.Millisecond))
	s.NoError(s.cache.Set(s.ctx, "a", []byte("v"), 0))
	s.NoError(s.cache.Set(s.ctx, "b", []byte("v"), 0))
	time.Sleep(5 * time.Millisecond)

	s.NoError(s.cache.Set(s.ctx, "c", []byte("v"), 0))

	s.True(s.cache.Exists(s.ctx, "a"))
	s.True(s.cache.Exists(s.ctx, "b"))
	s.True(s.cache.Exists(s.ctx, "c"))
}

func (s *MemoryCacheTestSuite) TestUpdateExistingKeyDoesNotEvict() {
	for i := range 3 {
		s.NoError(s.cache.Set(s.ctx, fmt.Sprintf("k%d", i), []byte("v"), 0))
	}
	s.NoError(s.cache.Set(s.ctx, "k0", []byte("v2"), 0))

	for i := range 3 {
		s.True(s.cache.Exists(s.ctx, fmt.Sprintf("k%d", i)))
	}
}

func (s *MemoryCacheTestSuite) TestStats() {
	s.NoError(s.cache.Set(s.ctx, "k", []byte("v"), 0))
	_, _ = s.cache.Get(s.ctx, "k")
	_, _ = s.cache.Get(s.ctx, "k")
	_, _ = s.cache.Get(s.ctx, "nope")

	stats := s.cache.Stats()
	s.Equal(int64(2), stats.Hits)
	s.Equal(int64(1), stats.Misses)
	s.Equal(int64(1), stats.Keys)
}

func (s *MemoryCacheTestSuite) TestCleanup() {
	s.NoError(s.cache.Set(s.ctx, "gone", []byte("v"), time.Millisecond))
	s.NoError(s.cache.Set(s.ctx, "kept", []byte("v"), 0))
	time.Sleep(5 * time.Millisecond)

	s.cache.cleanup()

	s.Equal(int64(1), s.cache.Stats().Keys)
}

func (s *MemoryCacheTestSuite) TestCloseIsIdempotent() {
	s.NoError(s.cache.Close())
	s.NoError(s.cache.Close())
}

func TestMemoryCacheTestSuite(t *testing.T) {
	suite.Run(t, new(MemoryCacheTestSuite))
}

func TestMemoryCache_JanitorRuns(t *testing.T) {
	c := NewMemoryCache(MemoryCacheConfig{CleanupInterval: 10 * time.Millisecond})
	defer func() { _ = c.Close() }()

	assert.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Millisecond))

	assert.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.data) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := NewMemoryCache(MemoryCacheConfig{MaxKeys: 50})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 100 {
				key := fmt.Sprintf("k-%d-%d", i, j%10)
				_ = c.Set(ctx, key, []byte("v"), time.Minute)
				_, _ = c.Get(ctx, key)
				_ = c.Exists(ctx, key)
				if j%7 == 0 {
					_ = c.Delete(ctx, key)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Stats().Keys, int64(50))
}
