package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL 상수 정의
const (
	TTLRules      = 30 * time.Second // 목록 (조회수/복사수가 자주 바뀜)
	TTLCategories = 2 * time.Minute  // 카테고리 + 개수
	TTLDefault    = 5 * time.Minute
)

// 캐시 키 접두사
const (
	PrefixRules      = "rules:"
	PrefixCategories = "categories:"
)

// ErrUnavailable is returned by reads when no redis client is configured.
var ErrUnavailable = errors.New("redis not available")

// Service Redis 캐시 서비스 인터페이스
type Service interface {
	// 기본 캐시 연산
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// 규칙 목록 캐시
	GetRules(ctx context.Context, query string, dest interface{}) error
	SetRules(ctx context.Context, query string, data interface{}) error
	InvalidateRules(ctx context.Context) error

	// 카테고리 캐시
	GetCategories(ctx context.Context, dest interface{}) error
	SetCategories(ctx context.Context, data interface{}) error
	InvalidateCategories(ctx context.Context) error

	// 유틸리티
	IsAvailable() bool
	Ping(ctx context.Context) error
}

// redisCache Redis 기반 캐시 구현
type redisCache struct {
	client *redis.Client
}

// NewService 새로운 캐시 서비스 생성. nil client yields a no-op cache.
func NewService(client *redis.Client) Service {
	return &redisCache{client: client}
}

// IsAvailable Redis 연결 가능 여부
func (c *redisCache) IsAvailable() bool {
	return c.client != nil
}

// Ping Redis 연결 테스트
func (c *redisCache) Ping(ctx context.Context) error {
	if c.client == nil {
		return ErrUnavailable
	}
	return c.client.Ping(ctx).Err()
}

// Get 캐시에서 값 조회
func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrUnavailable
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

// Set 캐시에 값 저장
func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil // Redis 없으면 무시
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete 캐시 삭제
func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// ========================================
// 규칙 목록 캐시
// ========================================

// RulesKey builds the list cache key for an already-normalized query string.
func RulesKey(query string) string {
	if query == "" {
		return PrefixRules + "list"
	}
	return fmt.Sprintf("%slist:%s", PrefixRules, query)
}

func (c *redisCache) GetRules(ctx context.Context, query string, dest interface{}) error {
	return c.Get(ctx, RulesKey(query), dest)
}

func (c *redisCache) SetRules(ctx context.Context, query string, data interface{}) error {
	return c.Set(ctx, RulesKey(query), data, TTLRules)
}

func (c *redisCache) InvalidateRules(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.deleteByPattern(ctx, PrefixRules+"*")
}

// ========================================
// 카테고리 캐시
// ========================================

func (c *redisCache) categoriesKey() string {
	return PrefixCategories + "all"
}

func (c *redisCache) GetCategories(ctx context.Context, dest interface{}) error {
	return c.Get(ctx, c.categoriesKey(), dest)
}

func (c *redisCache) SetCategories(ctx context.Context, data interface{}) error {
	return c.Set(ctx, c.categoriesKey(), data, TTLCategories)
}

func (c *redisCache) InvalidateCategories(ctx context.Context) error {
	return c.Delete(ctx, c.categoriesKey())
}

// ========================================
// 내부 유틸리티
// ========================================

func (c *redisCache) deleteByPattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
