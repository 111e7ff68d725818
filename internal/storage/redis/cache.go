package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"subshare/backend/internal/domain"
)

// Cache Redis 缓存实现
type Cache struct {
	client *goredis.Client
	ctx    context.Context
}

// NewCache 基于已有客户端创建缓存实例
func NewCache(client *Client) *Cache {
	return &Cache{
		client: client.Client(),
		ctx:    context.Background(),
	}
}

// ========== 客户缓存 ==========

// CacheCustomer 缓存客户信息
func (c *Cache) CacheCustomer(customer *domain.Customer, ttl time.Duration) error {
	key := fmt.Sprintf("customer:%s", customer.ID)
	data, err := json.Marshal(customer)
	if err != nil {
		return err
	}
	return c.client.Set(c.ctx, key, data, ttl).Err()
}

// GetCachedCustomer 获取缓存的客户信息
func (c *Cache) GetCachedCustomer(customerID string) (*domain.Customer, error) {
	key := fmt.Sprintf("customer:%s", customerID)
	data, err := c.client.Get(c.ctx, key).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, fmt.Errorf("customer not found in cache")
		}
		return nil, err
	}

	var customer domain.Customer
	if err := json.Unmarshal([]byte(data), &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// DeleteCachedCustomer 删除缓存的客户信息
func (c *Cache) DeleteCachedCustomer(customerID string) error {
	key := fmt.Sprintf("customer:%s", customerID)
	return c.client.Del(c.ctx, key).Err()
}

// ========== 验证产物缓存 ==========

// CacheArtifact 缓存账号的验证产物
func (c *Cache) CacheArtifact(artifact *domain.VerificationArtifact, ttl time.Duration) error {
	key := fmt.Sprintf("artifact:%s", artifact.AccountID)
	data, err := json.Marshal(artifact)
	if err != nil {
		return err
	}
	return c.client.Set(c.ctx, key, data, ttl).Err()
}

// GetCachedArtifact 获取缓存的验证产物
func (c *Cache) GetCachedArtifact(accountID string) (*domain.VerificationArtifact, error) {
	key := fmt.Sprintf("artifact:%s", accountID)
	data, err := c.client.Get(c.ctx, key).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, fmt.Errorf("artifact not found in cache")
		}
		return nil, err
	}

	var artifact domain.VerificationArtifact
	if err := json.Unmarshal([]byte(data), &artifact); err != nil {
		return nil, err
	}
	return &artifact, nil
}

// DeleteCachedArtifact 删除缓存的验证产物
func (c *Cache) DeleteCachedArtifact(accountID string) error {
	key := fmt.Sprintf("artifact:%s", accountID)
	return c.client.Del(c.ctx, key).Err()
}

// ========== 统计缓存 ==========

// CacheStatistics 缓存仪表盘统计信息
func (c *Cache) CacheStatistics(stats *domain.DashboardStatistics, ttl time.Duration) error {
	key := "dashboard:statistics"
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.client.Set(c.ctx, key, data, ttl).Err()
}

// GetCachedStatistics 获取缓存的仪表盘统计信息
func (c *Cache) GetCachedStatistics() (*domain.DashboardStatistics, error) {
	key := "dashboard:statistics"
	data, err := c.client.Get(c.ctx, key).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, fmt.Errorf("statistics not found in cache")
		}
		return nil, err
	}

	var stats domain.DashboardStatistics
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ========== 限流缓存 ==========

// IncrementRateLimit 增加限流计数
func (c *Cache) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	pipe := c.client.Pipeline()

	incr := pipe.Incr(c.ctx, key)
	pipe.Expire(c.ctx, key, window)

	if _, err := pipe.Exec(c.ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// GetRateLimit 获取限流计数
func (c *Cache) GetRateLimit(key string) (int64, error) {
	count, err := c.client.Get(c.ctx, key).Int64()
	if err != nil {
		if err == goredis.Nil {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

// ========== 发布订阅 ==========

// PublishInboundMessage 发布托管邮箱新邮件通知
func (c *Cache) PublishInboundMessage(mailboxAddress string, message *domain.InboundMessage) error {
	channel := fmt.Sprintf("inbound:%s", mailboxAddress)
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return c.client.Publish(c.ctx, channel, data).Err()
}

// SubscribeInboundMessage 订阅托管邮箱新邮件通知
func (c *Cache) SubscribeInboundMessage(mailboxAddress string) *goredis.PubSub {
	channel := fmt.Sprintf("inbound:%s", mailboxAddress)
	return c.client.Subscribe(c.ctx, channel)
}

// ========== 工具方法 ==========

// Delete 删除键
func (c *Cache) Delete(key string) error {
	return c.client.Del(c.ctx, key).Err()
}

// Exists 检查键是否存在
func (c *Cache) Exists(key string) (bool, error) {
	count, err := c.client.Exists(c.ctx, key).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Close 关闭 Redis 连接
func (c *Cache) Close() error {
	return c.client.Close()
}
