package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/folderguard/folderguard/pkg/observability"
	"github.com/folderguard/folderguard/pkg/rbac"
)

const roleCacheType = "redis"

// RedisRoleCache provides a Redis-based read-through cache over a
// RoleService. Reads are served from cache when possible; every mutation
// invalidates the affected keys so the next read hits the store.
type RedisRoleCache struct {
	service RoleService
	redis   *redis.Client
	ttl     map[string]time.Duration
	metrics *observability.Metrics
}

// NewRedisRoleCache creates a new Redis cache layer in front of service.
func NewRedisRoleCache(service RoleService, redisAddr, password string, db int, metrics *observability.Metrics) (*RedisRoleCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisRoleCache{
		service: service,
		redis:   client,
		ttl: map[string]time.Duration{
			"role": 15 * time.Minute,
			"list": 5 * time.Minute,
		},
		metrics: metrics,
	}, nil
}

// Close closes the Redis connection.
func (c *RedisRoleCache) Close() error {
	return c.redis.Close()
}

func roleKey(roleType rbac.RoleType, name string) string {
	return fmt.Sprintf("role:%s:%s", roleType, name)
}

func listKey(roleType rbac.RoleType) string {
	return fmt.Sprintf("roles:%s:list", roleType)
}

const allRolesKey = "roles:all"

func (c *RedisRoleCache) hit(keyType string) {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(roleCacheType, keyType).Inc()
	}
}

func (c *RedisRoleCache) miss(keyType string) {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues(roleCacheType, keyType).Inc()
	}
}

// invalidate drops the keys a mutation of (roleType, name) could have made
// stale.
func (c *RedisRoleCache) invalidate(ctx context.Context, roleType rbac.RoleType, name string) {
	c.redis.Del(ctx, roleKey(roleType, name), listKey(roleType), allRolesKey)
}

// CreateRole creates a role and invalidates the list caches.
func (c *RedisRoleCache) CreateRole(ctx context.Context, role *rbac.Role) error {
	if err := c.service.CreateRole(ctx, role); err != nil {
		return err
	}
	c.invalidate(ctx, role.Type, role.Name)
	return nil
}

// GetRole gets a role with caching.
func (c *RedisRoleCache) GetRole(ctx context.Context, roleType rbac.RoleType, name string) (*rbac.Role, error) {
	key := roleKey(roleType, name)

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var role rbac.Role
		if err := json.Unmarshal([]byte(cached), &role); err == nil {
			c.hit("role")
			return &role, nil
		}
	}
	c.miss("role")

	role, err := c.service.GetRole(ctx, roleType, name)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(role); err == nil {
		c.redis.Set(ctx, key, data, c.ttl["role"])
	}
	return role, nil
}

// ListRoles lists roles of one type with caching.
func (c *RedisRoleCache) ListRoles(ctx context.Context, roleType rbac.RoleType) ([]rbac.Role, error) {
	key := listKey(roleType)

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var roles []rbac.Role
		if err := json.Unmarshal([]byte(cached), &roles); err == nil {
			c.hit("list")
			return roles, nil
		}
	}
	c.miss("list")

	roles, err := c.service.ListRoles(ctx, roleType)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(roles); err == nil {
		c.redis.Set(ctx, key, data, c.ttl["list"])
	}
	return roles, nil
}

// AllRoles returns every role grouped by type with caching.
func (c *RedisRoleCache) AllRoles(ctx context.Context) (map[rbac.RoleType][]rbac.Role, error) {
	cached, err := c.redis.Get(ctx, allRolesKey).Result()
	if err == nil {
		var all map[rbac.RoleType][]rbac.Role
		if err := json.Unmarshal([]byte(cached), &all); err == nil {
			c.hit("all")
			return all, nil
		}
	}
	c.miss("all")

	all, err := c.service.AllRoles(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(all); err == nil {
		c.redis.Set(ctx, allRolesKey, data, c.ttl["list"])
	}
	return all, nil
}

// DeleteRole deletes a role and invalidates its caches.
func (c *RedisRoleCache) DeleteRole(ctx context.Context, roleType rbac.RoleType, name string) error {
	if err := c.service.DeleteRole(ctx, roleType, name); err != nil {
		return err
	}
	c.invalidate(ctx, roleType, name)
	return nil
}

// BindSid binds a sid and invalidates the role's caches.
func (c *RedisRoleCache) BindSid(ctx context.Context, roleType rbac.RoleType, name, sid string) error {
	if err := c.service.BindSid(ctx, roleType, name, sid); err != nil {
		return err
	}
	c.invalidate(ctx, roleType, name)
	return nil
}

// UnbindSid unbinds a sid and invalidates the role's caches.
func (c *RedisRoleCache) UnbindSid(ctx context.Context, roleType rbac.RoleType, name, sid string) error {
	if err := c.service.UnbindSid(ctx, roleType, name, sid); err != nil {
		return err
	}
	c.invalidate(ctx, roleType, name)
	return nil
}

var _ RoleService = (*RedisRoleCache)(nil)
