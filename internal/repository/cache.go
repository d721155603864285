package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"duty-planner/internal/model"
	"duty-planner/internal/store"
)

const (
	tasksKeyPrefix     = "tasks:"
	recurringKeyPrefix = "recurring:"
	allScopeKey        = "@all"
)

// Cache wraps a store.Remote with Redis-backed caching for list reads.
// Every write evicts the affected keys, whether or not it succeeded, so a
// reconciling Load after a failed write always reaches the backing store.
type Cache struct {
	base  store.Remote
	redis *redis.Client
	ttl   time.Duration
}

var _ store.Remote = (*Cache)(nil)

// NewCache creates a caching Remote. A nil client or zero ttl disables caching.
func NewCache(base store.Remote, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("repository.NewCache: base remote is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) ListTasks(ctx context.Context, scope string) ([]model.Task, error) {
	key := tasksCacheKey(scope)
	var tasks []model.Task
	if c.load(ctx, key, &tasks) {
		return tasks, nil
	}
	tasks, err := c.base.ListTasks(ctx, scope)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, tasks)
	return tasks, nil
}

func (c *Cache) InsertTask(ctx context.Context, task model.Task) (model.Task, error) {
	defer c.evictTasks(ctx, task.CreatedBy)
	return c.base.InsertTask(ctx, task)
}

func (c *Cache) UpdateTask(ctx context.Context, scope, id string, patch model.TaskPatch) error {
	defer c.evictTasks(ctx, scope)
	return c.base.UpdateTask(ctx, scope, id, patch)
}

func (c *Cache) DeleteTask(ctx context.Context, scope, id string) error {
	defer c.evictTasks(ctx, scope)
	return c.base.DeleteTask(ctx, scope, id)
}

func (c *Cache) ListRecurring(ctx context.Context, owner string) ([]model.RecurringTask, error) {
	key := recurringKeyPrefix + owner
	var tasks []model.RecurringTask
	if c.load(ctx, key, &tasks) {
		return tasks, nil
	}
	tasks, err := c.base.ListRecurring(ctx, owner)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, tasks)
	return tasks, nil
}

func (c *Cache) InsertRecurring(ctx context.Context, task model.RecurringTask) (model.RecurringTask, error) {
	defer c.evict(ctx, recurringKeyPrefix+task.CreatedBy)
	return c.base.InsertRecurring(ctx, task)
}

func (c *Cache) UpdateRecurring(ctx context.Context, owner, id string, patch model.RecurringPatch) error {
	defer c.evict(ctx, recurringKeyPrefix+owner)
	return c.base.UpdateRecurring(ctx, owner, id, patch)
}

func (c *Cache) DeleteRecurring(ctx context.Context, owner, id string) error {
	defer c.evict(ctx, recurringKeyPrefix+owner)
	return c.base.DeleteRecurring(ctx, owner, id)
}

func (c *Cache) load(ctx context.Context, key string, dst any) bool {
	if c.redis == nil || c.ttl == 0 {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing store without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) save(ctx context.Context, key string, value any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.WithError(err).WithField("key", key).Debug("cache save")
	}
}

func (c *Cache) evict(ctx context.Context, keys ...string) {
	if c.redis == nil || len(keys) == 0 {
		return
	}
	if err := c.redis.Del(context.WithoutCancel(ctx), keys...).Err(); err != nil {
		log.WithError(err).WithField("keys", keys).Warn("cache evict")
	}
}

// evictTasks drops the owner's list and the administrators' list. An
// administrator write (empty scope) may touch any owner, so every task list goes.
func (c *Cache) evictTasks(ctx context.Context, scope string) {
	if c.redis == nil {
		return
	}
	if scope != "" {
		c.evict(ctx, tasksCacheKey(scope), tasksCacheKey(""))
		return
	}
	ctx = context.WithoutCancel(ctx)
	var keys []string
	iter := c.redis.Scan(ctx, 0, tasksKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.WithError(err).Warn("cache scan")
	}
	c.evict(ctx, keys...)
}

func tasksCacheKey(scope string) string {
	if scope == "" {
		return tasksKeyPrefix + allScopeKey
	}
	return tasksKeyPrefix + scope
}
