package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ayush/pawpal-api/internal/logging"
	"github.com/ayush/pawpal-api/internal/models"
)

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

// UserBackend is the credential store the cache sits in front of.
type UserBackend interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UserActive(ctx context.Context, id int64) (bool, error)
}

// cachedUser is the Redis representation. Neither the password hash nor the
// active flag is written to the cache; users returned on a hit carry an
// empty PasswordHash and a freshly read IsActive.
type cachedUser struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// UserCache is a read-through Redis cache for user lookups by id, the hot
// path of every authenticated request. Profile fields live for ttl; the
// active flag is re-read from the backend on every hit, so disabling a user
// takes effect on their next request. Redis failures fall back to the
// backend.
type UserCache struct {
	rdb  *redis.Client
	next UserBackend
	ttl  time.Duration
	log  logging.Logger
}

func NewUserCache(rdb *redis.Client, next UserBackend, ttl time.Duration, log logging.Logger) *UserCache {
	return &UserCache{rdb: rdb, next: next, ttl: ttl, log: log}
}

func userKey(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}

func (c *UserCache) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	return c.next.CreateUser(ctx, name, email, passwordHash)
}

func (c *UserCache) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return c.next.GetUserByEmail(ctx, email)
}

func (c *UserCache) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	raw, err := c.rdb.Get(ctx, userKey(id)).Bytes()
	switch {
	case err == nil:
		var cu cachedUser
		if err := json.Unmarshal(raw, &cu); err == nil {
			return c.withFreshActive(ctx, &models.User{
				ID:        cu.ID,
				Name:      cu.Name,
				Email:     cu.Email,
				CreatedAt: cu.CreatedAt,
			})
		}
		c.log.Warn(ctx, "user cache: dropping undecodable entry", "user_id", id)
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn(ctx, "user cache: get failed", "user_id", id, "err", err)
	}

	u, err := c.next.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(ctx, u)
	return u, nil
}

// withFreshActive fills u.IsActive from the backend. A user deleted behind
// the cache's back is evicted and reported missing.
func (c *UserCache) withFreshActive(ctx context.Context, u *models.User) (*models.User, error) {
	active, err := c.next.UserActive(ctx, u.ID)
	if errors.Is(err, ErrNotFound) {
		c.Invalidate(ctx, u.ID)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.IsActive = active
	return u, nil
}

// UpdatePassword writes through and evicts the cached entry.
func (c *UserCache) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if err := c.next.UpdatePassword(ctx, id, passwordHash); err != nil {
		return err
	}
	c.Invalidate(ctx, id)
	return nil
}

// Invalidate removes the cached entry for id.
func (c *UserCache) Invalidate(ctx context.Context, id int64) {
	if err := c.rdb.Del(ctx, userKey(id)).Err(); err != nil {
		c.log.Warn(ctx, "user cache: delete failed", "user_id", id, "err", err)
	}
}

func (c *UserCache) put(ctx context.Context, u *models.User) {
	raw, err := json.Marshal(cachedUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	})
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, userKey(u.ID), raw, c.ttl).Err(); err != nil {
		c.log.Warn(ctx, "user cache: set failed", "user_id", u.ID, "err", err)
	}
}
