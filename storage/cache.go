package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Tayyab2344/Trello/domain"
)

type backend interface {
	Board(ctx context.Context, boardID string) (domain.Board, error)
	BoardsFor(ctx context.Context, userID string) ([]domain.Board, error)
	CreateBoard(ctx context.Context, title, image, organization, ownerID string) (domain.Board, error)
	AddMember(ctx context.Context, boardID, userID string) (domain.Board, error)
	RemoveMember(ctx context.Context, boardID, userID string) (domain.Board, error)
	DeleteBoard(ctx context.Context, boardID string) (domain.Board, error)
}

// Cache wraps a Storage instance with Redis-backed caching for the
// membership reads the fanout hits on every event. Mutations evict, so
// a stale entry can only outlive a membership change by the TTL on a
// different instance.
type Cache struct {
	*Storage
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Storage wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}

	c := &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
	if s, ok := base.(*Storage); ok {
		c.Storage = s
	}
	return c
}

func (c *Cache) Board(ctx context.Context, boardID string) (domain.Board, error) {
	if b, ok := c.loadBoard(ctx, boardID); ok {
		return b, nil
	}

	b, err := c.base.Board(ctx, boardID)
	if err != nil {
		return domain.Board{}, err
	}

	c.storeBoard(ctx, b)
	return b, nil
}

func (c *Cache) BoardsFor(ctx context.Context, userID string) ([]domain.Board, error) {
	if boards, ok := c.loadBoards(ctx, userID); ok {
		return boards, nil
	}

	boards, err := c.base.BoardsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.storeBoards(ctx, userID, boards)
	return boards, nil
}

func (c *Cache) CreateBoard(ctx context.Context, title, image, organization, ownerID string) (domain.Board, error) {
	b, err := c.base.CreateBoard(ctx, title, image, organization, ownerID)
	if err != nil {
		return domain.Board{}, err
	}
	c.evict(ctx, b.ID, ownerID)
	return b, nil
}

func (c *Cache) AddMember(ctx context.Context, boardID, userID string) (domain.Board, error) {
	b, err := c.base.AddMember(ctx, boardID, userID)
	if err != nil {
		return domain.Board{}, err
	}
	c.evict(ctx, boardID, userID)
	return b, nil
}

func (c *Cache) RemoveMember(ctx context.Context, boardID, userID string) (domain.Board, error) {
	b, err := c.base.RemoveMember(ctx, boardID, userID)
	if err != nil {
		return domain.Board{}, err
	}
	c.evict(ctx, boardID, userID)
	return b, nil
}

func (c *Cache) DeleteBoard(ctx context.Context, boardID string) (domain.Board, error) {
	b, err := c.base.DeleteBoard(ctx, boardID)
	if err != nil {
		return domain.Board{}, err
	}
	c.evict(ctx, boardID, b.Observers()...)
	return b, nil
}

func (c *Cache) loadBoard(ctx context.Context, boardID string) (domain.Board, bool) {
	if c.redis == nil {
		return domain.Board{}, false
	}
	data, err := c.redis.Get(ctx, boardCacheKey(boardID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, boardCacheKey(boardID)).Err()
		}
		return domain.Board{}, false
	}
	var b domain.Board
	if err := json.Unmarshal(data, &b); err != nil {
		_ = c.redis.Del(ctx, boardCacheKey(boardID)).Err()
		return domain.Board{}, false
	}
	return b, true
}

func (c *Cache) loadBoards(ctx context.Context, userID string) ([]domain.Board, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, memberBoardsCacheKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			_ = c.redis.Del(ctx, memberBoardsCacheKey(userID)).Err()
		}
		return nil, false
	}
	var boards []domain.Board
	if err := json.Unmarshal(data, &boards); err != nil {
		_ = c.redis.Del(ctx, memberBoardsCacheKey(userID)).Err()
		return nil, false
	}
	return boards, true
}

func (c *Cache) storeBoard(ctx context.Context, b domain.Board) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(b)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, boardCacheKey(b.ID), data, c.ttl).Err()
}

func (c *Cache) storeBoards(ctx context.Context, userID string, boards []domain.Board) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(boards)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, memberBoardsCacheKey(userID), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, boardID string, userIDs ...string) {
	if c.redis == nil {
		return
	}
	keys := []string{boardCacheKey(boardID)}
	for _, id := range userIDs {
		keys = append(keys, memberBoardsCacheKey(id))
	}
	_, _ = c.redis.Del(ctx, keys...).Result()
}

func boardCacheKey(boardID string) string {
	return "board:" + boardID
}

func memberBoardsCacheKey(userID string) string {
	return "member-boards:" + userID
}
