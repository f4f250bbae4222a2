package space

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"metaverse2d/internal/world"
)

const redisSpaceKeyPrefix = "space:"

var ErrSpaceNotFound = world.ErrSpaceNotFound

type ISpaceService interface {
	GetSpaceBounds(ctx context.Context, spaceID string) (world.Bounds, error)
}

type spaceService struct {
	db       *sql.DB
	rdc      *redis.Client // optional cache
	cacheTTL time.Duration
}

var _ ISpaceService = (*spaceService)(nil)

func NewSpaceService(db *sql.DB, rdc *redis.Client, cacheTTL time.Duration) ISpaceService {
	return &spaceService{
		db:       db,
		rdc:      rdc,
		cacheTTL: cacheTTL,
	}
}

// GetSpaceBounds serves the grid size from the Redis hash "space:<id>" and
// falls back to Postgres, refilling the cache on the way out.
func (svc *spaceService) GetSpaceBounds(ctx context.Context, id string) (world.Bounds, error) {
	key := redisSpaceKeyPrefix + id

	// 1. Fast‑path
	if svc.rdc != nil {
		snap, err := svc.rdc.HGetAll(ctx, key).Result()
		if err != nil {
			zap.L().Debug("space.cache_read", zap.String("id", id), zap.Error(err))
		} else if b, ok := boundsFromHash(snap); ok {
			return b, nil
		}
	}

	// 2. Otherwise go to Postgres
	var b world.Bounds
	err := svc.db.QueryRowContext(ctx,
		`SELECT width, height FROM spaces WHERE id = $1`, id,
	).Scan(&b.Width, &b.Height)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return world.Bounds{}, fmt.Errorf("%w: %s", ErrSpaceNotFound, id)
		}
		return world.Bounds{}, err
	}

	// 3. Refill; a cache failure never fails the lookup
	if svc.rdc != nil && svc.cacheTTL > 0 {
		_, err = svc.rdc.Pipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, "w", b.Width, "h", b.Height)
			p.Expire(ctx, key, svc.cacheTTL)
			return nil
		})
		if err != nil {
			zap.L().Warn("space.cache_write", zap.String("id", id), zap.Error(err))
		}
	}
	return b, nil
}

func boundsFromHash(h map[string]string) (world.Bounds, bool) {
	w, errW := strconv.Atoi(h["w"])
	ht, errH := strconv.Atoi(h["h"])
	if errW != nil || errH != nil {
		return world.Bounds{}, false
	}
	return world.Bounds{Width: w, Height: ht}, true
}
