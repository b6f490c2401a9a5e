package repo

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

type Redis struct{ C *redis.Client }

func NewRedis(addr string) *Redis {
	return &Redis{C: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *Redis) Ping(ctx context.Context) error { return r.C.Ping(ctx).Err() }
func (r *Redis) Close() error                   { return r.C.Close() }

const oauthStatePrefix = "oauth:state:"

// SaveOAuthState stores a one-time state nonce for the browser OAuth flow.
func (r *Redis) SaveOAuthState(ctx context.Context, state string, ttl time.Duration) error {
	return r.C.Set(ctx, oauthStatePrefix+state, "1", ttl).Err()
}

// ConsumeOAuthState atomically claims a state nonce. A second consume of the
// same state returns false, which is what defeats callback replay.
func (r *Redis) ConsumeOAuthState(ctx context.Context, state string) (bool, error) {
	res, err := r.C.GetDel(ctx, oauthStatePrefix+state).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res != "", nil
}
