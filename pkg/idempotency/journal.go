package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// Journal counts deliveries of identical webhook bodies. It is an audit aid:
// callers must not use the count to skip processing.
type Journal struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewJournal(rdb redis.Cmdable, ttl time.Duration) *Journal {
	return &Journal{rdb: rdb, ttl: ttl, prefix: "webhook:delivery:"}
}

func (j *Journal) Key(body []byte) string {
	sum := sha256.Sum256(body)
	return j.prefix + hex.EncodeToString(sum[:])
}

// Record increments the delivery counter for body and returns the attempt
// number, starting at 1. The TTL is refreshed on every delivery.
func (j *Journal) Record(ctx context.Context, body []byte) (int64, error) {
	key := j.Key(body)
	pipe := j.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, j.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
