package Database

import (
	"context"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// MissingQueue publishes the ids a run could not find on the archive to a
// per-tag redis list, for a later retry job to pick up.
type MissingQueue struct {
	client *redis.Client
	prefix string
}

func NewMissingQueue(client *redis.Client, prefix string) *MissingQueue {
	return &MissingQueue{client: client, prefix: prefix}
}

func (q *MissingQueue) Key(tag string) string {
	return q.prefix + ":missing:" + tag
}

// PushMissing replaces the list for tag with ids, keeping their order.
func (q *MissingQueue) PushMissing(ctx context.Context, tag string, ids []int64) error {
	key := q.Key(tag)

	values := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		values = append(values, strconv.FormatInt(id, 10))
	}

	pipe := q.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(values) > 0 {
		pipe.RPush(ctx, key, values...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "failed to push missing ids to %s", key)
	}

	log.Info("Pushed ", len(ids), " missing ids to redis at key ", key)
	return nil
}
