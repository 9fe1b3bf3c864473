package Database

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meilisearch/meilisearch-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ConnectPostgres opens the catalog pool and pings it, so a bad host or bad
// credentials fail here instead of on the first query.
func ConnectPostgres(ctx context.Context, connectionString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, errors.Wrap(err, "invalid catalog connection string")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "failed to connect to catalog")
	}

	log.Debug("Postgres pool is healthy and initialized")
	return pool, nil
}

func ConnectMeilisearch(host string, apiKey string) (*meilisearch.Client, error) {
	meiliClient := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	if !meiliClient.IsHealthy() {
		return nil, errors.Errorf("meilisearch at %s is not healthy", host)
	}

	log.Debug("Meili client is healthy and initialized")
	return meiliClient, nil
}

func ConnectRedis(ctx context.Context, host string, password string, db int) (*redis.Client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     host,
		Password: password,
		DB:       db,
	})

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		_ = redisClient.Close()
		return nil, errors.Wrapf(err, "redis at %s is not healthy", host)
	}

	log.Debug("Redis client is healthy and initialized")
	return redisClient, nil
}
