package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"bookstore-storefront/localstore"
	"bookstore-storefront/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type intentExpirer interface {
	ExpireIntent(ctx context.Context, token string) error
}

// runWorker closes payment intents whose window elapsed. It relies on Redis
// keyspace notifications for expired keys (notify-keyspace-events Ex).
func runWorker(ctx context.Context, rdb *redis.Client, intents intentExpirer, logger *zap.Logger) {
	pubsub := rdb.PSubscribe(ctx, "__keyevent@0__:expired")
	defer pubsub.Close()

	logger.Info("worker: listening to redis expired events")

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker: stopped")
			return
		default:
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("pubsub receive error", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}

			handleExpiredKey(ctx, intents, logger, msg.Payload)
		}
	}
}

func handleExpiredKey(ctx context.Context, intents intentExpirer, logger *zap.Logger, key string) {
	if !strings.HasPrefix(key, localstore.IntentPrefix) {
		return
	}
	token := strings.TrimPrefix(key, localstore.IntentPrefix)
	if token == "" {
		return
	}

	err := intents.ExpireIntent(ctx, token)
	switch {
	case err == nil:
		logger.Info("worker: payment intent expired", zap.String("token", token))
	case errors.Is(err, repository.ErrIntentNotPending):
		logger.Debug("worker: intent already closed", zap.String("token", token))
	default:
		logger.Error("worker: failed to expire intent", zap.String("token", token), zap.Error(err))
	}
}
