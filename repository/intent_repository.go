package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"bookstore-storefront/model"

	"go.uber.org/zap"
)

// CreateOrderIntent stores a pending order awaiting external payment.
func CreateOrderIntent(ctx context.Context, db *sql.DB, intent model.OrderIntent) error {
	payload, err := json.Marshal(intent.Request)
	if err != nil {
		return fmt.Errorf("failed to encode intent payload: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO order_intents (token, client_id, user_id, payload, status)
		VALUES ($1, $2, $3, $4, 'pending')
	`, intent.Token, intent.ClientID, intent.UserID, payload)
	return err
}

// CompleteOrderIntent turns a pending intent into an order exactly once. The
// intent row is locked for the whole transaction; a completed intent is
// returned as-is with replayed set to true. A pending intent older than ttl
// is closed as expired here, so a lost expiry event cannot keep it payable.
// A ttl of zero disables the age check.
func CompleteOrderIntent(ctx context.Context, db *sql.DB, logger *zap.Logger, token string, ttl time.Duration) (model.OrderIntent, bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return model.OrderIntent{}, false, err
	}
	defer tx.Rollback()

	intent := model.OrderIntent{Token: token}
	var payload []byte
	var stale bool
	err = tx.QueryRowContext(ctx, `
		SELECT client_id, user_id, payload, status, COALESCE(order_id, 0),
		       ($2::bigint > 0 AND created_at < NOW() - $2::bigint * INTERVAL '1 second')
		FROM order_intents
		WHERE token = $1
		FOR UPDATE
	`, token, int64(ttl/time.Second)).Scan(&intent.ClientID, &intent.UserID, &payload, &intent.Status, &intent.OrderID, &stale)
	if err == sql.ErrNoRows {
		return model.OrderIntent{}, false, ErrIntentNotFound
	}
	if err != nil {
		return model.OrderIntent{}, false, err
	}

	if err := json.Unmarshal(payload, &intent.Request); err != nil {
		return model.OrderIntent{}, false, fmt.Errorf("failed to decode intent payload: %w", err)
	}

	switch intent.Status {
	case model.IntentStatusCompleted:
		return intent, true, nil
	case model.IntentStatusExpired:
		return intent, false, ErrIntentExpired
	case model.IntentStatusFailed:
		return intent, false, ErrIntentFailed
	}

	if stale {
		_, err = tx.ExecContext(ctx, `
			UPDATE order_intents
			SET status = 'expired', updated_at = NOW()
			WHERE token = $1
		`, token)
		if err != nil {
			return intent, false, err
		}
		if err := tx.Commit(); err != nil {
			return intent, false, err
		}
		logger.Info("intent expired at completion", zap.String("token", token))
		intent.Status = model.IntentStatusExpired
		return intent, false, ErrIntentExpired
	}

	orderID, err := createOrderTx(ctx, tx, logger, intent.Request)
	if err != nil {
		return intent, false, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE order_intents
		SET status = 'completed', order_id = $2, updated_at = NOW()
		WHERE token = $1
	`, token, orderID)
	if err != nil {
		return intent, false, err
	}

	if err := tx.Commit(); err != nil {
		return intent, false, err
	}

	intent.Status = model.IntentStatusCompleted
	intent.OrderID = orderID
	return intent, false, nil
}

// FailOrderIntent marks a pending intent as declined by the gateway.
func FailOrderIntent(ctx context.Context, db *sql.DB, token string) error {
	return closeIntent(ctx, db, token, model.IntentStatusFailed)
}

// ExpireOrderIntent closes a pending intent whose payment window elapsed.
func ExpireOrderIntent(ctx context.Context, db *sql.DB, token string) error {
	return closeIntent(ctx, db, token, model.IntentStatusExpired)
}

func closeIntent(ctx context.Context, db *sql.DB, token, status string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE order_intents
		SET status = $2, updated_at = NOW()
		WHERE token = $1 AND status = 'pending'
	`, token, status)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrIntentNotPending)
}
