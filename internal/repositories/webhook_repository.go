package repositories

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// WebhookRepository archives raw deliveries and keeps a short-lived dedupe
// cache in Redis. The cache is best-effort: the conditional status updates
// remain the source of truth for idempotency.
type WebhookRepository struct {
	DB  *sql.DB
	RDB *redis.Client
}

const webhookDedupeTTL = 24 * time.Hour

// SaveDelivery stores the raw payload for operational follow-up.
func (r *WebhookRepository) SaveDelivery(ctx context.Context, gateway, signature string, payload []byte) error {
	_, err := r.DB.ExecContext(ctx, `
        INSERT INTO payment_webhooks (gateway, signature, body_json) VALUES (?, ?, ?)`,
		gateway, signature, payload)
	return err
}

// Seen reports whether an identical delivery was processed recently. The
// first caller for a given payload wins the SET NX and gets false.
func (r *WebhookRepository) Seen(ctx context.Context, gateway string, payload []byte) (bool, error) {
	if r.RDB == nil {
		return false, nil
	}
	ok, err := r.RDB.SetNX(ctx, dedupeKey(gateway, payload), 1, webhookDedupeTTL).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Forget drops the dedupe mark so the gateway's retry of a delivery that
// failed mid-processing is not mistaken for a duplicate.
func (r *WebhookRepository) Forget(ctx context.Context, gateway string, payload []byte) error {
	if r.RDB == nil {
		return nil
	}
	return r.RDB.Del(ctx, dedupeKey(gateway, payload)).Err()
}

func dedupeKey(gateway string, payload []byte) string {
	sum := sha256.Sum256(payload)
	return "webhook:" + gateway + ":" + hex.EncodeToString(sum[:])
}
