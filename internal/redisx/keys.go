package redisx

import (
	"fmt"
	"time"
)

const (
	// Cart per user: cart:{user_id} -> JSON [{menuItem, quantity}]
	KeyCart = "cart:%d"
	// Pattern for SCAN over live carts.
	PatternCart = "cart:*"

	// Checkout idempotency: idem:order:create:{user_id}:{key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%d:%s"

	// Event dedup: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLCart        = time.Hour
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
)

func CartKey(userID int64) string { return fmt.Sprintf(KeyCart, userID) }

func IdemOrderKey(userID int64, key string) string {
	return fmt.Sprintf(KeyIdemOrderCreate, userID, key)
}

func DedupKey(service, id string) string { return fmt.Sprintf(KeyDedup, service, id) }
