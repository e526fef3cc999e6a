package redisx

import (
	"fmt"
	"time"
)

const (
	// order_status:{order_id} -> orders.StatusView JSON
	KeyOrderStatus = "order_status:%d"

	// dedup:{gateway}:{event_id} -> "1" once the delivery was applied
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)

func OrderStatusKey(orderID int64) string { return fmt.Sprintf(KeyOrderStatus, orderID) }

func DedupKey(gateway, eventID string) string { return fmt.Sprintf(KeyDedup, gateway, eventID) }
