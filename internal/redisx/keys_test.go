package redisx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "order_status:42", OrderStatusKey(42))
	assert.Equal(t, "dedup:vnpay:42:14012345:00", DedupKey("vnpay", "42:14012345:00"))
}
