package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPending, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusCancelled, true},
		{StatusCompleted, StatusCompleted, true},
		{StatusCompleted, StatusCancelled, true},
		{StatusCompleted, StatusPending, false},
		{StatusCancelled, StatusCancelled, true},
		{StatusCancelled, StatusCompleted, false},
		{StatusCancelled, StatusPending, false},
		{"unknown", StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestSideEffectPairs(t *testing.T) {
	assert.True(t, postsRevenue(StatusCompleted, PaymentPaid))
	assert.False(t, postsRevenue(StatusCompleted, PaymentUnpaid))
	assert.True(t, releasesStock(StatusCancelled, PaymentFailed))
	assert.False(t, releasesStock(StatusCancelled, PaymentUnpaid))
	assert.False(t, PaymentStatus("refunded").Valid())
}
