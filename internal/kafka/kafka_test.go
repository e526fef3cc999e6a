package kafka

import (
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlot_StableAndInRange(t *testing.T) {
	for _, key := range []string{"1", "42", "9001", ""} {
		s := Slot([]byte(key), 4)
		assert.GreaterOrEqual(t, s, 0)
		assert.Less(t, s, 4)
		assert.Equal(t, s, Slot([]byte(key), 4))
	}
	assert.Equal(t, 0, Slot([]byte("42"), 1))
}

func TestUnwrapPayload(t *testing.T) {
	type payload struct {
		OrderID int64 `json:"order_id"`
	}
	v, err := UnwrapPayload[payload](json.RawMessage(`{"order_id":7}`))
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.OrderID)

	_, err = UnwrapPayload[payload](json.RawMessage(`{"order_id":"x"}`))
	assert.Error(t, err)
}

func TestHeader(t *testing.T) {
	m := kafka.Message{Headers: []kafka.Header{{Key: "x-event-type", Value: []byte("OrderCreated")}}}
	assert.Equal(t, "OrderCreated", Header(m, "x-event-type"))
	assert.Equal(t, "", Header(m, "missing"))
}

func msg(partition int, offset int64) kafka.Message {
	return kafka.Message{Partition: partition, Offset: offset}
}

func TestOffsets_CommitsInOrderPerPartition(t *testing.T) {
	o := newOffsets()
	for _, off := range []int64{10, 11, 12} {
		o.add(msg(0, off))
	}
	o.add(msg(1, 5))

	// a later offset finishing first must wait for the earlier one
	_, ok := o.done(msg(0, 11))
	assert.False(t, ok)

	next, ok := o.done(msg(1, 5))
	require.True(t, ok)
	assert.Equal(t, int64(5), next.Offset)

	next, ok = o.done(msg(0, 10))
	require.True(t, ok)
	assert.Equal(t, int64(11), next.Offset)

	next, ok = o.done(msg(0, 12))
	require.True(t, ok)
	assert.Equal(t, int64(12), next.Offset)
	assert.Empty(t, o.pending)
}

func TestOffsets_RewindDropsStaleEntries(t *testing.T) {
	o := newOffsets()
	o.add(msg(0, 20))
	o.add(msg(0, 21))
	o.add(msg(0, 20))

	_, ok := o.done(msg(0, 21))
	assert.False(t, ok)
	next, ok := o.done(msg(0, 20))
	require.True(t, ok)
	assert.Equal(t, int64(20), next.Offset)
}

func TestProducer_PublishAfterCloseDrops(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"}, "orders", 1, nil)

	p.Publish([]byte("1"), []byte("{}"))
	p.Publish([]byte("2"), []byte("{}")) // buffer full
	p.Close()

	assert.NotPanics(t, func() {
		p.Publish([]byte("3"), []byte("{}"))
		p.Close()
	})
	assert.Len(t, p.inbox, 1)
}
